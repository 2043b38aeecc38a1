package chatlog

import "time"

// Format is the export family a file belongs to.
type Format string

const (
	FormatWhatsApp Format = "whatsapp"
	FormatIMessage Format = "imessage"
	FormatUnknown  Format = "unknown"
)

// RawExport is the untouched input of one import.
type RawExport struct {
	Content    string
	FormatHint string // "whatsapp", "imessage" or empty
	Contact    string // phone number or display name of the other party
}

// Message is a single parsed chat message.
type Message struct {
	Text          string    `json:"text"`
	Sender        string    `json:"sender"`
	IsFromContact bool      `json:"isFromContact"`
	Timestamp     time.Time `json:"timestamp"`
	// TimestampFallback is set when the header time could not be parsed and
	// Timestamp holds the moment of parsing instead.
	TimestampFallback bool `json:"timestampFallback,omitempty"`
}

// Candidate is one parser's full-file output.
type Candidate struct {
	ParserID  string
	Messages  []Message
	Fallbacks int
}

// CandidateSummary records how a parser fared, without its messages.
type CandidateSummary struct {
	ParserID string `json:"parserId"`
	Messages int    `json:"messages"`
}

// Result is the outcome of parsing one export.
type Result struct {
	Format     Format             `json:"format"`
	ParserID   string             `json:"parserId,omitempty"`
	Messages   []Message          `json:"-"`
	Candidates []CandidateSummary `json:"candidates"`
	Fallbacks  int                `json:"timestampFallbacks"`
	Dropped    int                `json:"dropped"`
}

// Empty reports whether nothing could be parsed.
func (r *Result) Empty() bool {
	return len(r.Messages) == 0
}
