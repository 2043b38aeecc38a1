package analytics

import (
	"time"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
	"github.com/MikeSquared-Agency/rapport/internal/insight"
	"github.com/MikeSquared-Agency/rapport/internal/memory"
	"github.com/MikeSquared-Agency/rapport/internal/session"
	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

// Report statuses.
const (
	StatusImported  = "imported"
	StatusNoContent = "no_parseable_content"
)

// Record is the aggregate analytics of one import.
type Record struct {
	MessageCount         int                  `json:"messageCount"`
	UserMessageCount     int                  `json:"userMessageCount"`
	ContactMessageCount  int                  `json:"contactMessageCount"`
	Senders              []string             `json:"senders"`
	SentimentScore       float64              `json:"sentimentScore"`
	SentimentLabel       string               `json:"sentimentLabel"`
	ResponseTime         signals.ResponseTime `json:"responseTime"`
	TopicDistribution    []signals.TopicShare `json:"topicDistribution"`
	CommunicationBalance string               `json:"communicationBalance"`
	BalanceRatio         float64              `json:"balanceRatio"`
	Initiations          signals.Initiations  `json:"initiations"`
	EmojiCount           int                  `json:"emojiCount"`
	QuestionCount        int                  `json:"questionCount"`
	LanguageMix          map[string]float64   `json:"languageMix"`
	LocaleCues           map[string]int       `json:"localeCues"`
	SessionCount         int                  `json:"sessionCount"`
	FirstMessageAt       time.Time            `json:"firstMessageAt"`
	LastMessageAt        time.Time            `json:"lastMessageAt"`
	ConnectionScore      int                  `json:"connectionScore"`
	RelationshipLevel    int                  `json:"relationshipLevel"`
	ChallengesBadges     []string             `json:"challengesBadges"`
	NextMilestone        string               `json:"nextMilestone"`
	CommunicationStyle   insight.Style        `json:"communicationStyle"`
	Insight              insight.Insight      `json:"insight"`
}

// Warnings surfaces recoverable problems of a run.
type Warnings struct {
	TimestampFallbacks int  `json:"timestampFallbacks"`
	Dropped            int  `json:"dropped"`
	InsightFallback    bool `json:"insightFallback"`
}

// Report is everything one pipeline run produces.
type Report struct {
	Status     string                     `json:"status"`
	Format     chatlog.Format             `json:"format"`
	ParserID   string                     `json:"parserId,omitempty"`
	Contact    string                     `json:"contact,omitempty"`
	Candidates []chatlog.CandidateSummary `json:"candidates"`
	Warnings   Warnings                   `json:"warnings"`
	Record     *Record                    `json:"analytics,omitempty"`
	Memories   []memory.Record            `json:"memories"`
	Sessions   []session.Session          `json:"sessions"`
	Messages   []chatlog.Message          `json:"-"`
}

// Imported reports whether the run produced any messages.
func (r *Report) Imported() bool {
	return r.Status == StatusImported
}
