package session

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
)

// DefaultGap is the inactivity threshold that closes a session.
const DefaultGap = 3 * time.Hour

// Session is a contiguous run of messages with no gap above the threshold.
type Session struct {
	Index    int               `json:"index"`
	Messages []chatlog.Message `json:"-"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
}

// Len returns the number of messages in the session.
func (s Session) Len() int {
	return len(s.Messages)
}

// Duration returns the time between the first and last message.
func (s Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Segment splits a chronologically sorted message list into sessions, opening
// a new one whenever the gap to the previous message exceeds gap. A
// non-positive gap uses DefaultGap.
func Segment(msgs []chatlog.Message, gap time.Duration) []Session {
	if len(msgs) == 0 {
		return nil
	}
	if gap <= 0 {
		gap = DefaultGap
	}

	var sessions []Session
	start := 0
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Sub(msgs[i-1].Timestamp) > gap {
			sessions = append(sessions, build(msgs[start:i], len(sessions)))
			start = i
		}
	}
	sessions = append(sessions, build(msgs[start:], len(sessions)))

	return sessions
}

func build(msgs []chatlog.Message, idx int) Session {
	s := Session{
		Index:    idx,
		Messages: make([]chatlog.Message, len(msgs)),
		Start:    msgs[0].Timestamp,
		End:      msgs[len(msgs)-1].Timestamp,
	}
	copy(s.Messages, msgs)
	return s
}

// FormatTranscript renders sessions as "Name: text" lines, one blank line
// between sessions, for the insight prompt. Self messages use selfName.
func FormatTranscript(sessions []Session, selfName, contactName string) string {
	var sb strings.Builder
	for i, s := range sessions {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[" + s.Start.Format("2006-01-02 15:04") + "]\n")
		for _, m := range s.Messages {
			name := selfName
			if m.IsFromContact {
				name = contactName
			}
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(strings.ReplaceAll(m.Text, "\n", " / "))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Tail keeps the most recent sessions whose rendered size stays under
// maxChars. The newest session is always kept, truncated from the front if
// it alone is too large.
func Tail(sessions []Session, selfName, contactName string, maxChars int) string {
	if len(sessions) == 0 {
		return ""
	}
	if maxChars <= 0 {
		return FormatTranscript(sessions, selfName, contactName)
	}
	start := len(sessions) - 1
	size := len(FormatTranscript(sessions[start:], selfName, contactName))
	for start > 0 {
		next := len(FormatTranscript(sessions[start-1:start], selfName, contactName)) + 1
		if size+next > maxChars {
			break
		}
		size += next
		start--
	}

	out := FormatTranscript(sessions[start:], selfName, contactName)
	if len(out) > maxChars {
		out = out[len(out)-maxChars:]
		for len(out) > 0 && !utf8.RuneStart(out[0]) {
			out = out[1:]
		}
	}
	return out
}
