package insight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/rapport/internal/anthropic"
	"github.com/MikeSquared-Agency/rapport/internal/session"
	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

const (
	// DefaultTimeout bounds the single insight call per import.
	DefaultTimeout = 45 * time.Second
	// MaxTranscript is the prompt transcript limit in bytes.
	MaxTranscript = 60000
	maxTokens     = 2048
)

// Completer is the text-generation collaborator.
type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

// Input is what the service knows about a relationship before asking.
type Input struct {
	SelfName    string
	ContactName string
	Summary     *signals.Summary
	Sessions    []session.Session

	// Deterministic values used by the fallback template.
	Style             Style
	ConnectionScore   int
	RelationshipLevel int
	Badges            []string
	NextMilestone     string
}

// Service asks the completer for an insight and always returns a usable one.
type Service struct {
	llm     Completer
	timeout time.Duration
	logger  *slog.Logger
}

// NewService creates a Service. A nil completer always yields the template.
func NewService(llm Completer, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{llm: llm, timeout: timeout, logger: logger}
}

// Generate makes at most one call under the configured timeout. Errors,
// timeouts and unusable output fall back to Template.
func (s *Service) Generate(ctx context.Context, in Input) Insight {
	if s.llm == nil || in.Summary == nil || in.Summary.Messages == 0 {
		return Template(in)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := BuildPrompt(in)
	s.logger.Info("requesting insight",
		"contact", in.ContactName,
		"messages", in.Summary.Messages,
		"prompt_len", len(prompt),
	)

	raw, err := s.llm.Complete(ctx, systemPrompt, []anthropic.Message{{Role: "user", Content: prompt}}, maxTokens)
	if err != nil {
		s.logger.Warn("insight request failed, using template", "error", err)
		return Template(in)
	}

	obj, ok := extractObject(raw)
	if !ok {
		s.logger.Warn("insight response had no JSON object, using template", "raw_len", len(raw))
		return Template(in)
	}

	out := Validate(obj)
	out.Source = SourceService
	return out
}

// BuildPrompt renders the user prompt with metadata and a tail of the transcript.
func BuildPrompt(in Input) string {
	sum := in.Summary
	if sum == nil {
		sum = &signals.Summary{}
	}
	first, last := "-", "-"
	if n := len(in.Sessions); n > 0 {
		first = in.Sessions[0].Start.Format("2006-01-02")
		last = in.Sessions[n-1].End.Format("2006-01-02")
	}

	transcript := session.Tail(in.Sessions, in.SelfName, in.ContactName, MaxTranscript)
	return fmt.Sprintf(userPrompt,
		in.SelfName, in.ContactName,
		sum.Messages, sum.UserMessages, sum.ContactMessages,
		len(in.Sessions), first, last,
		sum.Sentiment, sum.SentimentLabel,
		sum.Balance, sum.BalanceRatio,
		sum.ResponseTime.AverageMinutes,
		formatTopics(sum.Topics),
		transcript,
	)
}

func formatTopics(topics []signals.TopicShare) string {
	if len(topics) == 0 {
		return "none"
	}
	parts := make([]string, len(topics))
	for i, t := range topics {
		parts[i] = fmt.Sprintf("%s %d%%", t.Name, t.Percentage)
	}
	return strings.Join(parts, ", ")
}

// Template builds an insight from deterministic statistics alone.
func Template(in Input) Insight {
	sum := in.Summary
	if sum == nil {
		sum = &signals.Summary{SentimentLabel: signals.Neutral, Balance: signals.Balanced}
	}
	contact := in.ContactName
	if contact == "" {
		contact = "your contact"
	}

	raw := map[string]any{
		"overallTone":   sum.SentimentLabel,
		"nextMilestone": in.NextMilestone,
		"communicationStyle": map[string]any{
			"user":    in.Style.User,
			"contact": in.Style.Contact,
		},
	}
	if in.ConnectionScore > 0 {
		raw["connectionScore"] = float64(in.ConnectionScore)
	}
	if in.RelationshipLevel > 0 {
		raw["relationshipLevel"] = float64(in.RelationshipLevel)
	}

	var insights []any
	if sum.Messages > 0 {
		insights = append(insights,
			fmt.Sprintf("You and %s exchanged %d messages across %d conversations.", contact, sum.Messages, len(in.Sessions)))
		if len(sum.Topics) > 0 {
			insights = append(insights,
				fmt.Sprintf("Your most discussed topic is %s (%d%%).", sum.Topics[0].Name, sum.Topics[0].Percentage))
		}
		insights = append(insights, fmt.Sprintf("The overall tone of your chats is %s.", sum.SentimentLabel))
		raw["emotionalDynamics"] = dynamics(sum, contact)
	}
	raw["keyInsights"] = insights
	raw["areasForGrowth"] = growth(sum, contact)

	var badges []any
	for _, b := range in.Badges {
		badges = append(badges, b)
	}
	raw["challengesBadges"] = badges

	var topicList []any
	for _, t := range sum.Topics {
		topicList = append(topicList, map[string]any{"name": t.Name, "percentage": float64(t.Percentage)})
	}
	raw["topTopics"] = topicList

	out := Validate(raw)
	out.Source = SourceFallback
	return out
}

func dynamics(sum *signals.Summary, contact string) string {
	switch sum.Balance {
	case signals.UserDominant:
		return fmt.Sprintf("You carry most of the conversation, and the mood is %s.", sum.SentimentLabel)
	case signals.ContactDominant:
		return fmt.Sprintf("%s carries most of the conversation, and the mood is %s.", contact, sum.SentimentLabel)
	default:
		return fmt.Sprintf("You both contribute evenly, and the mood is %s.", sum.SentimentLabel)
	}
}

func growth(sum *signals.Summary, contact string) []any {
	var out []any
	switch sum.Balance {
	case signals.UserDominant:
		out = append(out, fmt.Sprintf("Leave more room for %s to share.", contact))
	case signals.ContactDominant:
		out = append(out, fmt.Sprintf("Reach out to %s more often.", contact))
	}
	if sum.ResponseTime.UserAverageMinutes > 120 {
		out = append(out, "Try replying a little sooner.")
	}
	if sum.QuestionCount*10 < sum.Messages {
		out = append(out, "Ask more questions about their day.")
	}
	return out
}
