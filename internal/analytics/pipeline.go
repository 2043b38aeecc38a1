package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
	"github.com/MikeSquared-Agency/rapport/internal/insight"
	"github.com/MikeSquared-Agency/rapport/internal/memory"
	"github.com/MikeSquared-Agency/rapport/internal/session"
	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

// Options tunes a Pipeline.
type Options struct {
	Location      *time.Location
	DropFallbacks bool
	SessionGap    time.Duration
	MemoryCap     int
	SelfName      string
	// Now is the clock used for timestamp fallbacks and score decay.
	Now func() time.Time
}

// Pipeline turns one raw export into a Report. It holds no per-run state and
// is safe for concurrent use.
type Pipeline struct {
	ext      *signals.Extractor
	insights *insight.Service
	opts     Options
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline. A nil insight service uses the template.
func NewPipeline(ext *signals.Extractor, insights *insight.Service, opts Options, logger *slog.Logger) *Pipeline {
	if ext == nil {
		ext = signals.NewExtractor(nil)
	}
	if opts.SelfName == "" {
		opts.SelfName = "You"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{ext: ext, insights: insights, opts: opts, logger: logger}
}

// Run parses and analyses an export. Content nobody can parse yields a report
// with StatusNoContent; there is no error path.
func (p *Pipeline) Run(ctx context.Context, export chatlog.RawExport) *Report {
	norm := chatlog.NewNormalizer(p.opts.Location)
	norm.Now = p.opts.Now

	res := chatlog.Parse(export, chatlog.Options{Normalizer: norm, DropFallbacks: p.opts.DropFallbacks})
	report := &Report{
		Format:     res.Format,
		ParserID:   res.ParserID,
		Candidates: res.Candidates,
		Warnings: Warnings{
			TimestampFallbacks: res.Fallbacks,
			Dropped:            res.Dropped,
		},
		Memories: []memory.Record{},
		Sessions: []session.Session{},
	}

	if res.Fallbacks > 0 {
		p.logger.Warn("unparseable timestamps",
			"parser", res.ParserID,
			"count", res.Fallbacks,
			"dropped", res.Dropped,
		)
	}

	if res.Empty() {
		report.Status = StatusNoContent
		p.logger.Info("no parseable content",
			"format", res.Format,
			"bytes", len(export.Content),
		)
		return report
	}

	report.Status = StatusImported
	report.Messages = res.Messages
	report.Contact = contactName(export.Contact, res.Messages)

	sessions := session.Segment(res.Messages, p.opts.SessionGap)
	sum := p.ext.Aggregate(res.Messages)
	report.Sessions = sessions
	report.Memories = memory.Synthesize(sessions, p.ext, p.opts.MemoryCap)

	rec := p.record(sum, sessions, res.Messages)
	in := insight.Input{
		SelfName:          p.opts.SelfName,
		ContactName:       report.Contact,
		Summary:           sum,
		Sessions:          sessions,
		Style:             rec.CommunicationStyle,
		ConnectionScore:   rec.ConnectionScore,
		RelationshipLevel: rec.RelationshipLevel,
		Badges:            rec.ChallengesBadges,
		NextMilestone:     rec.NextMilestone,
	}

	var ins insight.Insight
	if p.insights != nil {
		ins = p.insights.Generate(ctx, in)
	} else {
		ins = insight.Template(in)
	}
	rec.Insight = ins
	rec.ChallengesBadges = mergeBadges(rec.ChallengesBadges, ins.ChallengesBadges)
	report.Warnings.InsightFallback = ins.Source == insight.SourceFallback
	report.Record = rec

	p.logger.Info("import analysed",
		"format", res.Format,
		"parser", res.ParserID,
		"messages", rec.MessageCount,
		"sessions", rec.SessionCount,
		"memories", len(report.Memories),
		"connection_score", rec.ConnectionScore,
		"insight_source", ins.Source,
	)
	return report
}

func (p *Pipeline) record(sum *signals.Summary, sessions []session.Session, msgs []chatlog.Message) *Record {
	first := msgs[0].Timestamp
	last := msgs[len(msgs)-1].Timestamp
	score := ConnectionScore(sum, last, p.opts.Now())

	return &Record{
		MessageCount:         sum.Messages,
		UserMessageCount:     sum.UserMessages,
		ContactMessageCount:  sum.ContactMessages,
		Senders:              sum.Senders,
		SentimentScore:       sum.Sentiment,
		SentimentLabel:       sum.SentimentLabel,
		ResponseTime:         sum.ResponseTime,
		TopicDistribution:    sum.Topics,
		CommunicationBalance: sum.Balance,
		BalanceRatio:         sum.BalanceRatio,
		Initiations:          sum.Initiations,
		EmojiCount:           sum.EmojiCount,
		QuestionCount:        sum.QuestionCount,
		LanguageMix:          sum.LanguageMix,
		LocaleCues:           sum.LocaleCues,
		SessionCount:         len(sessions),
		FirstMessageAt:       first,
		LastMessageAt:        last,
		ConnectionScore:      score,
		RelationshipLevel:    RelationshipLevel(score),
		ChallengesBadges:     Badges(sum, sessions),
		NextMilestone:        NextMilestone(sum.Messages),
		CommunicationStyle:   DescribeStyle(sum),
	}
}

// contactName prefers a display name given by the caller, then the first
// contact-side sender. A phone number is only a last resort.
func contactName(hint string, msgs []chatlog.Message) string {
	if hint != "" && !looksLikePhone(hint) {
		return hint
	}
	for _, m := range msgs {
		if m.IsFromContact && m.Sender != "" {
			return m.Sender
		}
	}
	return hint
}

func looksLikePhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7
}
