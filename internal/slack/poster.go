package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/rapport/internal/analytics"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// NotifyImport posts a summary of a finished import and threads its memories
// underneath. Empty imports get a one-line notice.
func (p *Poster) NotifyImport(ctx context.Context, relationshipID uuid.UUID, rep *analytics.Report) error {
	text := formatImportMessage(relationshipID, rep)
	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return err
	}
	p.logger.Info("posted import to slack", "ts", ts, "relationship_id", relationshipID)

	if len(rep.Memories) == 0 {
		return nil
	}
	return p.PostThread(ctx, ts, formatMemories(rep))
}

// PostMessage posts a standalone message and returns its timestamp.
func (p *Poster) PostMessage(ctx context.Context, text string) (string, error) {
	return p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
	})
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	_, err := p.post(ctx, map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatImportMessage(relationshipID uuid.UUID, rep *analytics.Report) string {
	var sb strings.Builder

	if !rep.Imported() {
		fmt.Fprintf(&sb, "*Import with no parseable content* (%s, relationship %s)", rep.Format, relationshipID)
		return sb.String()
	}

	fmt.Fprintf(&sb, "*Chat imported:* %s (%s via %s)\n", rep.Contact, rep.Format, rep.ParserID)
	fmt.Fprintf(&sb, "*Relationship:* %s\n\n", relationshipID)

	if rec := rep.Record; rec != nil {
		fmt.Fprintf(&sb, "Messages: %d (%d sessions)\n", rec.MessageCount, rec.SessionCount)
		fmt.Fprintf(&sb, "Sentiment: %s (%.2f)\n", rec.SentimentLabel, rec.SentimentScore)
		fmt.Fprintf(&sb, "Connection score: %d | Level %d\n", rec.ConnectionScore, rec.RelationshipLevel)
		if len(rec.TopicDistribution) > 0 {
			topics := make([]string, 0, len(rec.TopicDistribution))
			for _, t := range rec.TopicDistribution {
				topics = append(topics, fmt.Sprintf("%s %d%%", t.Name, t.Percentage))
			}
			fmt.Fprintf(&sb, "Topics: %s\n", strings.Join(topics, ", "))
		}
		if len(rec.ChallengesBadges) > 0 {
			fmt.Fprintf(&sb, "Badges: %s\n", strings.Join(rec.ChallengesBadges, ", "))
		}
	}

	if w := rep.Warnings; w.TimestampFallbacks > 0 {
		fmt.Fprintf(&sb, "\n_%d messages had unreadable timestamps (%d dropped)._", w.TimestampFallbacks, w.Dropped)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatMemories(rep *analytics.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Memories: %d*\n", len(rep.Memories))
	for i, m := range rep.Memories {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, m.Content)
	}
	return sb.String()
}
