package memory

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
	"github.com/MikeSquared-Agency/rapport/internal/session"
	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

func conversation(day int, texts ...string) session.Session {
	start := time.Date(2026, 2, day, 18, 0, 0, 0, time.UTC)
	var msgs []chatlog.Message
	for i, text := range texts {
		msgs = append(msgs, chatlog.Message{
			Text:          text,
			IsFromContact: i%2 == 0,
			Timestamp:     start.Add(time.Duration(i) * time.Minute),
		})
	}
	return session.Session{
		Index:    day,
		Messages: msgs,
		Start:    msgs[0].Timestamp,
		End:      msgs[len(msgs)-1].Timestamp,
	}
}

func TestSynthesize_TopicSession(t *testing.T) {
	ext := signals.NewExtractor(nil)
	sessions := []session.Session{
		conversation(1, "How was work?", "The meeting ran late, boss was fine"),
	}

	got := Synthesize(sessions, ext, DefaultCap)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	rec := got[0]
	if !strings.Contains(rec.Content, "Feb 1, 2026") || !strings.Contains(rec.Content, "Work") {
		t.Errorf("content = %q", rec.Content)
	}
	if !reflect.DeepEqual(rec.Keywords, []string{"boss", "meeting", "work"}) {
		t.Errorf("keywords = %v", rec.Keywords)
	}
	if rec.SessionIndex != 1 {
		t.Errorf("session index = %d", rec.SessionIndex)
	}
}

func TestSynthesize_StrongSentimentWithoutTopics(t *testing.T) {
	ext := signals.NewExtractor(nil)
	sessions := []session.Session{
		conversation(2, "amazing wonderful perfect", "yay awesome fantastic"),
	}

	got := Synthesize(sessions, ext, DefaultCap)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Sentiment != 0.6 {
		t.Errorf("sentiment = %v", got[0].Sentiment)
	}
	if !strings.Contains(got[0].Content, "very positive conversation") {
		t.Errorf("content = %q", got[0].Content)
	}
	if len(got[0].Keywords) != 6 {
		t.Errorf("keywords should be capped at 6, got %v", got[0].Keywords)
	}
}

func TestSynthesize_ZeroQualifying(t *testing.T) {
	ext := signals.NewExtractor(nil)
	sessions := []session.Session{
		conversation(1, "ok", "sure"),
		conversation(2, "good"),
		conversation(3, "hmm", "yes", "right"),
	}
	if got := Synthesize(sessions, ext, DefaultCap); len(got) != 0 {
		t.Errorf("expected no records, got %v", got)
	}
}

func TestSynthesize_SingleMessageSessionsSkipped(t *testing.T) {
	ext := signals.NewExtractor(nil)
	sessions := []session.Session{conversation(1, "work work work, I hate the deadline")}
	if got := Synthesize(sessions, ext, DefaultCap); len(got) != 0 {
		t.Errorf("expected sessions under 2 messages to be skipped, got %v", got)
	}
}

func TestSynthesize_Cap(t *testing.T) {
	ext := signals.NewExtractor(nil)
	var sessions []session.Session
	for day := 1; day <= 9; day++ {
		sessions = append(sessions, conversation(day, "flight booked", "trip tomorrow"))
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultCap},
		{-1, DefaultCap},
		{3, 3},
		{20, 9},
	}
	for _, tt := range tests {
		got := Synthesize(sessions, ext, tt.limit)
		if len(got) != tt.want {
			t.Errorf("limit %d: got %d records, want %d", tt.limit, len(got), tt.want)
		}
		for i, rec := range got {
			if rec.SessionIndex != i+1 {
				t.Errorf("limit %d: record %d from session %d, expected chronological scan", tt.limit, i, rec.SessionIndex)
			}
		}
	}
}

func TestSynthesize_TwoDominantTopics(t *testing.T) {
	ext := signals.NewExtractor(nil)
	sessions := []session.Session{
		conversation(4, "exam tomorrow", "study for the exam", "homework first then gym"),
	}
	got := Synthesize(sessions, ext, DefaultCap)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	// Health and Plans tie on one hit each; table order puts Health first.
	if !strings.Contains(got[0].Content, "about Education and Health (3 messages)") {
		t.Errorf("content = %q", got[0].Content)
	}
}

func TestSynthesize_ThresholdUsesUnroundedMean(t *testing.T) {
	ext := signals.NewExtractor(nil)

	above := make([]string, 0, 41)
	for i := 0; i < 40; i++ {
		above = append(above, "great awesome")
	}
	above = append(above, "great awesome amazing")

	below := make([]string, 0, 41)
	for i := 0; i < 40; i++ {
		below = append(below, "great awesome")
	}
	below = append(below, "great")

	tests := []struct {
		name    string
		texts   []string
		records int
	}{
		{"mean just above threshold", above, 1},
		{"mean just below threshold", below, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Synthesize([]session.Session{conversation(4, tt.texts...)}, ext, DefaultCap)
			if len(got) != tt.records {
				t.Fatalf("expected %d records, got %d", tt.records, len(got))
			}
			if tt.records == 1 && got[0].Sentiment != 0.4 {
				t.Errorf("stored sentiment should be rounded, got %v", got[0].Sentiment)
			}
		})
	}
}
