package session

import (
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
)

func makeMessages(n int, gap time.Duration) []chatlog.Message {
	base := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	msgs := make([]chatlog.Message, n)
	for i := 0; i < n; i++ {
		msgs[i] = chatlog.Message{
			Text:          "message",
			Sender:        "Alice",
			IsFromContact: i%2 == 0,
			Timestamp:     base.Add(time.Duration(i) * gap),
		}
	}
	return msgs
}

func TestSegment_Empty(t *testing.T) {
	if got := Segment(nil, DefaultGap); len(got) != 0 {
		t.Errorf("expected no sessions, got %d", len(got))
	}
}

func TestSegment_SingleSession(t *testing.T) {
	msgs := makeMessages(5, time.Minute)
	sessions := Segment(msgs, DefaultGap)

	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Len() != 5 {
		t.Errorf("expected 5 messages, got %d", sessions[0].Len())
	}
	if sessions[0].Duration() != 4*time.Minute {
		t.Errorf("duration = %v", sessions[0].Duration())
	}
}

func TestSegment_SplitsOnFourHourGap(t *testing.T) {
	msgs := makeMessages(10, 5*time.Minute)
	// Push messages 6..9 four hours later.
	for i := 6; i < 10; i++ {
		msgs[i].Timestamp = msgs[i].Timestamp.Add(4 * time.Hour)
	}

	sessions := Segment(msgs, DefaultGap)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Len() != 6 || sessions[1].Len() != 4 {
		t.Errorf("session sizes = %d, %d; want 6, 4", sessions[0].Len(), sessions[1].Len())
	}
	if !sessions[1].Start.Equal(msgs[6].Timestamp) {
		t.Errorf("second session starts at %v, want %v", sessions[1].Start, msgs[6].Timestamp)
	}
	if sessions[1].Index != 1 {
		t.Errorf("index = %d", sessions[1].Index)
	}
}

func TestSegment_GapEqualToThresholdDoesNotSplit(t *testing.T) {
	msgs := makeMessages(2, DefaultGap)
	if got := len(Segment(msgs, DefaultGap)); got != 1 {
		t.Errorf("expected 1 session for a gap equal to the threshold, got %d", got)
	}
}

func TestSegment_CustomAndDefaultGap(t *testing.T) {
	msgs := makeMessages(3, 20*time.Minute)
	if got := len(Segment(msgs, 10*time.Minute)); got != 3 {
		t.Errorf("expected 3 sessions with 10m gap, got %d", got)
	}
	if got := len(Segment(msgs, 0)); got != 1 {
		t.Errorf("expected default gap for zero, got %d sessions", got)
	}
}

func TestSegment_Partition(t *testing.T) {
	base := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	offsets := []time.Duration{0, time.Minute, 5 * time.Hour, 5*time.Hour + time.Minute, 30 * time.Hour, 31 * time.Hour, 31*time.Hour + 2*time.Hour}
	var msgs []chatlog.Message
	for i, off := range offsets {
		msgs = append(msgs, chatlog.Message{Text: string(rune('a' + i)), Timestamp: base.Add(off)})
	}

	sessions := Segment(msgs, DefaultGap)

	var joined []chatlog.Message
	for i, s := range sessions {
		joined = append(joined, s.Messages...)
		if i > 0 {
			prev := sessions[i-1]
			if s.Start.Sub(prev.End) <= DefaultGap {
				t.Errorf("sessions %d and %d are split by a gap within the threshold", i-1, i)
			}
		}
		for j := 1; j < len(s.Messages); j++ {
			if s.Messages[j].Timestamp.Sub(s.Messages[j-1].Timestamp) > DefaultGap {
				t.Errorf("session %d contains a gap above the threshold", i)
			}
		}
	}
	if len(joined) != len(msgs) {
		t.Fatalf("partition lost messages: %d vs %d", len(joined), len(msgs))
	}
	for i := range msgs {
		if joined[i].Text != msgs[i].Text {
			t.Errorf("message %d out of place", i)
		}
	}
}

func TestFormatTranscript(t *testing.T) {
	msgs := []chatlog.Message{
		{Text: "Hi", IsFromContact: true, Timestamp: time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)},
		{Text: "Hello\nthere", Timestamp: time.Date(2026, 2, 11, 10, 1, 0, 0, time.UTC)},
	}
	out := FormatTranscript(Segment(msgs, DefaultGap), "Me", "Alice")

	if !strings.Contains(out, "Alice: Hi") {
		t.Errorf("expected contact line, got:\n%s", out)
	}
	if !strings.Contains(out, "Me: Hello / there") {
		t.Errorf("expected flattened self line, got:\n%s", out)
	}
	if !strings.HasPrefix(out, "[2026-02-11 10:00]") {
		t.Errorf("expected session header, got:\n%s", out)
	}
}

func TestTail_KeepsNewestSessions(t *testing.T) {
	msgs := makeMessages(4, 4*time.Hour)
	msgs[3].Text = "newest"
	sessions := Segment(msgs, DefaultGap)

	out := Tail(sessions, "Me", "Alice", 60)
	if !strings.Contains(out, "newest") {
		t.Errorf("expected newest session, got:\n%s", out)
	}
	if len(out) > 60 {
		t.Errorf("tail exceeds limit: %d", len(out))
	}
	if full := Tail(sessions, "Me", "Alice", 0); full != FormatTranscript(sessions, "Me", "Alice") {
		t.Error("non-positive limit should return the full transcript")
	}
}
