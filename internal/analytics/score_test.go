package analytics

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
	"github.com/MikeSquared-Agency/rapport/internal/insight"
	"github.com/MikeSquared-Agency/rapport/internal/session"
	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

func strongSummary() *signals.Summary {
	return &signals.Summary{
		Messages:       500,
		ActiveDays:     30,
		BalanceRatio:   100,
		Balance:        signals.Balanced,
		ResponseTime:   signals.ResponseTime{Samples: 10, AverageMinutes: 3},
		Sentiment:      1,
		SentimentLabel: signals.VeryPositive,
	}
}

func TestConnectionScore(t *testing.T) {
	last := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	if got := ConnectionScore(strongSummary(), last, last); got != 100 {
		t.Errorf("perfect relationship = %d, want 100", got)
	}
	if got := ConnectionScore(strongSummary(), last, last.Add(30*24*time.Hour)); got != 100 {
		t.Errorf("within grace period = %d, want 100", got)
	}
	if got := ConnectionScore(strongSummary(), last, last.Add(40*24*time.Hour)); got != 90 {
		t.Errorf("ten days of decay = %d, want 90", got)
	}

	sad := strongSummary()
	sad.Sentiment = -1
	sad.SentimentLabel = signals.VeryNegative
	if got := ConnectionScore(sad, last, last); got != 56 {
		t.Errorf("very negative = %d, want 56", got)
	}

	if got := ConnectionScore(nil, last, last); got != 1 {
		t.Errorf("nil summary = %d, want 1", got)
	}
	if got := ConnectionScore(strongSummary(), last, last.Add(5000*24*time.Hour)); got != 1 {
		t.Errorf("long silence should clamp to 1, got %d", got)
	}
}

func TestSentimentModifier(t *testing.T) {
	tests := []struct {
		label string
		want  float64
	}{
		{signals.VeryPositive, 1.0},
		{signals.Neutral, 1.0},
		{signals.Negative, 0.85},
		{signals.VeryNegative, 0.7},
		{"", 1.0},
	}
	for _, tt := range tests {
		if got := SentimentModifier(tt.label); got != tt.want {
			t.Errorf("SentimentModifier(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestResponsivenessPoints(t *testing.T) {
	tests := []struct {
		rt   signals.ResponseTime
		want float64
	}{
		{signals.ResponseTime{}, 5},
		{signals.ResponseTime{Samples: 1, AverageMinutes: 2}, 15},
		{signals.ResponseTime{Samples: 1, AverageMinutes: 30}, 12},
		{signals.ResponseTime{Samples: 1, AverageMinutes: 90}, 8.25},
		{signals.ResponseTime{Samples: 1, AverageMinutes: 600}, 4.5},
		{signals.ResponseTime{Samples: 1, AverageMinutes: 1000}, 1},
	}
	for _, tt := range tests {
		if got := ResponsivenessPoints(tt.rt); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("ResponsivenessPoints(%+v) = %v, want %v", tt.rt, got, tt.want)
		}
	}
}

func TestDecayScore(t *testing.T) {
	if got := DecayScore(100, 0.01, 0); got != 100 {
		t.Errorf("no decay = %v", got)
	}
	if got := DecayScore(100, 0.01, 2); math.Abs(got-98.01) > 0.001 {
		t.Errorf("two days = %v, want 98.01", got)
	}
}

func TestRelationshipLevel(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{0, 1},
		{1, 1},
		{11, 1},
		{12, 2},
		{50, 5},
		{99, 9},
		{100, 10},
	}
	for _, tt := range tests {
		if got := RelationshipLevel(tt.score); got != tt.want {
			t.Errorf("RelationshipLevel(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestNextMilestone(t *testing.T) {
	tests := []struct {
		messages int
		want     string
	}{
		{0, "Exchange 100 messages (100 to go)"},
		{100, "Exchange 500 messages (400 to go)"},
		{9999, "Exchange 10000 messages (1 to go)"},
		{60000, "Keep the conversation going"},
	}
	for _, tt := range tests {
		if got := NextMilestone(tt.messages); got != tt.want {
			t.Errorf("NextMilestone(%d) = %q, want %q", tt.messages, got, tt.want)
		}
	}
}

func TestBadges(t *testing.T) {
	sum := &signals.Summary{
		Messages:      120,
		ActiveDays:    8,
		LateNight:     20,
		ResponseTime:  signals.ResponseTime{Samples: 6, AverageMinutes: 4},
		Balance:       signals.Balanced,
		LanguageMix:   map[string]float64{"latin": 0.8, "devanagari": 0.2},
		QuestionCount: 30,
		EmojiCount:    70,
		Sentiment:     0.35,
	}
	sessions := []session.Session{{Messages: make([]chatlog.Message, 60)}}

	want := []string{
		"Century Club", "Regulars", "Night Owls", "Quick Responders", "Perfect Balance",
		"Bilingual", "Curious Minds", "Emoji Enthusiasts", "Good Vibes", "Marathon Talkers",
	}
	if got := Badges(sum, sessions); !reflect.DeepEqual(got, want) {
		t.Errorf("Badges = %v\nwant %v", got, want)
	}

	if got := Badges(&signals.Summary{Messages: 3}, nil); len(got) != 0 || got == nil {
		t.Errorf("expected empty non-nil badges, got %#v", got)
	}
	if got := Badges(&signals.Summary{Messages: 1500, LocaleCues: map[string]int{"Hinglish greetings": 3}}, nil); !reflect.DeepEqual(got, []string{"Chatterbox", "Bilingual"}) {
		t.Errorf("Badges = %v", got)
	}
}

func TestMergeBadges(t *testing.T) {
	got := mergeBadges([]string{"Regulars", "Good Vibes"}, []string{"Good Vibes", "Soulmates"})
	want := []string{"Regulars", "Good Vibes", "Soulmates"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mergeBadges = %v, want %v", got, want)
	}
}

func TestDescribeStyle(t *testing.T) {
	sum := &signals.Summary{
		UserMessages:         4,
		UserAverageLength:    10,
		UserEmoji:            3,
		UserQuestions:        1,
		ContactMessages:      0,
		ContactAverageLength: 0,
	}
	got := DescribeStyle(sum)
	if got.User != "Sends short, quick messages with lots of emoji and asks many questions." {
		t.Errorf("user style = %q", got.User)
	}
	if got.Contact != insight.NotEnoughData {
		t.Errorf("contact style = %q", got.Contact)
	}

	sum = &signals.Summary{ContactMessages: 10, ContactAverageLength: 120}
	if got := DescribeStyle(sum).Contact; got != "Sends long, detailed messages with few emoji." {
		t.Errorf("contact style = %q", got)
	}
}
