package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/MikeSquared-Agency/rapport/internal/session"
	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

// Component ceilings of the connection score. They sum to 100.
const (
	volumeWeight         = 25.0
	consistencyWeight    = 20.0
	balanceWeight        = 20.0
	responsivenessWeight = 15.0
	sentimentWeight      = 20.0
)

const (
	// Days of silence before the score starts decaying.
	decayGraceDays = 30
	decayRate      = 0.01
)

var messageMilestones = []int{100, 500, 1000, 5000, 10000, 50000}

// SentimentModifier scales the connection score by the overall mood.
func SentimentModifier(label string) float64 {
	switch label {
	case signals.VeryNegative:
		return 0.7
	case signals.Negative:
		return 0.85
	default:
		return 1.0
	}
}

// ResponsivenessPoints awards the responsiveness component for an average
// reply time. No samples scores a neutral third.
func ResponsivenessPoints(rt signals.ResponseTime) float64 {
	if rt.Samples == 0 {
		return responsivenessWeight / 3
	}
	switch m := rt.AverageMinutes; {
	case m <= 5:
		return responsivenessWeight
	case m <= 30:
		return responsivenessWeight * 0.8
	case m <= 120:
		return responsivenessWeight * 0.55
	case m <= 720:
		return responsivenessWeight * 0.3
	default:
		return 1
	}
}

// ConnectionScore rates a relationship from 1 to 100.
//
// Formula: sum of volume, consistency, balance, responsiveness and sentiment
// components, times the sentiment modifier, decayed daily after a grace period
// of silence measured from lastMessage to now.
func ConnectionScore(sum *signals.Summary, lastMessage, now time.Time) int {
	if sum == nil || sum.Messages == 0 {
		return 1
	}

	score := volumeWeight * math.Min(float64(sum.Messages)/500, 1)
	score += consistencyWeight * math.Min(float64(sum.ActiveDays)/30, 1)
	score += balanceWeight * (1 - math.Min(math.Abs(sum.BalanceRatio-100)/100, 1))
	score += ResponsivenessPoints(sum.ResponseTime)
	score += sentimentWeight * (sum.Sentiment + 1) / 2

	score *= SentimentModifier(sum.SentimentLabel)

	if days := int(now.Sub(lastMessage).Hours() / 24); days > decayGraceDays {
		score = DecayScore(score, decayRate, days-decayGraceDays)
	}
	return clampInt(int(math.Round(score)), 1, 100)
}

// DecayScore applies daily decay for stale relationships.
func DecayScore(score, rate float64, days int) float64 {
	for i := 0; i < days; i++ {
		score *= 1.0 - rate
	}
	return score
}

// RelationshipLevel maps a connection score onto 1-10.
func RelationshipLevel(score int) int {
	return clampInt(1+(score-1)/11, 1, 10)
}

// Badges returns the achievements earned, in a fixed order.
func Badges(sum *signals.Summary, sessions []session.Session) []string {
	badges := []string{}
	if sum == nil || sum.Messages == 0 {
		return badges
	}
	n := sum.Messages

	if n >= 1000 {
		badges = append(badges, "Chatterbox")
	} else if n >= 100 {
		badges = append(badges, "Century Club")
	}
	if sum.ActiveDays >= 7 {
		badges = append(badges, "Regulars")
	}
	if sum.LateNight >= 5 && sum.LateNight*10 >= n {
		badges = append(badges, "Night Owls")
	}
	if sum.ResponseTime.Samples >= 5 && sum.ResponseTime.AverageMinutes <= 10 {
		badges = append(badges, "Quick Responders")
	}
	if n >= 20 && sum.Balance == signals.Balanced {
		badges = append(badges, "Perfect Balance")
	}
	if bilingual(sum) {
		badges = append(badges, "Bilingual")
	}
	if n >= 10 && sum.QuestionCount*5 >= n {
		badges = append(badges, "Curious Minds")
	}
	if sum.EmojiCount >= 10 && sum.EmojiCount*2 >= n {
		badges = append(badges, "Emoji Enthusiasts")
	}
	if sum.Sentiment >= 0.3 {
		badges = append(badges, "Good Vibes")
	}
	for _, s := range sessions {
		if s.Len() >= 50 {
			badges = append(badges, "Marathon Talkers")
			break
		}
	}
	return badges
}

func bilingual(sum *signals.Summary) bool {
	scripts := 0
	for _, ratio := range sum.LanguageMix {
		if ratio >= 0.1 {
			scripts++
		}
	}
	cues := 0
	for _, n := range sum.LocaleCues {
		cues += n
	}
	return scripts >= 2 || cues >= 3
}

// NextMilestone names the next message-count goal.
func NextMilestone(messages int) string {
	for _, m := range messageMilestones {
		if messages < m {
			return fmt.Sprintf("Exchange %d messages (%d to go)", m, m-messages)
		}
	}
	return "Keep the conversation going"
}

// mergeBadges keeps deterministic badges first and appends new ones.
func mergeBadges(own, extra []string) []string {
	seen := make(map[string]bool, len(own))
	out := make([]string, 0, len(own)+len(extra))
	for _, list := range [][]string{own, extra} {
		for _, b := range list {
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
