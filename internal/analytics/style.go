package analytics

import (
	"strings"

	"github.com/MikeSquared-Agency/rapport/internal/insight"
	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

// DescribeStyle summarizes how each party writes from message length, emoji
// use and questions.
func DescribeStyle(sum *signals.Summary) insight.Style {
	if sum == nil {
		return insight.Style{User: insight.NotEnoughData, Contact: insight.NotEnoughData}
	}
	return insight.Style{
		User:    describe(sum.UserMessages, sum.UserAverageLength, sum.UserEmoji, sum.UserQuestions),
		Contact: describe(sum.ContactMessages, sum.ContactAverageLength, sum.ContactEmoji, sum.ContactQuestions),
	}
}

func describe(messages int, avgLen float64, emoji, questions int) string {
	if messages == 0 {
		return insight.NotEnoughData
	}

	var length string
	switch {
	case avgLen < 20:
		length = "short, quick messages"
	case avgLen < 80:
		length = "medium-length messages"
	default:
		length = "long, detailed messages"
	}

	rate := float64(emoji) / float64(messages)
	var emojiUse string
	switch {
	case rate >= 0.5:
		emojiUse = "lots of emoji"
	case rate >= 0.1:
		emojiUse = "some emoji"
	default:
		emojiUse = "few emoji"
	}

	var sb strings.Builder
	sb.WriteString("Sends ")
	sb.WriteString(length)
	sb.WriteString(" with ")
	sb.WriteString(emojiUse)
	if questions*4 >= messages {
		sb.WriteString(" and asks many questions")
	}
	sb.WriteString(".")
	return sb.String()
}
