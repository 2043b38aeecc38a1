package insight

import "github.com/MikeSquared-Agency/rapport/internal/signals"

// Sources of an Insight.
const (
	SourceService  = "service"
	SourceFallback = "fallback"
)

// NotEnoughData fills text fields that have no content.
const NotEnoughData = "Not enough data"

// Style describes how each party writes.
type Style struct {
	User    string `json:"user"`
	Contact string `json:"contact"`
}

// Insight is the qualitative analysis of a relationship. Every field is
// always populated once it has passed through Validate.
type Insight struct {
	KeyInsights        []string             `json:"keyInsights"`
	EmotionalDynamics  string               `json:"emotionalDynamics"`
	AreasForGrowth     []string             `json:"areasForGrowth"`
	TopTopics          []signals.TopicShare `json:"topTopics"`
	OverallTone        string               `json:"overallTone"`
	CommunicationStyle Style                `json:"communicationStyle"`
	LoveLanguage       string               `json:"loveLanguage"`
	ConnectionScore    int                  `json:"connectionScore"`
	RelationshipLevel  int                  `json:"relationshipLevel"`
	ChallengesBadges   []string             `json:"challengesBadges"`
	NextMilestone      string               `json:"nextMilestone"`
	Source             string               `json:"source"`
}
