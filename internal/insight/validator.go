package insight

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

// Defaults for missing numeric fields.
const (
	DefaultConnectionScore   = 50
	DefaultRelationshipLevel = 5
)

// Validate turns a loosely typed object into a complete Insight. It never
// fails: missing or malformed fields get defaults. Keys are accepted in
// camelCase or snake_case.
func Validate(raw map[string]any) Insight {
	return Insight{
		KeyInsights:        stringList(lookup(raw, "keyInsights")),
		EmotionalDynamics:  stringValue(lookup(raw, "emotionalDynamics"), NotEnoughData),
		AreasForGrowth:     stringList(lookup(raw, "areasForGrowth")),
		TopTopics:          topics(lookup(raw, "topTopics")),
		OverallTone:        strings.ToLower(stringValue(lookup(raw, "overallTone"), "neutral")),
		CommunicationStyle: style(lookup(raw, "communicationStyle")),
		LoveLanguage:       stringValue(lookup(raw, "loveLanguage"), NotEnoughData),
		ConnectionScore:    intValue(lookup(raw, "connectionScore"), DefaultConnectionScore, 1, 100),
		RelationshipLevel:  intValue(lookup(raw, "relationshipLevel"), DefaultRelationshipLevel, 1, 10),
		ChallengesBadges:   stringList(lookup(raw, "challengesBadges")),
		NextMilestone:      stringValue(lookup(raw, "nextMilestone"), NotEnoughData),
	}
}

// ParseResponse extracts the outermost JSON object from free text and
// validates it. Text without one yields the defaults.
func ParseResponse(text string) Insight {
	obj, _ := extractObject(text)
	return Validate(obj)
}

// extractObject finds the first '{' through its matching '}' and decodes it.
// Code fences and prose around the object are ignored.
func extractObject(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, false
	}

	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	if err := dec.Decode(&obj); err == nil {
		return obj, true
	}

	end := strings.LastIndex(text, "}")
	if end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func lookup(raw map[string]any, key string) any {
	if raw == nil {
		return nil
	}
	if v, ok := raw[key]; ok {
		return v
	}
	return raw[snakeCase(key)]
}

func snakeCase(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('_')
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func stringValue(v any, def string) string {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return s
		}
	case float64, bool:
		return fmt.Sprint(x)
	case []any:
		if list := stringList(x); len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	return def
}

// stringList accepts a list or a single string. Non-text entries are dropped.
func stringList(v any) []string {
	out := []string{}
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range x {
			switch it := item.(type) {
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, s)
				}
			case float64, bool:
				out = append(out, fmt.Sprint(it))
			}
		}
	}
	return out
}

// number reads floats, numeric strings and percentages like "25%".
func number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "%"))
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func intValue(v any, def, lo, hi int) int {
	f, ok := number(v)
	if !ok {
		return def
	}
	n := int(math.Round(f))
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// topics accepts a list of {name, percentage} objects, a list of names or a
// name-to-share object, and always returns a distribution summing to 100.
func topics(v any) []signals.TopicShare {
	var ws []signals.Weighted
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			switch it := item.(type) {
			case map[string]any:
				name := stringValue(it["name"], "")
				if name == "" {
					name = stringValue(it["topic"], "Other")
				}
				pct, _ := number(it["percentage"])
				ws = append(ws, signals.Weighted{Name: name, Weight: pct})
			case string:
				if s := strings.TrimSpace(it); s != "" {
					ws = append(ws, signals.Weighted{Name: s})
				}
			}
		}
	case map[string]any:
		for name, share := range x {
			pct, _ := number(share)
			ws = append(ws, signals.Weighted{Name: name, Weight: pct})
		}
		sortWeighted(ws)
	}

	// Names without any usable share split the distribution evenly.
	positive := false
	for _, w := range ws {
		if w.Weight > 0 {
			positive = true
			break
		}
	}
	if !positive {
		for i := range ws {
			ws[i].Weight = 1
		}
	}
	return signals.NormalizeShares(ws)
}

// sortWeighted orders map-sourced entries by share then name so the result
// does not depend on map iteration.
func sortWeighted(ws []signals.Weighted) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].Weight != ws[j].Weight {
			return ws[i].Weight > ws[j].Weight
		}
		return ws[i].Name < ws[j].Name
	})
}

func style(v any) Style {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return Style{User: s, Contact: s}
		}
	case map[string]any:
		return Style{
			User:    stringValue(x["user"], NotEnoughData),
			Contact: stringValue(x["contact"], NotEnoughData),
		}
	}
	return Style{User: NotEnoughData, Contact: NotEnoughData}
}
