package memory

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/rapport/internal/session"
	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

// DefaultCap is the maximum number of records per run.
const DefaultCap = 5

const (
	sentimentThreshold = 0.4
	maxKeywords        = 6
	maxTopics          = 2
)

// Record is a compact summary of one high-signal session.
type Record struct {
	Content      string    `json:"content"`
	Sentiment    float64   `json:"sentiment"`
	Keywords     []string  `json:"keywords"`
	SessionIndex int       `json:"sessionIndex"`
	SessionStart time.Time `json:"sessionStart"`
}

// Synthesize scans sessions in order and emits a record for each one with
// strong sentiment or at least one topic hit, stopping at limit records.
// A non-positive limit uses DefaultCap.
func Synthesize(sessions []session.Session, ext *signals.Extractor, limit int) []Record {
	if limit <= 0 {
		limit = DefaultCap
	}

	var out []Record
	for _, s := range sessions {
		if len(out) >= limit {
			break
		}
		if s.Len() < 2 {
			continue
		}
		if rec, ok := summarize(s, ext); ok {
			out = append(out, rec)
		}
	}
	return out
}

func summarize(s session.Session, ext *signals.Extractor) (Record, bool) {
	hits := make(map[string]int)
	words := make(map[string]bool)
	sum := 0.0

	for _, m := range s.Messages {
		sig := ext.Message(m.Text)
		sum += sig.Sentiment
		for _, t := range sig.Topics {
			hits[t]++
		}
		for _, k := range sig.Keywords {
			words[k] = true
		}
	}
	mean := sum / float64(s.Len())
	if math.Abs(mean) <= sentimentThreshold && len(hits) == 0 {
		return Record{}, false
	}

	sentiment := math.Round(mean*100) / 100
	topics := dominant(hits, ext.TopicNames())
	label := signals.SentimentLabel(sentiment)

	var content string
	date := s.Start.Format("Jan 2, 2006")
	if len(topics) > 0 {
		content = fmt.Sprintf("%s: a %s conversation about %s (%d messages)",
			date, label, strings.Join(topics, " and "), s.Len())
	} else {
		content = fmt.Sprintf("%s: a %s conversation (%d messages)", date, label, s.Len())
	}

	return Record{
		Content:      content,
		Sentiment:    sentiment,
		Keywords:     keywords(topics, words),
		SessionIndex: s.Index,
		SessionStart: s.Start,
	}, true
}

// dominant returns up to two topics by hit count, ties in table order.
func dominant(hits map[string]int, order []string) []string {
	var names []string
	for _, n := range order {
		if hits[n] > 0 {
			names = append(names, n)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return hits[names[i]] > hits[names[j]]
	})
	if len(names) > maxTopics {
		names = names[:maxTopics]
	}
	return names
}

// keywords is the dominant topics plus matched lexicon words, capped and sorted.
func keywords(topics []string, words map[string]bool) []string {
	set := make(map[string]bool)
	var out []string
	add := func(k string) {
		if len(out) < maxKeywords && !set[k] {
			set[k] = true
			out = append(out, k)
		}
	}
	for _, t := range topics {
		add(strings.ToLower(t))
	}

	rest := make([]string, 0, len(words))
	for w := range words {
		rest = append(rest, w)
	}
	sort.Strings(rest)
	for _, w := range rest {
		add(w)
	}

	sort.Strings(out)
	return out
}
