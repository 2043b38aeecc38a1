package chatlog

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Options controls a Parse call.
type Options struct {
	Normalizer *Normalizer
	// DropFallbacks discards messages whose timestamp could not be read
	// instead of keeping them stamped with the parse time.
	DropFallbacks bool
}

// Parse detects the export format, runs every parser registered for it over
// the same content and keeps the best candidate. An export nobody can read
// yields an empty Result, not an error.
func Parse(export RawExport, opts Options) *Result {
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}

	content := normalizeContent(export.Content)
	res := &Result{Format: Detect(content, export.FormatHint)}

	parsers := ParsersFor(res.Format)
	if len(parsers) == 0 {
		return res
	}

	lines := strings.Split(content, "\n")
	candidates := make([]Candidate, 0, len(parsers))
	for _, p := range parsers {
		c := p.Parse(lines, export.Contact, normalizer)
		candidates = append(candidates, c)
		res.Candidates = append(res.Candidates, CandidateSummary{ParserID: c.ParserID, Messages: len(c.Messages)})
	}

	best, ok := Select(candidates)
	if !ok || len(best.Messages) == 0 {
		return res
	}
	res.ParserID = best.ParserID
	res.Fallbacks = best.Fallbacks

	msgs := best.Messages
	if opts.DropFallbacks && best.Fallbacks > 0 {
		kept := make([]Message, 0, len(msgs)-best.Fallbacks)
		for _, m := range msgs {
			if m.TimestampFallback {
				res.Dropped++
				continue
			}
			kept = append(kept, m)
		}
		msgs = kept
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	res.Messages = msgs
	return res
}

// normalizeContent composes Unicode, strips a byte-order mark and unifies line endings.
func normalizeContent(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFC.String(s)
}
