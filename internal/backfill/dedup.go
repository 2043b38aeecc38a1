package backfill

import (
	"sort"
	"time"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
)

// dedupWindow is the tolerance for matching timestamps across exports.
const dedupWindow = 1 * time.Second

// overlapThreshold is the fraction of timestamps that must match to consider files duplicates.
const overlapThreshold = 0.8

// fileFingerprint holds timing + content info for deduplication.
type fileFingerprint struct {
	Path       string
	Messages   int
	Timestamps []time.Time
	Previews   []string // first 3 message texts (trimmed)
}

// BuildFingerprint creates a fingerprint from parsed chat messages. Messages
// stamped with the parse time carry no information and are left out.
func BuildFingerprint(path string, msgs []chatlog.Message) fileFingerprint {
	fp := fileFingerprint{
		Path:     path,
		Messages: len(msgs),
	}

	for _, m := range msgs {
		if !m.TimestampFallback {
			fp.Timestamps = append(fp.Timestamps, m.Timestamp)
		}
	}

	// Keep first 3 message texts for preview.
	for i, m := range msgs {
		if i >= 3 {
			break
		}
		text := []rune(m.Text)
		if len(text) > 100 {
			text = text[:100]
		}
		fp.Previews = append(fp.Previews, string(text))
	}

	return fp
}

// FindDuplicates returns the paths of exports that are contained in a larger
// export of the same chat. The export with the most messages is kept; ties
// keep the lexically first path.
func FindDuplicates(fps []fileFingerprint) map[string]bool {
	ordered := make([]fileFingerprint, len(fps))
	copy(ordered, fps)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Messages != ordered[j].Messages {
			return ordered[i].Messages > ordered[j].Messages
		}
		return ordered[i].Path < ordered[j].Path
	})

	duplicates := make(map[string]bool)
	var kept []fileFingerprint

	for _, fp := range ordered {
		if len(fp.Timestamps) == 0 {
			kept = append(kept, fp)
			continue
		}
		dup := false
		for _, k := range kept {
			if isOverlapping(k, fp) {
				dup = true
				break
			}
		}
		if dup {
			duplicates[fp.Path] = true
			continue
		}
		kept = append(kept, fp)
	}

	return duplicates
}

// isOverlapping checks if >=80% of b's timestamps appear in a within the
// dedupWindow.
func isOverlapping(a, b fileFingerprint) bool {
	if len(b.Timestamps) == 0 {
		return false
	}

	matches := 0
	for _, bt := range b.Timestamps {
		for _, at := range a.Timestamps {
			diff := bt.Sub(at)
			if diff < 0 {
				diff = -diff
			}
			if diff <= dedupWindow {
				matches++
				break
			}
		}
	}

	return float64(matches)/float64(len(b.Timestamps)) >= overlapThreshold
}
