package signals

import (
	"math"
	"sort"
	"strings"
)

// TopicShare is one entry of a percentage distribution.
type TopicShare struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

// Weighted is an unnormalized share, typically read from external output.
type Weighted struct {
	Name   string
	Weight float64
}

// DefaultTopics is the distribution used when nothing was hit.
func DefaultTopics() []TopicShare {
	return []TopicShare{
		{Name: "Daily Life", Percentage: 60},
		{Name: "General Chat", Percentage: 40},
	}
}

// NormalizeTopics turns raw hit counts into percentages that sum to exactly
// 100. Input order is the tie-break order.
func NormalizeTopics(counts []TopicCount) []TopicShare {
	ws := make([]Weighted, len(counts))
	for i, c := range counts {
		ws[i] = Weighted{Name: c.Name, Weight: float64(c.Count)}
	}
	return distribute(ws)
}

// NormalizeShares re-normalizes an externally supplied distribution. Entries
// with the same name (case-insensitive) are merged.
func NormalizeShares(shares []Weighted) []TopicShare {
	var merged []Weighted
	index := make(map[string]int)
	for _, s := range shares {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if i, ok := index[key]; ok {
			merged[i].Weight += s.Weight
			continue
		}
		index[key] = len(merged)
		merged = append(merged, Weighted{Name: strings.TrimSpace(s.Name), Weight: s.Weight})
	}
	return distribute(merged)
}

func distribute(ws []Weighted) []TopicShare {
	total := 0.0
	for _, w := range ws {
		if w.Weight > 0 && !math.IsInf(w.Weight, 0) {
			total += w.Weight
		}
	}
	if total <= 0 {
		return DefaultTopics()
	}

	shares := make([]TopicShare, len(ws))
	sum := 0
	for i, w := range ws {
		pct := 0
		if w.Weight > 0 && !math.IsInf(w.Weight, 0) {
			pct = int(math.Round(w.Weight / total * 100))
		}
		shares[i] = TopicShare{Name: w.Name, Percentage: pct}
		sum += pct
	}

	// Rounding drift goes to the largest entry. When a negative residual is
	// bigger than that entry the remainder moves down to the next largest.
	residual := 100 - sum
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shares[order[a]].Percentage > shares[order[b]].Percentage
	})
	for _, i := range order {
		if residual == 0 {
			break
		}
		next := shares[i].Percentage + residual
		if next < 0 {
			residual = next
			next = 0
		} else {
			residual = 0
		}
		shares[i].Percentage = next
	}

	out := shares[:0]
	for _, s := range shares {
		if s.Percentage > 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Percentage > out[b].Percentage
	})
	return out
}
