package chatlog

// Select returns the candidate with the strictly greatest message count.
// Ties keep the earliest candidate, so the result only depends on
// registration order. It reports false when there are no candidates.
//
// A too-strict header pattern quietly matches few lines instead of failing,
// so the candidate extracting the most messages is taken as the right variant.
func Select(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if len(candidates[i].Messages) > len(candidates[best].Messages) {
			best = i
		}
	}
	return candidates[best], true
}
