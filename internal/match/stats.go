package match

// Stats summarizes a run.
type Stats struct {
	Total            int            `json:"total"`
	Matched          int            `json:"matched"`
	Unmatched        int            `json:"unmatched"`
	ReviewQueue      int            `json:"review_queue"`
	Skipped          int            `json:"skipped"`
	ConflictsDemoted int            `json:"conflicts_demoted"`
	OverridesApplied int            `json:"overrides_applied"`
	Warnings         int            `json:"warnings"`
	ByMethod         map[Method]int `json:"by_method"`
}

// Tally fills the per-method and match counts from terminal decisions.
func (s *Stats) Tally(decisions []MatchDecision, reviewQueue, skipped, warnings int) {
	s.Total = len(decisions)
	s.Matched, s.Unmatched = 0, 0
	s.ByMethod = make(map[Method]int, len(Methods))
	for _, m := range Methods {
		s.ByMethod[m] = 0
	}
	for _, d := range decisions {
		s.ByMethod[d.Method]++
		if d.Matched() {
			s.Matched++
		} else {
			s.Unmatched++
		}
	}
	s.ReviewQueue = reviewQueue
	s.Skipped = skipped
	s.Warnings = warnings
}

// MatchRate is the matched share of all sources, 0 when there are none.
func (s Stats) MatchRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Total)
}
