package match

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Resolve enforces one-to-one candidate ownership. Among non-manual
// decisions claiming the same candidate, the highest confidence survives
// (ties go to the lowest source ID) and the rest are demoted to no match
// with a note naming what they lost. It returns the resolved decisions in
// input order and the number demoted.
func Resolve(decisions []MatchDecision, log zerolog.Logger) ([]MatchDecision, int) {
	out := make([]MatchDecision, len(decisions))
	copy(out, decisions)

	groups := make(map[string][]int)
	for i, d := range out {
		if d.Matched() && d.Method != MethodManual {
			groups[d.CandidateID] = append(groups[d.CandidateID], i)
		}
	}

	candidates := make([]string, 0, len(groups))
	for id, g := range groups {
		if len(g) > 1 {
			candidates = append(candidates, id)
		}
	}
	sort.Strings(candidates)

	demoted := 0
	for _, candID := range candidates {
		g := groups[candID]
		sort.SliceStable(g, func(a, b int) bool {
			da, db := out[g[a]], out[g[b]]
			if da.Confidence != db.Confidence {
				return da.Confidence > db.Confidence
			}
			return da.SourceID < db.SourceID
		})
		winner := out[g[0]]
		for _, i := range g[1:] {
			lost := out[i]
			out[i] = noMatch(lost.SourceID, fmt.Sprintf("conflict: lost candidate %s (%s, confidence %d) to %s",
				candID, lost.Method, lost.Confidence, winner.SourceID))
			demoted++
			log.Warn().
				Str("candidate_id", candID).
				Str("source_id", lost.SourceID).
				Str("winner", winner.SourceID).
				Str("method", string(lost.Method)).
				Int("confidence", lost.Confidence).
				Msg("Demoted conflicting match")
		}
	}
	return out, demoted
}
