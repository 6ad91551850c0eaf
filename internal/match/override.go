package match

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// OverrideResult is the outcome of applying reviewer decisions.
type OverrideResult struct {
	Decisions []MatchDecision
	// Skipped holds source IDs excluded from the review queue.
	Skipped  map[string]bool
	Warnings []Warning
	Applied  int
	// Displaced counts automatic matches demoted because a manual
	// override claimed their candidate.
	Displaced int
}

// ApplyOverrides layers overrides on top of resolved decisions. When
// several overrides name the same source the last one wins. knownCandidate,
// when non-nil, flags match overrides naming a missing candidate; those
// are still applied.
// Anomalies become warnings; processing never stops.
func ApplyOverrides(decisions []MatchDecision, overrides []ManualOverride,
	knownCandidate func(id string) bool, log zerolog.Logger) OverrideResult {
	res := OverrideResult{
		Decisions: make([]MatchDecision, len(decisions)),
		Skipped:   make(map[string]bool),
	}
	copy(res.Decisions, decisions)

	pos := make(map[string]int, len(decisions))
	for i, d := range res.Decisions {
		pos[d.SourceID] = i
	}

	latest := make(map[string]ManualOverride)
	var order []string
	for _, o := range overrides {
		if _, seen := latest[o.SourceID]; !seen {
			order = append(order, o.SourceID)
		}
		latest[o.SourceID] = o
	}

	warn := func(kind WarningKind, o ManualOverride, format string, args ...any) {
		w := Warning{Kind: kind, SourceID: o.SourceID, CandidateID: o.CandidateID, Message: fmt.Sprintf(format, args...)}
		res.Warnings = append(res.Warnings, w)
		log.Warn().Str("kind", string(kind)).Str("source_id", o.SourceID).Str("candidate_id", o.CandidateID).Msg(w.Message)
	}

	for _, sourceID := range order {
		o := latest[sourceID]
		i, ok := pos[o.SourceID]
		switch {
		case o.SourceID == "":
			warn(WarnMalformedOverride, o, "override without source id")
			continue
		case !o.Decision.Valid():
			warn(WarnMalformedOverride, o, "override for %s has unknown decision %q", o.SourceID, o.Decision)
			continue
		case !ok:
			warn(WarnUnknownOverrideReference, o, "override references unknown source %s", o.SourceID)
			continue
		}

		prev := res.Decisions[i]
		switch o.Decision {
		case OverrideMatch:
			if o.CandidateID == "" {
				warn(WarnMalformedOverride, o, "match override for %s has no candidate", o.SourceID)
				continue
			}
			// A reviewer match is authoritative even when the candidate is
			// not in this run's candidate set; the anomaly is only reported.
			if knownCandidate != nil && !knownCandidate(o.CandidateID) {
				warn(WarnUnknownOverrideReference, o, "override for %s references unknown candidate %s, applied as given", o.SourceID, o.CandidateID)
			}
			res.Decisions[i] = MatchDecision{
				SourceID:    o.SourceID,
				CandidateID: o.CandidateID,
				Confidence:  100,
				Method:      MethodManual,
				Notes:       overrideNotes(o, "manual override", prev),
			}
		case OverrideReject:
			res.Decisions[i] = noMatch(o.SourceID, overrideNotes(o, "rejected by reviewer", prev))
		case OverrideSkip:
			res.Skipped[o.SourceID] = true
		}
		res.Applied++
	}

	res.Displaced = displaceClaimed(res.Decisions, log)
	return res
}

func overrideNotes(o ManualOverride, fallback string, prev MatchDecision) string {
	notes := o.Notes
	if notes == "" {
		notes = fallback
	}
	if prev.Matched() {
		notes += fmt.Sprintf(" (was %s %d -> %s)", prev.Method, prev.Confidence, prev.CandidateID)
	}
	return notes
}

// displaceClaimed demotes automatic matches whose candidate a manual
// override now owns and logs candidates claimed by several overrides.
func displaceClaimed(decisions []MatchDecision, log zerolog.Logger) int {
	claims := make(map[string][]string)
	for _, d := range decisions {
		if d.Method == MethodManual && d.Matched() {
			claims[d.CandidateID] = append(claims[d.CandidateID], d.SourceID)
		}
	}

	ids := make([]string, 0, len(claims))
	for id := range claims {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if owners := claims[id]; len(owners) > 1 {
			log.Warn().Str("candidate_id", id).Strs("source_ids", owners).Msg("Candidate confirmed for several sources by manual override")
		}
	}

	displaced := 0
	for i, d := range decisions {
		if d.Method == MethodManual || !d.Matched() {
			continue
		}
		owners, claimed := claims[d.CandidateID]
		if !claimed {
			continue
		}
		decisions[i] = noMatch(d.SourceID, fmt.Sprintf("conflict: candidate %s (%s, confidence %d) claimed by manual override for %s",
			d.CandidateID, d.Method, d.Confidence, owners[0]))
		displaced++
	}
	return displaced
}
