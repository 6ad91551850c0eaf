package match

import (
	"context"
	"time"

	"github.com/leed-ll97/internal/debug"
)

// Input is everything one matching run consumes.
type Input struct {
	Sources    []SourceRecord
	Candidates []CandidateRecord
	// Overrides are applied only when Config.UseManualMapping is set.
	Overrides []ManualOverride
}

// Result is the output of a run.
type Result struct {
	Config      Config             `json:"config"`
	Decisions   []MatchDecision    `json:"decisions"`
	Master      []MasterRecord     `json:"master"`
	ReviewQueue []ReviewQueueEntry `json:"review_queue"`
	Skipped     map[string]bool    `json:"skipped"`
	Warnings    []Warning          `json:"warnings"`
	Stats       Stats              `json:"stats"`
}

// Run validates cfg and executes cascade, conflict resolution, overrides
// and assembly. The only errors are configuration errors and context
// cancellation; data problems end up in notes and warnings.
func Run(ctx context.Context, cfg Config, in Input, opts ...Option) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	log := o.logger
	start := time.Now()
	defer debug.DebugTiming(o.debug, "match run")()

	cascade := NewCascade(in.Candidates, cfg, opts...)
	decisions, err := cascade.MatchAll(ctx, in.Sources, o.workers)
	if err != nil {
		return nil, err
	}
	debug.DebugOutput(o.debug, "Cascade produced %d decisions", len(decisions))

	// Full barrier: every cascade decision exists before any conflict is
	// resolved.
	resolved, demoted := Resolve(decisions, log)

	res := &Result{Config: cfg, Skipped: map[string]bool{}}
	if cfg.UseManualMapping {
		known := make(map[string]bool, len(in.Candidates))
		for _, c := range in.Candidates {
			known[c.ID] = true
		}
		overrides := resolveCandidateRefs(in.Overrides, in.Candidates, known)
		ov := ApplyOverrides(resolved, overrides, func(id string) bool { return known[id] }, log)
		resolved = ov.Decisions
		res.Skipped = ov.Skipped
		res.Warnings = ov.Warnings
		res.Stats.OverridesApplied = ov.Applied
		demoted += ov.Displaced
	} else if len(in.Overrides) > 0 {
		log.Info().Int("overrides", len(in.Overrides)).Msg("Manual mapping disabled, ignoring overrides")
	}

	res.Decisions = resolved
	res.Master, res.ReviewQueue = Assemble(in.Sources, in.Candidates, resolved, res.Skipped, cfg)

	res.Stats.ConflictsDemoted = demoted
	res.Stats.Tally(resolved, len(res.ReviewQueue), len(res.Skipped), len(res.Warnings))

	log.Info().
		Int("sources", len(in.Sources)).
		Int("candidates", len(in.Candidates)).
		Int("matched", res.Stats.Matched).
		Int("review_queue", res.Stats.ReviewQueue).
		Int("conflicts_demoted", res.Stats.ConflictsDemoted).
		Int("overrides_applied", res.Stats.OverridesApplied).
		Int("warnings", res.Stats.Warnings).
		Dur("elapsed", time.Since(start)).
		Msg("Matching run complete")
	return res, nil
}

// resolveCandidateRefs rewrites override candidate references given as a
// municipal row id (for example NYC_12345) to the merged candidate id.
// References matching a candidate id, or a row id shared by several
// candidates, are left unchanged.
func resolveCandidateRefs(overrides []ManualOverride, candidates []CandidateRecord, known map[string]bool) []ManualOverride {
	byRow := make(map[string]string)
	ambiguous := make(map[string]bool)
	for _, c := range candidates {
		for _, row := range c.RowIDs {
			if prev, ok := byRow[row]; ok && prev != c.ID {
				ambiguous[row] = true
			}
			byRow[row] = c.ID
		}
	}

	out := make([]ManualOverride, len(overrides))
	copy(out, overrides)
	for i, o := range out {
		if o.CandidateID == "" || known[o.CandidateID] || ambiguous[o.CandidateID] {
			continue
		}
		if id, ok := byRow[o.CandidateID]; ok {
			out[i].CandidateID = id
		}
	}
	return out
}
