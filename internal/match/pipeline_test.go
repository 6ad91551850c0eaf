package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leed-ll97/internal/logging"
)

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AddressThreshold = 120

	res, err := Run(context.Background(), cfg, Input{Sources: []SourceRecord{source("L1")}})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunEndToEnd(t *testing.T) {
	in := Input{
		Sources: []SourceRecord{
			source("L1", func(s *SourceRecord) { s.ParcelID = "1002340001" }),
			source("L2", func(s *SourceRecord) { s.AddressNorm, s.ZIP = "350 5 AVE", "10118" }),
			source("L3", func(s *SourceRecord) { s.AddressNorm = "10 HUDSON YARDS" }),
			source("L4", func(s *SourceRecord) { s.AddressNorm = "1 NOWHERE LN" }),
			source("L5", func(s *SourceRecord) { s.AddressNorm = "1 NOWHERE LN" }),
		},
		Candidates: []CandidateRecord{
			candidate("N1", func(c *CandidateRecord) {
				c.ParcelID, c.AddressNorm, c.ZIP = "1002340001", "350 5 AVE", "10118"
				c.Emissions, c.EmissionsLimit = fptr(500), fptr(450)
			}),
			candidate("N3", func(c *CandidateRecord) { c.AddressNorm = "10 HUDSON YARD" }),
		},
		Overrides: []ManualOverride{
			{SourceID: "L4", CandidateID: "N3", Decision: OverrideMatch},
			{SourceID: "L5", Decision: OverrideSkip},
			{SourceID: "L404", Decision: OverrideReject},
		},
	}
	cfg := DefaultConfig()
	cfg.UseManualMapping = true

	res, err := Run(context.Background(), cfg, in, WithLogger(logging.Nop), WithWorkers(3))
	require.NoError(t, err)
	require.Len(t, res.Decisions, 5)

	// L1 owns N1 by parcel; L2's exact address claim on N1 loses.
	assert.Equal(t, MethodParcelID, res.Decisions[0].Method)
	assert.Equal(t, MethodNone, res.Decisions[1].Method)
	assert.Contains(t, res.Decisions[1].Notes, "N1")
	// L4's manual claim on N3 displaces L3's fuzzy match.
	assert.Equal(t, MethodNone, res.Decisions[2].Method)
	assert.Equal(t, MethodManual, res.Decisions[3].Method)
	assert.Equal(t, MethodNone, res.Decisions[4].Method)

	require.NotNil(t, res.Master[0].Overage)
	assert.InDelta(t, 50.0, *res.Master[0].Overage, 1e-9)

	queued := []string{}
	for _, q := range res.ReviewQueue {
		queued = append(queued, q.SourceID)
	}
	assert.Equal(t, []string{"L2", "L3"}, queued)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnUnknownOverrideReference, res.Warnings[0].Kind)

	assert.Equal(t, 5, res.Stats.Total)
	assert.Equal(t, 2, res.Stats.Matched)
	assert.Equal(t, 2, res.Stats.ConflictsDemoted)
	assert.Equal(t, 2, res.Stats.OverridesApplied)
	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Equal(t, 2, res.Stats.ReviewQueue)
	assert.Equal(t, 1, res.Stats.ByMethod[MethodManual])
	assert.InDelta(t, 0.4, res.Stats.MatchRate(), 1e-9)
}

func TestRunIgnoresOverridesWhenDisabled(t *testing.T) {
	in := Input{
		Sources:    []SourceRecord{source("L1")},
		Candidates: []CandidateRecord{candidate("N1")},
		Overrides:  []ManualOverride{{SourceID: "L1", CandidateID: "N1", Decision: OverrideMatch}},
	}
	res, err := Run(context.Background(), DefaultConfig(), in, WithLogger(logging.Nop))
	require.NoError(t, err)
	assert.Equal(t, MethodNone, res.Decisions[0].Method)
	assert.Equal(t, 0, res.Stats.OverridesApplied)
}

func TestRunManualMappingCandidateRefs(t *testing.T) {
	tests := []struct {
		name          string
		ref           string
		wantCandidate string
		wantWarnings  int
	}{
		{"row id of a merged candidate", "NYC_7", "N1", 0},
		{"candidate id", "N1", "N1", 0},
		{"id not in this run", "NYC_12345", "NYC_12345", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				Sources: []SourceRecord{source("L1", func(s *SourceRecord) { s.AddressNorm = "1 NOWHERE LN" })},
				Candidates: []CandidateRecord{
					candidate("N1", func(c *CandidateRecord) {
						c.AddressNorm = "99 ELSEWHERE AVE"
						c.RowIDs = []string{"NYC_7", "BENCH_3"}
					}),
				},
				Overrides: []ManualOverride{{SourceID: "L1", CandidateID: tt.ref, Decision: OverrideMatch}},
			}
			cfg := DefaultConfig()
			cfg.UseManualMapping = true

			res, err := Run(context.Background(), cfg, in, WithLogger(logging.Nop))
			require.NoError(t, err)
			require.Len(t, res.Decisions, 1)

			d := res.Decisions[0]
			assert.Equal(t, tt.wantCandidate, d.CandidateID)
			assert.Equal(t, MethodManual, d.Method)
			assert.Equal(t, 100, d.Confidence)
			assert.Equal(t, 1, res.Stats.Matched)
			require.Len(t, res.Warnings, tt.wantWarnings)
			if tt.wantWarnings > 0 {
				assert.Equal(t, WarnUnknownOverrideReference, res.Warnings[0].Kind)
			}
		})
	}
}

func TestResolveCandidateRefsAmbiguousRow(t *testing.T) {
	cands := []CandidateRecord{
		candidate("N1", func(c *CandidateRecord) { c.RowIDs = []string{"NYC_1"} }),
		candidate("N2", func(c *CandidateRecord) { c.RowIDs = []string{"NYC_1", "BENCH_2"} }),
	}
	known := map[string]bool{"N1": true, "N2": true}
	in := []ManualOverride{
		{SourceID: "L1", CandidateID: "NYC_1", Decision: OverrideMatch},
		{SourceID: "L2", CandidateID: "BENCH_2", Decision: OverrideMatch},
		{SourceID: "L3", Decision: OverrideSkip},
	}

	out := resolveCandidateRefs(in, cands, known)
	assert.Equal(t, "NYC_1", out[0].CandidateID, "shared row id is not resolved")
	assert.Equal(t, "N2", out[1].CandidateID)
	assert.Equal(t, "", out[2].CandidateID)
	assert.Equal(t, "BENCH_2", in[1].CandidateID, "input is not modified")
}

func TestRunDeterministic(t *testing.T) {
	sources, candidates := fakeDataset(2024, 250, 90)
	in := Input{Sources: sources, Candidates: candidates}

	first, err := Run(context.Background(), DefaultConfig(), in, WithLogger(logging.Nop), WithWorkers(6))
	require.NoError(t, err)
	second, err := Run(context.Background(), DefaultConfig(), in, WithLogger(logging.Nop), WithWorkers(1))
	require.NoError(t, err)

	assert.Equal(t, first.Decisions, second.Decisions)
	assert.Equal(t, first.Master, second.Master)
	assert.Equal(t, first.ReviewQueue, second.ReviewQueue)
}
