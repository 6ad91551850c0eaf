package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leed-ll97/internal/logging"
)

func TestResolveConflictDemotion(t *testing.T) {
	decisions := []MatchDecision{
		{SourceID: "L2", CandidateID: "N9", Confidence: 70, Method: MethodFuzzyAddress},
		{SourceID: "L1", CandidateID: "N9", Confidence: 90, Method: MethodExactAddress},
		{SourceID: "L3", CandidateID: "N1", Confidence: 100, Method: MethodParcelID},
	}

	out, demoted := Resolve(decisions, logging.Nop)
	require.Len(t, out, 3)
	assert.Equal(t, 1, demoted)

	assert.Equal(t, "L2", out[0].SourceID)
	assert.Equal(t, "", out[0].CandidateID)
	assert.Equal(t, 0, out[0].Confidence)
	assert.Equal(t, MethodNone, out[0].Method)
	assert.Contains(t, out[0].Notes, "N9")
	assert.Contains(t, out[0].Notes, "fuzzy_address")

	assert.Equal(t, decisions[1], out[1])
	assert.Equal(t, decisions[2], out[2])
	assert.Equal(t, "N9", decisions[0].CandidateID, "input untouched")
}

func TestResolveTieGoesToLowestSourceID(t *testing.T) {
	decisions := []MatchDecision{
		{SourceID: "L9", CandidateID: "N1", Confidence: 85, Method: MethodFuzzyAddress},
		{SourceID: "L10", CandidateID: "N1", Confidence: 85, Method: MethodFuzzyAddress},
		{SourceID: "L5", CandidateID: "N1", Confidence: 85, Method: MethodFuzzyAddress},
	}
	out, demoted := Resolve(decisions, logging.Nop)
	assert.Equal(t, 2, demoted)
	// "L10" < "L5" < "L9" as strings.
	assert.Equal(t, MethodNone, out[0].Method)
	assert.Equal(t, "N1", out[1].CandidateID)
	assert.Equal(t, MethodNone, out[2].Method)
}

func TestResolveLeavesManualAlone(t *testing.T) {
	decisions := []MatchDecision{
		{SourceID: "L1", CandidateID: "N1", Confidence: 100, Method: MethodManual},
		{SourceID: "L2", CandidateID: "N1", Confidence: 100, Method: MethodManual},
		{SourceID: "L3", CandidateID: "N2", Confidence: 60, Method: MethodFuzzyName},
	}
	out, demoted := Resolve(decisions, logging.Nop)
	assert.Equal(t, 0, demoted)
	assert.Equal(t, decisions, out)
}

func TestResolveOneToOneProperty(t *testing.T) {
	for _, seed := range []int64{3, 11, 42} {
		sources, candidates := fakeDataset(seed, 400, 60)
		decisions, err := NewCascade(candidates, DefaultConfig()).MatchAll(context.Background(), sources, 4)
		require.NoError(t, err)

		out, _ := Resolve(decisions, logging.Nop)
		owner := map[string]string{}
		for _, d := range out {
			if !d.Matched() || d.Method == MethodManual {
				continue
			}
			prev, taken := owner[d.CandidateID]
			assert.False(t, taken, "seed %d: %s claimed by %s and %s", seed, d.CandidateID, prev, d.SourceID)
			owner[d.CandidateID] = d.SourceID
		}

		again, _ := Resolve(decisions, logging.Nop)
		assert.Equal(t, out, again, "deterministic")
	}
}
