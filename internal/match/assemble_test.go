package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleJoinsCandidate(t *testing.T) {
	year := 2019
	sources := []SourceRecord{
		source("L1", func(s *SourceRecord) {
			s.NameRaw, s.AddressRaw, s.AddressNorm, s.ZIP, s.CertLevel, s.CertYear = "Tower One", "1 Main St", "1 MAIN ST", "10001", "Gold", &year
		}),
		source("L2", func(s *SourceRecord) { s.ParcelID, s.Borough = "1000010001", "BRONX" }),
	}
	candidates := []CandidateRecord{
		candidate("N1", func(c *CandidateRecord) {
			c.ParcelID, c.BuildingID, c.Borough, c.ZIP = "1000020002", "1000123", "MANHATTAN", "10001"
			c.EnergyGrade, c.SiteEUI = "B", fptr(81.5)
			c.Emissions, c.EmissionsLimit = fptr(1200), fptr(1000)
		}),
	}
	decisions := []MatchDecision{
		{SourceID: "L1", CandidateID: "N1", Confidence: 90, Method: MethodExactAddress},
		{SourceID: "L2", Method: MethodNone, Notes: "no match found"},
	}

	master, queue := Assemble(sources, candidates, decisions, nil, DefaultConfig())
	require.Len(t, master, 2)

	m := master[0]
	assert.Equal(t, "L1", m.SourceID)
	assert.Equal(t, "LEED", m.SourceName)
	assert.Equal(t, "1000020002", m.BBL)
	assert.Equal(t, "1000123", m.BIN)
	assert.Equal(t, "MANHATTAN", m.Borough)
	assert.Equal(t, "Gold", m.CertLevel)
	assert.Equal(t, 2019, *m.CertYear)
	assert.Equal(t, "B", m.EnergyGrade)
	require.NotNil(t, m.Overage)
	assert.InDelta(t, 200.0, *m.Overage, 1e-9)

	u := master[1]
	assert.Equal(t, "1000010001", u.BBL)
	assert.Equal(t, "BRONX", u.Borough)
	assert.Nil(t, u.SiteEUI)
	assert.Nil(t, u.Overage)

	require.Len(t, queue, 1)
	assert.Equal(t, "L2", queue[0].SourceID)
}

func TestAssembleReviewQueueThreshold(t *testing.T) {
	sources := []SourceRecord{source("L1"), source("L2"), source("L3"), source("L4")}
	decisions := []MatchDecision{
		{SourceID: "L1", CandidateID: "N1", Confidence: 69, Method: MethodFuzzyName},
		{SourceID: "L2", CandidateID: "N2", Confidence: 74, Method: MethodFuzzyAddress},
		{SourceID: "L3", Method: MethodNone},
		{SourceID: "L4", Method: MethodNone},
	}
	cfg := DefaultConfig()
	cfg.MinMatchConfidence = 70

	_, queue := Assemble(sources, nil, decisions, map[string]bool{"L4": true}, cfg)
	ids := []string{}
	for _, q := range queue {
		ids = append(ids, q.SourceID)
	}
	assert.Equal(t, []string{"L1", "L3"}, ids)
}

func TestAssembleMissingDecision(t *testing.T) {
	master, queue := Assemble([]SourceRecord{source("L1")}, nil, nil, nil, DefaultConfig())
	require.Len(t, master, 1)
	assert.Equal(t, MethodNone, master[0].Method)
	assert.Len(t, queue, 1)
}

func TestOverage(t *testing.T) {
	assert.Nil(t, Overage(nil, fptr(1)))
	assert.Nil(t, Overage(fptr(1), nil))
	assert.InDelta(t, -50.0, *Overage(fptr(50), fptr(100)), 1e-9)
}
