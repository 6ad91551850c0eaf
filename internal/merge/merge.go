// Package merge unions the municipal sub-datasets (energy grades,
// benchmarking and LL97 covered buildings) into one candidate per
// parcel and building ID.
package merge

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leed-ll97/internal/match"
	"github.com/leed-ll97/internal/normalize"
)

// Dataset names recorded on each candidate.
const (
	DatasetGrades       = "NYC_ENERGY_GRADES"
	DatasetBenchmarking = "NYC_BENCHMARKING"
	DatasetLL97         = "NYC_LL97"
)

// Row is one raw record of any sub-dataset. Unused fields stay empty.
type Row struct {
	RowID           string
	Name            string
	Address         string
	ZIP             string
	Borough         string
	BBL             string
	BIN             string
	EnergyGrade     string
	EnergyStarScore *float64
	SiteEUI         *float64
	Emissions       *float64
	EmissionsLimit  *float64
}

// Datasets groups the three sub-datasets.
type Datasets struct {
	Grades       []Row
	Benchmarking []Row
	LL97         []Row
}

var validGrades = map[string]bool{"A": true, "B": true, "C": true, "D": true, "F": true}

type merger struct {
	addr     *normalize.AddressNormalizer
	log      zerolog.Logger
	byKey    map[string]*match.CandidateRecord
	byParcel map[string][]*match.CandidateRecord
	ids      map[string]bool
	out      []*match.CandidateRecord
}

// Merge builds candidates from ds. Energy grades are the primary dataset;
// benchmarking fills gaps by key (or by parcel when it is unambiguous) and
// LL97 attaches limits to every building on its parcel. The result is
// sorted by candidate ID.
func Merge(ds Datasets, addr *normalize.AddressNormalizer, log zerolog.Logger) []match.CandidateRecord {
	if addr == nil {
		addr = normalize.NewAddressNormalizer(nil)
	}
	m := &merger{
		addr:     addr,
		log:      log,
		byKey:    make(map[string]*match.CandidateRecord),
		byParcel: make(map[string][]*match.CandidateRecord),
		ids:      make(map[string]bool),
	}

	for _, r := range ds.Grades {
		r = m.normalizeRow(r)
		if c := m.byKey[key(r)]; c != nil && hasKey(r) {
			m.fill(c, r, DatasetGrades)
			continue
		}
		m.create(r, DatasetGrades)
	}

	byParcelOnly := 0
	for _, r := range ds.Benchmarking {
		r = m.normalizeRow(r)
		if c := m.byKey[key(r)]; c != nil && hasKey(r) {
			m.fill(c, r, DatasetBenchmarking)
			continue
		}
		if r.BIN == "" && r.BBL != "" && len(m.byParcel[r.BBL]) == 1 {
			m.fill(m.byParcel[r.BBL][0], r, DatasetBenchmarking)
			byParcelOnly++
			continue
		}
		m.create(r, DatasetBenchmarking)
	}

	for _, r := range ds.LL97 {
		r = m.normalizeRow(r)
		if on := m.byParcel[r.BBL]; r.BBL != "" && len(on) > 0 {
			for _, c := range on {
				m.fill(c, r, DatasetLL97)
			}
			continue
		}
		if c := m.byKey[key(r)]; c != nil && hasKey(r) {
			m.fill(c, r, DatasetLL97)
			continue
		}
		m.create(r, DatasetLL97)
	}

	out := make([]match.CandidateRecord, len(m.out))
	for i, c := range m.out {
		out[i] = *c
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	log.Info().
		Int("grades", len(ds.Grades)).
		Int("benchmarking", len(ds.Benchmarking)).
		Int("ll97", len(ds.LL97)).
		Int("benchmarking_by_parcel", byParcelOnly).
		Int("candidates", len(out)).
		Msg("Merged municipal datasets")
	return out
}

func (m *merger) normalizeRow(r Row) Row {
	r.BBL = normalize.ParcelID(r.BBL)
	r.BIN = normalize.BuildingID(r.BIN)
	r.ZIP = normalize.ZIP(r.ZIP)
	r.Borough = normalize.Borough(r.Borough)
	r.EnergyGrade = strings.ToUpper(strings.TrimSpace(r.EnergyGrade))
	if !validGrades[r.EnergyGrade] {
		r.EnergyGrade = ""
	}
	return r
}

func key(r Row) string {
	return r.BBL + "|" + r.BIN
}

func hasKey(r Row) bool {
	return r.BBL != "" || r.BIN != ""
}

func (m *merger) create(r Row, dataset string) {
	c := &match.CandidateRecord{
		ID:         m.uniqueID(candidateID(r)),
		ParcelID:   r.BBL,
		BuildingID: r.BIN,
	}
	m.fill(c, r, dataset)
	m.out = append(m.out, c)
	if hasKey(r) {
		m.byKey[key(r)] = c
	}
	if r.BBL != "" {
		m.byParcel[r.BBL] = append(m.byParcel[r.BBL], c)
	}
}

func candidateID(r Row) string {
	switch {
	case r.BBL != "" && r.BIN != "":
		return "BBL" + r.BBL + "-BIN" + r.BIN
	case r.BBL != "":
		return "BBL" + r.BBL
	case r.BIN != "":
		return "BIN" + r.BIN
	case r.RowID != "":
		return r.RowID
	}
	return "ROW"
}

func (m *merger) uniqueID(id string) string {
	if !m.ids[id] {
		m.ids[id] = true
		return id
	}
	for n := 2; ; n++ {
		alt := fmt.Sprintf("%s-%d", id, n)
		if !m.ids[alt] {
			m.log.Debug().Str("id", id).Str("assigned", alt).Msg("Duplicate candidate id")
			m.ids[alt] = true
			return alt
		}
	}
}

// fill copies attributes c does not have yet.
func (m *merger) fill(c *match.CandidateRecord, r Row, dataset string) {
	if c.NameRaw == "" && r.Name != "" {
		c.NameRaw = r.Name
		c.BuildingName = normalize.BuildingName(r.Name)
	}
	if c.AddressRaw == "" && r.Address != "" {
		c.AddressRaw = r.Address
		c.AddressNorm = m.addr.Normalize(r.Address)
	}
	c.ZIP = orString(c.ZIP, r.ZIP)
	c.Borough = orString(c.Borough, r.Borough)
	c.EnergyGrade = orString(c.EnergyGrade, r.EnergyGrade)
	c.EnergyStarScore = orFloat(c.EnergyStarScore, r.EnergyStarScore)
	c.SiteEUI = orFloat(c.SiteEUI, r.SiteEUI)
	c.Emissions = orFloat(c.Emissions, r.Emissions)
	c.EmissionsLimit = orFloat(c.EmissionsLimit, r.EmissionsLimit)

	if r.RowID != "" && !slices.Contains(c.RowIDs, r.RowID) {
		c.RowIDs = append(c.RowIDs, r.RowID)
	}
	if !slices.Contains(c.Sources, dataset) {
		c.Sources = append(c.Sources, dataset)
	}
}

func orString(have, v string) string {
	if have != "" {
		return have
	}
	return v
}

func orFloat(have, v *float64) *float64 {
	if have != nil {
		return have
	}
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
