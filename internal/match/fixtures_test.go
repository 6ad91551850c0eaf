package match

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/leed-ll97/internal/normalize"
)

func fptr(v float64) *float64 { return &v }

func source(id string, fields ...func(*SourceRecord)) SourceRecord {
	s := SourceRecord{ID: id, SourceName: "LEED"}
	for _, f := range fields {
		f(&s)
	}
	return s
}

func candidate(id string, fields ...func(*CandidateRecord)) CandidateRecord {
	c := CandidateRecord{ID: id}
	for _, f := range fields {
		f(&c)
	}
	return c
}

// fakeDataset builds a seeded dataset with deliberate collisions: shared
// parcels, repeated streets and near-duplicate names.
func fakeDataset(seed int64, nSources, nCandidates int) ([]SourceRecord, []CandidateRecord) {
	f := gofakeit.New(seed)
	boroughs := []string{normalize.Manhattan, normalize.Bronx, normalize.Brooklyn, normalize.Queens, normalize.StatenIsland}
	zips := []string{"10001", "10018", "10118", "11201", "10451"}
	streets := make([]string, 12)
	for i := range streets {
		streets[i] = f.StreetName() + " " + f.StreetSuffix()
	}
	names := make([]string, 15)
	for i := range names {
		names[i] = f.Company()
	}

	candidates := make([]CandidateRecord, nCandidates)
	for i := range candidates {
		addr := fmt.Sprintf("%d %s", f.Number(1, 40), f.RandomString(streets))
		candidates[i] = CandidateRecord{
			ID:           fmt.Sprintf("N%04d", i),
			AddressNorm:  normalize.CanonicalAddress(addr),
			BuildingName: normalize.BuildingName(f.RandomString(names)),
			ZIP:          f.RandomString(zips),
			Borough:      f.RandomString(boroughs),
			ParcelID:     normalize.ParcelID(f.Numerify("1########1")),
			BuildingID:   normalize.BuildingID(f.Numerify("1######")),
			Emissions:    fptr(f.Float64Range(100, 5000)),
		}
	}

	sources := make([]SourceRecord, nSources)
	for i := range sources {
		s := SourceRecord{
			ID:           fmt.Sprintf("L%04d", i),
			SourceName:   "LEED",
			BuildingName: normalize.BuildingName(f.RandomString(names)),
			ZIP:          f.RandomString(zips),
			Borough:      f.RandomString(boroughs),
		}
		target := candidates[f.Number(0, nCandidates-1)]
		switch f.Number(0, 4) {
		case 0:
			s.ParcelID = target.ParcelID
		case 1:
			s.BuildingID = target.BuildingID
		case 2:
			s.AddressNorm = target.AddressNorm
			s.ZIP = target.ZIP
		case 3:
			s.AddressNorm = normalize.CanonicalAddress(fmt.Sprintf("%d %s", f.Number(1, 40), f.RandomString(streets)))
		}
		sources[i] = s
	}
	return sources, candidates
}
