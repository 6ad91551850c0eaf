package match

import (
	"sort"
	"unicode/utf8"

	"github.com/leed-ll97/internal/similarity"
)

// indexedCandidate caches the token-sorted forms used by the fuzzy tiers.
type indexedCandidate struct {
	rec        *CandidateRecord
	addrSorted string
	addrLen    int
	nameSorted string
	nameLen    int
}

// candidateIndex holds the read-only candidate set. Slices of positions are
// in ascending candidate ID order, so the first hit at a score is the
// lowest ID.
type candidateIndex struct {
	all        []indexedCandidate
	byParcel   map[string][]int
	byBuilding map[string][]int
	byAddress  map[string][]int
	byZIP      map[string][]int
	byBorough  map[string][]int
}

func newCandidateIndex(candidates []CandidateRecord) *candidateIndex {
	recs := make([]CandidateRecord, len(candidates))
	copy(recs, candidates)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })

	idx := &candidateIndex{
		all:        make([]indexedCandidate, len(recs)),
		byParcel:   make(map[string][]int),
		byBuilding: make(map[string][]int),
		byAddress:  make(map[string][]int),
		byZIP:      make(map[string][]int),
		byBorough:  make(map[string][]int),
	}
	add := func(m map[string][]int, key string, pos int) {
		if key != "" {
			m[key] = append(m[key], pos)
		}
	}
	for i := range recs {
		r := &recs[i]
		ic := indexedCandidate{
			rec:        r,
			addrSorted: similarity.TokenSort(r.AddressNorm),
			nameSorted: similarity.TokenSort(r.BuildingName),
		}
		ic.addrLen = utf8.RuneCountInString(ic.addrSorted)
		ic.nameLen = utf8.RuneCountInString(ic.nameSorted)
		idx.all[i] = ic

		add(idx.byParcel, r.ParcelID, i)
		add(idx.byBuilding, r.BuildingID, i)
		add(idx.byAddress, r.AddressNorm, i)
		add(idx.byZIP, r.ZIP, i)
		add(idx.byBorough, r.Borough, i)
	}
	return idx
}

// union merges ascending position lists without duplicates.
func union(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i] < b[j]):
			out = append(out, a[i])
			i++
		case i >= len(a) || b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
