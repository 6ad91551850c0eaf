package match

// Assemble joins sources, terminal decisions and matched candidates into
// master rows (one per source, in source order) and selects the review
// queue: rows below cfg.MinMatchConfidence or with method none, minus
// skipped sources.
func Assemble(sources []SourceRecord, candidates []CandidateRecord, decisions []MatchDecision,
	skipped map[string]bool, cfg Config) ([]MasterRecord, []ReviewQueueEntry) {
	bySource := make(map[string]MatchDecision, len(decisions))
	for _, d := range decisions {
		bySource[d.SourceID] = d
	}
	byID := make(map[string]*CandidateRecord, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	master := make([]MasterRecord, 0, len(sources))
	var queue []ReviewQueueEntry
	for _, src := range sources {
		d, ok := bySource[src.ID]
		if !ok {
			d = noMatch(src.ID, "no decision produced")
		}
		var cand *CandidateRecord
		if d.Matched() {
			cand = byID[d.CandidateID]
		}

		row := masterRow(src, cand, d)
		master = append(master, row)
		if NeedsReview(d, cfg) && !skipped[src.ID] {
			queue = append(queue, row)
		}
	}
	return master, queue
}

// NeedsReview reports whether a terminal decision belongs in the review
// queue, ignoring skip overrides.
func NeedsReview(d MatchDecision, cfg Config) bool {
	return d.Method == MethodNone || d.Confidence < cfg.MinMatchConfidence
}

func masterRow(src SourceRecord, cand *CandidateRecord, d MatchDecision) MasterRecord {
	row := MasterRecord{
		SourceID:        src.ID,
		SourceName:      src.SourceName,
		BuildingNameRaw: src.NameRaw,
		AddressRaw:      src.AddressRaw,
		AddressNorm:     src.AddressNorm,
		BBL:             src.ParcelID,
		BIN:             src.BuildingID,
		Borough:         src.Borough,
		ZIP:             src.ZIP,
		CertLevel:       src.CertLevel,
		CertYear:        src.CertYear,
		CandidateID:     d.CandidateID,
		Confidence:      d.Confidence,
		Method:          d.Method,
		Notes:           d.Notes,
	}
	if cand == nil {
		return row
	}

	row.BBL = firstNonEmpty(cand.ParcelID, row.BBL)
	row.BIN = firstNonEmpty(cand.BuildingID, row.BIN)
	row.Borough = firstNonEmpty(cand.Borough, row.Borough)
	row.ZIP = firstNonEmpty(cand.ZIP, row.ZIP)
	row.EnergyGrade = cand.EnergyGrade
	row.EnergyStarScore = cand.EnergyStarScore
	row.SiteEUI = cand.SiteEUI
	row.Emissions = cand.Emissions
	row.EmissionsLimit = cand.EmissionsLimit
	row.Overage = Overage(cand.Emissions, cand.EmissionsLimit)
	return row
}

// Overage is emissions minus limit, or nil unless both are known.
func Overage(emissions, limit *float64) *float64 {
	if emissions == nil || limit == nil {
		return nil
	}
	v := *emissions - *limit
	return &v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
