package import_pkg

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/leed-ll97/internal/match"
	"github.com/leed-ll97/internal/merge"
	"github.com/leed-ll97/internal/normalize"
)

// LoadCertifications reads the cleaned certification registry.
// Columns (any alias): source_id, building_name_raw, address_raw, zip,
// borough or city, bbl, bin, leed_level, leed_cert_year or a certification date.
func (l *Loader) LoadCertifications(path string) ([]match.SourceRecord, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	idCol := t.col("source_id", "prjt_id", "project id", "id")
	nameCol := t.col("building_name_raw", "title", "project name", "property name", "building name", "name")
	addrCol := t.col("address_raw", "address_line1", "address 1", "street address", "address")
	if nameCol < 0 && addrCol < 0 {
		return nil, fmt.Errorf("%s: %w address or building name", path, ErrMissingColumn)
	}
	zipCol := t.col("zip", "postal_code", "postal code", "postcode", "zipcode", "zip_norm")
	boroCol := t.col("borough", "borough_norm", "city")
	bblCol := t.col("bbl", "bbl_norm", "NYC Borough, Block and Lot (BBL)")
	binCol := t.col("bin", "bin_norm", "NYC Building Identification Number (BIN)")
	levelCol := t.col("leed_level", "certification_level", "certification level")
	yearCol := t.col("leed_cert_year", "certification year", "cert_year")
	dateCol := t.col("leed_cert_date", "certification_date", "leed_cert_date_epoch", "certification date")
	areaCol := t.col("gross_sqft", "gross_area_sqft", "prjt_site_size")
	sourceCol := t.col("source_name")

	records := make([]match.SourceRecord, 0, len(t.rows))
	skipped := 0
	for i, row := range t.rows {
		if blank(row) {
			skipped++
			continue
		}
		id := cell(row, idCol)
		if id == "" {
			id = "LEED_ROW_" + strconv.Itoa(i)
		}
		rec := match.SourceRecord{
			ID:         id,
			SourceName: cell(row, sourceCol),
			NameRaw:    cell(row, nameCol),
			AddressRaw: cell(row, addrCol),
			ZIP:        normalize.ZIP(cell(row, zipCol)),
			Borough:    normalize.Borough(cell(row, boroCol)),
			ParcelID:   normalize.ParcelID(firstID(cell(row, bblCol))),
			BuildingID: normalize.BuildingID(firstID(cell(row, binCol))),
			CertLevel:  cell(row, levelCol),
			CertYear:   parseYear(cell(row, yearCol)),
			GrossArea:  parseFloat(cell(row, areaCol)),
		}
		if rec.SourceName == "" {
			rec.SourceName = "LEED"
		}
		if rec.CertYear == nil {
			rec.CertYear = parseYear(cell(row, dateCol))
		}
		rec.BuildingName = normalize.BuildingName(rec.NameRaw)
		rec.AddressNorm = l.addr.Normalize(rec.AddressRaw)
		records = append(records, rec)
	}

	l.log.Info().Str("file", path).Int("records", len(records)).Int("skipped", skipped).Msg("Loaded certification records")
	return records, nil
}

// municipalColumns lists the header aliases of one municipal dataset.
type municipalColumns struct {
	prefix    string
	id        []string
	name      []string
	address   []string
	zip       []string
	borough   []string
	bbl       []string
	bin       []string
	grade     []string
	score     []string
	eui       []string
	emissions []string
	limit     []string
	// required lists alias groups of which at least one must exist.
	required [][]string
}

var (
	bblAliases = []string{"bbl", "bbl_norm", "NYC Borough, Block and Lot (BBL)", "BBL - 10 digits"}
	binAliases = []string{"bin", "bin_norm", "NYC Building Identification Number (BIN)"}
	zipAliases = []string{"zip", "zip_norm", "Postal Code", "Postcode", "zipcode"}

	gradesColumns = municipalColumns{
		prefix:   "NYC_",
		id:       []string{"source_id", "Property Id"},
		name:     []string{"building_name_raw", "Property Name"},
		address:  []string{"address_raw", "Address", "Address 1"},
		zip:      zipAliases,
		borough:  []string{"borough", "borough_norm", "BoroughName", "Borough"},
		bbl:      bblAliases,
		bin:      binAliases,
		grade:    []string{"energy_grade", "LetterScore", "Letter Grade", "Energy Grade"},
		score:    []string{"energy_star_score", "ENERGY STAR Score"},
		eui:      []string{"site_eui", "Site EUI (kBtu/ft²)", "Site EUI (kBtu/ft2)"},
		required: [][]string{append(append([]string{}, bblAliases...), "address_raw", "Address", "Address 1")},
	}

	benchmarkingColumns = municipalColumns{
		prefix:  "BENCH_",
		id:      []string{"source_id", "Property Id"},
		name:    []string{"building_name_raw", "Property Name"},
		address: []string{"address_raw", "Address 1", "Address"},
		zip:     zipAliases,
		borough: []string{"borough", "borough_norm", "Borough"},
		bbl:     bblAliases,
		bin:     binAliases,
		score:   []string{"energy_star_score", "ENERGY STAR Score"},
		eui:     []string{"site_eui", "Site EUI (kBtu/ft²)", "Site EUI (kBtu/ft2)"},
		emissions: []string{
			"ghg_emissions_tco2e",
			"Total (Location-Based) GHG Emissions (Metric Tons CO2e)",
			"Total GHG Emissions (Metric Tons CO2e)",
		},
		required: [][]string{append(append([]string{}, bblAliases...), "address_raw", "Address 1", "Address")},
	}

	ll97Columns = municipalColumns{
		prefix:    "LL97_",
		id:        []string{"source_id"},
		address:   []string{"address_raw", "Address"},
		zip:       zipAliases,
		borough:   []string{"borough", "borough_norm", "Borough"},
		bbl:       bblAliases,
		bin:       binAliases,
		emissions: []string{"ghg_emissions_tco2e", "Actual Emissions (tCO2e)"},
		limit:     []string{"ll97_limit_tco2e", "Emissions Limit (tCO2e)"},
		required:  [][]string{bblAliases},
	}
)

// LoadGrades reads the LL33 energy grades dataset.
func (l *Loader) LoadGrades(path string) ([]merge.Row, error) {
	return l.loadMunicipal(path, merge.DatasetGrades, gradesColumns)
}

// LoadBenchmarking reads the LL84 benchmarking dataset.
func (l *Loader) LoadBenchmarking(path string) ([]merge.Row, error) {
	return l.loadMunicipal(path, merge.DatasetBenchmarking, benchmarkingColumns)
}

// LoadLL97 reads the LL97 covered buildings list, CSV or XLSX.
func (l *Loader) LoadLL97(path string) ([]merge.Row, error) {
	return l.loadMunicipal(path, merge.DatasetLL97, ll97Columns)
}

func (l *Loader) loadMunicipal(path, dataset string, cols municipalColumns) ([]merge.Row, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	for _, group := range cols.required {
		if _, err := t.require(strings.ToLower(dataset)+" key", group...); err != nil {
			return nil, err
		}
	}

	idCol, nameCol, addrCol := t.col(cols.id...), t.col(cols.name...), t.col(cols.address...)
	zipCol, boroCol := t.col(cols.zip...), t.col(cols.borough...)
	bblCol, binCol := t.col(cols.bbl...), t.col(cols.bin...)
	gradeCol, scoreCol, euiCol := t.col(cols.grade...), t.col(cols.score...), t.col(cols.eui...)
	emCol, limitCol := t.col(cols.emissions...), t.col(cols.limit...)

	rows := make([]merge.Row, 0, len(t.rows))
	skipped := 0
	for i, raw := range t.rows {
		if blank(raw) {
			skipped++
			continue
		}
		r := merge.Row{
			RowID:           cell(raw, idCol),
			Name:            cell(raw, nameCol),
			Address:         cell(raw, addrCol),
			ZIP:             cell(raw, zipCol),
			Borough:         cell(raw, boroCol),
			BBL:             firstID(cell(raw, bblCol)),
			BIN:             firstID(cell(raw, binCol)),
			EnergyGrade:     cell(raw, gradeCol),
			EnergyStarScore: parseFloat(cell(raw, scoreCol)),
			SiteEUI:         parseFloat(cell(raw, euiCol)),
			Emissions:       parseFloat(cell(raw, emCol)),
			EmissionsLimit:  parseFloat(cell(raw, limitCol)),
		}
		switch {
		case r.RowID == "":
			r.RowID = cols.prefix + strconv.Itoa(i)
		case !strings.HasPrefix(r.RowID, cols.prefix):
			r.RowID = cols.prefix + r.RowID
		}
		rows = append(rows, r)
	}

	l.log.Info().Str("dataset", dataset).Str("file", path).Int("rows", len(rows)).Int("skipped", skipped).Msg("Loaded municipal rows")
	return rows, nil
}

// LoadManualMapping reads reviewer overrides from a CSV with columns
// leed_source_id, nyc_source_id, decision, notes. A missing decision means
// match. Rows with an unknown decision or no source id become warnings.
// A missing file is logged and yields no overrides.
func (l *Loader) LoadManualMapping(path string) ([]match.ManualOverride, []match.Warning, error) {
	t, err := readTable(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.log.Warn().Str("file", path).Msg("Manual mapping file not found, continuing without overrides")
			return nil, nil, nil
		}
		return nil, nil, err
	}

	srcCol, err := t.require("leed_source_id", "leed_source_id", "source_id")
	if err != nil {
		return nil, nil, err
	}
	candCol := t.col("nyc_source_id", "candidate_id", "nyc_id")
	decCol := t.col("decision")
	notesCol := t.col("notes", "note")

	var overrides []match.ManualOverride
	var warnings []match.Warning
	for i, row := range t.rows {
		if blank(row) {
			continue
		}
		o := match.ManualOverride{
			SourceID:    cell(row, srcCol),
			CandidateID: cell(row, candCol),
			Decision:    match.OverrideDecision(strings.ToLower(cell(row, decCol))),
			Notes:       cell(row, notesCol),
		}
		if o.Decision == "" {
			o.Decision = match.OverrideMatch
		}
		line := i + 2
		switch {
		case o.SourceID == "":
			warnings = append(warnings, match.Warning{
				Kind:    match.WarnMalformedOverride,
				Message: fmt.Sprintf("%s line %d: missing leed_source_id", path, line),
			})
			continue
		case !o.Decision.Valid():
			warnings = append(warnings, match.Warning{
				Kind:        match.WarnMalformedOverride,
				SourceID:    o.SourceID,
				CandidateID: o.CandidateID,
				Message:     fmt.Sprintf("%s line %d: unknown decision %q", path, line, o.Decision),
			})
			continue
		}
		overrides = append(overrides, o)
	}

	for _, w := range warnings {
		l.log.Warn().Str("kind", string(w.Kind)).Msg(w.Message)
	}
	l.log.Info().Str("file", path).Int("overrides", len(overrides)).Int("warnings", len(warnings)).Msg("Loaded manual mapping")
	return overrides, warnings, nil
}
