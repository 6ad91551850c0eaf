// Package export writes the master table and review queue.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/leed-ll97/internal/match"
)

// Columns is the output data contract, in order.
var Columns = []string{
	"source_id", "source_name", "building_name_raw", "address_raw",
	"address_norm", "bbl", "bin", "borough", "zip",
	"leed_level", "leed_cert_year", "energy_grade", "energy_star_score",
	"site_eui", "ghg_emissions_tco2e", "ll97_limit_tco2e",
	"ll97_overage_tco2e", "candidate_id", "match_confidence", "match_method", "match_notes",
}

// Row flattens a master record into Columns order. Nil values are empty.
func Row(m match.MasterRecord) []string {
	return []string{
		m.SourceID, m.SourceName, m.BuildingNameRaw, m.AddressRaw,
		m.AddressNorm, m.BBL, m.BIN, m.Borough, m.ZIP,
		m.CertLevel, formatInt(m.CertYear), m.EnergyGrade, formatFloat(m.EnergyStarScore),
		formatFloat(m.SiteEUI), formatFloat(m.Emissions), formatFloat(m.EmissionsLimit),
		formatFloat(m.Overage), m.CandidateID, strconv.Itoa(m.Confidence), string(m.Method), m.Notes,
	}
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteCSV writes a header and one line per record.
func WriteCSV(w io.Writer, records []match.MasterRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, m := range records {
		if err := cw.Write(Row(m)); err != nil {
			return fmt.Errorf("failed to write %s: %w", m.SourceID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path, creating parent directories.
func WriteCSVFile(path string, records []match.MasterRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteXLSX writes records to a single-sheet workbook with a bold header.
// Numeric columns are written as numbers.
func WriteXLSX(path, sheetName string, records []match.MasterRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Review Queue"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, m := range records {
		r := i + 2
		for c, v := range xlsxValues(m) {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to set %s: %w", cell, err)
			}
		}
	}

	for i := range Columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, col, col, 16)
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func xlsxValues(m match.MasterRecord) []any {
	vals := make([]any, len(Columns))
	for i, s := range Row(m) {
		if s != "" {
			vals[i] = s
		}
	}
	num := func(i int, v *float64) {
		if v != nil {
			vals[i] = *v
		}
	}
	if m.CertYear != nil {
		vals[10] = *m.CertYear
	}
	num(12, m.EnergyStarScore)
	num(13, m.SiteEUI)
	num(14, m.Emissions)
	num(15, m.EmissionsLimit)
	num(16, m.Overage)
	vals[18] = m.Confidence
	return vals
}

// Paths are the output files of one run.
type Paths struct {
	Master      string
	ReviewQueue string
	ReviewXLSX  string
}

// PathsFor names the outputs for a report year under dir.
func PathsFor(dir string, year int) Paths {
	return Paths{
		Master:      filepath.Join(dir, fmt.Sprintf("master_matched_%d.csv", year)),
		ReviewQueue: filepath.Join(dir, fmt.Sprintf("review_queue_%d.csv", year)),
		ReviewXLSX:  filepath.Join(dir, fmt.Sprintf("review_queue_%d.xlsx", year)),
	}
}

// WriteResult writes the master table and review queue CSVs, and the
// review workbook when withXLSX is set. It returns the files written.
func WriteResult(p Paths, res *match.Result, withXLSX bool) ([]string, error) {
	if err := WriteCSVFile(p.Master, res.Master); err != nil {
		return nil, err
	}
	if err := WriteCSVFile(p.ReviewQueue, res.ReviewQueue); err != nil {
		return nil, err
	}
	written := []string{p.Master, p.ReviewQueue}
	if withXLSX {
		if err := WriteXLSX(p.ReviewXLSX, "Review Queue", res.ReviewQueue); err != nil {
			return written, err
		}
		written = append(written, p.ReviewXLSX)
	}
	return written, nil
}
