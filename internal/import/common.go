// Package import_pkg reads the cleaned certification and municipal datasets
// and the manual mapping file into matcher records.
package import_pkg

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/leed-ll97/internal/logging"
	"github.com/leed-ll97/internal/normalize"
)

// ErrMissingColumn is returned when none of a required column's aliases is
// present in the header.
var ErrMissingColumn = errors.New("missing required column")

// Loader turns tabular files into records.
type Loader struct {
	addr *normalize.AddressNormalizer
	log  zerolog.Logger
}

// NewLoader returns a loader normalizing addresses with addr (nil selects
// the built-in parser).
func NewLoader(addr *normalize.AddressNormalizer, log zerolog.Logger) *Loader {
	if addr == nil {
		addr = normalize.NewAddressNormalizer(nil)
	}
	return &Loader{addr: addr, log: log}
}

// DefaultLoader uses the built-in parser and the component logger.
func DefaultLoader() *Loader {
	return NewLoader(nil, logging.WithComponent("import"))
}

// Normalizer is the address normalizer the loader applies.
func (l *Loader) Normalizer() *normalize.AddressNormalizer {
	return l.addr
}

// table is a header-indexed set of rows.
type table struct {
	path   string
	header map[string]int
	rows   [][]string
}

// readTable reads a CSV file, or the first non-empty sheet of an XLSX file.
func readTable(path string) (*table, error) {
	var records [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(path)
	default:
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row", path)
	}

	t := &table{path: path, header: make(map[string]int), rows: records[1:]}
	for i, h := range records[0] {
		h = strings.TrimPrefix(h, "\ufeff")
		key := headerKey(h)
		if _, dup := t.header[key]; !dup {
			t.header[key] = i
		}
	}
	return t, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}

func headerKey(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// col returns the index of the first alias present in the header, or -1.
func (t *table) col(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := t.header[headerKey(a)]; ok {
			return i
		}
	}
	return -1
}

func (t *table) require(name string, aliases ...string) (int, error) {
	i := t.col(aliases...)
	if i < 0 {
		return -1, fmt.Errorf("%s: %w %s (tried %s)", t.path, ErrMissingColumn, name, strings.Join(aliases, ", "))
	}
	return i, nil
}

// cell returns the trimmed value at column i, or "" when i is out of range.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseFloat converts a numeric cell to a float64 pointer; placeholders
// such as "Not Available" give nil.
func parseFloat(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseYear extracts a year from a year, a date string or Unix seconds.
func parseYear(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f := parseFloat(s); f != nil {
		v := int(*f)
		if v >= 1900 && v <= 2200 {
			return &v
		}
		if v > 100000000 {
			y := time.Unix(int64(v), 0).UTC().Year()
			return &y
		}
		return nil
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"01/02/2006",
		"1/2/2006",
		"01/02/06",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			y := t.Year()
			return &y
		}
	}
	return nil
}

// firstID keeps the first of several identifiers packed into one cell.
func firstID(s string) string {
	if i := strings.IndexAny(s, ";,|"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
