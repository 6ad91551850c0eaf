package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	import_pkg "github.com/leed-ll97/internal/import"
	"github.com/leed-ll97/internal/match"
	"github.com/leed-ll97/internal/merge"
)

// inputPaths are the cleaned files one run reads.
type inputPaths struct {
	Certifications string
	Grades         string
	Benchmarking   string
	LL97           string
	ManualMapping  string
}

// defaultInputs names the cleaned files under dir. LL97 may be delivered
// as CSV or as the city's workbook.
func defaultInputs(dir, manualMapping string) inputPaths {
	ll97 := filepath.Join(dir, "nyc_ll97_cleaned.csv")
	if !exists(ll97) {
		if xlsx := filepath.Join(dir, "nyc_ll97_cleaned.xlsx"); exists(xlsx) {
			ll97 = xlsx
		}
	}
	return inputPaths{
		Certifications: filepath.Join(dir, "leed_cleaned.csv"),
		Grades:         filepath.Join(dir, "nyc_energy_grades_cleaned.csv"),
		Benchmarking:   filepath.Join(dir, "nyc_benchmarking_cleaned.csv"),
		LL97:           ll97,
		ManualMapping:  manualMapping,
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// loadInput reads every input file. The certification registry is
// required; a missing municipal file is logged and contributes nothing.
func loadInput(l *import_pkg.Loader, p inputPaths, withOverrides bool, log zerolog.Logger) (match.Input, []match.Warning, error) {
	var in match.Input

	sources, err := l.LoadCertifications(p.Certifications)
	if err != nil {
		return in, nil, err
	}
	in.Sources = sources

	var ds merge.Datasets
	loaders := []struct {
		name string
		path string
		load func(string) ([]merge.Row, error)
		dst  *[]merge.Row
	}{
		{merge.DatasetGrades, p.Grades, l.LoadGrades, &ds.Grades},
		{merge.DatasetBenchmarking, p.Benchmarking, l.LoadBenchmarking, &ds.Benchmarking},
		{merge.DatasetLL97, p.LL97, l.LoadLL97, &ds.LL97},
	}
	for _, ld := range loaders {
		rows, err := ld.load(ld.path)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("dataset", ld.name).Str("file", ld.path).Msg("Municipal file not found, skipping")
			continue
		}
		if err != nil {
			return in, nil, err
		}
		*ld.dst = rows
	}
	in.Candidates = merge.Merge(ds, l.Normalizer(), log)

	var warnings []match.Warning
	if withOverrides && p.ManualMapping != "" {
		overrides, w, err := l.LoadManualMapping(p.ManualMapping)
		if err != nil {
			return in, nil, err
		}
		in.Overrides = overrides
		warnings = w
	}
	return in, warnings, nil
}
