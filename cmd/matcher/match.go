package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/leed-ll97/internal/audit"
	"github.com/leed-ll97/internal/db"
	"github.com/leed-ll97/internal/export"
	import_pkg "github.com/leed-ll97/internal/import"
	"github.com/leed-ll97/internal/logging"
	"github.com/leed-ll97/internal/match"
	"github.com/leed-ll97/internal/normalize"
	"github.com/leed-ll97/internal/postal"
)

// matchOptions is everything one run needs after flags and settings are
// merged.
type matchOptions struct {
	Config     match.Config
	Inputs     inputPaths
	OutDir     string
	ReportYear int
	Workers    int
	WriteXLSX  bool
	Parser     string
	Debug      bool

	// ExtraOverrides are appended after the manual mapping file, so they
	// win for the same source.
	ExtraOverrides []match.ManualOverride
}

// matchOutcome is a finished run and the files it wrote.
type matchOutcome struct {
	Result  *match.Result
	Written []string
	Started time.Time
}

func createMatchCmd() *cobra.Command {
	var (
		dataDir, outDir, mappingPath, parserName string
		reportYear, workers                      int
		addrThreshold, nameThreshold, minConf    int
		useMapping, addressOnly, sameZIP         bool
		withXLSX, saveDB, overridesFromDB, debug bool
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run the matching cascade and write the master table and review queue",
		Long: `Loads the cleaned LEED registry and the NYC municipal datasets, merges the
municipal datasets into one candidate per building, runs the match cascade,
resolves one-to-one conflicts, applies reviewer overrides and writes
master_matched_<year>.csv and review_queue_<year>.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settings
			flags := cmd.Flags()
			if flags.Changed("data-dir") {
				s.DataDir = dataDir
			}
			if flags.Changed("address-threshold") {
				s.AddressThreshold = addrThreshold
			}
			if flags.Changed("name-threshold") {
				s.NameThreshold = nameThreshold
			}
			if flags.Changed("min-confidence") {
				s.MinMatchConfidence = minConf
			}
			if flags.Changed("use-manual-mapping") || overridesFromDB {
				s.UseManualMapping = useMapping || overridesFromDB
			}
			if flags.Changed("address-only-tier") {
				s.AddressOnlyTier = addressOnly
			}
			if flags.Changed("fuzzy-same-zip") {
				s.FuzzyAddressSameZIP = sameZIP
			}
			if flags.Changed("workers") {
				s.MatchWorkers = workers
			}
			if flags.Changed("report-year") {
				s.ReportYear = reportYear
			}
			if flags.Changed("manual-mapping") {
				s.ManualMappingPath = mappingPath
			}
			if outDir == "" {
				outDir = s.MatchedDir()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := logging.WithComponent("matcher")

			opts := &matchOptions{
				Config:     s.MatchConfig(),
				Inputs:     defaultInputs(s.CleanedDir(), s.ManualMappingPath),
				OutDir:     outDir,
				ReportYear: s.ReportYear,
				Workers:    s.MatchWorkers,
				WriteXLSX:  withXLSX,
				Parser:     parserName,
				Debug:      debug,
			}

			var store *audit.Store
			if saveDB || overridesFromDB {
				conn, err := db.NewConnection(ctx, s.DatabaseURL, s.DBMaxConnections)
				if err != nil {
					return err
				}
				defer conn.Close()
				store = audit.NewStore(conn.DB)
				if err := store.Migrate(ctx); err != nil {
					return err
				}
			}
			if overridesFromDB {
				stored, err := store.ManualOverrides(ctx)
				if err != nil {
					return err
				}
				log.Info().Int("overrides", len(stored)).Msg("Loaded reviewer overrides from database")
				opts.ExtraOverrides = stored
			}

			out, err := runMatch(ctx, opts, log)
			if err != nil {
				return err
			}
			printSummary(cmd, out)

			if saveDB {
				runID, err := store.SaveRun(ctx, debug, out.Result, opts.ReportYear, out.Started)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved run %s\n", runID)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataDir, "data-dir", "", "Data directory holding cleaned/ (overrides DATA_DIR)")
	f.StringVar(&outDir, "out-dir", "", "Output directory (default <data-dir>/matched)")
	f.StringVar(&mappingPath, "manual-mapping", "", "Manual mapping CSV (overrides MANUAL_MAPPING_PATH)")
	f.StringVar(&parserName, "parser", "builtin", "Address parser: builtin or libpostal")
	f.IntVar(&reportYear, "report-year", 0, "Report year used in output file names")
	f.IntVar(&workers, "workers", 0, "Cascade workers (0 = GOMAXPROCS)")
	f.IntVar(&addrThreshold, "address-threshold", 0, "Fuzzy address threshold (0-100)")
	f.IntVar(&nameThreshold, "name-threshold", 0, "Fuzzy name threshold (0-100)")
	f.IntVar(&minConf, "min-confidence", 0, "Minimum accepted confidence; lower goes to review")
	f.BoolVar(&useMapping, "use-manual-mapping", false, "Apply reviewer overrides")
	f.BoolVar(&addressOnly, "address-only-tier", false, "Enable the exact address without ZIP tier")
	f.BoolVar(&sameZIP, "fuzzy-same-zip", false, "Restrict fuzzy address matching to the source ZIP")
	f.BoolVar(&withXLSX, "xlsx", false, "Also write the review queue as an Excel workbook")
	f.BoolVar(&saveDB, "save-db", false, "Store the run in PostgreSQL for the review API")
	f.BoolVar(&overridesFromDB, "overrides-from-db", false, "Apply overrides stored by the review API (implies --use-manual-mapping)")
	f.BoolVar(&debug, "debug", false, "Trace every cascade decision")

	return cmd
}

// newAddressNormalizer picks the structured parser by name.
func newAddressNormalizer(name string, debug bool) (*normalize.AddressNormalizer, error) {
	switch strings.ToLower(name) {
	case "", "builtin":
		return normalize.NewAddressNormalizer(nil).WithDebug(debug), nil
	case "libpostal":
		p, err := postal.New()
		if err != nil {
			return nil, err
		}
		return normalize.NewAddressNormalizer(p).WithDebug(debug), nil
	default:
		return nil, fmt.Errorf("unknown parser %q (want builtin or libpostal)", name)
	}
}

// runMatch loads inputs, runs the pipeline and writes the outputs.
func runMatch(ctx context.Context, o *matchOptions, log zerolog.Logger) (*matchOutcome, error) {
	started := time.Now()

	addr, err := newAddressNormalizer(o.Parser, o.Debug)
	if err != nil {
		return nil, err
	}
	loader := import_pkg.NewLoader(addr, logging.WithComponent("import"))

	in, loadWarnings, err := loadInput(loader, o.Inputs, o.Config.UseManualMapping, log)
	if err != nil {
		return nil, err
	}
	in.Overrides = append(in.Overrides, o.ExtraOverrides...)

	res, err := match.Run(ctx, o.Config, in,
		match.WithLogger(logging.WithComponent("match")),
		match.WithWorkers(o.Workers),
		match.WithDebug(o.Debug),
	)
	if err != nil {
		return nil, err
	}
	if len(loadWarnings) > 0 {
		res.Warnings = append(loadWarnings, res.Warnings...)
		res.Stats.Warnings = len(res.Warnings)
	}

	written, err := export.WriteResult(export.PathsFor(o.OutDir, o.ReportYear), res, o.WriteXLSX)
	if err != nil {
		return nil, err
	}
	for _, path := range written {
		log.Info().Str("file", path).Msg("Wrote output")
	}
	return &matchOutcome{Result: res, Written: written, Started: started}, nil
}

func printSummary(cmd *cobra.Command, out *matchOutcome) {
	st := out.Result.Stats
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Sources:            %d\n", st.Total)
	fmt.Fprintf(w, "Matched:            %d (%.1f%%)\n", st.Matched, 100*st.MatchRate())
	fmt.Fprintf(w, "Review queue:       %d\n", st.ReviewQueue)
	fmt.Fprintf(w, "Conflicts demoted:  %d\n", st.ConflictsDemoted)
	fmt.Fprintf(w, "Overrides applied:  %d\n", st.OverridesApplied)
	fmt.Fprintf(w, "Warnings:           %d\n", st.Warnings)
	for _, m := range match.Methods {
		if n := st.ByMethod[m]; n > 0 {
			fmt.Fprintf(w, "  %-22s %d\n", m, n)
		}
	}
	for _, path := range out.Written {
		fmt.Fprintf(w, "Wrote %s\n", path)
	}
}
