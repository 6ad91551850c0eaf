package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leed-ll97/internal/config"
	"github.com/leed-ll97/internal/logging"
)

var (
	settings   *config.Settings
	configFile string
	logLevel   string
	logFormat  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "matcher",
		Short:         "LEED to NYC LL84/LL97 building matching",
		Long:          `Links LEED-certified projects to NYC energy grade, benchmarking and LL97 records and writes a master table plus a review queue`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if logLevel != "" {
				s.LogLevel = logLevel
			}
			if logFormat != "" {
				s.LogFormat = logFormat
			}
			logging.Configure(&logging.Config{Level: s.LogLevel, Format: s.LogFormat, Output: "stderr"})
			settings = s
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default leedlink.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (json, console, auto)")

	rootCmd.AddCommand(createMatchCmd())
	rootCmd.AddCommand(createNormalizeCmd())
	rootCmd.AddCommand(createDBCmd())
	rootCmd.AddCommand(createOverridesCmd())

	return rootCmd
}
