package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leed-ll97/internal/audit"
	"github.com/leed-ll97/internal/db"
	"github.com/leed-ll97/internal/match"
)

// openStore connects with the configured database settings.
func openStore(cmd *cobra.Command) (*audit.Store, func(), error) {
	conn, err := db.NewConnection(cmd.Context(), settings.DatabaseURL, settings.DBMaxConnections)
	if err != nil {
		return nil, nil, err
	}
	return audit.NewStore(conn.DB), func() { conn.Close() }, nil
}

func createDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database operations",
	}
	dbCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the run and override tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	})
	dbCmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			closeFn()
			fmt.Fprintln(cmd.OutOrStdout(), "Database connection successful!")
			return nil
		},
	})
	return dbCmd
}

func createOverridesCmd() *cobra.Command {
	overridesCmd := &cobra.Command{
		Use:   "overrides",
		Short: "Inspect and record reviewer overrides",
	}

	overridesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			overrides, err := store.ListOverrides(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tCANDIDATE\tDECISION\tDECIDED BY\tUPDATED\tNOTES")
			for _, o := range overrides {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", o.SourceID, o.CandidateID, o.Decision,
					o.DecidedBy, o.UpdatedAt.Format("2006-01-02 15:04"), o.Notes)
			}
			return tw.Flush()
		},
	})

	var candidate, notes, decidedBy string
	set := &cobra.Command{
		Use:   "set <source_id> <match|reject|skip>",
		Short: "Record a reviewer decision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := match.ManualOverride{
				SourceID:    args[0],
				CandidateID: candidate,
				Decision:    match.OverrideDecision(args[1]),
				Notes:       notes,
			}
			if !o.Decision.Valid() {
				return fmt.Errorf("decision must be match, reject or skip, got %q", args[1])
			}
			if o.Decision == match.OverrideMatch && o.CandidateID == "" {
				return fmt.Errorf("--candidate is required for match")
			}
			store, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			return store.UpsertOverride(cmd.Context(), o, decidedBy)
		},
	}
	set.Flags().StringVar(&candidate, "candidate", "", "Candidate id for a match decision")
	set.Flags().StringVar(&notes, "notes", "", "Reviewer notes")
	set.Flags().StringVar(&decidedBy, "by", "cli", "Reviewer name")
	overridesCmd.AddCommand(set)

	return overridesCmd
}
