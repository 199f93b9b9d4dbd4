package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/callwarden/internal/core/db"
	"github.com/solatis/callwarden/internal/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded check runs, or show the findings of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	newLogger(cfg)

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := requireMigrated(ctx, database); err != nil {
		return err
	}
	store, err := db.NewStore(database)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 0 {
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "RUN\tSTARTED\tPACKAGES\tCALL SITES\tVIOLATIONS\tRULES")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), r.Packages, r.CallSites, r.Violations, r.RuleCount)
		}
		return nil
	}

	id, err := types.ParseRunID(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	findings, err := store.ListFindings(ctx, id)
	if err != nil {
		return err
	}
	counts, err := store.CountOffenders(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "run %s (%s, rules %s)\n\n", run.ID, run.StartedAt.Local().Format(time.DateTime), run.RulesFile)
	for _, f := range findings {
		fmt.Fprintf(w, "%s:%d:%d\t%s\t%s\t%s\n", f.File, f.Line, f.Column, f.Offender, f.Caller, f.Fingerprint)
	}
	fmt.Fprintln(w)
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\n", c.Offender, c.Total)
	}
	return nil
}
