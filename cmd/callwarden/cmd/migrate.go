package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/solatis/callwarden/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply run history database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "show migration status without applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if status, _ := cmd.Flags().GetBool("status"); status {
		statuses, err := db.MigrateStatus(ctx, database)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range statuses {
			if s.Applied && s.AppliedAt != nil {
				fmt.Fprintf(out, "applied  %s  %s  %dms\n", s.ID, s.AppliedAt.Format(time.RFC3339), s.ExecutionMs)
			} else {
				fmt.Fprintf(out, "pending  %s\n", s.ID)
			}
		}
		return nil
	}

	applied, err := db.MigrateUp(ctx, database)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "count", applied)
	return nil
}

// requireMigrated fails when the run history schema is behind the binary.
func requireMigrated(ctx context.Context, database *sqlx.DB) error {
	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			return fmt.Errorf("migration %s not applied - run 'callwarden migrate' first", s.ID)
		}
	}
	return nil
}
