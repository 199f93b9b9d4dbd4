package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/solatis/callwarden/internal/checker"
	"github.com/solatis/callwarden/internal/core/db"
	"github.com/solatis/callwarden/internal/core/metrics"
	"github.com/solatis/callwarden/internal/core/report"
	"github.com/solatis/callwarden/internal/rules"
	"github.com/solatis/callwarden/internal/types"
)

var checkCmd = &cobra.Command{
	Use:   "check [packages]",
	Short: "Check packages for unwanted method calls",
	Long: `Check loads the given packages (default ./...) and reports every call to an
unwanted method. Rules come from --rules, the rules_file setting, or an
unwanted_method_calls.{json,yaml,yml} file in the working directory.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("dir", "", "directory to load packages from (default: working directory)")
	checkCmd.Flags().String("rules", "", "unwanted method rule file")
	checkCmd.Flags().StringSlice("exclude", nil, "glob patterns of files to skip (repeatable)")
	checkCmd.Flags().Bool("tests", false, "also check _test.go files")
	checkCmd.Flags().Int("concurrency", 0, "packages checked in parallel (0 = GOMAXPROCS)")
	checkCmd.Flags().String("output", "text", "output format (text, json)")
	checkCmd.Flags().String("metrics-file", "", "write Prometheus textfile metrics to this path")
	checkCmd.Flags().Bool("fail-on-violation", true, "exit with status 1 when violations are found")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("rules") {
		cfg.RulesFile, _ = flags.GetString("rules")
	}
	if flags.Changed("exclude") {
		cfg.ExcludePaths, _ = flags.GetStringSlice("exclude")
	}
	if flags.Changed("tests") {
		cfg.IncludeTests, _ = flags.GetBool("tests")
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("output") {
		cfg.Output, _ = flags.GetString("output")
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile, _ = flags.GetString("metrics-file")
	}
	if flags.Changed("fail-on-violation") {
		cfg.FailOnViolation, _ = flags.GetBool("fail-on-violation")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)

	dir, _ := flags.GetString("dir")
	rulesFile := cfg.RulesFile
	if rulesFile == "" {
		rulesFile = rules.DiscoverConfigFile(dirOrCurrent(dir))
	}
	// A malformed rule file stops the run; only an absent one means "no rules".
	rs, err := rules.LoadFile(rulesFile)
	if err != nil {
		return err
	}
	logger.Info("loaded unwanted method rules", "file", rulesFile, "rules", rs.Len(), "digest", rs.Digest())

	m := metrics.New(prometheus.NewRegistry())
	engine := rules.NewEngine(rs, rules.WithObserver(m))
	defer engine.Close()

	c, err := checker.New(engine, checker.Options{
		Patterns:     args,
		Dir:          dir,
		IncludeTests: cfg.IncludeTests,
		ExcludePaths: cfg.ExcludePaths,
		Concurrency:  cfg.Concurrency,
	}, logger)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	finished := time.Now()

	if err := report.Write(cmd.OutOrStdout(), cfg.Output, result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info(report.Summary(result), "elapsed", finished.Sub(started).Round(time.Millisecond))

	m.ObserveRun(rs.Len(), result.Packages, finished.Sub(started))
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	if cfg.DatabaseURL != "" {
		run := &db.Run{
			StartedAt:   started,
			FinishedAt:  finished,
			Patterns:    strings.Join(args, " "),
			RulesFile:   rulesFile,
			RulesDigest: rs.Digest(),
			RuleCount:   rs.Len(),
			Packages:    result.Packages,
			CallSites:   result.CallSites,
		}
		if err := recordRun(ctx, cfg.DatabaseURL, run, result.Findings); err != nil {
			return err
		}
		logger.Info("recorded run", "run_id", run.ID)
	}

	if len(result.Findings) > 0 && cfg.FailOnViolation {
		return types.ErrViolationsFound
	}
	return nil
}

func recordRun(ctx context.Context, url string, run *db.Run, findings []checker.Finding) error {
	database, err := db.Open(url)
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
	if err := store.RecordRun(ctx, run, findings); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func dirOrCurrent(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
