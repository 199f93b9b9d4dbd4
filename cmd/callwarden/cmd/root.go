package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/callwarden/internal/core/config"
	"github.com/solatis/callwarden/internal/core/logging"
	"github.com/solatis/callwarden/internal/types"
)

// Exit codes returned by Execute.
const (
	ExitOK         = 0
	ExitViolations = 1
	ExitError      = 2
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "callwarden",
	Short: "Report calls to unwanted methods in Go code",
	Long: `callwarden checks Go packages against a list of unwanted methods and
reports every call to one of them, except from the calling types each rule
explicitly allows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "run history database URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (json, text)")
}

// Execute runs the root command and maps its error to an exit code.
// SIGINT and SIGTERM cancel the command's context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, types.ErrViolationsFound):
		return ExitViolations
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitError
	}
}

// loadConfig applies CLI flags over viper's env > file > defaults layering.
func loadConfig(cmd *cobra.Command) (*config.CheckConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.DatabaseURL = dbURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.CheckConfig) *slog.Logger {
	logger := logging.New(cfg.Log.Format, cfg.Log.Level, os.Stderr)
	slog.SetDefault(logger)
	return logger
}
