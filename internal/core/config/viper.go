package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CALLWARDEN_RULES_FILE.
const EnvPrefix = "CALLWARDEN"

// LoadConfig loads check configuration using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller after LoadConfig returns.
func LoadConfig(configPath string) (*CheckConfig, error) {
	v := viper.New()

	d := DefaultCheckConfig()
	v.SetDefault("rules_file", d.RulesFile)
	v.SetDefault("exclude_paths", d.ExcludePaths)
	v.SetDefault("include_tests", d.IncludeTests)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("fail_on_violation", d.FailOnViolation)
	v.SetDefault("output", d.Output)
	v.SetDefault("metrics_file", d.MetricsFile)
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &CheckConfig{
		RulesFile:       v.GetString("rules_file"),
		ExcludePaths:    v.GetStringSlice("exclude_paths"),
		IncludeTests:    v.GetBool("include_tests"),
		Concurrency:     v.GetInt("concurrency"),
		FailOnViolation: v.GetBool("fail_on_violation"),
		Output:          v.GetString("output"),
		MetricsFile:     v.GetString("metrics_file"),
		DatabaseURL:     v.GetString("database_url"),
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
