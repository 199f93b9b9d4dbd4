// Package config provides configuration management for callwarden commands.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CheckConfig holds configuration for a check run.
type CheckConfig struct {
	// RulesFile is the unwanted method rule file. Empty means discover
	// unwanted_method_calls.{json,yaml,yml} in the working directory.
	RulesFile string `mapstructure:"rules_file"`

	// ExcludePaths are glob patterns of source files never checked.
	ExcludePaths []string `mapstructure:"exclude_paths"`

	IncludeTests    bool   `mapstructure:"include_tests"`
	Concurrency     int    `mapstructure:"concurrency" validate:"gte=0"`
	FailOnViolation bool   `mapstructure:"fail_on_violation"`
	Output          string `mapstructure:"output" validate:"oneof=text json"`
	MetricsFile     string `mapstructure:"metrics_file"`
	DatabaseURL     string `mapstructure:"database_url" validate:"omitempty,db_url"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// DefaultCheckConfig returns configuration with default values.
func DefaultCheckConfig() *CheckConfig {
	return &CheckConfig{
		Concurrency:     0,
		FailOnViolation: true,
		Output:          "text",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks struct tags and reports every failure in one error.
func (c *CheckConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("db_url", validateDatabaseURL); err != nil {
		return fmt.Errorf("failed to register db_url validator: %w", err)
	}
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// validateDatabaseURL accepts the schemes supported by db.Open.
func validateDatabaseURL(fl validator.FieldLevel) bool {
	url := fl.Field().String()
	return strings.HasPrefix(url, "sqlite://") || strings.HasPrefix(url, "postgres://")
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Namespace()
		switch e.Tag() {
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "gte":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		case "db_url":
			messages = append(messages, fmt.Sprintf("%s must start with sqlite:// or postgres://", field))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, e.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
