package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for callwarden operations.
var (
	// ErrInvalidConfiguration indicates a rule file that is present but not
	// valid per the rule file schema. Every ConfigurationFormatError matches it.
	ErrInvalidConfiguration = errors.New("invalid unwanted method configuration")

	// ErrUnsupportedFormat indicates a rule file format other than JSON or YAML.
	ErrUnsupportedFormat = errors.New("unsupported rule file format")

	// ErrViolationsFound indicates a check run reported at least one violation.
	ErrViolationsFound = errors.New("unwanted method calls found")

	// ErrPackageLoad indicates packages that failed to load or type-check.
	ErrPackageLoad = errors.New("package load failed")
)

// ConfigurationFormatError reports a rule file that could not be turned into
// a rule set. Entry is the zero-based index of the offending unwantedMethods
// element, or -1 when the document itself is malformed.
type ConfigurationFormatError struct {
	Format string
	Entry  int
	Err    error
}

func (e *ConfigurationFormatError) Error() string {
	if e.Entry >= 0 {
		return fmt.Sprintf("%s rule configuration: unwantedMethods[%d]: %v", e.Format, e.Entry, e.Err)
	}
	return fmt.Sprintf("%s rule configuration: %v", e.Format, e.Err)
}

func (e *ConfigurationFormatError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidConfiguration) true for every format error.
func (e *ConfigurationFormatError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}
