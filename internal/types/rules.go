// internal/types/rules.go
package types

/*
 * Domain types for the unwanted-method rule file.
 *
 * Provides RuleFile and UnwantedMethod structures decoded from the rule
 * configuration and consumed by internal/rules for compilation. These types
 * are format agnostic: the same struct tags serve JSON and YAML.
 *
 * Legacy keys: rule files written for the earlier analyzer use
 * "unwantedReason" and "excludeCheckingTypes". Both are accepted and merged
 * into Reason and ExcludedCallers during compilation. JSON key matching is
 * case-insensitive, so "UnwantedMethods"/"TypeNamespace" files load as-is.
 */

// UnwantedMethod is one configured prohibition as written in the rule file.
type UnwantedMethod struct {
	TypeNamespace   string   `json:"typeNamespace" yaml:"typeNamespace" validate:"required"`
	MethodName      string   `json:"methodName" yaml:"methodName" validate:"required"`
	Reason          string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	ExcludedCallers []string `json:"excludedCallers,omitempty" yaml:"excludedCallers,omitempty"`

	// Legacy aliases.
	UnwantedReason       string   `json:"unwantedReason,omitempty" yaml:"unwantedReason,omitempty"`
	ExcludeCheckingTypes []string `json:"excludeCheckingTypes,omitempty" yaml:"excludeCheckingTypes,omitempty"`
}

// RuleFile is the top-level rule configuration document.
type RuleFile struct {
	UnwantedMethods []UnwantedMethod `json:"unwantedMethods" yaml:"unwantedMethods"`
}
