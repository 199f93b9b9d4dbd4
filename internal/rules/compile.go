// internal/rules/compile.go
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/solatis/callwarden/internal/types"
)

/*
 * Rule set compilation and validation.
 *
 * Compiles the decoded rule file into an immutable RuleSet of CompiledRule
 * values ready for per-call-site evaluation.
 *
 * Compilation workflow:
 *   1. Treat nil/blank input as "no configuration" (empty set, no error)
 *   2. Decode the document (JSON or YAML) into types.RuleFile
 *   3. Validate each entry (typeNamespace, methodName required)
 *   4. Normalize: legacy aliases merged, excluded callers collapsed to a set
 *   5. Preserve file order; no deduplication across entries
 *
 * Malformed input always fails with *types.ConfigurationFormatError. A rule
 * file that cannot be read must stop the session rather than silently
 * disable every check.
 */

// Format identifies the encoding of a rule file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// FormatFromPath picks the rule file format from its extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// CompiledRule is a validated, normalized unwanted method rule.
type CompiledRule struct {
	TypeNamespace string
	MethodName    string
	Reason        string
	excluded      map[string]struct{}
}

// Qualified returns TypeNamespace + "." + MethodName.
func (r *CompiledRule) Qualified() string {
	return r.TypeNamespace + "." + r.MethodName
}

// Excludes reports whether caller is exempt from this rule.
func (r *CompiledRule) Excludes(caller string) bool {
	_, ok := r.excluded[caller]
	return ok
}

// ExcludedCallers returns the exempt caller types, sorted.
func (r *CompiledRule) ExcludedCallers() []string {
	out := make([]string, 0, len(r.excluded))
	for c := range r.excluded {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Matches reports whether the call site targets this rule's member.
// Exact, case-sensitive comparison; a rule missing either name is inert.
func (r *CompiledRule) Matches(site types.CallSite) bool {
	if r.TypeNamespace == "" || r.MethodName == "" {
		return false
	}
	return site.CalleeType == r.TypeNamespace && site.CalleeMember == r.MethodName
}

// RuleSet is the immutable collection of rules for one analysis session.
// The zero value and nil are both empty sets.
type RuleSet struct {
	rules  []CompiledRule
	source string
}

// NewRuleSet builds a rule set from already compiled rules, in order.
func NewRuleSet(rules ...CompiledRule) *RuleSet {
	out := make([]CompiledRule, len(rules))
	copy(out, rules)
	return &RuleSet{rules: out}
}

// IsEmpty reports whether the set holds no rules. Hosts use it to skip
// registering per-call-site evaluation entirely.
func (rs *RuleSet) IsEmpty() bool {
	return rs == nil || len(rs.rules) == 0
}

// Source returns the path the rules were loaded from, or "" when they were
// built from memory.
func (rs *RuleSet) Source() string {
	if rs == nil {
		return ""
	}
	return rs.source
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Rules returns a copy of the rules in insertion order.
func (rs *RuleSet) Rules() []CompiledRule {
	if rs == nil {
		return nil
	}
	out := make([]CompiledRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report rule file key names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Build compiles JSON rule configuration. Nil or blank data means no
// configuration exists and yields an empty set.
func Build(data []byte) (*RuleSet, error) {
	return BuildFormat(data, FormatJSON)
}

// BuildFormat compiles rule configuration in the given format.
func BuildFormat(data []byte, format Format) (*RuleSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &RuleSet{}, nil
	}

	file, err := decode(data, format)
	if err != nil {
		return nil, &types.ConfigurationFormatError{Format: format.String(), Entry: -1, Err: err}
	}

	rs := &RuleSet{rules: make([]CompiledRule, 0, len(file.UnwantedMethods))}
	for i := range file.UnwantedMethods {
		compiled, err := Compile(&file.UnwantedMethods[i])
		if err != nil {
			return nil, &types.ConfigurationFormatError{Format: format.String(), Entry: i, Err: err}
		}
		rs.rules = append(rs.rules, *compiled)
	}

	return rs, nil
}

func decode(data []byte, format Format) (*types.RuleFile, error) {
	var file types.RuleFile
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := decodeYAML(data, &file); err != nil {
			return nil, err
		}
	default:
		return nil, types.ErrUnsupportedFormat
	}
	return &file, nil
}

// Rule file keys whose YAML values must be strings. yaml.v3 would otherwise
// turn 123 or true into "123" and "true".
var (
	yamlStringKeys = map[string]bool{
		"typeNamespace":  true,
		"methodName":     true,
		"reason":         true,
		"unwantedReason": true,
	}
	yamlListKeys = map[string]bool{
		"excludedCallers":      true,
		"excludeCheckingTypes": true,
	}
)

// decodeYAML decodes data into file, rejecting non-string scalars where the
// rule file schema expects strings.
func decodeYAML(data []byte, file *types.RuleFile) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Kind == 0 {
		return nil
	}
	if err := checkYAMLStrings(&doc); err != nil {
		return err
	}
	return doc.Decode(file)
}

func checkYAMLStrings(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i].Value, n.Content[i+1]
			switch {
			case yamlStringKeys[key]:
				if err := requireYAMLString(key, val); err != nil {
					return err
				}
			case yamlListKeys[key] && val.Kind == yaml.SequenceNode:
				for _, item := range val.Content {
					if err := requireYAMLString(key+" element", item); err != nil {
						return err
					}
				}
			}
		}
	}
	for _, c := range n.Content {
		if err := checkYAMLStrings(c); err != nil {
			return err
		}
	}
	return nil
}

func requireYAMLString(field string, n *yaml.Node) error {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind == yaml.ScalarNode {
		switch n.ShortTag() {
		case "!!str", "!!null":
			return nil
		}
		return fmt.Errorf("line %d: %s must be a string, got %s %q", n.Line, field, strings.TrimPrefix(n.ShortTag(), "!!"), n.Value)
	}
	return fmt.Errorf("line %d: %s must be a string", n.Line, field)
}

// Compile validates and normalizes a single rule file entry.
func Compile(m *types.UnwantedMethod) (*CompiledRule, error) {
	if err := validate.Struct(m); err != nil {
		return nil, formatValidationErrors(err)
	}

	reason := m.Reason
	if reason == "" {
		reason = m.UnwantedReason
	}

	excluded := make(map[string]struct{}, len(m.ExcludedCallers)+len(m.ExcludeCheckingTypes))
	for _, list := range [][]string{m.ExcludedCallers, m.ExcludeCheckingTypes} {
		for _, caller := range list {
			if caller == "" {
				continue
			}
			excluded[caller] = struct{}{}
		}
	}

	return &CompiledRule{
		TypeNamespace: m.TypeNamespace,
		MethodName:    m.MethodName,
		Reason:        reason,
		excluded:      excluded,
	}, nil
}

// formatValidationErrors converts validator.ValidationErrors to rule file messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
