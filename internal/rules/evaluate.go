// internal/rules/evaluate.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/callwarden/internal/types"
)

/*
 * Call-site evaluation.
 *
 * Evaluates one resolved call site against every rule of a RuleSet and
 * returns the violations it produces.
 *
 * Evaluation flow, per rule in insertion order:
 *   1. Caller exclusion: a present caller listed in excludedCallers vetoes
 *      the rule for this call site, whatever the callee
 *   2. Nominal match: calleeType == typeNamespace && calleeMember ==
 *      methodName, exact and case-sensitive (no overloads, no inheritance,
 *      no prefix or wildcard matching)
 *   3. Emit a Violation carrying the rule and the call site's location
 *
 * No deduplication: two rules naming the same member both fire.
 *
 * Evaluate reads only its arguments and allocates only its result, so any
 * number of goroutines may call it against the same RuleSet.
 */

// Violation records one call site breaking one rule.
type Violation struct {
	Rule       CompiledRule
	RuleIndex  int    // position of Rule in the rule set
	Offender   string // CalleeType + "." + CalleeMember
	CallerType string // empty when the call had no calling type
	Location   any
	Source     string // rule file path, empty for in-memory rule sets
}

// Message formats the diagnostic text for the violation.
func (v Violation) Message() string {
	msg := fmt.Sprintf("unwanted method %q called", v.Offender)
	if reason := strings.TrimSpace(v.Rule.Reason); reason != "" {
		msg += ": " + reason
	}
	return msg
}

// Hint tells the user how to allow the call.
func (v Violation) Hint() string {
	if v.CallerType == "" {
		return fmt.Sprintf("calls to %s are not allowed outside an excluded type", v.Offender)
	}
	file := v.Source
	if file == "" {
		file = "the unwanted method rule file"
	}
	return fmt.Sprintf("if %s should be allowed to call this method, add it to excludedCallers for %s in %s",
		v.CallerType, v.Rule.Qualified(), file)
}

// Evaluate returns the violations site produces against rs, in rule order.
// A nil or empty rule set never produces violations.
func Evaluate(rs *RuleSet, site types.CallSite) []Violation {
	if rs.IsEmpty() {
		return nil
	}

	var out []Violation
	for i := range rs.rules {
		rule := &rs.rules[i]

		if site.HasCaller() && rule.Excludes(site.CallerType) {
			continue
		}
		if !rule.Matches(site) {
			continue
		}

		out = append(out, Violation{
			Rule:       *rule,
			RuleIndex:  i,
			Offender:   site.QualifiedCallee(),
			CallerType: site.CallerType,
			Location:   site.Location,
			Source:     rs.source,
		})
	}
	return out
}
