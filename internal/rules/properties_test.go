package rules

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/callwarden/internal/types"
)

func identifier() gopter.Gen {
	return gen.Identifier()
}

func buildFromEntries(entries []types.UnwantedMethod) (*RuleSet, error) {
	data, err := json.Marshal(types.RuleFile{UnwantedMethods: entries})
	if err != nil {
		return nil, err
	}
	return Build(data)
}

func TestProperty_BuildKeepsEveryEntryInOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("N well-formed entries yield N rules in input order", prop.ForAll(
		func(namespaces []string, method string) bool {
			entries := make([]types.UnwantedMethod, len(namespaces))
			for i, ns := range namespaces {
				entries[i] = types.UnwantedMethod{TypeNamespace: ns, MethodName: method}
			}

			rs, err := buildFromEntries(entries)
			if err != nil {
				return false
			}
			if rs.Len() != len(entries) {
				return false
			}
			for i, r := range rs.Rules() {
				if r.TypeNamespace != namespaces[i] || r.MethodName != method {
					return false
				}
			}
			return true
		},
		gen.SliceOf(identifier()),
		identifier(),
	))

	properties.TestingRun(t)
}

func TestProperty_ExclusionVetoIsAbsolute(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("excluded caller never produces a violation", prop.ForAll(
		func(typeName, method, caller string, others []string) bool {
			entry := types.UnwantedMethod{
				TypeNamespace:   typeName,
				MethodName:      method,
				ExcludedCallers: append(others, caller),
			}
			rs, err := buildFromEntries([]types.UnwantedMethod{entry})
			if err != nil {
				return false
			}

			site := types.CallSite{CallerType: caller, CalleeType: typeName, CalleeMember: method}
			return len(Evaluate(rs, site)) == 0
		},
		identifier(),
		identifier(),
		identifier(),
		gen.SliceOf(identifier()),
	))

	properties.TestingRun(t)
}

func TestProperty_MatchingIsCaseSensitive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("case-changed callee never matches", prop.ForAll(
		func(typeName, method string, upperType bool) bool {
			rs := NewRuleSet(CompiledRule{TypeNamespace: typeName, MethodName: method})

			site := types.CallSite{CallerType: "Caller", CalleeType: typeName, CalleeMember: method}
			if upperType {
				site.CalleeType = strings.ToUpper(typeName)
			} else {
				site.CalleeMember = strings.ToUpper(method)
			}

			matched := len(Evaluate(rs, site)) > 0
			// Identifiers already all upper case are unchanged and must still match.
			unchanged := site.CalleeType == typeName && site.CalleeMember == method
			return matched == unchanged
		},
		identifier(),
		identifier(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_EvaluateIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("identical inputs yield identical output sequences", prop.ForAll(
		func(count int, caller string, excludeEvery int) bool {
			rules := make([]CompiledRule, count)
			for i := range rules {
				m := types.UnwantedMethod{
					TypeNamespace: "T",
					MethodName:    "M",
					Reason:        fmt.Sprintf("rule %d", i),
				}
				if excludeEvery > 0 && i%excludeEvery == 0 {
					m.ExcludedCallers = []string{caller}
				}
				compiled, err := Compile(&m)
				if err != nil {
					return false
				}
				rules[i] = *compiled
			}
			rs := NewRuleSet(rules...)
			site := types.CallSite{CallerType: caller, CalleeType: "T", CalleeMember: "M"}

			first := Evaluate(rs, site)
			second := Evaluate(rs, site)
			if !reflect.DeepEqual(first, second) {
				return false
			}
			for i := 1; i < len(first); i++ {
				if first[i-1].RuleIndex >= first[i].RuleIndex {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 20),
		identifier(),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

func TestProperty_DuplicateRulesAllFire(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("k rules on the same member yield k violations", prop.ForAll(
		func(k int, typeName, method string) bool {
			rules := make([]CompiledRule, k)
			for i := range rules {
				rules[i] = CompiledRule{TypeNamespace: typeName, MethodName: method}
			}
			rs := NewRuleSet(rules...)
			site := types.CallSite{CallerType: "Caller", CalleeType: typeName, CalleeMember: method}
			return len(Evaluate(rs, site)) == k
		},
		gen.IntRange(1, 10),
		identifier(),
		identifier(),
	))

	properties.TestingRun(t)
}
