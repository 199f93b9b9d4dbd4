// internal/rules/evaluate_test.go
package rules

import (
	"reflect"
	"testing"

	"github.com/solatis/callwarden/internal/types"
)

const ignoredCallerConfig = `{
  "unwantedMethods": [
    {
      "typeNamespace": "System.Diagnostics.Process",
      "methodName": "Start",
      "excludedCallers": ["ConsoleApplication1.ShouldBeIgnored"]
    }
  ]
}`

func mustBuild(t *testing.T, data string) *RuleSet {
	t.Helper()
	rs, err := Build([]byte(data))
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	return rs
}

func TestEvaluate_Match(t *testing.T) {
	rs := mustBuild(t, ignoredCallerConfig)

	site := types.CallSite{
		CallerType:   "ConsoleApplication1.TypeName",
		CalleeType:   "System.Diagnostics.Process",
		CalleeMember: "Start",
		Location:     "Program.cs:14:13",
	}

	got := Evaluate(rs, site)
	if len(got) != 1 {
		t.Fatalf("len(Evaluate()) = %v, want 1", len(got))
	}
	if got[0].Offender != "System.Diagnostics.Process.Start" {
		t.Errorf("Offender = %v, want System.Diagnostics.Process.Start", got[0].Offender)
	}
	if got[0].CallerType != "ConsoleApplication1.TypeName" {
		t.Errorf("CallerType = %v, want ConsoleApplication1.TypeName", got[0].CallerType)
	}
	if got[0].Location != "Program.cs:14:13" {
		t.Errorf("Location = %v, want passthrough", got[0].Location)
	}
	if got[0].RuleIndex != 0 {
		t.Errorf("RuleIndex = %v, want 0", got[0].RuleIndex)
	}
}

func TestEvaluate_ExcludedCaller(t *testing.T) {
	rs := mustBuild(t, ignoredCallerConfig)

	got := Evaluate(rs, types.CallSite{
		CallerType:   "ConsoleApplication1.ShouldBeIgnored",
		CalleeType:   "System.Diagnostics.Process",
		CalleeMember: "Start",
	})
	if len(got) != 0 {
		t.Errorf("len(Evaluate()) = %v, want 0 (excluded caller)", len(got))
	}
}

func TestEvaluate_MethodMismatch(t *testing.T) {
	rs := mustBuild(t, ignoredCallerConfig)

	got := Evaluate(rs, types.CallSite{
		CallerType:   "X",
		CalleeType:   "System.Diagnostics.Process",
		CalleeMember: "Kill",
	})
	if len(got) != 0 {
		t.Errorf("len(Evaluate()) = %v, want 0 (method mismatch)", len(got))
	}
}

func TestEvaluate_EmptyRuleSet(t *testing.T) {
	site := types.CallSite{CallerType: "X", CalleeType: "System.Diagnostics.Process", CalleeMember: "Start"}

	for name, data := range map[string]string{"empty": "", "empty object": "{}"} {
		t.Run(name, func(t *testing.T) {
			rs := mustBuild(t, data)
			if got := Evaluate(rs, site); len(got) != 0 {
				t.Errorf("len(Evaluate()) = %v, want 0", len(got))
			}
		})
	}

	t.Run("nil", func(t *testing.T) {
		if got := Evaluate(nil, site); got != nil {
			t.Errorf("Evaluate(nil) = %v, want nil", got)
		}
	})
}

func TestEvaluate_DuplicateRulesBothFire(t *testing.T) {
	rs := mustBuild(t, `{"unwantedMethods": [
		{"typeNamespace": "System.Diagnostics.Process", "methodName": "Start", "reason": "first"},
		{"typeNamespace": "System.Diagnostics.Process", "methodName": "Start", "reason": "second"}
	]}`)

	got := Evaluate(rs, types.CallSite{
		CallerType:   "App.Main",
		CalleeType:   "System.Diagnostics.Process",
		CalleeMember: "Start",
	})
	if len(got) != 2 {
		t.Fatalf("len(Evaluate()) = %v, want 2", len(got))
	}
	if got[0].Rule.Reason != "first" || got[1].Rule.Reason != "second" {
		t.Errorf("reasons = %q, %q, want rule insertion order", got[0].Rule.Reason, got[1].Rule.Reason)
	}
	if got[0].RuleIndex != 0 || got[1].RuleIndex != 1 {
		t.Errorf("RuleIndex = %v, %v, want 0, 1", got[0].RuleIndex, got[1].RuleIndex)
	}
}

func TestEvaluate_ExclusionIsPerRule(t *testing.T) {
	rs := mustBuild(t, `{"unwantedMethods": [
		{"typeNamespace": "T", "methodName": "M", "excludedCallers": ["Trusted"]},
		{"typeNamespace": "T", "methodName": "M"}
	]}`)

	got := Evaluate(rs, types.CallSite{CallerType: "Trusted", CalleeType: "T", CalleeMember: "M"})
	if len(got) != 1 {
		t.Fatalf("len(Evaluate()) = %v, want 1", len(got))
	}
	if got[0].RuleIndex != 1 {
		t.Errorf("RuleIndex = %v, want 1 (second rule has no exclusion)", got[0].RuleIndex)
	}
}

func TestEvaluate_AbsentCallerNeverExcluded(t *testing.T) {
	rs := mustBuild(t, `{"unwantedMethods": [
		{"typeNamespace": "T", "methodName": "M", "excludedCallers": ["Trusted"]}
	]}`)

	got := Evaluate(rs, types.CallSite{CalleeType: "T", CalleeMember: "M"})
	if len(got) != 1 {
		t.Fatalf("len(Evaluate()) = %v, want 1", len(got))
	}
	if got[0].CallerType != "" {
		t.Errorf("CallerType = %q, want empty", got[0].CallerType)
	}
}

func TestEvaluate_CaseSensitive(t *testing.T) {
	rs := mustBuild(t, ignoredCallerConfig)

	tests := []struct {
		name string
		site types.CallSite
	}{
		{"lower type", types.CallSite{CallerType: "X", CalleeType: "system.diagnostics.process", CalleeMember: "Start"}},
		{"lower member", types.CallSite{CallerType: "X", CalleeType: "System.Diagnostics.Process", CalleeMember: "start"}},
		{"namespace prefix", types.CallSite{CallerType: "X", CalleeType: "System.Diagnostics", CalleeMember: "Start"}},
		{"derived type", types.CallSite{CallerType: "X", CalleeType: "System.Diagnostics.ProcessEx", CalleeMember: "Start"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(rs, tt.site); len(got) != 0 {
				t.Errorf("len(Evaluate()) = %v, want 0", len(got))
			}
		})
	}

	t.Run("excluded caller case", func(t *testing.T) {
		got := Evaluate(rs, types.CallSite{
			CallerType:   "consoleapplication1.shouldbeignored",
			CalleeType:   "System.Diagnostics.Process",
			CalleeMember: "Start",
		})
		if len(got) != 1 {
			t.Errorf("len(Evaluate()) = %v, want 1 (exclusion is case-sensitive)", len(got))
		}
	})
}

func TestEvaluate_Deterministic(t *testing.T) {
	rs := mustBuild(t, `{"unwantedMethods": [
		{"typeNamespace": "T", "methodName": "M", "reason": "a"},
		{"typeNamespace": "U", "methodName": "M"},
		{"typeNamespace": "T", "methodName": "M", "reason": "b"}
	]}`)
	site := types.CallSite{CallerType: "C", CalleeType: "T", CalleeMember: "M", Location: 42}

	first := Evaluate(rs, site)
	second := Evaluate(rs, site)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Evaluate() not deterministic: %v vs %v", first, second)
	}
}

func TestViolation_Message(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		want   string
	}{
		{"no reason", "", `unwanted method "os/exec.Command" called`},
		{"blank reason", "  ", `unwanted method "os/exec.Command" called`},
		{"reason", "use the sandbox runner", `unwanted method "os/exec.Command" called: use the sandbox runner`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Violation{
				Rule:     CompiledRule{TypeNamespace: "os/exec", MethodName: "Command", Reason: tt.reason},
				Offender: "os/exec.Command",
			}
			if got := v.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestViolation_Hint(t *testing.T) {
	rule := CompiledRule{TypeNamespace: "os/exec", MethodName: "Command"}
	tests := []struct {
		name string
		v    Violation
		want string
	}{
		{
			name: "rule file known",
			v:    Violation{Rule: rule, Offender: "os/exec.Command", CallerType: "example.com/app.Runner", Source: "policy/rules.yaml"},
			want: "if example.com/app.Runner should be allowed to call this method, add it to excludedCallers for os/exec.Command in policy/rules.yaml",
		},
		{
			name: "in-memory rules",
			v:    Violation{Rule: rule, Offender: "os/exec.Command", CallerType: "example.com/app.Runner"},
			want: "if example.com/app.Runner should be allowed to call this method, add it to excludedCallers for os/exec.Command in the unwanted method rule file",
		},
		{
			name: "no caller",
			v:    Violation{Rule: rule, Offender: "os/exec.Command"},
			want: "calls to os/exec.Command are not allowed outside an excluded type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Hint(); got != tt.want {
				t.Errorf("Hint() = %q, want %q", got, tt.want)
			}
		})
	}
}
