package analyzer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/analysistest"

	"github.com/solatis/callwarden/internal/rules"
	"github.com/solatis/callwarden/internal/types"
)

const testRules = `{
  "unwantedMethods": [
    {
      "typeNamespace": "os/exec",
      "methodName": "Command",
      "reason": "use the sandbox runner",
      "excludedCallers": ["a.Launcher"]
    },
    {
      "typeNamespace": "os/exec.Cmd",
      "methodName": "Run"
    }
  ]
}`

func newEngine(t *testing.T, config string) *rules.Engine {
	t.Helper()
	rs, err := rules.Build([]byte(config))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	engine := rules.NewEngine(rs)
	t.Cleanup(engine.Close)
	return engine
}

func TestAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), New(newEngine(t, testRules)), "a")
}

func TestAnalyzer_SkipsGeneratedFiles(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), New(newEngine(t, testRules)), "gen")
}

func TestAnalyzer_EmptyRuleSet(t *testing.T) {
	engine := newEngine(t, "{}")
	analysistest.Run(t, analysistest.TestData(), New(engine), "quiet")

	if engine.State() != rules.StateLoaded {
		t.Errorf("State() = %v, want loaded (no call site evaluated)", engine.State())
	}
}

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewFromFlags_RulesFlag(t *testing.T) {
	a := NewFromFlags()
	if err := a.Flags.Set("rules", writeRules(t, testRules)); err != nil {
		t.Fatal(err)
	}
	analysistest.Run(t, analysistest.TestData(), a, "a")
}

func TestNewFromFlags_DiscoversRuleFile(t *testing.T) {
	// testdata/src/discover carries its own unwanted_method_calls.yaml.
	analysistest.Run(t, analysistest.TestData(), NewFromFlags(), "discover")
}

func TestNewFromFlags_NoRuleFile(t *testing.T) {
	// Nothing between testdata/src/quiet and the module root configures rules.
	analysistest.Run(t, analysistest.TestData(), NewFromFlags(), "quiet")
}

func TestNewFromFlags_MalformedRuleFile(t *testing.T) {
	l := &lazyEngine{path: writeRules(t, `{"unwantedMethods": [{"typeNamespace": "os"}]}`)}

	engine, err := l.get(&analysis.Pass{})
	if engine != nil {
		t.Error("get() returned an engine for a malformed rule file")
	}
	if !errors.Is(err, types.ErrInvalidConfiguration) {
		t.Errorf("get() error = %v, want ErrInvalidConfiguration", err)
	}

	// The failure is sticky: later packages see the same error.
	if _, again := l.get(&analysis.Pass{}); again != err {
		t.Errorf("second get() error = %v, want %v", again, err)
	}
}
