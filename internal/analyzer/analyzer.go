// Package analyzer exposes the unwanted method check as a go/analysis
// Analyzer. cmd/callwarden-vet serves it to go vet through unitchecker.
package analyzer

import (
	"fmt"
	"go/ast"
	"path/filepath"
	"sync"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/solatis/callwarden/internal/resolve"
	"github.com/solatis/callwarden/internal/rules"
	"github.com/solatis/callwarden/internal/types"
)

// Name is the analyzer name used in diagnostics and flags.
const Name = "unwantedcalls"

const doc = `report calls to unwanted methods

Each call whose resolved target matches a configured unwanted method rule is
reported, unless the calling type is listed in the rule's excludedCallers.
Generated files are not checked.`

// New returns an analyzer bound to engine. The engine (and its rule set) is
// owned by the caller for the lifetime of the analysis session.
func New(engine *rules.Engine) *analysis.Analyzer {
	return &analysis.Analyzer{
		Name:     Name,
		Doc:      doc,
		Requires: []*analysis.Analyzer{inspect.Analyzer},
		Run: func(pass *analysis.Pass) (any, error) {
			return run(pass, engine)
		},
	}
}

// NewFromFlags returns an analyzer that loads its rules on first use. The
// rule file comes from the -rules flag, otherwise it is discovered upward
// from the first analyzed package's directory to its module root.
// One engine serves every package analyzed by the process.
func NewFromFlags() *analysis.Analyzer {
	l := &lazyEngine{}
	a := &analysis.Analyzer{
		Name:     Name,
		Doc:      doc + "\n\nWithout -rules, unwanted_method_calls.{json,yaml,yml} is looked up\nfrom the package directory up to the module root.",
		Requires: []*analysis.Analyzer{inspect.Analyzer},
		Run: func(pass *analysis.Pass) (any, error) {
			engine, err := l.get(pass)
			if err != nil {
				return nil, err
			}
			return run(pass, engine)
		},
	}
	a.Flags.StringVar(&l.path, "rules", "", "unwanted method rule file")
	return a
}

type lazyEngine struct {
	path   string
	once   sync.Once
	engine *rules.Engine
	err    error
}

func (l *lazyEngine) get(pass *analysis.Pass) (*rules.Engine, error) {
	l.once.Do(func() {
		path := l.path
		if path == "" && len(pass.Files) > 0 {
			file := pass.Fset.File(pass.Files[0].Pos())
			if file != nil {
				path = rules.DiscoverUpward(filepath.Dir(file.Name()))
			}
		}
		rs, err := rules.LoadFile(path)
		if err != nil {
			l.err = fmt.Errorf("failed to load unwanted method rules: %w", err)
			return
		}
		l.engine = rules.NewEngine(rs)
	})
	return l.engine, l.err
}

func run(pass *analysis.Pass, engine *rules.Engine) (any, error) {
	// Nothing configured: skip the walk entirely.
	if engine.IsEmpty() {
		return nil, nil
	}

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	resolve.Walk(insp, pass.Pkg, pass.TypesInfo, resolve.SkipGenerated, func(site types.CallSite, call *ast.CallExpr) {
		for _, v := range engine.Check(site) {
			pass.Report(analysis.Diagnostic{
				Pos:      call.Fun.Pos(),
				End:      call.Fun.End(),
				Category: Name,
				Message:  v.Message(),
			})
		}
	})
	return nil, nil
}
