// Package checker loads Go packages and checks every call site against an
// unwanted method rule engine.
package checker

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/packages"

	"github.com/solatis/callwarden/internal/resolve"
	"github.com/solatis/callwarden/internal/rules"
	"github.com/solatis/callwarden/internal/types"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo

// Options controls which packages and files a Checker visits.
type Options struct {
	// Patterns are go/packages patterns; empty means "./...".
	Patterns []string

	// Dir is the directory patterns are resolved in; empty means the
	// current directory.
	Dir string

	IncludeTests bool

	// ExcludePaths are glob patterns matched against file paths relative to
	// Dir using '/' separators. "**" crosses directories, "*" does not.
	ExcludePaths []string

	// Concurrency bounds packages checked at once; 0 means GOMAXPROCS.
	Concurrency int
}

// Finding is one violation at a resolved source position.
type Finding struct {
	Position  token.Position
	Violation rules.Violation
}

// Report is the result of one Run.
type Report struct {
	Findings  []Finding
	Packages  int
	CallSites int
}

// Checker runs one engine over a set of packages.
type Checker struct {
	engine   *rules.Engine
	opts     Options
	excludes []glob.Glob
	logger   *slog.Logger
}

// New creates a checker. It fails when an exclude pattern does not compile.
func New(engine *rules.Engine, opts Options, logger *slog.Logger) (*Checker, error) {
	if engine == nil {
		return nil, errors.New("checker requires a rule engine")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = []string{"./..."}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}

	excludes := make([]glob.Glob, 0, len(opts.ExcludePaths))
	for _, pattern := range opts.ExcludePaths {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		excludes = append(excludes, g)
	}

	return &Checker{
		engine:   engine,
		opts:     opts,
		excludes: excludes,
		logger:   logger,
	}, nil
}

// Run loads the configured packages and checks them. Packages that fail to
// load or type-check abort the run with ErrPackageLoad.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     c.opts.Dir,
		Tests:   c.opts.IncludeTests,
	}

	c.logger.Debug("loading packages", "patterns", c.opts.Patterns, "dir", c.opts.Dir, "tests", c.opts.IncludeTests)
	pkgs, err := packages.Load(cfg, c.opts.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPackageLoad, err)
	}
	if err := packageErrors(pkgs); err != nil {
		return nil, err
	}

	pkgs = selectPackages(pkgs)
	report := &Report{Packages: len(pkgs)}

	if c.engine.IsEmpty() {
		c.logger.Info("no unwanted method rules configured; nothing to check", "packages", len(pkgs))
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for _, pkg := range pkgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			findings, sites := c.checkPackage(pkg)

			mu.Lock()
			report.Findings = append(report.Findings, findings...)
			report.CallSites += sites
			mu.Unlock()

			c.logger.Debug("checked package", "package", pkg.ID, "call_sites", sites, "violations", len(findings))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortFindings(report.Findings)
	return report, nil
}

func (c *Checker) checkPackage(pkg *packages.Package) ([]Finding, int) {
	var (
		findings []Finding
		sites    int
	)

	insp := inspector.New(pkg.Syntax)
	resolve.Walk(insp, pkg.Types, pkg.TypesInfo, c.fileFilter(pkg.Fset), func(site types.CallSite, _ *ast.CallExpr) {
		sites++
		for _, v := range c.engine.Check(site) {
			findings = append(findings, Finding{
				Position:  resolve.Position(pkg.Fset, site),
				Violation: v,
			})
		}
	})
	return findings, sites
}

// fileFilter skips generated files and files matching an exclude pattern.
func (c *Checker) fileFilter(fset *token.FileSet) resolve.FileFilter {
	return func(file *ast.File) bool {
		if !resolve.SkipGenerated(file) {
			return false
		}
		if len(c.excludes) == 0 {
			return true
		}
		name := c.relativePath(fset.File(file.Pos()).Name())
		for _, g := range c.excludes {
			if g.Match(name) {
				return false
			}
		}
		return true
	}
}

func (c *Checker) relativePath(name string) string {
	base := c.opts.Dir
	if base == "" {
		base = "."
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return filepath.ToSlash(name)
	}
	rel, err := filepath.Rel(absBase, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(name)
	}
	return filepath.ToSlash(rel)
}

// packageErrors collects load, parse and type errors of every package in
// the import graph.
func packageErrors(pkgs []*packages.Package) error {
	var msgs []string
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			msgs = append(msgs, e.Error())
		}
	})
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", types.ErrPackageLoad, strings.Join(msgs, "; "))
}

// selectPackages drops synthesized test mains and plain packages superseded
// by their test variant, so every file is checked exactly once.
func selectPackages(pkgs []*packages.Package) []*packages.Package {
	ids := make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		ids[pkg.ID] = true
	}

	selected := make([]*packages.Package, 0, len(pkgs))
	for _, pkg := range pkgs {
		if strings.HasSuffix(pkg.ID, ".test") && pkg.Name == "main" {
			continue
		}
		if ids[pkg.ID+" ["+pkg.PkgPath+".test]"] {
			continue
		}
		selected = append(selected, pkg)
	}
	return selected
}

// sortFindings orders findings by file, line, column, then rule order.
func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Position.Filename != b.Position.Filename {
			return a.Position.Filename < b.Position.Filename
		}
		if a.Position.Line != b.Position.Line {
			return a.Position.Line < b.Position.Line
		}
		if a.Position.Column != b.Position.Column {
			return a.Position.Column < b.Position.Column
		}
		return a.Violation.RuleIndex < b.Violation.RuleIndex
	})
}
