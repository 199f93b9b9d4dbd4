package rules

import (
	"sync/atomic"

	"github.com/solatis/callwarden/internal/types"
)

// State is the lifecycle position of an Engine.
type State int32

const (
	StateLoaded State = iota
	StateActive
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateActive:
		return "active"
	case StateDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Observer is notified of every call site an Engine checks.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveCallSite(site types.CallSite, violations []Violation)
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver attaches an observer to the engine.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine owns the rule set of one analysis session. Create one per session
// and pass it to whatever runs the analysis; there is no process-wide cache.
// Check is safe for concurrent use without locking.
type Engine struct {
	rules    *RuleSet
	observer Observer
	state    atomic.Int32
}

// NewEngine creates a session engine over rs. A nil rs is an empty set.
func NewEngine(rs *RuleSet, opts ...Option) *Engine {
	if rs == nil {
		rs = &RuleSet{}
	}
	e := &Engine{rules: rs}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the session's rule set.
func (e *Engine) Rules() *RuleSet {
	return e.rules
}

// IsEmpty reports whether there is nothing to check.
func (e *Engine) IsEmpty() bool {
	return e.rules.IsEmpty()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Check evaluates one call site. Returns nil once the engine is discarded.
func (e *Engine) Check(site types.CallSite) []Violation {
	if !e.state.CompareAndSwap(int32(StateLoaded), int32(StateActive)) && e.State() == StateDiscarded {
		return nil
	}

	violations := Evaluate(e.rules, site)
	if e.observer != nil {
		e.observer.ObserveCallSite(site, violations)
	}
	return violations
}

// Close ends the session. There is no transition out of StateDiscarded.
func (e *Engine) Close() {
	e.state.Store(int32(StateDiscarded))
}
