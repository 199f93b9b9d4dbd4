// Package types provides domain models shared across callwarden components.
//
// Zero-dependency design: types.go, rules.go and errors.go use only the
// standard library so the rule engine can be embedded in other analysis
// drivers without pulling in the CLI stack. ID utilities in ids.go import
// uuid but are isolated to run history.
package types

// CallSite is one resolved invocation observed by the host.
// The host only submits call sites whose target resolved to a concrete
// member; CalleeType and CalleeMember are never empty.
type CallSite struct {
	// CallerType is the fully-qualified name of the type lexically
	// containing the call. Empty when the call is outside any type context.
	CallerType string

	// CalleeType is the fully-qualified name of the type (or package, for
	// package-level functions) declaring the resolved target.
	CalleeType string

	// CalleeMember is the simple name of the resolved target.
	CalleeMember string

	// Location is a host-defined position. Passed through to violations untouched.
	Location any
}

// HasCaller reports whether the call site has a calling type.
func (c CallSite) HasCaller() bool {
	return c.CallerType != ""
}

// QualifiedCallee returns CalleeType + "." + CalleeMember.
func (c CallSite) QualifiedCallee() string {
	return c.CalleeType + "." + c.CalleeMember
}
