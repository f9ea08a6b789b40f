// Package conditions composes named graph-pattern fragments that either gate a
// write (REQUIRE) or only explain a failed one afterwards (INSPECT).
package conditions

import (
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
)

// Kind tags a condition.
type Kind int

const (
	Require Kind = iota
	Inspect
)

func (k Kind) String() string {
	if k == Inspect {
		return "inspect"
	}
	return "require"
}

// InspectVar is bound to a condition's key in every diagnostic branch.
const InspectVar = sparql.Var("__mms_inspect")

// Failure produces the user-facing error for an unmet condition.
type Failure func() *apperror.Error

// Condition is a single named fragment.
type Condition struct {
	Key      string
	Kind     Kind
	Patterns []sparql.Pattern
	Fail     Failure
}

// Group is an ordered, immutable list of conditions. Append returns a new group
// and never touches the receiver.
type Group struct {
	conds []Condition
	err   error
}

// New returns an empty group.
func New() *Group { return &Group{} }

// Builder collects the conditions of a single Append call.
type Builder struct {
	conds []Condition
	err   error
}

// Require appends a REQUIRE condition.
func (b *Builder) Require(key string, fail Failure, patterns ...sparql.Pattern) *Builder {
	b.conds = append(b.conds, Condition{Key: key, Kind: Require, Patterns: patterns, Fail: fail})
	return b
}

// Inspect appends an INSPECT condition.
func (b *Builder) Inspect(key string, fail Failure, patterns ...sparql.Pattern) *Builder {
	b.conds = append(b.conds, Condition{Key: key, Kind: Inspect, Patterns: patterns, Fail: fail})
	return b
}

// Check records err (typically an iri.Terms error) so the resulting group
// reports it from Err instead of the setup function returning early.
func (b *Builder) Check(err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
}

// Append returns a copy of g extended by setup.
func (g *Group) Append(setup func(b *Builder)) *Group {
	b := &Builder{}
	setup(b)

	conds := make([]Condition, 0, len(g.conds)+len(b.conds))
	conds = append(conds, g.conds...)
	conds = append(conds, b.conds...)

	err := g.err
	if err == nil {
		err = b.err
	}
	return &Group{conds: conds, err: err}
}

// All chains setup functions into one.
func All(setups ...func(b *Builder)) func(b *Builder) {
	return func(b *Builder) {
		for _, setup := range setups {
			if setup != nil {
				setup(b)
			}
		}
	}
}

// Err reports the first error recorded while building the group.
func (g *Group) Err() error { return g.err }

// Keys returns every condition key in order.
func (g *Group) Keys() []string {
	keys := make([]string, len(g.conds))
	for i, c := range g.conds {
		keys[i] = c.Key
	}
	return keys
}

// RequiredPatterns returns one braced group per REQUIRE condition, in insertion
// order. Each group is self-contained so filters only see their own bindings.
func (g *Group) RequiredPatterns() []sparql.Pattern {
	var out []sparql.Pattern
	for _, c := range g.conds {
		if c.Kind == Require {
			out = append(out, sparql.Group(c.Patterns...))
		}
	}
	return out
}

// inspectBranches returns one branch per condition (REQUIRE and INSPECT), each
// binding the condition key to InspectVar when its fragment matches. Branches
// are sub-selects projecting InspectVar alone, so the variables a fragment
// binds never leak into the rest of a probe.
func (g *Group) inspectBranches() []sparql.Pattern {
	out := make([]sparql.Pattern, 0, len(g.conds))
	for _, c := range g.conds {
		body := append(append([]sparql.Pattern(nil), c.Patterns...), sparql.Bind(sparql.Lit(c.Key), InspectVar))
		out = append(out, sparql.Group(sparql.SubSelect([]sparql.Var{InspectVar}, 1, body...)))
	}
	return out
}

// UnionInspectPatterns joins every inspect branch into a single UNION, after
// the given leading branches.
func (g *Group) UnionInspectPatterns(first ...sparql.Pattern) sparql.Pattern {
	return sparql.Union(append(append([]sparql.Pattern(nil), first...), g.inspectBranches()...)...)
}

// RequirementNotMetError names the first condition the diagnostic probe could
// not satisfy. It unwraps to the condition's *apperror.Error.
type RequirementNotMetError struct {
	Key string
	Err *apperror.Error
}

func (e *RequirementNotMetError) Error() string { return "requirement not met: " + e.Key + ": " + e.Err.Error() }
func (e *RequirementNotMetError) Unwrap() error { return e.Err }

// Handle maps the set of keys bound by the diagnostic probe onto the first
// unmet condition. When every key is bound the orchestration itself is wrong.
func (g *Group) Handle(bound map[string]bool) error {
	for _, c := range g.conds {
		if bound[c.Key] {
			continue
		}
		fail := c.Fail
		if fail == nil {
			fail = func() *apperror.Error { return apperror.ErrConflict.WithMessage("Condition '" + c.Key + "' not met") }
		}
		appErr := fail()
		if len(appErr.Details) == 0 {
			appErr = appErr.WithDetails(map[string]any{"condition": c.Key})
		}
		return &RequirementNotMetError{Key: c.Key, Err: appErr}
	}
	return apperror.NewInternal("every condition was satisfied but the transaction was not applied", nil)
}
