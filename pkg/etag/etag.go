// Package etag derives entity tags from stored version markers and evaluates
// If-Match / If-None-Match, either in process against a read result or as
// REQUIRE conditions embedded in a guarded write.
package etag

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
)

// Var is the variable every resource binds its stored version marker to.
const Var = sparql.Var("__mms_etag")

// Condition keys.
const (
	KeyIfMatch     = "ifMatch"
	KeyIfNoneMatch = "ifNoneMatch"
)

// Compose reduces version markers to one tag. A single marker is used verbatim;
// several are sorted, joined and hashed so the result is independent of order.
func Compose(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	sum := blake3.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}

// Header formats a tag for the ETag response header.
func Header(tag string) string { return `"` + tag + `"` }

// Preconditions are the parsed conditional request headers. A nil list means
// the header was absent.
type Preconditions struct {
	IfMatch        []string
	IfMatchAny     bool
	IfNoneMatch    []string
	IfNoneMatchAny bool
}

// Parse reads the If-Match and If-None-Match header values.
func Parse(ifMatch, ifNoneMatch string) Preconditions {
	var p Preconditions
	p.IfMatch, p.IfMatchAny = parseList(ifMatch)
	p.IfNoneMatch, p.IfNoneMatchAny = parseList(ifNoneMatch)
	return p
}

func parseList(header string) ([]string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, false
	}
	var out []string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "*" {
			return nil, true
		}
		part = strings.TrimPrefix(part, "W/")
		part = strings.Trim(part, `"`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out, false
}

// Empty reports whether no precondition was supplied.
func (p Preconditions) Empty() bool {
	return !p.IfMatchAny && !p.IfNoneMatchAny && len(p.IfMatch) == 0 && len(p.IfNoneMatch) == 0
}

// HasIfMatch reports whether an If-Match header was supplied.
func (p Preconditions) HasIfMatch() bool { return p.IfMatchAny || len(p.IfMatch) > 0 }

// Check evaluates the preconditions against the current state of a resource.
// current is ignored when exists is false.
func (p Preconditions) Check(exists bool, current string) error {
	switch {
	case p.IfMatchAny:
		if !exists {
			return apperror.ErrPreconditionFailed.WithMessage("Resource does not exist")
		}
	case len(p.IfMatch) > 0:
		if !exists || !contains(p.IfMatch, current) {
			return apperror.ErrPreconditionFailed.WithMessage("No If-Match entity tag matched the current one").
				WithDetails(map[string]any{"condition": KeyIfMatch, "etag": current})
		}
	}

	switch {
	case p.IfNoneMatchAny:
		if exists {
			return apperror.ErrNotModified
		}
	case len(p.IfNoneMatch) > 0:
		if exists && contains(p.IfNoneMatch, current) {
			return apperror.ErrPreconditionFailed.WithMessage("An If-None-Match entity tag matched the current one").
				WithDetails(map[string]any{"condition": KeyIfNoneMatch, "etag": current})
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Conditions returns setup for the REQUIRE conditions that enforce p inside a
// guarded write. binding is the pattern that binds Var to the resource's stored
// marker; it is repeated in each condition so every group is self-contained.
func (p Preconditions) Conditions(binding ...sparql.Pattern) func(b *conditions.Builder) {
	return func(b *conditions.Builder) {
		switch {
		case p.IfMatchAny:
			b.Require(KeyIfMatch, func() *apperror.Error {
				return apperror.ErrPreconditionFailed.WithMessage("Resource does not exist").
					WithDetails(map[string]any{"condition": KeyIfMatch})
			}, clone(binding)...)
		case len(p.IfMatch) > 0:
			tags := literals(p.IfMatch)
			b.Require(KeyIfMatch, func() *apperror.Error {
				return apperror.ErrPreconditionFailed.WithMessage("No If-Match entity tag matched the current one").
					WithDetails(map[string]any{"condition": KeyIfMatch, "ifMatch": p.IfMatch})
			}, append(clone(binding), sparql.Filter(sparql.In(Var, tags...)))...)
		}

		switch {
		case p.IfNoneMatchAny:
			b.Require(KeyIfNoneMatch, func() *apperror.Error {
				return apperror.ErrPreconditionFailed.WithMessage("Resource already exists").
					WithDetails(map[string]any{"condition": KeyIfNoneMatch})
			}, sparql.Filter(sparql.NotExists(binding...)))
		case len(p.IfNoneMatch) > 0:
			tags := literals(p.IfNoneMatch)
			b.Require(KeyIfNoneMatch, func() *apperror.Error {
				return apperror.ErrPreconditionFailed.WithMessage("An If-None-Match entity tag matched the current one").
					WithDetails(map[string]any{"condition": KeyIfNoneMatch, "ifNoneMatch": p.IfNoneMatch})
			}, sparql.Filter(sparql.NotExists(append(clone(binding), sparql.Filter(sparql.In(Var, tags...)))...)))
		}
	}
}

func literals(tags []string) []sparql.Term {
	out := make([]sparql.Term, len(tags))
	for i, t := range tags {
		out[i] = sparql.Lit(t)
	}
	return out
}

func clone(ps []sparql.Pattern) []sparql.Pattern {
	return append([]sparql.Pattern(nil), ps...)
}
