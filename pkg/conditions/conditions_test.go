package conditions

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
)

func triple(s string) sparql.Pattern {
	return sparql.T(sparql.IRI("urn:"+s), sparql.IRI("urn:p"), sparql.Var("o"))
}

func notFound() *apperror.Error { return apperror.ErrNotFound.WithMessage("Repo not found") }

func forbidden() *apperror.Error { return apperror.NewForbidden("User <urn:u> is not permitted to UpdateBranch.") }

func TestAppendDoesNotAliasParent(t *testing.T) {
	base := New().Append(func(b *Builder) {
		b.Require("repoExists", notFound, triple("repo"))
	})
	before := sparql.Render(base.RequiredPatterns()...)

	// Two siblings from the same base; the backing array has spare capacity after
	// the first append, which must not leak into the second.
	a := base.Append(func(b *Builder) { b.Require("a", forbidden, triple("a")) })
	c := base.Append(func(b *Builder) { b.Require("c", forbidden, triple("c")) })

	assert.Equal(t, before, sparql.Render(base.RequiredPatterns()...))
	assert.Equal(t, []string{"repoExists"}, base.Keys())
	assert.Equal(t, []string{"repoExists", "a"}, a.Keys())
	assert.Equal(t, []string{"repoExists", "c"}, c.Keys())
}

func TestRequiredPatternsOnlyRequireInOrder(t *testing.T) {
	g := New().Append(func(b *Builder) {
		b.Require("first", notFound, triple("first"))
		b.Inspect("seen", notFound, triple("seen"))
		b.Require("second", forbidden, triple("second"))
	})

	got := sparql.Render(g.RequiredPatterns()...)
	want := "{\n    <urn:first> <urn:p> ?o .\n}\n{\n    <urn:second> <urn:p> ?o .\n}\n"
	assert.Equal(t, want, got)
}

func TestUnionInspectPatternsCoversEveryCondition(t *testing.T) {
	g := New().Append(func(b *Builder) {
		b.Require("first", notFound, triple("first"))
		b.Inspect("seen", notFound, triple("seen"))
	})

	got := sparql.Render(g.UnionInspectPatterns())
	want := `{
    {
        SELECT ?__mms_inspect WHERE {
            <urn:first> <urn:p> ?o .
            BIND("first" AS ?__mms_inspect)
        }
        LIMIT 1
    }
} UNION {
    {
        SELECT ?__mms_inspect WHERE {
            <urn:seen> <urn:p> ?o .
            BIND("seen" AS ?__mms_inspect)
        }
        LIMIT 1
    }
}
`
	assert.Equal(t, want, got)
}

func TestHandle(t *testing.T) {
	g := New().Append(func(b *Builder) {
		b.Require("repoExists", notFound, triple("repo"))
		b.Require("userPermitted", forbidden, triple("policy"))
		b.Require("ifMatch", func() *apperror.Error {
			return apperror.ErrPreconditionFailed.WithDetails(map[string]any{"condition": "ifMatch", "etags": []string{"x"}})
		}, triple("etag"))
	})

	tests := []struct {
		name       string
		bound      map[string]bool
		wantKey    string
		wantStatus int
	}{
		{"nothing bound", map[string]bool{}, "repoExists", http.StatusNotFound},
		{"first bound", map[string]bool{"repoExists": true}, "userPermitted", http.StatusForbidden},
		{"precondition", map[string]bool{"repoExists": true, "userPermitted": true}, "ifMatch", http.StatusPreconditionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Handle(tt.bound)

			var notMet *RequirementNotMetError
			require.True(t, errors.As(err, &notMet))
			assert.Equal(t, tt.wantKey, notMet.Key)

			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
			assert.Equal(t, tt.wantKey, appErr.Details["condition"])
		})
	}
}

func TestHandleAllBoundIsLogicError(t *testing.T) {
	g := New().Append(func(b *Builder) { b.Require("a", notFound, triple("a")) })

	err := g.Handle(map[string]bool{"a": true})
	require.Error(t, err)

	var notMet *RequirementNotMetError
	assert.False(t, errors.As(err, &notMet))
	assert.True(t, errors.Is(err, apperror.ErrInternal))
}

func TestCheckRecordsBuildError(t *testing.T) {
	boom := errors.New("parameter never supplied")
	g := New().
		Append(func(b *Builder) { b.Check(nil) }).
		Append(func(b *Builder) { b.Check(boom) }).
		Append(func(b *Builder) { b.Require("a", notFound, triple("a")) })

	assert.ErrorIs(t, g.Err(), boom)
}

func TestUnionInspectPatternsLeadingBranch(t *testing.T) {
	g := New().Append(func(b *Builder) { b.Require("a", notFound, triple("a")) })

	got := sparql.Render(g.UnionInspectPatterns(sparql.Group(triple("ok"))))
	ok := strings.Index(got, "<urn:ok> <urn:p> ?o .")
	a := strings.Index(got, `BIND("a" AS ?__mms_inspect)`)
	require.True(t, ok >= 0 && a > ok, got)
	assert.Equal(t, 1, strings.Count(got, "} UNION {"))
}
