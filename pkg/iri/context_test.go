package iri

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
)

const root = "https://mms.example.org"

func TestNestedPrefixes(t *testing.T) {
	c := New(root+"/", IDs{User: "alice", Org: "acme", Repo: "r1", Branch: "master", Transaction: "t1"})

	tests := []struct {
		prefix string
		want   string
	}{
		{"m", root + "/"},
		{"m-graph", root + "/graphs/"},
		{"mu", root + "/users/alice"},
		{"mo", root + "/orgs/acme"},
		{"mor", root + "/orgs/acme/repos/r1"},
		{"mor-graph", root + "/orgs/acme/repos/r1/graphs/"},
		{"morb", root + "/orgs/acme/repos/r1/branches/master"},
		{"mt", root + "/transactions/t1"},
		{"mt-graph", root + "/graphs/Transaction.t1"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := c.Get(tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeeperPrefixRequiresAncestor(t *testing.T) {
	// branch without a repo: the branch prefix is never declared
	c := New(root, IDs{Org: "acme", Branch: "master"})

	_, err := c.Get("morb")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInternal))
	assert.Contains(t, err.Error(), "parameter never supplied")

	_, err = c.Get("mo")
	assert.NoError(t, err)
}

func TestPrologueRendersDeclaredPrefixesOnly(t *testing.T) {
	c := New(root, IDs{Org: "acme"})
	text := sparql.Text(c.Prologue(), sparql.Ask{})

	assert.Contains(t, text, "PREFIX mo: <"+root+"/orgs/acme>")
	assert.Contains(t, text, "PREFIX mms: <https://mms.openmbee.org/rdf/ontology/>")
	assert.False(t, strings.Contains(text, "PREFIX mor:"))
}

func TestWithOverridesIDs(t *testing.T) {
	base := New(root, IDs{Org: "acme", Repo: "r1"})
	derived := base.With(IDs{Lock: "v1"})

	_, err := base.Get("morl")
	assert.Error(t, err)

	got, err := derived.Get("morl")
	require.NoError(t, err)
	assert.Equal(t, root+"/orgs/acme/repos/r1/locks/v1", got)
	assert.Equal(t, "acme", derived.IDs().Org)
}

func TestTermsRemembersFirstError(t *testing.T) {
	c := New(root, IDs{Org: "acme"})
	terms := c.Terms()

	assert.Equal(t, "mo:", terms.P("mo").String())
	assert.NoError(t, terms.Err())

	terms.P("mor")
	terms.P("morb")
	require.Error(t, terms.Err())
	assert.Contains(t, terms.Err().Error(), `"mor"`)
}

func TestExpand(t *testing.T) {
	c := New(root, IDs{Org: "acme", Repo: "r1"})
	got, err := c.Expand("mor-graph", "Metadata")
	require.NoError(t, err)
	assert.Equal(t, root+"/orgs/acme/repos/r1/graphs/Metadata", got)
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"acme", true},
		{"my-repo_1.0", true},
		{"", false},
		{".hidden", false},
		{"a/b", false},
		{"a b", false},
		{"a>b", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateID("org", tt.id)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, apperror.ErrInvalidID))
		})
	}
}
