package access

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

const root = "https://mms.example.org"

func TestPatternScopeRows(t *testing.T) {
	tests := []struct {
		name     string
		ids      iri.IDs
		perm     Permission
		wantRows []string
	}{
		{
			name:     "create org at cluster",
			ids:      iri.IDs{User: "alice", Org: "acme"},
			perm:     CreateOrg,
			wantRows: []string{"(m: m-graph:Cluster)"},
		},
		{
			name: "update branch walks every ancestor",
			ids:  iri.IDs{User: "alice", Org: "acme", Repo: "r1", Branch: "master"},
			perm: UpdateBranch,
			wantRows: []string{
				"(m: m-graph:Cluster)",
				"(mo: m-graph:Cluster)",
				"(mor: m-graph:Cluster)",
				"(morb: mor-graph:Metadata)",
			},
		},
		{
			name:     "group scope",
			ids:      iri.IDs{User: "alice", Group: "eng"},
			perm:     UpdateGroup,
			wantRows: []string{"(m: m-graph:Cluster)", "(mg: m-graph:AccessControl.Agents)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Pattern(iri.New(root, tt.ids), Actor{User: "alice"}, tt.perm)
			require.NoError(t, err)

			text := sparql.Render(p)
			assert.True(t, strings.HasPrefix(text, "FILTER(EXISTS {"), text)
			for _, row := range tt.wantRows {
				assert.Contains(t, text, row)
			}
			assert.Contains(t, text, "VALUES (?__mms_scope ?__mms_scopeGraph)")
			assert.Contains(t, text, "GRAPH ?__mms_scopeGraph {")
			assert.Contains(t, text, "?__mms_scope rdf:type ?__mms_scopeType .")
			assert.Contains(t, text, "mms-object:Permission."+tt.perm.Name)
			assert.Contains(t, text, "?__mms_scopeType mms:implies* <"+tt.perm.Class+">")
			assert.Contains(t, text, "?__mms_role (mms:implies*)/mms:permits/(mms:implies*) mms-object:Permission."+tt.perm.Name)
			assert.NotContains(t, text, "__mms_groupId")
		})
	}
}

func TestPatternFederatedGroups(t *testing.T) {
	ctx := iri.New(root, iri.IDs{User: "alice", Org: "acme"})
	p, err := Pattern(ctx, Actor{User: "alice", Groups: []string{"ldap:eng", `x" }`}}, ReadOrg)
	require.NoError(t, err)

	text := sparql.Render(p)
	assert.Contains(t, text, "?__mms_agent mms:member* mu: .")
	assert.Contains(t, text, "} UNION {")
	assert.Contains(t, text, `VALUES ?__mms_groupId { "ldap:eng" "x\" }" }`)
	assert.Contains(t, text, "?__mms_group mms:id ?__mms_groupId .")
	// policies granted to groups enclosing the federated group apply too
	assert.Contains(t, text, "?__mms_agent mms:member* ?__mms_group .")
}

func TestPatternMissingScopeID(t *testing.T) {
	// branch permission without a branch id
	ctx := iri.New(root, iri.IDs{User: "alice", Org: "acme", Repo: "r1"})
	_, err := Pattern(ctx, Actor{User: "alice"}, UpdateBranch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter never supplied")
}

func TestRequireFailureNamesPermission(t *testing.T) {
	ctx := iri.New(root, iri.IDs{User: "alice"})
	g := conditions.New().Append(Require(ctx, Actor{User: "alice"}, CreateOrg))
	require.NoError(t, g.Err())
	assert.Equal(t, []string{ConditionKey}, g.Keys())

	err := g.Handle(map[string]bool{})
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)
	assert.Equal(t, "User <"+root+"/users/alice> is not permitted to CreateOrg.", appErr.Message)
	assert.Equal(t, "CreateOrg", appErr.Details["permission"])
}

func TestRequireRecordsBuildError(t *testing.T) {
	ctx := iri.New(root, iri.IDs{User: "alice"})
	g := conditions.New().Append(Require(ctx, Actor{User: "alice"}, ReadRepo))
	assert.Error(t, g.Err())
	assert.Empty(t, g.Keys())
}

func TestWithin(t *testing.T) {
	p := ReadBranch.Within(LevelRepo)
	assert.Equal(t, LevelRepo, p.Level)
	assert.Equal(t, LevelBranch, ReadBranch.Level)
}

func TestDefinitions(t *testing.T) {
	text := sparql.Render(Definitions()...)

	perm := func(name string) string { return "<" + vocab.ObjectNamespace + "Permission." + name + ">" }
	role := func(name string) string { return "<" + RoleIRI(name) + ">" }
	implies := "<" + vocab.Implies + ">"
	permits := "<" + vocab.Permits + ">"

	for _, want := range []string{
		role(RoleAdminAccess) + " " + implies + " " + role(RoleWriteAccess) + " .",
		role(RoleWriteAccess) + " " + implies + " " + role(RoleReadAccess) + " .",
		perm("DeleteBranch") + " " + implies + " " + perm("UpdateBranch") + " .",
		perm("UpdateBranch") + " " + implies + " " + perm("ReadBranch") + " .",
		role(RoleReadAccess) + " " + permits + " " + perm("ReadCommit") + " .",
		role(RoleWriteAccess) + " " + permits + " " + perm("CreateOrg") + " .",
		role(RoleAdminAccess) + " " + permits + " " + perm("DeletePolicy") + " .",
		"<" + vocab.ClassCluster + "> " + implies + " <" + vocab.ClassOrg + "> .",
		"<" + vocab.ClassRepo + "> " + implies + " <" + vocab.ClassBranch + "> .",
	} {
		assert.Contains(t, text, want)
	}
}
