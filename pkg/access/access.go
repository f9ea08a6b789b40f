// Package access emits the graph pattern that decides whether the requesting
// user may perform a permission within a scope. The pattern is evaluated by the
// store inside the guarded write; nothing here talks to the store.
package access

import (
	"fmt"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
)

// ConditionKey is the key of the access REQUIRE condition.
const ConditionKey = "userPermitted"

const (
	varAgent     = sparql.Var("__mms_agent")
	varGroup     = sparql.Var("__mms_group")
	varGroupID   = sparql.Var("__mms_groupId")
	varPolicy    = sparql.Var("__mms_policy")
	varScope     = sparql.Var("__mms_scope")
	varScopeType = sparql.Var("__mms_scopeType")
	varScopeIn   = sparql.Var("__mms_scopeGraph")
	varRole      = sparql.Var("__mms_role")
)

// Actor is the requesting identity. Groups are federated group identifiers
// asserted by the identity provider.
type Actor struct {
	User   string
	Groups []string
}

// scopeRow is an ancestor scope node and the graph its type is declared in.
// Only system graphs are consulted, so a model cannot declare a scope class.
type scopeRow struct {
	prefix      string
	graphPrefix string
	graph       string
}

var (
	clusterRow = scopeRow{"m", "m-graph", "Cluster"}
	orgRow     = scopeRow{"mo", "m-graph", "Cluster"}
	repoRow    = scopeRow{"mor", "m-graph", "Cluster"}
)

var levelRows = map[Level][]scopeRow{
	LevelCluster: {clusterRow},
	LevelOrg:     {clusterRow, orgRow},
	LevelRepo:    {clusterRow, orgRow, repoRow},
	LevelBranch:  {clusterRow, orgRow, repoRow, {"morb", "mor-graph", "Metadata"}},
	LevelLock:    {clusterRow, orgRow, repoRow, {"morl", "mor-graph", "Metadata"}},
	LevelDiff:    {clusterRow, orgRow, repoRow, {"mord", "mor-graph", "Metadata"}},
	LevelGroup:   {clusterRow, {"mg", "m-graph", "AccessControl.Agents"}},
	LevelPolicy:  {clusterRow, {"mp", "m-graph", "AccessControl.Policies"}},
}

// Pattern returns the permission check as a single embeddable pattern. The body
// is wrapped in FILTER EXISTS so its variables never join with the enclosing
// query.
func Pattern(ctx *iri.Context, actor Actor, perm Permission) (sparql.Pattern, error) {
	terms := ctx.Terms()
	graph := func(name string) sparql.Term { return terms.PL("m-graph", name) }
	mms := func(local string) sparql.Term { return sparql.PName{Prefix: "mms", Local: local} }

	agents := []sparql.Pattern{
		sparql.Group(
			sparql.Graph(graph("AccessControl.Agents"),
				sparql.T(terms.P("mu"), sparql.PName{Prefix: "rdf", Local: "type"}, mms("User")),
				sparql.T(varAgent, sparql.ZeroOrMore(mms("member")), terms.P("mu")),
			),
		),
	}
	if len(actor.Groups) > 0 {
		ids := make([]sparql.Term, len(actor.Groups))
		for i, g := range actor.Groups {
			ids[i] = sparql.Lit(g)
		}
		agents = append(agents, sparql.Group(
			sparql.Values(varGroupID, ids...),
			sparql.Graph(graph("AccessControl.Agents"),
				sparql.T(varGroup, sparql.PName{Prefix: "rdf", Local: "type"}, mms("Group")),
				sparql.T(varGroup, mms("id"), varGroupID),
				sparql.T(varAgent, sparql.ZeroOrMore(mms("member")), varGroup),
			),
		))
	}

	rows := levelRows[perm.Level]
	values := sparql.ValuesPattern{Vars: []sparql.Var{varScope, varScopeIn}}
	for _, r := range rows {
		values.Rows = append(values.Rows, []sparql.Term{terms.P(r.prefix), terms.PL(r.graphPrefix, r.graph)})
	}

	if err := terms.Err(); err != nil {
		return nil, err
	}

	var agentPattern sparql.Pattern = agents[0]
	if len(agents) > 1 {
		agentPattern = sparql.Union(agents...)
	}

	body := []sparql.Pattern{
		agentPattern,
		sparql.Graph(graph("AccessControl.Policies"),
			sparql.T(varPolicy, sparql.PName{Prefix: "rdf", Local: "type"}, mms("Policy")),
			sparql.T(varPolicy, mms("subject"), varAgent),
			sparql.T(varPolicy, mms("scope"), varScope),
			sparql.T(varPolicy, mms("role"), varRole),
		),
		values,
		sparql.Graph(varScopeIn, sparql.T(varScope, sparql.PName{Prefix: "rdf", Local: "type"}, varScopeType)),
		sparql.Graph(graph("AccessControl.Definitions"),
			sparql.T(varScopeType, sparql.ZeroOrMore(mms("implies")), sparql.IRI(perm.Class)),
			sparql.T(varRole,
				sparql.Seq(sparql.ZeroOrMore(mms("implies")), mms("permits"), sparql.ZeroOrMore(mms("implies"))),
				perm.Term()),
		),
	}
	return sparql.Filter(sparql.Exists(body...)), nil
}

// Require returns a setup function that appends the permission check as a
// REQUIRE condition.
func Require(ctx *iri.Context, actor Actor, perm Permission) func(b *conditions.Builder) {
	return func(b *conditions.Builder) {
		p, err := Pattern(ctx, actor, perm)
		b.Check(err)
		if err != nil {
			return
		}
		userIRI, _ := ctx.Get("mu")
		b.Require(ConditionKey, func() *apperror.Error {
			return apperror.NewForbidden(fmt.Sprintf("User <%s> is not permitted to %s.", userIRI, perm.Name)).
				WithDetails(map[string]any{"condition": ConditionKey, "permission": perm.Name})
		}, p)
	}
}
