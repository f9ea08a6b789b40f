package history

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/store"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/testutil"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

const (
	commits = testutil.Root + "/orgs/acme/repos/model/commits/"
	graphs  = testutil.Root + "/orgs/acme/repos/model/graphs/"
)

// chain is R (load, snapshot S0) -> C1 (patch P1) -> C2 (patch P2).
func chain() Ancestry {
	return Ancestry{
		Parents: map[string]string{
			commits + "R":  "",
			commits + "C1": commits + "R",
			commits + "C2": commits + "C1",
		},
		Snapshots: map[string]string{
			commits + "R": graphs + "Model.S0",
		},
		Data: map[string]Data{
			commits + "R": {Load: true, Body: "<urn:a> <urn:p> \"0\" ."},
			commits + "C1": {
				Delete: "<urn:a> <urn:p> \"0\" .",
				Insert: "<urn:a> <urn:p> \"1\" .\n<urn:b> <urn:p> \"1\" .",
			},
			commits + "C2": {
				Delete: "<urn:b> <urn:p> \"1\" .",
				Insert: "<urn:a> <urn:q> \"2\" .",
			},
		},
	}
}

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		mutate     func(a *Ancestry)
		wantBase   string
		wantReplay []string
	}{
		{
			name:       "replays from nearest snapshot, oldest first",
			target:     commits + "C2",
			wantBase:   graphs + "Model.S0",
			wantReplay: []string{commits + "C1", commits + "C2"},
		},
		{
			name:     "target with snapshot is copied directly",
			target:   commits + "C2",
			mutate:   func(a *Ancestry) { a.Snapshots[commits+"C2"] = graphs + "Staging.B" },
			wantBase: graphs + "Staging.B",
		},
		{
			name:       "nearest snapshot wins over older ones",
			target:     commits + "C2",
			mutate:     func(a *Ancestry) { a.Snapshots[commits+"C1"] = graphs + "Model.S1" },
			wantBase:   graphs + "Model.S1",
			wantReplay: []string{commits + "C2"},
		},
		{
			name:       "without snapshots the root load is replayed",
			target:     commits + "C2",
			mutate:     func(a *Ancestry) { delete(a.Snapshots, commits+"R") },
			wantReplay: []string{commits + "R", commits + "C1", commits + "C2"},
		},
		{
			name:   "a load stops the walk",
			target: commits + "C2",
			mutate: func(a *Ancestry) {
				delete(a.Snapshots, commits+"R")
				a.Data[commits+"C1"] = Data{Load: true, Body: "<urn:z> <urn:p> \"z\" ."}
			},
			wantReplay: []string{commits + "C1", commits + "C2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := chain()
			if tt.mutate != nil {
				tt.mutate(&a)
			}
			plan, err := NewPlan(tt.target, a)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, plan.Base)
			assert.Equal(t, tt.wantReplay, plan.Replay)
		})
	}
}

func TestNewPlan_CycleGuard(t *testing.T) {
	a := chain()
	delete(a.Snapshots, commits+"R")
	a.Data[commits+"R"] = Data{}
	a.Parents[commits+"R"] = commits + "C2"

	_, err := NewPlan(commits+"C2", a)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
	assert.Equal(t, ErrCycle.Message, appErr.Message)
}

func TestNewPlan_UnknownCommit(t *testing.T) {
	_, err := NewPlan(commits+"nope", chain())
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)

	a := chain()
	delete(a.Snapshots, commits+"R")
	delete(a.Parents, commits+"R")
	a.Data[commits+"R"] = Data{}
	_, err = NewPlan(commits+"C2", a)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}

// apply is a reference evaluator for ground patches over a set of N-Triples
// lines.
func apply(state map[string]bool, d Data) {
	if d.Load {
		for k := range state {
			delete(state, k)
		}
		for _, l := range lines(d.Body) {
			state[l] = true
		}
		return
	}
	for _, l := range lines(d.Delete) {
		delete(state, l)
	}
	for _, l := range lines(d.Insert) {
		state[l] = true
	}
}

func lines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func keys(state map[string]bool) []string {
	out := make([]string, 0, len(state))
	for k := range state {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestPlan_RebuildMatchesFullReplay(t *testing.T) {
	a := chain()

	full := map[string]bool{}
	for _, c := range []string{"R", "C1", "C2"} {
		apply(full, a.Data[commits+c])
	}

	plan, err := NewPlan(commits+"C2", a)
	require.NoError(t, err)
	snapshots := map[string]map[string]bool{graphs + "Model.S0": {"<urn:a> <urn:p> \"0\" .": true}}
	rebuilt := map[string]bool{}
	for k := range snapshots[plan.Base] {
		rebuilt[k] = true
	}
	for _, c := range plan.Replay {
		apply(rebuilt, a.Data[c])
	}

	if diff := cmp.Diff(keys(full), keys(rebuilt)); diff != "" {
		t.Errorf("rebuilt snapshot mismatch (-full +rebuilt):\n%s", diff)
	}
}

func TestPlan_Operations(t *testing.T) {
	a := chain()
	plan, err := NewPlan(commits+"C2", a)
	require.NoError(t, err)

	dst := graphs + "Model.new"
	text := sparql.Text(nil, plan.Operations(a, dst)...)

	copyAt := strings.Index(text, "COPY SILENT GRAPH <"+graphs+"Model.S0> TO GRAPH <"+dst+">")
	p1 := strings.Index(text, `<urn:b> <urn:p> "1" .`)
	p2 := strings.Index(text, `<urn:a> <urn:q> "2" .`)
	require.True(t, copyAt >= 0, text)
	assert.True(t, copyAt < p1 && p1 < p2, text)
	assert.Equal(t, 2, strings.Count(text, "WHERE {"), text)
}

func TestPlan_OperationsFromEmpty(t *testing.T) {
	a := chain()
	delete(a.Snapshots, commits+"R")
	plan, err := NewPlan(commits+"R", a)
	require.NoError(t, err)

	text := sparql.Text(nil, plan.Operations(a, graphs+"Model.new")...)
	assert.Contains(t, text, "DROP SILENT GRAPH <"+graphs+"Model.new>")
	assert.Contains(t, text, "INSERT DATA {")
	assert.Contains(t, text, `<urn:a> <urn:p> "0" .`)
}

func binding(pairs ...string) store.Binding {
	b := store.Binding{}
	for i := 0; i+1 < len(pairs); i += 2 {
		b[pairs[i]] = store.Value{Type: "uri", Value: pairs[i+1]}
	}
	return b
}

func TestRebuilder_Materialize(t *testing.T) {
	srv := testutil.NewTestServer()
	tx := srv.Txn.Begin(iri.IDs{Org: "acme", Repo: "model"}, access.Actor{User: "alice"}, txn.Meta{})
	repo, err := NewRepo(tx.IRI)
	require.NoError(t, err)

	srv.Store.SelectFn = func(q string) (*store.Results, error) {
		res := &store.Results{}
		res.Results.Bindings = []store.Binding{
			binding("__mms_commit", commits+"C1", "__mms_parent", commits+"R",
				"__mms_type", vocab.ClassPatch, "__mms_insert", `<urn:a> <urn:p> "1" .`),
			binding("__mms_commit", commits+"R", "__mms_parent", vocab.RDFNil,
				"__mms_type", vocab.ClassLoad, "__mms_graph", graphs+"Model.S0"),
		}
		return res, nil
	}

	dst := repo.ModelGraph(tx.ID)
	b := NewRebuilder(srv.Log)
	require.NoError(t, b.Materialize(context.Background(), tx, repo, commits+"C1", dst))

	queries := srv.Store.Queries()
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "<"+vocab.Parent+">* ?__mms_commit")

	updates := srv.Store.Updates()
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0], "COPY SILENT GRAPH <"+graphs+"Model.S0> TO GRAPH <"+dst+">")
	assert.Contains(t, updates[0], `<urn:a> <urn:p> "1" .`)
}

func TestRepo_Advance(t *testing.T) {
	tx := testutil.NewTestServer().Txn.Begin(iri.IDs{Org: "acme", Repo: "model"}, access.Actor{User: "alice"}, txn.Meta{})
	repo, err := NewRepo(tx.IRI)
	require.NoError(t, err)

	branch := repo.Branch("master")
	del, ins, where := repo.Advance(branch, Commit{ID: tx.ID, Data: Data{Insert: `<urn:a> <urn:p> "1" .`}}, tx.ID)
	text := sparql.Text(nil, sparql.Modify{Delete: del, Insert: ins, Where: where})

	assert.Contains(t, text, "<"+branch+"> <"+vocab.Commit+"> <"+repo.Commit(tx.ID)+"> .")
	assert.Contains(t, text, "<"+repo.Commit(tx.ID)+"> <"+vocab.Parent+"> ?__mms_head .")
	assert.Contains(t, text, "BIND(<"+repo.InterimLock(tx.ID)+"> AS ?__mms_interim)")
	assert.Contains(t, text, "?__mms_interim <"+vocab.Commit+"> ?__mms_head .")
	assert.Contains(t, text, "OPTIONAL {")
}
