package locks

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/history"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/repos"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/store"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/testutil"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

const (
	repoIRI = testutil.Root + "/orgs/acme/repos/model"
	lockIRI = repoIRI + "/locks/v1"
	path    = "/orgs/acme/repos/model/locks/v1"
)

func newServer(t *testing.T) *testutil.TestServer {
	t.Helper()
	srv := testutil.NewTestServer()
	svc := NewService(resource.NewService(srv.Log), history.NewRebuilder(srv.Log), srv.Log)
	RegisterRoutes(srv.Echo, NewHandler(svc, srv.Txn), srv.AuthMiddleware)
	return srv
}

func uri(pairs ...string) store.Binding {
	b := store.Binding{}
	for i := 0; i+1 < len(pairs); i += 2 {
		b[pairs[i]] = store.Value{Type: "uri", Value: pairs[i+1]}
	}
	return b
}

func results(rows ...store.Binding) *store.Results {
	res := &store.Results{}
	res.Results.Bindings = rows
	return res
}

func TestPut_LocksCommit(t *testing.T) {
	c0 := repoIRI + "/commits/c0"
	c1 := repoIRI + "/commits/c1"

	srv := newServer(t)
	srv.Store.SelectFn = func(q string) (*store.Results, error) {
		// c1 patches the root, which a branch snapshots.
		return results(
			uri("__mms_commit", c1, "__mms_parent", c0, "__mms_type", vocab.ClassPatch),
			uri("__mms_commit", c0, "__mms_parent", vocab.RDFNil, "__mms_graph", repoIRI+"/graphs/Staging.c0"),
		), nil
	}
	var txID string
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		txID = testutil.TransactionID(q)
		return testutil.Committed(q), nil
	}

	rec := srv.PUT(path, testutil.WithUser("alice"), testutil.WithTurtle(`<> <`+vocab.Commit+`> <`+c1+`> .`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	queries := srv.Store.Queries()
	assert.NotContains(t, queries[0], "?__mms_source")

	updates := srv.Store.Updates()
	require.GreaterOrEqual(t, len(updates), 2)
	model := repoIRI + "/graphs/Model." + txID
	assert.Contains(t, updates[0], "COPY SILENT GRAPH <"+repoIRI+"/graphs/Staging.c0> TO GRAPH <"+model+">")

	write := updates[1]
	assert.Contains(t, write, access.CreateLock.Term().String())
	assert.Contains(t, write, "<"+lockIRI+"> <"+vocab.Commit+"> <"+c1+"> .")
	assert.Contains(t, write, "<"+repoIRI+"/snapshots/Model."+txID+"> <"+vocab.Graph+"> <"+model+"> .")
	assert.Contains(t, write, "<"+c1+"> <"+vocab.RDFType+"> <"+vocab.ClassCommit+"> .")
	assert.NotContains(t, write, "Staging."+txID)
}

func TestPut_UnknownCommit(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		return testutil.Rejected(q, access.ConditionKey, repos.KeyRepoExists, resource.KeyNotExists), nil
	}

	rec := srv.PUT(path, testutil.WithUser("alice"),
		testutil.WithTurtle(`<> <`+vocab.Commit+`> <`+repoIRI+`/commits/missing> .`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "commits/missing")

	var dropped bool
	for _, u := range srv.Store.Updates() {
		dropped = dropped || strings.Contains(u, "DROP SILENT GRAPH <"+repoIRI+"/graphs/Model.")
	}
	assert.True(t, dropped)
}

func TestPut_BothSources(t *testing.T) {
	srv := newServer(t)
	rec := srv.PUT(path, testutil.WithUser("alice"), testutil.WithTurtle(
		`<> <`+vocab.Commit+`> <`+repoIRI+`/commits/c0> ; <`+vocab.Ref+`> <`+repoIRI+`/branches/master> .`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.Store.Updates())
}

func TestDelete(t *testing.T) {
	snapshot := repoIRI + "/graphs/Model.t1"

	t.Run("drops snapshot", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.SelectFn = func(q string) (*store.Results, error) {
			return results(uri("__mms_snapshot", snapshot)), nil
		}
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

		rec := srv.DELETE(path, testutil.WithUser("alice"))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		updates := srv.Store.Updates()
		require.GreaterOrEqual(t, len(updates), 2)
		assert.Contains(t, updates[0], access.DeleteLock.Term().String())
		assert.Contains(t, updates[0], "?__mms_snapshotNode ?__mms_np ?__mms_no .")
		assert.Contains(t, updates[1], "DROP SILENT GRAPH <"+snapshot+">")
	})

	t.Run("not found keeps graphs", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.SelectFn = func(q string) (*store.Results, error) {
			return results(uri("__mms_snapshot", snapshot)), nil
		}
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
			return testutil.Rejected(q, access.ConditionKey, repos.KeyRepoExists), nil
		}

		rec := srv.DELETE(path, testutil.WithUser("alice"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Lock 'v1' not found")
		for _, u := range srv.Store.Updates() {
			assert.NotContains(t, u, "<"+snapshot+">")
		}
	})
}

func TestGraph(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		return testutil.ReadOK(q,
			testutil.LitTriple("urn:a", "urn:p", "x"),
			testutil.IRITriple(lockIRI, vocab.Commit, repoIRI+"/commits/c1"),
		), nil
	}

	rec := srv.GET(path+"/graph", testutil.WithUser("alice"), testutil.WithHeader("Accept", rdfio.MediaNTriples))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `"c1"`, rec.Header().Get("ETag"))
	assert.Contains(t, rec.Body.String(), "<urn:a> <urn:p>")
	assert.Contains(t, srv.Store.Queries()[0], "<"+vocab.ClassModel+">")
	assert.Contains(t, srv.Store.Queries()[0], access.ReadLock.Term().String())
}

func TestQuery(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		return testutil.ReadOK(q, testutil.IRITriple(lockIRI, vocab.Graph, repoIRI+"/graphs/Model.t1")), nil
	}
	var accepted string
	srv.Store.ForwardFn = func(q, accept string) (*store.Response, error) {
		accepted = accept
		return &store.Response{ContentType: rdfio.MediaTurtle, Body: []byte("<urn:a> <urn:p> <urn:b> .")}, nil
	}

	rec := srv.POST(path+"/query", testutil.WithUser("alice"),
		testutil.WithBody(rdfio.MediaSPARQLQuery, `CONSTRUCT WHERE { ?s ?p ?o }`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, rdfio.MediaTurtle, accepted)
	assert.Equal(t, rdfio.MediaTurtle, rec.Header().Get("Content-Type"))

	t.Run("missing snapshot", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.ReadOK(q), nil }
		rec := srv.POST(path+"/query", testutil.WithUser("alice"),
			testutil.WithBody(rdfio.MediaSPARQLQuery, `ASK { ?s ?p ?o }`))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
