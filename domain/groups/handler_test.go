package groups

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/testutil"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

const (
	groupIRI = testutil.Root + "/groups/eng"
	aliceIRI = testutil.Root + "/users/alice"
	agents   = testutil.Root + "/graphs/AccessControl.Agents"
)

func newServer(t *testing.T) *testutil.TestServer {
	t.Helper()
	srv := testutil.NewTestServer()
	RegisterRoutes(srv.Echo, NewHandler(NewService(resource.NewService(srv.Log), srv.Log), srv.Txn), srv.AuthMiddleware)
	return srv
}

func TestPut(t *testing.T) {
	t.Run("creates with members", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

		rec := srv.PUT("/groups/eng", testutil.WithUser("root"),
			testutil.WithTurtle(`<> <`+vocab.Member+`> <`+aliceIRI+`> ; <http://www.w3.org/2000/01/rdf-schema#label> "Engineering" .`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		update := srv.Store.Updates()[0]
		assert.Contains(t, update, access.CreateGroup.Term().String())
		assert.Contains(t, update, "GRAPH <"+agents+"> {")
		assert.Contains(t, update, "<"+groupIRI+"> <"+vocab.Member+"> <"+aliceIRI+"> .")
		assert.Contains(t, update, "<"+groupIRI+"> <"+vocab.ID+"> \"eng\" .")
	})

	t.Run("replace keeps members given", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

		rec := srv.PUT("/groups/eng", testutil.WithUser("root"), testutil.WithIfMatch("*"),
			testutil.WithTurtle(`<> <`+vocab.Member+`> <`+aliceIRI+`> .`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		update := srv.Store.Updates()[0]
		assert.Contains(t, update, access.UpdateGroup.Term().String())
		assert.Contains(t, update, "<"+groupIRI+"> <"+vocab.Member+"> <"+aliceIRI+"> .")
	})

	t.Run("rejects statements about others", func(t *testing.T) {
		srv := newServer(t)
		rec := srv.PUT("/groups/eng", testutil.WithUser("root"),
			testutil.WithTurtle(`<`+aliceIRI+`> <`+vocab.Member+`> <> .`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "subject_not_allowed")
	})

	t.Run("invalid id", func(t *testing.T) {
		srv := newServer(t)
		rec := srv.PUT("/groups/bad%20id", testutil.WithUser("root"), testutil.WithTurtle(""))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, srv.Store.Updates())
	})
}

func TestPatch_AllowsMembers(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

	rec := srv.PATCH("/groups/eng", testutil.WithUser("root"),
		testutil.WithBody(rdfio.MediaSPARQLUpdate, `PREFIX mms: <`+vocab.Namespace+`> INSERT DATA { <> mms:member <`+aliceIRI+`> }`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, srv.Store.Updates()[0], "<"+groupIRI+"> <"+vocab.Member+"> <"+aliceIRI+">")

	rec = srv.PATCH("/groups/eng", testutil.WithUser("root"),
		testutil.WithBody(rdfio.MediaSPARQLUpdate, `PREFIX mms: <`+vocab.Namespace+`> INSERT DATA { <> mms:etag "x" }`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "predicate_not_allowed")
}

func TestGet(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		return testutil.ReadOK(q,
			testutil.LitTriple(groupIRI, vocab.ETag, "g1"),
			testutil.IRITriple(groupIRI, vocab.Member, aliceIRI),
		), nil
	}

	rec := srv.GET("/groups/eng", testutil.WithUser("alice"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `"g1"`, rec.Header().Get("ETag"))
	assert.True(t, testutil.ResponseGraph(t, rec).Has(groupIRI, vocab.Member, aliceIRI))
	assert.Contains(t, srv.Store.Queries()[0], access.ReadGroup.Term().String())
}

func TestDelete(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		return testutil.Rejected(q, access.ConditionKey), nil
	}

	rec := srv.DELETE("/groups/eng", testutil.WithUser("root"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Group 'eng' not found")
}
