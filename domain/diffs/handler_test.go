package diffs

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/history"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/repos"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/testutil"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

const (
	repoIRI = testutil.Root + "/orgs/acme/repos/model"
	diffIRI = repoIRI + "/diffs/d1"
	srcIRI  = repoIRI + "/locks/v1"
	dstIRI  = repoIRI + "/branches/master"
	path    = "/orgs/acme/repos/model/diffs/d1"
)

func newServer(t *testing.T) *testutil.TestServer {
	t.Helper()
	srv := testutil.NewTestServer()
	svc := NewService(resource.NewService(srv.Log), history.NewRebuilder(srv.Log), srv.Log)
	RegisterRoutes(srv.Echo, NewHandler(svc, srv.Txn), srv.AuthMiddleware)
	return srv
}

func refs() testutil.RequestOption {
	return testutil.WithTurtle(`<> <` + vocab.SrcRef + `> <` + srcIRI + `> ; <` + vocab.DstRef + `> <` + dstIRI + `> .`)
}

func TestPut_ComputesGraphs(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

	rec := srv.PUT(path, testutil.WithUser("alice"), refs())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	updates := srv.Store.Updates()
	require.GreaterOrEqual(t, len(updates), 2)

	write := updates[0]
	assert.Contains(t, write, access.CreateDiff.Term().String())
	assert.Contains(t, write, "<"+srcIRI+"> <"+vocab.Commit+"> ?__mms_srcCommit .")
	assert.Contains(t, write, "<"+diffIRI+"> <"+vocab.SrcRef+"> <"+srcIRI+"> .")
	assert.Contains(t, write, "<"+diffIRI+"> <"+vocab.InsertGraph+"> <"+repoIRI+"/graphs/Diff.d1.Insert> .")

	fill := updates[1]
	assert.Contains(t, fill, "DROP SILENT GRAPH <"+repoIRI+"/graphs/Diff.d1.Insert>")
	assert.Contains(t, fill, "GRAPH <"+repoIRI+"/graphs/Diff.d1.Delete> {")
	assert.Contains(t, fill, "GRAPH ?__mms_srcGraph {")
	assert.Contains(t, fill, "FILTER(NOT EXISTS")
	assert.Equal(t, 2, strings.Count(fill, "INSERT {"))
}

func TestPut_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		bound      []string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing dst",
			body:       `<> <` + vocab.SrcRef + `> <` + srcIRI + `> .`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "mms:dstRef",
		},
		{
			name:       "unknown src",
			body:       `<> <` + vocab.SrcRef + `> <` + srcIRI + `> ; <` + vocab.DstRef + `> <` + dstIRI + `> .`,
			bound:      []string{access.ConditionKey, repos.KeyRepoExists},
			wantStatus: http.StatusNotFound,
			wantBody:   "locks/v1",
		},
		{
			name:       "unknown dst",
			body:       `<> <` + vocab.SrcRef + `> <` + srcIRI + `> ; <` + vocab.DstRef + `> <` + dstIRI + `> .`,
			bound:      []string{access.ConditionKey, repos.KeyRepoExists, KeySrcRef},
			wantStatus: http.StatusNotFound,
			wantBody:   "branches/master",
		},
		{
			name:       "already exists",
			body:       `<> <` + vocab.SrcRef + `> <` + srcIRI + `> ; <` + vocab.DstRef + `> <` + dstIRI + `> .`,
			bound:      []string{access.ConditionKey, repos.KeyRepoExists, KeySrcRef, KeyDstRef},
			wantStatus: http.StatusConflict,
			wantBody:   "Diff 'd1' already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Rejected(q, tt.bound...), nil }

			rec := srv.PUT(path, testutil.WithUser("alice"), testutil.WithTurtle(tt.body))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			for _, u := range srv.Store.Updates() {
				assert.NotContains(t, u, "Diff.d1.Insert> {")
			}
		})
	}
}

func TestGraph(t *testing.T) {
	answer := func(q string) (rdfio.Graph, error) {
		return testutil.ReadOK(q,
			testutil.IRITriple("urn:a", "urn:p", "urn:b"),
			testutil.LitTriple(diffIRI, vocab.ETag, "t1"),
		), nil
	}

	t.Run("delete side", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = answer

		rec := srv.GET(path+"/graph?side=delete", testutil.WithUser("alice"), testutil.WithHeader("Accept", rdfio.MediaNTriples))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, `"t1"`, rec.Header().Get("ETag"))
		assert.Contains(t, rec.Body.String(), "<urn:a> <urn:p> <urn:b>")
		assert.NotContains(t, rec.Body.String(), vocab.ETag)
		assert.Contains(t, srv.Store.Queries()[0], "<"+vocab.DeleteGraph+"> ?__mms_diffGraph")
	})

	t.Run("bad side", func(t *testing.T) {
		srv := newServer(t)
		rec := srv.GET(path+"/graph?side=both", testutil.WithUser("alice"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, srv.Store.Queries())
	})
}

func TestDelete(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

	rec := srv.DELETE(path, testutil.WithUser("alice"), testutil.WithIfMatch(`"t1"`))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	updates := srv.Store.Updates()
	require.GreaterOrEqual(t, len(updates), 2)
	assert.Contains(t, updates[0], access.DeleteDiff.Term().String())
	assert.Contains(t, updates[0], `FILTER(?__mms_etag IN ("t1"))`)
	assert.Contains(t, updates[1], "DROP SILENT GRAPH <"+repoIRI+"/graphs/Diff.d1.Insert>")
	assert.Contains(t, updates[1], "DROP SILENT GRAPH <"+repoIRI+"/graphs/Diff.d1.Delete>")
}
