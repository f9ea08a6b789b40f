package commits

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/repos"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/testutil"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

const commitIRI = testutil.Root + "/orgs/acme/repos/model/commits/c1"

func newServer(t *testing.T) *testutil.TestServer {
	t.Helper()
	srv := testutil.NewTestServer()
	RegisterRoutes(srv.Echo, NewHandler(NewService(resource.NewService(srv.Log), srv.Log), srv.Txn), srv.AuthMiddleware)
	return srv
}

func TestGet(t *testing.T) {
	tests := []struct {
		name       string
		answer     func(q string) rdfio.Graph
		headers    []testutil.RequestOption
		wantStatus int
		wantETag   string
		wantBody   string
	}{
		{
			name: "commit with data",
			answer: func(q string) rdfio.Graph {
				return testutil.ReadOK(q,
					testutil.LitTriple(commitIRI, vocab.ETag, "c1"),
					testutil.IRITriple(commitIRI, vocab.Data, commitIRI+"/data"),
					testutil.IRITriple(commitIRI+"/data", vocab.RDFType, vocab.ClassPatch),
				)
			},
			wantStatus: http.StatusOK,
			wantETag:   `"c1"`,
			wantBody:   vocab.ClassPatch,
		},
		{
			name: "not found",
			answer: func(q string) rdfio.Graph {
				return testutil.Rejected(q, access.ConditionKey, repos.KeyRepoExists)
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "Commit 'c1' not found",
		},
		{
			name: "not modified",
			answer: func(q string) rdfio.Graph {
				return testutil.ReadOK(q, testutil.LitTriple(commitIRI, vocab.ETag, "c1"))
			},
			headers:    []testutil.RequestOption{testutil.WithIfNoneMatch("*")},
			wantStatus: http.StatusNotModified,
			wantETag:   `"c1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return tt.answer(q), nil }

			opts := append([]testutil.RequestOption{testutil.WithUser("alice"), testutil.WithHeader("Accept", rdfio.MediaNTriples)}, tt.headers...)
			rec := srv.GET("/orgs/acme/repos/model/commits/c1", opts...)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantETag, rec.Header().Get("ETag"))
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestGet_ReadsDataNode(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.ReadOK(q), nil }

	srv.GET("/orgs/acme/repos/model/commits/c1", testutil.WithUser("alice"))
	require.Len(t, srv.Store.Queries(), 1)
	query := srv.Store.Queries()[0]
	assert.Contains(t, query, access.ReadCommit.Term().String())
	assert.Contains(t, query, "<"+commitIRI+"/data> ?__mms_dp ?__mms_do .")
}
