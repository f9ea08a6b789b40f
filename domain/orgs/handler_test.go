package orgs

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/testutil"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/etag"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

const orgIRI = testutil.Root + "/orgs/acme"

func newServer(t *testing.T) *testutil.TestServer {
	t.Helper()
	srv := testutil.NewTestServer()
	svc := NewService(resource.NewService(srv.Log), srv.Log)
	RegisterRoutes(srv.Echo, NewHandler(svc, srv.Txn), srv.AuthMiddleware)
	return srv
}

func ntriples() testutil.RequestOption {
	return testutil.WithHeader("Accept", rdfio.MediaNTriples)
}

func TestPut_CreatesOrg(t *testing.T) {
	srv := newServer(t)
	var txID string
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		txID = testutil.TransactionID(q)
		return testutil.Committed(q,
			testutil.IRITriple(orgIRI, vocab.RDFType, vocab.ClassOrg),
			testutil.LitTriple(orgIRI, vocab.ID, "acme"),
			testutil.LitTriple(orgIRI, vocab.ETag, txID),
		), nil
	}

	rec := srv.PUT("/orgs/acme", testutil.WithUser("alice"), ntriples())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, etag.Header(txID), rec.Header().Get("ETag"))

	got, err := rdfio.DecodeString(rec.Body.String(), rdfio.MediaNTriples, "")
	require.NoError(t, err)
	want := rdfio.Graph{
		testutil.IRITriple(orgIRI, vocab.RDFType, vocab.ClassOrg),
		testutil.LitTriple(orgIRI, vocab.ID, "acme"),
		testutil.LitTriple(orgIRI, vocab.ETag, txID),
	}
	if diff := cmp.Diff(want.Keys(), got.Keys()); diff != "" {
		t.Errorf("response triples mismatch (-want +got):\n%s", diff)
	}

	updates := srv.Store.Updates()
	require.NotEmpty(t, updates)
	assert.Contains(t, updates[0], access.CreateOrg.Term().String())
	assert.Contains(t, updates[0], "GRAPH <"+testutil.Root+"/graphs/Cluster> {")
}

func TestPut_WithUserMetadata(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

	rec := srv.PUT("/orgs/acme", testutil.WithUser("alice"), testutil.WithTurtle(`<> <http://purl.org/dc/terms/title> "Acme" .`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, srv.Store.Updates()[0], `<`+orgIRI+`> <`+vocab.DCTTitle+`> "Acme" .`)
}

func TestPut_ForbiddenNamesPermission(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Rejected(q), nil }

	rec := srv.PUT("/orgs/acme", testutil.WithUser("mallory"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "is not permitted to CreateOrg")
	assert.Contains(t, rec.Body.String(), testutil.Root+"/users/mallory")
}

func TestPut_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		opts       []testutil.RequestOption
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing identity",
			path:       "/orgs/acme",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid identifier",
			path:       "/orgs/-bad",
			opts:       []testutil.RequestOption{testutil.WithUser("alice")},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_id",
		},
		{
			name:       "reserved predicate",
			path:       "/orgs/acme",
			opts:       []testutil.RequestOption{testutil.WithUser("alice"), testutil.WithTurtle(`<> <https://mms.openmbee.org/rdf/ontology/etag> "x" .`)},
			wantStatus: http.StatusBadRequest,
			wantCode:   "predicate_not_allowed",
		},
		{
			name:       "foreign subject",
			path:       "/orgs/acme",
			opts:       []testutil.RequestOption{testutil.WithUser("alice"), testutil.WithTurtle(`<https://mms.example.org/orgs/other> <urn:p> "x" .`)},
			wantStatus: http.StatusBadRequest,
			wantCode:   "subject_not_allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			rec := srv.PUT(tt.path, tt.opts...)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Contains(t, rec.Body.String(), `"code":"`+tt.wantCode+`"`)
			}
			assert.Empty(t, srv.Store.Updates())
		})
	}
}

func TestPut_AlreadyExists(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		return testutil.Rejected(q, access.ConditionKey), nil
	}

	rec := srv.PUT("/orgs/acme", testutil.WithUser("alice"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Org 'acme' already exists")
}

func TestPut_IfMatchReplaces(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

	rec := srv.PUT("/orgs/acme", testutil.WithUser("alice"), testutil.WithIfMatch(`"v1"`),
		testutil.WithTurtle(`<> <http://purl.org/dc/terms/title> "Acme Corp" .`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	update := srv.Store.Updates()[0]
	assert.Contains(t, update, access.UpdateOrg.Term().String())
	assert.Contains(t, update, `FILTER(?__mms_etag IN ("v1"))`)
}

func TestGet(t *testing.T) {
	orgTriples := func(q string) rdfio.Graph {
		return testutil.ReadOK(q,
			testutil.IRITriple(orgIRI, vocab.RDFType, vocab.ClassOrg),
			testutil.LitTriple(orgIRI, vocab.ID, "acme"),
			testutil.LitTriple(orgIRI, vocab.ETag, "v1"),
		)
	}

	t.Run("ok", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return orgTriples(q), nil }

		rec := srv.GET("/orgs/acme", testutil.WithUser("alice"), ntriples())
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, `"v1"`, rec.Header().Get("ETag"))
		assert.Equal(t, rdfio.MediaNTriples, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), `"acme"`)
		assert.Empty(t, srv.Store.Updates())
	})

	t.Run("if-none-match star on existing is 304", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return orgTriples(q), nil }

		rec := srv.GET("/orgs/acme", testutil.WithUser("alice"), testutil.WithIfNoneMatch("*"))
		assert.Equal(t, http.StatusNotModified, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, `"v1"`, rec.Header().Get("ETag"))
	})

	t.Run("stale if-match is 412", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return orgTriples(q), nil }

		rec := srv.GET("/orgs/acme", testutil.WithUser("alice"), testutil.WithIfMatch(`"v0"`))
		assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	})

	t.Run("head has no body", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return orgTriples(q), nil }

		rec := srv.HEAD("/orgs/acme", testutil.WithUser("alice"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, `"v1"`, rec.Header().Get("ETag"))
	})

	t.Run("not found", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
			return testutil.Rejected(q, access.ConditionKey), nil
		}

		rec := srv.GET("/orgs/acme", testutil.WithUser("alice"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Org 'acme' not found")
	})
}

func TestList_ComposesETag(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		return testutil.ReadOK(q,
			testutil.LitTriple(orgIRI, vocab.ETag, "b"),
			testutil.LitTriple(testutil.Root+"/orgs/beta", vocab.ETag, "a"),
		), nil
	}

	rec := srv.GET("/orgs", testutil.WithUser("alice"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, etag.Header(etag.Compose([]string{"a", "b"})), rec.Header().Get("ETag"))
}

func TestPatch(t *testing.T) {
	t.Run("applies sandboxed update", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

		rec := srv.PATCH("/orgs/acme", testutil.WithUser("alice"),
			testutil.WithBody(rdfio.MediaSPARQLUpdate, `INSERT DATA { <> <http://purl.org/dc/terms/title> "Acme" }`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		update := srv.Store.Updates()[0]
		assert.Contains(t, update, `<`+orgIRI+`> <`+vocab.DCTTitle+`> "Acme" .`)
		assert.Contains(t, update, access.UpdateOrg.Term().String())
	})

	t.Run("rejects quads", func(t *testing.T) {
		srv := newServer(t)
		rec := srv.PATCH("/orgs/acme", testutil.WithUser("alice"),
			testutil.WithBody(rdfio.MediaSPARQLUpdate, `INSERT DATA { GRAPH <urn:x> { <> <urn:p> "x" } }`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "quads_not_allowed")
		assert.Empty(t, srv.Store.Updates())
	})

	t.Run("rejects other content types", func(t *testing.T) {
		srv := newServer(t)
		rec := srv.PATCH("/orgs/acme", testutil.WithUser("alice"), testutil.WithTurtle(`<> <urn:p> "x" .`))
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}

func TestDelete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

		rec := srv.DELETE("/orgs/acme", testutil.WithUser("alice"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, strings.Contains(srv.Store.Updates()[0], access.DeleteOrg.Term().String()))
	})

	t.Run("still has repositories", func(t *testing.T) {
		srv := newServer(t)
		srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
			return testutil.Rejected(q, access.ConditionKey, resource.KeyExists), nil
		}

		rec := srv.DELETE("/orgs/acme", testutil.WithUser("alice"))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "still has repositories")
	})
}
