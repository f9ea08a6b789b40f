package policies

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
	policyIRI = testutil.Root + "/policies/alice-acme"
	aliceIRI  = testutil.Root + "/users/alice"
	orgIRI    = testutil.Root + "/orgs/acme"
	writeRole = vocab.ObjectNamespace + "Role.WriteAccess"
	readRole  = vocab.ObjectNamespace + "Role.ReadAccess"
)

func newServer(t *testing.T) *testutil.TestServer {
	t.Helper()
	srv := testutil.NewTestServer()
	RegisterRoutes(srv.Echo, NewHandler(NewService(resource.NewService(srv.Log), srv.Log), srv.Txn), srv.AuthMiddleware)
	return srv
}

func turtle(subjects, scopes, roles []string) string {
	out := ""
	for _, s := range subjects {
		out += "<> <" + vocab.Subject + "> <" + s + "> .\n"
	}
	for _, s := range scopes {
		out += "<> <" + vocab.Scope + "> <" + s + "> .\n"
	}
	for _, r := range roles {
		out += "<> <" + vocab.Role + "> <" + r + "> .\n"
	}
	return out
}

func TestPut(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid",
			body:       turtle([]string{aliceIRI}, []string{orgIRI}, []string{writeRole, readRole}),
			wantStatus: http.StatusCreated,
		},
		{
			name:       "no subject",
			body:       turtle(nil, []string{orgIRI}, []string{writeRole}),
			wantStatus: http.StatusBadRequest,
			wantBody:   "exactly one mms:subject",
		},
		{
			name:       "two scopes",
			body:       turtle([]string{aliceIRI}, []string{orgIRI, testutil.Root + "/"}, []string{writeRole}),
			wantStatus: http.StatusBadRequest,
			wantBody:   "exactly one mms:scope",
		},
		{
			name:       "no role",
			body:       turtle([]string{aliceIRI}, []string{orgIRI}, nil),
			wantStatus: http.StatusBadRequest,
			wantBody:   "at least one mms:role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Committed(q), nil }

			rec := srv.PUT("/policies/alice-acme", testutil.WithUser("root"), testutil.WithTurtle(tt.body))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
				assert.Empty(t, srv.Store.Updates())
				return
			}

			update := srv.Store.Updates()[0]
			assert.Contains(t, update, access.CreatePolicy.Term().String())
			assert.Contains(t, update, "GRAPH <"+testutil.Root+"/graphs/AccessControl.Policies> {")
			assert.Contains(t, update, "<"+policyIRI+"> <"+vocab.Subject+"> <"+aliceIRI+"> .")
			assert.Contains(t, update, "<"+policyIRI+"> <"+vocab.Role+"> <"+readRole+"> .")
		})
	}
}

func TestPut_ReplaceRequiresUpdate(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) { return testutil.Rejected(q), nil }

	rec := srv.PUT("/policies/alice-acme", testutil.WithUser("alice"), testutil.WithIfMatch(`"p1"`),
		testutil.WithTurtle(turtle([]string{aliceIRI}, []string{testutil.Root + "/"}, []string{vocab.ObjectNamespace + "Role.AdminAccess"})))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "UpdatePolicy")
}

func TestGet(t *testing.T) {
	srv := newServer(t)
	srv.Store.ConstructFn = func(q string) (rdfio.Graph, error) {
		return testutil.ReadOK(q,
			testutil.LitTriple(policyIRI, vocab.ETag, "p1"),
			testutil.IRITriple(policyIRI, vocab.Subject, aliceIRI),
		), nil
	}

	rec := srv.GET("/policies/alice-acme", testutil.WithUser("root"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"p1"`, rec.Header().Get("ETag"))
	assert.Contains(t, srv.Store.Queries()[0], access.ReadPolicy.Term().String())
}
