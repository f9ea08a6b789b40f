package testutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
)

// Root is the root context used by test servers.
const Root = "https://mms.example.org"

// TestServer wraps an Echo instance for testing
type TestServer struct {
	Echo           *echo.Echo
	Store          *FakeStore
	Config         *config.Config
	Log            *slog.Logger
	AuthMiddleware *auth.Middleware
	Txn            *txn.Manager
}

// TestConfig returns the configuration used by test servers.
func TestConfig() *config.Config {
	return &config.Config{
		RootContext: Root,
		ServiceID:   "flexo-mms-test",
		Auth: config.AuthConfig{
			UserHeader:   "X-MMS-User",
			GroupsHeader: "X-MMS-Groups",
		},
		Bootstrap: config.BootstrapConfig{Enabled: true, RootUser: "root"},
	}
}

// NewTestServer creates an Echo instance with the production error handler and
// a fake store. Callers register the routes under test.
func NewTestServer() *TestServer {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg := TestConfig()
	fake := NewFakeStore()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(log)

	return &TestServer{
		Echo:           e,
		Store:          fake,
		Config:         cfg,
		Log:            log,
		AuthMiddleware: auth.NewMiddleware(cfg, log),
		Txn:            txn.NewManager(fake, cfg, log),
	}
}

// Request performs an HTTP request against the test server
func (s *TestServer) Request(method, path string, opts ...RequestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// GET performs a GET request
func (s *TestServer) GET(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodGet, path, opts...)
}

// HEAD performs a HEAD request
func (s *TestServer) HEAD(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodHead, path, opts...)
}

// POST performs a POST request
func (s *TestServer) POST(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPost, path, opts...)
}

// PUT performs a PUT request
func (s *TestServer) PUT(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPut, path, opts...)
}

// DELETE performs a DELETE request
func (s *TestServer) DELETE(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodDelete, path, opts...)
}

// PATCH performs a PATCH request
func (s *TestServer) PATCH(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPatch, path, opts...)
}

// RequestOption modifies an HTTP request
type RequestOption func(*http.Request)

// WithHeader adds a header to the request
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithUser sets the identity headers
func WithUser(user string, groups ...string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set("X-MMS-User", user)
		if len(groups) > 0 {
			r.Header.Set("X-MMS-Groups", strings.Join(groups, ","))
		}
	}
}

// WithBody adds a request body with its content type
func WithBody(contentType, body string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set("Content-Type", contentType)
		r.Body = io.NopCloser(strings.NewReader(body))
		r.ContentLength = int64(len(body))
	}
}

// WithTurtle adds a Turtle request body
func WithTurtle(body string) RequestOption {
	return WithBody("text/turtle", body)
}

// WithIfMatch adds an If-Match header
func WithIfMatch(etag string) RequestOption {
	return WithHeader("If-Match", etag)
}

// WithIfNoneMatch adds an If-None-Match header
func WithIfNoneMatch(etag string) RequestOption {
	return WithHeader("If-None-Match", etag)
}

// ResponseGraph decodes an RDF response body using its Content-Type.
func ResponseGraph(t require.TestingT, rec *httptest.ResponseRecorder) rdfio.Graph {
	g, err := rdfio.DecodeString(rec.Body.String(), rec.Header().Get(echo.HeaderContentType), Root)
	require.NoError(t, err)
	return g
}
