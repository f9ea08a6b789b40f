package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/testutil"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
)

func newEcho(t *testing.T) *echo.Echo {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	return NewEcho(EchoParams{Config: testutil.TestConfig(), Log: log})
}

func TestNewEcho_Preflight(t *testing.T) {
	e := newEcho(t)
	e.PUT("/orgs/:orgId", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/orgs/acme", nil)
	req.Header.Set(echo.HeaderOrigin, "https://ui.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "If-Match, X-MMS-User")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://ui.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	allowed := rec.Header().Get("Access-Control-Allow-Headers")
	for _, h := range []string{"If-Match", "If-None-Match", "X-MMS-User", "X-MMS-Groups"} {
		assert.Contains(t, allowed, h)
	}
}

func TestNewEcho_ExposesETag(t *testing.T) {
	e := newEcho(t)
	e.GET("/orgs/:orgId", func(c echo.Context) error {
		c.Response().Header().Set("ETag", `"abc"`)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/orgs/acme/", nil)
	req.Header.Set(echo.HeaderOrigin, "https://ui.example.org")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ETag", rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestNewEcho_ErrorHandler(t *testing.T) {
	e := newEcho(t)
	e.GET("/boom", func(c echo.Context) error { return apperror.ErrNotFound.WithMessage("Org 'x' not found") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Org 'x' not found")
}
