package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/store"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/version"
)

// pingQuery is the cheapest query every SPARQL 1.1 service answers.
const pingQuery = "ASK {}"

// Handler handles health check requests
type Handler struct {
	store   store.Executor
	cfg     *config.Config
	startAt time.Time
}

// NewHandler creates a new health handler
func NewHandler(st store.Executor, cfg *config.Config) *Handler {
	return &Handler{
		store:   st,
		cfg:     cfg,
		startAt: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := h.store.Ask(ctx, pingQuery)
	return err
}

// Health returns the overall service health
// @Summary      Get service health
// @Description  Returns detailed health status including SPARQL store reachability and uptime
// @Tags         health
// @Produce      json
// @Success      200 {object} HealthResponse "Service is healthy"
// @Success      503 {object} HealthResponse "Service is unhealthy"
// @Router       /health [get]
func (h *Handler) Health(c echo.Context) error {
	storeCheck := Check{Status: "healthy"}
	if err := h.ping(c.Request().Context()); err != nil {
		storeCheck = Check{Status: "unhealthy", Message: err.Error()}
	}

	response := HealthResponse{
		Status:    storeCheck.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Version:   version.Version,
		Checks:    map[string]Check{"store": storeCheck},
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, response)
}

// Healthz returns a simple health check (for k8s liveness probe)
// @Summary      Liveness probe
// @Tags         health
// @Produce      plain
// @Success      200 {string} string "OK"
// @Router       /healthz [get]
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready returns readiness status (for k8s readiness probe)
// @Summary      Readiness probe
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]any "Service is ready"
// @Success      503 {object} map[string]any "Service is not ready"
// @Router       /ready [get]
func (h *Handler) Ready(c echo.Context) error {
	if err := h.ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": "SPARQL store unreachable",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// Debug returns debug information (only in development)
// @Router       /debug [get]
func (h *Handler) Debug(c echo.Context) error {
	if h.cfg.Environment == "production" {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(http.StatusOK, map[string]any{
		"build":        version.Info(),
		"environment":  h.cfg.Environment,
		"debug":        h.cfg.Debug,
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"root_context": h.cfg.RootContext,
		"service_id":   h.cfg.ServiceID,
		"memory": map[string]any{
			"alloc_mb":       mem.Alloc / 1024 / 1024,
			"total_alloc_mb": mem.TotalAlloc / 1024 / 1024,
			"sys_mb":         mem.Sys / 1024 / 1024,
			"num_gc":         mem.NumGC,
		},
		"store": map[string]any{
			"query_url":  h.cfg.Store.QueryURL,
			"update_url": h.cfg.Store.UpdateURL,
		},
	})
}
