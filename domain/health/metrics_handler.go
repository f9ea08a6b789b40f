package health

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the Prometheus registry
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler serves the default registry, which holds the store and
// transaction collectors.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{handler: promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})}
}

// Metrics handles GET /metrics
func (h *MetricsHandler) Metrics(c echo.Context) error {
	h.handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
