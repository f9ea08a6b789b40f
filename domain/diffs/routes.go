package diffs

import (
	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
)

// RegisterRoutes registers diff routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/orgs/:orgId/repos/:repoId/diffs")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.HEAD("", h.List)

	g.GET("/:diffId", h.Get)
	g.HEAD("/:diffId", h.Get)
	g.PUT("/:diffId", h.Put)
	g.DELETE("/:diffId", h.Delete)

	g.GET("/:diffId/graph", h.Graph)
	g.HEAD("/:diffId/graph", h.Graph)
}
