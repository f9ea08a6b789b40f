package locks

import (
	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
)

// RegisterRoutes registers lock routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/orgs/:orgId/repos/:repoId/locks")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.HEAD("", h.List)

	g.GET("/:lockId", h.Get)
	g.HEAD("/:lockId", h.Get)
	g.PUT("/:lockId", h.Put)
	g.DELETE("/:lockId", h.Delete)

	g.GET("/:lockId/graph", h.Graph)
	g.HEAD("/:lockId/graph", h.Graph)
	g.POST("/:lockId/query", h.Query)
}
