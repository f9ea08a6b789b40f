package branches

import (
	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
)

// RegisterRoutes registers branch routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/orgs/:orgId/repos/:repoId/branches")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.HEAD("", h.List)

	g.GET("/:branchId", h.Get)
	g.HEAD("/:branchId", h.Get)
	g.PUT("/:branchId", h.Put)
	g.PATCH("/:branchId", h.Patch)

	// Model operations
	g.GET("/:branchId/graph", h.Graph)
	g.HEAD("/:branchId/graph", h.Graph)
	g.PUT("/:branchId/graph", h.Load)
	g.POST("/:branchId/update", h.Update)
	g.POST("/:branchId/query", h.Query)
}
