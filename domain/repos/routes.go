package repos

import (
	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
)

// RegisterRoutes registers repository routes
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/orgs/:orgId/repos")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.HEAD("", h.List)

	g.GET("/:repoId", h.Get)
	g.HEAD("/:repoId", h.Get)
	g.PUT("/:repoId", h.Put)
	g.PATCH("/:repoId", h.Patch)
}
