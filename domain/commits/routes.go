package commits

import (
	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
)

// RegisterRoutes registers commit routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/orgs/:orgId/repos/:repoId/commits")
	g.Use(authMiddleware.RequireAuth())

	g.GET("/:commitId", h.Get)
	g.HEAD("/:commitId", h.Get)
}
