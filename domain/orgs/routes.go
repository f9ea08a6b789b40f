package orgs

import (
	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
)

// RegisterRoutes registers organization routes
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	// All org endpoints require an identity
	g := e.Group("/orgs")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.HEAD("", h.List)

	g.GET("/:orgId", h.Get)
	g.HEAD("/:orgId", h.Get)
	g.PUT("/:orgId", h.Put)
	g.PATCH("/:orgId", h.Patch)
	g.DELETE("/:orgId", h.Delete)
}
