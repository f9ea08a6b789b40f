package groups

import (
	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
)

// RegisterRoutes registers group routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/groups")
	g.Use(authMiddleware.RequireAuth())

	g.GET("/:groupId", h.Get)
	g.HEAD("/:groupId", h.Get)
	g.PUT("/:groupId", h.Put)
	g.PATCH("/:groupId", h.Patch)
	g.DELETE("/:groupId", h.Delete)
}
