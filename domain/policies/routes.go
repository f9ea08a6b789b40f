package policies

import (
	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
)

// RegisterRoutes registers policy routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/policies")
	g.Use(authMiddleware.RequireAuth())

	g.GET("/:policyId", h.Get)
	g.HEAD("/:policyId", h.Get)
	g.PUT("/:policyId", h.Put)
	g.DELETE("/:policyId", h.Delete)
}
