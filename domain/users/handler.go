package users

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
)

// Handler handles HTTP requests for users
type Handler struct {
	svc  *Service
	txns *txn.Manager
}

// NewHandler creates a new users handler
func NewHandler(svc *Service, txns *txn.Manager) *Handler {
	return &Handler{svc: svc, txns: txns}
}

// List handles GET /users
func (h *Handler) List(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, iri.IDs{})
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, tag, err := h.svc.List(ctx, req)
	resource.SetETag(c, tag)
	if err != nil {
		return err
	}
	return resource.Respond(c, http.StatusOK, g, tag)
}

// Get handles GET /users/:userId
func (h *Handler) Get(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, iri.IDs{})
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, tag, err := h.svc.Get(ctx, req, c.Param("userId"))
	resource.SetETag(c, tag)
	if err != nil {
		return err
	}
	return resource.Respond(c, http.StatusOK, g, tag)
}

// Put handles PUT /users/:userId
// @Summary      Declare user
// @Tags         users
// @Accept       text/turtle
// @Produce      text/turtle
// @Param        userId path string true "User ID"
// @Success      201 "User declared"
// @Router       /users/{userId} [put]
func (h *Handler) Put(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, iri.IDs{})
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, status, err := h.svc.Put(ctx, req, c.Param("userId"))
	if err != nil {
		return err
	}
	return resource.Respond(c, status, g, req.Tx.ID)
}
