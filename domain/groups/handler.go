package groups

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
)

// Handler handles group HTTP requests
type Handler struct {
	svc  *Service
	txns *txn.Manager
}

// NewHandler creates a new groups handler
func NewHandler(svc *Service, txns *txn.Manager) *Handler {
	return &Handler{svc: svc, txns: txns}
}

func ids(c echo.Context) iri.IDs {
	return iri.IDs{Group: c.Param("groupId")}
}

// Get handles GET /groups/:groupId
func (h *Handler) Get(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, tag, err := h.svc.Get(ctx, req)
	resource.SetETag(c, tag)
	if err != nil {
		return err
	}
	return resource.Respond(c, http.StatusOK, g, tag)
}

// Put handles PUT /groups/:groupId
// @Summary      Create group or replace it
// @Tags         groups
// @Accept       text/turtle
// @Produce      text/turtle
// @Param        groupId path string true "Group ID"
// @Success      201 "Group created"
// @Success      200 "Group replaced"
// @Router       /groups/{groupId} [put]
func (h *Handler) Put(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, status, err := h.svc.Put(ctx, req)
	if err != nil {
		return err
	}
	return resource.Respond(c, status, g, req.Tx.ID)
}

// Patch handles PATCH /groups/:groupId
func (h *Handler) Patch(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, err := h.svc.Patch(ctx, req)
	if err != nil {
		return err
	}
	return resource.Respond(c, http.StatusOK, g, req.Tx.ID)
}

// Delete handles DELETE /groups/:groupId
func (h *Handler) Delete(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	if err := h.svc.Delete(ctx, req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
