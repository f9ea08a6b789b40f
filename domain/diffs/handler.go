package diffs

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
)

// Handler handles diff HTTP requests
type Handler struct {
	svc  *Service
	txns *txn.Manager
}

// NewHandler creates a new diffs handler
func NewHandler(svc *Service, txns *txn.Manager) *Handler {
	return &Handler{svc: svc, txns: txns}
}

func ids(c echo.Context) iri.IDs {
	return iri.IDs{Org: c.Param("orgId"), Repo: c.Param("repoId"), Diff: c.Param("diffId")}
}

// List handles GET /orgs/:orgId/repos/:repoId/diffs
func (h *Handler) List(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
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

// Get handles GET /orgs/:orgId/repos/:repoId/diffs/:diffId
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

// Put handles PUT /orgs/:orgId/repos/:repoId/diffs/:diffId
// @Summary      Create diff between two refs
// @Tags         diffs
// @Accept       text/turtle
// @Produce      text/turtle
// @Param        diffId path string true "Diff ID"
// @Success      201 "Diff created"
// @Failure      400 {object} apperror.Error "Missing mms:srcRef or mms:dstRef"
// @Failure      404 {object} apperror.Error "Ref not found"
// @Router       /orgs/{orgId}/repos/{repoId}/diffs/{diffId} [put]
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

// Graph handles GET /orgs/:orgId/repos/:repoId/diffs/:diffId/graph?side=insert|delete
func (h *Handler) Graph(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, tag, err := h.svc.Graph(ctx, req, c.QueryParam("side"))
	resource.SetETag(c, tag)
	if err != nil {
		return err
	}
	return resource.Respond(c, http.StatusOK, g, tag)
}

// Delete handles DELETE /orgs/:orgId/repos/:repoId/diffs/:diffId
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
