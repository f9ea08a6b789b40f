package locks

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
)

// Handler handles lock HTTP requests
type Handler struct {
	svc  *Service
	txns *txn.Manager
}

// NewHandler creates a new locks handler
func NewHandler(svc *Service, txns *txn.Manager) *Handler {
	return &Handler{svc: svc, txns: txns}
}

func ids(c echo.Context) iri.IDs {
	return iri.IDs{Org: c.Param("orgId"), Repo: c.Param("repoId"), Lock: c.Param("lockId")}
}

// List handles GET /orgs/:orgId/repos/:repoId/locks
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

// Get handles GET /orgs/:orgId/repos/:repoId/locks/:lockId
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

// Put handles PUT /orgs/:orgId/repos/:repoId/locks/:lockId
// @Summary      Create lock
// @Tags         locks
// @Accept       text/turtle
// @Produce      text/turtle
// @Param        lockId path string true "Lock ID"
// @Success      201 "Lock created at mms:ref or mms:commit"
// @Failure      404 {object} apperror.Error "Source not found"
// @Failure      409 {object} apperror.Error "Lock already exists"
// @Router       /orgs/{orgId}/repos/{repoId}/locks/{lockId} [put]
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

// Delete handles DELETE /orgs/:orgId/repos/:repoId/locks/:lockId
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

// Graph handles GET /orgs/:orgId/repos/:repoId/locks/:lockId/graph
func (h *Handler) Graph(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, tag, err := h.svc.Graph(ctx, req)
	resource.SetETag(c, tag)
	if err != nil {
		return err
	}
	return resource.Respond(c, http.StatusOK, g, tag)
}

// Query handles POST /orgs/:orgId/repos/:repoId/locks/:lockId/query
func (h *Handler) Query(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	resp, err := h.svc.Query(ctx, req, c.Request().Header.Get(echo.HeaderAccept))
	if err != nil {
		return err
	}
	return resource.Forwarded(c, resp)
}
