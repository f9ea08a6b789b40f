package branches

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
)

// Handler handles branch HTTP requests
type Handler struct {
	svc  *Service
	txns *txn.Manager
}

// NewHandler creates a new branches handler
func NewHandler(svc *Service, txns *txn.Manager) *Handler {
	return &Handler{svc: svc, txns: txns}
}

func ids(c echo.Context) iri.IDs {
	return iri.IDs{Org: c.Param("orgId"), Repo: c.Param("repoId"), Branch: c.Param("branchId")}
}

// List handles GET /orgs/:orgId/repos/:repoId/branches
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

// Get handles GET /orgs/:orgId/repos/:repoId/branches/:branchId
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

// Put handles PUT /orgs/:orgId/repos/:repoId/branches/:branchId
// @Summary      Create branch or replace its metadata
// @Tags         branches
// @Accept       text/turtle
// @Produce      text/turtle
// @Param        branchId path string true "Branch ID"
// @Success      201 "Branch created from mms:ref or mms:commit"
// @Success      200 "Branch metadata replaced"
// @Failure      400 {object} apperror.Error "Missing source"
// @Failure      404 {object} apperror.Error "Source not found"
// @Failure      409 {object} apperror.Error "Branch already exists"
// @Router       /orgs/{orgId}/repos/{repoId}/branches/{branchId} [put]
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

// Patch handles PATCH /orgs/:orgId/repos/:repoId/branches/:branchId
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

// Graph handles GET /orgs/:orgId/repos/:repoId/branches/:branchId/graph
// @Summary      Read branch model
// @Tags         branches
// @Produce      text/turtle
// @Success      200 "Model as RDF; ETag is the head commit id"
// @Router       /orgs/{orgId}/repos/{repoId}/branches/{branchId}/graph [get]
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

// Load handles PUT /orgs/:orgId/repos/:repoId/branches/:branchId/graph
// @Summary      Overwrite branch model
// @Tags         branches
// @Accept       text/turtle
// @Produce      text/turtle
// @Success      200 "Load committed"
// @Failure      412 {object} apperror.Error "Precondition failed"
// @Router       /orgs/{orgId}/repos/{repoId}/branches/{branchId}/graph [put]
func (h *Handler) Load(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, err := h.svc.Load(ctx, req)
	if err != nil {
		return err
	}
	return resource.Respond(c, http.StatusOK, g, req.Tx.ID)
}

// Update handles POST /orgs/:orgId/repos/:repoId/branches/:branchId/update
// @Summary      Update branch model
// @Tags         branches
// @Accept       application/sparql-update
// @Produce      text/turtle
// @Success      200 "Patch committed"
// @Failure      400 {object} apperror.Error "Update not allowed"
// @Failure      409 {object} apperror.Error "WHERE clause did not match"
// @Failure      412 {object} apperror.Error "Precondition failed"
// @Router       /orgs/{orgId}/repos/{repoId}/branches/{branchId}/update [post]
func (h *Handler) Update(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, ids(c))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	defer req.Tx.Close(ctx)

	g, err := h.svc.Update(ctx, req)
	if err != nil {
		return err
	}
	return resource.Respond(c, http.StatusOK, g, req.Tx.ID)
}

// Query handles POST /orgs/:orgId/repos/:repoId/branches/:branchId/query
// @Summary      Query branch model
// @Tags         branches
// @Accept       application/sparql-query
// @Produce      application/sparql-results+json
// @Success      200 "Query results"
// @Router       /orgs/{orgId}/repos/{repoId}/branches/{branchId}/query [post]
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
