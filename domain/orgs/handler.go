package orgs

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
)

// Handler handles HTTP requests for organizations
type Handler struct {
	svc  *Service
	txns *txn.Manager
}

// NewHandler creates a new organization handler
func NewHandler(svc *Service, txns *txn.Manager) *Handler {
	return &Handler{svc: svc, txns: txns}
}

func ids(c echo.Context) iri.IDs {
	return iri.IDs{Org: c.Param("orgId")}
}

// List returns every organization
// @Summary      List organizations
// @Tags         organizations
// @Produce      text/turtle
// @Success      200 "Organizations as RDF"
// @Failure      403 {object} apperror.Error "Not permitted"
// @Router       /orgs [get]
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

// Get returns a single organization
// @Summary      Get organization
// @Tags         organizations
// @Produce      text/turtle
// @Param        orgId path string true "Organization ID"
// @Success      200 "Organization as RDF"
// @Success      304 "Not modified"
// @Failure      404 {object} apperror.Error "Organization not found"
// @Router       /orgs/{orgId} [get]
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

// Put creates an organization, or replaces its metadata when If-Match is sent
// @Summary      Create or replace organization
// @Tags         organizations
// @Accept       text/turtle
// @Produce      text/turtle
// @Param        orgId path string true "Organization ID"
// @Success      201 "Organization created"
// @Success      200 "Organization replaced"
// @Failure      403 {object} apperror.Error "Not permitted"
// @Failure      409 {object} apperror.Error "Organization already exists"
// @Failure      412 {object} apperror.Error "Precondition failed"
// @Router       /orgs/{orgId} [put]
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

// Patch updates an organization's metadata with a SPARQL update
// @Summary      Patch organization
// @Tags         organizations
// @Accept       application/sparql-update
// @Produce      text/turtle
// @Param        orgId path string true "Organization ID"
// @Success      200 "Organization updated"
// @Failure      400 {object} apperror.Error "Update not allowed"
// @Failure      409 {object} apperror.Error "WHERE clause did not match"
// @Router       /orgs/{orgId} [patch]
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

// Delete removes an organization
// @Summary      Delete organization
// @Tags         organizations
// @Param        orgId path string true "Organization ID"
// @Success      204 "Organization deleted"
// @Failure      409 {object} apperror.Error "Organization still has repositories"
// @Router       /orgs/{orgId} [delete]
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
