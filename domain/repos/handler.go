package repos

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
)

// Handler handles HTTP requests for repositories
type Handler struct {
	svc  *Service
	txns *txn.Manager
}

// NewHandler creates a new repository handler
func NewHandler(svc *Service, txns *txn.Manager) *Handler {
	return &Handler{svc: svc, txns: txns}
}

func ids(c echo.Context) iri.IDs {
	return iri.IDs{Org: c.Param("orgId"), Repo: c.Param("repoId")}
}

// List returns the repositories of an organization
// @Summary      List repositories
// @Tags         repositories
// @Produce      text/turtle
// @Param        orgId path string true "Organization ID"
// @Success      200 "Repositories as RDF"
// @Failure      404 {object} apperror.Error "Organization not found"
// @Router       /orgs/{orgId}/repos [get]
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

// Get returns a single repository
// @Summary      Get repository
// @Tags         repositories
// @Produce      text/turtle
// @Param        orgId  path string true "Organization ID"
// @Param        repoId path string true "Repository ID"
// @Success      200 "Repository as RDF"
// @Success      304 "Not modified"
// @Failure      404 {object} apperror.Error "Repository not found"
// @Router       /orgs/{orgId}/repos/{repoId} [get]
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

// Put creates a repository with its default branch, or replaces its metadata
// when If-Match is sent
// @Summary      Create or replace repository
// @Tags         repositories
// @Accept       text/turtle
// @Produce      text/turtle
// @Param        orgId  path string true "Organization ID"
// @Param        repoId path string true "Repository ID"
// @Success      201 "Repository created"
// @Success      200 "Repository replaced"
// @Failure      404 {object} apperror.Error "Organization not found"
// @Failure      409 {object} apperror.Error "Repository already exists"
// @Router       /orgs/{orgId}/repos/{repoId} [put]
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

// Patch updates a repository's metadata with a SPARQL update
// @Summary      Patch repository
// @Tags         repositories
// @Accept       application/sparql-update
// @Produce      text/turtle
// @Param        orgId  path string true "Organization ID"
// @Param        repoId path string true "Repository ID"
// @Success      200 "Repository updated"
// @Router       /orgs/{orgId}/repos/{repoId} [patch]
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
