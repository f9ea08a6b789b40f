package commits

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
)

// Handler handles commit HTTP requests
type Handler struct {
	svc  *Service
	txns *txn.Manager
}

// NewHandler creates a new commits handler
func NewHandler(svc *Service, txns *txn.Manager) *Handler {
	return &Handler{svc: svc, txns: txns}
}

// Get handles GET /orgs/:orgId/repos/:repoId/commits/:commitId
// @Summary      Read commit
// @Tags         commits
// @Produce      text/turtle
// @Param        commitId path string true "Commit ID"
// @Success      200 "Commit and its data node"
// @Failure      404 {object} apperror.Error "Commit not found"
// @Router       /orgs/{orgId}/repos/{repoId}/commits/{commitId} [get]
func (h *Handler) Get(c echo.Context) error {
	req, err := resource.Begin(c, h.txns, iri.IDs{
		Org:    c.Param("orgId"),
		Repo:   c.Param("repoId"),
		Commit: c.Param("commitId"),
	})
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
