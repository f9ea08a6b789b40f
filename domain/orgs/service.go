package orgs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sandbox"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Kind describes organizations.
var Kind = resource.Kind{
	Name:   "Org",
	Class:  vocab.ClassOrg,
	Create: access.CreateOrg,
	Read:   access.ReadOrg,
	Update: access.UpdateOrg,
	Delete: access.DeleteOrg,
}

// KeyEmpty is the condition that an org being deleted has no repositories.
const KeyEmpty = "orgEmpty"

// Service handles business logic for organizations
type Service struct {
	res *resource.Service
	log *slog.Logger
}

// NewService creates a new organization service
func NewService(res *resource.Service, log *slog.Logger) *Service {
	return &Service{
		res: res,
		log: log.With(logger.Scope("orgs.svc")),
	}
}

// Resource addresses the org of the transaction's context.
func Resource(tx *txn.Txn) (resource.Resource, error) {
	ids := tx.IRI.IDs()
	subj, err := tx.IRI.Get("mo")
	if err != nil {
		return resource.Resource{}, err
	}
	graph, err := tx.IRI.Expand("m-graph", "Cluster")
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Resource{Kind: Kind, ID: ids.Org, IRI: subj, Graph: graph}, nil
}

// Put creates or replaces an organization
func (s *Service) Put(ctx context.Context, req *resource.Request) (rdfio.Graph, int, error) {
	org, err := Resource(req.Tx)
	if err != nil {
		return nil, 0, err
	}
	body, err := org.ParseBody(req.Body, req.ContentType)
	if err != nil {
		return nil, 0, err
	}
	g, status, err := s.res.Put(ctx, req, org, body, resource.Extra{})
	if err == nil && status == http.StatusCreated {
		s.log.Info("organization created", slog.String("org", org.ID), slog.String("user", req.Tx.Actor.User))
	}
	return g, status, err
}

// Patch applies a sandboxed update to an organization's metadata
func (s *Service) Patch(ctx context.Context, req *resource.Request) (rdfio.Graph, error) {
	if err := req.RequireMedia(rdfio.MediaSPARQLUpdate); err != nil {
		return nil, err
	}
	org, err := Resource(req.Tx)
	if err != nil {
		return nil, err
	}
	policy := sandbox.MetadataPolicy(org.IRI, org.IRI, req.Tx.IRI.Prologue().Map())
	return s.res.Patch(ctx, req.Tx, org, req.Body, policy, req.Pre, resource.Extra{})
}

// Get reads one organization
func (s *Service) Get(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	org, err := Resource(req.Tx)
	if err != nil {
		return nil, "", err
	}
	return s.res.Get(ctx, req.Tx, org, req.Pre, resource.Extra{})
}

// List reads every organization in the cluster
func (s *Service) List(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	graph, err := req.Tx.IRI.Expand("m-graph", "Cluster")
	if err != nil {
		return nil, "", err
	}
	return s.res.List(ctx, req.Tx, Kind, graph, access.ReadOrg.Within(access.LevelCluster), nil, req.Pre, resource.Extra{})
}

// Delete removes an organization that no longer has repositories
func (s *Service) Delete(ctx context.Context, req *resource.Request) error {
	org, err := Resource(req.Tx)
	if err != nil {
		return err
	}
	empty := func(b *conditions.Builder) {
		b.Require(KeyEmpty, func() *apperror.Error {
			return apperror.ErrConflict.WithMessage(fmt.Sprintf("Org '%s' still has repositories", org.ID))
		}, sparql.Filter(sparql.NotExists(org.In(
			sparql.T(sparql.Var("__mms_repo"), sparql.IRI(vocab.Org), org.Subject()),
		))))
	}
	if err := s.res.Delete(ctx, req.Tx, org, req.Pre, resource.Extra{Conditions: empty}); err != nil {
		return err
	}
	s.log.Info("organization deleted", slog.String("org", org.ID), slog.String("user", req.Tx.Actor.User))
	return nil
}
