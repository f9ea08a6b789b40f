package groups

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sandbox"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Kind describes groups. Members are users or other groups named with
// mms:member; the group's mms:id is also what federated group claims match.
var Kind = resource.Kind{
	Name:   "Group",
	Class:  vocab.ClassGroup,
	Create: access.CreateGroup,
	Read:   access.ReadGroup,
	Update: access.UpdateGroup,
	Delete: access.DeleteGroup,
	Accept: []string{vocab.Member},
}

// Service handles business logic for groups
type Service struct {
	res *resource.Service
	log *slog.Logger
}

// NewService creates a new groups service
func NewService(res *resource.Service, log *slog.Logger) *Service {
	return &Service{res: res, log: log.With(logger.Scope("groups.svc"))}
}

// Resource addresses the group of the transaction's context.
func Resource(tx *txn.Txn) (resource.Resource, error) {
	subj, err := tx.IRI.Get("mg")
	if err != nil {
		return resource.Resource{}, err
	}
	graph, err := tx.IRI.Expand("m-graph", "AccessControl.Agents")
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Resource{Kind: Kind, ID: tx.IRI.IDs().Group, IRI: subj, Graph: graph}, nil
}

// Put creates a group or, with If-Match, replaces its metadata and members.
func (s *Service) Put(ctx context.Context, req *resource.Request) (rdfio.Graph, int, error) {
	group, err := Resource(req.Tx)
	if err != nil {
		return nil, 0, err
	}
	body, err := group.ParseBody(req.Body, req.ContentType)
	if err != nil {
		return nil, 0, err
	}
	g, status, err := s.res.Put(ctx, req, group, body, resource.Extra{Insert: group.Accepted(body)})
	if err == nil && status == http.StatusCreated {
		s.log.Info("group created",
			slog.String("group", group.ID),
			slog.Int("members", len(body.Objects(vocab.Member))),
			slog.String("user", req.Tx.Actor.User),
		)
	}
	return g, status, err
}

// Patch applies a sandboxed update to a group's metadata and members
func (s *Service) Patch(ctx context.Context, req *resource.Request) (rdfio.Graph, error) {
	if err := req.RequireMedia(rdfio.MediaSPARQLUpdate); err != nil {
		return nil, err
	}
	group, err := Resource(req.Tx)
	if err != nil {
		return nil, err
	}
	policy := sandbox.MetadataPolicy(group.IRI, group.IRI, req.Tx.IRI.Prologue().Map())
	policy.AllowPredicates = append(policy.AllowPredicates, vocab.Member)
	return s.res.Patch(ctx, req.Tx, group, req.Body, policy, req.Pre, resource.Extra{})
}

// Get reads one group
func (s *Service) Get(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	group, err := Resource(req.Tx)
	if err != nil {
		return nil, "", err
	}
	return s.res.Get(ctx, req.Tx, group, req.Pre, resource.Extra{})
}

// Delete removes a group. Policies naming it stop matching anyone.
func (s *Service) Delete(ctx context.Context, req *resource.Request) error {
	group, err := Resource(req.Tx)
	if err != nil {
		return err
	}
	if err := s.res.Delete(ctx, req.Tx, group, req.Pre, resource.Extra{}); err != nil {
		return err
	}
	s.log.Info("group deleted", slog.String("group", group.ID), slog.String("user", req.Tx.Actor.User))
	return nil
}
