package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Kind describes users. A user must be declared before any policy naming it
// can match.
var Kind = resource.Kind{
	Name:   "User",
	Class:  vocab.ClassUser,
	Create: access.CreateUser,
	Read:   access.ReadUser,
	Update: access.UpdateUser,
	Delete: access.DeleteUser,
}

// Service handles business logic for users
type Service struct {
	res *resource.Service
	log *slog.Logger
}

// NewService creates a new users service
func NewService(res *resource.Service, log *slog.Logger) *Service {
	return &Service{
		res: res,
		log: log.With(logger.Scope("users.svc")),
	}
}

// Resource addresses user id. The "mu" prefix always names the requester, so
// the target is expanded from the user namespace.
func Resource(tx *txn.Txn, id string) (resource.Resource, error) {
	if err := iri.ValidateID("user", id); err != nil {
		return resource.Resource{}, err
	}
	subj, err := tx.IRI.Expand("m-user", id)
	if err != nil {
		return resource.Resource{}, err
	}
	graph, err := agents(tx)
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Resource{Kind: Kind, ID: id, IRI: subj, Graph: graph}, nil
}

func agents(tx *txn.Txn) (string, error) {
	return tx.IRI.Expand("m-graph", "AccessControl.Agents")
}

// Put declares a user or, with If-Match, replaces its metadata
func (s *Service) Put(ctx context.Context, req *resource.Request, id string) (rdfio.Graph, int, error) {
	user, err := Resource(req.Tx, id)
	if err != nil {
		return nil, 0, err
	}
	body, err := user.ParseBody(req.Body, req.ContentType)
	if err != nil {
		return nil, 0, err
	}
	g, status, err := s.res.Put(ctx, req, user, body, resource.Extra{})
	if err == nil && status == http.StatusCreated {
		s.log.Info("user created", slog.String("target", id), slog.String("user", req.Tx.Actor.User))
	}
	return g, status, err
}

// Get reads one user
func (s *Service) Get(ctx context.Context, req *resource.Request, id string) (rdfio.Graph, string, error) {
	user, err := Resource(req.Tx, id)
	if err != nil {
		return nil, "", err
	}
	return s.res.Get(ctx, req.Tx, user, req.Pre, resource.Extra{})
}

// List reads every declared user
func (s *Service) List(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	graph, err := agents(req.Tx)
	if err != nil {
		return nil, "", err
	}
	return s.res.List(ctx, req.Tx, Kind, graph, access.ReadUser, nil, req.Pre, resource.Extra{})
}
