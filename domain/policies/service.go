package policies

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Kind describes policies. A policy grants one or more roles to one subject
// within one scope.
var Kind = resource.Kind{
	Name:   "Policy",
	Class:  vocab.ClassPolicy,
	Create: access.CreatePolicy,
	Read:   access.ReadPolicy,
	Update: access.UpdatePolicy,
	Delete: access.DeletePolicy,
	Accept: []string{vocab.Subject, vocab.Scope, vocab.Role},
}

// Service handles business logic for policies
type Service struct {
	res *resource.Service
	log *slog.Logger
}

// NewService creates a new policies service
func NewService(res *resource.Service, log *slog.Logger) *Service {
	return &Service{res: res, log: log.With(logger.Scope("policies.svc"))}
}

// Resource addresses the policy of the transaction's context.
func Resource(tx *txn.Txn) (resource.Resource, error) {
	subj, err := tx.IRI.Get("mp")
	if err != nil {
		return resource.Resource{}, err
	}
	graph, err := tx.IRI.Expand("m-graph", "AccessControl.Policies")
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Resource{Kind: Kind, ID: tx.IRI.IDs().Policy, IRI: subj, Graph: graph}, nil
}

// Validate checks that body names exactly one subject, exactly one scope and at
// least one role.
func Validate(body *resource.Body) error {
	var problems []string
	if n := len(body.Objects(vocab.Subject)); n != 1 {
		problems = append(problems, "exactly one mms:subject")
	}
	if n := len(body.Objects(vocab.Scope)); n != 1 {
		problems = append(problems, "exactly one mms:scope")
	}
	if len(body.Objects(vocab.Role)) == 0 {
		problems = append(problems, "at least one mms:role")
	}
	if len(problems) > 0 {
		return apperror.NewBadRequest("A policy requires " + strings.Join(problems, " and "))
	}
	return nil
}

// Put creates a policy or, with If-Match, replaces it.
func (s *Service) Put(ctx context.Context, req *resource.Request) (rdfio.Graph, int, error) {
	policy, err := Resource(req.Tx)
	if err != nil {
		return nil, 0, err
	}
	body, err := policy.ParseBody(req.Body, req.ContentType)
	if err != nil {
		return nil, 0, err
	}
	if err := Validate(body); err != nil {
		return nil, 0, err
	}
	g, status, err := s.res.Put(ctx, req, policy, body, resource.Extra{Insert: policy.Accepted(body)})
	if err != nil {
		return nil, 0, err
	}
	s.log.Info("policy written",
		slog.String("policy", policy.ID),
		slog.String("subject", body.Objects(vocab.Subject)[0]),
		slog.String("scope", body.Objects(vocab.Scope)[0]),
		slog.Any("roles", body.Objects(vocab.Role)),
	)
	return g, status, nil
}

// Get reads one policy
func (s *Service) Get(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	policy, err := Resource(req.Tx)
	if err != nil {
		return nil, "", err
	}
	return s.res.Get(ctx, req.Tx, policy, req.Pre, resource.Extra{})
}

// Delete removes a policy
func (s *Service) Delete(ctx context.Context, req *resource.Request) error {
	policy, err := Resource(req.Tx)
	if err != nil {
		return err
	}
	return s.res.Delete(ctx, req.Tx, policy, req.Pre, resource.Extra{})
}
