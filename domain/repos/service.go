package repos

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/history"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/orgs"
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

// Kind describes repositories.
var Kind = resource.Kind{
	Name:   "Repo",
	Class:  vocab.ClassRepo,
	Create: access.CreateRepo,
	Read:   access.ReadRepo,
	Update: access.UpdateRepo,
	Delete: access.DeleteRepo,
	System: []string{vocab.Org},
}

// Condition keys.
const (
	KeyOrgExists  = "orgExists"
	KeyRepoExists = "repoExists"
)

// DefaultBranch is created with every repository.
const DefaultBranch = "master"

// Resource addresses the repository of the transaction's context.
func Resource(tx *txn.Txn) (resource.Resource, error) {
	subj, err := tx.IRI.Get("mor")
	if err != nil {
		return resource.Resource{}, err
	}
	graph, err := tx.IRI.Expand("m-graph", "Cluster")
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Resource{Kind: Kind, ID: tx.IRI.IDs().Repo, IRI: subj, Graph: graph}, nil
}

// OrgExists requires the org of the transaction's context.
func OrgExists(tx *txn.Txn) func(b *conditions.Builder) {
	return func(b *conditions.Builder) {
		org, err := orgs.Resource(tx)
		b.Check(err)
		if err != nil {
			return
		}
		b.Require(KeyOrgExists, func() *apperror.Error {
			return apperror.NewNotFound("Org", org.ID)
		}, org.TypePattern())
	}
}

// Exists requires the repository of the transaction's context.
func Exists(tx *txn.Txn) func(b *conditions.Builder) {
	return func(b *conditions.Builder) {
		repo, err := Resource(tx)
		b.Check(err)
		if err != nil {
			return
		}
		b.Require(KeyRepoExists, func() *apperror.Error {
			return apperror.NewNotFound("Repo", repo.ID)
		}, repo.TypePattern())
	}
}

// Service handles business logic for repositories
type Service struct {
	res *resource.Service
	log *slog.Logger
}

// NewService creates a new repository service
func NewService(res *resource.Service, log *slog.Logger) *Service {
	return &Service{
		res: res,
		log: log.With(logger.Scope("repos.svc")),
	}
}

// initialize returns the statements that set up a new repository's history:
// an empty root commit and the default branch with empty snapshots.
func initialize(tx *txn.Txn, h *history.Repo) ([]sparql.Pattern, error) {
	mu, err := tx.IRI.Term("mu", "")
	if err != nil {
		return nil, err
	}

	branch := sparql.IRI(h.Branch(DefaultBranch))
	root := history.Commit{
		ID:      tx.ID,
		Author:  mu,
		Message: "Initial commit",
		Data:    history.Data{Load: true},
	}
	meta := h.Patterns(root)
	meta = append(meta,
		sparql.T(branch, sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ClassBranch)),
		sparql.T(branch, sparql.IRI(vocab.ID), sparql.Lit(DefaultBranch)),
		sparql.T(branch, sparql.IRI(vocab.ETag), sparql.Lit(tx.ID)),
		sparql.T(branch, sparql.IRI(vocab.Commit), sparql.IRI(h.Commit(tx.ID))),
		sparql.T(branch, sparql.IRI(vocab.Snapshot), sparql.IRI(h.ModelNode(tx.ID))),
		sparql.T(branch, sparql.IRI(vocab.Snapshot), sparql.IRI(h.StagingNode(tx.ID))),
	)
	meta = append(meta, history.Snapshot(h.ModelNode(tx.ID), vocab.ClassModel, h.ModelGraph(tx.ID))...)
	meta = append(meta, history.Snapshot(h.StagingNode(tx.ID), vocab.ClassStaging, h.StagingGraph(tx.ID))...)
	return []sparql.Pattern{h.In(meta...)}, nil
}

// Put creates or replaces a repository. Creation also writes the repository's
// root commit and default branch.
func (s *Service) Put(ctx context.Context, req *resource.Request) (rdfio.Graph, int, error) {
	repo, err := Resource(req.Tx)
	if err != nil {
		return nil, 0, err
	}
	body, err := repo.ParseBody(req.Body, req.ContentType)
	if err != nil {
		return nil, 0, err
	}
	if req.Pre.HasIfMatch() {
		return s.res.Put(ctx, req, repo, body, resource.Extra{})
	}

	h, err := history.NewRepo(req.Tx.IRI)
	if err != nil {
		return nil, 0, err
	}
	mo, err := req.Tx.IRI.Get("mo")
	if err != nil {
		return nil, 0, err
	}
	insert, err := initialize(req.Tx, h)
	if err != nil {
		return nil, 0, err
	}
	insert = append(insert, repo.In(sparql.T(repo.Subject(), sparql.IRI(vocab.Org), sparql.IRI(mo))))

	g, status, err := s.res.Put(ctx, req, repo, body, resource.Extra{
		Conditions: OrgExists(req.Tx),
		Insert:     insert,
	})
	if err == nil && status == http.StatusCreated {
		s.log.Info("repository created",
			slog.String("org", req.Tx.IRI.IDs().Org),
			slog.String("repo", repo.ID),
			slog.String("user", req.Tx.Actor.User),
		)
	}
	return g, status, err
}

// Patch applies a sandboxed update to a repository's metadata
func (s *Service) Patch(ctx context.Context, req *resource.Request) (rdfio.Graph, error) {
	if err := req.RequireMedia(rdfio.MediaSPARQLUpdate); err != nil {
		return nil, err
	}
	repo, err := Resource(req.Tx)
	if err != nil {
		return nil, err
	}
	policy := sandbox.MetadataPolicy(repo.IRI, repo.IRI, req.Tx.IRI.Prologue().Map())
	return s.res.Patch(ctx, req.Tx, repo, req.Body, policy, req.Pre, resource.Extra{})
}

// Get reads one repository
func (s *Service) Get(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	repo, err := Resource(req.Tx)
	if err != nil {
		return nil, "", err
	}
	return s.res.Get(ctx, req.Tx, repo, req.Pre, resource.Extra{})
}

// List reads the repositories of an org
func (s *Service) List(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	graph, err := req.Tx.IRI.Expand("m-graph", "Cluster")
	if err != nil {
		return nil, "", err
	}
	mo, err := req.Tx.IRI.Get("mo")
	if err != nil {
		return nil, "", err
	}
	filter := []sparql.Pattern{sparql.T(sparql.Var("__mms_s"), sparql.IRI(vocab.Org), sparql.IRI(mo))}
	return s.res.List(ctx, req.Tx, Kind, graph, access.ReadRepo.Within(access.LevelOrg), filter, req.Pre,
		resource.Extra{Conditions: OrgExists(req.Tx)})
}
