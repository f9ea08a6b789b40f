package branches

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/history"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/repos"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sandbox"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Kind describes branches. The commit and snapshots of a branch are managed by
// the gateway; a create request names where the branch starts with mms:ref or
// mms:commit.
var Kind = resource.Kind{
	Name:   "Branch",
	Class:  vocab.ClassBranch,
	Create: access.CreateBranch,
	Read:   access.ReadBranch,
	Update: access.UpdateBranch,
	Delete: access.DeleteBranch,
	System: []string{vocab.Commit, vocab.Snapshot},
	Accept: []string{vocab.Ref, vocab.Commit},
}

// Service handles business logic for branches
type Service struct {
	res     *resource.Service
	rebuild *history.Rebuilder
	log     *slog.Logger
}

// NewService creates a new branches service
func NewService(res *resource.Service, rebuild *history.Rebuilder, log *slog.Logger) *Service {
	return &Service{
		res:     res,
		rebuild: rebuild,
		log:     log.With(logger.Scope("branches.svc")),
	}
}

// Resource addresses the branch of the transaction's context.
func Resource(tx *txn.Txn, repo *history.Repo) (resource.Resource, error) {
	subj, err := tx.IRI.Get("morb")
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Resource{Kind: Kind, ID: tx.IRI.IDs().Branch, IRI: subj, Graph: repo.Metadata}, nil
}

func (s *Service) resolve(tx *txn.Txn) (*history.Repo, resource.Resource, error) {
	repo, err := history.NewRepo(tx.IRI)
	if err != nil {
		return nil, resource.Resource{}, err
	}
	branch, err := Resource(tx, repo)
	return repo, branch, err
}

// Put creates a branch at a ref or commit, or replaces a branch's metadata when
// If-Match is sent.
func (s *Service) Put(ctx context.Context, req *resource.Request) (rdfio.Graph, int, error) {
	repo, branch, err := s.resolve(req.Tx)
	if err != nil {
		return nil, 0, err
	}
	body, err := branch.ParseBody(req.Body, req.ContentType)
	if err != nil {
		return nil, 0, err
	}
	if req.Pre.HasIfMatch() {
		return s.res.Put(ctx, req, branch, body, resource.Extra{Conditions: repos.Exists(req.Tx)})
	}

	src, err := history.SourceFrom(body.Objects(vocab.Ref), body.Objects(vocab.Commit))
	if err != nil {
		return nil, 0, err
	}
	commit, err := repo.Resolve(ctx, req.Tx, src)
	if err != nil {
		return nil, 0, err
	}
	start, err := s.rebuild.Start(ctx, req.Tx, repo, branch.IRI, commit, true)
	if err != nil {
		return nil, 0, err
	}

	g, err := s.res.Create(ctx, req.Tx, branch, body, req.Pre, resource.Extra{
		Conditions: conditions.All(repos.Exists(req.Tx), repo.SourceExists(src, commit)),
		Insert:     start.Insert,
	})
	if err != nil {
		if len(start.Graphs) > 0 {
			s.rebuild.Drop(ctx, req.Tx, start.Graphs...)
		}
		return nil, 0, err
	}
	s.log.Info("branch created",
		slog.String("branch", branch.IRI),
		slog.String("commit", commit),
		slog.String("user", req.Tx.Actor.User),
	)
	return g, http.StatusCreated, nil
}

// Patch applies a sandboxed update to a branch's metadata
func (s *Service) Patch(ctx context.Context, req *resource.Request) (rdfio.Graph, error) {
	if err := req.RequireMedia(rdfio.MediaSPARQLUpdate); err != nil {
		return nil, err
	}
	_, branch, err := s.resolve(req.Tx)
	if err != nil {
		return nil, err
	}
	policy := sandbox.MetadataPolicy(branch.IRI, branch.IRI, req.Tx.IRI.Prologue().Map())
	return s.res.Patch(ctx, req.Tx, branch, req.Body, policy, req.Pre, resource.Extra{Conditions: repos.Exists(req.Tx)})
}

// Get reads one branch
func (s *Service) Get(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	_, branch, err := s.resolve(req.Tx)
	if err != nil {
		return nil, "", err
	}
	return s.res.Get(ctx, req.Tx, branch, req.Pre, resource.Extra{Conditions: repos.Exists(req.Tx)})
}

// List reads every branch of a repository
func (s *Service) List(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	repo, err := history.NewRepo(req.Tx.IRI)
	if err != nil {
		return nil, "", err
	}
	return s.res.List(ctx, req.Tx, Kind, repo.Metadata, access.ReadBranch.Within(access.LevelRepo), nil, req.Pre,
		resource.Extra{Conditions: repos.Exists(req.Tx)})
}
