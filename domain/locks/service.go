package locks

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
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Kind describes locks. A lock pins one commit and owns a Model snapshot of it.
var Kind = resource.Kind{
	Name:   "Lock",
	Class:  vocab.ClassLock,
	Create: access.CreateLock,
	Read:   access.ReadLock,
	Update: access.UpdateLock,
	Delete: access.DeleteLock,
	System: []string{vocab.Commit, vocab.Snapshot},
	Accept: []string{vocab.Ref, vocab.Commit},
}

// Service handles business logic for locks
type Service struct {
	res     *resource.Service
	rebuild *history.Rebuilder
	log     *slog.Logger
}

// NewService creates a new locks service
func NewService(res *resource.Service, rebuild *history.Rebuilder, log *slog.Logger) *Service {
	return &Service{
		res:     res,
		rebuild: rebuild,
		log:     log.With(logger.Scope("locks.svc")),
	}
}

// Resource addresses the lock of the transaction's context.
func Resource(tx *txn.Txn, repo *history.Repo) (resource.Resource, error) {
	subj, err := tx.IRI.Get("morl")
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Resource{Kind: Kind, ID: tx.IRI.IDs().Lock, IRI: subj, Graph: repo.Metadata}, nil
}

func (s *Service) resolve(tx *txn.Txn) (*history.Repo, resource.Resource, error) {
	repo, err := history.NewRepo(tx.IRI)
	if err != nil {
		return nil, resource.Resource{}, err
	}
	lock, err := Resource(tx, repo)
	return repo, lock, err
}

// Put creates a lock at a ref or commit, or replaces its metadata when If-Match
// is sent. The lock's commit never changes.
func (s *Service) Put(ctx context.Context, req *resource.Request) (rdfio.Graph, int, error) {
	repo, lock, err := s.resolve(req.Tx)
	if err != nil {
		return nil, 0, err
	}
	body, err := lock.ParseBody(req.Body, req.ContentType)
	if err != nil {
		return nil, 0, err
	}
	if req.Pre.HasIfMatch() {
		return s.res.Put(ctx, req, lock, body, resource.Extra{Conditions: repos.Exists(req.Tx)})
	}

	src, err := history.SourceFrom(body.Objects(vocab.Ref), body.Objects(vocab.Commit))
	if err != nil {
		return nil, 0, err
	}
	commit, err := repo.Resolve(ctx, req.Tx, src)
	if err != nil {
		return nil, 0, err
	}
	start, err := s.rebuild.Start(ctx, req.Tx, repo, lock.IRI, commit, false)
	if err != nil {
		return nil, 0, err
	}

	g, err := s.res.Create(ctx, req.Tx, lock, body, req.Pre, resource.Extra{
		Conditions: conditions.All(repos.Exists(req.Tx), repo.SourceExists(src, commit)),
		Insert:     start.Insert,
	})
	if err != nil {
		if len(start.Graphs) > 0 {
			s.rebuild.Drop(ctx, req.Tx, start.Graphs...)
		}
		return nil, 0, err
	}
	s.log.Info("lock created",
		slog.String("lock", lock.IRI),
		slog.String("commit", commit),
		slog.String("user", req.Tx.Actor.User),
	)
	return g, http.StatusCreated, nil
}

// Get reads one lock
func (s *Service) Get(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	_, lock, err := s.resolve(req.Tx)
	if err != nil {
		return nil, "", err
	}
	return s.res.Get(ctx, req.Tx, lock, req.Pre, resource.Extra{Conditions: repos.Exists(req.Tx)})
}

// List reads every lock of a repository, interim locks included.
func (s *Service) List(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	repo, err := history.NewRepo(req.Tx.IRI)
	if err != nil {
		return nil, "", err
	}
	return s.res.List(ctx, req.Tx, Kind, repo.Metadata, access.ReadLock.Within(access.LevelRepo), nil, req.Pre,
		resource.Extra{Conditions: repos.Exists(req.Tx)})
}

// Delete removes a lock and drops its snapshot.
func (s *Service) Delete(ctx context.Context, req *resource.Request) error {
	repo, lock, err := s.resolve(req.Tx)
	if err != nil {
		return err
	}
	graphs, err := repo.Owned(ctx, req.Tx, lock.IRI)
	if err != nil {
		return err
	}
	del, where := repo.Release(lock.IRI)
	if err := s.res.Delete(ctx, req.Tx, lock, req.Pre, resource.Extra{
		Conditions: repos.Exists(req.Tx),
		Delete:     del,
		Where:      where,
	}); err != nil {
		return err
	}
	if len(graphs) > 0 {
		s.rebuild.Drop(ctx, req.Tx, graphs...)
	}
	s.log.Info("lock deleted",
		slog.String("lock", lock.IRI),
		slog.Int("graphs", len(graphs)),
		slog.String("user", req.Tx.Actor.User),
	)
	return nil
}
