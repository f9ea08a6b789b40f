package diffs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/history"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/repos"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/etag"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Condition keys.
const (
	KeySrcRef = "srcRefExists"
	KeyDstRef = "dstRefExists"
)

// Diff sides.
const (
	SideInsert = "Insert"
	SideDelete = "Delete"
)

// Reserved variables.
const (
	varSrcCommit = sparql.Var("__mms_srcCommit")
	varDstCommit = sparql.Var("__mms_dstCommit")
	varSrcGraph  = sparql.Var("__mms_srcGraph")
	varDstGraph  = sparql.Var("__mms_dstGraph")
	varGraph     = sparql.Var("__mms_diffGraph")
	varS         = sparql.Var("__mms_ds")
	varP         = sparql.Var("__mms_dp")
	varO         = sparql.Var("__mms_do")
)

// Kind describes diffs. The refs compared are given once at creation; the
// commits they pointed at and the result graphs are recorded by the gateway.
var Kind = resource.Kind{
	Name:   "Diff",
	Class:  vocab.ClassDiff,
	Create: access.CreateDiff,
	Read:   access.ReadDiff,
	Update: access.UpdateDiff,
	Delete: access.DeleteDiff,
	System: []string{vocab.SrcRef, vocab.DstRef, vocab.SrcCommit, vocab.DstCommit, vocab.InsertGraph, vocab.DeleteGraph},
	Accept: []string{vocab.SrcRef, vocab.DstRef},
}

// Service handles business logic for diffs
type Service struct {
	res     *resource.Service
	rebuild *history.Rebuilder
	log     *slog.Logger
}

// NewService creates a new diffs service
func NewService(res *resource.Service, rebuild *history.Rebuilder, log *slog.Logger) *Service {
	return &Service{
		res:     res,
		rebuild: rebuild,
		log:     log.With(logger.Scope("diffs.svc")),
	}
}

// Resource addresses the diff of the transaction's context.
func Resource(tx *txn.Txn, repo *history.Repo) (resource.Resource, error) {
	subj, err := tx.IRI.Get("mord")
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Resource{Kind: Kind, ID: tx.IRI.IDs().Diff, IRI: subj, Graph: repo.Metadata}, nil
}

func (s *Service) resolve(tx *txn.Txn) (*history.Repo, resource.Resource, error) {
	repo, err := history.NewRepo(tx.IRI)
	if err != nil {
		return nil, resource.Resource{}, err
	}
	diff, err := Resource(tx, repo)
	return repo, diff, err
}

func refExists(repo *history.Repo, key, ref string, commit sparql.Var) func(b *conditions.Builder) {
	return func(b *conditions.Builder) {
		b.Require(key, func() *apperror.Error {
			return apperror.ErrNotFound.WithMessagef("Ref <%s> not found", ref)
		}, repo.In(sparql.T(sparql.IRI(ref), sparql.IRI(vocab.Commit), commit)))
	}
}

// Put records a diff between two refs and computes its insert and delete
// graphs. With If-Match it replaces the diff's metadata instead.
func (s *Service) Put(ctx context.Context, req *resource.Request) (rdfio.Graph, int, error) {
	repo, diff, err := s.resolve(req.Tx)
	if err != nil {
		return nil, 0, err
	}
	body, err := diff.ParseBody(req.Body, req.ContentType)
	if err != nil {
		return nil, 0, err
	}
	if req.Pre.HasIfMatch() {
		return s.res.Put(ctx, req, diff, body, resource.Extra{Conditions: repos.Exists(req.Tx)})
	}

	src, dst := body.Objects(vocab.SrcRef), body.Objects(vocab.DstRef)
	if len(src) != 1 || len(dst) != 1 {
		return nil, 0, apperror.NewBadRequest("Exactly one mms:srcRef and one mms:dstRef are required")
	}
	ins, del := repo.DiffGraph(diff.ID, SideInsert), repo.DiffGraph(diff.ID, SideDelete)
	subj := diff.Subject()

	g, err := s.res.Create(ctx, req.Tx, diff, body, req.Pre, resource.Extra{
		Conditions: conditions.All(
			repos.Exists(req.Tx),
			refExists(repo, KeySrcRef, src[0], varSrcCommit),
			refExists(repo, KeyDstRef, dst[0], varDstCommit),
		),
		Insert: append(diff.Accepted(body), diff.In(
			sparql.T(subj, sparql.IRI(vocab.SrcCommit), varSrcCommit),
			sparql.T(subj, sparql.IRI(vocab.DstCommit), varDstCommit),
			sparql.T(subj, sparql.IRI(vocab.InsertGraph), sparql.IRI(ins)),
			sparql.T(subj, sparql.IRI(vocab.DeleteGraph), sparql.IRI(del)),
		)),
	})
	if err != nil {
		return nil, 0, err
	}

	if err := req.Tx.Update(ctx, compute(repo, src[0], dst[0], ins, del)...); err != nil {
		s.log.Error("failed to compute diff graphs",
			slog.String("diff", diff.IRI),
			logger.Error(err),
		)
		return nil, 0, err
	}
	s.log.Info("diff created",
		slog.String("diff", diff.IRI),
		slog.String("src", src[0]),
		slog.String("dst", dst[0]),
	)
	return g, http.StatusCreated, nil
}

// compute fills ins with the triples of dst missing from src, and del with the
// triples of src missing from dst.
func compute(repo *history.Repo, src, dst, ins, del string) []sparql.Operation {
	side := func(from, to sparql.Var, into string) sparql.Operation {
		t := sparql.T(varS, varP, varO)
		return sparql.Modify{
			Insert: []sparql.Pattern{sparql.Graph(sparql.IRI(into), t)},
			Where: []sparql.Pattern{
				repo.RefGraph(sparql.IRI(src), varSrcGraph),
				repo.RefGraph(sparql.IRI(dst), varDstGraph),
				sparql.Graph(from, t),
				sparql.Filter(sparql.NotExists(sparql.Graph(to, t))),
			},
		}
	}
	return []sparql.Operation{
		sparql.Drop{Graph: sparql.IRI(ins), Silent: true},
		sparql.Drop{Graph: sparql.IRI(del), Silent: true},
		side(varDstGraph, varSrcGraph, ins),
		side(varSrcGraph, varDstGraph, del),
	}
}

// Get reads one diff's metadata
func (s *Service) Get(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	_, diff, err := s.resolve(req.Tx)
	if err != nil {
		return nil, "", err
	}
	return s.res.Get(ctx, req.Tx, diff, req.Pre, resource.Extra{Conditions: repos.Exists(req.Tx)})
}

// List reads every diff of a repository
func (s *Service) List(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	repo, err := history.NewRepo(req.Tx.IRI)
	if err != nil {
		return nil, "", err
	}
	return s.res.List(ctx, req.Tx, Kind, repo.Metadata, access.ReadDiff.Within(access.LevelRepo), nil, req.Pre,
		resource.Extra{Conditions: repos.Exists(req.Tx)})
}

// Graph reads one side of a diff. The tag is the diff's.
func (s *Service) Graph(ctx context.Context, req *resource.Request, side string) (rdfio.Graph, string, error) {
	pred := vocab.InsertGraph
	switch side {
	case "", "insert":
	case "delete":
		pred = vocab.DeleteGraph
	default:
		return nil, "", apperror.NewBadRequest("side must be insert or delete")
	}
	repo, diff, err := s.resolve(req.Tx)
	if err != nil {
		return nil, "", err
	}

	subj := diff.Subject()
	tagT := sparql.T(subj, sparql.IRI(vocab.ETag), etag.Var)
	g, err := req.Tx.Query(ctx, txn.Read{
		Conditions: conditions.New().
			Append(access.Require(req.Tx.IRI, req.Tx.Actor, access.ReadDiff)).
			Append(repos.Exists(req.Tx)).
			Append(diff.Exists()),
		Result: txn.Result{
			Template: []sparql.Pattern{sparql.T(varS, varP, varO), tagT},
			Where: []sparql.Pattern{
				repo.In(tagT, sparql.T(subj, sparql.IRI(pred), varGraph)),
				sparql.Optional(sparql.Graph(varGraph, sparql.T(varS, varP, varO))),
			},
		},
	})
	if err != nil {
		return nil, "", err
	}
	tag, _ := g.Object(diff.IRI, vocab.ETag)
	return g.Remove(diff.IRI, vocab.ETag), tag, req.Pre.Check(true, tag)
}

// Delete removes a diff and drops its graphs.
func (s *Service) Delete(ctx context.Context, req *resource.Request) error {
	repo, diff, err := s.resolve(req.Tx)
	if err != nil {
		return err
	}
	if err := s.res.Delete(ctx, req.Tx, diff, req.Pre, resource.Extra{Conditions: repos.Exists(req.Tx)}); err != nil {
		return err
	}
	s.rebuild.Drop(ctx, req.Tx, repo.DiffGraph(diff.ID, SideInsert), repo.DiffGraph(diff.ID, SideDelete))
	s.log.Info("diff deleted", slog.String("diff", diff.IRI), slog.String("user", req.Tx.Actor.User))
	return nil
}
