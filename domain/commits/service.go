package commits

import (
	"context"
	"log/slog"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/history"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/repos"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Kind describes commits. Commits are written only by the history model and
// are read-only over HTTP.
var Kind = resource.Kind{
	Name:  "Commit",
	Class: vocab.ClassCommit,
	Read:  access.ReadCommit,
}

// Data node variables.
const (
	varDP = sparql.Var("__mms_dp")
	varDO = sparql.Var("__mms_do")
)

// Service handles business logic for commits
type Service struct {
	res *resource.Service
	log *slog.Logger
}

// NewService creates a new commits service
func NewService(res *resource.Service, log *slog.Logger) *Service {
	return &Service{res: res, log: log.With(logger.Scope("commits.svc"))}
}

// Resource addresses the commit of the transaction's context.
func Resource(tx *txn.Txn, repo *history.Repo) (resource.Resource, error) {
	subj, err := tx.IRI.Get("morc")
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Resource{Kind: Kind, ID: tx.IRI.IDs().Commit, IRI: subj, Graph: repo.Metadata}, nil
}

// Get reads a commit together with its data node.
func (s *Service) Get(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	repo, err := history.NewRepo(req.Tx.IRI)
	if err != nil {
		return nil, "", err
	}
	commit, err := Resource(req.Tx, repo)
	if err != nil {
		return nil, "", err
	}
	data := sparql.IRI(repo.CommitData(commit.ID))
	return s.res.Get(ctx, req.Tx, commit, req.Pre, resource.Extra{
		Conditions: repos.Exists(req.Tx),
		Result: txn.Result{
			Template: []sparql.Pattern{sparql.T(data, varDP, varDO)},
			Where:    []sparql.Pattern{sparql.Optional(repo.In(sparql.T(data, varDP, varDO)))},
		},
	})
}
