package locks

import (
	"context"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/history"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/repos"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/store"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sandbox"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

func readConditions(tx *txn.Txn, lock resource.Resource) *conditions.Group {
	return conditions.New().
		Append(access.Require(tx.IRI, tx.Actor, access.ReadLock)).
		Append(repos.Exists(tx)).
		Append(lock.Exists())
}

// Graph reads the model pinned by the lock. The tag is the id of its commit.
func (s *Service) Graph(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	repo, lock, err := s.resolve(req.Tx)
	if err != nil {
		return nil, "", err
	}
	g, err := req.Tx.Query(ctx, txn.Read{
		Conditions: readConditions(req.Tx, lock),
		Result:     repo.GraphResult(lock.IRI, vocab.ClassModel),
	})
	if err != nil {
		return nil, "", err
	}
	model, tag := repo.SplitGraph(g, lock.IRI)
	return model, tag, req.Pre.Check(true, tag)
}

// Query runs a sandboxed query with the lock's model as the default graph.
func (s *Service) Query(ctx context.Context, req *resource.Request, accept string) (*store.Response, error) {
	if err := req.RequireMedia(rdfio.MediaSPARQLQuery); err != nil {
		return nil, err
	}
	repo, lock, err := s.resolve(req.Tx)
	if err != nil {
		return nil, err
	}
	q, err := sandbox.RewriteQuery(req.Body, sandbox.Policy{
		Base:     lock.IRI,
		Prefixes: req.Tx.IRI.Prologue().Map(),
	})
	if err != nil {
		return nil, err
	}

	g, err := req.Tx.Query(ctx, txn.Read{
		Conditions: readConditions(req.Tx, lock),
		Result:     repo.LocateResult(lock.IRI, vocab.ClassModel),
	})
	if err != nil {
		return nil, err
	}
	graph := history.Located(g, lock.IRI)
	if graph == "" {
		return nil, apperror.NewInternal("lock has no model snapshot", nil).
			WithDetails(map[string]any{"lock": lock.IRI})
	}
	return req.Tx.Forward(ctx, q.Text, rdfio.NegotiateResults(q.Form, accept), store.WithDefaultGraph(graph))
}
