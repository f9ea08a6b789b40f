package branches

import (
	"context"
	"log/slog"

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
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Staging graph statement variables.
const (
	varS = sparql.Var("__mms_ms")
	varP = sparql.Var("__mms_mp")
	varO = sparql.Var("__mms_mo")
)

func (s *Service) modelConditions(tx *txn.Txn, branch resource.Resource, perm access.Permission) *conditions.Group {
	return conditions.New().
		Append(access.Require(tx.IRI, tx.Actor, perm)).
		Append(repos.Exists(tx)).
		Append(branch.Exists())
}

// commit advances branch to a new commit carrying data. del, ins and where are
// the changes to the staging graph; then follows the guarded write in the same
// request.
func (s *Service) commit(ctx context.Context, req *resource.Request, repo *history.Repo, branch resource.Resource, conds *conditions.Group, data history.Data, del, ins, where []sparql.Pattern, then ...sparql.Operation) (rdfio.Graph, error) {
	mu, err := req.Tx.IRI.Term("mu", "")
	if err != nil {
		return nil, err
	}
	c := history.Commit{ID: req.Tx.ID, Author: mu, Data: data}
	advDel, advIns, advWhere := repo.Advance(branch.IRI, c, req.Tx.ID)

	tmpl, rep := branch.Representation()
	g, err := req.Tx.Mutate(ctx, txn.Write{
		Conditions: conds.Append(req.Pre.Conditions(branch.ETagBinding())),
		Delete:     append(del, advDel...),
		Insert:     append(ins, advIns...),
		Where:      append(append([]sparql.Pattern{repo.StagingBinding(branch.IRI)}, advWhere...), where...),
		Result:     txn.Result{Template: tmpl, Where: rep},
		Then:       then,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("branch advanced",
		slog.String("branch", branch.IRI),
		slog.String("commit", repo.Commit(req.Tx.ID)),
		slog.Bool("load", data.Load),
	)
	return g, nil
}

// Update applies a sandboxed SPARQL update to the branch's model as a new
// patch commit.
func (s *Service) Update(ctx context.Context, req *resource.Request) (rdfio.Graph, error) {
	if err := req.RequireMedia(rdfio.MediaSPARQLUpdate); err != nil {
		return nil, err
	}
	repo, branch, err := s.resolve(req.Tx)
	if err != nil {
		return nil, err
	}
	patch, err := sandbox.RewriteUpdate(req.Body, sandbox.Policy{
		Base:     branch.IRI,
		Prefixes: req.Tx.IRI.Prologue().Map(),
	})
	if err != nil {
		return nil, err
	}

	staging := history.StagingVar
	conds := s.modelConditions(req.Tx, branch, access.UpdateBranch)
	var del, ins, where []sparql.Pattern
	if patch.Delete != "" {
		del = append(del, sparql.Graph(staging, sparql.RawPattern(patch.Delete)))
	}
	if patch.Insert != "" {
		ins = append(ins, sparql.Graph(staging, sparql.RawPattern(patch.Insert)))
	}
	if patch.Where != "" {
		where = append(where, sparql.Graph(staging, sparql.RawPattern(patch.Where)))
		conds = conds.Append(func(b *conditions.Builder) {
			b.Require(resource.KeyPatch, func() *apperror.Error {
				return apperror.ErrConflict.WithMessage("The update's WHERE clause did not match the current state")
			}, repo.StagingBinding(branch.IRI), sparql.Graph(staging, sparql.RawPattern(patch.Where)))
		})
	}

	data := history.Data{Delete: patch.Delete, Insert: patch.Insert, Where: patch.Where}
	return s.commit(ctx, req, repo, branch, conds, data, del, ins, where)
}

// Load replaces the branch's model with an RDF document as a new load commit.
func (s *Service) Load(ctx context.Context, req *resource.Request) (rdfio.Graph, error) {
	repo, branch, err := s.resolve(req.Tx)
	if err != nil {
		return nil, err
	}
	doc, err := rdfio.DecodeString(req.Body, req.ContentType, branch.IRI)
	if err != nil {
		return nil, err
	}
	body, err := rdfio.NTriples(doc)
	if err != nil {
		return nil, apperror.NewInternal("failed to serialize model", err)
	}

	then, err := s.replace(req.Tx, repo, branch, body)
	if err != nil {
		return nil, err
	}
	conds := s.modelConditions(req.Tx, branch, access.UpdateBranch)
	return s.commit(ctx, req, repo, branch, conds,
		history.Data{Load: true, Body: body}, nil, nil, nil, then...)
}

// replace clears the branch's staging graph and inserts body once the load
// commit is recorded. The insert matches a single solution, so blank nodes in
// body are minted once, as when the load is replayed with INSERT DATA.
func (s *Service) replace(tx *txn.Txn, repo *history.Repo, branch resource.Resource, body string) ([]sparql.Operation, error) {
	recorded, err := tx.Recorded()
	if err != nil {
		return nil, err
	}
	staging := history.StagingVar
	bind := repo.StagingBinding(branch.IRI)
	existing := sparql.Graph(staging, sparql.T(varS, varP, varO))

	ops := []sparql.Operation{sparql.Modify{
		Delete: []sparql.Pattern{existing},
		Where:  []sparql.Pattern{recorded, bind, existing},
	}}
	if body != "" {
		ops = append(ops, sparql.Modify{
			Insert: []sparql.Pattern{sparql.Graph(staging, sparql.RawPattern(body))},
			Where:  []sparql.Pattern{recorded, bind},
		})
	}
	return ops, nil
}

// Graph reads the branch's model. The tag is the id of the commit the model
// represents.
func (s *Service) Graph(ctx context.Context, req *resource.Request) (rdfio.Graph, string, error) {
	repo, branch, err := s.resolve(req.Tx)
	if err != nil {
		return nil, "", err
	}
	g, err := req.Tx.Query(ctx, txn.Read{
		Conditions: s.modelConditions(req.Tx, branch, access.ReadBranch),
		Result:     repo.GraphResult(branch.IRI, vocab.ClassStaging),
	})
	if err != nil {
		return nil, "", err
	}
	model, tag := repo.SplitGraph(g, branch.IRI)
	return model, tag, req.Pre.Check(true, tag)
}

// Query runs a sandboxed query with the branch's model as the default graph.
func (s *Service) Query(ctx context.Context, req *resource.Request, accept string) (*store.Response, error) {
	if err := req.RequireMedia(rdfio.MediaSPARQLQuery); err != nil {
		return nil, err
	}
	repo, branch, err := s.resolve(req.Tx)
	if err != nil {
		return nil, err
	}
	q, err := sandbox.RewriteQuery(req.Body, sandbox.Policy{
		Base:     branch.IRI,
		Prefixes: req.Tx.IRI.Prologue().Map(),
	})
	if err != nil {
		return nil, err
	}

	g, err := req.Tx.Query(ctx, txn.Read{
		Conditions: s.modelConditions(req.Tx, branch, access.ReadBranch),
		Result:     repo.LocateResult(branch.IRI, vocab.ClassStaging),
	})
	if err != nil {
		return nil, err
	}
	graph := history.Located(g, branch.IRI)
	if graph == "" {
		return nil, apperror.NewInternal("branch has no staging snapshot", nil).
			WithDetails(map[string]any{"branch": branch.IRI})
	}
	return req.Tx.Forward(ctx, q.Text, rdfio.NegotiateResults(q.Form, accept), store.WithDefaultGraph(graph))
}
