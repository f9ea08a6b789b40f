package resource

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/etag"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sandbox"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Extra carries what a specific resource adds to a generic operation.
type Extra struct {
	// Conditions run after the access check and the existence check.
	Conditions func(b *conditions.Builder)
	Delete     []sparql.Pattern
	Insert     []sparql.Pattern
	Where      []sparql.Pattern
	Result     txn.Result
}

func (x Extra) result(r Resource) txn.Result {
	tmpl, where := r.Representation()
	return txn.Result{
		Template: append(tmpl, x.Result.Template...),
		Where:    append(where, x.Result.Where...),
	}
}

func (x Extra) conditions(b *conditions.Builder) {
	if x.Conditions != nil {
		x.Conditions(b)
	}
}

// Service runs the generic operations inside a transaction.
type Service struct {
	log *slog.Logger
}

// NewService creates a resource service.
func NewService(log *slog.Logger) *Service {
	return &Service{log: log.With(logger.Scope("resource"))}
}

// Create declares a new resource. The resource must not exist.
func (s *Service) Create(ctx context.Context, tx *txn.Txn, r Resource, body *Body, pre etag.Preconditions, x Extra) (rdfio.Graph, error) {
	conds := conditions.New().
		Append(access.Require(tx.IRI, tx.Actor, r.Kind.Create)).
		Append(x.conditions).
		Append(pre.Conditions(r.ETagBinding())).
		Append(r.NotExists())

	insert := append(r.Declaration(tx.ID), rdfio.Patterns(body.User)...)
	return tx.Mutate(ctx, txn.Write{
		Conditions: conds,
		Insert:     append([]sparql.Pattern{r.In(insert...)}, x.Insert...),
		Where:      x.Where,
		Result:     x.result(r),
	})
}

// Put creates the resource, or replaces it when the request carries If-Match.
// It returns the response status.
func (s *Service) Put(ctx context.Context, req *Request, r Resource, body *Body, x Extra) (rdfio.Graph, int, error) {
	if req.Pre.HasIfMatch() {
		g, err := s.Replace(ctx, req.Tx, r, body, req.Pre, x)
		return g, http.StatusOK, err
	}
	g, err := s.Create(ctx, req.Tx, r, body, req.Pre, x)
	return g, http.StatusCreated, err
}

// Replace overwrites the user statements of an existing resource. System
// statements are kept.
func (s *Service) Replace(ctx context.Context, tx *txn.Txn, r Resource, body *Body, pre etag.Preconditions, x Extra) (rdfio.Graph, error) {
	conds := conditions.New().
		Append(access.Require(tx.IRI, tx.Actor, r.Kind.Update)).
		Append(r.Exists()).
		Append(x.conditions).
		Append(pre.Conditions(r.ETagBinding()))

	subj := r.Subject()
	del := r.In(
		sparql.T(subj, varP, varO),
		sparql.T(subj, sparql.IRI(vocab.ETag), etag.Var),
	)
	insert := append([]sparql.Pattern{sparql.T(subj, sparql.IRI(vocab.ETag), sparql.Lit(tx.ID))}, rdfio.Patterns(body.User)...)
	where := []sparql.Pattern{
		r.ETagBinding(),
		sparql.Optional(r.In(
			sparql.T(subj, varP, varO),
			sparql.Filter(sparql.NotIn(varP, r.Kind.kept()...)),
		)),
	}

	return tx.Mutate(ctx, txn.Write{
		Conditions: conds,
		Delete:     append([]sparql.Pattern{del}, x.Delete...),
		Insert:     append([]sparql.Pattern{r.In(insert...)}, x.Insert...),
		Where:      append(where, x.Where...),
		Result:     x.result(r),
	})
}

// Patch applies a sandboxed SPARQL update to the resource's statements.
func (s *Service) Patch(ctx context.Context, tx *txn.Txn, r Resource, update string, policy sandbox.Policy, pre etag.Preconditions, x Extra) (rdfio.Graph, error) {
	patch, err := sandbox.RewriteUpdate(update, policy)
	if err != nil {
		return nil, err
	}

	conds := conditions.New().
		Append(access.Require(tx.IRI, tx.Actor, r.Kind.Update)).
		Append(r.Exists()).
		Append(x.conditions).
		Append(pre.Conditions(r.ETagBinding())).
		Append(PatchWhere(r.GraphTerm(), patch))

	subj := r.Subject()
	return tx.Mutate(ctx, txn.Write{
		Conditions: conds,
		Delete: append([]sparql.Pattern{r.In(
			sparql.RawPattern(patch.Delete),
			sparql.T(subj, sparql.IRI(vocab.ETag), etag.Var),
		)}, x.Delete...),
		Insert: append([]sparql.Pattern{r.In(
			sparql.RawPattern(patch.Insert),
			sparql.T(subj, sparql.IRI(vocab.ETag), sparql.Lit(tx.ID)),
		)}, x.Insert...),
		Where:  append([]sparql.Pattern{r.ETagBinding()}, x.Where...),
		Result: x.result(r),
	})
}

// PatchWhere requires a patch's WHERE body to match inside graph. A patch
// without a WHERE body adds nothing.
func PatchWhere(graph sparql.Term, patch *sandbox.Patch) func(b *conditions.Builder) {
	return func(b *conditions.Builder) {
		if patch.Where == "" {
			return
		}
		b.Require(KeyPatch, func() *apperror.Error {
			return apperror.ErrConflict.WithMessage("The update's WHERE clause did not match the current state")
		}, sparql.Graph(graph, sparql.RawPattern(patch.Where)))
	}
}

// Get reads a resource and evaluates the conditional request headers against
// it. The returned tag is set even when the preconditions fail.
func (s *Service) Get(ctx context.Context, tx *txn.Txn, r Resource, pre etag.Preconditions, x Extra) (rdfio.Graph, string, error) {
	conds := conditions.New().
		Append(access.Require(tx.IRI, tx.Actor, r.Kind.Read)).
		Append(r.Exists()).
		Append(x.conditions)

	g, err := tx.Query(ctx, txn.Read{Conditions: conds, Result: x.result(r)})
	if err != nil {
		return nil, "", err
	}
	tag, _ := g.Object(r.IRI, vocab.ETag)
	return g, tag, pre.Check(true, tag)
}

// List reads every resource of kind in graph. filter narrows the members, e.g.
// to one repository. The tag is composed from every member's marker.
func (s *Service) List(ctx context.Context, tx *txn.Txn, kind Kind, graph string, perm access.Permission, filter []sparql.Pattern, pre etag.Preconditions, x Extra) (rdfio.Graph, string, error) {
	conds := conditions.New().
		Append(access.Require(tx.IRI, tx.Actor, perm)).
		Append(x.conditions)

	members := append([]sparql.Pattern{
		sparql.T(varS, sparql.IRI(vocab.RDFType), sparql.IRI(kind.Class)),
		sparql.T(varS, varP, varO),
	}, filter...)
	g, err := tx.Query(ctx, txn.Read{
		Conditions: conds,
		Result: txn.Result{
			Template: []sparql.Pattern{sparql.T(varS, varP, varO)},
			Where:    []sparql.Pattern{sparql.Graph(sparql.IRI(graph), members...)},
		},
	})
	if err != nil {
		return nil, "", err
	}
	tag := etag.Compose(g.Objects("", vocab.ETag))
	return g, tag, pre.Check(true, tag)
}

// Delete removes every statement about the resource from its graph.
func (s *Service) Delete(ctx context.Context, tx *txn.Txn, r Resource, pre etag.Preconditions, x Extra) error {
	conds := conditions.New().
		Append(access.Require(tx.IRI, tx.Actor, r.Kind.Delete)).
		Append(r.Exists()).
		Append(x.conditions).
		Append(pre.Conditions(r.ETagBinding()))

	all := r.In(sparql.T(r.Subject(), varP, varO))
	_, err := tx.Mutate(ctx, txn.Write{
		Conditions: conds,
		Delete:     append([]sparql.Pattern{all}, x.Delete...),
		Where:      append([]sparql.Pattern{all}, x.Where...),
	})
	return err
}
