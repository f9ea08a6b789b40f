// Package txn runs the execute-then-probe protocol.
//
// A write is a single SPARQL UPDATE whose WHERE clause carries every REQUIRE
// condition, so authorization, existence and preconditions are evaluated by the
// store atomically with the mutation. The same UPDATE records a transaction node
// in a scratch graph; a CONSTRUCT probe afterwards tells success (the node is
// there) from failure (it is not, and the inspect branches name the first
// unmet condition).
package txn

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/store"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/tracing"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

var Module = fx.Module("txn",
	fx.Provide(NewManager),
)

// Reserved variables bound by every guarded write.
const (
	NowVar = sparql.Var("__mms_now")

	txnPredVar = sparql.Var("__mms_txnP")
	txnObjVar  = sparql.Var("__mms_txnO")
)

// okMarker is bound to the inspect variable by a read whose REQUIRE conditions
// all matched.
const okMarker = "__mms_ok"

// Meta describes the inbound request a transaction belongs to.
type Meta struct {
	Path        string
	Method      string
	Body        string
	ContentType string
}

// Manager starts transactions against the store.
type Manager struct {
	store store.Executor
	root  string
	svcID string
	log   *slog.Logger
}

// NewManager creates a transaction manager.
func NewManager(st store.Executor, cfg *config.Config, log *slog.Logger) *Manager {
	return &Manager{
		store: st,
		root:  cfg.RootContext,
		svcID: cfg.ServiceID,
		log:   log.With(logger.Scope("txn")),
	}
}

// Store returns the executor transactions run against.
func (m *Manager) Store() store.Executor { return m.store }

// Begin starts a transaction with a fresh identifier. ids are the identifiers
// supplied by the request; the transaction id is added to them.
func (m *Manager) Begin(ids iri.IDs, actor access.Actor, meta Meta) *Txn {
	id := uuid.NewString()
	ids.Transaction = id
	ids.User = actor.User
	return &Txn{
		ID:      id,
		IRI:     iri.New(m.root, ids),
		Actor:   actor,
		meta:    meta,
		m:       m,
		started: time.Now(),
	}
}

// Txn is the state of a single request. It is not safe for concurrent use.
type Txn struct {
	ID    string
	IRI   *iri.Context
	Actor access.Actor

	meta    Meta
	m       *Manager
	started time.Time
	written bool
}

// Result is the representation returned by a successful write or read:
// Template is constructed from the solutions of Where.
type Result struct {
	Template []sparql.Pattern
	Where    []sparql.Pattern
}

// Write is a guarded mutation. Delete and Insert are quad templates; Where
// holds patterns evaluated after the REQUIRE conditions.
type Write struct {
	Conditions *conditions.Group
	Delete     []sparql.Pattern
	Insert     []sparql.Pattern
	Where      []sparql.Pattern
	Result     Result
	// Then runs in the same request after the guarded operation. Each
	// operation must match Recorded so it applies only once the write has.
	Then []sparql.Operation
}

// Read is a guarded lookup.
type Read struct {
	Conditions *conditions.Group
	Result     Result
}

// With narrows the transaction's IRI context to additional identifiers.
func (t *Txn) With(ids iri.IDs) {
	t.IRI = t.IRI.With(ids)
}

// Text renders operations with the transaction's prologue.
func (t *Txn) Text(ops ...sparql.Operation) string {
	return sparql.Text(t.IRI.Prologue(), ops...)
}

// Update runs an unguarded update in the transaction's prefix scope. It is
// used for graph maintenance that precedes a guarded write.
func (t *Txn) Update(ctx context.Context, ops ...sparql.Operation) error {
	return t.m.store.Update(ctx, t.Text(ops...))
}

// Select runs an unguarded SELECT in the transaction's prefix scope.
func (t *Txn) Select(ctx context.Context, q sparql.Select) (*store.Results, error) {
	return t.m.store.Select(ctx, t.Text(q))
}

// Construct runs an unguarded CONSTRUCT in the transaction's prefix scope.
func (t *Txn) Construct(ctx context.Context, q sparql.Construct) (rdfio.Graph, error) {
	return t.m.store.Construct(ctx, t.Text(q))
}

// Forward runs a sandboxed query and returns the store's response unchanged.
func (t *Txn) Forward(ctx context.Context, query, accept string, opts ...store.Option) (*store.Response, error) {
	return t.m.store.Forward(ctx, query, accept, opts...)
}

// Recorded matches the transaction node that a successful Mutate leaves in the
// transaction graph.
func (t *Txn) Recorded() (sparql.Pattern, error) {
	terms := t.IRI.Terms()
	p := sparql.Graph(terms.P("mt-graph"),
		sparql.T(terms.P("mt"), sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ClassTransaction)))
	return p, terms.Err()
}

func (t *Txn) record() ([]sparql.Pattern, error) {
	terms := t.IRI.Terms()
	mt := terms.P("mt")
	triples := []sparql.Pattern{
		sparql.T(mt, sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ClassTransaction)),
		sparql.T(mt, sparql.IRI(vocab.Created), NowVar),
		sparql.T(mt, sparql.IRI(vocab.ServiceID), sparql.Lit(t.m.svcID)),
		sparql.T(mt, sparql.IRI(vocab.RequestPath), sparql.Lit(t.meta.Path)),
		sparql.T(mt, sparql.IRI(vocab.RequestMethod), sparql.Lit(t.meta.Method)),
	}
	if t.Actor.User != "" {
		triples = append(triples, sparql.T(mt, sparql.IRI(vocab.User), terms.P("mu")))
	}
	if t.meta.Body != "" {
		triples = append(triples, sparql.T(mt, sparql.IRI(vocab.RequestBody), sparql.Lit(t.meta.Body)))
	}
	if t.meta.ContentType != "" {
		triples = append(triples, sparql.T(mt, sparql.IRI(vocab.RequestContentType), sparql.Lit(t.meta.ContentType)))
	}
	graph := sparql.Graph(terms.P("mt-graph"), triples...)
	if err := terms.Err(); err != nil {
		return nil, err
	}
	return []sparql.Pattern{graph}, nil
}

// Mutate executes w and probes its outcome. On success the constructed result
// is returned without the transaction's own triples. On failure the error names
// the first condition the probe found unmet.
func (t *Txn) Mutate(ctx context.Context, w Write) (rdfio.Graph, error) {
	ctx, span := tracing.Start(ctx, "txn.mutate", attribute.String("mms.txn.id", t.ID))
	defer span.End()

	graph, err := t.mutate(ctx, w)
	tracing.Fail(span, err)
	observe("write", err)
	return graph, err
}

func (t *Txn) mutate(ctx context.Context, w Write) (rdfio.Graph, error) {
	conds := w.Conditions
	if conds == nil {
		conds = conditions.New()
	}
	if err := conds.Err(); err != nil {
		return nil, err
	}

	record, err := t.record()
	if err != nil {
		return nil, err
	}

	where := append(conds.RequiredPatterns(), w.Where...)
	where = append(where, sparql.Bind(sparql.Now(), NowVar))
	update := sparql.Modify{
		Delete: w.Delete,
		Insert: append(append([]sparql.Pattern(nil), w.Insert...), record...),
		Where:  where,
	}

	t.written = true
	ops := append([]sparql.Operation{update}, w.Then...)
	if err := t.m.store.Update(ctx, t.Text(ops...)); err != nil {
		return nil, err
	}

	terms := t.IRI.Terms()
	mt := terms.P("mt")
	mtGraph := terms.P("mt-graph")
	if err := terms.Err(); err != nil {
		return nil, err
	}

	template := append(append([]sparql.Pattern(nil), w.Result.Template...),
		sparql.T(mt, txnPredVar, txnObjVar),
		sparql.T(mt, sparql.IRI(vocab.Inspect), conditions.InspectVar),
	)
	committed := []sparql.Pattern{sparql.Graph(mtGraph, sparql.T(mt, txnPredVar, txnObjVar))}
	if len(w.Result.Where) > 0 {
		committed = append(committed, sparql.Optional(w.Result.Where...))
	}
	probe := sparql.Construct{
		Template: template,
		Where:    []sparql.Pattern{conds.UnionInspectPatterns(sparql.Group(committed...))},
	}

	graph, err := t.m.store.Construct(ctx, t.Text(probe))
	if err != nil {
		return nil, err
	}

	mtIRI, _ := t.IRI.Get("mt")
	if graph.Has(mtIRI, vocab.RDFType, vocab.ClassTransaction) {
		return graph.Except(mtIRI), nil
	}
	return nil, t.diagnose(conds, graph, mtIRI)
}

// Query runs a guarded read. Conditions are evaluated in the same CONSTRUCT as
// the result; when any REQUIRE condition fails the error names it.
func (t *Txn) Query(ctx context.Context, r Read) (rdfio.Graph, error) {
	ctx, span := tracing.Start(ctx, "txn.read", attribute.String("mms.txn.id", t.ID))
	defer span.End()

	graph, err := t.read(ctx, r)
	tracing.Fail(span, err)
	observe("read", err)
	return graph, err
}

func (t *Txn) read(ctx context.Context, r Read) (rdfio.Graph, error) {
	conds := r.Conditions
	if conds == nil {
		conds = conditions.New()
	}
	if err := conds.Err(); err != nil {
		return nil, err
	}

	terms := t.IRI.Terms()
	mt := terms.P("mt")
	if err := terms.Err(); err != nil {
		return nil, err
	}

	body := conds.RequiredPatterns()
	if len(r.Result.Where) > 0 {
		body = append(body, sparql.Optional(r.Result.Where...))
	}
	body = append(body, sparql.Bind(sparql.Lit(okMarker), conditions.InspectVar))

	query := sparql.Construct{
		Template: append(append([]sparql.Pattern(nil), r.Result.Template...),
			sparql.T(mt, sparql.IRI(vocab.Inspect), conditions.InspectVar)),
		Where: []sparql.Pattern{conds.UnionInspectPatterns(sparql.Group(body...))},
	}

	graph, err := t.m.store.Construct(ctx, t.Text(query))
	if err != nil {
		return nil, err
	}

	mtIRI, _ := t.IRI.Get("mt")
	if graph.Has(mtIRI, vocab.Inspect, okMarker) {
		return graph.Except(mtIRI), nil
	}
	return nil, t.diagnose(conds, graph, mtIRI)
}

func (t *Txn) diagnose(conds *conditions.Group, graph rdfio.Graph, mtIRI string) error {
	bound := map[string]bool{}
	for _, key := range graph.Objects(mtIRI, vocab.Inspect) {
		bound[key] = true
	}
	err := conds.Handle(bound)
	t.m.log.Debug("transaction rejected",
		slog.String("txn", t.ID),
		slog.String("path", t.meta.Path),
		slog.Any("conditions", conds.Keys()),
		slog.Int("matched", len(bound)),
		logger.Error(err),
	)
	return err
}

// Close removes the transaction's scratch graph. It runs even when ctx has
// been cancelled and never fails the request.
func (t *Txn) Close(ctx context.Context) {
	if !t.written {
		return
	}
	ctx = context.WithoutCancel(ctx)

	mtGraph, err := t.IRI.Term("mt-graph", "")
	if err == nil {
		err = t.Update(ctx, sparql.Drop{Graph: mtGraph, Silent: true})
	}
	if err != nil {
		t.m.log.Warn("failed to drop transaction graph", slog.String("txn", t.ID), logger.Error(err))
	}
	transactionDuration.Observe(time.Since(t.started).Seconds())
}
