package history

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/store"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/tracing"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Ancestry is the part of the commit graph reachable from a target commit.
type Ancestry struct {
	// Parents maps a commit to its parent; the root maps to "".
	Parents map[string]string
	// Snapshots maps a commit to a graph holding the model at that commit.
	Snapshots map[string]string
	// Data holds each commit's payload.
	Data map[string]Data
}

// Plan is how to rebuild the model at a commit: copy Base (or start empty when
// Base is "") and apply the data of each commit in Replay, oldest first.
type Plan struct {
	Base   string
	Replay []string
}

// ErrCycle is returned when a commit is its own ancestor.
var ErrCycle = apperror.NewInternal("commit ancestry contains a cycle", nil)

// NewPlan walks parent pointers from target to the nearest commit with a
// snapshot, or to the nearest load, or to the root.
func NewPlan(target string, a Ancestry) (*Plan, error) {
	visited := make(map[string]bool)
	var path []string
	cur := target
	for {
		if visited[cur] {
			return nil, ErrCycle.WithDetails(map[string]any{"commit": cur})
		}
		visited[cur] = true

		if g, ok := a.Snapshots[cur]; ok {
			return &Plan{Base: g, Replay: reverse(path)}, nil
		}
		parent, ok := a.Parents[cur]
		if !ok {
			if cur == target {
				return nil, apperror.NewNotFound("Commit", target)
			}
			return nil, apperror.NewInternal(fmt.Sprintf("commit <%s> is missing from the ancestry", cur), nil)
		}
		path = append(path, cur)
		if a.Data[cur].Load || parent == "" {
			return &Plan{Replay: reverse(path)}, nil
		}
		cur = parent
	}
}

func reverse(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, len(path))
	for i, c := range path {
		out[len(path)-1-i] = c
	}
	return out
}

// Operations renders p into dst as one update request.
func (p *Plan) Operations(a Ancestry, dst string) []sparql.Operation {
	g := sparql.IRI(dst)
	var ops []sparql.Operation
	if p.Base != "" {
		ops = append(ops, sparql.Copy{From: sparql.IRI(p.Base), To: g, Silent: true})
	} else {
		ops = append(ops, sparql.Drop{Graph: g, Silent: true})
	}

	for _, c := range p.Replay {
		d := a.Data[c]
		if d.Load {
			ops = append(ops, sparql.Drop{Graph: g, Silent: true})
			if d.Body != "" {
				ops = append(ops, sparql.InsertData{Body: []sparql.Pattern{sparql.Graph(g, sparql.RawPattern(d.Body))}})
			}
			continue
		}
		if d.Delete == "" && d.Insert == "" {
			continue
		}
		m := sparql.Modify{}
		if d.Delete != "" {
			m.Delete = []sparql.Pattern{sparql.Graph(g, sparql.RawPattern(d.Delete))}
		}
		if d.Insert != "" {
			m.Insert = []sparql.Pattern{sparql.Graph(g, sparql.RawPattern(d.Insert))}
		}
		if d.Where != "" {
			m.Where = []sparql.Pattern{sparql.Graph(g, sparql.RawPattern(d.Where))}
		}
		ops = append(ops, m)
	}
	return ops
}

// Ancestry query variables.
const (
	varCommit = sparql.Var("__mms_commit")
	varParent = sparql.Var("__mms_parent")
	varGraph  = sparql.Var("__mms_graph")
	varData   = sparql.Var("__mms_data")
	varType   = sparql.Var("__mms_type")
	varDelete = sparql.Var("__mms_delete")
	varInsert = sparql.Var("__mms_insert")
	varWhere  = sparql.Var("__mms_where")
	varBody   = sparql.Var("__mms_body")
	varRef    = sparql.Var("__mms_ref")
)

// Rebuilder materializes the model at a commit into a new graph.
type Rebuilder struct {
	log *slog.Logger
}

// NewRebuilder creates a rebuilder.
func NewRebuilder(log *slog.Logger) *Rebuilder {
	return &Rebuilder{log: log.With(logger.Scope("history.rebuild"))}
}

// Materialize writes the model at commit into dst. The ancestry is read in one
// query and the copy plus every replayed patch is applied in one update.
func (b *Rebuilder) Materialize(ctx context.Context, tx *txn.Txn, repo *Repo, commit, dst string) error {
	ctx, span := tracing.Start(ctx, "history.materialize",
		attribute.String("mms.commit", commit),
		attribute.String("mms.graph", dst),
	)
	defer span.End()

	a, err := b.ancestry(ctx, tx, repo, commit)
	if err != nil {
		tracing.Fail(span, err)
		return err
	}
	plan, err := NewPlan(commit, a)
	if err != nil {
		tracing.Fail(span, err)
		return err
	}
	b.log.Debug("materializing snapshot",
		slog.String("commit", commit),
		slog.String("base", plan.Base),
		slog.Int("replay", len(plan.Replay)),
	)
	err = tx.Update(ctx, plan.Operations(a, dst)...)
	tracing.Fail(span, err)
	return err
}

func (b *Rebuilder) ancestry(ctx context.Context, tx *txn.Txn, repo *Repo, commit string) (Ancestry, error) {
	q := sparql.Select{
		Vars: []sparql.Var{varCommit, varParent, varGraph, varType, varDelete, varInsert, varWhere, varBody},
		Where: []sparql.Pattern{repo.In(
			sparql.T(sparql.IRI(commit), sparql.ZeroOrMore(sparql.IRI(vocab.Parent)), varCommit),
			sparql.T(varCommit, sparql.IRI(vocab.Parent), varParent),
			sparql.Optional(
				sparql.T(varCommit, sparql.IRI(vocab.Data), varData),
				sparql.T(varData, sparql.IRI(vocab.RDFType), varType),
				sparql.Optional(sparql.T(varData, sparql.IRI(vocab.DeleteBody), varDelete)),
				sparql.Optional(sparql.T(varData, sparql.IRI(vocab.InsertBody), varInsert)),
				sparql.Optional(sparql.T(varData, sparql.IRI(vocab.WhereBody), varWhere)),
				sparql.Optional(sparql.T(varData, sparql.IRI(vocab.LoadBody), varBody)),
			),
			sparql.Optional(
				sparql.T(varRef, sparql.IRI(vocab.Commit), varCommit),
				sparql.T(varRef, sparql.IRI(vocab.Snapshot), sparql.Var("__mms_node")),
				sparql.T(sparql.Var("__mms_node"), sparql.IRI(vocab.Graph), varGraph),
			),
		)},
	}

	res, err := tx.Select(ctx, q)
	if err != nil {
		return Ancestry{}, err
	}
	return ancestryFrom(res), nil
}

func ancestryFrom(res *store.Results) Ancestry {
	a := Ancestry{
		Parents:   make(map[string]string),
		Snapshots: make(map[string]string),
		Data:      make(map[string]Data),
	}
	for _, row := range res.Results.Bindings {
		c := row.Get(string(varCommit))
		if c == "" {
			continue
		}
		parent := row.Get(string(varParent))
		if parent == vocab.RDFNil {
			parent = ""
		}
		a.Parents[c] = parent
		if row.Bound(string(varGraph)) {
			a.Snapshots[c] = row.Get(string(varGraph))
		}
		if row.Bound(string(varType)) {
			a.Data[c] = Data{
				Load:   row.Get(string(varType)) == vocab.ClassLoad,
				Delete: row.Get(string(varDelete)),
				Insert: row.Get(string(varInsert)),
				Where:  row.Get(string(varWhere)),
				Body:   row.Get(string(varBody)),
			}
		}
	}
	return a
}

// Drop removes graphs, logging rather than returning failures. It cleans up
// after a write that did not commit.
func (b *Rebuilder) Drop(ctx context.Context, tx *txn.Txn, graphs ...string) {
	ctx = context.WithoutCancel(ctx)
	ops := make([]sparql.Operation, 0, len(graphs))
	for _, g := range graphs {
		ops = append(ops, sparql.Drop{Graph: sparql.IRI(g), Silent: true})
	}
	if err := tx.Update(ctx, ops...); err != nil {
		b.log.Warn("failed to drop graphs", slog.Any("graphs", graphs), logger.Error(err))
	}
}
