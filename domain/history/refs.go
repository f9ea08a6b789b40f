package history

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// KeySource is the condition that the commit a new ref starts from exists.
const KeySource = "sourceExists"

// Graph read variables.
const (
	varGS     = sparql.Var("__mms_gs")
	varGP     = sparql.Var("__mms_gp")
	varGO     = sparql.Var("__mms_go")
	varGraphG = sparql.Var("__mms_snapshot")
	varSource = sparql.Var("__mms_source")
)

// Source is where a new ref starts: another ref, or a commit.
type Source struct {
	Ref    string
	Commit string
}

// SourceFrom reads a Source from the mms:ref or mms:commit objects of a
// request body. Exactly one must be given.
func SourceFrom(refs, commits []string) (Source, error) {
	switch {
	case len(refs)+len(commits) != 1:
		return Source{}, apperror.NewBadRequest("Exactly one of mms:ref or mms:commit is required")
	case len(refs) == 1:
		return Source{Ref: refs[0]}, nil
	default:
		return Source{Commit: commits[0]}, nil
	}
}

// Resolve returns the commit src names. It is "" when src is a ref that does
// not exist; the guarded write then fails on the source condition.
func (r *Repo) Resolve(ctx context.Context, tx *txn.Txn, src Source) (string, error) {
	if src.Commit != "" {
		return src.Commit, nil
	}
	res, err := tx.Select(ctx, sparql.Select{
		Vars:  []sparql.Var{varSource},
		Where: []sparql.Pattern{r.In(sparql.T(sparql.IRI(src.Ref), sparql.IRI(vocab.Commit), varSource))},
	})
	if err != nil {
		return "", err
	}
	if c := res.Column(string(varSource)); len(c) > 0 {
		return c[0], nil
	}
	return "", nil
}

// SourceExists requires the resolved source commit to be part of the
// repository's history.
func (r *Repo) SourceExists(src Source, commit string) func(b *conditions.Builder) {
	return func(b *conditions.Builder) {
		b.Require(KeySource, func() *apperror.Error {
			if src.Ref != "" {
				return apperror.ErrNotFound.WithMessagef("Ref <%s> not found", src.Ref)
			}
			return apperror.ErrNotFound.WithMessagef("Commit <%s> not found", src.Commit)
		}, r.sourcePattern(src, commit))
	}
}

func (r *Repo) sourcePattern(src Source, commit string) sparql.Pattern {
	if commit == "" {
		return r.In(sparql.T(sparql.IRI(src.Ref), sparql.IRI(vocab.Commit), varSource))
	}
	return r.In(sparql.T(sparql.IRI(commit), sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ClassCommit)))
}

// Start is a new ref whose snapshots have been materialized.
type Start struct {
	Commit string
	// Insert declares the ref's pointer and snapshot nodes.
	Insert []sparql.Pattern
	// Graphs are the snapshot graphs written for the ref.
	Graphs []string
}

// Start materializes the model at commit for a ref created by tx. The ref gets a
// Model snapshot, and a Staging copy when staging is set. Nothing is written
// when commit is "".
func (b *Rebuilder) Start(ctx context.Context, tx *txn.Txn, repo *Repo, ref, commit string, staging bool) (*Start, error) {
	s := &Start{Commit: commit}
	model := repo.ModelGraph(tx.ID)
	subj := sparql.IRI(ref)
	if commit == "" {
		return s, nil
	}

	if err := b.Materialize(ctx, tx, repo, commit, model); err != nil {
		b.Drop(ctx, tx, model)
		return nil, err
	}
	s.Graphs = append(s.Graphs, model)

	meta := []sparql.Pattern{
		sparql.T(subj, sparql.IRI(vocab.Commit), sparql.IRI(commit)),
		sparql.T(subj, sparql.IRI(vocab.Snapshot), sparql.IRI(repo.ModelNode(tx.ID))),
	}
	meta = append(meta, Snapshot(repo.ModelNode(tx.ID), vocab.ClassModel, model)...)

	if staging {
		stage := repo.StagingGraph(tx.ID)
		if err := tx.Update(ctx, sparql.Copy{From: sparql.IRI(model), To: sparql.IRI(stage), Silent: true}); err != nil {
			b.Drop(ctx, tx, model, stage)
			return nil, err
		}
		s.Graphs = append(s.Graphs, stage)
		meta = append(meta, sparql.T(subj, sparql.IRI(vocab.Snapshot), sparql.IRI(repo.StagingNode(tx.ID))))
		meta = append(meta, Snapshot(repo.StagingNode(tx.ID), vocab.ClassStaging, stage)...)
	}

	s.Insert = []sparql.Pattern{repo.In(meta...)}
	b.log.Debug("ref snapshots materialized",
		slog.String("ref", ref),
		slog.String("commit", commit),
		slog.Int("graphs", len(s.Graphs)),
	)
	return s, nil
}

// GraphResult constructs the snapshot graph of class owned by ref, together
// with the ref's commit.
func (r *Repo) GraphResult(ref, class string) txn.Result {
	s := sparql.IRI(ref)
	return txn.Result{
		Template: []sparql.Pattern{
			sparql.T(varGS, varGP, varGO),
			sparql.T(s, sparql.IRI(vocab.Commit), varHead),
		},
		Where: []sparql.Pattern{
			r.In(sparql.T(s, sparql.IRI(vocab.Commit), varHead)),
			sparql.Optional(
				r.SnapshotBinding(ref, class, varGraphG),
				sparql.Graph(varGraphG, sparql.T(varGS, varGP, varGO)),
			),
		},
	}
}

// SplitGraph separates a GraphResult into the model triples and the id of the
// commit they represent.
func (r *Repo) SplitGraph(g rdfio.Graph, ref string) (rdfio.Graph, string) {
	head, _ := g.Object(ref, vocab.Commit)
	return g.Remove(ref, vocab.Commit), strings.TrimPrefix(head, r.commits)
}

// LocateResult constructs a single triple naming the snapshot graph of class
// owned by ref. Read it back with Located.
func (r *Repo) LocateResult(ref, class string) txn.Result {
	return txn.Result{
		Template: []sparql.Pattern{sparql.T(sparql.IRI(ref), sparql.IRI(vocab.Graph), varGraphG)},
		Where:    []sparql.Pattern{r.SnapshotBinding(ref, class, varGraphG)},
	}
}

// Located returns the graph found by LocateResult, or "" when the ref has no
// snapshot of that class.
func Located(g rdfio.Graph, ref string) string {
	graph, _ := g.Object(ref, vocab.Graph)
	return graph
}

// Owned returns the snapshot graphs ref owns.
func (r *Repo) Owned(ctx context.Context, tx *txn.Txn, ref string) ([]string, error) {
	res, err := tx.Select(ctx, sparql.Select{
		Vars:  []sparql.Var{varGraphG},
		Where: []sparql.Pattern{r.RefGraph(sparql.IRI(ref), varGraphG)},
	})
	if err != nil {
		return nil, err
	}
	return res.Column(string(varGraphG)), nil
}

// Release returns the patterns that remove the snapshot nodes of ref. They are
// embedded in the write that deletes ref; the graphs themselves are dropped
// once that write commits.
func (r *Repo) Release(ref string) (del, where []sparql.Pattern) {
	node := sparql.Var(string(varGraphG) + "Node")
	p, o := sparql.Var("__mms_np"), sparql.Var("__mms_no")
	del = []sparql.Pattern{r.In(sparql.T(node, p, o))}
	where = []sparql.Pattern{sparql.Optional(r.In(
		sparql.T(sparql.IRI(ref), sparql.IRI(vocab.Snapshot), node),
		sparql.T(node, p, o),
	))}
	return del, where
}
