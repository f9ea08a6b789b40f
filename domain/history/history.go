// Package history models a repository's commits, refs and snapshots, and
// rebuilds the state of the model at any commit.
//
// Every repository keeps its history in one metadata graph. A ref (branch or
// lock) points at exactly one commit; a commit points at its parent and at a
// data node holding either a patch (delete, insert and where bodies) or a full
// load. Snapshot graphs materialize the model at the commit of the ref that
// owns them: a branch owns a Staging snapshot that is patched in place and
// optionally a Model snapshot, a lock owns a Model snapshot. When a ref moves
// away from a commit its Model snapshot is handed to an interim lock so the old
// state stays cheap to rebuild.
package history

import (
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/etag"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Reserved variables.
const (
	varHead    = sparql.Var("__mms_head")
	varModel   = sparql.Var("__mms_model")
	varInterim = sparql.Var("__mms_interim")
)

// StagingVar is bound to a branch's staging graph by StagingBinding.
const StagingVar = sparql.Var("__mms_staging")

// Repo names the graphs and nodes of one repository's history.
type Repo struct {
	Metadata string

	commits   string
	graphs    string
	snapshots string
	branches  string
	locks     string
	diffs     string
}

// NewRepo resolves the repository namespaces from ctx, which must carry an org
// and repo id.
func NewRepo(ctx *iri.Context) (*Repo, error) {
	r := &Repo{}
	for _, f := range []struct {
		prefix string
		dst    *string
	}{
		{"mor-graph", &r.graphs},
		{"mor-commit", &r.commits},
		{"mor-snapshot", &r.snapshots},
		{"mor-branch", &r.branches},
		{"mor-lock", &r.locks},
		{"mor-diff", &r.diffs},
	} {
		v, err := ctx.Get(f.prefix)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	r.Metadata = r.graphs + "Metadata"
	return r, nil
}

func (r *Repo) Commit(id string) string     { return r.commits + id }
func (r *Repo) CommitData(id string) string { return r.commits + id + "/data" }
func (r *Repo) Branch(id string) string     { return r.branches + id }
func (r *Repo) Lock(id string) string       { return r.locks + id }
func (r *Repo) Diff(id string) string       { return r.diffs + id }

// InterimLock names the interim lock created by transaction txID.
func (r *Repo) InterimLock(txID string) string { return r.locks + "Interim." + txID }

// ModelGraph and StagingGraph name snapshot graphs; ModelNode and StagingNode
// the metadata nodes describing them.
func (r *Repo) ModelGraph(id string) string   { return r.graphs + "Model." + id }
func (r *Repo) StagingGraph(id string) string { return r.graphs + "Staging." + id }
func (r *Repo) ModelNode(id string) string    { return r.snapshots + "Model." + id }
func (r *Repo) StagingNode(id string) string  { return r.snapshots + "Staging." + id }

// DiffGraph names the insert or delete side of a diff.
func (r *Repo) DiffGraph(id, side string) string { return r.graphs + "Diff." + id + "." + side }

// In wraps patterns in the metadata graph.
func (r *Repo) In(patterns ...sparql.Pattern) sparql.Pattern {
	return sparql.Graph(sparql.IRI(r.Metadata), patterns...)
}

// Data is the payload of a commit.
type Data struct {
	Load   bool
	Delete string
	Insert string
	Where  string
	// Body is the N-Triples text of a load.
	Body string
}

// Commit is a new commit.
type Commit struct {
	ID      string
	Parent  sparql.Term
	Author  sparql.Term
	Message string
	Data    Data
}

// Patterns returns the metadata triples of c. The submission time is the
// transaction's clock.
func (r *Repo) Patterns(c Commit) []sparql.Pattern {
	commit := sparql.IRI(r.Commit(c.ID))
	data := sparql.IRI(r.CommitData(c.ID))
	parent := c.Parent
	if parent == nil {
		parent = sparql.IRI(vocab.RDFNil)
	}
	out := []sparql.Pattern{
		sparql.T(commit, sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ClassCommit)),
		sparql.T(commit, sparql.IRI(vocab.ID), sparql.Lit(c.ID)),
		sparql.T(commit, sparql.IRI(vocab.ETag), sparql.Lit(c.ID)),
		sparql.T(commit, sparql.IRI(vocab.Parent), parent),
		sparql.T(commit, sparql.IRI(vocab.Submitted), txn.NowVar),
		sparql.T(commit, sparql.IRI(vocab.Data), data),
	}
	if c.Author != nil {
		out = append(out, sparql.T(commit, sparql.IRI(vocab.CreatedBy), c.Author))
	}
	if c.Message != "" {
		out = append(out, sparql.T(commit, sparql.IRI(vocab.Message), sparql.Lit(c.Message)))
	}

	if c.Data.Load {
		return append(out,
			sparql.T(data, sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ClassLoad)),
			sparql.T(data, sparql.IRI(vocab.LoadBody), sparql.Lit(c.Data.Body)),
		)
	}
	out = append(out, sparql.T(data, sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ClassPatch)))
	for _, b := range []struct{ pred, text string }{
		{vocab.DeleteBody, c.Data.Delete},
		{vocab.InsertBody, c.Data.Insert},
		{vocab.WhereBody, c.Data.Where},
	} {
		if b.text != "" {
			out = append(out, sparql.T(data, sparql.IRI(b.pred), sparql.Lit(b.text)))
		}
	}
	return out
}

// Snapshot returns the triples declaring a snapshot node of class over graph.
func Snapshot(node, class, graph string) []sparql.Pattern {
	n := sparql.IRI(node)
	return []sparql.Pattern{
		sparql.T(n, sparql.IRI(vocab.RDFType), sparql.IRI(class)),
		sparql.T(n, sparql.IRI(vocab.Graph), sparql.IRI(graph)),
	}
}

// StagingBinding binds StagingVar to the staging graph of branch.
func (r *Repo) StagingBinding(branch string) sparql.Pattern {
	return r.SnapshotBinding(branch, vocab.ClassStaging, StagingVar)
}

// SnapshotBinding binds g to the snapshot graph of class owned by ref.
func (r *Repo) SnapshotBinding(ref, class string, g sparql.Var) sparql.Pattern {
	node := sparql.Var(string(g) + "Node")
	return r.In(
		sparql.T(sparql.IRI(ref), sparql.IRI(vocab.Snapshot), node),
		sparql.T(node, sparql.IRI(vocab.RDFType), sparql.IRI(class)),
		sparql.T(node, sparql.IRI(vocab.Graph), g),
	)
}

// RefGraph binds g to a snapshot graph of ref. A branch's Model and Staging
// snapshots hold the same state, so either may match.
func (r *Repo) RefGraph(ref sparql.Term, g sparql.Var) sparql.Pattern {
	node := sparql.Var(string(g) + "Node")
	return r.In(
		sparql.T(ref, sparql.IRI(vocab.Snapshot), node),
		sparql.T(node, sparql.IRI(vocab.Graph), g),
	)
}

// Advance moves ref to the new commit c, whose parent is the ref's current
// head. A Model snapshot the ref owned is handed to an interim lock pinned to
// the old head; the ref's marker becomes tag. The where patterns bind
// etag.Var to the ref's old marker.
func (r *Repo) Advance(ref string, c Commit, tag string) (del, ins, where []sparql.Pattern) {
	s := sparql.IRI(ref)
	commit := sparql.IRI(r.Commit(c.ID))
	interim := sparql.IRI(r.InterimLock(c.ID))
	c.Parent = varHead

	where = []sparql.Pattern{
		r.In(
			sparql.T(s, sparql.IRI(vocab.Commit), varHead),
			sparql.T(s, sparql.IRI(vocab.ETag), etag.Var),
		),
		sparql.Optional(
			r.In(
				sparql.T(s, sparql.IRI(vocab.Snapshot), varModel),
				sparql.T(varModel, sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ClassModel)),
			),
			sparql.Bind(interim, varInterim),
		),
	}
	del = []sparql.Pattern{r.In(
		sparql.T(s, sparql.IRI(vocab.Commit), varHead),
		sparql.T(s, sparql.IRI(vocab.ETag), etag.Var),
		sparql.T(s, sparql.IRI(vocab.Snapshot), varModel),
	)}
	ins = []sparql.Pattern{r.In(append([]sparql.Pattern{
		sparql.T(s, sparql.IRI(vocab.Commit), commit),
		sparql.T(s, sparql.IRI(vocab.ETag), sparql.Lit(tag)),
		sparql.T(varInterim, sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ClassInterimLock)),
		sparql.T(varInterim, sparql.IRI(vocab.Commit), varHead),
		sparql.T(varInterim, sparql.IRI(vocab.Snapshot), varModel),
	}, r.Patterns(c)...)...)}
	return del, ins, where
}
