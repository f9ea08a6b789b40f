// Package iri maps request identifiers onto the hierarchical IRI namespace of
// the gateway and renders the matching PREFIX block.
package iri

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.\-]{0,255}$`)

// ValidateID rejects identifiers that cannot be embedded in an IRI path segment.
func ValidateID(kind, id string) error {
	if !idPattern.MatchString(id) {
		return apperror.ErrInvalidID.WithMessage(fmt.Sprintf("Invalid %s identifier %q", kind, id))
	}
	return nil
}

// IDs are the identifiers a request supplies. Empty fields are absent.
type IDs struct {
	User        string
	Group       string
	Policy      string
	Org         string
	Repo        string
	Branch      string
	Commit      string
	Lock        string
	Diff        string
	Transaction string
}

// Context is the prefix map of a single request. It is immutable.
type Context struct {
	root     string
	ids      IDs
	prologue sparql.Prologue
	index    map[string]string
}

// ErrParameterNeverSupplied is returned when a prefix is requested whose
// identifier was not part of the request.
var ErrParameterNeverSupplied = apperror.NewInternal("parameter never supplied", nil)

// New builds the prefix map for root and ids. Deeper prefixes are only declared
// when their ancestor ids are present.
func New(root string, ids IDs) *Context {
	root = strings.TrimRight(root, "/")
	c := &Context{root: root, ids: ids}

	add := func(name, value string) {
		c.prologue = append(c.prologue, sparql.Prefix{Name: name, IRI: value})
	}

	add("rdf", vocab.RDF)
	add("rdfs", vocab.RDFS)
	add("owl", vocab.OWL)
	add("xsd", vocab.XSD)
	add("dct", vocab.DCT)
	add("sh", vocab.SH)
	add("mms", vocab.Namespace)
	add("mms-object", vocab.ObjectNamespace)

	add("m", root+"/")
	add("m-graph", root+"/graphs/")
	add("m-user", root+"/users/")
	add("m-group", root+"/groups/")
	add("m-policy", root+"/policies/")
	add("m-org", root+"/orgs/")

	if ids.User != "" {
		add("mu", root+"/users/"+ids.User)
	}
	if ids.Group != "" {
		add("mg", root+"/groups/"+ids.Group)
	}
	if ids.Policy != "" {
		add("mp", root+"/policies/"+ids.Policy)
	}
	if ids.Transaction != "" {
		add("mt", root+"/transactions/"+ids.Transaction)
		add("mt-graph", root+"/graphs/Transaction."+ids.Transaction)
	}

	if ids.Org != "" {
		mo := root + "/orgs/" + ids.Org
		add("mo", mo)
		add("mo-repo", mo+"/repos/")

		if ids.Repo != "" {
			mor := mo + "/repos/" + ids.Repo
			add("mor", mor)
			add("mor-graph", mor+"/graphs/")
			add("mor-commit", mor+"/commits/")
			add("mor-branch", mor+"/branches/")
			add("mor-lock", mor+"/locks/")
			add("mor-diff", mor+"/diffs/")
			add("mor-snapshot", mor+"/snapshots/")

			if ids.Branch != "" {
				add("morb", mor+"/branches/"+ids.Branch)
			}
			if ids.Commit != "" {
				morc := mor + "/commits/" + ids.Commit
				add("morc", morc)
				add("morc-data", morc+"/data")
			}
			if ids.Lock != "" {
				add("morl", mor+"/locks/"+ids.Lock)
			}
			if ids.Diff != "" {
				add("mord", mor+"/diffs/"+ids.Diff)
			}
		}
	}

	c.index = c.prologue.Map()
	return c
}

// Root returns the root context IRI.
func (c *Context) Root() string { return c.root }

// IDs returns the identifiers the context was built from.
func (c *Context) IDs() IDs { return c.ids }

// With returns a new context with the non-empty fields of ids overriding the
// current ones.
func (c *Context) With(ids IDs) *Context {
	merged := c.ids
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&merged.User, ids.User)
	set(&merged.Group, ids.Group)
	set(&merged.Policy, ids.Policy)
	set(&merged.Org, ids.Org)
	set(&merged.Repo, ids.Repo)
	set(&merged.Branch, ids.Branch)
	set(&merged.Commit, ids.Commit)
	set(&merged.Lock, ids.Lock)
	set(&merged.Diff, ids.Diff)
	set(&merged.Transaction, ids.Transaction)
	return New(c.root, merged)
}

// Get returns the IRI bound to prefix.
func (c *Context) Get(prefix string) (string, error) {
	v, ok := c.index[prefix]
	if !ok {
		return "", ErrParameterNeverSupplied.WithMessage(fmt.Sprintf("parameter never supplied for prefix %q", prefix))
	}
	return v, nil
}

// Expand returns the full IRI of prefix:local.
func (c *Context) Expand(prefix, local string) (string, error) {
	base, err := c.Get(prefix)
	if err != nil {
		return "", err
	}
	return base + local, nil
}

// Term returns prefix:local as a term, or an error if prefix is undeclared.
func (c *Context) Term(prefix, local string) (sparql.Term, error) {
	if _, err := c.Get(prefix); err != nil {
		return nil, err
	}
	return sparql.PName{Prefix: prefix, Local: local}, nil
}

// Prologue returns the declarations to prepend to every query.
func (c *Context) Prologue() sparql.Prologue { return c.prologue }

// Terms accumulates lookups and remembers the first failure, so builders can
// compose fragments without checking every call.
type Terms struct {
	ctx *Context
	err error
}

// Terms starts a new accumulator.
func (c *Context) Terms() *Terms { return &Terms{ctx: c} }

// P returns prefix: (the IRI of the prefix itself).
func (t *Terms) P(prefix string) sparql.Term { return t.PL(prefix, "") }

// PL returns prefix:local.
func (t *Terms) PL(prefix, local string) sparql.Term {
	term, err := t.ctx.Term(prefix, local)
	if err != nil {
		if t.err == nil {
			t.err = err
		}
		return sparql.PName{Prefix: prefix, Local: local}
	}
	return term
}

// Err returns the first lookup failure.
func (t *Terms) Err() error { return t.err }
