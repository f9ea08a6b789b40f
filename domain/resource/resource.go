// Package resource holds the request scaffolding shared by every metadata
// resource: body validation, existence conditions and the guarded create,
// replace, patch, read, list and delete operations.
package resource

import (
	"fmt"
	"strings"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/etag"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Condition keys.
const (
	KeyExists    = "resourceExists"
	KeyNotExists = "resourceNotExists"
	KeyPatch     = "patchWhere"
)

// Reserved variables.
const (
	varP = sparql.Var("__mms_p")
	varO = sparql.Var("__mms_o")
	varS = sparql.Var("__mms_s")
)

// Kind describes a class of resource stored as triples about one subject.
type Kind struct {
	Name  string
	Class string

	Create access.Permission
	Read   access.Permission
	Update access.Permission
	Delete access.Permission

	// System lists predicates the gateway manages. Bodies may not set them and
	// a replace keeps them.
	System []string
	// Accept lists reserved predicates a body may carry.
	Accept []string
}

var userAllowed = []string{vocab.RDFS + "label", vocab.RDFS + "comment"}

func (k Kind) kept() []sparql.Term {
	out := []sparql.Term{sparql.IRI(vocab.RDFType), sparql.IRI(vocab.ID), sparql.IRI(vocab.ETag)}
	for _, p := range k.System {
		out = append(out, sparql.IRI(p))
	}
	return out
}

func (k Kind) accepts(pred string) bool {
	return contains(k.Accept, pred)
}

func (k Kind) allows(pred string) bool {
	if contains(userAllowed, pred) {
		return true
	}
	if pred == vocab.RDFType || contains(k.System, pred) {
		return false
	}
	for _, ns := range vocab.ReservedNamespaces {
		if strings.HasPrefix(pred, ns) {
			return false
		}
	}
	return true
}

// Resource is one addressed resource.
type Resource struct {
	Kind  Kind
	ID    string
	IRI   string
	Graph string
}

// Subject returns the resource node.
func (r Resource) Subject() sparql.Term { return sparql.IRI(r.IRI) }

// GraphTerm returns the graph the resource's triples live in.
func (r Resource) GraphTerm() sparql.Term { return sparql.IRI(r.Graph) }

// In wraps patterns in the resource's graph.
func (r Resource) In(patterns ...sparql.Pattern) sparql.Pattern {
	return sparql.Graph(r.GraphTerm(), patterns...)
}

// TypePattern matches the resource's declaration.
func (r Resource) TypePattern() sparql.Pattern {
	return r.In(sparql.T(r.Subject(), sparql.IRI(vocab.RDFType), sparql.IRI(r.Kind.Class)))
}

// ETagBinding binds etag.Var to the resource's stored marker.
func (r Resource) ETagBinding() sparql.Pattern {
	return r.In(sparql.T(r.Subject(), sparql.IRI(vocab.ETag), etag.Var))
}

// Exists requires the resource to be declared; 404 otherwise.
func (r Resource) Exists() func(b *conditions.Builder) {
	return func(b *conditions.Builder) {
		b.Require(KeyExists, func() *apperror.Error {
			return apperror.NewNotFound(r.Kind.Name, r.ID)
		}, r.TypePattern())
	}
}

// NotExists requires the resource to be absent; 409 otherwise.
func (r Resource) NotExists() func(b *conditions.Builder) {
	return func(b *conditions.Builder) {
		b.Require(KeyNotExists, func() *apperror.Error {
			return apperror.ErrConflict.WithMessage(fmt.Sprintf("%s '%s' already exists", r.Kind.Name, r.ID))
		}, sparql.Filter(sparql.NotExists(r.TypePattern())))
	}
}

// Declaration returns the system triples of a newly created resource.
func (r Resource) Declaration(tag string) []sparql.Pattern {
	s := r.Subject()
	return []sparql.Pattern{
		sparql.T(s, sparql.IRI(vocab.RDFType), sparql.IRI(r.Kind.Class)),
		sparql.T(s, sparql.IRI(vocab.ID), sparql.Lit(r.ID)),
		sparql.T(s, sparql.IRI(vocab.ETag), sparql.Lit(tag)),
	}
}

// Representation constructs every triple about the resource.
func (r Resource) Representation() ([]sparql.Pattern, []sparql.Pattern) {
	t := sparql.T(r.Subject(), varP, varO)
	return []sparql.Pattern{t}, []sparql.Pattern{r.In(t)}
}

// Body is a validated request body, split into user statements and the
// reserved statements the kind accepts.
type Body struct {
	User     rdfio.Graph
	Accepted rdfio.Graph
}

// Objects returns the objects of an accepted predicate.
func (b Body) Objects(pred string) []string {
	return b.Accepted.Objects("", pred)
}

// Accepted wraps the accepted statements of body in the resource's graph. It
// returns nil when there are none.
func (r Resource) Accepted(body *Body) []sparql.Pattern {
	if len(body.Accepted) == 0 {
		return nil
	}
	return []sparql.Pattern{r.In(rdfio.Patterns(body.Accepted)...)}
}

// ParseBody decodes an RDF body relative to the resource IRI. Every statement
// must be about the resource; reserved predicates are rejected unless the kind
// accepts them.
func (r Resource) ParseBody(body, contentType string) (*Body, error) {
	out := &Body{}
	if strings.TrimSpace(body) == "" {
		return out, nil
	}
	g, err := rdfio.DecodeString(body, contentType, r.IRI)
	if err != nil {
		return nil, err
	}
	for _, t := range g {
		subj := t.Subj.String()
		pred := t.Pred.String()
		switch {
		case subj != r.IRI:
			return nil, apperror.ErrSubjectNotAllowed.WithMessagef("Subject <%s> is not allowed; statements must be about <%s>", subj, r.IRI)
		case r.Kind.accepts(pred):
			out.Accepted = append(out.Accepted, t)
		case !r.Kind.allows(pred):
			return nil, apperror.ErrPredicateNotAllowed.WithMessagef("Predicate <%s> is not allowed", pred)
		default:
			out.User = append(out.User, t)
		}
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
