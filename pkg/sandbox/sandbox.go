// Package sandbox validates user-supplied SPARQL and rewrites it into
// fragments the gateway can embed inside its own guarded writes and reads.
//
// Input is tokenized, parsed into a small tree and re-serialized with every
// IRI expanded. Nothing the user wrote reaches the store without passing
// through the parser.
package sandbox

import (
	"strings"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Policy constrains what an update may touch.
type Policy struct {
	// Base resolves relative IRIs, including <>.
	Base string
	// Prefixes are declared before the user's own prologue.
	Prefixes map[string]string
	// Subject, when set, is the only subject templates may use.
	Subject string
	// ReservedNamespaces lists predicate namespaces templates may not use,
	// except for the IRIs in AllowPredicates.
	ReservedNamespaces []string
	AllowPredicates    []string
}

// MetadataPolicy restricts updates to statements about subject using
// non-reserved predicates.
func MetadataPolicy(base, subject string, prefixes map[string]string) Policy {
	return Policy{
		Base:               base,
		Prefixes:           prefixes,
		Subject:            subject,
		ReservedNamespaces: vocab.ReservedNamespaces,
		AllowPredicates:    []string{vocab.RDFS + "label", vocab.RDFS + "comment"},
	}
}

func (p Policy) restricted() bool {
	return p.Subject != "" || len(p.ReservedNamespaces) > 0
}

func (p Policy) predicateAllowed(iri string) bool {
	for _, a := range p.AllowPredicates {
		if a == iri {
			return true
		}
	}
	for _, ns := range p.ReservedNamespaces {
		if strings.HasPrefix(iri, ns) {
			return false
		}
	}
	return true
}

// Patch is a sandboxed update split into the bodies of a DELETE/INSERT/WHERE
// operation. Bodies contain triples only; the caller wraps them in GRAPH.
type Patch struct {
	Delete string
	Insert string
	Where  string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return strings.TrimSpace(p.Delete) == "" && strings.TrimSpace(p.Insert) == ""
}

// RewriteUpdate parses an update and returns it as a Patch. Accepted forms are a
// single INSERT DATA, DELETE DATA, DELETE WHERE or DELETE/INSERT WHERE, or
// DELETE WHERE / DELETE DATA followed by INSERT DATA.
func RewriteUpdate(text string, policy Policy) (*Patch, error) {
	u, err := ParseUpdate(text, policy)
	if err != nil {
		return nil, err
	}
	ops := u.Operations
	for _, op := range ops {
		if op.Kind == OpOther {
			return nil, apperror.ErrUpdateOperationNotAllowed.WithMessagef("%s operations are not allowed", op.Keyword)
		}
	}

	switch {
	case len(ops) == 1:
	case len(ops) == 2 && (ops[0].Kind == OpDeleteWhere || ops[0].Kind == OpDeleteData) && ops[1].Kind == OpInsertData:
	default:
		kinds := make([]string, len(ops))
		for i, op := range ops {
			kinds[i] = op.Kind.String()
		}
		return nil, apperror.ErrUpdateOperationNotAllowed.WithMessagef("unsupported sequence of operations: %s", strings.Join(kinds, "; "))
	}

	for _, op := range ops {
		if err := (guard{}).group(op.Where); err != nil {
			return nil, err
		}
		if err := checkTemplate(op.Delete, policy); err != nil {
			return nil, err
		}
		if err := checkTemplate(op.Insert, policy); err != nil {
			return nil, err
		}
	}

	patch := &Patch{}
	for _, op := range ops {
		switch op.Kind {
		case OpInsertData:
			patch.Insert = TriplesText(op.Insert)
		case OpDeleteData:
			patch.Delete = TriplesText(op.Delete)
		case OpDeleteWhere:
			patch.Delete = TriplesText(op.Delete)
			patch.Where = patch.Delete
		case OpModify:
			patch.Delete = TriplesText(op.Delete)
			patch.Insert = TriplesText(op.Insert)
			if patch.Where, err = GroupBody(op.Where); err != nil {
				return nil, err
			}
		}
	}
	return patch, nil
}

func checkTemplate(triples []Triple, policy Policy) error {
	if !policy.restricted() {
		return nil
	}
	for _, t := range triples {
		if policy.Subject != "" && (t.Subject.Kind != NodeIRI || t.Subject.Value != policy.Subject) {
			return apperror.ErrSubjectNotAllowed.WithMessagef("Subject %s is not allowed; statements must be about %s", nodeText(t.Subject), nodeText(Node{Kind: NodeIRI, Value: policy.Subject}))
		}
		if err := checkProperties(t.Properties, policy); err != nil {
			return err
		}
	}
	return nil
}

func checkProperties(props []Property, policy Policy) error {
	for _, p := range props {
		switch {
		case p.Verb.Var != "":
			return apperror.ErrPredicateNotAllowed.WithMessagef("Variable predicate ?%s is not allowed", p.Verb.Var)
		case !policy.predicateAllowed(p.Verb.IRI):
			return apperror.ErrPredicateNotAllowed.WithMessagef("Predicate %s is not allowed", nodeText(Node{Kind: NodeIRI, Value: p.Verb.IRI}))
		}
		for _, o := range p.Objects {
			// a bracketed object makes statements about a blank node
			if policy.Subject != "" && len(o.Props) > 0 {
				return apperror.ErrSubjectNotAllowed.WithMessagef("Blank node property lists are not allowed; statements must be about %s", nodeText(Node{Kind: NodeIRI, Value: policy.Subject}))
			}
			if err := checkProperties(o.Props, policy); err != nil {
				return err
			}
		}
	}
	return nil
}

// SafeQuery is a query that references only the default graph.
type SafeQuery struct {
	Form string
	Text string
}

// RewriteQuery parses a read query, rejects dataset clauses, GRAPH and SERVICE
// anywhere in it, and re-serializes it.
func RewriteQuery(text string, policy Policy) (*SafeQuery, error) {
	q, err := ParseQuery(text, policy)
	if err != nil {
		return nil, err
	}
	if err := (guard{}).query(q); err != nil {
		return nil, err
	}
	return &SafeQuery{Form: q.Form, Text: q.String()}, nil
}
