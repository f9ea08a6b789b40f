// Package rdfio decodes and encodes RDF bodies and converts between decoded
// triples and the sparql term model.
package rdfio

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"strings"

	"github.com/knakk/rdf"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
)

// Media types.
const (
	MediaTurtle         = "text/turtle"
	MediaNTriples       = "application/n-triples"
	MediaSPARQLUpdate   = "application/sparql-update"
	MediaSPARQLQuery    = "application/sparql-query"
	MediaSPARQLResults  = "application/sparql-results+json"
	MediaSPARQLResultsX = "application/sparql-results+xml"
)

// MediaType strips parameters from a Content-Type value.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mt
}

func format(mediaType string) (rdf.Format, bool) {
	switch mediaType {
	case MediaTurtle, "application/x-turtle", "":
		return rdf.Turtle, true
	case MediaNTriples, "text/plain":
		return rdf.NTriples, true
	}
	return 0, false
}

// Negotiate picks the response media type for an Accept header. Turtle is the
// default; N-Triples is served when it is preferred.
func Negotiate(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		switch MediaType(part) {
		case MediaTurtle:
			return MediaTurtle
		case MediaNTriples:
			return MediaNTriples
		}
	}
	return MediaTurtle
}

// NegotiateResults picks the Accept header forwarded with a query of form.
// SELECT and ASK produce result sets, CONSTRUCT and DESCRIBE produce graphs.
func NegotiateResults(form, accept string) string {
	switch form {
	case "SELECT", "ASK":
		for _, part := range strings.Split(accept, ",") {
			if mt := MediaType(part); mt == MediaSPARQLResults || mt == MediaSPARQLResultsX {
				return mt
			}
		}
		return MediaSPARQLResults
	}
	return Negotiate(accept)
}

// Decode parses an RDF body. Relative IRIs resolve against base.
func Decode(body io.Reader, contentType, base string) (Graph, error) {
	f, ok := format(MediaType(contentType))
	if !ok {
		return nil, apperror.ErrUnsupportedMediaType.WithMessage("Unsupported RDF content type " + contentType)
	}

	dec := rdf.NewTripleDecoder(body, f)
	if base != "" {
		baseIRI, err := rdf.NewIRI(base)
		if err != nil {
			return nil, apperror.NewInternal("invalid base IRI", err)
		}
		if err := dec.SetOption(rdf.Base, baseIRI); err != nil {
			return nil, apperror.NewInternal("set base IRI", err)
		}
	}

	var out Graph
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, apperror.ErrSyntax.WithMessage("Malformed RDF: " + err.Error())
		}
		out = append(out, t)
	}
}

// DecodeString is Decode over a string body.
func DecodeString(body, contentType, base string) (Graph, error) {
	return Decode(strings.NewReader(body), contentType, base)
}

// Encode writes triples in the given media type.
func Encode(w io.Writer, g Graph, mediaType string) error {
	f, ok := format(mediaType)
	if !ok {
		return apperror.ErrNotAcceptable
	}
	enc := rdf.NewTripleEncoder(w, f)
	for _, t := range g {
		if err := enc.Encode(t); err != nil {
			return err
		}
	}
	return enc.Close()
}

// NTriples renders triples as an N-Triples document.
func NTriples(g Graph) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, g, MediaNTriples); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Term converts a decoded term into the sparql term model.
func Term(t rdf.Term) sparql.Term {
	switch v := t.(type) {
	case rdf.IRI:
		return sparql.IRI(v.String())
	case rdf.Blank:
		return sparql.Blank(strings.TrimPrefix(v.String(), "_:"))
	case rdf.Literal:
		if lang := v.Lang(); lang != "" {
			return sparql.Literal{Value: v.String(), Lang: lang}
		}
		return sparql.Literal{Value: v.String(), Datatype: sparql.IRI(v.DataType.String())}
	}
	return sparql.Lit(t.String())
}

// Patterns converts triples into ground triple patterns.
func Patterns(g Graph) []sparql.Pattern {
	out := make([]sparql.Pattern, len(g))
	for i, t := range g {
		out[i] = sparql.T(Term(t.Subj), Term(t.Pred), Term(t.Obj))
	}
	return out
}

// Triple builds a decoded triple from raw values. The object is an IRI when
// objIRI is set, a plain literal otherwise.
func Triple(subj, pred, obj string, objIRI bool) (rdf.Triple, error) {
	s, err := rdf.NewIRI(subj)
	if err != nil {
		return rdf.Triple{}, err
	}
	p, err := rdf.NewIRI(pred)
	if err != nil {
		return rdf.Triple{}, err
	}
	var o rdf.Object
	if objIRI {
		o, err = rdf.NewIRI(obj)
	} else {
		o, err = rdf.NewLiteral(obj)
	}
	if err != nil {
		return rdf.Triple{}, err
	}
	return rdf.Triple{Subj: s, Pred: p, Obj: o}, nil
}
