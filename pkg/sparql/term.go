// Package sparql is a small typed model of SPARQL 1.1 fragments. Every leaf value
// (IRI, literal, variable, prefixed name) is escaped when it is rendered, so callers
// compose queries from data and never concatenate user input into query text.
package sparql

import (
	"fmt"
	"strings"
	"time"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Term is a leaf of a graph pattern. String renders SPARQL syntax.
type Term interface {
	Expr
	String() string
	isTerm()
}

// IRI is an absolute IRI. Its raw value is string(iri).
type IRI string

func (i IRI) String() string { return "<" + escapeIRI(string(i)) + ">" }
func (IRI) isTerm() {}
func (i IRI) renderExpr(w *writer) { w.write(i.String()) }

// PName is a prefixed name such as mor:. The prefix must be declared in the
// prologue of the query it is rendered into.
type PName struct {
	Prefix string
	Local  string
}

func (p PName) String() string { return p.Prefix + ":" + escapeLocal(p.Local) }
func (PName) isTerm() {}
func (p PName) renderExpr(w *writer) { w.write(p.String()) }

// Var is a query variable, named without the leading '?'.
type Var string

func (v Var) String() string { return "?" + sanitizeVar(string(v)) }
func (Var) isTerm() {}
func (v Var) renderExpr(w *writer) { w.write(v.String()) }

// Blank is a blank node label without the leading "_:".
type Blank string

func (b Blank) String() string { return "_:" + sanitizeVar(string(b)) }
func (Blank) isTerm() {}
func (b Blank) renderExpr(w *writer) { w.write(b.String()) }

// Literal is an RDF literal. At most one of Lang and Datatype is set.
type Literal struct {
	Value    string
	Lang     string
	Datatype IRI
}

func (l Literal) String() string {
	s := `"` + escapeLiteral(l.Value) + `"`
	switch {
	case l.Lang != "":
		return s + "@" + sanitizeLang(l.Lang)
	case l.Datatype != "" && string(l.Datatype) != vocab.XSDString:
		return s + "^^" + l.Datatype.String()
	}
	return s
}
func (Literal) isTerm() {}
func (l Literal) renderExpr(w *writer) { w.write(l.String()) }

// Lit returns a plain string literal.
func Lit(s string) Literal { return Literal{Value: s} }

// Typed returns a literal with the given datatype.
func Typed(s string, datatype string) Literal { return Literal{Value: s, Datatype: IRI(datatype)} }

// DateTime returns an xsd:dateTime literal.
func DateTime(t time.Time) Literal {
	return Typed(t.UTC().Format(time.RFC3339Nano), vocab.XSDDateTime)
}

// Path is a property path built from IRIs and prefixed names only.
type Path struct{ text string }

func (p Path) String() string { return p.text }
func (Path) isTerm() {}
func (p Path) renderExpr(w *writer) { w.write(p.text) }

func pathOperand(t Term) string {
	if p, ok := t.(Path); ok {
		return "(" + p.text + ")"
	}
	return t.String()
}

// Seq is the sequence path a/b/c.
func Seq(steps ...Term) Path {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = pathOperand(s)
	}
	return Path{text: strings.Join(parts, "/")}
}

// Alt is the alternative path a|b.
func Alt(steps ...Term) Path {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = pathOperand(s)
	}
	return Path{text: strings.Join(parts, "|")}
}

// ZeroOrMore is the closure path t*.
func ZeroOrMore(t Term) Path { return Path{text: pathOperand(t) + "*"} }

// OneOrMore is the closure path t+.
func OneOrMore(t Term) Path { return Path{text: pathOperand(t) + "+"} }

// Inverse is the inverse path ^t.
func Inverse(t Term) Path { return Path{text: "^" + pathOperand(t)} }

// IsVar reports whether t is a variable.
func IsVar(t Term) bool {
	_, ok := t.(Var)
	return ok
}

func escapeIRI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= 0x20 || strings.IndexByte(`<>"{}|^`+"`"+`\`, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func escapeLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeLocal keeps PN_LOCAL characters and percent-encodes the rest.
func escapeLocal(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		case c == '.' && i > 0 && i < len(s)-1:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func sanitizeVar(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func sanitizeLang(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
