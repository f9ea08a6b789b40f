package sandbox

import (
	"fmt"
	"strings"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
)

// renderer re-serializes a parsed tree with every IRI absolute, so the output
// needs no prologue.
type renderer struct {
	b      *strings.Builder
	indent int
}

func newRenderer(indent int) *renderer {
	return &renderer{b: &strings.Builder{}, indent: indent}
}

func (r *renderer) printf(format string, args ...any) {
	r.b.WriteString(strings.Repeat("    ", r.indent))
	fmt.Fprintf(r.b, format, args...)
	r.b.WriteByte('\n')
}

func (r *renderer) open(prefix string) {
	r.printf("%s{", prefix)
	r.indent++
}

func (r *renderer) close() {
	r.indent--
	r.printf("}")
}

func (r *renderer) elements(g *GroupPattern) error {
	for _, el := range g.Elements {
		if err := el.Accept(r); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) block(prefix string, g *GroupPattern) error {
	r.open(prefix)
	if err := r.elements(g); err != nil {
		return err
	}
	r.close()
	return nil
}

func (r *renderer) VisitTriples(e *TriplesBlock) error {
	for _, t := range e.Triples {
		r.printf("%s .", tripleText(t))
	}
	return nil
}

func (r *renderer) VisitGroup(e *GroupPattern) error { return r.block("", e) }

func (r *renderer) VisitSubSelect(e *SubSelect) error {
	r.open("")
	if err := r.query(e.Query); err != nil {
		return err
	}
	r.close()
	return nil
}

func (r *renderer) VisitUnion(e *UnionPattern) error {
	for i, br := range e.Branches {
		prefix := ""
		if i > 0 {
			prefix = "UNION "
		}
		if err := r.block(prefix, br); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) VisitOptional(e *OptionalPattern) error { return r.block("OPTIONAL ", e.Group) }

func (r *renderer) VisitMinus(e *MinusPattern) error { return r.block("MINUS ", e.Group) }

func (r *renderer) VisitGraph(e *GraphPattern) error {
	return r.block("GRAPH "+nodeText(e.Name)+" ", e.Group)
}

func (r *renderer) VisitService(e *ServicePattern) error {
	kw := "SERVICE "
	if e.Silent {
		kw += "SILENT "
	}
	return r.block(kw+nodeText(e.Name)+" ", e.Group)
}

func (r *renderer) VisitFilter(e *FilterPattern) error {
	text, err := r.expr(e.Expr)
	if err != nil {
		return err
	}
	r.printf("FILTER %s", text)
	return nil
}

func (r *renderer) VisitBind(e *BindPattern) error {
	text, err := r.expr(e.Expr)
	if err != nil {
		return err
	}
	r.printf("BIND(%s AS ?%s)", text, e.Var)
	return nil
}

func (r *renderer) VisitValues(e *ValuesPattern) error {
	text, err := r.expr(e.Data)
	if err != nil {
		return err
	}
	r.printf("%s", text)
	return nil
}

// expr joins tokens with single spaces. Language tags and datatype markers
// attach to the preceding literal.
func (r *renderer) expr(e Expression) (string, error) {
	var b strings.Builder
	attach := false
	for i, it := range e.Items {
		if it.Exists != nil {
			if i > 0 {
				b.WriteByte(' ')
			}
			if it.Exists.Not {
				b.WriteString("NOT ")
			}
			sub := newRenderer(r.indent)
			if err := sub.block("", it.Exists.Group); err != nil {
				return "", err
			}
			b.WriteString("EXISTS " + strings.TrimSpace(sub.b.String()))
			attach = false
			continue
		}
		tok := it.Tok
		glue := tok.kind == kLangTag || tok.kind == kDoubleCaret || attach
		if i > 0 && !glue {
			b.WriteByte(' ')
		}
		b.WriteString(tokenText(tok))
		attach = tok.kind == kDoubleCaret
	}
	return b.String(), nil
}

func tokenText(t token) string {
	if t.kind == kIRI {
		return sparql.IRI(strings.Trim(t.value, "<>")).String()
	}
	return t.value
}

func (r *renderer) query(q *Query) error {
	switch q.Form {
	case "CONSTRUCT":
		if q.ShortForm {
			r.open("CONSTRUCT WHERE ")
			for _, t := range q.Template {
				r.printf("%s .", tripleText(t))
			}
			r.close()
			break
		}
		r.open("CONSTRUCT ")
		for _, t := range q.Template {
			r.printf("%s .", tripleText(t))
		}
		r.close()
		if err := r.block("WHERE ", q.Where); err != nil {
			return err
		}
	default:
		head, err := r.expr(q.Head)
		if err != nil {
			return err
		}
		r.printf("%s", strings.TrimSpace(q.Form+" "+head))
		if q.Where != nil {
			if err := r.block("WHERE ", q.Where); err != nil {
				return err
			}
		}
	}
	if len(q.Tail.Items) > 0 {
		tail, err := r.expr(q.Tail)
		if err != nil {
			return err
		}
		r.printf("%s", tail)
	}
	return nil
}

func nodeText(n Node) string {
	switch n.Kind {
	case NodeIRI:
		return sparql.IRI(n.Value).String()
	case NodeVar:
		return "?" + n.Value
	case NodeBlank:
		return "_:" + n.Value
	case NodeAnon:
		if len(n.Props) == 0 {
			return "[]"
		}
		return "[ " + propertiesText(n.Props) + " ]"
	}
	return n.Value
}

func verbText(v Verb) string {
	switch {
	case v.Var != "":
		return "?" + v.Var
	case v.Path != "":
		return v.Path
	}
	return sparql.IRI(v.IRI).String()
}

func propertiesText(props []Property) string {
	parts := make([]string, len(props))
	for i, p := range props {
		objs := make([]string, len(p.Objects))
		for j, o := range p.Objects {
			objs[j] = nodeText(o)
		}
		parts[i] = verbText(p.Verb) + " " + strings.Join(objs, " , ")
	}
	return strings.Join(parts, " ; ")
}

func tripleText(t Triple) string {
	if len(t.Properties) == 0 {
		return nodeText(t.Subject)
	}
	return nodeText(t.Subject) + " " + propertiesText(t.Properties)
}

// TriplesText renders triples one per line.
func TriplesText(triples []Triple) string {
	r := newRenderer(0)
	for _, t := range triples {
		r.printf("%s .", tripleText(t))
	}
	return r.b.String()
}

// GroupBody renders the elements of a group without the enclosing braces.
func GroupBody(g *GroupPattern) (string, error) {
	r := newRenderer(0)
	if err := r.elements(g); err != nil {
		return "", err
	}
	return r.b.String(), nil
}

// String renders the query with absolute IRIs.
func (q *Query) String() string {
	r := newRenderer(0)
	if err := r.query(q); err != nil {
		return ""
	}
	return r.b.String()
}
