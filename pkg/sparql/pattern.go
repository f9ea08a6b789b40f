package sparql

import (
	"strconv"
	"strings"
)

type writer struct {
	b      strings.Builder
	indent int
	bol    bool
}

func (w *writer) write(s string) {
	if w.bol {
		w.b.WriteString(strings.Repeat("    ", w.indent))
		w.bol = false
	}
	w.b.WriteString(s)
}

func (w *writer) newline() {
	w.b.WriteByte('\n')
	w.bol = true
}

func (w *writer) line(s string) {
	w.write(s)
	w.newline()
}

func (w *writer) block(open string, body []Pattern, close string) {
	w.line(open)
	w.indent++
	renderPatterns(w, body)
	w.indent--
	w.write(close)
}

// Pattern is an element of a group graph pattern or of a quad template.
type Pattern interface {
	render(w *writer)
}

func renderPatterns(w *writer, ps []Pattern) {
	for _, p := range ps {
		if p == nil {
			continue
		}
		p.render(w)
		if !w.bol {
			w.newline()
		}
	}
}

// Render returns the text of the given patterns, one per line.
func Render(ps ...Pattern) string {
	w := &writer{bol: true}
	renderPatterns(w, ps)
	return w.b.String()
}

// Triple is a triple pattern (or a ground triple when all terms are constant).
type Triple struct {
	S Term
	P Term
	O Term
}

// T builds a triple.
func T(s, p, o Term) Triple { return Triple{S: s, P: p, O: o} }

func (t Triple) render(w *writer) {
	w.write(t.S.String() + " " + t.P.String() + " " + t.O.String() + " .")
}

// GraphPattern scopes its body to a named graph.
type GraphPattern struct {
	Name Term
	Body []Pattern
}

// Graph builds GRAPH name { body }.
func Graph(name Term, body ...Pattern) GraphPattern { return GraphPattern{Name: name, Body: body} }

func (g GraphPattern) render(w *writer) { w.block("GRAPH "+g.Name.String()+" {", g.Body, "}") }

// GroupPattern is a braced group.
type GroupPattern struct{ Body []Pattern }

// Group builds { body }.
func Group(body ...Pattern) GroupPattern { return GroupPattern{Body: body} }

func (g GroupPattern) render(w *writer) { w.block("{", g.Body, "}") }

// UnionPattern joins its branches with UNION.
type UnionPattern struct{ Branches []Pattern }

// Union builds { b1 } UNION { b2 } ...; group branches are not double-braced.
func Union(branches ...Pattern) UnionPattern { return UnionPattern{Branches: branches} }

func (u UnionPattern) render(w *writer) {
	for i, br := range u.Branches {
		if i > 0 {
			w.write(" UNION ")
		}
		if g, ok := br.(GroupPattern); ok {
			w.block("{", g.Body, "}")
		} else {
			w.block("{", []Pattern{br}, "}")
		}
	}
	if len(u.Branches) == 0 {
		w.write("{}")
	}
}

// SubSelectPattern is a nested SELECT. Only Vars are visible to the
// enclosing pattern.
type SubSelectPattern struct {
	Vars  []Var
	Where []Pattern
	Limit int
}

// SubSelect builds { SELECT vars WHERE { where } [LIMIT n] }.
func SubSelect(vars []Var, limit int, where ...Pattern) SubSelectPattern {
	return SubSelectPattern{Vars: vars, Where: where, Limit: limit}
}

func (s SubSelectPattern) render(w *writer) {
	names := make([]string, len(s.Vars))
	for i, v := range s.Vars {
		names[i] = v.String()
	}
	w.line("{")
	w.indent++
	w.block("SELECT "+strings.Join(names, " ")+" WHERE {", s.Where, "}")
	w.newline()
	if s.Limit > 0 {
		w.line("LIMIT " + strconv.Itoa(s.Limit))
	}
	w.indent--
	w.write("}")
}

// OptionalPattern is OPTIONAL { body }.
type OptionalPattern struct{ Body []Pattern }

// Optional builds OPTIONAL { body }.
func Optional(body ...Pattern) OptionalPattern { return OptionalPattern{Body: body} }

func (o OptionalPattern) render(w *writer) { w.block("OPTIONAL {", o.Body, "}") }

// MinusPattern is MINUS { body }.
type MinusPattern struct{ Body []Pattern }

// Minus builds MINUS { body }.
func Minus(body ...Pattern) MinusPattern { return MinusPattern{Body: body} }

func (m MinusPattern) render(w *writer) { w.block("MINUS {", m.Body, "}") }

// FilterPattern is FILTER(expr).
type FilterPattern struct{ Expr Expr }

// Filter builds FILTER(expr).
func Filter(e Expr) FilterPattern { return FilterPattern{Expr: e} }

func (f FilterPattern) render(w *writer) {
	w.write("FILTER(")
	f.Expr.renderExpr(w)
	w.write(")")
}

// BindPattern is BIND(expr AS ?var).
type BindPattern struct {
	Expr Expr
	Var  Var
}

// Bind builds BIND(expr AS ?v).
func Bind(e Expr, v Var) BindPattern { return BindPattern{Expr: e, Var: v} }

func (b BindPattern) render(w *writer) {
	w.write("BIND(")
	b.Expr.renderExpr(w)
	w.write(" AS " + b.Var.String() + ")")
}

// ValuesPattern is an inline data block. A nil term renders as UNDEF.
type ValuesPattern struct {
	Vars []Var
	Rows [][]Term
}

// Values builds VALUES ?v { t1 t2 ... }.
func Values(v Var, terms ...Term) ValuesPattern {
	rows := make([][]Term, len(terms))
	for i, t := range terms {
		rows[i] = []Term{t}
	}
	return ValuesPattern{Vars: []Var{v}, Rows: rows}
}

func (v ValuesPattern) render(w *writer) {
	cell := func(t Term) string {
		if t == nil {
			return "UNDEF"
		}
		return t.String()
	}
	if len(v.Vars) == 1 {
		vals := make([]string, 0, len(v.Rows))
		for _, r := range v.Rows {
			vals = append(vals, cell(r[0]))
		}
		w.write("VALUES " + v.Vars[0].String() + " { " + strings.Join(vals, " ") + " }")
		return
	}
	names := make([]string, len(v.Vars))
	for i, n := range v.Vars {
		names[i] = n.String()
	}
	w.line("VALUES (" + strings.Join(names, " ") + ") {")
	w.indent++
	for _, r := range v.Rows {
		cells := make([]string, len(r))
		for i, t := range r {
			cells[i] = cell(t)
		}
		w.line("(" + strings.Join(cells, " ") + ")")
	}
	w.indent--
	w.write("}")
}

// RawPattern is pattern text produced by the sandbox serializer. It is never built
// from unvalidated input.
type RawPattern string

func (r RawPattern) render(w *writer) {
	text := strings.TrimRight(string(r), "\n")
	if text == "" {
		return
	}
	for i, l := range strings.Split(text, "\n") {
		if i > 0 {
			w.newline()
		}
		w.write(l)
	}
}
