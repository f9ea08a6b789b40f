package sparql

import (
	"strings"
)

// Prefix is one PREFIX declaration.
type Prefix struct {
	Name string
	IRI  string
}

// Prologue is an ordered set of prefix declarations.
type Prologue []Prefix

// Lookup returns the IRI bound to name.
func (p Prologue) Lookup(name string) (string, bool) {
	for _, pre := range p {
		if pre.Name == name {
			return pre.IRI, true
		}
	}
	return "", false
}

// Map returns the declarations as a name -> IRI map.
func (p Prologue) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, pre := range p {
		m[pre.Name] = pre.IRI
	}
	return m
}

func (p Prologue) render(w *writer) {
	for _, pre := range p {
		w.line("PREFIX " + pre.Name + ": " + IRI(pre.IRI).String())
	}
	if len(p) > 0 {
		w.newline()
	}
}

// Operation is a single SPARQL update operation or query form.
type Operation interface {
	renderOp(w *writer)
}

// Text renders the prologue followed by every operation, separated by ';'.
func Text(prologue Prologue, ops ...Operation) string {
	w := &writer{bol: true}
	prologue.render(w)
	for i, op := range ops {
		if i > 0 {
			w.line(" ;")
		}
		op.renderOp(w)
	}
	if !w.bol {
		w.newline()
	}
	return w.b.String()
}

// Modify is DELETE { } INSERT { } WHERE { }. Empty sections are omitted; an
// empty WHERE renders as WHERE {}.
type Modify struct {
	Delete []Pattern
	Insert []Pattern
	Where  []Pattern
}

func (m Modify) renderOp(w *writer) {
	if len(m.Delete) > 0 {
		w.block("DELETE {", m.Delete, "}")
		w.newline()
	}
	if len(m.Insert) > 0 {
		w.block("INSERT {", m.Insert, "}")
		w.newline()
	}
	w.block("WHERE {", m.Where, "}")
}

// InsertData is INSERT DATA { ground quads }.
type InsertData struct{ Body []Pattern }

func (d InsertData) renderOp(w *writer) { w.block("INSERT DATA {", d.Body, "}") }

// DeleteData is DELETE DATA { ground quads }.
type DeleteData struct{ Body []Pattern }

func (d DeleteData) renderOp(w *writer) { w.block("DELETE DATA {", d.Body, "}") }

// Drop is DROP [SILENT] GRAPH g.
type Drop struct {
	Graph  Term
	Silent bool
}

func (d Drop) renderOp(w *writer) {
	if d.Silent {
		w.write("DROP SILENT GRAPH " + d.Graph.String())
		return
	}
	w.write("DROP GRAPH " + d.Graph.String())
}

// Copy is COPY [SILENT] GRAPH src TO GRAPH dst.
type Copy struct {
	From   Term
	To     Term
	Silent bool
}

func (c Copy) renderOp(w *writer) {
	kw := "COPY "
	if c.Silent {
		kw = "COPY SILENT "
	}
	w.write(kw + "GRAPH " + c.From.String() + " TO GRAPH " + c.To.String())
}

// Construct is CONSTRUCT { template } WHERE { where }.
type Construct struct {
	Template []Pattern
	Where    []Pattern
}

func (c Construct) renderOp(w *writer) {
	w.block("CONSTRUCT {", c.Template, "}")
	w.newline()
	w.block("WHERE {", c.Where, "}")
}

// Select is SELECT [DISTINCT] vars WHERE { where } [ORDER BY ...].
type Select struct {
	Distinct bool
	Vars     []Var
	Where    []Pattern
	OrderBy  []Var
}

func (s Select) renderOp(w *writer) {
	head := "SELECT "
	if s.Distinct {
		head += "DISTINCT "
	}
	if len(s.Vars) == 0 {
		head += "*"
	} else {
		names := make([]string, len(s.Vars))
		for i, v := range s.Vars {
			names[i] = v.String()
		}
		head += strings.Join(names, " ")
	}
	w.line(head)
	w.block("WHERE {", s.Where, "}")
	if len(s.OrderBy) > 0 {
		names := make([]string, len(s.OrderBy))
		for i, v := range s.OrderBy {
			names[i] = v.String()
		}
		w.newline()
		w.write("ORDER BY " + strings.Join(names, " "))
	}
}

// Ask is ASK { where }.
type Ask struct{ Where []Pattern }

func (a Ask) renderOp(w *writer) { w.block("ASK {", a.Where, "}") }
