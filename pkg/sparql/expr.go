package sparql

// Expr is a filter or bind expression.
type Expr interface {
	renderExpr(w *writer)
}

type existsExpr struct {
	not  bool
	body []Pattern
}

func (e existsExpr) renderExpr(w *writer) {
	kw := "EXISTS {"
	if e.not {
		kw = "NOT EXISTS {"
	}
	w.block(kw, e.body, "}")
}

// Exists builds EXISTS { body }.
func Exists(body ...Pattern) Expr { return existsExpr{body: body} }

// NotExists builds NOT EXISTS { body }.
func NotExists(body ...Pattern) Expr { return existsExpr{not: true, body: body} }

type inExpr struct {
	left  Expr
	not   bool
	items []Term
}

func (e inExpr) renderExpr(w *writer) {
	e.left.renderExpr(w)
	if e.not {
		w.write(" NOT IN (")
	} else {
		w.write(" IN (")
	}
	for i, t := range e.items {
		if i > 0 {
			w.write(", ")
		}
		w.write(t.String())
	}
	w.write(")")
}

// In builds left IN (items...).
func In(left Expr, items ...Term) Expr { return inExpr{left: left, items: items} }

// NotIn builds left NOT IN (items...).
func NotIn(left Expr, items ...Term) Expr { return inExpr{left: left, not: true, items: items} }

type callExpr struct {
	name string
	args []Expr
}

func (c callExpr) renderExpr(w *writer) {
	w.write(c.name + "(")
	for i, a := range c.args {
		if i > 0 {
			w.write(", ")
		}
		a.renderExpr(w)
	}
	w.write(")")
}

// Now is the now() builtin.
func Now() Expr { return callExpr{name: "now"} }

// Bound is the BOUND(?v) builtin.
func Bound(v Var) Expr { return callExpr{name: "BOUND", args: []Expr{v}} }

// Str is the STR(e) builtin.
func Str(e Expr) Expr { return callExpr{name: "STR", args: []Expr{e}} }

type binaryExpr struct {
	op   string
	l, r Expr
}

func (b binaryExpr) renderExpr(w *writer) {
	w.write("(")
	b.l.renderExpr(w)
	w.write(" " + b.op + " ")
	b.r.renderExpr(w)
	w.write(")")
}

// Equals builds (l = r).
func Equals(l, r Expr) Expr { return binaryExpr{op: "=", l: l, r: r} }

// NotEquals builds (l != r).
func NotEquals(l, r Expr) Expr { return binaryExpr{op: "!=", l: l, r: r} }

// And builds (l && r).
func And(l, r Expr) Expr { return binaryExpr{op: "&&", l: l, r: r} }

type notExpr struct{ e Expr }

func (n notExpr) renderExpr(w *writer) {
	w.write("!(")
	n.e.renderExpr(w)
	w.write(")")
}

// Not builds !(e).
func Not(e Expr) Expr { return notExpr{e: e} }
