package sandbox

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// ReservedVarPrefix marks variables the gateway uses in its own queries.
const ReservedVarPrefix = "__mms_"

type parser struct {
	toks     []token
	pos      int
	base     *url.URL
	prefixes map[string]string
}

func newParser(text string, policy Policy) (*parser, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	for _, t := range toks {
		if t.kind == kVar && strings.HasPrefix(t.value[1:], ReservedVarPrefix) {
			return nil, apperror.NewBadRequest(fmt.Sprintf("Variable %s uses the reserved prefix ?%s", t.value, ReservedVarPrefix))
		}
	}

	p := &parser{toks: toks, prefixes: map[string]string{}}
	for k, v := range policy.Prefixes {
		p.prefixes[k] = v
	}
	if policy.Base != "" {
		if p.base, err = url.Parse(policy.Base); err != nil {
			return nil, apperror.NewInternal("invalid base IRI", err)
		}
	}
	return p, nil
}

func (p *parser) peek() token { return p.peekAt(0) }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	t := p.peek()
	where := "end of input"
	if t.kind != kEOF {
		where = fmt.Sprintf("%q at line %d, column %d", t.value, t.line, t.col)
	}
	return syntaxError(fmt.Sprintf(format, args...) + " near " + where)
}

func (p *parser) expectPunct(v string) error {
	if !p.peek().punct(v) {
		return p.errorf("expected '%s'", v)
	}
	p.next()
	return nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.peek().keyword(kw) {
		return p.errorf("expected %s", kw)
	}
	p.next()
	return nil
}

// prologue consumes BASE and PREFIX declarations.
func (p *parser) prologue() error {
	for {
		switch t := p.peek(); {
		case t.keyword("BASE"):
			p.next()
			iriTok := p.next()
			if iriTok.kind != kIRI {
				return p.errorf("expected IRI after BASE")
			}
			resolved, err := p.resolve(strings.Trim(iriTok.value, "<>"))
			if err != nil {
				return err
			}
			if p.base, err = url.Parse(resolved); err != nil {
				return syntaxError("invalid BASE IRI")
			}
		case t.keyword("PREFIX"):
			p.next()
			name := p.next()
			if name.kind != kPName || !strings.HasSuffix(name.value, ":") {
				return p.errorf("expected prefix name")
			}
			iriTok := p.next()
			if iriTok.kind != kIRI {
				return p.errorf("expected IRI in PREFIX declaration")
			}
			resolved, err := p.resolve(strings.Trim(iriTok.value, "<>"))
			if err != nil {
				return err
			}
			p.prefixes[strings.TrimSuffix(name.value, ":")] = resolved
		default:
			return nil
		}
	}
}

func (p *parser) resolve(ref string) (string, error) {
	if p.base == nil {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", syntaxError("invalid IRI <" + ref + ">")
	}
	if u.IsAbs() {
		return ref, nil
	}
	return p.base.ResolveReference(u).String(), nil
}

// expand returns the absolute IRI of an IRIRef or PName token.
func (p *parser) expand(t token) (string, error) {
	switch t.kind {
	case kIRI:
		return p.resolve(strings.Trim(t.value, "<>"))
	case kPName:
		i := strings.Index(t.value, ":")
		prefix, local := t.value[:i], t.value[i+1:]
		ns, ok := p.prefixes[prefix]
		if !ok {
			return "", syntaxError(fmt.Sprintf("undeclared prefix '%s:'", prefix))
		}
		return ns + unescapeLocal(local), nil
	}
	return "", p.errorf("expected IRI")
}

func unescapeLocal(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// exprToken normalizes a token for re-serialization: prefixed names and
// relative IRIs become absolute IRIRefs.
func (p *parser) exprToken(t token) (token, error) {
	if t.kind == kIRI || t.kind == kPName {
		full, err := p.expand(t)
		if err != nil {
			return t, err
		}
		return token{kind: kIRI, value: "<" + full + ">", line: t.line, col: t.col}, nil
	}
	return t, nil
}

var otherUpdateForms = []string{"LOAD", "CLEAR", "DROP", "CREATE", "ADD", "MOVE", "COPY"}

// ParseUpdate parses an update request.
func ParseUpdate(text string, policy Policy) (*Update, error) {
	p, err := newParser(text, policy)
	if err != nil {
		return nil, err
	}

	u := &Update{}
	for {
		if err := p.prologue(); err != nil {
			return nil, err
		}
		if p.peek().kind == kEOF {
			break
		}
		op, err := p.operation()
		if err != nil {
			return nil, err
		}
		u.Operations = append(u.Operations, op)
		if op.Kind == OpOther {
			return u, nil
		}
		if !p.peek().punct(";") {
			break
		}
		p.next()
	}
	if p.peek().kind != kEOF {
		return nil, p.errorf("unexpected token")
	}
	if len(u.Operations) == 0 {
		return nil, syntaxError("empty update")
	}
	return u, nil
}

func (p *parser) operation() (Operation, error) {
	t := p.peek()
	for _, kw := range otherUpdateForms {
		if t.keyword(kw) {
			return Operation{Kind: OpOther, Keyword: strings.ToUpper(kw)}, nil
		}
	}

	switch {
	case t.keyword("WITH"):
		return Operation{}, apperror.ErrQuadsNotAllowed.WithMessage("WITH clauses are not allowed")

	case t.keyword("INSERT") && p.peekAt(1).keyword("DATA"):
		p.next()
		p.next()
		triples, err := p.template(false)
		return Operation{Kind: OpInsertData, Insert: triples}, err

	case t.keyword("DELETE") && p.peekAt(1).keyword("DATA"):
		p.next()
		p.next()
		triples, err := p.template(false)
		return Operation{Kind: OpDeleteData, Delete: triples}, err

	case t.keyword("DELETE") && p.peekAt(1).keyword("WHERE"):
		p.next()
		p.next()
		triples, err := p.template(true)
		return Operation{Kind: OpDeleteWhere, Delete: triples}, err

	case t.keyword("DELETE") || t.keyword("INSERT"):
		op := Operation{Kind: OpModify}
		if p.peek().keyword("DELETE") {
			p.next()
			del, err := p.template(true)
			if err != nil {
				return op, err
			}
			op.Delete = del
		}
		if p.peek().keyword("INSERT") {
			p.next()
			ins, err := p.template(true)
			if err != nil {
				return op, err
			}
			op.Insert = ins
		}
		if p.peek().keyword("USING") {
			return op, apperror.ErrQuadsNotAllowed.WithMessage("USING clauses are not allowed")
		}
		if err := p.expectKeyword("WHERE"); err != nil {
			return op, err
		}
		where, err := p.groupGraphPattern()
		op.Where = where
		return op, err
	}
	return Operation{}, p.errorf("expected update operation")
}

// template parses { triples } where GRAPH blocks are rejected. Variables are
// only accepted when vars is set.
func (p *parser) template(vars bool) ([]Triple, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var out []Triple
	for {
		t := p.peek()
		switch {
		case t.punct("}"):
			p.next()
			return out, nil
		case t.punct("."):
			p.next()
			continue
		case t.keyword("GRAPH"):
			return nil, apperror.ErrQuadsNotAllowed.WithMessage("GRAPH blocks are not allowed")
		case t.kind == kEOF:
			return nil, p.errorf("unterminated template")
		}
		triple, err := p.triplesSameSubject(false)
		if err != nil {
			return nil, err
		}
		if !vars && containsVar(triple) {
			return nil, syntaxError("variables are not allowed in DATA blocks")
		}
		out = append(out, triple)
		if !p.peek().punct(".") && !p.peek().punct("}") {
			return nil, p.errorf("expected '.' or '}'")
		}
	}
}

func containsVar(t Triple) bool {
	var node func(n Node) bool
	props := func(ps []Property) bool {
		for _, pr := range ps {
			if pr.Verb.Var != "" {
				return true
			}
			for _, o := range pr.Objects {
				if node(o) {
					return true
				}
			}
		}
		return false
	}
	node = func(n Node) bool {
		return n.Kind == NodeVar || props(n.Props)
	}
	return node(t.Subject) || props(t.Properties)
}

func (p *parser) triplesSameSubject(paths bool) (Triple, error) {
	subj, err := p.node(paths)
	if err != nil {
		return Triple{}, err
	}
	tr := Triple{Subject: subj}
	if subj.Kind == NodeAnon && len(subj.Props) > 0 && !p.startsVerb() {
		return tr, nil
	}
	tr.Properties, err = p.propertyList(paths)
	if err != nil {
		return Triple{}, err
	}
	if len(tr.Properties) == 0 {
		return Triple{}, p.errorf("expected predicate")
	}
	return tr, nil
}

func (p *parser) startsVerb() bool {
	t := p.peek()
	switch t.kind {
	case kIRI, kPName, kVar:
		return true
	case kIdent:
		return t.value == "a"
	case kOp:
		return t.value == "^" || t.value == "!"
	case kPunct:
		return t.value == "("
	}
	return false
}

func (p *parser) propertyList(paths bool) ([]Property, error) {
	var out []Property
	for p.startsVerb() {
		verb, err := p.verb(paths)
		if err != nil {
			return nil, err
		}
		objs, err := p.objectList(paths)
		if err != nil {
			return nil, err
		}
		out = append(out, Property{Verb: verb, Objects: objs})
		if !p.peek().punct(";") {
			break
		}
		for p.peek().punct(";") {
			p.next()
		}
	}
	return out, nil
}

func (p *parser) objectList(paths bool) ([]Node, error) {
	var out []Node
	for {
		n, err := p.node(paths)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		if !p.peek().punct(",") {
			return out, nil
		}
		p.next()
	}
}

func (p *parser) verb(paths bool) (Verb, error) {
	t := p.peek()
	if t.kind == kVar {
		p.next()
		return Verb{Var: t.value[1:]}, nil
	}
	if t.kind == kIdent && t.value == "a" && !paths {
		p.next()
		return Verb{IRI: vocab.RDFType}, nil
	}
	if !paths {
		iri, err := p.expand(p.next())
		return Verb{IRI: iri}, err
	}

	start := p.pos
	text, err := p.pathAlternative()
	if err != nil {
		return Verb{}, err
	}
	if p.pos == start+1 {
		switch first := p.toks[start]; {
		case first.kind == kIdent && first.value == "a":
			return Verb{IRI: vocab.RDFType}, nil
		case first.kind == kIRI || first.kind == kPName:
			iri, err := p.expand(first)
			return Verb{IRI: iri}, err
		}
	}
	return Verb{Path: text}, nil
}

func (p *parser) pathAlternative() (string, error) {
	var parts []string
	for {
		s, err := p.pathSequence()
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
		if !p.peek().is(kOp, "|") {
			return strings.Join(parts, "|"), nil
		}
		p.next()
	}
}

func (p *parser) pathSequence() (string, error) {
	var parts []string
	for {
		s, err := p.pathElt()
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
		if !p.peek().is(kOp, "/") {
			return strings.Join(parts, "/"), nil
		}
		p.next()
	}
}

func (p *parser) pathElt() (string, error) {
	prefix := ""
	if p.peek().is(kOp, "^") {
		p.next()
		prefix = "^"
	}
	prim, err := p.pathPrimary()
	if err != nil {
		return "", err
	}
	if t := p.peek(); t.kind == kOp && (t.value == "*" || t.value == "+" || t.value == "?") {
		p.next()
		prim += t.value
	}
	return prefix + prim, nil
}

func (p *parser) pathPrimary() (string, error) {
	t := p.peek()
	switch {
	case t.kind == kIdent && t.value == "a":
		p.next()
		return "<" + vocab.RDFType + ">", nil
	case t.kind == kIRI || t.kind == kPName:
		p.next()
		iri, err := p.expand(t)
		return "<" + iri + ">", err
	case t.is(kOp, "!"):
		p.next()
		if !p.peek().punct("(") {
			one, err := p.pathOneInSet()
			return "!" + one, err
		}
		p.next()
		var parts []string
		for !p.peek().punct(")") {
			one, err := p.pathOneInSet()
			if err != nil {
				return "", err
			}
			parts = append(parts, one)
			if p.peek().is(kOp, "|") {
				p.next()
			}
		}
		p.next()
		return "!(" + strings.Join(parts, "|") + ")", nil
	case t.punct("("):
		p.next()
		inner, err := p.pathAlternative()
		if err != nil {
			return "", err
		}
		if err := p.expectPunct(")"); err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	}
	return "", p.errorf("expected property path")
}

func (p *parser) pathOneInSet() (string, error) {
	prefix := ""
	if p.peek().is(kOp, "^") {
		p.next()
		prefix = "^"
	}
	t := p.next()
	if t.kind == kIdent && t.value == "a" {
		return prefix + "<" + vocab.RDFType + ">", nil
	}
	iri, err := p.expand(t)
	return prefix + "<" + iri + ">", err
}

func (p *parser) node(paths bool) (Node, error) {
	t := p.peek()
	switch t.kind {
	case kIRI, kPName:
		p.next()
		iri, err := p.expand(t)
		return Node{Kind: NodeIRI, Value: iri}, err
	case kVar:
		p.next()
		return Node{Kind: NodeVar, Value: t.value[1:]}, nil
	case kBlank:
		p.next()
		return Node{Kind: NodeBlank, Value: strings.TrimPrefix(t.value, "_:")}, nil
	case kString:
		p.next()
		text := t.value
		switch n := p.peek(); n.kind {
		case kLangTag:
			p.next()
			text += n.value
		case kDoubleCaret:
			p.next()
			iri, err := p.expand(p.next())
			if err != nil {
				return Node{}, err
			}
			text += "^^<" + iri + ">"
		}
		return Node{Kind: NodeLiteral, Value: text}, nil
	case kNumber:
		p.next()
		return Node{Kind: NodeLiteral, Value: t.value}, nil
	case kIdent:
		if t.value == "true" || t.value == "false" {
			p.next()
			return Node{Kind: NodeLiteral, Value: t.value}, nil
		}
	case kPunct:
		switch t.value {
		case "[":
			p.next()
			props, err := p.propertyList(paths)
			if err != nil {
				return Node{}, err
			}
			if err := p.expectPunct("]"); err != nil {
				return Node{}, err
			}
			return Node{Kind: NodeAnon, Props: props}, nil
		case "(":
			return Node{}, apperror.NewBadRequest("RDF collections are not supported")
		}
	}
	return Node{}, p.errorf("expected term")
}

func (p *parser) groupGraphPattern() (*GroupPattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	g := &GroupPattern{}

	if p.peek().keyword("SELECT") {
		q, err := p.selectQuery(true)
		if err != nil {
			return nil, err
		}
		g.Elements = append(g.Elements, &SubSelect{Query: q})
		return g, p.expectPunct("}")
	}

	for {
		t := p.peek()
		switch {
		case t.punct("}"):
			p.next()
			return g, nil
		case t.kind == kEOF:
			return nil, p.errorf("unterminated group")
		case t.punct("."):
			p.next()
		case t.punct("{"):
			first, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			if !p.peek().keyword("UNION") {
				g.Elements = append(g.Elements, first)
				continue
			}
			u := &UnionPattern{Branches: []*GroupPattern{first}}
			for p.peek().keyword("UNION") {
				p.next()
				br, err := p.groupGraphPattern()
				if err != nil {
					return nil, err
				}
				u.Branches = append(u.Branches, br)
			}
			g.Elements = append(g.Elements, u)
		case t.keyword("OPTIONAL"):
			p.next()
			inner, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &OptionalPattern{Group: inner})
		case t.keyword("MINUS"):
			p.next()
			inner, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &MinusPattern{Group: inner})
		case t.keyword("GRAPH"):
			p.next()
			name, err := p.node(false)
			if err != nil {
				return nil, err
			}
			inner, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &GraphPattern{Name: name, Group: inner})
		case t.keyword("SERVICE"):
			p.next()
			svc := &ServicePattern{}
			if p.peek().keyword("SILENT") {
				p.next()
				svc.Silent = true
			}
			name, err := p.node(false)
			if err != nil {
				return nil, err
			}
			svc.Name = name
			if svc.Group, err = p.groupGraphPattern(); err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, svc)
		case t.keyword("FILTER"):
			p.next()
			expr, err := p.constraint()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &FilterPattern{Expr: expr})
		case t.keyword("BIND"):
			p.next()
			b, err := p.bind()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, b)
		case t.keyword("VALUES"):
			data, err := p.values()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &ValuesPattern{Data: data})
		default:
			tr, err := p.triplesSameSubject(true)
			if err != nil {
				return nil, err
			}
			if n := len(g.Elements); n > 0 {
				if block, ok := g.Elements[n-1].(*TriplesBlock); ok {
					block.Triples = append(block.Triples, tr)
					continue
				}
			}
			g.Elements = append(g.Elements, &TriplesBlock{Triples: []Triple{tr}})
		}
	}
}

// existsAhead reports whether the next tokens start [NOT] EXISTS {.
func (p *parser) existsAhead() bool {
	if p.peek().keyword("EXISTS") {
		return p.peekAt(1).punct("{")
	}
	return p.peek().keyword("NOT") && p.peekAt(1).keyword("EXISTS") && p.peekAt(2).punct("{")
}

func (p *parser) exists() (ExprItem, error) {
	ex := &ExistsExpr{}
	if p.peek().keyword("NOT") {
		p.next()
		ex.Not = true
	}
	p.next()
	g, err := p.groupGraphPattern()
	if err != nil {
		return ExprItem{}, err
	}
	ex.Group = g
	return ExprItem{Exists: ex}, nil
}

// exprUntil collects expression items until stop matches at paren depth 0.
func (p *parser) exprUntil(stop func(t token) bool) (Expression, error) {
	var e Expression
	depth := 0
	for {
		t := p.peek()
		if depth == 0 && stop(t) {
			return e, nil
		}
		switch {
		case t.kind == kEOF:
			return e, p.errorf("unexpected end of expression")
		case t.punct("{") || t.punct("}"):
			return e, p.errorf("unexpected brace in expression")
		case p.existsAhead():
			item, err := p.exists()
			if err != nil {
				return e, err
			}
			e.Items = append(e.Items, item)
			continue
		case t.punct("("):
			depth++
		case t.punct(")"):
			if depth == 0 {
				return e, p.errorf("unbalanced ')'")
			}
			depth--
		}
		p.next()
		tok, err := p.exprToken(t)
		if err != nil {
			return e, err
		}
		e.Items = append(e.Items, ExprItem{Tok: tok})
	}
}

// bracketed parses a balanced ( ... ) including the parentheses.
func (p *parser) bracketed() (Expression, error) {
	if !p.peek().punct("(") {
		return Expression{}, p.errorf("expected '('")
	}
	open := p.next()
	inner, err := p.exprUntil(func(t token) bool { return t.punct(")") })
	if err != nil {
		return inner, err
	}
	closeTok := p.next()
	e := Expression{Items: []ExprItem{{Tok: open}}}
	e.Items = append(e.Items, inner.Items...)
	e.Items = append(e.Items, ExprItem{Tok: closeTok})
	return e, nil
}

func (p *parser) constraint() (Expression, error) {
	t := p.peek()
	switch {
	case t.punct("("):
		return p.bracketed()
	case p.existsAhead():
		item, err := p.exists()
		return Expression{Items: []ExprItem{item}}, err
	case t.kind == kIdent || t.kind == kIRI || t.kind == kPName:
		p.next()
		name, err := p.exprToken(t)
		if err != nil {
			return Expression{}, err
		}
		args, err := p.bracketed()
		if err != nil {
			return Expression{}, err
		}
		return Expression{Items: append([]ExprItem{{Tok: name}}, args.Items...)}, nil
	}
	return Expression{}, p.errorf("expected constraint")
}

func (p *parser) bind() (*BindPattern, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	expr, err := p.exprUntil(func(t token) bool { return t.keyword("AS") })
	if err != nil {
		return nil, err
	}
	p.next()
	v := p.next()
	if v.kind != kVar {
		return nil, p.errorf("expected variable after AS")
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &BindPattern{Expr: expr, Var: v.value[1:]}, nil
}

// values reads an inline data block. The header is a variable or a
// parenthesized variable list; the rows hold data terms only.
func (p *parser) values() (Expression, error) {
	var e Expression
	push := func(t token) error {
		tok, err := p.exprToken(t)
		if err != nil {
			return err
		}
		e.Items = append(e.Items, ExprItem{Tok: tok})
		return nil
	}
	if err := push(p.next()); err != nil {
		return e, err
	}

	switch t := p.next(); {
	case t.kind == kVar:
		if err := push(t); err != nil {
			return e, err
		}
	case t.punct("("):
		if err := push(t); err != nil {
			return e, err
		}
		for !p.peek().punct(")") {
			v := p.next()
			if v.kind != kVar {
				return e, p.errorf("VALUES expects a list of variables")
			}
			if err := push(v); err != nil {
				return e, err
			}
		}
		if err := push(p.next()); err != nil {
			return e, err
		}
	default:
		return e, p.errorf("VALUES expects a variable or a list of variables")
	}

	if !p.peek().punct("{") {
		return e, p.errorf("VALUES expects a data block")
	}
	if err := push(p.next()); err != nil {
		return e, err
	}
	for {
		t := p.next()
		if !valuesData(t) {
			return e, p.errorf("malformed VALUES block")
		}
		if err := push(t); err != nil {
			return e, err
		}
		if t.punct("}") {
			return e, nil
		}
	}
}

func valuesData(t token) bool {
	switch t.kind {
	case kIRI, kPName, kString, kLangTag, kNumber, kDoubleCaret:
		return true
	case kPunct:
		return t.punct("(") || t.punct(")") || t.punct("}")
	case kIdent:
		return t.keyword("UNDEF") || t.keyword("true") || t.keyword("false")
	}
	return false
}

func isQueryBoundary(t token) bool {
	if t.kind == kEOF || t.punct("{") {
		return true
	}
	for _, kw := range []string{"WHERE", "FROM", "ORDER", "LIMIT", "OFFSET", "GROUP", "HAVING", "VALUES"} {
		if t.keyword(kw) {
			return true
		}
	}
	return false
}

func (p *parser) datasetClauses() error {
	if p.peek().keyword("FROM") {
		return apperror.ErrQuadsNotAllowed.WithMessage("FROM clauses are not allowed")
	}
	return nil
}

func (p *parser) selectQuery(nested bool) (*Query, error) {
	p.next()
	q := &Query{Form: "SELECT"}
	head, err := p.exprUntil(isQueryBoundary)
	if err != nil {
		return nil, err
	}
	q.Head = head
	if err := p.datasetClauses(); err != nil {
		return nil, err
	}
	if p.peek().keyword("WHERE") {
		p.next()
	}
	if q.Where, err = p.groupGraphPattern(); err != nil {
		return nil, err
	}
	q.Tail, err = p.tail(nested)
	return q, err
}

// tail collects solution modifiers and a trailing VALUES clause. A nested
// query ends at the closing brace of its group.
func (p *parser) tail(nested bool) (Expression, error) {
	var e Expression
	braces := 0
	for {
		t := p.peek()
		switch {
		case t.kind == kEOF:
			if nested || braces > 0 {
				return e, p.errorf("unexpected end of query")
			}
			return e, nil
		case t.punct("}") && braces == 0:
			if !nested {
				return e, p.errorf("unexpected '}'")
			}
			return e, nil
		case p.existsAhead():
			item, err := p.exists()
			if err != nil {
				return e, err
			}
			e.Items = append(e.Items, item)
			continue
		case t.keyword("VALUES") && braces == 0:
			data, err := p.values()
			if err != nil {
				return e, err
			}
			e.Items = append(e.Items, data.Items...)
			continue
		case t.punct("{"):
			braces++
		case t.punct("}"):
			braces--
		}
		p.next()
		tok, err := p.exprToken(t)
		if err != nil {
			return e, err
		}
		e.Items = append(e.Items, ExprItem{Tok: tok})
	}
}

// ParseQuery parses a SELECT, ASK, CONSTRUCT or DESCRIBE query.
func ParseQuery(text string, policy Policy) (*Query, error) {
	p, err := newParser(text, policy)
	if err != nil {
		return nil, err
	}
	if err := p.prologue(); err != nil {
		return nil, err
	}

	var q *Query
	switch t := p.peek(); {
	case t.keyword("SELECT"):
		q, err = p.selectQuery(false)

	case t.keyword("ASK"):
		p.next()
		q = &Query{Form: "ASK"}
		if err = p.datasetClauses(); err == nil {
			if p.peek().keyword("WHERE") {
				p.next()
			}
			if q.Where, err = p.groupGraphPattern(); err == nil {
				q.Tail, err = p.tail(false)
			}
		}

	case t.keyword("CONSTRUCT"):
		p.next()
		q = &Query{Form: "CONSTRUCT"}
		if p.peek().punct("{") {
			if q.Template, err = p.template(true); err != nil {
				return nil, err
			}
			if err = p.datasetClauses(); err != nil {
				return nil, err
			}
			if p.peek().keyword("WHERE") {
				p.next()
			}
			q.Where, err = p.groupGraphPattern()
		} else {
			if err = p.datasetClauses(); err != nil {
				return nil, err
			}
			if err = p.expectKeyword("WHERE"); err != nil {
				return nil, err
			}
			q.ShortForm = true
			if q.Template, err = p.template(true); err != nil {
				return nil, err
			}
			q.Where = &GroupPattern{Elements: []Element{&TriplesBlock{Triples: q.Template}}}
		}
		if err == nil {
			q.Tail, err = p.tail(false)
		}

	case t.keyword("DESCRIBE"):
		p.next()
		q = &Query{Form: "DESCRIBE"}
		if q.Head, err = p.exprUntil(isQueryBoundary); err != nil {
			return nil, err
		}
		if err = p.datasetClauses(); err != nil {
			return nil, err
		}
		if p.peek().keyword("WHERE") {
			p.next()
		}
		if p.peek().punct("{") {
			if q.Where, err = p.groupGraphPattern(); err != nil {
				return nil, err
			}
		}
		q.Tail, err = p.tail(false)

	default:
		if t.keyword("INSERT") || t.keyword("DELETE") || t.keyword("WITH") {
			return nil, apperror.ErrUpdateOperationNotAllowed.WithMessage("Update operations are not allowed in a query")
		}
		return nil, p.errorf("expected SELECT, ASK, CONSTRUCT or DESCRIBE")
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}
