package sandbox

// NodeKind classifies a term in a triple.
type NodeKind int

const (
	NodeIRI NodeKind = iota
	NodeVar
	NodeLiteral
	NodeBlank
	// NodeAnon is a blank node property list: [ p o ; ... ].
	NodeAnon
)

// Node is a subject or object. Value holds the expanded IRI, the variable name
// without '?', the literal's source text or the blank node label.
type Node struct {
	Kind  NodeKind
	Value string
	Props []Property
}

// Verb is a predicate. Exactly one of IRI, Var and Path is set; Path holds the
// rendered text of a property path.
type Verb struct {
	IRI  string
	Var  string
	Path string
}

// Property is one verb with its object list.
type Property struct {
	Verb    Verb
	Objects []Node
}

// Triple is a subject with its property list.
type Triple struct {
	Subject    Node
	Properties []Property
}

// Element is one variant of a group graph pattern. Every variant dispatches to
// its own Visitor method, so adding a variant without teaching every visitor
// about it does not compile.
type Element interface {
	Accept(v Visitor) error
}

// Visitor has one method per Element variant.
type Visitor interface {
	VisitTriples(e *TriplesBlock) error
	VisitGroup(e *GroupPattern) error
	VisitSubSelect(e *SubSelect) error
	VisitUnion(e *UnionPattern) error
	VisitOptional(e *OptionalPattern) error
	VisitMinus(e *MinusPattern) error
	VisitGraph(e *GraphPattern) error
	VisitService(e *ServicePattern) error
	VisitFilter(e *FilterPattern) error
	VisitBind(e *BindPattern) error
	VisitValues(e *ValuesPattern) error
}

// TriplesBlock is a run of triple patterns.
type TriplesBlock struct{ Triples []Triple }

// GroupPattern is { elements }.
type GroupPattern struct{ Elements []Element }

// SubSelect is a nested SELECT query.
type SubSelect struct{ Query *Query }

// UnionPattern is { a } UNION { b } ...
type UnionPattern struct{ Branches []*GroupPattern }

// OptionalPattern is OPTIONAL { }.
type OptionalPattern struct{ Group *GroupPattern }

// MinusPattern is MINUS { }.
type MinusPattern struct{ Group *GroupPattern }

// GraphPattern is GRAPH name { }.
type GraphPattern struct {
	Name  Node
	Group *GroupPattern
}

// ServicePattern is SERVICE [SILENT] name { }.
type ServicePattern struct {
	Silent bool
	Name   Node
	Group  *GroupPattern
}

// FilterPattern is FILTER constraint.
type FilterPattern struct{ Expr Expression }

// BindPattern is BIND(expr AS ?var).
type BindPattern struct {
	Expr Expression
	Var  string
}

// ValuesPattern is an inline data block, kept as tokens.
type ValuesPattern struct{ Data Expression }

func (e *TriplesBlock) Accept(v Visitor) error    { return v.VisitTriples(e) }
func (e *GroupPattern) Accept(v Visitor) error    { return v.VisitGroup(e) }
func (e *SubSelect) Accept(v Visitor) error       { return v.VisitSubSelect(e) }
func (e *UnionPattern) Accept(v Visitor) error    { return v.VisitUnion(e) }
func (e *OptionalPattern) Accept(v Visitor) error { return v.VisitOptional(e) }
func (e *MinusPattern) Accept(v Visitor) error    { return v.VisitMinus(e) }
func (e *GraphPattern) Accept(v Visitor) error    { return v.VisitGraph(e) }
func (e *ServicePattern) Accept(v Visitor) error  { return v.VisitService(e) }
func (e *FilterPattern) Accept(v Visitor) error   { return v.VisitFilter(e) }
func (e *BindPattern) Accept(v Visitor) error     { return v.VisitBind(e) }
func (e *ValuesPattern) Accept(v Visitor) error   { return v.VisitValues(e) }

// Expression is a flat token sequence with nested EXISTS groups pulled out.
type Expression struct{ Items []ExprItem }

// ExprItem is either a token or an EXISTS / NOT EXISTS group.
type ExprItem struct {
	Tok    token
	Exists *ExistsExpr
}

// ExistsExpr is [NOT] EXISTS { }.
type ExistsExpr struct {
	Not   bool
	Group *GroupPattern
}

// OpKind is the form of one update operation.
type OpKind int

const (
	OpInsertData OpKind = iota
	OpDeleteData
	OpDeleteWhere
	OpModify
	// OpOther is any other update form (LOAD, CLEAR, DROP, ...).
	OpOther
)

func (k OpKind) String() string {
	switch k {
	case OpInsertData:
		return "INSERT DATA"
	case OpDeleteData:
		return "DELETE DATA"
	case OpDeleteWhere:
		return "DELETE WHERE"
	case OpModify:
		return "DELETE/INSERT"
	}
	return "other"
}

// Operation is one update operation.
type Operation struct {
	Kind    OpKind
	Keyword string
	Delete  []Triple
	Insert  []Triple
	Where   *GroupPattern
}

// Update is a parsed update request.
type Update struct{ Operations []Operation }

// Query is a parsed query. Head and Tail keep the projection and the solution
// modifiers as expressions so EXISTS groups inside them are still walked.
type Query struct {
	Form     string
	Head     Expression
	Template []Triple
	// ShortForm marks CONSTRUCT WHERE { template }.
	ShortForm bool
	Where     *GroupPattern
	Tail      Expression
}
