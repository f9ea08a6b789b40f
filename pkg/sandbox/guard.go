package sandbox

import (
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
)

// guard rejects any element that could reach outside the default graph. It
// walks every nested group, including EXISTS expressions and sub-selects.
type guard struct{}

func (g guard) group(p *GroupPattern) error {
	if p == nil {
		return nil
	}
	for _, el := range p.Elements {
		if err := el.Accept(g); err != nil {
			return err
		}
	}
	return nil
}

func (g guard) expr(e Expression) error {
	for _, it := range e.Items {
		if it.Exists != nil {
			if err := g.group(it.Exists.Group); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g guard) query(q *Query) error {
	if err := g.expr(q.Head); err != nil {
		return err
	}
	if err := g.group(q.Where); err != nil {
		return err
	}
	return g.expr(q.Tail)
}

func (g guard) VisitTriples(*TriplesBlock) error       { return nil }
func (g guard) VisitGroup(e *GroupPattern) error       { return g.group(e) }
func (g guard) VisitSubSelect(e *SubSelect) error      { return g.query(e.Query) }
func (g guard) VisitOptional(e *OptionalPattern) error { return g.group(e.Group) }
func (g guard) VisitMinus(e *MinusPattern) error       { return g.group(e.Group) }
func (g guard) VisitFilter(e *FilterPattern) error     { return g.expr(e.Expr) }
func (g guard) VisitBind(e *BindPattern) error         { return g.expr(e.Expr) }
func (g guard) VisitValues(*ValuesPattern) error       { return nil }

func (g guard) VisitUnion(e *UnionPattern) error {
	for _, br := range e.Branches {
		if err := g.group(br); err != nil {
			return err
		}
	}
	return nil
}

func (g guard) VisitGraph(e *GraphPattern) error {
	return apperror.ErrQuadsNotAllowed.WithMessagef("GRAPH %s is not allowed", nodeText(e.Name))
}

func (g guard) VisitService(e *ServicePattern) error {
	return apperror.ErrServiceNotAllowed.WithMessagef("SERVICE %s is not allowed", nodeText(e.Name))
}
