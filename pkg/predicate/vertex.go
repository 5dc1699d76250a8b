package predicate

import (
	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/expr"
	"github.com/orneryd/nornicrt/pkg/value"
)

// VertexRow is one vertex candidate and the context row it extends.
type VertexRow struct {
	Label value.Label
	VID   value.VID
	Row   int
}

// Vertex is a vertex filter. The zero value accepts everything.
type Vertex struct {
	kind  Kind
	label value.Label
	vid   value.VID
	e     expr.VertexExpr
}

// AlwaysTrueVertex accepts every vertex.
func AlwaysTrueVertex() Vertex { return Vertex{kind: AlwaysTrue} }

// ExactMatchVertex accepts only (label, vid). A matching id under another
// label is rejected.
func ExactMatchVertex(label value.Label, vid value.VID) Vertex {
	return Vertex{kind: ExactMatch, label: label, vid: vid}
}

// VertexExpression wraps a VertexVar expression.
func VertexExpression(e *expr.Expr) (Vertex, error) {
	if err := checkVarType(e, expr.VertexVar); err != nil {
		return Vertex{}, err
	}
	view, err := e.AsVertex()
	if err != nil {
		return Vertex{}, err
	}
	return Vertex{kind: Expression, e: view}, nil
}

// Kind returns the variant.
func (p Vertex) Kind() Kind { return p.kind }

// Expr returns the wrapped expression, nil unless Kind is Expression.
func (p Vertex) Expr() *expr.Expr {
	if p.kind != Expression {
		return nil
	}
	return p.e.Expr()
}

func (p Vertex) String() string {
	switch p.kind {
	case ExactMatch:
		return "exact-match(" + value.VertexValue(value.Vertex{Label: p.label, ID: p.vid}).String() + ")"
	case Expression:
		return "expression(" + p.e.String() + ")"
	}
	return p.kind.String()
}

// Test reports whether (label, vid) at context row idx passes. Expression
// predicates check the row; see expr.Expr.EvalVertex.
func (p Vertex) Test(label value.Label, vid value.VID, idx int, a *arena.Arena) (bool, error) {
	switch p.kind {
	case AlwaysTrue:
		return true, nil
	case ExactMatch:
		return label == p.label && vid == p.vid, nil
	}
	v, err := p.e.Eval(label, vid, idx, a)
	return truth(p.e.Expr(), v, err)
}

// TestUnchecked is Test without the row check.
func (p Vertex) TestUnchecked(label value.Label, vid value.VID, idx int, a *arena.Arena) (bool, error) {
	switch p.kind {
	case AlwaysTrue:
		return true, nil
	case ExactMatch:
		return label == p.label && vid == p.vid, nil
	}
	v, err := p.e.EvalUnchecked(label, vid, idx, a)
	return truth(p.e.Expr(), v, err)
}

// FilterRows appends to out the indexes of the rows that pass and returns
// it. The first error stops the batch; out is then nil.
func (p Vertex) FilterRows(rows []VertexRow, a *arena.Arena, out []int) ([]int, error) {
	switch p.kind {
	case AlwaysTrue:
		for i := range rows {
			out = append(out, i)
		}
		return out, nil
	case ExactMatch:
		for i, r := range rows {
			if r.Label == p.label && r.VID == p.vid {
				out = append(out, i)
			}
		}
		return out, nil
	}
	e := p.e.Expr()
	if err := checkRows(e, func(i int) int { return rows[i].Row }, len(rows)); err != nil {
		return nil, err
	}
	for i, r := range rows {
		v, err := e.EvalVertexUnchecked(r.Label, r.VID, r.Row, a)
		ok, err := truth(e, v, err)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}
