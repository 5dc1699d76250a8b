package predicate

import (
	"strconv"
	"strings"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/expr"
	"github.com/orneryd/nornicrt/pkg/value"
)

// Direction is the way a traversal walked an edge to reach its candidate.
type Direction uint8

const (
	// Out walks from Src to Dst.
	Out Direction = iota
	// In walks from Dst back to Src.
	In
	// Both walks the edge either way.
	Both
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	case Both:
		return "both"
	}
	return "Direction(" + strconv.Itoa(int(d)) + ")"
}

// EdgeRow is one edge candidate and the context row it extends.
type EdgeRow struct {
	Edge value.Edge
	Dir  Direction
	Row  int
}

// Edge is an edge filter, optionally restricted to a set of edge types. An
// edge outside the set is rejected before anything is evaluated. The zero
// value accepts everything.
type Edge struct {
	kind     Kind
	triplets []value.LabelTriplet
	e        expr.EdgeExpr
}

// AlwaysTrueEdge accepts every edge of the given types, or every edge when
// none are given.
func AlwaysTrueEdge(triplets ...value.LabelTriplet) Edge {
	return Edge{kind: AlwaysTrue, triplets: cloneTriplets(triplets)}
}

// EdgeExpression wraps an EdgeVar expression, restricted to triplets when
// any are given.
func EdgeExpression(e *expr.Expr, triplets ...value.LabelTriplet) (Edge, error) {
	if err := checkVarType(e, expr.EdgeVar); err != nil {
		return Edge{}, err
	}
	view, err := e.AsEdge()
	if err != nil {
		return Edge{}, err
	}
	return Edge{kind: Expression, triplets: cloneTriplets(triplets), e: view}, nil
}

func cloneTriplets(ts []value.LabelTriplet) []value.LabelTriplet {
	if len(ts) == 0 {
		return nil
	}
	return append([]value.LabelTriplet(nil), ts...)
}

// Kind returns the variant.
func (p Edge) Kind() Kind { return p.kind }

// Triplets returns the edge types the predicate is restricted to; nil means
// unrestricted.
func (p Edge) Triplets() []value.LabelTriplet { return p.triplets }

// Expr returns the wrapped expression, nil unless Kind is Expression.
func (p Edge) Expr() *expr.Expr {
	if p.kind != Expression {
		return nil
	}
	return p.e.Expr()
}

func (p Edge) String() string {
	var b strings.Builder
	if p.kind == Expression {
		b.WriteString("expression(" + p.e.String() + ")")
	} else {
		b.WriteString(p.kind.String())
	}
	if len(p.triplets) > 0 {
		b.WriteString(" on ")
		for i, t := range p.triplets {
			if i > 0 {
				b.WriteString("|")
			}
			b.WriteString(t.String())
		}
	}
	return b.String()
}

func (p Edge) allows(t value.LabelTriplet) bool {
	if p.triplets == nil {
		return true
	}
	for _, x := range p.triplets {
		if x == t {
			return true
		}
	}
	return false
}

// Test reports whether the edge at context row idx passes. The edge is
// always given in stored orientation, src to dst, so dir records how the
// traversal reached it and does not change the result.
func (p Edge) Test(t value.LabelTriplet, src, dst value.VID, data value.Value, dir Direction, idx int, a *arena.Arena) (bool, error) {
	if !p.allows(t) {
		return false, nil
	}
	if p.kind == AlwaysTrue {
		return true, nil
	}
	v, err := p.e.Eval(t, src, dst, data, idx, a)
	return truth(p.e.Expr(), v, err)
}

// TestUnchecked is Test without the row check.
func (p Edge) TestUnchecked(t value.LabelTriplet, src, dst value.VID, data value.Value, dir Direction, idx int, a *arena.Arena) (bool, error) {
	if !p.allows(t) {
		return false, nil
	}
	if p.kind == AlwaysTrue {
		return true, nil
	}
	v, err := p.e.EvalUnchecked(t, src, dst, data, idx, a)
	return truth(p.e.Expr(), v, err)
}

// FilterRows appends to out the indexes of the rows that pass and returns
// it. The first error stops the batch; out is then nil.
func (p Edge) FilterRows(rows []EdgeRow, a *arena.Arena, out []int) ([]int, error) {
	if p.kind == AlwaysTrue {
		for i, r := range rows {
			if p.allows(r.Edge.Triplet) {
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
		if !p.allows(r.Edge.Triplet) {
			continue
		}
		v, err := e.EvalEdgeUnchecked(r.Edge.Triplet, r.Edge.Src, r.Edge.Dst, r.Edge.Data, r.Row, a)
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
