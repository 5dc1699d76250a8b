package predicate

import (
	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/expr"
)

// Path filters context rows. The zero value accepts everything.
type Path struct {
	kind Kind
	e    expr.PathExpr
}

// AlwaysTruePath accepts every row.
func AlwaysTruePath() Path { return Path{kind: AlwaysTrue} }

// PathExpression wraps a PathVar expression.
func PathExpression(e *expr.Expr) (Path, error) {
	if err := checkVarType(e, expr.PathVar); err != nil {
		return Path{}, err
	}
	view, err := e.AsPath()
	if err != nil {
		return Path{}, err
	}
	return Path{kind: Expression, e: view}, nil
}

// Kind returns the variant.
func (p Path) Kind() Kind { return p.kind }

// Expr returns the wrapped expression, nil unless Kind is Expression.
func (p Path) Expr() *expr.Expr {
	if p.kind != Expression {
		return nil
	}
	return p.e.Expr()
}

func (p Path) String() string {
	if p.kind == Expression {
		return "expression(" + p.e.String() + ")"
	}
	return p.kind.String()
}

// Test reports whether context row idx passes.
func (p Path) Test(idx int, a *arena.Arena) (bool, error) {
	if p.kind == AlwaysTrue {
		return true, nil
	}
	v, err := p.e.Eval(idx, a)
	return truth(p.e.Expr(), v, err)
}

// TestUnchecked is Test without the row check.
func (p Path) TestUnchecked(idx int, a *arena.Arena) (bool, error) {
	if p.kind == AlwaysTrue {
		return true, nil
	}
	v, err := p.e.EvalUnchecked(idx, a)
	return truth(p.e.Expr(), v, err)
}

// FilterRows appends to out the rows that pass and returns it. Unlike the
// vertex and edge forms it returns row numbers, not positions in rows.
func (p Path) FilterRows(rows []int, a *arena.Arena, out []int) ([]int, error) {
	if p.kind == AlwaysTrue {
		return append(out, rows...), nil
	}
	e := p.e.Expr()
	if err := checkRows(e, func(i int) int { return rows[i] }, len(rows)); err != nil {
		return nil, err
	}
	for _, r := range rows {
		v, err := e.EvalPathUnchecked(r, a)
		ok, err := truth(e, v, err)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
