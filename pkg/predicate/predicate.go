// Package predicate adapts compiled expressions into the boolean filters a
// traversal engine calls once per candidate.
//
// Each element kind has one predicate type, a small closed variant:
//
//	Vertex: AlwaysTrue | ExactMatch(label, vid) | Expression
//	Edge:   AlwaysTrue | Expression, optionally restricted to LabelTriplets
//	Path:   AlwaysTrue | Expression
//
// Predicates are values. They hold no mutable state and may be copied and
// shared across goroutines; each goroutine passes its own arena.
//
// Callers testing many candidates should use FilterRows, which inspects the
// variant and validates the batch once, then runs a tight loop with no
// per-candidate dispatch or checks. Test and TestUnchecked follow the
// checked/unchecked contract of package expr.
//
// Example Usage:
//
//	e, err := expr.CompileVertex(ir.Binary(ir.OpGt, ir.CurrentProp("n", "age"), ir.Lit(value.Int64(18))), env)
//	if err != nil {
//		return err
//	}
//	p, err := predicate.VertexExpression(e)
//	if err != nil {
//		return err
//	}
//	matched, err := p.FilterRows(candidates, a, nil)
package predicate

import (
	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/expr"
	"github.com/orneryd/nornicrt/pkg/value"
)

// Kind tags the predicate variant.
type Kind uint8

const (
	// AlwaysTrue accepts every candidate without evaluating anything.
	AlwaysTrue Kind = iota
	// ExactMatch accepts one (label, vid) pair.
	ExactMatch
	// Expression evaluates a compiled expression and reads it as a bool.
	Expression
)

func (k Kind) String() string {
	switch k {
	case AlwaysTrue:
		return "always-true"
	case ExactMatch:
		return "exact-match"
	case Expression:
		return "expression"
	}
	return "unknown"
}

// checkResultType rejects expressions that can never produce a boolean.
func checkResultType(e *expr.Expr) error {
	switch t := e.Type(); t {
	case value.TypeBool, value.TypeNull, value.TypeUnknown:
		return nil
	default:
		return &evalerr.Error{
			Kind: evalerr.KindTypeMismatch,
			Msg:  "predicate expression has type " + t.String() + ", expected bool",
			Expr: e.String(),
		}
	}
}

func checkVarType(e *expr.Expr, want expr.VarType) error {
	if e == nil {
		return evalerr.ContextMismatch("nil %s expression", want)
	}
	if e.VarType() != want {
		return &evalerr.Error{
			Kind: evalerr.KindArityOrContextMismatch,
			Msg:  "predicate needs a " + want.String() + " expression, got " + e.VarType().String(),
			Expr: e.String(),
		}
	}
	return checkResultType(e)
}

// truth reads an expression result as a filter decision; null rejects.
func truth(e *expr.Expr, v value.Value, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	b, err := v.AsBool()
	if err != nil {
		return false, evalerr.WithExpr(err, e.String())
	}
	return b, nil
}

// checkRows validates a batch of context rows against e once, so the batch
// can run unchecked.
func checkRows(e *expr.Expr, rows func(i int) int, n int) error {
	if !e.ReadsContext() {
		return nil
	}
	limit := e.Rows()
	for i := 0; i < n; i++ {
		if r := rows(i); r < 0 || r >= limit {
			err := evalerr.ContextMismatch("row %d out of range [0, %d)", r, limit)
			err.Expr = e.String()
			return err
		}
	}
	return nil
}
