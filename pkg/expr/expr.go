// Package expr compiles planner expressions into evaluators bound to a
// graph snapshot, a batch context and the query parameters.
//
// An Expr is built once per query and then evaluated per candidate element.
// Everything that can be decided up front is decided in Compile: variable
// bindings, property columns, function dispatch, literal regex patterns and
// the static result type. Evaluation does no name lookups.
//
// Every Expr carries a VarType that selects its entry point:
//
//	PathVar   -> EvalPath(idx, a)
//	VertexVar -> EvalVertex(label, vid, idx, a)
//	EdgeVar   -> EvalEdge(triplet, src, dst, data, idx, a)
//
// The typed views PathExpr, VertexExpr and EdgeExpr expose only the matching
// entry point, so calling the wrong one does not compile.
//
// # Checked and unchecked entry points
//
// The Eval* methods verify the VarType and, when the expression reads the
// batch context, that idx is a valid row. The Eval*Unchecked variants skip
// both. Callers may use them only after establishing, once per batch, that:
//
//   - the Expr's VarType matches the entry point, and
//   - 0 <= idx < Context.RowCount() for every idx passed (or the expression
//     does not read the context, see ReadsContext).
//
// Violating the precondition is a programming error; the unchecked variants
// may then panic or return values of the wrong row.
//
// # Arenas
//
// Strings, lists and edge records produced during evaluation are allocated
// from the arena passed in and are invalid after its next Reset. A nil arena
// allocates from the Go heap.
//
// # Thread Safety
//
// An Expr is immutable after Compile and may be evaluated from many
// goroutines at once, each with its own arena.
package expr

import (
	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/ir"
	"github.com/orneryd/nornicrt/pkg/value"
)

// Expr is a compiled expression.
type Expr struct {
	root    evaluator
	varType VarType
	typ     value.Type
	src     *ir.Node
	text    string

	readsContext bool
	rows         int
}

// Compile binds n against env for evaluation through the vt entry point.
//
// Construction errors: UnresolvedVariable for unknown column tags or
// parameters, PropertyNotFound for properties no candidate label defines,
// TypeMismatch for unknown functions and statically ill-typed operators,
// InvalidCast for impossible casts, ArityOrContextMismatch for wrong
// argument counts. Malformed trees fail with ir.ErrMalformed.
func Compile(n *ir.Node, env Env, vt VarType) (*Expr, error) {
	if n == nil {
		return nil, evalerr.TypeMismatch("nil expression")
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if vt > EdgeVar {
		return nil, evalerr.ContextMismatch("unknown VarType %d", vt)
	}
	c := &compiler{env: env, varType: vt}
	root, err := c.compile(n)
	if err != nil {
		return nil, err
	}
	return &Expr{
		root:         root,
		varType:      vt,
		typ:          root.staticType(),
		src:          n,
		text:         n.String(),
		readsContext: c.usesRow,
		rows:         env.Context.RowCount(),
	}, nil
}

// VarType returns the entry point this expression accepts.
func (e *Expr) VarType() VarType { return e.varType }

// Type returns the static result type, TypeUnknown when it depends on the
// data.
func (e *Expr) Type() value.Type { return e.typ }

// ReadsContext reports whether evaluation reads the context row idx.
func (e *Expr) ReadsContext() bool { return e.readsContext }

// Rows is the context row count the expression was bound against.
func (e *Expr) Rows() int { return e.rows }

// Source returns the expression tree the Expr was compiled from.
func (e *Expr) Source() *ir.Node { return e.src }

func (e *Expr) String() string { return e.text }

func (e *Expr) check(vt VarType, idx int) error {
	if e.varType != vt {
		return &evalerr.Error{
			Kind: evalerr.KindArityOrContextMismatch,
			Msg:  "expression is " + e.varType.String() + ", evaluated as " + vt.String(),
			Expr: e.text,
		}
	}
	if e.readsContext && (idx < 0 || idx >= e.rows) {
		err := evalerr.ContextMismatch("row %d out of range [0, %d)", idx, e.rows)
		err.Expr = e.text
		return err
	}
	return nil
}

// EvalPath evaluates against context row idx.
func (e *Expr) EvalPath(idx int, a *arena.Arena) (value.Value, error) {
	if err := e.check(PathVar, idx); err != nil {
		return value.Value{}, err
	}
	return e.EvalPathUnchecked(idx, a)
}

// EvalPathUnchecked is EvalPath without the VarType and row checks.
func (e *Expr) EvalPathUnchecked(idx int, a *arena.Arena) (value.Value, error) {
	b := Binding{Row: idx, Arena: a}
	return e.root.eval(&b)
}

// EvalVertex evaluates with the vertex (label, vid) bound and context row
// idx. vid may be value.NullVID for the missing side of an optional match;
// its properties then read as null.
func (e *Expr) EvalVertex(label value.Label, vid value.VID, idx int, a *arena.Arena) (value.Value, error) {
	if err := e.check(VertexVar, idx); err != nil {
		return value.Value{}, err
	}
	return e.EvalVertexUnchecked(label, vid, idx, a)
}

// EvalVertexUnchecked is EvalVertex without the VarType and row checks.
func (e *Expr) EvalVertexUnchecked(label value.Label, vid value.VID, idx int, a *arena.Arena) (value.Value, error) {
	b := Binding{Row: idx, Label: label, VID: vid, Arena: a}
	return e.root.eval(&b)
}

// EvalEdge evaluates with the edge (t, src, dst) and its property payload
// bound, plus context row idx.
func (e *Expr) EvalEdge(t value.LabelTriplet, src, dst value.VID, data value.Value, idx int, a *arena.Arena) (value.Value, error) {
	if err := e.check(EdgeVar, idx); err != nil {
		return value.Value{}, err
	}
	return e.EvalEdgeUnchecked(t, src, dst, data, idx, a)
}

// EvalEdgeUnchecked is EvalEdge without the VarType and row checks.
func (e *Expr) EvalEdgeUnchecked(t value.LabelTriplet, src, dst value.VID, data value.Value, idx int, a *arena.Arena) (value.Value, error) {
	b := Binding{
		Row:   idx,
		Edge:  value.Edge{Triplet: t, Src: src, Dst: dst, Data: data},
		Arena: a,
	}
	return e.root.eval(&b)
}

// PathExpr is an Expr known to be PathVar.
type PathExpr struct{ e *Expr }

// VertexExpr is an Expr known to be VertexVar.
type VertexExpr struct{ e *Expr }

// EdgeExpr is an Expr known to be EdgeVar.
type EdgeExpr struct{ e *Expr }

func (e *Expr) view(vt VarType) error {
	if e.varType != vt {
		return evalerr.ContextMismatch("expression %s is %s, not %s", e.text, e.varType, vt)
	}
	return nil
}

// AsPath returns the PathVar view of e.
func (e *Expr) AsPath() (PathExpr, error) {
	if err := e.view(PathVar); err != nil {
		return PathExpr{}, err
	}
	return PathExpr{e}, nil
}

// AsVertex returns the VertexVar view of e.
func (e *Expr) AsVertex() (VertexExpr, error) {
	if err := e.view(VertexVar); err != nil {
		return VertexExpr{}, err
	}
	return VertexExpr{e}, nil
}

// AsEdge returns the EdgeVar view of e.
func (e *Expr) AsEdge() (EdgeExpr, error) {
	if err := e.view(EdgeVar); err != nil {
		return EdgeExpr{}, err
	}
	return EdgeExpr{e}, nil
}

// CompilePath compiles n as a PathVar expression.
func CompilePath(n *ir.Node, env Env) (PathExpr, error) {
	e, err := Compile(n, env, PathVar)
	if err != nil {
		return PathExpr{}, err
	}
	return PathExpr{e}, nil
}

// CompileVertex compiles n as a VertexVar expression.
func CompileVertex(n *ir.Node, env Env) (VertexExpr, error) {
	e, err := Compile(n, env, VertexVar)
	if err != nil {
		return VertexExpr{}, err
	}
	return VertexExpr{e}, nil
}

// CompileEdge compiles n as an EdgeVar expression.
func CompileEdge(n *ir.Node, env Env) (EdgeExpr, error) {
	e, err := Compile(n, env, EdgeVar)
	if err != nil {
		return EdgeExpr{}, err
	}
	return EdgeExpr{e}, nil
}

func (p PathExpr) Expr() *Expr        { return p.e }
func (p PathExpr) Type() value.Type   { return p.e.typ }
func (p PathExpr) Valid() bool        { return p.e != nil }
func (p PathExpr) String() string     { return p.e.text }
func (p PathExpr) ReadsContext() bool { return p.e.readsContext }
func (p PathExpr) Rows() int          { return p.e.rows }

func (v VertexExpr) Expr() *Expr        { return v.e }
func (v VertexExpr) Type() value.Type   { return v.e.typ }
func (v VertexExpr) Valid() bool        { return v.e != nil }
func (v VertexExpr) String() string     { return v.e.text }
func (v VertexExpr) ReadsContext() bool { return v.e.readsContext }
func (v VertexExpr) Rows() int          { return v.e.rows }

func (ee EdgeExpr) Expr() *Expr        { return ee.e }
func (ee EdgeExpr) Type() value.Type   { return ee.e.typ }
func (ee EdgeExpr) Valid() bool        { return ee.e != nil }
func (ee EdgeExpr) String() string     { return ee.e.text }
func (ee EdgeExpr) ReadsContext() bool { return ee.e.readsContext }
func (ee EdgeExpr) Rows() int          { return ee.e.rows }

// Eval evaluates against context row idx, checking the row.
func (p PathExpr) Eval(idx int, a *arena.Arena) (value.Value, error) {
	if p.e.readsContext && (idx < 0 || idx >= p.e.rows) {
		return value.Value{}, p.e.check(PathVar, idx)
	}
	return p.e.EvalPathUnchecked(idx, a)
}

// EvalUnchecked evaluates without the row check.
func (p PathExpr) EvalUnchecked(idx int, a *arena.Arena) (value.Value, error) {
	return p.e.EvalPathUnchecked(idx, a)
}

// Eval evaluates with (label, vid) bound, checking the row.
func (v VertexExpr) Eval(label value.Label, vid value.VID, idx int, a *arena.Arena) (value.Value, error) {
	if v.e.readsContext && (idx < 0 || idx >= v.e.rows) {
		return value.Value{}, v.e.check(VertexVar, idx)
	}
	return v.e.EvalVertexUnchecked(label, vid, idx, a)
}

// EvalUnchecked evaluates without the row check.
func (v VertexExpr) EvalUnchecked(label value.Label, vid value.VID, idx int, a *arena.Arena) (value.Value, error) {
	return v.e.EvalVertexUnchecked(label, vid, idx, a)
}

// Eval evaluates with the edge bound, checking the row.
func (ee EdgeExpr) Eval(t value.LabelTriplet, src, dst value.VID, data value.Value, idx int, a *arena.Arena) (value.Value, error) {
	if ee.e.readsContext && (idx < 0 || idx >= ee.e.rows) {
		return value.Value{}, ee.e.check(EdgeVar, idx)
	}
	return ee.e.EvalEdgeUnchecked(t, src, dst, data, idx, a)
}

// EvalUnchecked evaluates without the row check.
func (ee EdgeExpr) EvalUnchecked(t value.LabelTriplet, src, dst value.VID, data value.Value, idx int, a *arena.Arena) (value.Value, error) {
	return ee.e.EvalEdgeUnchecked(t, src, dst, data, idx, a)
}
