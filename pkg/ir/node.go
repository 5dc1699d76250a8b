// Package ir defines the compiled expression tree handed to the evaluator by
// a query planner, together with its YAML and binary wire forms.
//
// A Node tree is immutable once built or decoded and may be shared between
// goroutines; the evaluator compiles it into an expr.Expr.
package ir

import (
	"fmt"

	"github.com/orneryd/nornicrt/pkg/value"
)

// Kind is the node discriminant.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindLiteral
	KindVar
	KindParam
	KindUnary
	KindBinary
	KindLogical
	KindCall
	KindCast
	KindList
	KindCase
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindLiteral: "literal",
	KindVar:     "var",
	KindParam:   "param",
	KindUnary:   "unary",
	KindBinary:  "binary",
	KindLogical: "logical",
	KindCall:    "call",
	KindCast:    "cast",
	KindList:    "list",
	KindCase:    "case",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Op is an operator of a Unary, Binary or Logical node.
type Op uint8

const (
	OpNone Op = iota

	// arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	// comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// membership and string matching
	OpIn
	OpStartsWith
	OpEndsWith
	OpContains
	OpRegex

	// unary
	OpNot
	OpNeg
	OpIsNull
	OpIsNotNull

	// logical
	OpAnd
	OpOr
	OpXor
)

var opSymbols = [...]string{
	OpNone:       "",
	OpAdd:        "+",
	OpSub:        "-",
	OpMul:        "*",
	OpDiv:        "/",
	OpMod:        "%",
	OpEq:         "=",
	OpNe:         "<>",
	OpLt:         "<",
	OpLe:         "<=",
	OpGt:         ">",
	OpGe:         ">=",
	OpIn:         "IN",
	OpStartsWith: "STARTS WITH",
	OpEndsWith:   "ENDS WITH",
	OpContains:   "CONTAINS",
	OpRegex:      "=~",
	OpNot:        "NOT",
	OpNeg:        "-",
	OpIsNull:     "IS NULL",
	OpIsNotNull:  "IS NOT NULL",
	OpAnd:        "AND",
	OpOr:         "OR",
	OpXor:        "XOR",
}

// Symbol returns the operator as written in query text.
func (o Op) Symbol() string {
	if int(o) < len(opSymbols) {
		return opSymbols[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

func (o Op) String() string { return o.Symbol() }

// ParseOp maps a query-text operator back to an Op. Unary minus is "neg".
func ParseOp(s string) (Op, bool) {
	if s == "neg" {
		return OpNeg, true
	}
	for i, sym := range opSymbols {
		if i != int(OpNone) && i != int(OpNeg) && sym == s {
			return Op(i), true
		}
	}
	return OpNone, false
}

// IsArithmetic reports whether o is one of + - * / %.
func (o Op) IsArithmetic() bool { return o >= OpAdd && o <= OpMod }

// IsComparison reports whether o is one of = <> < <= > >=.
func (o Op) IsComparison() bool { return o >= OpEq && o <= OpGe }

// IsUnary reports whether o takes a single operand.
func (o Op) IsUnary() bool { return o >= OpNot && o <= OpIsNotNull }

// IsLogical reports whether o is AND, OR or XOR.
func (o Op) IsLogical() bool { return o >= OpAnd && o <= OpXor }

// CurrentTag addresses the element bound by the evaluation call (the
// candidate vertex or edge) rather than a context column.
const CurrentTag = -1

// Node is one node of an expression tree.
type Node struct {
	Kind Kind
	Op   Op

	// Literal value.
	Value value.Value

	// Var: Tag selects a context column or CurrentTag; Name is the alias
	// used in messages; Property, when set, reads a property of the element.
	// Param: Name. Call: Name is the function.
	Tag      int
	Name     string
	Property string

	// Cast target.
	Type value.Type

	// Operands, call arguments or list items.
	Args []*Node

	// Case
	Operand *Node
	Whens   []When
	Else    *Node
}

// When is one WHEN ... THEN ... arm of a Case node.
type When struct {
	When *Node
	Then *Node
}

// Lit returns a literal node. v must not point into an arena.
func Lit(v value.Value) *Node { return &Node{Kind: KindLiteral, Value: v.Detach()} }

// Var references a context column by tag.
func Var(tag int, name string) *Node { return &Node{Kind: KindVar, Tag: tag, Name: name} }

// Prop references a property of a context column's element.
func Prop(tag int, name, property string) *Node {
	return &Node{Kind: KindVar, Tag: tag, Name: name, Property: property}
}

// Current references the element bound by the evaluation call.
func Current(name string) *Node { return &Node{Kind: KindVar, Tag: CurrentTag, Name: name} }

// CurrentProp references a property of the bound element.
func CurrentProp(name, property string) *Node {
	return &Node{Kind: KindVar, Tag: CurrentTag, Name: name, Property: property}
}

// Param references a query parameter.
func Param(name string) *Node { return &Node{Kind: KindParam, Name: name} }

// Unary applies a unary operator.
func Unary(op Op, x *Node) *Node { return &Node{Kind: KindUnary, Op: op, Args: []*Node{x}} }

// Not negates x.
func Not(x *Node) *Node { return Unary(OpNot, x) }

// Binary applies a binary operator.
func Binary(op Op, l, r *Node) *Node {
	kind := KindBinary
	if op.IsLogical() {
		kind = KindLogical
	}
	return &Node{Kind: kind, Op: op, Args: []*Node{l, r}}
}

// And, Or and Xor build logical nodes.
func And(l, r *Node) *Node { return Binary(OpAnd, l, r) }
func Or(l, r *Node) *Node  { return Binary(OpOr, l, r) }
func Xor(l, r *Node) *Node { return Binary(OpXor, l, r) }

// Call invokes a built-in function.
func Call(name string, args ...*Node) *Node { return &Node{Kind: KindCall, Name: name, Args: args} }

// Cast converts x to t.
func Cast(x *Node, t value.Type) *Node { return &Node{Kind: KindCast, Type: t, Args: []*Node{x}} }

// ListOf builds a list from items.
func ListOf(items ...*Node) *Node { return &Node{Kind: KindList, Args: items} }

// Case builds CASE [operand] WHEN ... THEN ... [ELSE ...] END. operand and
// els may be nil.
func Case(operand *Node, whens []When, els *Node) *Node {
	return &Node{Kind: KindCase, Operand: operand, Whens: whens, Else: els}
}

// Walk visits n and its descendants depth first, left to right, stopping
// early when fn returns false.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, a := range n.Args {
		if !Walk(a, fn) {
			return false
		}
	}
	if !Walk(n.Operand, fn) {
		return false
	}
	for _, w := range n.Whens {
		if !Walk(w.When, fn) || !Walk(w.Then, fn) {
			return false
		}
	}
	return Walk(n.Else, fn)
}

// Validate checks structural well-formedness: operand counts, known
// operators and non-nil children.
func (n *Node) Validate() error {
	var err error
	Walk(n, func(x *Node) bool {
		err = x.validateOne()
		return err == nil
	})
	return err
}

func (n *Node) validateOne() error {
	want := -1
	switch n.Kind {
	case KindLiteral:
		want = 0
	case KindVar:
		want = 0
		if n.Tag < CurrentTag {
			return fmt.Errorf("%w: var %q has tag %d", ErrMalformed, n.Name, n.Tag)
		}
	case KindParam:
		want = 0
		if n.Name == "" {
			return fmt.Errorf("%w: param without name", ErrMalformed)
		}
	case KindUnary:
		if !n.Op.IsUnary() {
			return fmt.Errorf("%w: %q is not a unary operator", ErrMalformed, n.Op)
		}
		want = 1
	case KindBinary:
		if n.Op.IsUnary() || n.Op.IsLogical() || n.Op == OpNone || int(n.Op) >= len(opSymbols) {
			return fmt.Errorf("%w: %q is not a binary operator", ErrMalformed, n.Op)
		}
		want = 2
	case KindLogical:
		if !n.Op.IsLogical() {
			return fmt.Errorf("%w: %q is not a logical operator", ErrMalformed, n.Op)
		}
		want = 2
	case KindCall:
		if n.Name == "" {
			return fmt.Errorf("%w: call without function name", ErrMalformed)
		}
	case KindCast:
		want = 1
	case KindList:
	case KindCase:
		if len(n.Whens) == 0 {
			return fmt.Errorf("%w: CASE without WHEN", ErrMalformed)
		}
		for _, w := range n.Whens {
			if w.When == nil || w.Then == nil {
				return fmt.Errorf("%w: incomplete WHEN arm", ErrMalformed)
			}
		}
	default:
		return fmt.Errorf("%w: unknown node kind %d", ErrMalformed, n.Kind)
	}
	if want >= 0 && len(n.Args) != want {
		return fmt.Errorf("%w: %s node needs %d operands, has %d", ErrMalformed, n.Kind, want, len(n.Args))
	}
	for _, a := range n.Args {
		if a == nil {
			return fmt.Errorf("%w: nil operand in %s node", ErrMalformed, n.Kind)
		}
	}
	return nil
}
