package expr

import (
	"regexp"

	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/ir"
	"github.com/orneryd/nornicrt/pkg/value"
)

// evaluator is one compiled node.
type evaluator interface {
	eval(b *Binding) (value.Value, error)
	staticType() value.Type
}

// fail annotates err with the node that raised it. Errors from children
// are already annotated and pass through unchanged.
func fail(src *ir.Node, err error) error {
	return evalerr.WithExpr(err, src.String())
}

type unaryNode struct {
	op  ir.Op
	x   evaluator
	typ value.Type
	src *ir.Node
}

func (n *unaryNode) eval(b *Binding) (value.Value, error) {
	v, err := n.x.eval(b)
	if err != nil {
		return v, err
	}
	switch n.op {
	case ir.OpIsNull:
		return value.Bool(v.IsNull()), nil
	case ir.OpIsNotNull:
		return value.Bool(!v.IsNull()), nil
	case ir.OpNeg:
		out, err := negate(v)
		if err != nil {
			return out, fail(n.src, err)
		}
		return out, nil
	default: // OpNot
		t, known, err := truth(v)
		if err != nil {
			return value.Value{}, fail(n.src, err)
		}
		if !known {
			return value.Null(), nil
		}
		return value.Bool(!t), nil
	}
}

func (n *unaryNode) staticType() value.Type { return n.typ }

type binaryNode struct {
	op  ir.Op
	l   evaluator
	r   evaluator
	re  *regexp.Regexp // literal =~ pattern
	typ value.Type
	src *ir.Node
}

func (n *binaryNode) eval(b *Binding) (value.Value, error) {
	l, err := n.l.eval(b)
	if err != nil {
		return l, err
	}
	r, err := n.r.eval(b)
	if err != nil {
		return r, err
	}
	var out value.Value
	switch {
	case n.op.IsArithmetic():
		out, err = arith(n.op, l, r, b.Arena)
	case n.op.IsComparison():
		out, err = compare(n.op, l, r)
	case n.op == ir.OpIn:
		out, err = in(l, r)
	case n.op == ir.OpRegex:
		out, err = n.match(l, r)
	default:
		out, err = stringMatch(n.op, l, r)
	}
	if err != nil {
		return out, fail(n.src, err)
	}
	return out, nil
}

func (n *binaryNode) match(l, r value.Value) (value.Value, error) {
	if l.IsNull() || r.IsNull() {
		return value.Null(), nil
	}
	s, err := l.AsString()
	if err != nil {
		return value.Value{}, err
	}
	re := n.re
	if re == nil {
		p, err := r.AsString()
		if err != nil {
			return value.Value{}, err
		}
		if re, err = compilePattern(p); err != nil {
			return value.Value{}, err
		}
	}
	return value.Bool(re.MatchString(s)), nil
}

func (n *binaryNode) staticType() value.Type { return n.typ }

// logicalNode implements three-valued AND, OR and XOR. AND and OR stop after
// the left operand when it decides the result.
type logicalNode struct {
	op  ir.Op
	l   evaluator
	r   evaluator
	src *ir.Node
}

func (n *logicalNode) eval(b *Binding) (value.Value, error) {
	lv, err := n.l.eval(b)
	if err != nil {
		return lv, err
	}
	l, lknown, err := truth(lv)
	if err != nil {
		return value.Value{}, fail(n.src, err)
	}
	if lknown {
		if n.op == ir.OpAnd && !l {
			return value.Bool(false), nil
		}
		if n.op == ir.OpOr && l {
			return value.Bool(true), nil
		}
	}
	rv, err := n.r.eval(b)
	if err != nil {
		return rv, err
	}
	r, rknown, err := truth(rv)
	if err != nil {
		return value.Value{}, fail(n.src, err)
	}
	switch n.op {
	case ir.OpAnd:
		if rknown && !r {
			return value.Bool(false), nil
		}
	case ir.OpOr:
		if rknown && r {
			return value.Bool(true), nil
		}
	}
	if !lknown || !rknown {
		return value.Null(), nil
	}
	if n.op == ir.OpXor {
		return value.Bool(l != r), nil
	}
	// both known and not decided above: AND of true,true or OR of false,false
	return value.Bool(l), nil
}

func (n *logicalNode) staticType() value.Type { return value.TypeBool }

type castNode struct {
	x   evaluator
	to  value.Type
	src *ir.Node
}

func (n *castNode) eval(b *Binding) (value.Value, error) {
	v, err := n.x.eval(b)
	if err != nil {
		return v, err
	}
	out, err := value.Cast(v, n.to, b.Arena)
	if err != nil {
		return out, fail(n.src, err)
	}
	return out, nil
}

func (n *castNode) staticType() value.Type { return n.to }

type listNode struct {
	items []evaluator
}

func (n *listNode) eval(b *Binding) (value.Value, error) {
	out := makeValues(b.Arena, len(n.items))
	for i, item := range n.items {
		v, err := item.eval(b)
		if err != nil {
			return v, err
		}
		out[i] = v
	}
	return wrapList(b.Arena, out), nil
}

func (n *listNode) staticType() value.Type { return value.TypeList }

type whenArm struct {
	when evaluator
	then evaluator
}

// caseNode evaluates arms in order. With an operand, an arm matches when its
// value equals the operand; an arm of an incomparable type is a TypeMismatch,
// as for =. Without one, an arm matches when its condition is true.
type caseNode struct {
	operand evaluator
	arms    []whenArm
	els     evaluator
	typ     value.Type
	src     *ir.Node
}

func (n *caseNode) eval(b *Binding) (value.Value, error) {
	var subject value.Value
	if n.operand != nil {
		var err error
		if subject, err = n.operand.eval(b); err != nil {
			return subject, err
		}
	}
	for _, arm := range n.arms {
		w, err := arm.when.eval(b)
		if err != nil {
			return w, err
		}
		matched, err := n.matches(subject, w)
		if err != nil {
			return value.Value{}, fail(n.src, err)
		}
		if matched {
			return arm.then.eval(b)
		}
	}
	if n.els == nil {
		return value.Null(), nil
	}
	return n.els.eval(b)
}

func (n *caseNode) matches(subject, w value.Value) (bool, error) {
	if n.operand == nil {
		t, known, err := truth(w)
		return known && t, err
	}
	if subject.IsNull() || w.IsNull() {
		return false, nil
	}
	return value.Equal(subject, w)
}

func (n *caseNode) staticType() value.Type { return n.typ }

type compiler struct {
	env     Env
	varType VarType
	usesRow bool
}

func (c *compiler) compile(n *ir.Node) (evaluator, error) {
	out, err := c.compileNode(n)
	if err != nil {
		return nil, fail(n, err)
	}
	return out, nil
}

func (c *compiler) compileAll(nodes []*ir.Node) ([]evaluator, error) {
	out := make([]evaluator, len(nodes))
	for i, n := range nodes {
		e, err := c.compile(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (c *compiler) compileNode(n *ir.Node) (evaluator, error) {
	switch n.Kind {
	case ir.KindLiteral, ir.KindParam, ir.KindVar:
		v, err := NewVar(n, c.env, c.varType)
		if err != nil {
			return nil, err
		}
		c.usesRow = c.usesRow || v.usesRow()
		return v, nil

	case ir.KindUnary:
		x, err := c.compile(n.Args[0])
		if err != nil {
			return nil, err
		}
		typ := value.TypeBool
		switch n.Op {
		case ir.OpNeg:
			typ = x.staticType()
			switch {
			case typ == value.TypeUInt32 || typ == value.TypeUInt64:
				typ = value.TypeInt64
			case typ != value.TypeUnknown && typ != value.TypeNull && !typ.IsNumeric():
				return nil, evalerr.TypeMismatch("cannot negate %s", typ)
			}
		case ir.OpNot:
			if err := expectBool(x.staticType()); err != nil {
				return nil, err
			}
		}
		return &unaryNode{op: n.Op, x: x, typ: typ, src: n}, nil

	case ir.KindBinary:
		args, err := c.compileAll(n.Args)
		if err != nil {
			return nil, err
		}
		node := &binaryNode{op: n.Op, l: args[0], r: args[1], typ: value.TypeBool, src: n}
		lt, rt := args[0].staticType(), args[1].staticType()
		switch {
		case n.Op.IsArithmetic():
			if node.typ, err = arithType(n.Op, lt, rt); err != nil {
				return nil, err
			}
		case n.Op.IsComparison():
			if !value.Comparable(lt, rt) {
				return nil, evalerr.TypeMismatch("cannot compare %s with %s", lt, rt)
			}
		case n.Op == ir.OpIn:
			if known(rt) && rt != value.TypeList {
				return nil, evalerr.TypeMismatch("IN expects a list, got %s", rt)
			}
		default:
			if (known(lt) && lt != value.TypeString) || (known(rt) && rt != value.TypeString) {
				return nil, evalerr.TypeMismatch("%s expects strings, got %s and %s", n.Op.Symbol(), lt, rt)
			}
		}
		if n.Op == ir.OpRegex {
			if v, ok := args[1].(*Var); ok && v.kind != VarColumn && v.kind != VarProperty && v.lit.Type() == value.TypeString {
				p, _ := v.lit.AsString()
				if node.re, err = compilePattern(p); err != nil {
					return nil, err
				}
			}
		}
		return node, nil

	case ir.KindLogical:
		args, err := c.compileAll(n.Args)
		if err != nil {
			return nil, err
		}
		for _, a := range args {
			if err := expectBool(a.staticType()); err != nil {
				return nil, err
			}
		}
		return &logicalNode{op: n.Op, l: args[0], r: args[1], src: n}, nil

	case ir.KindCall:
		return c.compileCall(n)

	case ir.KindCast:
		x, err := c.compile(n.Args[0])
		if err != nil {
			return nil, err
		}
		if !value.CanCast(x.staticType(), n.Type) {
			return nil, evalerr.InvalidCast("cannot cast %s to %s", x.staticType(), n.Type)
		}
		return &castNode{x: x, to: n.Type, src: n}, nil

	case ir.KindList:
		items, err := c.compileAll(n.Args)
		if err != nil {
			return nil, err
		}
		return &listNode{items: items}, nil

	case ir.KindCase:
		node := &caseNode{src: n}
		var err error
		if n.Operand != nil {
			if node.operand, err = c.compile(n.Operand); err != nil {
				return nil, err
			}
		}
		typ, seen := value.TypeUnknown, false
		for _, w := range n.Whens {
			var arm whenArm
			if arm.when, err = c.compile(w.When); err != nil {
				return nil, err
			}
			if n.Operand == nil {
				if err := expectBool(arm.when.staticType()); err != nil {
					return nil, err
				}
			} else if lt, rt := node.operand.staticType(), arm.when.staticType(); !value.Comparable(lt, rt) {
				return nil, evalerr.TypeMismatch("cannot compare %s with %s", lt, rt)
			}
			if arm.then, err = c.compile(w.Then); err != nil {
				return nil, err
			}
			typ, seen = joinTypes(typ, arm.then.staticType(), seen), true
			node.arms = append(node.arms, arm)
		}
		elseType := value.TypeNull
		if n.Else != nil {
			if node.els, err = c.compile(n.Else); err != nil {
				return nil, err
			}
			elseType = node.els.staticType()
		}
		node.typ = joinTypes(typ, elseType, seen)
		return node, nil
	}
	return nil, evalerr.TypeMismatch("cannot compile %s node", n.Kind)
}

func known(t value.Type) bool {
	return t != value.TypeUnknown && t != value.TypeNull
}

func expectBool(t value.Type) error {
	if known(t) && t != value.TypeBool {
		return evalerr.TypeMismatch("expected bool, got %s", t)
	}
	return nil
}
