package expr

import (
	"math"
	"regexp"
	"strings"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/ir"
	"github.com/orneryd/nornicrt/pkg/value"
)

// arithType derives the result type of an arithmetic operator from operand
// types. TypeUnknown means "decided per row".
func arithType(op ir.Op, l, r value.Type) (value.Type, error) {
	if l == value.TypeUnknown || r == value.TypeUnknown {
		return value.TypeUnknown, nil
	}
	if l == value.TypeNull || r == value.TypeNull {
		return value.TypeNull, nil
	}
	if op == ir.OpAdd {
		switch {
		case l == value.TypeString && r == value.TypeString:
			return value.TypeString, nil
		case l == value.TypeList || r == value.TypeList:
			return value.TypeList, nil
		}
	}
	if op == ir.OpAdd || op == ir.OpSub {
		if (l == value.TypeDate || l == value.TypeTimestamp) && r.IsInteger() {
			return l, nil
		}
	}
	if !l.IsNumeric() || !r.IsNumeric() {
		return value.TypeUnknown, evalerr.TypeMismatch("cannot apply %s to %s and %s", op.Symbol(), l, r)
	}
	switch {
	case l == value.TypeDouble || r == value.TypeDouble:
		return value.TypeDouble, nil
	case l.IsUnsigned() && r.IsUnsigned():
		return value.TypeUInt64, nil
	default:
		return value.TypeInt64, nil
	}
}

// arith applies + - * / %. Null operands give null. Integer results are
// 64 bit and wrap on overflow; integer division by zero is a TypeMismatch
// while double division follows IEEE 754.
func arith(op ir.Op, l, r value.Value, a *arena.Arena) (value.Value, error) {
	if l.IsNull() || r.IsNull() {
		return value.Null(), nil
	}
	typ, err := arithType(op, l.Type(), r.Type())
	if err != nil {
		return value.Value{}, err
	}
	switch typ {
	case value.TypeString:
		ls, _ := l.AsString()
		rs, _ := r.AsString()
		if a == nil {
			return value.String(ls + rs), nil
		}
		return value.ArenaString(a, a.Concat(ls, rs)), nil
	case value.TypeList:
		return appendLists(l, r, a)
	case value.TypeDate, value.TypeTimestamp:
		// days for dates, milliseconds for timestamps
		base, _ := value.Cast(l, value.TypeInt64, nil)
		t, _ := base.AsInt64()
		n, err := r.AsInt64()
		if err != nil {
			return value.Value{}, err
		}
		if op == ir.OpSub {
			n = -n
		}
		return value.Cast(value.Int64(t+n), typ, nil)
	case value.TypeDouble:
		x, _ := l.AsFloat64()
		y, _ := r.AsFloat64()
		return value.Double(arithFloat(op, x, y)), nil
	case value.TypeUInt64:
		x, _ := l.AsUInt64()
		y, _ := r.AsUInt64()
		return arithUnsigned(op, x, y)
	default:
		x, err := l.AsInt64()
		if err != nil {
			return value.Value{}, err
		}
		y, err := r.AsInt64()
		if err != nil {
			return value.Value{}, err
		}
		return arithSigned(op, x, y)
	}
}

func arithFloat(op ir.Op, x, y float64) float64 {
	switch op {
	case ir.OpAdd:
		return x + y
	case ir.OpSub:
		return x - y
	case ir.OpMul:
		return x * y
	case ir.OpDiv:
		return x / y
	default:
		return math.Mod(x, y)
	}
}

func arithSigned(op ir.Op, x, y int64) (value.Value, error) {
	switch op {
	case ir.OpAdd:
		return value.Int64(x + y), nil
	case ir.OpSub:
		return value.Int64(x - y), nil
	case ir.OpMul:
		return value.Int64(x * y), nil
	}
	if y == 0 {
		return value.Value{}, evalerr.TypeMismatch("integer division by zero")
	}
	if op == ir.OpDiv {
		return value.Int64(x / y), nil
	}
	return value.Int64(x % y), nil
}

func arithUnsigned(op ir.Op, x, y uint64) (value.Value, error) {
	switch op {
	case ir.OpAdd:
		return value.UInt64(x + y), nil
	case ir.OpSub:
		return value.UInt64(x - y), nil
	case ir.OpMul:
		return value.UInt64(x * y), nil
	}
	if y == 0 {
		return value.Value{}, evalerr.TypeMismatch("integer division by zero")
	}
	if op == ir.OpDiv {
		return value.UInt64(x / y), nil
	}
	return value.UInt64(x % y), nil
}

// appendLists concatenates two lists, or appends/prepends a single element.
func appendLists(l, r value.Value, a *arena.Arena) (value.Value, error) {
	left, right := []value.Value{l}, []value.Value{r}
	if l.Type() == value.TypeList {
		left, _ = l.AsList()
	}
	if r.Type() == value.TypeList {
		right, _ = r.AsList()
	}
	out := makeValues(a, len(left)+len(right))
	copy(out, left)
	copy(out[len(left):], right)
	return wrapList(a, out), nil
}

func negate(v value.Value) (value.Value, error) {
	switch v.Type() {
	case value.TypeNull:
		return v, nil
	case value.TypeDouble:
		f, _ := v.AsFloat64()
		return value.Double(-f), nil
	case value.TypeInt32:
		i, _ := v.AsInt64()
		return value.Int32(int32(-i)), nil
	case value.TypeInt64, value.TypeUInt32, value.TypeUInt64:
		i, err := v.AsInt64()
		if err != nil {
			return value.Value{}, err
		}
		return value.Int64(-i), nil
	}
	return value.Value{}, evalerr.TypeMismatch("cannot negate %s", v.Type())
}

// compare applies = <> < <= > >=. A null operand gives null.
func compare(op ir.Op, l, r value.Value) (value.Value, error) {
	if l.IsNull() || r.IsNull() {
		return value.Null(), nil
	}
	if op == ir.OpEq || op == ir.OpNe {
		eq, err := value.Equal(l, r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(eq == (op == ir.OpEq)), nil
	}
	c, err := value.Compare(l, r)
	if err != nil {
		return value.Value{}, err
	}
	if l.IsNaN() || r.IsNaN() {
		return value.Bool(false), nil
	}
	switch op {
	case ir.OpLt:
		return value.Bool(c < 0), nil
	case ir.OpLe:
		return value.Bool(c <= 0), nil
	case ir.OpGt:
		return value.Bool(c > 0), nil
	default:
		return value.Bool(c >= 0), nil
	}
}

// in tests list membership with the equality of =, so an element of an
// incomparable type is a TypeMismatch. When nothing matches but the list
// holds a null the answer is null.
func in(l, r value.Value) (value.Value, error) {
	if l.IsNull() || r.IsNull() {
		return value.Null(), nil
	}
	items, err := r.AsList()
	if err != nil {
		return value.Value{}, err
	}
	sawNull := false
	for _, item := range items {
		if item.IsNull() {
			sawNull = true
			continue
		}
		eq, err := value.Equal(l, item)
		if err != nil {
			return value.Value{}, err
		}
		if eq {
			return value.Bool(true), nil
		}
	}
	if sawNull {
		return value.Null(), nil
	}
	return value.Bool(false), nil
}

// stringMatch applies STARTS WITH, ENDS WITH and CONTAINS.
func stringMatch(op ir.Op, l, r value.Value) (value.Value, error) {
	if l.IsNull() || r.IsNull() {
		return value.Null(), nil
	}
	s, err := l.AsString()
	if err != nil {
		return value.Value{}, err
	}
	sub, err := r.AsString()
	if err != nil {
		return value.Value{}, err
	}
	switch op {
	case ir.OpStartsWith:
		return value.Bool(strings.HasPrefix(s, sub)), nil
	case ir.OpEndsWith:
		return value.Bool(strings.HasSuffix(s, sub)), nil
	default:
		return value.Bool(strings.Contains(s, sub)), nil
	}
}

// compilePattern anchors a =~ pattern so it must match the whole string.
func compilePattern(p string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + p + `)$`)
	if err != nil {
		return nil, evalerr.TypeMismatch("invalid regular expression %q: %v", p, err)
	}
	return re, nil
}

// truth reads a logical operand: bool, or null as unknown.
func truth(v value.Value) (b, known bool, err error) {
	switch v.Type() {
	case value.TypeNull:
		return false, false, nil
	case value.TypeBool:
		b, _ := v.AsBool()
		return b, true, nil
	}
	return false, false, evalerr.TypeMismatch("expected bool, got %s", v.Type())
}
