package value

import (
	"cmp"
	"math"
	"strings"

	"github.com/orneryd/nornicrt/pkg/evalerr"
)

// Promote returns the common numeric type of a and b.
//
// Integer widths widen (Int32+Int64 → Int64, UInt32+UInt64 → UInt64), a mix
// of signed and unsigned integers widens to Int64, and any integer paired
// with Double widens to Double. Non-numeric operands are a TypeMismatch.
func Promote(a, b Type) (Type, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return TypeUnknown, evalerr.TypeMismatch("cannot combine %s and %s", a, b)
	}
	switch {
	case a == TypeDouble || b == TypeDouble:
		return TypeDouble, nil
	case a == b:
		return a, nil
	case a.IsUnsigned() && b.IsUnsigned():
		return TypeUInt64, nil
	default:
		return TypeInt64, nil
	}
}

// Comparable reports whether values of types a and b may be compared,
// following the same promotion rule as arithmetic.
func Comparable(a, b Type) bool {
	if a == TypeNull || b == TypeNull || a == TypeUnknown || b == TypeUnknown {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	return a == b
}

// Compare orders two non-null values. It returns a negative number, zero or
// a positive number. Values of different types compare only through numeric
// promotion; anything else is a TypeMismatch. Null operands must be handled
// by the caller (comparisons with null yield null).
func Compare(a, b Value) (int, error) {
	at, bt := a.Type(), b.Type()
	if at == TypeNull || bt == TypeNull {
		return 0, evalerr.TypeMismatch("cannot order null")
	}
	if at.IsNumeric() && bt.IsNumeric() {
		return compareNumeric(a, b), nil
	}
	if at != bt {
		return 0, evalerr.TypeMismatch("cannot compare %s with %s", at, bt)
	}
	switch at {
	case TypeBool:
		return cmp.Compare(a.n, b.n), nil
	case TypeString:
		a.gen.Check()
		b.gen.Check()
		return strings.Compare(a.s, b.s), nil
	case TypeDate, TypeTimestamp:
		return cmp.Compare(int64(a.n), int64(b.n)), nil
	case TypeVertex:
		if c := cmp.Compare(a.vtx.Label, b.vtx.Label); c != 0 {
			return c, nil
		}
		return cmp.Compare(a.vtx.ID, b.vtx.ID), nil
	case TypeList:
		a.gen.Check()
		b.gen.Check()
		for i := 0; i < len(a.list) && i < len(b.list); i++ {
			ai, bi := a.list[i], b.list[i]
			if ai.IsNull() || bi.IsNull() {
				if ai.IsNull() && bi.IsNull() {
					continue
				}
				if ai.IsNull() {
					return 1, nil
				}
				return -1, nil
			}
			c, err := Compare(ai, bi)
			if err != nil || c != 0 {
				return c, err
			}
		}
		return cmp.Compare(len(a.list), len(b.list)), nil
	default:
		return 0, evalerr.TypeMismatch("%s values are not ordered", at)
	}
}

func compareNumeric(a, b Value) int {
	at, bt := a.typ, b.typ
	if at == TypeDouble || bt == TypeDouble {
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return cmp.Compare(af, bf)
	}
	switch {
	case at.IsUnsigned() && bt.IsUnsigned():
		return cmp.Compare(a.n, b.n)
	case !at.IsUnsigned() && !bt.IsUnsigned():
		return cmp.Compare(int64(a.n), int64(b.n))
	case at.IsUnsigned():
		s := int64(b.n)
		if s < 0 {
			return 1
		}
		return cmp.Compare(a.n, uint64(s))
	default:
		s := int64(a.n)
		if s < 0 {
			return -1
		}
		return cmp.Compare(uint64(s), b.n)
	}
}

// Equal reports whether two non-null values are equal. Numeric values are
// compared after promotion; other cross-type pairs are a TypeMismatch.
func Equal(a, b Value) (bool, error) {
	at, bt := a.Type(), b.Type()
	if at == TypeNull || bt == TypeNull {
		return false, evalerr.TypeMismatch("cannot test null for equality")
	}
	if at.IsNumeric() && bt.IsNumeric() {
		if at == TypeDouble || bt == TypeDouble {
			af, _ := a.AsFloat64()
			bf, _ := b.AsFloat64()
			return af == bf, nil
		}
		return compareNumeric(a, b) == 0, nil
	}
	if at != bt {
		return false, evalerr.TypeMismatch("cannot compare %s with %s", at, bt)
	}
	switch at {
	case TypeString:
		a.gen.Check()
		b.gen.Check()
		return a.s == b.s, nil
	case TypeList:
		a.gen.Check()
		b.gen.Check()
		if len(a.list) != len(b.list) {
			return false, nil
		}
		for i := range a.list {
			ai, bi := a.list[i], b.list[i]
			if ai.IsNull() || bi.IsNull() {
				if ai.IsNull() != bi.IsNull() {
					return false, nil
				}
				continue
			}
			eq, err := Equal(ai, bi)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case TypeVertex:
		return a.vtx == b.vtx, nil
	case TypeEdge:
		a.gen.Check()
		b.gen.Check()
		ea, eb := a.edge, b.edge
		return ea.Triplet == eb.Triplet && ea.Src == eb.Src && ea.Dst == eb.Dst, nil
	case TypePath:
		return a.tag == b.tag && a.n == b.n, nil
	default:
		return a.n == b.n, nil
	}
}

// IsNaN reports whether v is a Double holding NaN.
func (v Value) IsNaN() bool {
	return v.typ == TypeDouble && math.IsNaN(math.Float64frombits(v.n))
}
