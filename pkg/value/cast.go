package value

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/evalerr"
)

// CanCast reports whether a value of static type from may be cast to target
// at all. Individual values may still fail with InvalidCast when out of
// range or unparsable.
func CanCast(from, target Type) bool {
	if from == target || from == TypeNull || from == TypeUnknown {
		return true
	}
	switch target {
	case TypeInt32, TypeInt64, TypeUInt32, TypeUInt64, TypeDouble:
		return from.IsNumeric() || from == TypeString ||
			((from == TypeDate || from == TypeTimestamp) && target != TypeDouble)
	case TypeString:
		return from != TypeList && from != TypeVertex && from != TypeEdge && from != TypePath
	case TypeBool:
		return from == TypeString
	case TypeDate, TypeTimestamp:
		return from.IsInteger() || from == TypeString || from == TypeDate || from == TypeTimestamp
	default:
		return false
	}
}

// Cast converts v to target.
//
// Numeric casts are exact: integer conversions fail when the value does not
// fit, double to integer truncates toward zero and fails on NaN, infinities
// and out-of-range values. Strings parse into numbers, booleans, dates
// (2006-01-02) and timestamps (RFC 3339). Every scalar formats into a
// string, allocated from a when a is non-nil. Null casts to null.
func Cast(v Value, target Type, a *arena.Arena) (Value, error) {
	from := v.Type()
	if from == TypeNull || from == target {
		return v, nil
	}
	if !CanCast(from, target) {
		return Value{}, evalerr.InvalidCast("cannot cast %s to %s", from, target)
	}
	if from == TypeString {
		v.gen.Check()
	}
	switch target {
	case TypeInt32, TypeInt64, TypeUInt32, TypeUInt64:
		return castToInteger(v, target)
	case TypeDouble:
		return castToDouble(v)
	case TypeString:
		return castToString(v, a)
	case TypeBool:
		s, _ := v.AsString()
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return Value{}, evalerr.InvalidCast("cannot parse %q as bool", s)
	case TypeDate:
		return castToDate(v)
	case TypeTimestamp:
		return castToTimestamp(v)
	}
	return Value{}, evalerr.InvalidCast("cannot cast %s to %s", from, target)
}

func castToInteger(v Value, target Type) (Value, error) {
	switch v.typ {
	case TypeDouble:
		f := math.Float64frombits(v.n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, evalerr.InvalidCast("cannot cast %v to %s", f, target)
		}
		return fitFloat(math.Trunc(f), target)
	case TypeString:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fitSigned(i, target)
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return fitUnsigned(u, target)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return fitFloat(math.Trunc(f), target)
		}
		return Value{}, evalerr.InvalidCast("cannot parse %q as %s", s, target)
	case TypeUInt32, TypeUInt64:
		return fitUnsigned(v.n, target)
	default: // signed integers, date, timestamp
		return fitSigned(int64(v.n), target)
	}
}

func fitSigned(i int64, target Type) (Value, error) {
	switch target {
	case TypeInt32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			break
		}
		return Int32(int32(i)), nil
	case TypeInt64:
		return Int64(i), nil
	case TypeUInt32:
		if i < 0 || i > math.MaxUint32 {
			break
		}
		return UInt32(uint32(i)), nil
	case TypeUInt64:
		if i < 0 {
			break
		}
		return UInt64(uint64(i)), nil
	}
	return Value{}, evalerr.InvalidCast("%d is out of range for %s", i, target)
}

func fitUnsigned(u uint64, target Type) (Value, error) {
	switch target {
	case TypeInt32:
		if u > math.MaxInt32 {
			break
		}
		return Int32(int32(u)), nil
	case TypeInt64:
		if u > math.MaxInt64 {
			break
		}
		return Int64(int64(u)), nil
	case TypeUInt32:
		if u > math.MaxUint32 {
			break
		}
		return UInt32(uint32(u)), nil
	case TypeUInt64:
		return UInt64(u), nil
	}
	return Value{}, evalerr.InvalidCast("%d is out of range for %s", u, target)
}

// fitFloat converts an already truncated float. Bounds are written as
// powers of two so they are exact in float64.
func fitFloat(f float64, target Type) (Value, error) {
	switch target {
	case TypeInt32:
		if f >= math.MinInt32 && f <= math.MaxInt32 {
			return Int32(int32(f)), nil
		}
	case TypeInt64:
		if f >= -(1<<63) && f < 1<<63 {
			return Int64(int64(f)), nil
		}
	case TypeUInt32:
		if f >= 0 && f <= math.MaxUint32 {
			return UInt32(uint32(f)), nil
		}
	case TypeUInt64:
		if f >= 0 && f < 1<<64 {
			return UInt64(uint64(f)), nil
		}
	}
	return Value{}, evalerr.InvalidCast("%v is out of range for %s", f, target)
}

func castToDouble(v Value) (Value, error) {
	if v.typ == TypeString {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return Value{}, evalerr.InvalidCast("cannot parse %q as double", v.s)
		}
		return Double(f), nil
	}
	f, err := v.AsFloat64()
	if err != nil {
		return Value{}, evalerr.InvalidCast("cannot cast %s to double", v.Type())
	}
	return Double(f), nil
}

func castToString(v Value, a *arena.Arena) (Value, error) {
	var buf [64]byte
	var out []byte
	switch v.typ {
	case TypeBool:
		return String(strconv.FormatBool(v.n == 1)), nil
	case TypeInt32, TypeInt64:
		out = strconv.AppendInt(buf[:0], int64(v.n), 10)
	case TypeUInt32, TypeUInt64:
		out = strconv.AppendUint(buf[:0], v.n, 10)
	case TypeDouble:
		out = strconv.AppendFloat(buf[:0], math.Float64frombits(v.n), 'g', -1, 64)
	case TypeDate:
		t, _ := v.AsTime()
		out = t.AppendFormat(buf[:0], time.DateOnly)
	case TypeTimestamp:
		t, _ := v.AsTime()
		out = t.AppendFormat(buf[:0], time.RFC3339Nano)
	default:
		return Value{}, evalerr.InvalidCast("cannot cast %s to string", v.Type())
	}
	if a == nil {
		return String(string(out)), nil
	}
	return ArenaString(a, a.String(out)), nil
}

func castToDate(v Value) (Value, error) {
	switch v.typ {
	case TypeTimestamp:
		ms := int64(v.n)
		days := ms / millisPerDay
		if ms%millisPerDay < 0 {
			days--
		}
		return fitDate(days)
	case TypeString:
		t, err := time.Parse(time.DateOnly, strings.TrimSpace(v.s))
		if err != nil {
			return Value{}, evalerr.InvalidCast("cannot parse %q as date", v.s)
		}
		return fitDate(t.Unix() / secondsPerDay)
	case TypeUInt32, TypeUInt64:
		if v.n > math.MaxInt32 {
			return Value{}, evalerr.InvalidCast("%d is out of range for date", v.n)
		}
		return Date(int32(v.n)), nil
	default:
		return fitDate(int64(v.n))
	}
}

func fitDate(days int64) (Value, error) {
	if days < math.MinInt32 || days > math.MaxInt32 {
		return Value{}, evalerr.InvalidCast("%d days is out of range for date", days)
	}
	return Date(int32(days)), nil
}

func castToTimestamp(v Value) (Value, error) {
	switch v.typ {
	case TypeDate:
		return Timestamp(int64(v.n) * millisPerDay), nil
	case TypeString:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v.s))
		if err != nil {
			return Value{}, evalerr.InvalidCast("cannot parse %q as timestamp", v.s)
		}
		return Timestamp(t.UnixMilli()), nil
	case TypeUInt64:
		if v.n > math.MaxInt64 {
			return Value{}, evalerr.InvalidCast("%d is out of range for timestamp", v.n)
		}
	}
	return Timestamp(int64(v.n)), nil
}
