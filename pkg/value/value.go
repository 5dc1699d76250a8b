package value

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/evalerr"
)

// Value is the tagged runtime value (RTAny).
//
// The zero Value is Null.
type Value struct {
	typ  Type
	n    uint64 // bool, integers, double bits, date, timestamp, path row
	tag  int32  // path column tag
	s    string
	list []Value
	vtx  Vertex
	edge *Edge
	gen  arena.Generation
}

// Null returns the null value.
func Null() Value { return Value{typ: TypeNull} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{typ: TypeBool}
	if b {
		v.n = 1
	}
	return v
}

// Int32 returns a 32-bit signed integer value.
func Int32(i int32) Value { return Value{typ: TypeInt32, n: uint64(int64(i))} }

// Int64 returns a 64-bit signed integer value.
func Int64(i int64) Value { return Value{typ: TypeInt64, n: uint64(i)} }

// UInt32 returns a 32-bit unsigned integer value.
func UInt32(u uint32) Value { return Value{typ: TypeUInt32, n: uint64(u)} }

// UInt64 returns a 64-bit unsigned integer value.
func UInt64(u uint64) Value { return Value{typ: TypeUInt64, n: u} }

// Double returns a double value.
func Double(f float64) Value { return Value{typ: TypeDouble, n: math.Float64bits(f)} }

// Date returns a date value counted in days since the Unix epoch.
func Date(days int32) Value { return Value{typ: TypeDate, n: uint64(int64(days))} }

// Timestamp returns a timestamp value in milliseconds since the Unix epoch.
func Timestamp(ms int64) Value { return Value{typ: TypeTimestamp, n: uint64(ms)} }

// String returns a string value for s, which must not be arena memory.
// Use ArenaString for strings that live in an arena.
func String(s string) Value { return Value{typ: TypeString, s: s} }

// ArenaString wraps s, which must already live in a, stamping a's generation.
func ArenaString(a *arena.Arena, s string) Value {
	return Value{typ: TypeString, s: s, gen: a.Generation()}
}

// CopyString copies s into a and returns the arena-backed string value.
func CopyString(a *arena.Arena, s string) Value {
	if a == nil {
		return String(strings.Clone(s))
	}
	return Value{typ: TypeString, s: a.Concat(s), gen: a.Generation()}
}

// Derive returns a string value for s, a substring of v's payload, owned by
// the same arena generation as v.
func (v Value) Derive(s string) Value {
	return Value{typ: TypeString, s: s, gen: v.gen}
}

// List returns a list value over items, which must not be arena memory.
func List(items []Value) Value { return Value{typ: TypeList, list: items} }

// ArenaList wraps items, allocated from a, stamping a's generation.
func ArenaList(a *arena.Arena, items []Value) Value {
	return Value{typ: TypeList, list: items, gen: a.Generation()}
}

// NewList allocates a list of n null elements from a. A nil arena falls back
// to the Go heap.
func NewList(a *arena.Arena, n int) Value {
	if a == nil {
		return List(make([]Value, n))
	}
	return ArenaList(a, arena.MakeSlice[Value](a, n))
}

// VertexValue wraps a vertex reference.
func VertexValue(v Vertex) Value { return Value{typ: TypeVertex, vtx: v} }

// EdgeValue wraps an edge record, allocating it from a when a is non-nil.
func EdgeValue(a *arena.Arena, e Edge) Value {
	if a == nil {
		rec := e
		return Value{typ: TypeEdge, edge: &rec}
	}
	rec := arena.MakeSlice[Edge](a, 1)
	rec[0] = e
	return Value{typ: TypeEdge, edge: &rec[0], gen: a.Generation()}
}

// PathValue wraps a path reference.
func PathValue(p PathRef) Value {
	return Value{typ: TypePath, tag: int32(p.Tag), n: uint64(p.Row)}
}

// Type returns the runtime type tag.
func (v Value) Type() Type {
	if v.typ == TypeUnknown {
		return TypeNull
	}
	return v.typ
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.typ == TypeNull || v.typ == TypeUnknown }

// Live reports whether arena memory behind v is still valid.
func (v Value) Live() bool { return v.gen.Valid() }

// Generation returns the arena generation backing v (zero for inline values).
func (v Value) Generation() arena.Generation { return v.gen }

// AsBool is the truthiness coercion used by predicates: Bool is itself,
// Null is false, and every other type is a TypeMismatch. There is no implicit
// numeric or string truthiness.
func (v Value) AsBool() (bool, error) {
	switch v.Type() {
	case TypeBool:
		return v.n == 1, nil
	case TypeNull:
		return false, nil
	default:
		return false, evalerr.TypeMismatch("expected bool, got %s", v.Type())
	}
}

// AsInt64 returns an integer value widened to int64.
func (v Value) AsInt64() (int64, error) {
	switch v.typ {
	case TypeInt32, TypeInt64, TypeUInt32:
		return int64(v.n), nil
	case TypeUInt64:
		if v.n > math.MaxInt64 {
			return 0, evalerr.TypeMismatch("uint64 %d overflows int64", v.n)
		}
		return int64(v.n), nil
	default:
		return 0, evalerr.TypeMismatch("expected integer, got %s", v.Type())
	}
}

// AsUInt64 returns a non-negative integer value widened to uint64.
func (v Value) AsUInt64() (uint64, error) {
	switch v.typ {
	case TypeUInt32, TypeUInt64:
		return v.n, nil
	case TypeInt32, TypeInt64:
		if int64(v.n) < 0 {
			return 0, evalerr.TypeMismatch("%d is negative", int64(v.n))
		}
		return v.n, nil
	default:
		return 0, evalerr.TypeMismatch("expected integer, got %s", v.Type())
	}
}

// AsFloat64 returns a numeric value widened to float64.
func (v Value) AsFloat64() (float64, error) {
	switch v.typ {
	case TypeDouble:
		return math.Float64frombits(v.n), nil
	case TypeInt32, TypeInt64:
		return float64(int64(v.n)), nil
	case TypeUInt32, TypeUInt64:
		return float64(v.n), nil
	default:
		return 0, evalerr.TypeMismatch("expected number, got %s", v.Type())
	}
}

// AsString returns the string payload.
func (v Value) AsString() (string, error) {
	if v.typ != TypeString {
		return "", evalerr.TypeMismatch("expected string, got %s", v.Type())
	}
	v.gen.Check()
	return v.s, nil
}

// AsList returns the list elements. The slice must not be modified.
func (v Value) AsList() ([]Value, error) {
	if v.typ != TypeList {
		return nil, evalerr.TypeMismatch("expected list, got %s", v.Type())
	}
	v.gen.Check()
	return v.list, nil
}

// AsVertex returns the vertex reference.
func (v Value) AsVertex() (Vertex, error) {
	if v.typ != TypeVertex {
		return Vertex{}, evalerr.TypeMismatch("expected vertex, got %s", v.Type())
	}
	return v.vtx, nil
}

// AsEdge returns the edge record.
func (v Value) AsEdge() (Edge, error) {
	if v.typ != TypeEdge {
		return Edge{}, evalerr.TypeMismatch("expected edge, got %s", v.Type())
	}
	v.gen.Check()
	return *v.edge, nil
}

// AsPath returns the path reference.
func (v Value) AsPath() (PathRef, error) {
	if v.typ != TypePath {
		return PathRef{}, evalerr.TypeMismatch("expected path, got %s", v.Type())
	}
	return PathRef{Tag: int(v.tag), Row: int(v.n)}, nil
}

// AsTime returns a Date or Timestamp as a UTC time.
func (v Value) AsTime() (time.Time, error) {
	switch v.typ {
	case TypeDate:
		return time.Unix(int64(v.n)*secondsPerDay, 0).UTC(), nil
	case TypeTimestamp:
		return time.UnixMilli(int64(v.n)).UTC(), nil
	default:
		return time.Time{}, evalerr.TypeMismatch("expected date or timestamp, got %s", v.Type())
	}
}

const (
	secondsPerDay = 86400
	millisPerDay  = secondsPerDay * 1000
)

// String renders v for diagnostics.
func (v Value) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v Value) format(b *strings.Builder) {
	switch v.Type() {
	case TypeNull:
		b.WriteString("null")
	case TypeBool:
		b.WriteString(strconv.FormatBool(v.n == 1))
	case TypeInt32, TypeInt64:
		b.WriteString(strconv.FormatInt(int64(v.n), 10))
	case TypeUInt32, TypeUInt64:
		b.WriteString(strconv.FormatUint(v.n, 10))
	case TypeDouble:
		b.WriteString(strconv.FormatFloat(math.Float64frombits(v.n), 'g', -1, 64))
	case TypeString:
		if !v.gen.Valid() {
			b.WriteString("<reset>")
			return
		}
		b.WriteString(strconv.Quote(v.s))
	case TypeList:
		if !v.gen.Valid() {
			b.WriteString("<reset>")
			return
		}
		b.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				b.WriteString(", ")
			}
			item.format(b)
		}
		b.WriteByte(']')
	case TypeVertex:
		b.WriteString(v.vtx.String())
	case TypeEdge:
		if !v.gen.Valid() {
			b.WriteString("<reset>")
			return
		}
		b.WriteString(v.edge.String())
	case TypePath:
		b.WriteString(PathRef{Tag: int(v.tag), Row: int(v.n)}.String())
	case TypeDate:
		t, _ := v.AsTime()
		b.WriteString(t.Format(time.DateOnly))
	case TypeTimestamp:
		t, _ := v.AsTime()
		b.WriteString(t.Format("2006-01-02T15:04:05.000Z07:00"))
	}
}
