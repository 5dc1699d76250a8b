package value

import (
	"math"
	"time"

	"github.com/orneryd/nornicrt/pkg/evalerr"
)

// FromGo converts a native Go value into a Value. It is used at the edges of
// the core: query parameters, fixtures, and tooling. The result never points
// into an arena.
func FromGo(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int64(int64(t)), nil
	case int8:
		return Int32(int32(t)), nil
	case int16:
		return Int32(int32(t)), nil
	case int32:
		return Int32(t), nil
	case int64:
		return Int64(t), nil
	case uint:
		return UInt64(uint64(t)), nil
	case uint8:
		return UInt32(uint32(t)), nil
	case uint16:
		return UInt32(uint32(t)), nil
	case uint32:
		return UInt32(t), nil
	case uint64:
		return UInt64(t), nil
	case float32:
		return Double(float64(t)), nil
	case float64:
		return Double(t), nil
	case string:
		return String(t), nil
	case time.Time:
		return Timestamp(t.UnixMilli()), nil
	case Vertex:
		return VertexValue(t), nil
	case Edge:
		return EdgeValue(nil, t), nil
	case PathRef:
		return PathValue(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromGo(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return List(items), nil
	case []int64:
		items := make([]Value, len(t))
		for i, n := range t {
			items[i] = Int64(n)
		}
		return List(items), nil
	case []float64:
		items := make([]Value, len(t))
		for i, f := range t {
			items[i] = Double(f)
		}
		return List(items), nil
	default:
		return Value{}, evalerr.TypeMismatch("unsupported Go type %T", x)
	}
}

// ToGo converts v into a native Go value detached from any arena.
// Dates and timestamps become time.Time; graph references stay as their
// value types.
func (v Value) ToGo() any {
	switch v.Type() {
	case TypeBool:
		return v.n == 1
	case TypeInt32:
		return int32(v.n)
	case TypeInt64:
		return int64(v.n)
	case TypeUInt32:
		return uint32(v.n)
	case TypeUInt64:
		return v.n
	case TypeDouble:
		return math.Float64frombits(v.n)
	case TypeString:
		v.gen.Check()
		return string([]byte(v.s))
	case TypeList:
		v.gen.Check()
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToGo()
		}
		return out
	case TypeVertex:
		return v.vtx
	case TypeEdge:
		v.gen.Check()
		e := *v.edge
		e.Data = e.Data.Detach()
		return e
	case TypePath:
		return PathRef{Tag: int(v.tag), Row: int(v.n)}
	case TypeDate, TypeTimestamp:
		t, _ := v.AsTime()
		return t
	default:
		return nil
	}
}

// Detach returns a copy of v that owns no arena memory, so it may outlive
// the batch it was produced in.
func (v Value) Detach() Value {
	switch v.typ {
	case TypeString:
		if v.gen.IsZero() {
			return v
		}
		v.gen.Check()
		return String(string([]byte(v.s)))
	case TypeList:
		v.gen.Check()
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Detach()
		}
		return List(items)
	case TypeEdge:
		v.gen.Check()
		e := *v.edge
		e.Data = e.Data.Detach()
		return EdgeValue(nil, e)
	default:
		return v
	}
}
