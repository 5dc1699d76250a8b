package graph

import (
	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/value"
)

// Reader is the read-only graph access consumed by expression evaluation.
//
// All methods must be safe to call concurrently from many workers against
// the same snapshot. Values returned never point into an evaluation arena.
type Reader interface {
	// Schema returns the label and property catalogue.
	Schema() *Schema

	// VertexCount returns the number of vertices carrying label.
	VertexCount(label value.Label) int

	// VertexExists reports whether (label, vid) is a vertex.
	VertexExists(label value.Label, vid value.VID) bool

	// EdgeExists reports whether an edge of type t connects src to dst.
	EdgeExists(t value.LabelTriplet, src, dst value.VID) bool

	// VertexProperty reads one property. A key missing from the label's
	// schema is a PropertyNotFound error; an unset value is Null.
	VertexProperty(label value.Label, vid value.VID, key string) (value.Value, error)

	// EdgeProperty reads one property of an edge.
	EdgeProperty(t value.LabelTriplet, src, dst value.VID, key string) (value.Value, error)

	// VertexPropertyColumn resolves (label, key) once so the hot path can
	// read by vid without string lookups.
	VertexPropertyColumn(label value.Label, key string) (PropertyColumn, error)
}

// PropertyColumn reads one property of one vertex label by vid. Missing
// vertices read as Null; a failing store returns its error.
type PropertyColumn interface {
	Get(vid value.VID) (value.Value, error)
}

// ColumnFunc adapts a function to PropertyColumn.
type ColumnFunc func(vid value.VID) (value.Value, error)

// Get implements PropertyColumn.
func (f ColumnFunc) Get(vid value.VID) (value.Value, error) { return f(vid) }

// EdgeDataProperty extracts property idx from an edge payload laid out per
// the schema: the value itself for single-property edge types, a List in
// schema order otherwise.
func EdgeDataProperty(props []PropertyDef, data value.Value, idx int) (value.Value, error) {
	if len(props) == 1 {
		return data, nil
	}
	if data.IsNull() {
		return value.Null(), nil
	}
	items, err := data.AsList()
	if err != nil {
		return value.Value{}, err
	}
	if idx >= len(items) {
		return value.Value{}, evalerr.ContextMismatch("edge payload has %d values, property %d requested", len(items), idx)
	}
	return items[idx], nil
}

// EdgeData packs edge property values into the payload layout used by
// EdgeDataProperty.
func EdgeData(values []value.Value) value.Value {
	switch len(values) {
	case 0:
		return value.Null()
	case 1:
		return values[0]
	default:
		return value.List(values)
	}
}

// ConvertProperty converts a native value into a property of type t.
func ConvertProperty(def PropertyDef, raw any) (value.Value, error) {
	v, err := value.FromGo(raw)
	if err != nil {
		return value.Value{}, err
	}
	return value.Cast(v, def.Type, nil)
}
