// Package value implements the tagged runtime value produced by expression
// evaluation, together with the graph identity types it carries.
//
// A Value is a small struct whose Type tag always agrees with its payload.
// Scalars are stored inline. Strings, lists and edge records may live in an
// arena; such values carry the arena Generation they were allocated in and
// must not be used after that arena is reset.
package value

import (
	"fmt"
	"math"
)

// Type is the runtime type tag of a Value.
type Type uint8

const (
	// TypeUnknown is only used as a static type when it cannot be derived
	// at construction time. No runtime Value has this type.
	TypeUnknown Type = iota
	TypeNull
	TypeBool
	TypeInt32
	TypeInt64
	TypeUInt32
	TypeUInt64
	TypeDouble
	TypeString
	TypeList
	TypeVertex
	TypeEdge
	TypePath
	TypeDate      // days since the Unix epoch
	TypeTimestamp // milliseconds since the Unix epoch
)

var typeNames = [...]string{
	TypeUnknown:   "unknown",
	TypeNull:      "null",
	TypeBool:      "bool",
	TypeInt32:     "int32",
	TypeInt64:     "int64",
	TypeUInt32:    "uint32",
	TypeUInt64:    "uint64",
	TypeDouble:    "double",
	TypeString:    "string",
	TypeList:      "list",
	TypeVertex:    "vertex",
	TypeEdge:      "edge",
	TypePath:      "path",
	TypeDate:      "date",
	TypeTimestamp: "timestamp",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType maps a type name (as printed by Type.String) back to a Type.
func ParseType(name string) (Type, bool) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), true
		}
	}
	return TypeUnknown, false
}

// IsInteger reports whether t is one of the integer types.
func (t Type) IsInteger() bool {
	return t == TypeInt32 || t == TypeInt64 || t == TypeUInt32 || t == TypeUInt64
}

// IsUnsigned reports whether t is an unsigned integer type.
func (t Type) IsUnsigned() bool {
	return t == TypeUInt32 || t == TypeUInt64
}

// IsNumeric reports whether t is an integer type or Double.
func (t Type) IsNumeric() bool {
	return t.IsInteger() || t == TypeDouble
}

// Label identifies a vertex label or edge label in the graph schema.
type Label uint8

// VID is an internal vertex id, dense per label.
type VID uint32

// NullVID marks the absent vertex of an optional match.
const NullVID VID = math.MaxUint32

// LabelTriplet identifies an edge type by its endpoint labels and its own
// label. It is comparable and used directly as a map and filter key.
type LabelTriplet struct {
	Src  Label
	Edge Label
	Dst  Label
}

func (t LabelTriplet) String() string {
	return fmt.Sprintf("(%d)-[%d]->(%d)", t.Src, t.Edge, t.Dst)
}

// Vertex references a vertex by label and internal id.
type Vertex struct {
	Label Label
	ID    VID
}

// IsNull reports whether v is the absent vertex of an optional match.
func (v Vertex) IsNull() bool { return v.ID == NullVID }

func (v Vertex) String() string {
	if v.IsNull() {
		return "v(null)"
	}
	return fmt.Sprintf("v(%d:%d)", v.Label, v.ID)
}

// Edge references an edge by type and endpoints, plus its property payload.
// Data holds the single property value, a List of values in schema order
// when the edge type has several properties, or Null when it has none.
type Edge struct {
	Triplet LabelTriplet
	Src     VID
	Dst     VID
	Data    Value
}

func (e Edge) String() string {
	return fmt.Sprintf("e(%d:%d-[%d]->%d:%d)", e.Triplet.Src, e.Src, e.Triplet.Edge, e.Triplet.Dst, e.Dst)
}

// PathRef references a path stored in a context column.
type PathRef struct {
	Tag int
	Row int
}

func (p PathRef) String() string {
	return fmt.Sprintf("path(%d@%d)", p.Tag, p.Row)
}
