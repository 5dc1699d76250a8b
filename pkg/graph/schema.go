// Package graph defines the read-only graph access the evaluation core
// consumes, and provides in-memory and BadgerDB-backed implementations.
//
// The core never mutates a graph. Implementations must be safe for
// concurrent reads against the same snapshot.
package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/orneryd/nornicrt/pkg/value"
)

// Schema errors
var (
	ErrLabelExists    = errors.New("graph: label already defined")
	ErrUnknownLabel   = errors.New("graph: unknown label")
	ErrTooManyLabels  = errors.New("graph: label id space exhausted")
	ErrVertexNotFound = errors.New("graph: vertex not found")
	ErrEdgeNotFound   = errors.New("graph: edge not found")
	ErrDuplicate      = errors.New("graph: element already exists")
	ErrClosed         = errors.New("graph: closed")
)

// PropertyDef declares a property name and its value type.
type PropertyDef struct {
	Name string
	Type value.Type
}

// Schema holds vertex labels, edge types and their property definitions.
// A Schema is built before loading data and treated as immutable afterwards.
type Schema struct {
	vertexLabels []string
	vertexIndex  map[string]value.Label
	vertexProps  [][]PropertyDef

	edgeLabels []string
	edgeIndex  map[string]value.Label
	edgeProps  map[value.LabelTriplet][]PropertyDef
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{
		vertexIndex: make(map[string]value.Label),
		edgeIndex:   make(map[string]value.Label),
		edgeProps:   make(map[value.LabelTriplet][]PropertyDef),
	}
}

// AddVertexLabel defines a vertex label with its properties.
func (s *Schema) AddVertexLabel(name string, props ...PropertyDef) (value.Label, error) {
	if _, ok := s.vertexIndex[name]; ok {
		return 0, fmt.Errorf("%w: vertex label %q", ErrLabelExists, name)
	}
	if len(s.vertexLabels) > math.MaxUint8 {
		return 0, ErrTooManyLabels
	}
	l := value.Label(len(s.vertexLabels))
	s.vertexLabels = append(s.vertexLabels, name)
	s.vertexIndex[name] = l
	s.vertexProps = append(s.vertexProps, append([]PropertyDef(nil), props...))
	return l, nil
}

// AddEdgeType defines an edge type between two existing vertex labels. The
// edge label is created on first use and shared across triplets.
func (s *Schema) AddEdgeType(src, edge, dst string, props ...PropertyDef) (value.LabelTriplet, error) {
	sl, ok := s.vertexIndex[src]
	if !ok {
		return value.LabelTriplet{}, fmt.Errorf("%w: vertex label %q", ErrUnknownLabel, src)
	}
	dl, ok := s.vertexIndex[dst]
	if !ok {
		return value.LabelTriplet{}, fmt.Errorf("%w: vertex label %q", ErrUnknownLabel, dst)
	}
	el, ok := s.edgeIndex[edge]
	if !ok {
		if len(s.edgeLabels) > math.MaxUint8 {
			return value.LabelTriplet{}, ErrTooManyLabels
		}
		el = value.Label(len(s.edgeLabels))
		s.edgeLabels = append(s.edgeLabels, edge)
		s.edgeIndex[edge] = el
	}
	t := value.LabelTriplet{Src: sl, Edge: el, Dst: dl}
	if _, exists := s.edgeProps[t]; exists {
		return t, fmt.Errorf("%w: edge type %s-[%s]->%s", ErrLabelExists, src, edge, dst)
	}
	s.edgeProps[t] = append([]PropertyDef{}, props...)
	return t, nil
}

// VertexLabel resolves a vertex label name.
func (s *Schema) VertexLabel(name string) (value.Label, bool) {
	l, ok := s.vertexIndex[name]
	return l, ok
}

// EdgeLabel resolves an edge label name.
func (s *Schema) EdgeLabel(name string) (value.Label, bool) {
	l, ok := s.edgeIndex[name]
	return l, ok
}

// VertexLabelName returns the name of a vertex label, or "" if undefined.
func (s *Schema) VertexLabelName(l value.Label) string {
	if int(l) < len(s.vertexLabels) {
		return s.vertexLabels[l]
	}
	return ""
}

// EdgeLabelName returns the name of an edge label, or "" if undefined.
func (s *Schema) EdgeLabelName(l value.Label) string {
	if int(l) < len(s.edgeLabels) {
		return s.edgeLabels[l]
	}
	return ""
}

// VertexLabelCount returns the number of vertex labels.
func (s *Schema) VertexLabelCount() int { return len(s.vertexLabels) }

// Triplet resolves an edge type by names.
func (s *Schema) Triplet(src, edge, dst string) (value.LabelTriplet, bool) {
	sl, ok1 := s.vertexIndex[src]
	el, ok2 := s.edgeIndex[edge]
	dl, ok3 := s.vertexIndex[dst]
	if !ok1 || !ok2 || !ok3 {
		return value.LabelTriplet{}, false
	}
	t := value.LabelTriplet{Src: sl, Edge: el, Dst: dl}
	_, ok := s.edgeProps[t]
	return t, ok
}

// Triplets returns every defined edge type in a stable order.
func (s *Schema) Triplets() []value.LabelTriplet {
	out := make([]value.LabelTriplet, 0, len(s.edgeProps))
	for t := range s.edgeProps {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		if a.Edge != b.Edge {
			return a.Edge < b.Edge
		}
		return a.Dst < b.Dst
	})
	return out
}

// VertexProperties returns the property definitions of a vertex label.
func (s *Schema) VertexProperties(l value.Label) []PropertyDef {
	if int(l) < len(s.vertexProps) {
		return s.vertexProps[l]
	}
	return nil
}

// VertexPropertyIndex finds a property's position on a vertex label.
func (s *Schema) VertexPropertyIndex(l value.Label, name string) (int, bool) {
	for i, p := range s.VertexProperties(l) {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

// EdgeProperties returns the property definitions of an edge type.
func (s *Schema) EdgeProperties(t value.LabelTriplet) ([]PropertyDef, bool) {
	props, ok := s.edgeProps[t]
	return props, ok
}

// EdgePropertyIndex finds a property's position on an edge type.
func (s *Schema) EdgePropertyIndex(t value.LabelTriplet, name string) (int, bool) {
	props, _ := s.edgeProps[t]
	for i, p := range props {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

// VertexElementName renders a vertex for error messages.
func (s *Schema) VertexElementName(l value.Label, vid value.VID) string {
	name := s.VertexLabelName(l)
	if name == "" {
		name = fmt.Sprintf("label(%d)", l)
	}
	return fmt.Sprintf("%s#%d", name, vid)
}

// TripletName renders an edge type for error messages.
func (s *Schema) TripletName(t value.LabelTriplet) string {
	return fmt.Sprintf("(%s)-[%s]->(%s)", s.VertexLabelName(t.Src), s.EdgeLabelName(t.Edge), s.VertexLabelName(t.Dst))
}
