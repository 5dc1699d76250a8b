// Package columns holds the per-batch intermediate results a traversal
// engine hands to expression evaluation: an ordered set of tagged columns,
// each addressed by row index.
//
// Columns are built by the caller and only read during evaluation.
package columns

import (
	"fmt"
	"sort"

	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/value"
)

// Kind classifies a column.
type Kind uint8

const (
	KindValue Kind = iota
	KindVertex
	KindEdge
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	case KindPath:
		return "path"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Column is one tagged column of the context.
type Column interface {
	Kind() Kind
	Size() int
	// ElemType is the runtime type of the column's entries.
	ElemType() value.Type
	// At returns the entry at row as a Value. Path entries are returned as
	// PathRef values pointing back at tag.
	At(tag, row int) value.Value
}

// ValueColumn holds scalar or list values of one declared type.
type ValueColumn struct {
	typ    value.Type
	values []value.Value
}

// NewValueColumn builds a column of values. typ is TypeUnknown for mixed
// columns.
func NewValueColumn(typ value.Type, values []value.Value) *ValueColumn {
	return &ValueColumn{typ: typ, values: values}
}

func (c *ValueColumn) Kind() Kind                { return KindValue }
func (c *ValueColumn) Size() int                 { return len(c.values) }
func (c *ValueColumn) ElemType() value.Type      { return c.typ }
func (c *ValueColumn) At(_, row int) value.Value { return c.values[row] }
func (c *ValueColumn) Values() []value.Value     { return c.values }

// VertexColumn holds vertex references, possibly of several labels.
// NullVID entries stand for the missing side of an optional match.
type VertexColumn struct {
	vertices []value.Vertex
	labels   []value.Label
}

// NewVertexColumn builds a vertex column and records its label set.
func NewVertexColumn(vertices []value.Vertex) *VertexColumn {
	seen := make(map[value.Label]struct{})
	var labels []value.Label
	for _, v := range vertices {
		if _, ok := seen[v.Label]; !ok {
			seen[v.Label] = struct{}{}
			labels = append(labels, v.Label)
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return &VertexColumn{vertices: vertices, labels: labels}
}

func (c *VertexColumn) Kind() Kind           { return KindVertex }
func (c *VertexColumn) Size() int            { return len(c.vertices) }
func (c *VertexColumn) ElemType() value.Type { return value.TypeVertex }

func (c *VertexColumn) At(_, row int) value.Value {
	return value.VertexValue(c.vertices[row])
}

// Vertex returns the vertex at row.
func (c *VertexColumn) Vertex(row int) value.Vertex { return c.vertices[row] }

// Labels returns the distinct labels present, ascending.
func (c *VertexColumn) Labels() []value.Label { return c.labels }

// EdgeColumn holds edges together with their property payloads.
type EdgeColumn struct {
	edges    []value.Edge
	triplets []value.LabelTriplet
}

// NewEdgeColumn builds an edge column and records its triplet set.
func NewEdgeColumn(edges []value.Edge) *EdgeColumn {
	seen := make(map[value.LabelTriplet]struct{})
	var triplets []value.LabelTriplet
	for _, e := range edges {
		if _, ok := seen[e.Triplet]; !ok {
			seen[e.Triplet] = struct{}{}
			triplets = append(triplets, e.Triplet)
		}
	}
	return &EdgeColumn{edges: edges, triplets: triplets}
}

func (c *EdgeColumn) Kind() Kind           { return KindEdge }
func (c *EdgeColumn) Size() int            { return len(c.edges) }
func (c *EdgeColumn) ElemType() value.Type { return value.TypeEdge }

func (c *EdgeColumn) At(_, row int) value.Value {
	return value.EdgeValue(nil, c.edges[row])
}

// Edge returns the edge at row.
func (c *EdgeColumn) Edge(row int) value.Edge { return c.edges[row] }

// Triplets returns the distinct edge types present, in first-seen order.
func (c *EdgeColumn) Triplets() []value.LabelTriplet { return c.triplets }

// Path is an alternating walk: len(Edges) == len(Vertices)-1.
type Path struct {
	Vertices []value.Vertex
	Edges    []value.Edge
}

// Len is the number of hops.
func (p Path) Len() int { return len(p.Edges) }

// Start returns the first vertex.
func (p Path) Start() value.Vertex { return p.Vertices[0] }

// End returns the last vertex.
func (p Path) End() value.Vertex { return p.Vertices[len(p.Vertices)-1] }

// PathColumn holds one path per row.
type PathColumn struct {
	paths []Path
}

// NewPathColumn validates and wraps paths.
func NewPathColumn(paths []Path) (*PathColumn, error) {
	for i, p := range paths {
		if len(p.Vertices) == 0 || len(p.Edges) != len(p.Vertices)-1 {
			return nil, evalerr.ContextMismatch("path %d has %d vertices and %d edges", i, len(p.Vertices), len(p.Edges))
		}
	}
	return &PathColumn{paths: paths}, nil
}

func (c *PathColumn) Kind() Kind           { return KindPath }
func (c *PathColumn) Size() int            { return len(c.paths) }
func (c *PathColumn) ElemType() value.Type { return value.TypePath }

func (c *PathColumn) At(tag, row int) value.Value {
	return value.PathValue(value.PathRef{Tag: tag, Row: row})
}

// Path returns the path at row.
func (c *PathColumn) Path(row int) Path { return c.paths[row] }

// Context is the ordered set of tagged columns for the current batch.
// All columns have the same number of rows.
type Context struct {
	cols  map[int]Column
	order []int
	rows  int
}

// New creates an empty context.
func New() *Context {
	return &Context{cols: make(map[int]Column)}
}

// Set binds col to tag, replacing any previous column with that tag.
func (c *Context) Set(tag int, col Column) error {
	if tag < 0 {
		return evalerr.ContextMismatch("column tag %d is negative", tag)
	}
	if len(c.cols) > 0 {
		_, replacing := c.cols[tag]
		if !(replacing && len(c.cols) == 1) && col.Size() != c.rows {
			return evalerr.ContextMismatch("column %d has %d rows, context has %d", tag, col.Size(), c.rows)
		}
	}
	if _, exists := c.cols[tag]; !exists {
		c.order = append(c.order, tag)
	}
	c.cols[tag] = col
	c.rows = col.Size()
	return nil
}

// Get returns the column bound to tag.
func (c *Context) Get(tag int) (Column, bool) {
	if c == nil {
		return nil, false
	}
	col, ok := c.cols[tag]
	return col, ok
}

// Tags returns the bound tags in insertion order.
func (c *Context) Tags() []int {
	if c == nil {
		return nil
	}
	return append([]int(nil), c.order...)
}

// RowCount returns the number of rows in the batch.
func (c *Context) RowCount() int {
	if c == nil {
		return 0
	}
	return c.rows
}
