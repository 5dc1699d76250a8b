package graph

import (
	"fmt"
	"math"
	"sync"

	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/value"
)

// MemoryGraph is a thread-safe in-memory graph.
// It's useful for:
// - Unit testing (no disk I/O)
// - Fixtures loaded from YAML
// - Small datasets that fit in RAM
//
// Vertex properties are stored column-wise per label, indexed by vid.
type MemoryGraph struct {
	mu     sync.RWMutex
	schema *Schema

	vertices []*labelStore
	edges    map[value.LabelTriplet]*edgeStore
}

type labelStore struct {
	oids     []string
	oidIndex map[string]value.VID
	columns  [][]value.Value // columns[prop][vid]
}

type memEdgeKey struct {
	src, dst value.VID
}

type edgeStore struct {
	index map[memEdgeKey]int
	list  []value.Edge
}

// NewMemoryGraph creates an empty graph over schema. The schema must not be
// changed afterwards.
func NewMemoryGraph(schema *Schema) *MemoryGraph {
	g := &MemoryGraph{
		schema:   schema,
		vertices: make([]*labelStore, schema.VertexLabelCount()),
		edges:    make(map[value.LabelTriplet]*edgeStore),
	}
	for i := range g.vertices {
		g.vertices[i] = &labelStore{
			oidIndex: make(map[string]value.VID),
			columns:  make([][]value.Value, len(schema.VertexProperties(value.Label(i)))),
		}
	}
	for _, t := range schema.Triplets() {
		g.edges[t] = &edgeStore{index: make(map[memEdgeKey]int)}
	}
	return g
}

// AddVertex inserts a vertex identified by an external id and returns its
// internal vid. Properties not in the schema are rejected; missing ones are
// stored as Null.
func (g *MemoryGraph) AddVertex(label value.Label, oid string, props map[string]value.Value) (value.VID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if int(label) >= len(g.vertices) {
		return 0, fmt.Errorf("%w: vertex label %d", ErrUnknownLabel, label)
	}
	ls := g.vertices[label]
	if _, exists := ls.oidIndex[oid]; exists {
		return 0, fmt.Errorf("%w: %s %q", ErrDuplicate, g.schema.VertexLabelName(label), oid)
	}
	if len(ls.oids) >= math.MaxUint32-1 {
		return 0, fmt.Errorf("graph: vid space exhausted for %s", g.schema.VertexLabelName(label))
	}

	defs := g.schema.VertexProperties(label)
	row := make([]value.Value, len(defs))
	for i := range row {
		row[i] = value.Null()
	}
	for k, v := range props {
		idx, ok := g.schema.VertexPropertyIndex(label, k)
		if !ok {
			return 0, evalerr.PropertyNotFound(g.schema.VertexLabelName(label), k)
		}
		if v.IsNull() {
			continue
		}
		row[idx] = v.Detach()
	}

	vid := value.VID(len(ls.oids))
	ls.oids = append(ls.oids, oid)
	ls.oidIndex[oid] = vid
	for i := range ls.columns {
		ls.columns[i] = append(ls.columns[i], row[i])
	}
	return vid, nil
}

// AddEdge inserts an edge of type t. data is laid out as EdgeData produces.
func (g *MemoryGraph) AddEdge(t value.LabelTriplet, src, dst value.VID, data value.Value) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	es, ok := g.edges[t]
	if !ok {
		return fmt.Errorf("%w: edge type %s", ErrUnknownLabel, g.schema.TripletName(t))
	}
	if !g.vertexExistsLocked(t.Src, src) || !g.vertexExistsLocked(t.Dst, dst) {
		return fmt.Errorf("%w: edge endpoint %d->%d", ErrVertexNotFound, src, dst)
	}
	k := memEdgeKey{src, dst}
	if _, exists := es.index[k]; exists {
		return fmt.Errorf("%w: edge %s %d->%d", ErrDuplicate, g.schema.TripletName(t), src, dst)
	}
	es.index[k] = len(es.list)
	es.list = append(es.list, value.Edge{Triplet: t, Src: src, Dst: dst, Data: data.Detach()})
	return nil
}

// LookupVertex resolves an external id to a vid.
func (g *MemoryGraph) LookupVertex(label value.Label, oid string) (value.VID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if int(label) >= len(g.vertices) {
		return 0, false
	}
	vid, ok := g.vertices[label].oidIndex[oid]
	return vid, ok
}

// ExternalID returns the external id of a vertex, or "" if it does not exist.
func (g *MemoryGraph) ExternalID(label value.Label, vid value.VID) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.vertexExistsLocked(label, vid) {
		return ""
	}
	return g.vertices[label].oids[vid]
}

// Edges returns a copy of all edges of type t in insertion order.
func (g *MemoryGraph) Edges(t value.LabelTriplet) []value.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	es, ok := g.edges[t]
	if !ok {
		return nil
	}
	return append([]value.Edge(nil), es.list...)
}

// VertexProperties returns all stored property values of a vertex in schema
// order.
func (g *MemoryGraph) VertexProperties(label value.Label, vid value.VID) ([]value.Value, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.vertexExistsLocked(label, vid) {
		return nil, fmt.Errorf("%w: %s", ErrVertexNotFound, g.schema.VertexElementName(label, vid))
	}
	ls := g.vertices[label]
	out := make([]value.Value, len(ls.columns))
	for i, col := range ls.columns {
		out[i] = col[vid]
	}
	return out, nil
}

// Schema implements Reader.
func (g *MemoryGraph) Schema() *Schema { return g.schema }

// VertexCount implements Reader.
func (g *MemoryGraph) VertexCount(label value.Label) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if int(label) >= len(g.vertices) {
		return 0
	}
	return len(g.vertices[label].oids)
}

// VertexExists implements Reader.
func (g *MemoryGraph) VertexExists(label value.Label, vid value.VID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.vertexExistsLocked(label, vid)
}

func (g *MemoryGraph) vertexExistsLocked(label value.Label, vid value.VID) bool {
	return int(label) < len(g.vertices) && vid != value.NullVID && int(vid) < len(g.vertices[label].oids)
}

// EdgeExists implements Reader.
func (g *MemoryGraph) EdgeExists(t value.LabelTriplet, src, dst value.VID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	es, ok := g.edges[t]
	if !ok {
		return false
	}
	_, ok = es.index[memEdgeKey{src, dst}]
	return ok
}

// VertexProperty implements Reader.
func (g *MemoryGraph) VertexProperty(label value.Label, vid value.VID, key string) (value.Value, error) {
	idx, ok := g.schema.VertexPropertyIndex(label, key)
	if !ok {
		return value.Value{}, evalerr.PropertyNotFound(g.schema.VertexElementName(label, vid), key)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.vertexExistsLocked(label, vid) {
		return value.Value{}, fmt.Errorf("%w: %s", ErrVertexNotFound, g.schema.VertexElementName(label, vid))
	}
	return g.vertices[label].columns[idx][vid], nil
}

// EdgeProperty implements Reader.
func (g *MemoryGraph) EdgeProperty(t value.LabelTriplet, src, dst value.VID, key string) (value.Value, error) {
	props, ok := g.schema.EdgeProperties(t)
	if !ok {
		return value.Value{}, fmt.Errorf("%w: edge type %s", ErrUnknownLabel, g.schema.TripletName(t))
	}
	idx, ok := g.schema.EdgePropertyIndex(t, key)
	if !ok {
		return value.Value{}, evalerr.PropertyNotFound(g.schema.TripletName(t), key)
	}
	g.mu.RLock()
	es := g.edges[t]
	pos, found := es.index[memEdgeKey{src, dst}]
	var data value.Value
	if found {
		data = es.list[pos].Data
	}
	g.mu.RUnlock()
	if !found {
		return value.Value{}, fmt.Errorf("%w: %s %d->%d", ErrEdgeNotFound, g.schema.TripletName(t), src, dst)
	}
	return EdgeDataProperty(props, data, idx)
}

// VertexPropertyColumn implements Reader. The returned column sees vertices
// present when it was resolved.
func (g *MemoryGraph) VertexPropertyColumn(label value.Label, key string) (PropertyColumn, error) {
	idx, ok := g.schema.VertexPropertyIndex(label, key)
	if !ok {
		return nil, evalerr.PropertyNotFound(g.schema.VertexLabelName(label), key)
	}
	g.mu.RLock()
	col := g.vertices[label].columns[idx]
	g.mu.RUnlock()
	return sliceColumn(col), nil
}

type sliceColumn []value.Value

func (c sliceColumn) Get(vid value.VID) (value.Value, error) {
	if int(vid) >= len(c) || vid == value.NullVID {
		return value.Null(), nil
	}
	return c[vid], nil
}

var _ Reader = (*MemoryGraph)(nil)
