package predicate

import (
	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/value"
)

// VertexFilter is what a traversal engine needs from a vertex predicate.
// Vertex implements it; engines with their own shortcuts may too.
type VertexFilter interface {
	Test(label value.Label, vid value.VID, idx int, a *arena.Arena) (bool, error)
	TestUnchecked(label value.Label, vid value.VID, idx int, a *arena.Arena) (bool, error)
	FilterRows(rows []VertexRow, a *arena.Arena, out []int) ([]int, error)
}

// EdgeFilter is what a traversal engine needs from an edge predicate.
type EdgeFilter interface {
	Test(t value.LabelTriplet, src, dst value.VID, data value.Value, dir Direction, idx int, a *arena.Arena) (bool, error)
	TestUnchecked(t value.LabelTriplet, src, dst value.VID, data value.Value, dir Direction, idx int, a *arena.Arena) (bool, error)
	FilterRows(rows []EdgeRow, a *arena.Arena, out []int) ([]int, error)
}

// PathFilter is what a traversal engine needs from a row predicate.
type PathFilter interface {
	Test(idx int, a *arena.Arena) (bool, error)
	TestUnchecked(idx int, a *arena.Arena) (bool, error)
	FilterRows(rows []int, a *arena.Arena, out []int) ([]int, error)
}

var (
	_ VertexFilter = Vertex{}
	_ EdgeFilter   = Edge{}
	_ PathFilter   = Path{}
)
