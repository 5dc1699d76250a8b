package expr

import (
	"fmt"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/columns"
	"github.com/orneryd/nornicrt/pkg/graph"
	"github.com/orneryd/nornicrt/pkg/value"
)

// VarType fixes which evaluation entry point an Expr accepts.
type VarType uint8

const (
	PathVar VarType = iota
	VertexVar
	EdgeVar
)

func (t VarType) String() string {
	switch t {
	case PathVar:
		return "PathVar"
	case VertexVar:
		return "VertexVar"
	case EdgeVar:
		return "EdgeVar"
	}
	return fmt.Sprintf("VarType(%d)", uint8(t))
}

// Env is everything an expression is bound against at construction time.
// It is read once by Compile; nothing in it may change while compiled
// expressions are in use.
type Env struct {
	// Graph is the snapshot properties are read from.
	Graph graph.Reader

	// Context holds the batch columns addressed by Var tags. May be nil for
	// expressions that only reference the bound element.
	Context *columns.Context

	// Params maps parameter names to their values for this query.
	Params map[string]value.Value

	// VertexLabels narrows the labels a bound vertex can carry. Empty means
	// every label in the schema.
	VertexLabels []value.Label

	// EdgeTriplets narrows the types a bound edge can have. Empty means
	// every edge type in the schema.
	EdgeTriplets []value.LabelTriplet
}

func (env Env) schema() *graph.Schema {
	if env.Graph == nil {
		return nil
	}
	return env.Graph.Schema()
}

// Binding is the per-call state an expression is evaluated against: the
// context row, the bound vertex or edge, and the arena for intermediates.
type Binding struct {
	Row   int
	Label value.Label
	VID   value.VID
	Edge  value.Edge
	Arena *arena.Arena
}

func vertexLabels(env Env) []value.Label {
	if len(env.VertexLabels) > 0 {
		return env.VertexLabels
	}
	s := env.schema()
	if s == nil {
		return nil
	}
	out := make([]value.Label, s.VertexLabelCount())
	for i := range out {
		out[i] = value.Label(i)
	}
	return out
}

func edgeTriplets(env Env) []value.LabelTriplet {
	if len(env.EdgeTriplets) > 0 {
		return env.EdgeTriplets
	}
	s := env.schema()
	if s == nil {
		return nil
	}
	return s.Triplets()
}

// makeValues allocates scratch or list storage from a, or from the heap when
// a is nil.
func makeValues(a *arena.Arena, n int) []value.Value {
	if a == nil {
		return make([]value.Value, n)
	}
	return arena.MakeSlice[value.Value](a, n)
}

func wrapList(a *arena.Arena, items []value.Value) value.Value {
	if a == nil {
		return value.List(items)
	}
	return value.ArenaList(a, items)
}
