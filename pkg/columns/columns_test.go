package columns

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/value"
)

func TestContext_SetGet(t *testing.T) {
	ctx := New()
	assert.Equal(t, 0, ctx.RowCount())

	people := NewVertexColumn([]value.Vertex{{Label: 0, ID: 1}, {Label: 2, ID: 5}, {Label: 0, ID: value.NullVID}})
	require.NoError(t, ctx.Set(0, people))
	require.NoError(t, ctx.Set(3, NewValueColumn(value.TypeInt64, []value.Value{value.Int64(1), value.Int64(2), value.Null()})))

	assert.Equal(t, 3, ctx.RowCount())
	assert.Equal(t, []int{0, 3}, ctx.Tags())

	col, ok := ctx.Get(0)
	require.True(t, ok)
	assert.Equal(t, KindVertex, col.Kind())
	assert.Equal(t, value.VertexValue(value.Vertex{Label: 2, ID: 5}), col.At(0, 1))
	assert.Equal(t, []value.Label{0, 2}, people.Labels())

	_, ok = ctx.Get(1)
	assert.False(t, ok)
}

func TestContext_RowMismatch(t *testing.T) {
	ctx := New()
	require.NoError(t, ctx.Set(0, NewValueColumn(value.TypeBool, []value.Value{value.Bool(true)})))

	err := ctx.Set(1, NewValueColumn(value.TypeBool, nil))
	assert.True(t, errors.Is(err, evalerr.ErrArityOrContextMismatch))

	// replacing the only column may change the row count
	require.NoError(t, ctx.Set(0, NewValueColumn(value.TypeBool, nil)))
	assert.Equal(t, 0, ctx.RowCount())

	err = ctx.Set(-1, NewValueColumn(value.TypeBool, nil))
	assert.True(t, errors.Is(err, evalerr.ErrArityOrContextMismatch))
}

func TestPathColumn(t *testing.T) {
	a, b, c := value.Vertex{ID: 0}, value.Vertex{ID: 1}, value.Vertex{ID: 2}
	ab := value.Edge{Src: 0, Dst: 1}
	bc := value.Edge{Src: 1, Dst: 2}

	col, err := NewPathColumn([]Path{
		{Vertices: []value.Vertex{a}},
		{Vertices: []value.Vertex{a, b, c}, Edges: []value.Edge{ab, bc}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, col.Path(0).Len())
	assert.Equal(t, 2, col.Path(1).Len())
	assert.Equal(t, c, col.Path(1).End())

	ref, err := col.At(7, 1).AsPath()
	require.NoError(t, err)
	assert.Equal(t, value.PathRef{Tag: 7, Row: 1}, ref)

	_, err = NewPathColumn([]Path{{Vertices: []value.Vertex{a}, Edges: []value.Edge{ab}}})
	assert.True(t, errors.Is(err, evalerr.ErrArityOrContextMismatch))
}

func TestEdgeColumn_Triplets(t *testing.T) {
	knows := value.LabelTriplet{Src: 0, Edge: 0, Dst: 0}
	likes := value.LabelTriplet{Src: 0, Edge: 1, Dst: 0}
	col := NewEdgeColumn([]value.Edge{{Triplet: likes}, {Triplet: knows}, {Triplet: likes}})
	assert.Equal(t, []value.LabelTriplet{likes, knows}, col.Triplets())
	e, err := col.At(0, 1).AsEdge()
	require.NoError(t, err)
	assert.Equal(t, knows, e.Triplet)
}
