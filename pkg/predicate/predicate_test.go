package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/columns"
	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/expr"
	"github.com/orneryd/nornicrt/pkg/graph"
	"github.com/orneryd/nornicrt/pkg/ir"
	"github.com/orneryd/nornicrt/pkg/value"
)

func loadSocial(t *testing.T) *graph.MemoryGraph {
	t.Helper()
	g, err := graph.LoadFixtureFile("../graph/testdata/social.yaml")
	require.NoError(t, err)
	return g
}

func mustTriplet(t *testing.T, g *graph.MemoryGraph, src, edge, dst string) value.LabelTriplet {
	t.Helper()
	tr, ok := g.Schema().Triplet(src, edge, dst)
	require.True(t, ok)
	return tr
}

func int64Lit(i int64) *ir.Node { return ir.Lit(value.Int64(i)) }

func compile(t *testing.T, n *ir.Node, env expr.Env, vt expr.VarType) *expr.Expr {
	t.Helper()
	e, err := expr.Compile(n, env, vt)
	require.NoError(t, err, n.String())
	return e
}

func TestAlwaysTrue(t *testing.T) {
	a := arena.New(arena.Options{})
	for _, p := range []Vertex{AlwaysTrueVertex(), {}} {
		for _, c := range []VertexRow{{0, 0, 0}, {3, 99, 7}, {1, value.NullVID, -1}} {
			ok, err := p.Test(c.Label, c.VID, c.Row, a)
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = p.TestUnchecked(c.Label, c.VID, c.Row, a)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	}

	ok, err := AlwaysTrueEdge().Test(value.LabelTriplet{Src: 1, Edge: 2, Dst: 3}, 0, 0, value.Null(), Both, 0, a)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AlwaysTruePath().Test(-5, a)
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := AlwaysTruePath().FilterRows([]int{4, 2}, a, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2}, rows)
}

func TestExactMatch(t *testing.T) {
	p := ExactMatchVertex(1, 7)
	assert.Equal(t, ExactMatch, p.Kind())
	assert.Nil(t, p.Expr())

	tests := []struct {
		name  string
		label value.Label
		vid   value.VID
		want  bool
	}{
		{"same label and id", 1, 7, true},
		{"other id", 1, 8, false},
		{"other label same id", 0, 7, false},
		{"both differ", 2, 3, false},
		{"null vertex", 1, value.NullVID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := p.Test(tt.label, tt.vid, 0, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	matched, err := p.FilterRows([]VertexRow{{1, 7, 0}, {0, 7, 0}, {1, 7, 3}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, matched)
}

func TestVertexExpression_AgeGreaterThan18(t *testing.T) {
	g := loadSocial(t)
	person, _ := g.Schema().VertexLabel("Person")
	e := compile(t, ir.Binary(ir.OpGt, ir.CurrentProp("n", "age"), int64Lit(18)), expr.Env{Graph: g}, expr.VertexVar)

	p, err := VertexExpression(e)
	require.NoError(t, err)
	assert.Equal(t, Expression, p.Kind())
	assert.Same(t, e, p.Expr())
	assert.Equal(t, "expression((n.age > 18))", p.String())

	a := arena.New(arena.Options{})
	rows := []VertexRow{{person, 0, 0}, {person, 1, 0}, {person, 2, 0}, {person, value.NullVID, 0}}
	matched, err := p.FilterRows(rows, a, make([]int, 0, 4))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, matched) // alice 30, carol 45; bob is 17, the null vertex reads null

	for i, want := range []bool{true, false, true, false} {
		ok, err := p.Test(rows[i].Label, rows[i].VID, 0, a)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "row %d", i)
	}
}

func TestVertexExpression_Construction(t *testing.T) {
	g := loadSocial(t)
	env := expr.Env{Graph: g}

	_, err := VertexExpression(compile(t, ir.CurrentProp("r", "since"), env, expr.EdgeVar))
	assert.ErrorIs(t, err, evalerr.ErrArityOrContextMismatch)

	_, err = VertexExpression(compile(t, ir.CurrentProp("n", "age"), env, expr.VertexVar))
	assert.ErrorIs(t, err, evalerr.ErrTypeMismatch)

	_, err = VertexExpression(nil)
	assert.ErrorIs(t, err, evalerr.ErrArityOrContextMismatch)

	// types decided per row are accepted and checked on evaluation
	p, err := VertexExpression(compile(t, ir.Call("head", ir.ListOf(ir.CurrentProp("n", "age"))), env, expr.VertexVar))
	require.NoError(t, err)
	_, err = p.Test(0, 0, 0, nil)
	assert.ErrorIs(t, err, evalerr.ErrTypeMismatch)

	var ee *evalerr.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "head([n.age])", ee.Expr)

	// a null literal is a valid, always-rejecting predicate
	p, err = VertexExpression(compile(t, ir.Lit(value.Null()), env, expr.VertexVar))
	require.NoError(t, err)
	ok, err := p.Test(0, 0, 0, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVertexExpression_ErrorsPropagate(t *testing.T) {
	g := loadSocial(t)
	person, _ := g.Schema().VertexLabel("Person")
	company, _ := g.Schema().VertexLabel("Company")
	e := compile(t, ir.Binary(ir.OpGt, ir.CurrentProp("n", "founded"), int64Lit(1990)), expr.Env{Graph: g}, expr.VertexVar)
	p, err := VertexExpression(e)
	require.NoError(t, err)

	matched, err := p.FilterRows([]VertexRow{{company, 0, 0}, {person, 0, 0}}, nil, nil)
	assert.ErrorIs(t, err, evalerr.ErrPropertyNotFound)
	assert.Nil(t, matched)
}

func TestEdgeExpression_TripletRestriction(t *testing.T) {
	g := loadSocial(t)
	knows := mustTriplet(t, g, "Person", "knows", "Person")
	worksAt := mustTriplet(t, g, "Person", "works_at", "Company")

	// since is defined on knows only: evaluating it on works_at would fail
	e := compile(t, ir.Unary(ir.OpIsNotNull, ir.CurrentProp("r", "since")), expr.Env{Graph: g}, expr.EdgeVar)
	p, err := EdgeExpression(e, knows)
	require.NoError(t, err)
	assert.Equal(t, []value.LabelTriplet{knows}, p.Triplets())

	w := g.Edges(worksAt)[0]
	ok, err := p.Test(w.Triplet, w.Src, w.Dst, w.Data, Out, 0, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	unrestricted, err := EdgeExpression(e)
	require.NoError(t, err)
	_, err = unrestricted.Test(w.Triplet, w.Src, w.Dst, w.Data, In, 0, nil)
	assert.ErrorIs(t, err, evalerr.ErrPropertyNotFound)

	var rows []EdgeRow
	for _, tr := range g.Schema().Triplets() {
		for _, edge := range g.Edges(tr) {
			rows = append(rows, EdgeRow{Edge: edge})
		}
	}
	matched, err := p.FilterRows(rows, arena.New(arena.Options{}), nil)
	require.NoError(t, err)
	require.Len(t, matched, 1) // alice -> bob carries since; bob -> carol does not
	assert.Equal(t, knows, rows[matched[0]].Edge.Triplet)

	onlyKnows := AlwaysTrueEdge(knows)
	matched, err = onlyKnows.FilterRows(rows, nil, nil)
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestEdgeExpression_DirectionKeepsStoredOrientation(t *testing.T) {
	g := loadSocial(t)
	knows := mustTriplet(t, g, "Person", "knows", "Person")
	person, _ := g.Schema().VertexLabel("Person")
	alice, _ := g.LookupVertex(person, "alice")

	// r.since is read from the stored edge whichever way it was walked
	e := compile(t, ir.Unary(ir.OpIsNotNull, ir.CurrentProp("r", "since")), expr.Env{Graph: g}, expr.EdgeVar)
	p, err := EdgeExpression(e, knows)
	require.NoError(t, err)

	a := arena.New(arena.Options{})
	var rows []EdgeRow
	for _, edge := range g.Edges(knows) {
		want := edge.Src == alice
		for _, dir := range []Direction{Out, In, Both} {
			ok, err := p.Test(edge.Triplet, edge.Src, edge.Dst, edge.Data, dir, 0, a)
			require.NoError(t, err)
			assert.Equal(t, want, ok, "%s walked %s", edge, dir)

			ok, err = p.TestUnchecked(edge.Triplet, edge.Src, edge.Dst, edge.Data, dir, 0, a)
			require.NoError(t, err)
			assert.Equal(t, want, ok)
			rows = append(rows, EdgeRow{Edge: edge, Dir: dir})
		}
	}
	matched, err := p.FilterRows(rows, a, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, matched)

	assert.Equal(t, "out", Out.String())
	assert.Equal(t, "in", In.String())
	assert.Equal(t, "both", Both.String())
	assert.Equal(t, "Direction(9)", Direction(9).String())
}

func TestEdgeExpression_Construction(t *testing.T) {
	g := loadSocial(t)
	_, err := EdgeExpression(compile(t, ir.CurrentProp("n", "age"), expr.Env{Graph: g}, expr.VertexVar))
	assert.ErrorIs(t, err, evalerr.ErrArityOrContextMismatch)

	_, err = EdgeExpression(compile(t, ir.CurrentProp("r", "role"), expr.Env{Graph: g}, expr.EdgeVar))
	assert.ErrorIs(t, err, evalerr.ErrTypeMismatch)
}

func TestPathExpression(t *testing.T) {
	g := loadSocial(t)
	person, _ := g.Schema().VertexLabel("Person")
	knows := g.Edges(mustTriplet(t, g, "Person", "knows", "Person"))

	paths, err := columns.NewPathColumn([]columns.Path{
		{Vertices: []value.Vertex{{Label: person, ID: 0}, {Label: person, ID: 1}, {Label: person, ID: 2}}, Edges: knows},
		{Vertices: []value.Vertex{{Label: person, ID: 1}, {Label: person, ID: 2}}, Edges: knows[1:]},
		{Vertices: []value.Vertex{{Label: person, ID: 2}}},
	})
	require.NoError(t, err)
	ctx := columns.New()
	require.NoError(t, ctx.Set(0, paths))

	e := compile(t, ir.Binary(ir.OpGe, ir.Call("length", ir.Var(0, "p")), int64Lit(1)), expr.Env{Graph: g, Context: ctx}, expr.PathVar)
	p, err := PathExpression(e)
	require.NoError(t, err)

	a := arena.New(arena.Options{})
	matched, err := p.FilterRows([]int{0, 1, 2}, a, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, matched)

	_, err = p.FilterRows([]int{0, 3}, a, nil)
	assert.ErrorIs(t, err, evalerr.ErrArityOrContextMismatch)

	_, err = p.Test(3, a)
	assert.ErrorIs(t, err, evalerr.ErrArityOrContextMismatch)

	ok, err := p.TestUnchecked(2, a)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = PathExpression(compile(t, ir.CurrentProp("n", "age"), expr.Env{Graph: g}, expr.VertexVar))
	assert.ErrorIs(t, err, evalerr.ErrArityOrContextMismatch)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "always-true", AlwaysTrue.String())
	assert.Equal(t, "exact-match", ExactMatch.String())
	assert.Equal(t, "expression", Expression.String())
	assert.Equal(t, "always-true", AlwaysTrueEdge().String())
}

func BenchmarkVertexFilterRows(b *testing.B) {
	g, err := graph.LoadFixtureFile("../graph/testdata/social.yaml")
	require.NoError(b, err)
	person, _ := g.Schema().VertexLabel("Person")
	e, err := expr.Compile(ir.Binary(ir.OpGt, ir.CurrentProp("n", "age"), int64Lit(18)), expr.Env{Graph: g}, expr.VertexVar)
	require.NoError(b, err)
	p, err := VertexExpression(e)
	require.NoError(b, err)

	rows := make([]VertexRow, 1024)
	for i := range rows {
		rows[i] = VertexRow{Label: person, VID: value.VID(i % 3)}
	}
	a := arena.New(arena.Options{})
	out := make([]int, 0, len(rows))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.FilterRows(rows, a, out[:0]); err != nil {
			b.Fatal(err)
		}
	}
}
