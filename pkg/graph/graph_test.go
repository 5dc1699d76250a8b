package graph

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/value"
)

func loadSocial(t *testing.T) *MemoryGraph {
	t.Helper()
	g, err := LoadFixtureFile("testdata/social.yaml")
	require.NoError(t, err)
	return g
}

func mustLabel(t *testing.T, s *Schema, name string) value.Label {
	t.Helper()
	l, ok := s.VertexLabel(name)
	require.True(t, ok, name)
	return l
}

func TestSchema_Labels(t *testing.T) {
	s := NewSchema()
	person, err := s.AddVertexLabel("Person", PropertyDef{Name: "age", Type: value.TypeInt64})
	require.NoError(t, err)
	_, err = s.AddVertexLabel("Person")
	assert.ErrorIs(t, err, ErrLabelExists)

	knows, err := s.AddEdgeType("Person", "knows", "Person")
	require.NoError(t, err)
	assert.Equal(t, value.LabelTriplet{Src: person, Edge: 0, Dst: person}, knows)

	_, err = s.AddEdgeType("Person", "knows", "Robot")
	assert.ErrorIs(t, err, ErrUnknownLabel)

	idx, ok := s.VertexPropertyIndex(person, "age")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	_, ok = s.VertexPropertyIndex(person, "name")
	assert.False(t, ok)

	assert.Equal(t, "(Person)-[knows]->(Person)", s.TripletName(knows))
}

func TestMemoryGraph_VertexProperties(t *testing.T) {
	g := loadSocial(t)
	person := mustLabel(t, g.Schema(), "Person")
	alice, ok := g.LookupVertex(person, "alice")
	require.True(t, ok)
	bob, _ := g.LookupVertex(person, "bob")

	age, err := g.VertexProperty(person, alice, "age")
	require.NoError(t, err)
	assert.Equal(t, value.Int64(30), age)

	born, err := g.VertexProperty(person, bob, "born")
	require.NoError(t, err)
	assert.Equal(t, value.Null(), born, "unset property reads as null")
	assert.Equal(t, value.TypeNull, born.Type())

	_, err = g.VertexProperty(person, alice, "salary")
	assert.True(t, errors.Is(err, evalerr.ErrPropertyNotFound))

	_, err = g.VertexProperty(person, 99, "age")
	assert.ErrorIs(t, err, ErrVertexNotFound)

	assert.Equal(t, 3, g.VertexCount(person))
	assert.Equal(t, "alice", g.ExternalID(person, alice))
	assert.False(t, g.VertexExists(person, value.NullVID))
}

func colGet(t *testing.T, col PropertyColumn, vid value.VID) value.Value {
	t.Helper()
	v, err := col.Get(vid)
	require.NoError(t, err)
	return v
}

func TestMemoryGraph_PropertyColumn(t *testing.T) {
	g := loadSocial(t)
	person := mustLabel(t, g.Schema(), "Person")

	col, err := g.VertexPropertyColumn(person, "name")
	require.NoError(t, err)
	assert.Equal(t, value.String("Alice"), colGet(t, col, 0))
	assert.True(t, colGet(t, col, value.NullVID).IsNull())
	assert.True(t, colGet(t, col, 1000).IsNull())

	_, err = g.VertexPropertyColumn(person, "nope")
	assert.True(t, errors.Is(err, evalerr.ErrPropertyNotFound))
}

func TestMemoryGraph_EdgeProperties(t *testing.T) {
	g := loadSocial(t)
	s := g.Schema()
	person := mustLabel(t, s, "Person")
	alice, _ := g.LookupVertex(person, "alice")
	bob, _ := g.LookupVertex(person, "bob")
	carol, _ := g.LookupVertex(person, "carol")

	knows, ok := s.Triplet("Person", "knows", "Person")
	require.True(t, ok)
	assert.True(t, g.EdgeExists(knows, alice, bob))
	assert.False(t, g.EdgeExists(knows, bob, alice))

	since, err := g.EdgeProperty(knows, alice, bob, "since")
	require.NoError(t, err)
	assert.Equal(t, value.TypeDate, since.Type())

	since, err = g.EdgeProperty(knows, bob, carol, "since")
	require.NoError(t, err)
	assert.True(t, since.IsNull())

	worksAt, ok := s.Triplet("Person", "works_at", "Company")
	require.True(t, ok)
	company := mustLabel(t, s, "Company")
	initech, _ := g.LookupVertex(company, "initech")
	role, err := g.EdgeProperty(worksAt, carol, initech, "role")
	require.NoError(t, err)
	assert.Equal(t, value.String("manager"), role)
	salary, err := g.EdgeProperty(worksAt, carol, initech, "salary")
	require.NoError(t, err)
	assert.Equal(t, value.Null(), salary)

	partners, ok := s.Triplet("Company", "partners", "Company")
	require.True(t, ok)
	_, err = g.EdgeProperty(partners, 0, 1, "since")
	assert.True(t, errors.Is(err, evalerr.ErrPropertyNotFound))

	_, err = g.EdgeProperty(knows, carol, alice, "since")
	assert.ErrorIs(t, err, ErrEdgeNotFound)
}

func TestMemoryGraph_Mutations(t *testing.T) {
	s := NewSchema()
	l, _ := s.AddVertexLabel("N", PropertyDef{Name: "x", Type: value.TypeInt64})
	g := NewMemoryGraph(s)

	_, err := g.AddVertex(l, "a", map[string]value.Value{"x": value.Int64(1)})
	require.NoError(t, err)
	_, err = g.AddVertex(l, "a", nil)
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = g.AddVertex(l, "b", map[string]value.Value{"y": value.Int64(1)})
	assert.True(t, errors.Is(err, evalerr.ErrPropertyNotFound))
	_, err = g.AddVertex(7, "c", nil)
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestMemoryGraph_ConcurrentReads(t *testing.T) {
	g := loadSocial(t)
	person := mustLabel(t, g.Schema(), "Person")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				v, err := g.VertexProperty(person, value.VID(j%3), "name")
				assert.NoError(t, err)
				assert.Equal(t, value.TypeString, v.Type())
			}
		}()
	}
	wg.Wait()
}

func TestLoadFixture_Errors(t *testing.T) {
	cases := map[string]string{
		"bad type":         "schema: {vertices: [{label: A, properties: [{name: x, type: decimal}]}]}",
		"unknown label":    "vertices: [{label: A, id: a}]",
		"bad endpoint":     "schema: {vertices: [{label: A}], edges: [{src: A, label: r, dst: A}]}\nvertices: [{label: A, id: a}]\nedges: [{src: a, label: r, dst: A/a}]",
		"unknown vertex":   "schema: {vertices: [{label: A}], edges: [{src: A, label: r, dst: A}]}\nvertices: [{label: A, id: a}]\nedges: [{src: A/a, label: r, dst: A/zz}]",
		"bad value":        "schema: {vertices: [{label: A, properties: [{name: x, type: int32}]}]}\nvertices: [{label: A, id: a, properties: {x: 10000000000}}]",
		"unknown property": "schema: {vertices: [{label: A}]}\nvertices: [{label: A, id: a, properties: {x: 1}}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFixture(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestBadgerGraph_MatchesMemory(t *testing.T) {
	mem := loadSocial(t)
	s := mem.Schema()

	bg, err := OpenBadger(s, BadgerOptions{InMemory: true, CacheSize: 16})
	require.NoError(t, err)
	defer bg.Close()
	require.NoError(t, bg.CopyFrom(mem))

	snap, err := bg.Snapshot()
	require.NoError(t, err)
	defer snap.Discard()

	person := mustLabel(t, s, "Person")
	assert.Equal(t, mem.VertexCount(person), snap.VertexCount(person))

	for vid := value.VID(0); int(vid) < mem.VertexCount(person); vid++ {
		for _, p := range s.VertexProperties(person) {
			want, err := mem.VertexProperty(person, vid, p.Name)
			require.NoError(t, err)
			got, err := snap.VertexProperty(person, vid, p.Name)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%d.%s", vid, p.Name)
		}
	}
	assert.Positive(t, snap.CacheLen())

	worksAt, _ := s.Triplet("Person", "works_at", "Company")
	for _, e := range mem.Edges(worksAt) {
		assert.True(t, snap.EdgeExists(worksAt, e.Src, e.Dst))
		want, err := mem.EdgeProperty(worksAt, e.Src, e.Dst, "salary")
		require.NoError(t, err)
		got, err := snap.EdgeProperty(worksAt, e.Src, e.Dst, "salary")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	col, err := snap.VertexPropertyColumn(person, "age")
	require.NoError(t, err)
	assert.Equal(t, value.Int64(17), colGet(t, col, 1))
	assert.True(t, colGet(t, col, value.NullVID).IsNull())
	assert.True(t, colGet(t, col, 42).IsNull())
	assert.False(t, snap.VertexExists(person, 42))
}

func TestBadgerSnapshot_DiscardedColumnFails(t *testing.T) {
	mem := loadSocial(t)
	s := mem.Schema()
	person := mustLabel(t, s, "Person")

	bg, err := OpenBadger(s, BadgerOptions{InMemory: true})
	require.NoError(t, err)
	defer bg.Close()
	require.NoError(t, bg.CopyFrom(mem))

	snap, err := bg.Snapshot()
	require.NoError(t, err)
	col, err := snap.VertexPropertyColumn(person, "age")
	require.NoError(t, err)
	assert.Equal(t, value.Int64(30), colGet(t, col, 0))

	snap.Discard()
	_, err = col.Get(0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = snap.VertexProperty(person, 0, "age")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBadgerGraph_LogsToInjectedLogger(t *testing.T) {
	mem := loadSocial(t)
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	bg, err := OpenBadger(mem.Schema(), BadgerOptions{InMemory: true, Log: log})
	require.NoError(t, err)
	defer bg.Close()
	require.NoError(t, bg.CopyFrom(mem))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "copied graph into badger", entry.Message)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "BadgerGraph", entry.Data["component"])
}

func TestBadgerGraph_SnapshotIsolation(t *testing.T) {
	s := NewSchema()
	l, _ := s.AddVertexLabel("N", PropertyDef{Name: "x", Type: value.TypeInt64})
	bg, err := OpenBadger(s, BadgerOptions{InMemory: true})
	require.NoError(t, err)
	defer bg.Close()

	require.NoError(t, bg.PutVertex(l, 0, []value.Value{value.Int64(1)}))
	snap, err := bg.Snapshot()
	require.NoError(t, err)
	defer snap.Discard()

	require.NoError(t, bg.PutVertex(l, 0, []value.Value{value.Int64(2)}))
	require.NoError(t, bg.PutVertex(l, 1, []value.Value{value.Int64(3)}))

	v, err := snap.VertexProperty(l, 0, "x")
	require.NoError(t, err)
	assert.Equal(t, value.Int64(1), v)
	assert.Equal(t, 1, snap.VertexCount(l))

	fresh, err := bg.Snapshot()
	require.NoError(t, err)
	defer fresh.Discard()
	assert.Equal(t, 2, fresh.VertexCount(l))

	err = bg.PutVertex(l, 2, nil)
	assert.True(t, errors.Is(err, evalerr.ErrArityOrContextMismatch))
}

func TestBadgerGraph_Closed(t *testing.T) {
	bg, err := OpenBadger(NewSchema(), BadgerOptions{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, bg.Close())
	require.NoError(t, bg.Close())
	_, err = bg.Snapshot()
	assert.ErrorIs(t, err, ErrClosed)
}
