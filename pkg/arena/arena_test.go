package arena

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_AllocBumpsWithinChunk(t *testing.T) {
	a := New(Options{ChunkSize: 1024})

	b1 := a.Alloc(10)
	b2 := a.Alloc(20)
	require.Len(t, b1, 10)
	require.Len(t, b2, 20)

	// Contiguous in the same chunk, and capacity-capped so appends cannot
	// spill into the neighbour.
	assert.Equal(t, uintptr(unsafe.Pointer(&b1[0]))+10, uintptr(unsafe.Pointer(&b2[0])))
	assert.Equal(t, 10, cap(b1))
	assert.Equal(t, int64(30), a.Stats().Used)
	assert.Equal(t, 1, a.Stats().Chunks)
}

func TestArena_OversizeGoesToLargeBlock(t *testing.T) {
	a := New(Options{ChunkSize: 1024})

	b := a.Alloc(600)
	require.Len(t, b, 600)
	assert.Equal(t, 1, a.Stats().Large)
	assert.Equal(t, 0, a.Stats().Chunks)
}

func TestArena_ResetReusesBackingMemory(t *testing.T) {
	a := New(Options{ChunkSize: 1024})

	first := a.Alloc(16)
	gen := a.Generation()
	a.Reset()
	second := a.Alloc(16)

	assert.Equal(t, unsafe.Pointer(&first[0]), unsafe.Pointer(&second[0]))
	assert.False(t, gen.Valid())
	assert.True(t, a.Generation().Valid())
	assert.Equal(t, uint64(1), a.Stats().Resets)
	assert.Equal(t, int64(16), a.Stats().Used)
}

func TestArena_StringAndConcat(t *testing.T) {
	a := New(Options{})

	src := []byte("hello")
	s := a.String(src)
	src[0] = 'j'
	assert.Equal(t, "hello", s)

	assert.Equal(t, "ab-cd", a.Concat("ab", "-", "cd"))
	assert.Equal(t, "", a.Concat("", ""))
	assert.Equal(t, "", a.String(nil))
}

func TestArena_MaxBytesPanicsWithAllocationExhausted(t *testing.T) {
	a := New(Options{ChunkSize: 256, MaxBytes: 32})
	a.Alloc(30)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, evalerr.ErrAllocationExhausted))
	}()
	a.Alloc(8)
	t.Fatal("expected panic")
}

func TestArena_MaxBytesIsPerGeneration(t *testing.T) {
	a := New(Options{MaxBytes: 64})
	for i := 0; i < 10; i++ {
		a.Alloc(60)
		a.Reset()
	}
	assert.Equal(t, uint64(10), a.Stats().Resets)
}

func TestGeneration_CheckOnlyPanicsInDebug(t *testing.T) {
	quiet := New(Options{})
	g := quiet.Generation()
	quiet.Reset()
	assert.NotPanics(t, g.Check)

	debug := New(Options{Debug: true})
	g = debug.Generation()
	assert.NotPanics(t, g.Check)
	debug.Reset()
	assert.Panics(t, g.Check)

	var zero Generation
	assert.True(t, zero.Valid())
	assert.True(t, zero.IsZero())
}

func TestMakeSlice_ClearedAndReused(t *testing.T) {
	a := New(Options{ChunkSize: 1024})

	s := MakeSlice[*int](a, 4)
	v := 7
	s[0] = &v
	a.Reset()

	s2 := MakeSlice[*int](a, 4)
	assert.Equal(t, unsafe.Pointer(&s[0]), unsafe.Pointer(&s2[0]))
	assert.Nil(t, s2[0], "reset must clear slab contents")
}

func TestMakeSlice_DistinctTypesDistinctSlabs(t *testing.T) {
	a := New(Options{})

	ints := MakeSlice[int64](a, 3)
	strs := MakeSlice[string](a, 3)
	assert.Len(t, ints, 3)
	assert.Len(t, strs, 3)
	assert.Len(t, a.slabs, 2)
	assert.Nil(t, MakeSlice[int64](a, 0))
}

func TestPool_GetPutResets(t *testing.T) {
	p := NewPool(Options{ChunkSize: 512})

	a := p.Get()
	a.Alloc(10)
	gen := a.Generation()
	p.Put(a)

	assert.False(t, gen.Valid())
	assert.Equal(t, 512, p.Get().Options().ChunkSize)
	p.Put(nil)
}
