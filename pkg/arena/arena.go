// Package arena provides the bump allocator that backs transient evaluation
// results (strings, lists, edge records) for one batch of evaluations.
//
// An Arena is owned by a single worker. Allocation and Reset have no internal
// synchronization; share nothing across goroutines without partitioning.
//
// Lifecycle:
//
//	a := arena.New(arena.Options{})
//	for batch := range batches {
//		for _, row := range batch {
//			v, err := e.EvalPath(row, a) // v may point into a
//			...
//		}
//		a.Reset() // every value produced above is now invalid
//	}
//
// Every allocation is stamped with the arena's current Generation. Reset
// bumps the generation, so a value that outlived its batch can be detected:
// Generation.Valid reports false, and with Options.Debug the value package
// panics on access.
package arena

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/orneryd/nornicrt/pkg/evalerr"
)

// DefaultChunkSize is the size of each bump chunk when Options.ChunkSize is 0.
const DefaultChunkSize = 64 << 10

// Options configures an Arena.
type Options struct {
	// ChunkSize is the size of each bump chunk in bytes.
	ChunkSize int

	// MaxBytes caps the bytes handed out between resets. 0 means unlimited.
	// Exceeding it panics with an AllocationExhausted *evalerr.Error.
	MaxBytes int64

	// Debug enables use-after-reset detection on value access.
	Debug bool
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	return o
}

// Arena is a monotonically growing region with a single bulk Reset.
type Arena struct {
	opts Options

	chunks [][]byte // retained across resets
	cur    int      // index into chunks, -1 before the first allocation
	off    int
	large  [][]byte // oversize blocks, dropped on reset

	used   int64
	gen    uint64
	resets uint64

	slabs map[reflect.Type]resetter
}

// New creates an empty arena.
func New(opts Options) *Arena {
	return &Arena{
		opts: opts.withDefaults(),
		cur:  -1,
		gen:  1,
	}
}

// Options returns the options the arena was created with.
func (a *Arena) Options() Options { return a.opts }

// Alloc returns n bytes of arena memory. The contents are unspecified; the
// caller is expected to overwrite them. The slice is valid until Reset.
func (a *Arena) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	a.charge(int64(n))

	if n > a.opts.ChunkSize/4 {
		b := make([]byte, n)
		a.large = append(a.large, b)
		return b
	}
	if a.cur < 0 || a.off+n > len(a.chunks[a.cur]) {
		a.nextChunk()
	}
	b := a.chunks[a.cur][a.off : a.off+n : a.off+n]
	a.off += n
	return b
}

func (a *Arena) nextChunk() {
	a.cur++
	a.off = 0
	if a.cur == len(a.chunks) {
		a.chunks = append(a.chunks, make([]byte, a.opts.ChunkSize))
	}
}

func (a *Arena) charge(n int64) {
	a.used += n
	if a.opts.MaxBytes > 0 && a.used > a.opts.MaxBytes {
		panic(&evalerr.Error{
			Kind: evalerr.KindAllocationExhausted,
			Msg:  fmt.Sprintf("arena limit of %d bytes exceeded (requested %d, in use %d)", a.opts.MaxBytes, n, a.used-n),
		})
	}
}

// String copies b into the arena and returns a string aliasing the copy.
func (a *Arena) String(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	buf := a.Alloc(len(b))
	copy(buf, b)
	return unsafe.String(&buf[0], len(buf))
}

// Concat joins parts into a single arena-backed string.
func (a *Arena) Concat(parts ...string) string {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	if n == 0 {
		return ""
	}
	buf := a.Alloc(n)
	off := 0
	for _, p := range parts {
		off += copy(buf[off:], p)
	}
	return unsafe.String(&buf[0], n)
}

// Reset invalidates every allocation made since the previous Reset.
// Chunks are kept for reuse; oversize blocks and typed slab contents are
// released. Cost is proportional to the number of slabs, not to the number of
// allocations.
func (a *Arena) Reset() {
	a.cur = -1
	a.off = 0
	a.large = nil
	a.used = 0
	a.gen++
	a.resets++
	for _, s := range a.slabs {
		s.reset()
	}
}

// Generation returns the token stamped on allocations made now.
func (a *Arena) Generation() Generation {
	return Generation{a: a, n: a.gen}
}

// Stats is a point-in-time summary of arena usage.
type Stats struct {
	Used       int64
	Chunks     int
	Large      int
	Resets     uint64
	Generation uint64
}

// Stats returns current usage.
func (a *Arena) Stats() Stats {
	return Stats{
		Used:       a.used,
		Chunks:     len(a.chunks),
		Large:      len(a.large),
		Resets:     a.resets,
		Generation: a.gen,
	}
}

// Generation identifies the arena epoch an allocation belongs to.
// The zero Generation belongs to no arena and is always valid.
type Generation struct {
	a *Arena
	n uint64
}

// Valid reports whether allocations of this generation are still live.
func (g Generation) Valid() bool {
	return g.a == nil || g.a.gen == g.n
}

// Check panics with ErrUseAfterReset when the owning arena runs in debug
// mode and the generation is stale. It is a no-op otherwise.
func (g Generation) Check() {
	if g.a != nil && g.a.opts.Debug && g.a.gen != g.n {
		panic(fmt.Errorf("%w: generation %d, arena at %d", ErrUseAfterReset, g.n, g.a.gen))
	}
}

// IsZero reports whether g belongs to no arena.
func (g Generation) IsZero() bool { return g.a == nil }

// Pool recycles arenas between batches. Arenas obtained from a Pool are still
// single-owner; the Pool itself is safe for concurrent use.
type Pool struct {
	opts Options
	p    sync.Pool
}

// NewPool creates a pool producing arenas with opts.
func NewPool(opts Options) *Pool {
	pool := &Pool{opts: opts.withDefaults()}
	pool.p.New = func() any { return New(pool.opts) }
	return pool
}

// Get returns a reset arena.
func (p *Pool) Get() *Arena {
	return p.p.Get().(*Arena)
}

// Put resets a and returns it to the pool.
func (p *Pool) Put(a *Arena) {
	if a == nil {
		return
	}
	a.Reset()
	p.p.Put(a)
}
