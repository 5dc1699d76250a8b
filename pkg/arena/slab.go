package arena

import (
	"errors"
	"reflect"
	"unsafe"
)

// ErrUseAfterReset is raised (in debug mode) when a value backed by a reset
// arena is dereferenced.
var ErrUseAfterReset = errors.New("arena: use after reset")

type resetter interface {
	reset()
}

// slab hands out typed slices for composite values. Elements may hold
// pointers, so slabs are ordinary Go memory rather than bytes carved out of a
// chunk; Reset clears used elements so referents can be collected.
type slab[T any] struct {
	buf []T
	off int
}

func (s *slab[T]) alloc(n int) []T {
	if n > len(s.buf)/4 {
		return make([]T, n)
	}
	if s.off+n > len(s.buf) {
		s.buf = make([]T, len(s.buf))
		s.off = 0
	}
	out := s.buf[s.off : s.off+n : s.off+n]
	s.off += n
	return out
}

func (s *slab[T]) reset() {
	clear(s.buf[:s.off])
	s.off = 0
}

// MakeSlice allocates a zeroed slice of n elements tied to a's lifetime.
// The slice must not be retained past a.Reset.
func MakeSlice[T any](a *Arena, n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	a.charge(int64(n) * int64(unsafe.Sizeof(zero)))

	key := reflect.TypeFor[T]()
	r, ok := a.slabs[key]
	if !ok {
		elems := a.opts.ChunkSize / max(int(unsafe.Sizeof(zero)), 1)
		r = &slab[T]{buf: make([]T, max(elems, 16))}
		if a.slabs == nil {
			a.slabs = make(map[reflect.Type]resetter)
		}
		a.slabs[key] = r
	}
	return r.(*slab[T]).alloc(n)
}
