// Package backend implements the Backend contract that the accounting
// façade delegates to: arena/thread-cache lifecycle, the raw allocation
// primitives, and size queries. Two implementations exist: this file (plus
// chunkarena_safe.go and chunkarena_metrics.go) provide a chunked bump
// allocator used when the module is built without a real jemalloc, and
// backend_jemalloc.go (build tag "jemalloc") binds to the genuine
// allocator via cgo.
package backend

import "unsafe"

// defaultChunkSize is the default chunk size for new chunk arenas (64 KiB).
const defaultChunkSize = 1 << 16

// chunk represents a single memory chunk within a chunkArena.
type chunk struct {
	buf    []byte  // backing memory
	offset uintptr // allocation offset within buf
}

// chunkArena is a chunked bump allocator standing in for one native arena.
// Like a real jemalloc arena, individual allocations cannot be reclaimed;
// only Reset (all offsets to zero) and Release (drop everything) are
// supported. Not goroutine-safe; see safeChunkArena.
type chunkArena struct {
	chunks       []chunk
	chunkSize    int
	currentChunk *chunk
}

// newChunkArena creates a new chunkArena with the specified chunk size.
// If chunkSize <= 0, defaultChunkSize is used.
func newChunkArena(chunkSize int) *chunkArena {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	a := &chunkArena{chunkSize: chunkSize}
	a.grow(chunkSize)
	return a
}

// allocBytes returns a []byte slice pointing into the arena's backing
// chunk. The caller must ensure the arena remains reachable while the
// returned slice is in use. Returns nil if n <= 0.
func (a *chunkArena) allocBytes(n int) []byte {
	if n <= 0 {
		return nil
	}

	c := a.currentChunk
	if c != nil {
		const align = unsafe.Sizeof(uintptr(0))
		mask := align - 1
		off := (c.offset + mask) &^ mask

		if off+uintptr(n) <= uintptr(len(c.buf)) {
			start := int(off)
			c.offset = off + uintptr(n)
			return unsafe.Slice((*byte)(unsafe.Pointer(&c.buf[start])), n)
		}
	}

	return a.allocBytesSlow(n)
}

// allocBytesSlow handles allocation when the fast path fails.
func (a *chunkArena) allocBytesSlow(n int) []byte {
	if a.chunks == nil {
		panic("backend: chunk arena used after release")
	}

	a.grow(n)

	c := a.currentChunk
	const align = unsafe.Sizeof(uintptr(0))
	mask := align - 1
	off := (c.offset + mask) &^ mask

	start := int(off)
	c.offset = off + uintptr(n)
	return unsafe.Slice((*byte)(unsafe.Pointer(&c.buf[start])), n)
}

// ensureCapacity ensures the current chunk has at least n free bytes,
// growing the arena with a new chunk otherwise.
func (a *chunkArena) ensureCapacity(n int) {
	a.panicIfReleased()
	c := a.currentChunk
	if c == nil {
		a.grow(n)
		return
	}
	off := alignPtr(c.offset)
	if uintptr(n)+off > uintptr(len(c.buf)) {
		a.grow(n)
	}
}

// reset resets allocation offsets to zero and keeps the allocated chunks.
// Allocation restarts in the first chunk; once that chunk is full, a new
// chunk is appended and the later kept chunks are not handed out again.
// O(number of chunks). Not used by the accounting backend itself
// (an arena, once assigned to a client slot, is never reset mid-lifetime -
// see the registry's arena-reuse contract) but is part of the primitive's
// own lifecycle and is exercised directly in tests.
func (a *chunkArena) reset() {
	if a.chunks == nil {
		panic("backend: chunk arena used after release")
	}
	for i := range a.chunks {
		a.chunks[i].offset = 0
	}
	if len(a.chunks) > 0 {
		a.currentChunk = &a.chunks[0]
	}
}

// release drops all chunks, making the arena unusable.
func (a *chunkArena) release() {
	a.chunks = nil
	a.currentChunk = nil
}

// grow appends a new chunk of at least min bytes.
func (a *chunkArena) grow(min int) {
	size := a.chunkSize
	if min > size {
		size = min
	}
	buf := make([]byte, size)
	a.chunks = append(a.chunks, chunk{buf: buf, offset: 0})
	a.currentChunk = &a.chunks[len(a.chunks)-1]
}

func (a *chunkArena) panicIfReleased() {
	if a.chunks == nil {
		panic("backend: chunk arena used after release")
	}
}

// alignPtr aligns the offset up to pointer size alignment.
func alignPtr(off uintptr) uintptr {
	const align = unsafe.Sizeof(uintptr(0))
	mask := align - 1
	return (off + mask) &^ mask
}
