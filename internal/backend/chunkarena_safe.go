package backend

import "sync"

// safeChunkArena is a mutex-protected wrapper around chunkArena. The
// stdlib fallback backend hands one of these out per native arena id, since
// a single client's allocations may arrive from many goroutines
// concurrently switched to that client.
type safeChunkArena struct {
	mu sync.Mutex
	a  *chunkArena
}

// newSafeChunkArena creates a new thread-safe chunk arena with the given
// chunk size. If chunkSize <= 0, defaultChunkSize is used.
func newSafeChunkArena(chunkSize int) *safeChunkArena {
	return &safeChunkArena{a: newChunkArena(chunkSize)}
}

// allocBytes thread-safely allocates n bytes and returns a slice pointing
// to them. Returns nil if n <= 0.
func (s *safeChunkArena) allocBytes(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.allocBytes(n)
}

// ensureCapacity thread-safely ensures the current chunk has at least n
// free bytes.
func (s *safeChunkArena) ensureCapacity(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.ensureCapacity(n)
}

// reset thread-safely resets allocation offsets to zero for arena reuse.
func (s *safeChunkArena) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.reset()
}

// release thread-safely drops all chunks and makes the arena unusable.
func (s *safeChunkArena) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.release()
}

// sizeInUse thread-safely returns the number of bytes currently handed out.
func (s *safeChunkArena) sizeInUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.sizeInUse()
}

// capacity thread-safely returns the total capacity of all chunks.
func (s *safeChunkArena) capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.capacity()
}
