package platform

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/jimwwalker/platform/internal/backend"
)

// fakeBackend is a minimal in-test Backend: a size header ahead of every
// allocation (so UsableSize needs no arena bookkeeping) and simple counters
// for arena/thread-cache lifecycle, plus knobs to inject failures.
type fakeBackend struct {
	mu sync.Mutex

	nextArena   uint32
	nextTCache  uint32
	arenaBytes  map[backend.ArenaID]uint64
	failArena   bool
	failTCache  bool
	failStats   bool
	destroyedTC map[backend.TCacheID]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		arenaBytes:  make(map[backend.ArenaID]uint64),
		destroyedTC: make(map[backend.TCacheID]bool),
	}
}

const fakeHeaderSize = int(unsafe.Sizeof(uint64(0)))

func (f *fakeBackend) CreateArena() (backend.ArenaID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failArena {
		return 0, fmt.Errorf("fakeBackend: arena creation disabled")
	}
	f.nextArena++
	return backend.ArenaID(f.nextArena), nil
}

func (f *fakeBackend) CreateThreadCache(arena backend.ArenaID) (backend.TCacheID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTCache {
		return 0, fmt.Errorf("fakeBackend: thread-cache creation disabled")
	}
	f.nextTCache++
	return backend.TCacheID(f.nextTCache), nil
}

func (f *fakeBackend) DestroyThreadCache(tc backend.TCacheID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyedTC[tc] = true
	return nil
}

func (f *fakeBackend) Alloc(size uintptr, flags backend.Flags) unsafe.Pointer {
	usable := f.RequestedToUsable(size, flags)
	buf := make([]byte, fakeHeaderSize+int(usable))
	binary.LittleEndian.PutUint64(buf[:fakeHeaderSize], uint64(usable))

	f.mu.Lock()
	f.arenaBytes[backend.ArenaOf(flags)] += uint64(usable)
	f.mu.Unlock()

	return unsafe.Pointer(&buf[fakeHeaderSize])
}

func (f *fakeBackend) Realloc(ptr unsafe.Pointer, size uintptr, flags backend.Flags) unsafe.Pointer {
	if ptr == nil {
		return f.Alloc(size, flags)
	}
	old := f.UsableSize(ptr)
	n := f.Alloc(size, flags)
	m := old
	if size < m {
		m = size
	}
	if m > 0 {
		src := unsafe.Slice((*byte)(ptr), m)
		dst := unsafe.Slice((*byte)(n), m)
		copy(dst, src)
	}
	return n
}

func (f *fakeBackend) Free(ptr unsafe.Pointer, flags backend.Flags) {
	if ptr == nil {
		return
	}
	usable := f.UsableSize(ptr)
	f.mu.Lock()
	f.arenaBytes[backend.ArenaOf(flags)] -= uint64(usable)
	f.mu.Unlock()
}

func (f *fakeBackend) SizedFree(ptr unsafe.Pointer, size uintptr, flags backend.Flags) {
	f.Free(ptr, flags)
}

func (f *fakeBackend) UsableSize(ptr unsafe.Pointer) uintptr {
	if ptr == nil {
		return 0
	}
	hdr := unsafe.Add(ptr, -fakeHeaderSize)
	return uintptr(binary.LittleEndian.Uint64(unsafe.Slice((*byte)(hdr), fakeHeaderSize)))
}

func (f *fakeBackend) RequestedToUsable(size uintptr, _ backend.Flags) uintptr {
	const quantum = 16
	return (size + quantum - 1) &^ (quantum - 1)
}

func (f *fakeBackend) RefreshEpoch() error {
	if f.failStats {
		return fmt.Errorf("fakeBackend: epoch refresh disabled")
	}
	return nil
}

func (f *fakeBackend) ArenaBytes(arena backend.ArenaID) (small, large uint64, err error) {
	if f.failStats {
		return 0, 0, fmt.Errorf("fakeBackend: stats disabled")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.arenaBytes[arena], 0, nil
}
