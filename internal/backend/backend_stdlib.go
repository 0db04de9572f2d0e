//go:build !jemalloc

package backend

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/atomic"
)

// headerSize is the size, in bytes, of the length prefix this backend
// writes ahead of every allocation so that UsableSize can recover a
// block's size from its pointer alone, the way je_sallocx/je_nallocx do
// for the real allocator. A chunked bump arena has no notion of "the
// block starting at this address" otherwise.
const headerSize = int(unsafe.Sizeof(uint64(0)))

// sizeClassQuantum mirrors jemalloc's small-size-class rounding: every
// request is rounded up to the next multiple of the quantum before it is
// handed to the arena, so RequestedToUsable and the value later recovered
// via UsableSize always agree.
const sizeClassQuantum = 16

// smallSizeClassMax is where ArenaBytes splits an arena's bytes in use:
// the first smallSizeClassMax bytes are reported as "small" and the rest as
// "large". Individual allocations are not classified by their own size.
const smallSizeClassMax = 14 * 1024

func roundToSizeClass(size uintptr) uintptr {
	return (size + sizeClassQuantum - 1) &^ (sizeClassQuantum - 1)
}

// stdlibBackend is the no-cgo fallback Backend: one safeChunkArena per
// native arena id, a size header ahead of every returned pointer, and no
// real reclamation on Free (matching a bump arena's own limits, and
// consistent with spec's delegation of physical memory management to an
// external native allocator).
type stdlibBackend struct {
	mu      sync.RWMutex
	arenas  []*safeChunkArena // index 0 unused; ids start at 1
	next    atomic.Uint32
	tcaches atomic.Uint32

	defaultArena *safeChunkArena
}

// New returns the pure-Go fallback Backend, used whenever the module is
// not built with the "jemalloc" tag.
func New() Backend {
	return &stdlibBackend{
		defaultArena: newSafeChunkArena(defaultChunkSize),
	}
}

func (b *stdlibBackend) CreateArena() (ArenaID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.arenas = append(b.arenas, newSafeChunkArena(defaultChunkSize))
	return ArenaID(len(b.arenas)), nil
}

func (b *stdlibBackend) CreateThreadCache(arena ArenaID) (TCacheID, error) {
	if arena == NoArena {
		return 0, fmt.Errorf("backend: cannot create a thread-cache for the default arena")
	}
	return TCacheID(b.tcaches.Add(1)), nil
}

func (b *stdlibBackend) DestroyThreadCache(TCacheID) error {
	// The fallback backend hands out bare integers as thread-cache ids;
	// there is no native resource to release.
	return nil
}

func (b *stdlibBackend) arenaFor(id ArenaID) *safeChunkArena {
	if id == NoArena {
		return b.defaultArena
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.arenas[id-1]
}

func (b *stdlibBackend) Alloc(size uintptr, flags Flags) unsafe.Pointer {
	usable := roundToSizeClass(size)
	a := b.arenaFor(ArenaOf(flags))
	buf := a.allocBytes(headerSize + int(usable))
	binary.LittleEndian.PutUint64(buf[:headerSize], uint64(usable))
	payload := buf[headerSize:]
	if flags&FlagZero != 0 {
		clear(payload)
	}
	return unsafe.Pointer(&payload[0])
}

func (b *stdlibBackend) Realloc(ptr unsafe.Pointer, size uintptr, flags Flags) unsafe.Pointer {
	if ptr == nil {
		return b.Alloc(size, flags)
	}
	oldSize := b.UsableSize(ptr)
	newPtr := b.Alloc(size, flags)
	n := oldSize
	if size < n {
		n = size
	}
	if n > 0 {
		src := unsafe.Slice((*byte)(ptr), n)
		dst := unsafe.Slice((*byte)(newPtr), n)
		copy(dst, src)
	}
	return newPtr
}

func (b *stdlibBackend) Free(unsafe.Pointer, Flags) {
	// A bump arena cannot reclaim individual blocks; the client's
	// accounting decrement, driven by the façade, is the only effect a
	// free has under this backend.
}

func (b *stdlibBackend) SizedFree(ptr unsafe.Pointer, size uintptr, flags Flags) {
	b.Free(ptr, flags)
}

func (b *stdlibBackend) UsableSize(ptr unsafe.Pointer) uintptr {
	if ptr == nil {
		return 0
	}
	hdr := unsafe.Add(ptr, -headerSize)
	return uintptr(binary.LittleEndian.Uint64(unsafe.Slice((*byte)(hdr), headerSize)))
}

func (b *stdlibBackend) RequestedToUsable(size uintptr, _ Flags) uintptr {
	return roundToSizeClass(size)
}

func (b *stdlibBackend) RefreshEpoch() error {
	return nil
}

func (b *stdlibBackend) ArenaBytes(arena ArenaID) (small, large uint64, err error) {
	if arena == NoArena {
		return 0, 0, nil
	}
	inUse := uint64(b.arenaFor(arena).sizeInUse())
	if inUse <= smallSizeClassMax {
		return inUse, 0, nil
	}
	return smallSizeClassMax, inUse - smallSizeClassMax, nil
}
