//go:build jemalloc

package backend

/*
#cgo LDFLAGS: -ljemalloc
#include <stdlib.h>
#include <jemalloc/jemalloc.h>

static int backend_mallctl_read_uint(const char *name, unsigned *out) {
	size_t sz = sizeof(*out);
	return je_mallctl(name, out, &sz, NULL, 0);
}

static int backend_mallctl_write_uint(const char *name, unsigned in) {
	return je_mallctl(name, NULL, NULL, &in, sizeof(in));
}

static int backend_mib_lookup(const char *name, size_t *mib, size_t *miblen) {
	return je_mallctlnametomib(name, mib, miblen);
}

static int backend_mib_read_size(size_t *mib, size_t miblen, size_t *out) {
	size_t sz = sizeof(*out);
	return je_mallctlbymib(mib, miblen, out, &sz, NULL, 0);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

//go:linkname throw runtime.throw
func throw(s string)

// jemallocBackend is a direct port of the accounting core's native
// collaborator, je_arena_malloc.cc: arenas.create / tcache.create /
// tcache.destroy via je_mallctl, je_mallocx/je_rallocx/je_dallocx/
// je_sdallocx/je_nallocx/je_malloc_usable_size for the hot path, and
// stats.arenas.<i>.{small,large}.allocated (refreshed via the "epoch"
// mallctl) for ArenaBytes.
type jemallocBackend struct {
	mibSmall   [5]C.size_t
	miblenSmall C.size_t
	mibLarge   [5]C.size_t
	miblenLarge C.size_t
}

// New returns the real-jemalloc-backed Backend. Only built when the
// module is compiled with `-tags jemalloc` and linked against libjemalloc.
func New() Backend {
	b := &jemallocBackend{}

	b.miblenSmall = C.size_t(len(b.mibSmall))
	name := C.CString("stats.arenas.0.small.allocated")
	if rv := C.backend_mib_lookup(name, (*C.size_t)(&b.mibSmall[0]), &b.miblenSmall); rv != 0 {
		panic(fmt.Sprintf("backend: cannot resolve small.allocated mib: rv=%d", rv))
	}
	C.free(unsafe.Pointer(name))

	b.miblenLarge = C.size_t(len(b.mibLarge))
	name = C.CString("stats.arenas.0.large.allocated")
	if rv := C.backend_mib_lookup(name, (*C.size_t)(&b.mibLarge[0]), &b.miblenLarge); rv != 0 {
		panic(fmt.Sprintf("backend: cannot resolve large.allocated mib: rv=%d", rv))
	}
	C.free(unsafe.Pointer(name))

	return b
}

func (b *jemallocBackend) CreateArena() (ArenaID, error) {
	var arena C.uint
	name := C.CString("arenas.create")
	rv := C.backend_mallctl_read_uint(name, (*C.uint)(unsafe.Pointer(&arena)))
	C.free(unsafe.Pointer(name))
	if rv != 0 {
		return 0, fmt.Errorf("backend: arenas.create failed: rv=%d", rv)
	}
	return ArenaID(arena), nil
}

func (b *jemallocBackend) CreateThreadCache(arena ArenaID) (TCacheID, error) {
	var tcache C.uint
	name := C.CString("tcache.create")
	rv := C.backend_mallctl_read_uint(name, (*C.uint)(unsafe.Pointer(&tcache)))
	C.free(unsafe.Pointer(name))
	if rv != 0 {
		return 0, fmt.Errorf("backend: tcache.create failed: rv=%d", rv)
	}
	return TCacheID(tcache), nil
}

func (b *jemallocBackend) DestroyThreadCache(tc TCacheID) error {
	name := C.CString("tcache.destroy")
	rv := C.backend_mallctl_write_uint(name, C.uint(tc))
	C.free(unsafe.Pointer(name))
	if rv != 0 {
		return fmt.Errorf("backend: tcache.destroy failed: rv=%d", rv)
	}
	return nil
}

func (b *jemallocBackend) Alloc(size uintptr, flags Flags) unsafe.Pointer {
	ptr := C.je_mallocx(C.size_t(size), C.int(flags))
	if ptr == nil {
		throw("out of memory")
	}
	return unsafe.Pointer(ptr)
}

func (b *jemallocBackend) Realloc(ptr unsafe.Pointer, size uintptr, flags Flags) unsafe.Pointer {
	if ptr == nil {
		return b.Alloc(size, flags)
	}
	np := C.je_rallocx(ptr, C.size_t(size), C.int(flags))
	if np == nil {
		throw("out of memory")
	}
	return unsafe.Pointer(np)
}

func (b *jemallocBackend) Free(ptr unsafe.Pointer, flags Flags) {
	if ptr != nil {
		C.je_dallocx(ptr, C.int(flags))
	}
}

func (b *jemallocBackend) SizedFree(ptr unsafe.Pointer, size uintptr, flags Flags) {
	if ptr != nil {
		C.je_sdallocx(ptr, C.size_t(size), C.int(flags))
	}
}

func (b *jemallocBackend) UsableSize(ptr unsafe.Pointer) uintptr {
	if ptr == nil {
		return 0
	}
	return uintptr(C.je_malloc_usable_size(ptr))
}

func (b *jemallocBackend) RequestedToUsable(size uintptr, flags Flags) uintptr {
	return uintptr(C.je_nallocx(C.size_t(size), C.int(flags)))
}

func (b *jemallocBackend) RefreshEpoch() error {
	var epoch C.size_t = 1
	sz := C.size_t(unsafe.Sizeof(epoch))
	name := C.CString("epoch")
	rv := C.je_mallctl(name, unsafe.Pointer(&epoch), &sz, unsafe.Pointer(&epoch), sz)
	C.free(unsafe.Pointer(name))
	if rv != 0 {
		return fmt.Errorf("backend: epoch refresh failed: rv=%d", rv)
	}
	return nil
}

func (b *jemallocBackend) ArenaBytes(arena ArenaID) (small, large uint64, err error) {
	b.mibSmall[2] = C.size_t(arena)
	b.mibLarge[2] = C.size_t(arena)

	var allocSmall, allocLarge C.size_t
	rv1 := C.backend_mib_read_size(&b.mibSmall[0], b.miblenSmall, &allocSmall)
	rv2 := C.backend_mib_read_size(&b.mibLarge[0], b.miblenLarge, &allocLarge)
	if rv1 != 0 || rv2 != 0 {
		return 0, 0, fmt.Errorf("backend: stats.arenas.%d read failed: rv1=%d rv2=%d", arena, rv1, rv2)
	}
	return uint64(allocSmall), uint64(allocLarge), nil
}
