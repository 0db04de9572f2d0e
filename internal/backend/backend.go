package backend

import "unsafe"

// ArenaID identifies a native arena. The zero value, NoArena, means "no
// arena / default arena" and is never assigned to a live client.
type ArenaID uint32

// NoArena is the sentinel arena id meaning "default arena, untracked".
const NoArena ArenaID = 0

// TCacheID identifies a native thread-cache. The zero value means "no
// thread-cache has been created yet for this (thread, client) pair".
type TCacheID uint32

// Flags is a composed allocation flag word, matching the bit layout of
// jemalloc's own mallocx flags so the jemalloc backend needs no
// translation and the fallback backend's decoding is a faithful stand-in:
//
//	bits [31:20]  arena index + 1  (0 => no arena)
//	bits [19:8]   tcache index + 1 (0 => no tcache; all-ones => tcache none)
//	bit  6        zero-fill
const (
	arenaShift  = 20
	tcacheShift = 8

	// FlagZero requests zero-filled memory (mirrors MALLOCX_ZERO = 0x40).
	FlagZero Flags = 1 << 6

	// TCacheNone explicitly disables the thread cache for this call
	// (mirrors MALLOCX_TCACHE_NONE, i.e. MALLOCX_TCACHE(-1)).
	TCacheNone Flags = Flags(0xFFF) << tcacheShift
)

type Flags uint32

// Arena composes the flag bits selecting arena a.
func Arena(a ArenaID) Flags {
	return Flags((uint32(a) + 1) << arenaShift)
}

// ArenaOf extracts the arena selected by flags, or NoArena if none.
func ArenaOf(f Flags) ArenaID {
	v := uint32(f) >> arenaShift
	if v == 0 {
		return NoArena
	}
	return ArenaID(v - 1)
}

// TCache composes the flag bits selecting thread-cache t.
func TCache(t TCacheID) Flags {
	return Flags((uint32(t) + 1) << tcacheShift)
}

// DefaultFlags is the flag word used before any client has ever been
// bound: default arena, default (native) thread-cache behavior.
func DefaultFlags() Flags { return 0 }

// Backend is the native, per-arena allocator the accounting façade
// delegates to. Two implementations exist in this package: a cgo binding
// to real jemalloc (build tag "jemalloc") and a pure-Go fallback built on
// a chunked bump allocator, used when no such native allocator is linked.
type Backend interface {
	// CreateArena acquires a new native arena. Arenas are never destroyed.
	CreateArena() (ArenaID, error)

	// CreateThreadCache acquires a new thread-cache bound to arena.
	CreateThreadCache(arena ArenaID) (TCacheID, error)

	// DestroyThreadCache releases a thread-cache previously created by
	// CreateThreadCache. Called from a binding's Close/thread-exit path.
	DestroyThreadCache(TCacheID) error

	// Alloc returns a pointer to at least size bytes, allocated as
	// directed by flags. Never returns nil for size > 0 on success.
	Alloc(size uintptr, flags Flags) unsafe.Pointer

	// Realloc resizes the allocation at ptr to size bytes, as directed by
	// flags. ptr must have been obtained from Alloc/Realloc/Calloc.
	Realloc(ptr unsafe.Pointer, size uintptr, flags Flags) unsafe.Pointer

	// Free releases ptr.
	Free(ptr unsafe.Pointer, flags Flags)

	// SizedFree releases ptr, given its previously-reported usable size.
	SizedFree(ptr unsafe.Pointer, size uintptr, flags Flags)

	// UsableSize returns the number of bytes actually available at ptr.
	UsableSize(ptr unsafe.Pointer) uintptr

	// RequestedToUsable returns the usable size that a subsequent Alloc of
	// size bytes with the given flags would actually receive, without
	// performing the allocation (the "would-be size" query of spec §4.5).
	RequestedToUsable(size uintptr, flags Flags) uintptr

	// RefreshEpoch refreshes the backend's cached statistics epoch,
	// required before ArenaBytes reflects recent activity.
	RefreshEpoch() error

	// ArenaBytes reports the small- and large-size-class live bytes
	// attributed to arena by the backend's own bookkeeping.
	ArenaBytes(arena ArenaID) (small, large uint64, err error)
}
