package platform

import (
	"unsafe"

	"github.com/jimwwalker/platform/internal/backend"
)

// Facade is the allocator façade of §4.5: the public surface a caller uses
// to register clients, bind bindings to them, and route allocation traffic
// through the back-end while keeping the sharded tally current.
type Facade struct {
	backend          backend.Backend
	registry         *Registry
	tally            *TallyTable
	logger           Logger
	defaultThreshold uint64
}

// NewFacade builds a Facade over be, applying opts in order.
func NewFacade(be backend.Backend, opts ...Option) *Facade {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	tally := NewTallyTable(cfg.shardCount)
	registry := NewRegistry(be, tally, cfg.logger)
	registry.SetThreadCacheEnabled(cfg.threadCacheEnabled)

	return &Facade{
		backend:          be,
		registry:         registry,
		tally:            tally,
		logger:           cfg.logger,
		defaultThreshold: cfg.defaultEstimateThreshold,
	}
}

// NewBinding returns a fresh, unbound Binding routed through this façade's
// registry and back-end. Callers obtain one per goroutine (or OS thread).
func (f *Facade) NewBinding() *Binding {
	return NewBinding(f.registry, f.backend)
}

// RegisterClient acquires a client slot (and, if needed, a new native
// arena) and returns a handle to it.
func (f *Facade) RegisterClient(threadCache bool) (ClientHandle, error) {
	h, err := f.registry.RegisterClient(threadCache)
	if err != nil {
		return ClientHandle{}, err
	}
	h.EstimateUpdateThreshold = f.defaultThreshold
	f.tally.setThreshold(h.Index, f.defaultThreshold)
	return h, nil
}

// UnregisterClient releases h's slot for reuse.
func (f *Facade) UnregisterClient(h ClientHandle) error {
	return f.registry.UnregisterClient(h)
}

// UnregisterCurrentClient releases whatever client b is currently bound to.
func (f *Facade) UnregisterCurrentClient(b *Binding) error {
	return f.registry.UnregisterCurrentClient(b)
}

// SetThreadCacheEnabled is the global override named in §6.
func (f *Facade) SetThreadCacheEnabled(enabled bool) {
	f.registry.SetThreadCacheEnabled(enabled)
}

// SetEstimateUpdateThreshold sets h's per-shard threshold to
// floor(maxDataSize * percentOfMax / 100 / shardCount), clamped to at least
// DefaultEstimateThreshold.
func (f *Facade) SetEstimateUpdateThreshold(h ClientHandle, maxDataSize, percentOfMax uint64) {
	threshold := maxDataSize * percentOfMax / 100 / uint64(f.tally.shardCount)
	if threshold < DefaultEstimateThreshold {
		threshold = DefaultEstimateThreshold
	}
	f.tally.setThreshold(h.Index, threshold)
}

// GetPreciseAllocated is TallyTable.getPreciseAllocated for h's client.
func (f *Facade) GetPreciseAllocated(h ClientHandle) uint64 {
	return f.tally.getPreciseAllocated(h.Index)
}

// GetEstimatedAllocated is TallyTable.getEstimatedAllocated for h's client.
func (f *Facade) GetEstimatedAllocated(h ClientHandle) uint64 {
	return f.tally.getEstimatedAllocated(h.Index)
}

// Alloc requests size bytes routed through b's current binding, rounding
// size==0 up to minAllocSize so every call yields a distinct, trackable
// pointer. The tally is updated with the usable size the back-end will
// actually assign, not the requested size, so a balanced alloc/free pair
// always cancels exactly.
func (f *Facade) Alloc(b *Binding, size uintptr) unsafe.Pointer {
	if size == 0 {
		size = minAllocSize
	}
	flags := b.AllocFlags()
	usable := f.backend.RequestedToUsable(size, flags)
	f.tally.memAllocated(b.CurrentIndex(), uint64(usable))
	return f.backend.Alloc(size, flags)
}

// Calloc is Alloc with the zero-fill flag set and n*size as the requested
// size.
func (f *Facade) Calloc(b *Binding, n, size uintptr) unsafe.Pointer {
	total := n * size
	if total == 0 {
		total = minAllocSize
	}
	flags := b.AllocFlags() | backend.FlagZero
	usable := f.backend.RequestedToUsable(total, flags)
	f.tally.memAllocated(b.CurrentIndex(), uint64(usable))
	return f.backend.Alloc(total, flags)
}

// Realloc resizes ptr to size bytes. ptr == nil degenerates to Alloc. The
// old usable size (queried from the back-end) is subtracted before the new
// usable size is added, so the tally never observes a spurious transient.
func (f *Facade) Realloc(b *Binding, ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	if ptr == nil {
		return f.Alloc(b, size)
	}
	oldUsable := f.backend.UsableSize(ptr)
	f.tally.memDeallocated(b.CurrentIndex(), uint64(oldUsable))

	flags := b.AllocFlags()
	newUsable := f.backend.RequestedToUsable(size, flags)
	f.tally.memAllocated(b.CurrentIndex(), uint64(newUsable))

	return f.backend.Realloc(ptr, size, flags)
}

// Free releases ptr, if non-nil, decrementing b's tally by ptr's usable size
// as reported by the back-end.
func (f *Facade) Free(b *Binding, ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	usable := f.backend.UsableSize(ptr)
	f.tally.memDeallocated(b.CurrentIndex(), uint64(usable))
	f.backend.Free(ptr, b.AllocFlags())
}

// SizedFree is Free, but passes the caller's already-known size to the
// back-end's sized deallocation path instead of querying UsableSize.
func (f *Facade) SizedFree(b *Binding, ptr unsafe.Pointer, size uintptr) {
	if ptr == nil {
		return
	}
	f.tally.memDeallocated(b.CurrentIndex(), uint64(size))
	f.backend.SizedFree(ptr, size, b.AllocFlags())
}

// UsableSize delegates to the back-end without touching any counter.
func (f *Facade) UsableSize(ptr unsafe.Pointer) uintptr {
	return f.backend.UsableSize(ptr)
}

// Strdup allocates a NUL-terminated copy of s through Alloc, the one
// convenience the public allocation API keeps in scope (§6.5).
func (f *Facade) Strdup(b *Binding, s string) unsafe.Pointer {
	n := len(s) + 1
	ptr := f.Alloc(b, uintptr(n))
	buf := unsafe.Slice((*byte)(ptr), n)
	copy(buf, s)
	buf[n-1] = 0
	return ptr
}
