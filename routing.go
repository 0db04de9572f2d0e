package platform

import "github.com/jimwwalker/platform/internal/backend"

// Binding is the explicit, Go-native stand-in for the original allocator's
// thread-local routing state (§4.4). Rather than a hidden per-thread global,
// a caller obtains one Binding per goroutine (or per OS thread, if it calls
// runtime.LockOSThread) and threads it through every hot-path call; the
// state-machine contract of switchTo/switchFrom is unchanged, only the
// carrier is explicit.
//
// tcachePerClient is sized to MaxClients at construction rather than grown
// on first use, honoring §4.4's re-entrancy rule (no hot-path call ever
// triggers a slice growth) even though this module has no malloc-hook
// re-entrancy hazard of its own to guard against.
type Binding struct {
	currentIndex    uint32
	allocFlags      backend.Flags
	tcachePerClient []backend.TCacheID

	registry *Registry
	backend  backend.Backend
}

// NewBinding creates an unbound Binding routed through registry and be.
func NewBinding(registry *Registry, be backend.Backend) *Binding {
	return &Binding{
		currentIndex:    NoClientIndex,
		allocFlags:      backend.DefaultFlags(),
		tcachePerClient: make([]backend.TCacheID, MaxClients),
		registry:        registry,
		backend:         be,
	}
}

// CurrentIndex returns the index of the client currently bound, or
// NoClientIndex.
func (b *Binding) CurrentIndex() uint32 {
	return b.currentIndex
}

// AllocFlags returns the composed back-end flag word for the currently
// bound client.
func (b *Binding) AllocFlags() backend.Flags {
	return b.allocFlags
}

// SwitchToClient binds h for subsequent hot-path calls on this Binding.
// Acquires a thread-cache from the back-end on first use per client, if h
// requests one and the global override allows it.
func (b *Binding) SwitchToClient(h ClientHandle) error {
	b.currentIndex = h.Index

	if h.IsNone() {
		b.allocFlags = backend.DefaultFlags()
		return nil
	}

	if h.ThreadCache && b.registry.ThreadCacheEnabled() {
		tc := b.tcachePerClient[h.Index]
		if tc == 0 {
			created, err := b.backend.CreateThreadCache(h.Arena)
			if err != nil {
				b.allocFlags = backend.Arena(h.Arena) | backend.TCacheNone
				return wrapf(ErrThreadCacheCreationFailed, err)
			}
			tc = created
			b.tcachePerClient[h.Index] = tc
		}
		b.allocFlags = backend.Arena(h.Arena) | backend.TCache(tc)
		return nil
	}

	b.allocFlags = backend.Arena(h.Arena) | backend.TCacheNone
	return nil
}

// SwitchFromClient unbinds the current client. Allocations made afterward
// are untracked and served from the default arena, until the next
// SwitchToClient.
func (b *Binding) SwitchFromClient() {
	b.currentIndex = NoClientIndex
	b.allocFlags = backend.DefaultFlags()
}

// ScopedBinding is returned by Binding.ScopedClient; Close guarantees
// SwitchFromClient runs, including on error/panic-unwind paths via defer.
type ScopedBinding struct {
	b *Binding
}

// ScopedClient binds h and returns a handle whose Close switches back to no
// client. Typical use: `s, err := b.ScopedClient(h); defer s.Close()`.
func (b *Binding) ScopedClient(h ClientHandle) (*ScopedBinding, error) {
	if err := b.SwitchToClient(h); err != nil {
		return nil, err
	}
	return &ScopedBinding{b: b}, nil
}

// Close switches the underlying Binding back to no client.
func (s *ScopedBinding) Close() {
	s.b.SwitchFromClient()
}

// Close releases every thread-cache this Binding acquired, as a thread-exit
// destructor would in the original design, and unbinds any current client.
// Safe to call once; a Binding must not be used afterward.
func (b *Binding) Close() error {
	var first error
	for i, tc := range b.tcachePerClient {
		if tc == 0 {
			continue
		}
		if err := b.backend.DestroyThreadCache(tc); err != nil && first == nil {
			first = wrapf(ErrThreadCacheDestructionFailed, err)
		}
		b.tcachePerClient[i] = 0
	}
	b.SwitchFromClient()
	return first
}
