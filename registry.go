package platform

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/jimwwalker/platform/internal/backend"
)

// clientSlot is one entry of the registry's fixed-size table. arena is
// retained across register/unregister cycles: once a slot has been assigned
// an arena, that arena id is reused by every future occupant of the slot,
// since the back-end never destroys arenas (§4.3).
type clientSlot struct {
	used  atomic.Bool
	arena atomic.Uint32 // backend.ArenaID; 0 (backend.NoArena) means never assigned
}

// Registry is the fixed-capacity client table described in §4.3: a
// reader-writer lock guards slot occupancy, but every hot path (alloc,
// free, switch, readout) never touches it.
type Registry struct {
	mu            sync.RWMutex
	slots         [MaxClients]clientSlot
	tally         *TallyTable
	backend       backend.Backend
	tcacheEnabled atomic.Bool
	logger        Logger
}

// NewRegistry builds an empty registry backed by be, recording tally resets
// against tally on every registration.
func NewRegistry(be backend.Backend, tally *TallyTable, logger Logger) *Registry {
	if logger == nil {
		logger = defaultLoggerInstance
	}
	r := &Registry{backend: be, tally: tally, logger: logger}
	r.tcacheEnabled.Store(true)
	return r
}

// SetThreadCacheEnabled is the global override named in §6: when false, no
// client is ever handed a thread-cache regardless of its own preference.
func (r *Registry) SetThreadCacheEnabled(v bool) {
	r.tcacheEnabled.Store(v)
}

// ThreadCacheEnabled reports the current global override value.
func (r *Registry) ThreadCacheEnabled() bool {
	return r.tcacheEnabled.Load()
}

// RegisterClient scans for the first free slot, assigning it a new arena if
// it has never held one, and returns a handle to it.
func (r *Registry) RegisterClient(threadCache bool) (ClientHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		slot := &r.slots[i]
		if slot.used.Load() {
			continue
		}

		arena := backend.ArenaID(slot.arena.Load())
		if arena == backend.NoArena {
			a, err := r.backend.CreateArena()
			if err != nil {
				r.logger.Errorf("registry: arena creation failed for slot %d: %v", i, err)
				return ClientHandle{}, wrapf(ErrArenaCreationFailed, err)
			}
			arena = a
			slot.arena.Store(uint32(arena))
		}

		slot.used.Store(true)
		r.tally.clientRegistered(uint32(i))

		return ClientHandle{
			Arena:                   arena,
			Index:                   uint32(i),
			ThreadCache:             threadCache && r.tcacheEnabled.Load(),
			EstimateUpdateThreshold: DefaultEstimateThreshold,
		}, nil
	}

	r.logger.Warnf("registry: no free client slots (capacity %d)", MaxClients)
	return ClientHandle{}, ErrNoFreeClientSlots
}

// UnregisterClient frees h's slot for reuse. The arena id stays attached to
// the slot; it is handed to whichever client registers into that slot next.
func (r *Registry) UnregisterClient(h ClientHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterLocked(h.Index, h.Arena)
}

// UnregisterCurrentClient unregisters whatever client b is currently bound
// to, then clears the binding.
func (r *Registry) UnregisterCurrentClient(b *Binding) error {
	if b == nil || b.currentIndex == NoClientIndex {
		return ErrUnboundThread
	}

	r.mu.Lock()
	idx := b.currentIndex
	arena := backend.ArenaID(r.slots[idx].arena.Load())
	err := r.unregisterLocked(idx, arena)
	r.mu.Unlock()

	if err != nil {
		return err
	}
	b.SwitchFromClient()
	return nil
}

func (r *Registry) unregisterLocked(index uint32, arena backend.ArenaID) error {
	if index >= MaxClients {
		return ErrClientNotRegistered
	}
	slot := &r.slots[index]
	if !slot.used.Load() || backend.ArenaID(slot.arena.Load()) != arena {
		return ErrClientNotRegistered
	}
	slot.used.Store(false)
	return nil
}

// snapshot reports {index, arena, estimated, precise} for every slot
// currently in use. Held under the read lock only long enough to copy slot
// occupancy; the (possibly expensive) precise readouts run outside it.
func (r *Registry) snapshot(t *TallyTable) []ClientSnapshot {
	r.mu.RLock()
	type liveSlot struct {
		index uint32
		arena backend.ArenaID
	}
	var live []liveSlot
	for i := range r.slots {
		if r.slots[i].used.Load() {
			live = append(live, liveSlot{index: uint32(i), arena: backend.ArenaID(r.slots[i].arena.Load())})
		}
	}
	r.mu.RUnlock()

	out := make([]ClientSnapshot, len(live))
	for i, s := range live {
		out[i] = ClientSnapshot{
			Index:     s.index,
			Arena:     s.arena,
			Estimated: t.getEstimatedAllocated(s.index),
			Precise:   t.getPreciseAllocated(s.index),
		}
	}
	return out
}
