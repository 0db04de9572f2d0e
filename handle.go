package platform

import "github.com/jimwwalker/platform/internal/backend"

// MaxClients is the fixed capacity of the client registry.
const MaxClients = 100

// NoClientIndex is the sentinel index meaning "no client bound".
const NoClientIndex = MaxClients + 1

// DefaultEstimateThreshold is the per-shard estimate threshold newly
// registered clients start with unless WithDefaultEstimateThreshold
// overrides it, and the floor SetEstimateUpdateThreshold clamps its
// percentage computation to.
const DefaultEstimateThreshold uint64 = 100 * 1024

// minAllocSize is the size a zero-byte request is rounded up to, so that
// alloc(0) still returns a distinct, trackable pointer.
const minAllocSize = 8

// ClientHandle names a registered client. The zero value is not a valid
// handle for a live client; use NoClient for "no client / default arena".
type ClientHandle struct {
	Arena                   backend.ArenaID
	Index                   uint32
	ThreadCache             bool
	EstimateUpdateThreshold uint64
}

// NoClient returns the handle representing "no client bound". Passing it to
// (*Binding).SwitchToClient is equivalent to calling SwitchFromClient.
func NoClient() ClientHandle {
	return ClientHandle{Arena: backend.NoArena, Index: NoClientIndex}
}

// IsNone reports whether h represents "no client".
func (h ClientHandle) IsNone() bool {
	return h.Index == NoClientIndex || h.Arena == backend.NoArena
}
