package platform

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the registry, routing and stats paths. Wrapped
// with %w alongside the underlying back-end failure where one exists, so
// callers can still errors.Is against the sentinel.
var (
	// ErrNoFreeClientSlots is returned by RegisterClient when every slot in
	// the registry is occupied.
	ErrNoFreeClientSlots = errors.New("platform: no free client slots")

	// ErrArenaCreationFailed is returned when the back-end refuses to hand
	// out a new arena during registration.
	ErrArenaCreationFailed = errors.New("platform: arena creation failed")

	// ErrThreadCacheCreationFailed is returned when the back-end refuses to
	// hand out a new thread-cache during a switch.
	ErrThreadCacheCreationFailed = errors.New("platform: thread-cache creation failed")

	// ErrThreadCacheDestructionFailed is returned when the back-end refuses
	// to release a thread-cache during binding teardown.
	ErrThreadCacheDestructionFailed = errors.New("platform: thread-cache destruction failed")

	// ErrClientNotRegistered is returned by UnregisterClient when the slot
	// named by the handle is not in use, or is in use by a different arena.
	ErrClientNotRegistered = errors.New("platform: client not registered")

	// ErrUnboundThread is returned by UnregisterCurrentClient when the
	// calling binding has no client bound.
	ErrUnboundThread = errors.New("platform: no client bound to this thread")

	// ErrBackendStatsFailed is returned by BackendUsage when the back-end's
	// epoch refresh or per-arena byte query fails.
	ErrBackendStatsFailed = errors.New("platform: backend statistics query failed")
)

// wrapf wraps sentinel with the underlying back-end error cause, preserving
// errors.Is(err, sentinel).
func wrapf(sentinel, cause error) error {
	return fmt.Errorf("%w: %v", sentinel, cause)
}

// CounterUnderflowError is returned under the Raise overflow policy when a
// subtraction would take the counter below zero. The stored value is left
// unchanged.
type CounterUnderflowError struct {
	Current uint64
	Delta   int64
}

func (e *CounterUnderflowError) Error() string {
	return fmt.Sprintf("platform: counter underflow: current=%d delta=%d", e.Current, e.Delta)
}

// CounterOverflowError is returned under the Raise overflow policy when an
// addition would take the counter above its maximum representable value.
// The stored value is left unchanged.
type CounterOverflowError struct {
	Current uint64
	Delta   int64
}

func (e *CounterOverflowError) Error() string {
	return fmt.Sprintf("platform: counter overflow: current=%d delta=%d", e.Current, e.Delta)
}
