package platform

import "go.uber.org/atomic"

// overflowPolicy resolves a candidate delta against a counter's current
// value, either clamping it into range or refusing it outright. Both
// implementations are stateless; a NonNegativeCounter carries its policy as
// a type parameter and constructs a zero value of it on every operation.
type overflowPolicy interface {
	resolve(current uint64, delta int64) (next uint64, err error)
}

// SaturatePolicy clamps out-of-range results to the boundary instead of
// failing: sub below zero settles at zero, add above the maximum settles at
// the maximum. This is the release-build default described by the original
// allocator's counter.
type SaturatePolicy struct{}

// RaisePolicy fails the operation instead of clamping, leaving the stored
// value unchanged. This is the debug-build default described by the
// original allocator's counter.
type RaisePolicy struct{}

const maxUint64 = ^uint64(0)

func magnitude(delta int64) uint64 {
	if delta >= 0 {
		return uint64(delta)
	}
	// Handles math.MinInt64 without overflowing during negation.
	return uint64(-(delta+1)) + 1
}

func (SaturatePolicy) resolve(current uint64, delta int64) (uint64, error) {
	if delta >= 0 {
		d := magnitude(delta)
		if d > maxUint64-current {
			return maxUint64, nil
		}
		return current + d, nil
	}
	d := magnitude(delta)
	if d > current {
		return 0, nil
	}
	return current - d, nil
}

func (RaisePolicy) resolve(current uint64, delta int64) (uint64, error) {
	if delta >= 0 {
		d := magnitude(delta)
		if d > maxUint64-current {
			return current, &CounterOverflowError{Current: current, Delta: delta}
		}
		return current + d, nil
	}
	d := magnitude(delta)
	if d > current {
		return current, &CounterUnderflowError{Current: current, Delta: delta}
	}
	return current - d, nil
}

// NonNegativeCounter is an atomic uint64 counter that accepts signed deltas
// and consults an overflow policy P whenever a result would fall outside
// [0, math.MaxUint64]. It is a statistic, not a synchronizer: all operations
// use relaxed memory ordering and never block.
type NonNegativeCounter[P overflowPolicy] struct {
	v atomic.Uint64
}

// addDelta runs the compare-exchange loop shared by every mutating method.
// It returns the value observed before the update and the value after it;
// under RaisePolicy a failed resolve leaves both equal to the current value.
func (c *NonNegativeCounter[P]) addDelta(delta int64) (prev, next uint64, err error) {
	var p P
	for {
		cur := c.v.Load()
		nxt, rerr := p.resolve(cur, delta)
		if rerr != nil {
			return cur, cur, rerr
		}
		if c.v.CompareAndSwap(cur, nxt) {
			return cur, nxt, nil
		}
	}
}

// Load returns the current value.
func (c *NonNegativeCounter[P]) Load() uint64 {
	return c.v.Load()
}

// Store sets the value unconditionally, bypassing the overflow policy.
func (c *NonNegativeCounter[P]) Store(v uint64) {
	c.v.Store(v)
}

// Exchange sets the value unconditionally and returns the prior value,
// bypassing the overflow policy.
func (c *NonNegativeCounter[P]) Exchange(v uint64) uint64 {
	return c.v.Swap(v)
}

// Add applies a positive or negative delta and returns the resulting value.
func (c *NonNegativeCounter[P]) Add(delta int64) (uint64, error) {
	_, next, err := c.addDelta(delta)
	return next, err
}

// Sub is Add(-delta).
func (c *NonNegativeCounter[P]) Sub(delta int64) (uint64, error) {
	_, next, err := c.addDelta(-delta)
	return next, err
}

// PreIncrement adds one and returns the value after the increment.
func (c *NonNegativeCounter[P]) PreIncrement() (uint64, error) {
	_, next, err := c.addDelta(1)
	return next, err
}

// PostIncrement adds one and returns the value before the increment.
func (c *NonNegativeCounter[P]) PostIncrement() (uint64, error) {
	prev, _, err := c.addDelta(1)
	return prev, err
}

// PreDecrement subtracts one and returns the value after the decrement.
func (c *NonNegativeCounter[P]) PreDecrement() (uint64, error) {
	_, next, err := c.addDelta(-1)
	return next, err
}

// PostDecrement subtracts one and returns the value before the decrement.
func (c *NonNegativeCounter[P]) PostDecrement() (uint64, error) {
	prev, _, err := c.addDelta(-1)
	return prev, err
}
