package platform

import (
	"errors"
	"math"
	"testing"
)

func TestNonNegativeCounterSaturateUnderflow(t *testing.T) {
	var c NonNegativeCounter[SaturatePolicy]
	c.Store(0)

	prev, err := c.PostDecrement()
	if err != nil {
		t.Fatalf("PostDecrement: %v", err)
	}
	if prev != 0 {
		t.Errorf("prev = %d, want 0", prev)
	}
	if got := c.Load(); got != 0 {
		t.Errorf("Load() after saturating decrement = %d, want 0", got)
	}
}

func TestNonNegativeCounterSaturateOverflow(t *testing.T) {
	var c NonNegativeCounter[SaturatePolicy]
	c.Store(math.MaxUint64)

	next, err := c.PreIncrement()
	if err != nil {
		t.Fatalf("PreIncrement: %v", err)
	}
	if next != math.MaxUint64 {
		t.Errorf("next = %d, want MaxUint64", next)
	}
	if got := c.Load(); got != math.MaxUint64 {
		t.Errorf("Load() after saturating increment = %d, want MaxUint64", got)
	}
}

func TestNonNegativeCounterRaiseUnderflow(t *testing.T) {
	var c NonNegativeCounter[RaisePolicy]
	c.Store(0)

	_, err := c.PostDecrement()
	var underflow *CounterUnderflowError
	if !errors.As(err, &underflow) {
		t.Fatalf("PostDecrement error = %v, want *CounterUnderflowError", err)
	}
	if got := c.Load(); got != 0 {
		t.Errorf("Load() after raised underflow = %d, want unchanged 0", got)
	}
}

func TestNonNegativeCounterRaiseOverflow(t *testing.T) {
	var c NonNegativeCounter[RaisePolicy]
	c.Store(math.MaxUint64)

	_, err := c.PreIncrement()
	var overflow *CounterOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("PreIncrement error = %v, want *CounterOverflowError", err)
	}
	if got := c.Load(); got != math.MaxUint64 {
		t.Errorf("Load() after raised overflow = %d, want unchanged MaxUint64", got)
	}
}

func TestNonNegativeCounterAddSubRoundTrip(t *testing.T) {
	var c NonNegativeCounter[SaturatePolicy]

	if _, err := c.Add(100); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := c.Load(); got != 100 {
		t.Errorf("Load() = %d, want 100", got)
	}

	if _, err := c.Sub(40); err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if got := c.Load(); got != 60 {
		t.Errorf("Load() = %d, want 60", got)
	}
}

func TestNonNegativeCounterExchange(t *testing.T) {
	var c NonNegativeCounter[SaturatePolicy]
	c.Store(5)

	old := c.Exchange(42)
	if old != 5 {
		t.Errorf("Exchange returned %d, want 5", old)
	}
	if got := c.Load(); got != 42 {
		t.Errorf("Load() = %d, want 42", got)
	}
}

func TestNonNegativeCounterPrePostSemantics(t *testing.T) {
	var c NonNegativeCounter[SaturatePolicy]
	c.Store(10)

	prev, err := c.PostIncrement()
	if err != nil {
		t.Fatalf("PostIncrement: %v", err)
	}
	if prev != 10 {
		t.Errorf("PostIncrement returned %d, want 10 (value before increment)", prev)
	}
	if got := c.Load(); got != 11 {
		t.Errorf("Load() after PostIncrement = %d, want 11", got)
	}

	next, err := c.PreIncrement()
	if err != nil {
		t.Fatalf("PreIncrement: %v", err)
	}
	if next != 12 {
		t.Errorf("PreIncrement returned %d, want 12 (value after increment)", next)
	}
}
