package engine

import "sync/atomic"

// Clock is the monotonic logical tick counter.
//
// The tick is the per-command clock: it starts at 0 and advances by one after
// every processed command. It is never derived from wall-clock time.
//
// Thread-safety: Clock is safe for concurrent reads (atomic operations).
// Only the engine's single writer calls Advance.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a new clock starting at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific tick.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Advance moves to the next tick and returns it.
func (c *Clock) Advance() int64 {
	return c.tick.Add(1)
}

// Current returns the current tick without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
