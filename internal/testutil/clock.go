package testutil

import (
	"sync"
	"time"
)

// DeterministicClock provides a thread-safe wall clock that advances by a
// fixed step on every reading.
//
// Tests use it wherever production code stamps a time (manifest generation,
// the fake store's LastUpdated tokens), so timestamps are reproducible and
// strictly increasing.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	seq  int64
}

// NewDeterministicClock creates a clock whose first reading is base.
func NewDeterministicClock(base time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{base: base, step: step}
}

// Now returns the next timestamp: base + seq*step, then advances seq.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.seq) * c.step)
	c.seq++
	return t
}

// Readings returns how many times Now has been called.
func (c *DeterministicClock) Readings() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so the next reading is base again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
