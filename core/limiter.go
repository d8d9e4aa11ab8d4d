package core

import (
	"sync"
)

// HopLimiter enforces a maximum number of agent turns per run.
type HopLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewHopLimiter creates a new limiter with a max number of hops.
// If max == 0, unlimited hops are allowed.
func NewHopLimiter(max int) *HopLimiter {
	return &HopLimiter{max: max}
}

// Increment records a hop and returns a *MaxIterationsExceededError once the
// count goes past the limit.
func (hl *HopLimiter) Increment() error {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	hl.count++
	if hl.max > 0 && hl.count > hl.max {
		return &MaxIterationsExceededError{Limit: hl.max}
	}

	return nil
}

// Count returns the number of hops recorded so far.
func (hl *HopLimiter) Count() int {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	return hl.count
}

// Remaining returns how many hops are left before hitting the limit.
func (hl *HopLimiter) Remaining() int {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if hl.max == 0 {
		return -1 // unlimited
	}

	return hl.max - hl.count
}
