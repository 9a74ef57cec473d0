package aodp

import (
	"context"
	"sync"
	"time"
)

// RateLimiter admits at most max requests per sliding window. Admission is a
// single critical section around the trim-check-append sequence so two callers
// can never both claim the last slot.
type RateLimiter struct {
	max    int
	window time.Duration

	mu     sync.Mutex
	stamps []time.Time
}

// NewRateLimiter creates a limiter allowing max requests per window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: max, window: window}
}

// Acquire blocks until a request slot is available or ctx is cancelled. When
// the window is full it sleeps exactly until the oldest timestamp leaves the
// window, then re-checks.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.trimLocked(now)

		if len(rl.stamps) < rl.max {
			rl.stamps = append(rl.stamps, now)
			rl.mu.Unlock()
			return nil
		}

		wait := rl.stamps[0].Add(rl.window).Sub(now)
		rl.mu.Unlock()

		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Limit returns the configured (max, window) pair.
func (rl *RateLimiter) Limit() (int, time.Duration) {
	return rl.max, rl.window
}

// InFlight returns how many admissions are inside the current window.
func (rl *RateLimiter) InFlight() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.trimLocked(time.Now())
	return len(rl.stamps)
}

func (rl *RateLimiter) trimLocked(now time.Time) {
	cutoff := now.Add(-rl.window)
	idx := 0
	for idx < len(rl.stamps) && !rl.stamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		rl.stamps = append(rl.stamps[:0], rl.stamps[idx:]...)
	}
}
