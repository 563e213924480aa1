package services

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter gates outbound messages per recipient
type RateLimiter interface {
	Allow(key string) error
}

// SlidingWindowLimiter allows at most maxRequests per key inside a rolling window
type SlidingWindowLimiter struct {
	mu          sync.Mutex
	requests    map[string][]time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

func NewSlidingWindowLimiter(maxRequests int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		requests:    make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow records a request for key, or fails when the window is full
func (rl *SlidingWindowLimiter) Allow(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.prune(key, now)
	if len(recent) >= rl.maxRequests {
		return fmt.Errorf("rate limit exceeded: maximum %d messages per %v", rl.maxRequests, rl.window)
	}
	rl.requests[key] = append(recent, now)
	return nil
}

// Remaining reports how many requests key may still make in the window
func (rl *SlidingWindowLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	left := rl.maxRequests - len(rl.prune(key, rl.now()))
	if left < 0 {
		return 0
	}
	return left
}

// prune drops timestamps older than the window; callers hold mu
func (rl *SlidingWindowLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	kept := rl.requests[key][:0]
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(rl.requests, key)
		return nil
	}
	rl.requests[key] = kept
	return kept
}

func (rl *SlidingWindowLimiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"tracked_keys": len(rl.requests),
		"max_requests": rl.maxRequests,
		"window":       rl.window.String(),
	}
}
