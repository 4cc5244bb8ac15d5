package core

import (
	"sync"
	"time"
)

// GlobalLimiter counts requests across all clients in a fixed time window and
// rejects everything above the ceiling until the window rolls over.
type GlobalLimiter struct {
	max    int
	window time.Duration

	mu          sync.Mutex
	count       int
	windowStart time.Time

	now func() time.Time // injectable clock for tests
}

// NewGlobalLimiter creates a fixed-window limiter. max <= 0 disables it.
func NewGlobalLimiter(max int, window time.Duration) *GlobalLimiter {
	return &GlobalLimiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Allow records one request and reports whether it is admitted. The counter
// resets when the window elapses.
func (l *GlobalLimiter) Allow() bool {
	if l.max <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.count = 0
	}

	if l.count >= l.max {
		return false
	}
	l.count++
	return true
}

// Remaining reports how many requests the current window still admits.
func (l *GlobalLimiter) Remaining() int {
	if l.max <= 0 {
		return -1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		return l.max
	}
	if rem := l.max - l.count; rem > 0 {
		return rem
	}
	return 0
}
