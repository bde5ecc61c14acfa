package channel

import (
	"sync"
	"time"
)

// RateLimiter is a thread-safe sliding-window limiter: at most limit
// sends per rolling window. When the window is full, Allow returns
// false immediately; there is no queuing.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	sent   []time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing limit sends per rolling
// 60-second window. A limit <= 0 disables limiting.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
	}
}

// Allow records an attempt and reports whether it is within the limit.
func (l *RateLimiter) Allow() bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Drop timestamps that have rolled out of the window.
	i := 0
	for i < len(l.sent) && !l.sent[i].After(cutoff) {
		i++
	}
	l.sent = l.sent[i:]

	if len(l.sent) >= l.limit {
		return false
	}
	l.sent = append(l.sent, now)
	return true
}
