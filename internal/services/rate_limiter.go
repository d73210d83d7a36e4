package services

import (
	"sync"
	"time"
)

const (
	// limiterMaxInWindow is the provider's account-wide request quota per
	// limiterWindow.
	limiterMaxInWindow = 2
	limiterWindow      = time.Second
	limiterRetention   = 20 * time.Second
)

// RateLimiter is a process-wide sliding-window limiter over remote price
// requests. The provider enforces a global account quota, so one instance is
// shared by every caller and all window updates are serialized under the
// mutex. The clock and sleep functions are injectable for tests.
type RateLimiter struct {
	mu        sync.Mutex
	window    []time.Time
	max       int
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	sleep     func(time.Duration)
}

// NewRateLimiter creates a limiter with the provider's default quota.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		max:       limiterMaxInWindow,
		interval:  limiterWindow,
		retention: limiterRetention,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Acquire blocks until a request may be issued, then records it in the
// shared window.
func (l *RateLimiter) Acquire() {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if l.countSince(now.Add(-l.interval)) < l.max {
			l.window = append(l.window, now)
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()
		l.sleep(l.interval)
	}
}

// prune drops timestamps older than the retention horizon. Must be called
// with the mutex held.
func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.retention)
	kept := l.window[:0]
	for _, t := range l.window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.window = kept
}

func (l *RateLimiter) countSince(cutoff time.Time) int {
	n := 0
	for _, t := range l.window {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
