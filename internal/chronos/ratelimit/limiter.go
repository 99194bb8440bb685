// Package ratelimit provides a fixed-window request counter keyed by an
// arbitrary string (user id, remote address, ...).
//
// The counter is deliberately approximate: windows are discrete, so a
// burst can straddle a boundary. That looseness buys O(1) bookkeeping,
// which is all the scan endpoint needs. Counters live in process memory,
// so in a multi-instance deployment limits are per instance; a shared
// counter store can replace this if global accuracy ever matters.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Policy configures one limiter instance. Each protected endpoint class
// gets its own independently configured limiter.
type Policy struct {
	Window      time.Duration
	MaxRequests int
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before retrying.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait
}

type window struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	policy Policy

	mu      sync.Mutex
	windows map[string]*window
}

func New(policy Policy) *Limiter {
	return &Limiter{
		policy:  policy,
		windows: make(map[string]*window),
	}
}

// Admit counts one request for key. The first request in a window (or
// the first after the window expired) opens a fresh window with count=1.
// Once the limit is reached further requests are denied without
// advancing the counter.
func (l *Limiter) Admit(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.policy.Window)}
		l.windows[key] = w
		return Decision{
			Allowed:   true,
			Limit:     l.policy.MaxRequests,
			Remaining: l.policy.MaxRequests - 1,
			ResetAt:   w.resetAt,
		}
	}

	if w.count >= l.policy.MaxRequests {
		return Decision{
			Allowed:   false,
			Limit:     l.policy.MaxRequests,
			Remaining: 0,
			ResetAt:   w.resetAt,
		}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     l.policy.MaxRequests,
		Remaining: l.policy.MaxRequests - w.count,
		ResetAt:   w.resetAt,
	}
}

// Len returns the number of live windows, expired ones included.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// StartSweeper launches a janitor goroutine that calls Sweep every
// interval until ctx is cancelled. Without it the windows map grows one
// entry per distinct key ever admitted.
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep(time.Now().UTC())
			}
		}
	}()
}

// Sweep drops windows that expired before now and returns how many were
// removed. Meant to be called periodically so idle keys do not pile up.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}
