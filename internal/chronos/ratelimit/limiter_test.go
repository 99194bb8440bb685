package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdmit_WithinLimit(t *testing.T) {
	l := New(Policy{Window: time.Minute, MaxRequests: 5})
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		d := l.Admit("user-1", now)
		assert.True(t, d.Allowed, "call %d should be allowed", i)
		assert.Equal(t, 5-i, d.Remaining)
		assert.Equal(t, 5, d.Limit)
	}

	d := l.Admit("user-1", now.Add(10*time.Second))
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, now.Add(time.Minute), d.ResetAt)
	assert.Equal(t, 50*time.Second, d.RetryAfter(now.Add(10*time.Second)))
}

func TestAdmit_FreshWindowAfterReset(t *testing.T) {
	l := New(Policy{Window: time.Minute, MaxRequests: 2})
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	l.Admit("user-1", now)
	l.Admit("user-1", now)
	assert.False(t, l.Admit("user-1", now).Allowed)

	later := now.Add(61 * time.Second)
	d := l.Admit("user-1", later)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, later.Add(time.Minute), d.ResetAt)
}

func TestAdmit_KeysAreIndependent(t *testing.T) {
	l := New(Policy{Window: time.Minute, MaxRequests: 1})
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	assert.True(t, l.Admit("user-1", now).Allowed)
	assert.False(t, l.Admit("user-1", now).Allowed)
	assert.True(t, l.Admit("user-2", now).Allowed)
}

func TestAdmit_DenialDoesNotExtendWindow(t *testing.T) {
	l := New(Policy{Window: time.Minute, MaxRequests: 1})
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	first := l.Admit("user-1", now)
	denied := l.Admit("user-1", now.Add(30*time.Second))
	assert.False(t, denied.Allowed)
	assert.Equal(t, first.ResetAt, denied.ResetAt)
}

func TestAdmit_Concurrent(t *testing.T) {
	l := New(Policy{Window: time.Minute, MaxRequests: 10})
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("user-1", now).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
}

func TestSweep_RemovesExpiredWindows(t *testing.T) {
	l := New(Policy{Window: time.Minute, MaxRequests: 5})
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	l.Admit("user-1", now)
	l.Admit("user-2", now.Add(30*time.Second))

	removed := l.Sweep(now.Add(65 * time.Second))
	assert.Equal(t, 1, removed) // user-1's window expired, user-2's did not

	// user-1 gets a fresh window after the sweep.
	d := l.Admit("user-1", now.Add(70*time.Second))
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)
}

func TestStartSweeper_DropsStaleWindows(t *testing.T) {
	l := New(Policy{Window: 20 * time.Millisecond, MaxRequests: 5})

	for _, key := range []string{"user-1", "user-2", "user-3"} {
		l.Admit(key, time.Now().UTC())
	}
	assert.Equal(t, 3, l.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.StartSweeper(ctx, 10*time.Millisecond)

	// All windows expire within 20ms; the sweeper should empty the map.
	deadline := time.Now().Add(2 * time.Second)
	for l.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, l.Len())
}