package dispatch

import (
	"context"
	"sync"
	"time"
)

// callGate serializes provider-call starts so that consecutive calls are at
// least interval apart, regardless of how many workers run concurrently.
// Each batch run owns its own gate; there is no package-level state.
type callGate struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time // earliest start time not yet handed out
}

func newCallGate(interval time.Duration) *callGate {
	return &callGate{interval: interval}
}

// Wait reserves the next allowed call slot and blocks until it arrives. The
// lock is held only for the reservation, never across the sleep.
func (g *callGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	at := g.next
	if now := time.Now(); at.Before(now) {
		at = now
	}
	g.next = at.Add(g.interval)
	g.mu.Unlock()

	delay := time.Until(at)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
