// Package clock provides an injectable time source so pacing and
// progress-interval logic can be tested without real delays.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts wall-clock reads and pacing sleeps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is cancelled, whichever comes first.
	// Returns ctx.Err() when cancelled early, nil otherwise.
	Sleep(ctx context.Context, d time.Duration) error
}

// System is a Clock backed by the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Sleep waits for d or context cancellation.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Manual is a Clock whose time only moves when advanced explicitly.
// Sleep advances the clock by the full duration and returns immediately,
// so loops paced through a Manual clock run at test speed.
type Manual struct {
	mu  sync.Mutex
	now time.Time

	// SleepCalls counts completed Sleep invocations.
	SleepCalls int
}

// NewManual creates a manual clock starting at the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Sleep advances the clock by d without blocking.
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.SleepCalls++
	m.mu.Unlock()
	return nil
}
