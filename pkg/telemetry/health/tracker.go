package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Attempt is the last recorded outcome of one kind of job.
type Attempt struct {
	At  time.Time
	Err error
}

// Tracker remembers the most recent outcome of each job kind ("commit",
// "sync", "push") and exposes it as a health check.
type Tracker struct {
	mu       sync.RWMutex
	clock    clockwork.Clock
	last     map[string]Attempt
	lastGood map[string]time.Time
}

// NewTracker creates an empty tracker.
func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		clock:    clock,
		last:     make(map[string]Attempt),
		lastGood: make(map[string]time.Time),
	}
}

// Record stores the outcome of an attempt. A nil err marks success.
func (t *Tracker) Record(job string, err error) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.last[job] = Attempt{At: now, Err: err}
	if err == nil {
		t.lastGood[job] = now
	}
}

// Last returns the most recent attempt for job.
func (t *Tracker) Last(job string) (Attempt, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	a, ok := t.last[job]
	return a, ok
}

// LastSuccess returns when job last succeeded.
func (t *Tracker) LastSuccess(job string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	at, ok := t.lastGood[job]
	return at, ok
}

// Check returns a CheckFunc that fails while the latest attempt of job
// failed. A job that never ran is healthy.
func (t *Tracker) Check(job string) CheckFunc {
	return func(context.Context) error {
		a, ok := t.Last(job)
		if !ok || a.Err == nil {
			return nil
		}
		return fmt.Errorf("last %s at %s failed: %w", job, a.At.Format(time.RFC3339), a.Err)
	}
}
