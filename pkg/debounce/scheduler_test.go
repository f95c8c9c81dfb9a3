package debounce

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backer-hq/backer/pkg/watch"
)

const quietDelay = 5 * time.Second

type countingObserver struct {
	armed, coalesced, fired atomic.Int32
}

func (o *countingObserver) Armed()     { o.armed.Add(1) }
func (o *countingObserver) Coalesced() { o.coalesced.Add(1) }
func (o *countingObserver) Fired()     { o.fired.Add(1) }

type fixture struct {
	clock    *clockwork.FakeClock
	sched    *Scheduler
	observer *countingObserver
	events   chan watch.Event
	errs     chan error
	triggers chan time.Time
	runErr   chan error
	stopped  chan struct{}
	cancel   context.CancelFunc
}

func newFixture(t *testing.T, callback func()) *fixture {
	t.Helper()

	f := &fixture{
		clock:    clockwork.NewFakeClock(),
		observer: &countingObserver{},
		events:   make(chan watch.Event),
		errs:     make(chan error),
		triggers: make(chan time.Time, 10),
		runErr:   make(chan error, 1),
		stopped:  make(chan struct{}),
	}
	if callback == nil {
		callback = func() { f.triggers <- f.clock.Now() }
	}
	f.sched = New(quietDelay, callback, WithClock(f.clock), WithObserver(f.observer))

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() {
		f.runErr <- f.sched.Run(ctx, f.events, f.errs)
		close(f.stopped)
	}()

	t.Cleanup(func() {
		cancel()
		f.clock.Advance(quietDelay)
		select {
		case <-f.stopped:
		case <-time.After(5 * time.Second):
			t.Error("scheduler did not stop")
		}
	})
	return f
}

func (f *fixture) send(n int) {
	for i := 0; i < n; i++ {
		f.events <- watch.Event{Path: "/data/file.txt", Op: watch.Write, Time: f.clock.Now()}
	}
}

func (f *fixture) waitArmed(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
}

func (f *fixture) waitTrigger(t *testing.T) time.Time {
	t.Helper()

	select {
	case at := <-f.triggers:
		return at
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for commit trigger")
	}
	return time.Time{}
}

func (f *fixture) waitDisarmed(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return !f.sched.Armed() }, 5*time.Second, time.Millisecond)
}

// TestScheduler_BurstTriggersOnce tests that a burst within the delay produces one trigger.
func TestScheduler_BurstTriggersOnce(t *testing.T) {
	f := newFixture(t, nil)
	start := f.clock.Now()

	f.send(1)
	f.waitArmed(t)
	f.clock.Advance(2 * time.Second)
	f.send(4)

	// Late events do not extend the timer.
	f.clock.Advance(quietDelay - 2*time.Second - time.Millisecond)
	assert.Empty(t, f.triggers)
	f.clock.Advance(time.Millisecond)

	at := f.waitTrigger(t)
	assert.Equal(t, start.Add(quietDelay), at)
	f.waitDisarmed(t)

	assert.EqualValues(t, 1, f.observer.armed.Load())
	assert.EqualValues(t, 4, f.observer.coalesced.Load())
	assert.EqualValues(t, 1, f.observer.fired.Load())
	assert.Empty(t, f.triggers)
}

// TestScheduler_TwoBursts tests that bursts separated by more than the delay trigger twice.
func TestScheduler_TwoBursts(t *testing.T) {
	f := newFixture(t, nil)

	f.send(3)
	f.waitArmed(t)
	f.clock.Advance(quietDelay)
	f.waitTrigger(t)
	f.waitDisarmed(t)

	f.clock.Advance(time.Minute)

	f.send(3)
	f.waitArmed(t)
	f.clock.Advance(quietDelay)
	f.waitTrigger(t)
	f.waitDisarmed(t)

	assert.EqualValues(t, 2, f.observer.fired.Load())
	assert.EqualValues(t, 4, f.observer.coalesced.Load())
}

// TestScheduler_EventsDuringCallbackAreDropped tests that a running callback keeps the scheduler armed.
func TestScheduler_EventsDuringCallbackAreDropped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	f := newFixture(t, func() {
		calls.Add(1)
		close(entered)
		<-release
	})

	f.send(1)
	f.waitArmed(t)
	f.clock.Advance(quietDelay)
	<-entered

	assert.True(t, f.sched.Armed())
	f.send(2)
	close(release)
	f.waitDisarmed(t)

	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 2, f.observer.coalesced.Load())
}

// TestScheduler_MonitorError tests that a monitor error ends Run.
func TestScheduler_MonitorError(t *testing.T) {
	f := newFixture(t, nil)

	boom := errors.New("inotify gone")
	f.errs <- boom

	err := <-f.runErr
	var monErr *MonitorError
	require.ErrorAs(t, err, &monErr)
	assert.ErrorIs(t, err, boom)
}

// TestScheduler_MonitorClosed tests that a closed event channel ends Run.
func TestScheduler_MonitorClosed(t *testing.T) {
	f := newFixture(t, nil)

	close(f.events)
	assert.ErrorIs(t, <-f.runErr, ErrMonitorClosed)
}

// TestScheduler_CancelWaitsForPendingCommit tests that shutdown does not abandon an armed timer.
func TestScheduler_CancelWaitsForPendingCommit(t *testing.T) {
	f := newFixture(t, nil)

	f.send(1)
	f.waitArmed(t)
	f.cancel()

	select {
	case err := <-f.runErr:
		t.Fatalf("Run returned before the pending commit: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	f.clock.Advance(quietDelay)
	f.waitTrigger(t)
	assert.NoError(t, <-f.runErr)
	assert.False(t, f.sched.Armed())
}

// TestScheduler_CallbackPanic tests that a panicking callback still disarms.
func TestScheduler_CallbackPanic(t *testing.T) {
	f := newFixture(t, func() { panic("commit exploded") })

	f.send(1)
	f.waitArmed(t)
	f.clock.Advance(quietDelay)
	f.waitDisarmed(t)

	f.send(1)
	f.waitArmed(t)
	assert.True(t, f.sched.Armed())
}
