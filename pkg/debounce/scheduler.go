// Package debounce coalesces bursts of change events into single commit runs.
//
// The policy is "first event plus quiet delay": the first event arms a
// one-shot timer, events that arrive while it is armed are dropped without
// extending it, and when it fires the callback runs once. The next event
// after the callback returns arms a fresh timer. Changes made during a burst
// are therefore committed at most quietDelay after the burst began.
package debounce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"backer-hq/backer/pkg/watch"
)

// ErrMonitorClosed is returned by Run when the monitor closes a channel.
var ErrMonitorClosed = errors.New("change monitor closed")

// MonitorError wraps a failure reported by the change monitor.
type MonitorError struct {
	Err error
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("change monitor failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *MonitorError) Unwrap() error {
	return e.Err
}

// Observer is notified of scheduler transitions. Implementations must not block.
type Observer interface {
	// Armed is called when an event arms the timer.
	Armed()
	// Coalesced is called for every event dropped because the timer is armed.
	Coalesced()
	// Fired is called when the timer fires, before the callback runs.
	Fired()
}

type nopObserver struct{}

func (nopObserver) Armed()     {}
func (nopObserver) Coalesced() {}
func (nopObserver) Fired()     {}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock driving the timer.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithObserver sets the transition observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// Scheduler owns the armed flag. Only the goroutine executing Run changes it;
// timer goroutines report completion over a channel.
type Scheduler struct {
	quietDelay time.Duration
	callback   func()

	clock    clockwork.Clock
	logger   *slog.Logger
	observer Observer

	armed atomic.Bool
	done  chan struct{}
}

// New creates a scheduler that runs callback quietDelay after the first event
// of each burst.
func New(quietDelay time.Duration, callback func(), opts ...Option) *Scheduler {
	s := &Scheduler{
		quietDelay: quietDelay,
		callback:   callback,
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
		observer:   nopObserver{},
		done:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "debounce")
	return s
}

// Armed reports whether a timer is pending or its callback is running.
// It is a snapshot for observation only.
func (s *Scheduler) Armed() bool {
	return s.armed.Load()
}

// Run consumes events until ctx is cancelled or the monitor fails.
//
// A closed channel or a value on errs ends Run with ErrMonitorClosed or a
// *MonitorError. Cancelling ctx returns nil. In every case an armed timer is
// left to fire and Run waits for its callback to finish before returning.
func (s *Scheduler) Run(ctx context.Context, events <-chan watch.Event, errs <-chan error) error {
	armed := false
	setArmed := func(v bool) {
		armed = v
		s.armed.Store(v)
	}

	finish := func(err error) error {
		if armed {
			s.logger.Info("Waiting for pending commit before stopping")
			<-s.done
			setArmed(false)
		}
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return finish(nil)

		case ev, ok := <-events:
			if !ok {
				return finish(ErrMonitorClosed)
			}
			if armed {
				s.observer.Coalesced()
				continue
			}
			setArmed(true)
			s.observer.Armed()
			s.logger.Debug("Commit scheduled", "path", ev.Path, "op", ev.Op.String(), "delay", s.quietDelay)
			s.clock.AfterFunc(s.quietDelay, s.fire)

		case err, ok := <-errs:
			if !ok {
				return finish(ErrMonitorClosed)
			}
			return finish(&MonitorError{Err: err})

		case <-s.done:
			setArmed(false)
		}
	}
}

// fire runs on the timer goroutine.
func (s *Scheduler) fire() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Commit callback panicked", "panic", r)
		}
		s.done <- struct{}{}
	}()

	s.observer.Fired()
	s.callback()
}
