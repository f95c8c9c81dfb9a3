package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyMonitor watches a directory with kernel notifications.
type FSNotifyMonitor struct {
	watcher *fsnotify.Watcher
	root    string
	logger  *slog.Logger

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewFSNotify starts watching root. Only root itself is watched, not its
// subdirectories.
func NewFSNotify(root string, logger *slog.Logger) (*FSNotifyMonitor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	m := &FSNotifyMonitor{
		watcher: watcher,
		root:    root,
		logger:  logger.With("component", "watch", "backend", BackendFSNotify),
		events:  make(chan Event, 128),
		errors:  make(chan error, 1),
		done:    make(chan struct{}),
	}

	m.wg.Add(1)
	go m.run()

	m.logger.Info("File watcher started", "root", root)
	return m, nil
}

// Events returns the change notifications.
func (m *FSNotifyMonitor) Events() <-chan Event {
	return m.events
}

// Errors returns monitor-level failures.
func (m *FSNotifyMonitor) Errors() <-chan error {
	return m.errors
}

// Close stops watching and closes both channels.
func (m *FSNotifyMonitor) Close() error {
	var err error
	m.once.Do(func() {
		close(m.done)
		err = m.watcher.Close()
		m.wg.Wait()
		close(m.events)
		close(m.errors)
	})
	return err
}

func (m *FSNotifyMonitor) run() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return

		case ev, ok := <-m.watcher.Events:
			if !ok {
				m.fail(errors.New("watcher events channel closed"))
				return
			}
			out, keep := m.translate(ev)
			if !keep {
				continue
			}
			m.logger.Debug("File event detected", "path", out.Path, "op", out.Op.String())
			if !m.emit(out) {
				return
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				m.fail(errors.New("watcher errors channel closed"))
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost; something changed.
				m.logger.Warn("File event queue overflowed", "error", err)
				if !m.emit(Event{Path: m.root, Op: Write, Time: time.Now()}) {
					return
				}
				continue
			}
			m.fail(err)
			return
		}
	}
}

func (m *FSNotifyMonitor) translate(ev fsnotify.Event) (Event, bool) {
	if ignored(m.root, ev.Name) {
		return Event{}, false
	}

	out := Event{Path: ev.Name, Time: time.Now()}
	switch {
	case ev.Has(fsnotify.Create):
		out.Op = Create
	case ev.Has(fsnotify.Write):
		out.Op = Write
	case ev.Has(fsnotify.Remove):
		out.Op = Remove
	case ev.Has(fsnotify.Rename):
		out.Op = Rename
	default:
		// chmod only
		return Event{}, false
	}
	return out, true
}

func (m *FSNotifyMonitor) emit(ev Event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

func (m *FSNotifyMonitor) fail(err error) {
	m.logger.Error("File watcher failed", "error", err)
	select {
	case m.errors <- fmt.Errorf("fsnotify: %w", err):
	case <-m.done:
	}
}
