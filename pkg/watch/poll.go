package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// entryState is what the poller compares between scans.
type entryState struct {
	size    int64
	modTime time.Time
	mode    os.FileMode
	isDir   bool
}

// PollingMonitor detects changes by listing a directory at a fixed interval
// and comparing name, size, modification time, mode and type of every entry.
// A mode-only change is reported as Write.
type PollingMonitor struct {
	fs       afero.Fs
	root     string
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	last map[string]entryState

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPolling takes an initial snapshot of root and starts polling it every
// interval. It fails if root cannot be listed.
func NewPolling(fs afero.Fs, root string, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) (*PollingMonitor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	m := &PollingMonitor{
		fs:       fs,
		root:     root,
		interval: interval,
		clock:    clock,
		logger:   logger.With("component", "watch", "backend", BackendPoll),
		events:   make(chan Event, 128),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}

	snapshot, err := m.scan()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	m.last = snapshot

	m.wg.Add(1)
	go m.run()

	m.logger.Info("File watcher started", "root", root, "interval", interval)
	return m, nil
}

// Events returns the change notifications.
func (m *PollingMonitor) Events() <-chan Event {
	return m.events
}

// Errors returns monitor-level failures.
func (m *PollingMonitor) Errors() <-chan error {
	return m.errors
}

// Close stops polling and closes both channels.
func (m *PollingMonitor) Close() error {
	m.once.Do(func() {
		close(m.done)
		m.wg.Wait()
		close(m.events)
		close(m.errors)
	})
	return nil
}

func (m *PollingMonitor) run() {
	defer m.wg.Done()

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.Chan():
			current, err := m.scan()
			if err != nil {
				m.logger.Error("File watcher failed", "error", err)
				select {
				case m.errors <- fmt.Errorf("poll %s: %w", m.root, err):
				case <-m.done:
				}
				return
			}
			for _, ev := range diffSnapshots(m.root, m.last, current, m.clock.Now()) {
				m.logger.Debug("File event detected", "path", ev.Path, "op", ev.Op.String())
				select {
				case m.events <- ev:
				case <-m.done:
					return
				}
			}
			m.last = current
		}
	}
}

func (m *PollingMonitor) scan() (map[string]entryState, error) {
	infos, err := afero.ReadDir(m.fs, m.root)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]entryState, len(infos))
	for _, info := range infos {
		if info.Name() == gitDir {
			continue
		}
		snapshot[info.Name()] = stateOf(info)
	}
	return snapshot, nil
}

func stateOf(info os.FileInfo) entryState {
	return entryState{
		size:    info.Size(),
		modTime: info.ModTime(),
		mode:    info.Mode(),
		isDir:   info.IsDir(),
	}
}

// diffSnapshots returns the events turning prev into cur, sorted by name
// within each kind: removals, creations, then writes.
func diffSnapshots(root string, prev, cur map[string]entryState, now time.Time) []Event {
	var removed, created, written []Event

	for name, old := range prev {
		st, ok := cur[name]
		switch {
		case !ok:
			removed = append(removed, Event{Path: filepath.Join(root, name), Op: Remove, Time: now})
		case st.isDir != old.isDir:
			removed = append(removed, Event{Path: filepath.Join(root, name), Op: Remove, Time: now})
			created = append(created, Event{Path: filepath.Join(root, name), Op: Create, Time: now})
		case st.size != old.size || !st.modTime.Equal(old.modTime) || st.mode != old.mode:
			written = append(written, Event{Path: filepath.Join(root, name), Op: Write, Time: now})
		}
	}
	for name := range cur {
		if _, ok := prev[name]; !ok {
			created = append(created, Event{Path: filepath.Join(root, name), Op: Create, Time: now})
		}
	}

	out := make([]Event, 0, len(removed)+len(created)+len(written))
	for _, group := range [][]Event{removed, created, written} {
		sortEvents(group)
		out = append(out, group...)
	}
	return out
}

func sortEvents(evs []Event) {
	sort.Slice(evs, func(i, j int) bool { return evs[i].Path < evs[j].Path })
}
