// Package watch reports changes to the direct children of a directory.
//
// Two backends are provided. FSNotifyMonitor relies on kernel notifications
// and delivers events as they happen. PollingMonitor stats the directory at a
// fixed interval and works on any afero filesystem. New selects one of them.
//
// Only one directory level is observed; nested directories are not watched.
// The repository metadata directory (.git) is always ignored. FSNotifyMonitor
// drops events that only change permissions; PollingMonitor compares modes and
// reports such a change as Write.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// Op is the kind of change observed.
type Op int

const (
	// Create indicates a new entry.
	Create Op = iota
	// Write indicates modified content.
	Write
	// Remove indicates a deleted entry.
	Remove
	// Rename indicates an entry moved away.
	Rename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case Create:
		return "create"
	case Write:
		return "write"
	case Remove:
		return "remove"
	case Rename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a single change notification.
type Event struct {
	// Path is the path of the entry that changed.
	Path string
	// Op is the kind of change.
	Op Op
	// Time is when the change was observed.
	Time time.Time
}

// Monitor emits change notifications for a directory.
//
// Events and Errors are closed by Close. A value on Errors means the monitor
// can no longer observe the directory.
type Monitor interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// Backend names accepted by New.
const (
	BackendFSNotify = "fsnotify"
	BackendPoll     = "poll"
	BackendAuto     = "auto"
)

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 2 * time.Second

const gitDir = ".git"

// Options configures New.
type Options struct {
	// Root is the directory to observe.
	Root string

	// Backend is one of BackendFSNotify, BackendPoll or BackendAuto (default).
	Backend string

	// Interval is the polling interval. Defaults to DefaultInterval.
	Interval time.Duration

	// Fs is the filesystem scanned by the polling backend. Defaults to the OS filesystem.
	Fs afero.Fs

	// Clock drives the polling backend. Defaults to the real clock.
	Clock clockwork.Clock

	// Logger receives diagnostic output. Defaults to slog.Default().
	Logger *slog.Logger
}

// New creates the monitor selected by opts.Backend. In auto mode fsnotify is
// preferred and polling is used when notifications are unavailable, such as
// when the process has exhausted its file descriptors or inotify watches.
func New(opts Options) (Monitor, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("watch root cannot be empty")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch opts.Backend {
	case BackendFSNotify:
		return NewFSNotify(opts.Root, opts.Logger)

	case BackendPoll:
		return NewPolling(opts.Fs, opts.Root, opts.Interval, opts.Clock, opts.Logger)

	case BackendAuto, "":
		m, err := NewFSNotify(opts.Root, opts.Logger)
		if err == nil {
			return m, nil
		}
		if !fallbackToPolling(err) {
			return nil, err
		}
		opts.Logger.Warn("File notifications unavailable, falling back to polling",
			"root", opts.Root,
			"interval", opts.Interval,
			"error", err,
		)
		return NewPolling(opts.Fs, opts.Root, opts.Interval, opts.Clock, opts.Logger)

	default:
		return nil, fmt.Errorf("unknown watch backend: %s", opts.Backend)
	}
}

// fallbackToPolling reports whether err means notifications are exhausted
// rather than the directory being unusable.
func fallbackToPolling(err error) bool {
	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) || errors.Is(err, syscall.ENOSPC) {
		return true
	}
	return strings.Contains(err.Error(), "too many open files")
}

// ignored reports whether name, relative to root, belongs to repository metadata.
func ignored(root, name string) bool {
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return false
	}
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return first == gitDir
}
