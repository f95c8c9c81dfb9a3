// Package notify delivers short user-facing messages about backup attempts.
//
// Notifications are best effort: a failed delivery is returned to the caller
// for logging and never changes the outcome of the operation it describes.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
)

// DefaultTitle is the title of every notification sent by the daemon.
const DefaultTitle = "backer"

// DefaultTimeout bounds how long a notification is shown or delivered.
const DefaultTimeout = 5 * time.Second

// Notifier sends one notification.
type Notifier interface {
	Notify(title, body string, timeout time.Duration) error
}

// ErrTimeout is returned when the desktop did not accept a notification in time.
var ErrTimeout = errors.New("notification timed out")

// Desktop shows notifications through the platform notification service.
type Desktop struct {
	// Icon is a path to a PNG file or a stock icon name. Optional.
	Icon string
}

// NewDesktop creates a desktop notifier registered under appName.
func NewDesktop(appName string) *Desktop {
	if appName != "" {
		beeep.AppName = appName
	}
	return &Desktop{}
}

// Notify sends the notification and waits at most timeout for the platform
// service to accept it.
func (d *Desktop) Notify(title, body string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- beeep.Notify(title, body, d.Icon)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send desktop notification: %w", err)
		}
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// Log writes notifications to a structured logger. Used when no desktop session is available.
type Log struct {
	Logger *slog.Logger
}

// Notify logs the notification at info level.
func (l Log) Notify(title, body string, _ time.Duration) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Notification", "title", title, "body", body)
	return nil
}

// Discard drops every notification.
type Discard struct{}

// Notify does nothing.
func (Discard) Notify(string, string, time.Duration) error { return nil }

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify delivers to every notifier and joins their errors.
func (m Multi) Notify(title, body string, timeout time.Duration) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(title, body, timeout); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Message is a notification captured by Recorder.
type Message struct {
	Title   string
	Body    string
	Timeout time.Duration
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify records the notification.
func (r *Recorder) Notify(title, body string, timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Title: title, Body: body, Timeout: timeout})
	return nil
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
