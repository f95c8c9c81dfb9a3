package journal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind is the type of attempt an entry records.
type Kind string

const (
	KindCommit Kind = "commit"
	KindSync   Kind = "sync"
	KindPush   Kind = "push"
)

// ErrInvalidEntry is returned by Record for entries without a kind or outcome.
var ErrInvalidEntry = errors.New("invalid journal entry")

// Entry is one recorded attempt.
type Entry struct {
	// ID identifies the attempt. Record assigns a UUID when it is empty.
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Outcome  string    `json:"outcome"`
	Revision string    `json:"revision,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Error    string    `json:"error,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Duration returns how long the attempt took.
func (e Entry) Duration() time.Duration {
	if e.Finished.Before(e.Started) {
		return 0
	}
	return e.Finished.Sub(e.Started)
}

func (e Entry) validate() error {
	if e.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidEntry)
	}
	if e.Outcome == "" {
		return fmt.Errorf("%w: outcome is required", ErrInvalidEntry)
	}
	return nil
}

// Entries renders as a table in command output.
type Entries []Entry

// Header returns the column names.
func (es Entries) Header() []string {
	return []string{"STARTED", "KIND", "OUTCOME", "REVISION", "DURATION", "DETAIL"}
}

// Rows returns one row per entry.
func (es Entries) Rows() [][]string {
	rows := make([][]string, 0, len(es))
	for _, e := range es {
		rev := e.Revision
		if len(rev) > 10 {
			rev = rev[:10]
		}
		detail := e.Detail
		if e.Error != "" {
			detail = e.Error
		}
		rows = append(rows, []string{
			e.Started.Local().Format(time.DateTime),
			string(e.Kind),
			e.Outcome,
			rev,
			e.Duration().Round(time.Millisecond).String(),
			detail,
		})
	}
	return rows
}

// Query filters List results. The zero value lists everything, newest first.
type Query struct {
	Kind  Kind
	Since time.Time
	// Limit caps the number of entries returned. 0 means no limit.
	Limit int
}

func (q Query) matches(e Entry) bool {
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	if !q.Since.IsZero() && e.Started.Before(q.Since) {
		return false
	}
	return true
}

// Store persists journal entries.
type Store interface {
	// Record appends an entry. It assigns an ID when e.ID is empty and
	// returns the stored entry.
	Record(ctx context.Context, e Entry) (Entry, error)

	// List returns matching entries, newest first.
	List(ctx context.Context, q Query) ([]Entry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int64, error)

	// Close releases resources held by the store.
	Close() error
}

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("journal error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func storageErr(backend, op string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: op, Cause: cause}
}
