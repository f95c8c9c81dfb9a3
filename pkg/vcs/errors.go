package vcs

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by a Repository operation wraps one of
// these inside an *OpError, so callers match with errors.Is.
var (
	// ErrStagingFailed indicates the index could not be updated from the working tree.
	ErrStagingFailed = errors.New("staging failed")

	// ErrTreeWriteFailed indicates a tree object could not be written from the index.
	ErrTreeWriteFailed = errors.New("tree write failed")

	// ErrCommitWriteFailed indicates the commit object or branch ref could not be written.
	ErrCommitWriteFailed = errors.New("commit write failed")

	// ErrConflictPending indicates an unresolved merge is still in the working tree.
	ErrConflictPending = errors.New("unresolved merge conflicts pending")

	// ErrFetchFailed indicates the remote could not be reached or refused the fetch.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrMergeFailed indicates an object-level failure while merging.
	// Content conflicts are not errors; they are reported as OutcomeConflicts.
	ErrMergeFailed = errors.New("merge failed")

	// ErrPushFailed indicates the push was rejected or the transport failed.
	ErrPushFailed = errors.New("push failed")

	// ErrInvalidSignature indicates a name or email that cannot be encoded in a commit header.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrNotRepository indicates the path is not a git working tree.
	ErrNotRepository = errors.New("not a git repository")
)

// OpError records the operation that failed together with its cause.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// opErr wraps cause with kind so that both errors.Is(err, kind) and
// errors.Is(err, cause) hold.
func opErr(op string, kind, cause error) error {
	if cause == nil {
		return &OpError{Op: op, Err: kind}
	}
	return &OpError{Op: op, Err: fmt.Errorf("%w: %w", kind, cause)}
}
