package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// AttemptIDKey is the context key for the id of one commit, sync, or push attempt.
	AttemptIDKey contextKey = "attempt_id"

	// JobKey is the context key for the kind of repository job.
	JobKey contextKey = "job"
)

// WithAttemptID adds an attempt ID to the context.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, AttemptIDKey, id)
}

// GetAttemptID retrieves the attempt ID from the context.
func GetAttemptID(ctx context.Context) string {
	if id, ok := ctx.Value(AttemptIDKey).(string); ok {
		return id
	}
	return ""
}

// WithJob adds a job kind to the context.
func WithJob(ctx context.Context, job string) context.Context {
	return context.WithValue(ctx, JobKey, job)
}

// GetJob retrieves the job kind from the context.
func GetJob(ctx context.Context) string {
	if job, ok := ctx.Value(JobKey).(string); ok {
		return job
	}
	return ""
}

func extractContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if id := GetAttemptID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(AttemptIDKey), id))
	}
	if job := GetJob(ctx); job != "" {
		attrs = append(attrs, slog.String(string(JobKey), job))
	}
	return attrs
}

// contextHandler copies context fields onto every record logged with a
// *Context method.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := extractContextFields(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}
