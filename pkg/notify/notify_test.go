package notify

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{ err error }

func (f failing) Notify(string, string, time.Duration) error { return f.err }

// TestMulti tests fan-out and error joining.
func TestMulti(t *testing.T) {
	rec := &Recorder{}
	boom := errors.New("no session bus")

	err := Multi{rec, failing{err: boom}, Discard{}}.Notify(DefaultTitle, "Push failed", DefaultTimeout)
	assert.ErrorIs(t, err, boom)

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Message{Title: DefaultTitle, Body: "Push failed", Timeout: DefaultTimeout}, msgs[0])

	assert.NoError(t, Multi{rec}.Notify("t", "b", 0))
	assert.Len(t, rec.Messages(), 2)
}

// TestLog tests that the log notifier writes a structured record.
func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	require.NoError(t, Log{Logger: logger}.Notify(DefaultTitle, "Commit failed", time.Second))
	assert.Contains(t, buf.String(), `"title":"backer"`)
	assert.Contains(t, buf.String(), `"body":"Commit failed"`)
}
