package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew tests backend selection.
func TestNew(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0755))

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name: "poll",
			opts: Options{Root: "/data", Backend: BackendPoll, Fs: fs, Clock: clockwork.NewFakeClock()},
		},
		{
			name: "fsnotify",
			opts: Options{Root: t.TempDir(), Backend: BackendFSNotify},
		},
		{
			name: "auto",
			opts: Options{Root: t.TempDir()},
		},
		{
			name:    "empty root",
			opts:    Options{Backend: BackendPoll},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			opts:    Options{Root: "/data", Backend: "inotify"},
			wantErr: true,
		},
		{
			name:    "fsnotify missing directory",
			opts:    Options{Root: filepath.Join(t.TempDir(), "missing"), Backend: BackendFSNotify},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, m.Close())
		})
	}
}

// TestFallbackToPolling tests which errors switch auto mode to polling.
func TestFallbackToPolling(t *testing.T) {
	assert.True(t, fallbackToPolling(fmt.Errorf("add: %w", syscall.EMFILE)))
	assert.True(t, fallbackToPolling(fmt.Errorf("inotify: %w", syscall.ENOSPC)))
	assert.True(t, fallbackToPolling(fmt.Errorf("too many open files")))
	assert.False(t, fallbackToPolling(os.ErrNotExist))
}

// TestFSNotifyMonitor_Events tests event delivery and .git filtering.
func TestFSNotifyMonitor_Events(t *testing.T) {
	root := t.TempDir()

	m, err := NewFSNotify(root, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))

	ev := nextEvent(t, m)
	assert.Equal(t, filepath.Join(root, "a.txt"), ev.Path)
	assert.Contains(t, []Op{Create, Write}, ev.Op)
	assert.WithinDuration(t, time.Now(), ev.Time, time.Minute)

	require.NoError(t, m.Close())
	for range m.Events() {
	}
	_, ok := <-m.Errors()
	assert.False(t, ok)
}

// TestIgnored tests metadata path filtering.
func TestIgnored(t *testing.T) {
	assert.True(t, ignored("/r", "/r/.git"))
	assert.True(t, ignored("/r", "/r/.git/index"))
	assert.False(t, ignored("/r", "/r/.gitignore"))
	assert.False(t, ignored("/r", "/r/notes.md"))
}
