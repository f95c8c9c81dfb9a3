package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew tests the creation of a new health checker.
func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{name: "default timeout", timeout: 0, expectedTimeout: 5 * time.Second},
		{name: "custom timeout", timeout: 10 * time.Second, expectedTimeout: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout, nil)
			require.NotNil(t, checker)
			assert.Equal(t, tt.expectedTimeout, checker.checkTimeout)
			assert.Empty(t, checker.ListChecks())
		})
	}
}

func TestChecker_Register(t *testing.T) {
	checker := New(0, nil)
	ok := func(context.Context) error { return nil }

	checker.RegisterCheck("sync", ok)
	checker.RegisterCheck("commit", ok)
	checker.RegisterCheck("commit", ok)
	assert.Equal(t, []string{"commit", "sync"}, checker.ListChecks())

	checker.UnregisterCheck("sync")
	assert.Equal(t, []string{"commit"}, checker.ListChecks())
}

func TestChecker_Readiness(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	checker := New(time.Second, clock)

	status := checker.CheckReadiness(context.Background())
	assert.Equal(t, StatusReady, status.Status)
	assert.Empty(t, status.Checks)
	assert.Equal(t, clock.Now(), status.Timestamp)

	checker.RegisterCheck("commit", func(context.Context) error { return nil })
	checker.RegisterCheck("push", func(context.Context) error { return errors.New("rejected") })

	status = checker.CheckReadiness(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, StatusOK, status.Checks["commit"].Status)
	assert.Equal(t, StatusUnhealthy, status.Checks["push"].Status)
	assert.Equal(t, "rejected", status.Checks["push"].Message)
}

func TestChecker_Timeout(t *testing.T) {
	checker := New(10*time.Millisecond, nil)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, ErrCheckTimeout.Error(), status.Checks["slow"].Message)
}

func TestTracker(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	tracker := NewTracker(clock)
	check := tracker.Check("push")

	_, ok := tracker.Last("push")
	assert.False(t, ok)
	assert.NoError(t, check(context.Background()))

	tracker.Record("push", nil)
	good, ok := tracker.LastSuccess("push")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), good)

	clock.Advance(time.Minute)
	boom := errors.New("connection refused")
	tracker.Record("push", boom)

	err := check(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "last push at 2026-10-18T09:01:00Z failed")

	last, _ := tracker.Last("push")
	assert.Equal(t, clock.Now(), last.At)
	still, _ := tracker.LastSuccess("push")
	assert.Equal(t, good, still)

	tracker.Record("push", nil)
	assert.NoError(t, check(context.Background()))
}

func TestHandlers(t *testing.T) {
	checker := New(time.Second, nil)
	tracker := NewTracker(nil)
	checker.RegisterCheck("sync", tracker.Check("sync"))

	mux := http.NewServeMux()
	Mount(mux, checker, "1.2.3", "abc123", "2026-10-18")

	tests := []struct {
		name   string
		method string
		path   string
		fail   bool
		code   int
		status string
	}{
		{name: "liveness", method: http.MethodGet, path: "/healthz", code: http.StatusOK, status: StatusOK},
		{name: "ready", method: http.MethodGet, path: "/readyz", code: http.StatusOK, status: StatusReady},
		{name: "degraded", method: http.MethodGet, path: "/readyz", fail: true, code: http.StatusServiceUnavailable, status: StatusDegraded},
		{name: "method not allowed", method: http.MethodPost, path: "/healthz", code: http.StatusMethodNotAllowed},
		{name: "head has no body", method: http.MethodHead, path: "/healthz", code: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var syncErr error
			if tt.fail {
				syncErr = errors.New("fetch failed")
			}
			tracker.Record("sync", syncErr)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)

			if tt.status == "" {
				return
			}
			var body HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc123", "2026-10-18")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.NotEmpty(t, info.GoVersion)
}
