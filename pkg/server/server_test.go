package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backer-hq/backer/pkg/telemetry/health"
	"backer-hq/backer/pkg/telemetry/logging"
)

func testRoutes(t *testing.T) Routes {
	t.Helper()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "backer_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	return Routes{
		MetricsPath: "/metrics",
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Health:      health.New(time.Second, nil),
		Version:     "1.2.3",
	}
}

func TestNewMux(t *testing.T) {
	srv := New(Config{}, NewMux(testRoutes(t)), logging.Discard())
	handler := srv.Handler()

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/metrics", http.StatusOK, "backer_test_total 1"},
		{"/healthz", http.StatusOK, `"status":"ok"`},
		{"/readyz", http.StatusOK, `"status":"ready"`},
		{"/version", http.StatusOK, `"1.2.3"`},
		{"/unknown", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestNewMux_SkipsNilHandlers(t *testing.T) {
	mux := NewMux(Routes{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	srv := New(Config{}, panicking, logging.Discard())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := New(Config{Listen: "127.0.0.1:0"}, NewMux(testRoutes(t)), logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("Start failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	require.True(t, srv.IsRunning())

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "ok"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, srv.IsRunning())
}

func TestServer_ListenError(t *testing.T) {
	srv := New(Config{Listen: "256.0.0.1:bad"}, nil, logging.Discard())
	assert.Error(t, srv.Start(context.Background()))
}
