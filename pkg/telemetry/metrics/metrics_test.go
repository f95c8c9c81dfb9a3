package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backer-hq/backer/pkg/config"
	"backer-hq/backer/pkg/debounce"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ debounce.Observer = (*Collector)(nil)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		DurationBuckets: []float64{0.1, 1, 10},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)
	assert.Same(t, registry, collector.Registry())
	assert.Equal(t, "backer", cfg.Namespace)
	assert.NotEmpty(t, cfg.DurationBuckets)

	assert.NotNil(t, NewCollector(testConfig(), nil).Registry())
}

func TestCollector_Scheduler(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	c.RecordEvent("write")
	c.RecordEvent("write")
	c.RecordEvent("create")
	c.Armed()
	c.Coalesced()
	c.Coalesced()
	c.RecordMonitorError()

	sm := c.schedulerMetrics
	assert.Equal(t, 2.0, testutil.ToFloat64(sm.eventsTotal.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.eventsTotal.WithLabelValues("create")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sm.coalescedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.monitorErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.pending))

	c.Fired()
	assert.Equal(t, 0.0, testutil.ToFloat64(sm.pending))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.triggersTotal))
}

func TestCollector_Repository(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	c.RecordCommit("committed", 20*time.Millisecond)
	c.RecordCommit("conflict_pending", time.Millisecond)
	c.RecordSync("fast_forwarded", 2*time.Second)
	c.RecordPush("remote_missing", 0)
	c.RecordFetched(6, 1024)

	rm := c.repositoryMetrics
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.commitsTotal.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.commitsTotal.WithLabelValues("conflict_pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.syncsTotal.WithLabelValues("fast_forwarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.pushesTotal.WithLabelValues("remote_missing")))
	assert.Equal(t, 6.0, testutil.ToFloat64(rm.fetchedObjects))
	assert.Equal(t, 1024.0, testutil.ToFloat64(rm.fetchedBytes))
	assert.Equal(t, 3, testutil.CollectAndCount(rm.duration))
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, nil)

	c.RecordEvent("write")
	c.Fired()
	c.RecordCommit("error", time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.schedulerMetrics.triggersTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(c.schedulerMetrics.eventsTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(c.repositoryMetrics.commitsTotal))
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordEvent("write")
		c.Armed()
		c.Coalesced()
		c.Fired()
		c.RecordCommit("committed", 0)
		c.RecordSync("noop", 0)
		c.RecordPush("pushed", 0)
		c.RecordFetched(1, 1)
		c.RecordMonitorError()
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(testConfig(), nil)
	c.RecordPush("pushed", time.Second)
	c.RecordMonitorError()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `test_repository_pushes_total{outcome="pushed"} 1`))
	assert.Contains(t, string(body), "# HELP test_watch_errors_total Fatal change monitor errors that stopped watching")
	assert.Contains(t, string(body), "test_watch_errors_total 1")
}
