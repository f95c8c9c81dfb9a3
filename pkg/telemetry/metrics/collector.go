package metrics

import (
	"time"

	"backer-hq/backer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric exported by the daemon.
//
// A nil *Collector is valid and records nothing, so callers never need to
// check whether metrics are enabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	schedulerMetrics  *SchedulerMetrics
	repositoryMetrics *RepositoryMetrics
}

// NewCollector creates a collector registered on registry. A nil registry
// gets a fresh private one.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	http.Handle("/metrics", collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "backer"
	}
	if len(cfg.DurationBuckets) == 0 {
		// Local commits take milliseconds; network syncs take seconds.
		cfg.DurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}
	c.schedulerMetrics = NewSchedulerMetrics(cfg, registry)
	c.repositoryMetrics = NewRepositoryMetrics(cfg, registry)
	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordEvent counts one file system event by operation.
func (c *Collector) RecordEvent(op string) {
	if !c.enabled() {
		return
	}
	c.schedulerMetrics.eventsTotal.WithLabelValues(op).Inc()
}

// RecordMonitorError counts a monitor error that ended watching.
func (c *Collector) RecordMonitorError() {
	if !c.enabled() {
		return
	}
	c.schedulerMetrics.monitorErrors.Inc()
}

// Armed implements debounce.Observer.
func (c *Collector) Armed() {
	if !c.enabled() {
		return
	}
	c.schedulerMetrics.pending.Set(1)
}

// Coalesced implements debounce.Observer.
func (c *Collector) Coalesced() {
	if !c.enabled() {
		return
	}
	c.schedulerMetrics.coalescedTotal.Inc()
}

// Fired implements debounce.Observer.
func (c *Collector) Fired() {
	if !c.enabled() {
		return
	}
	c.schedulerMetrics.pending.Set(0)
	c.schedulerMetrics.triggersTotal.Inc()
}

// RecordCommit records one commit attempt.
//
// result is one of "committed", "conflict_pending", "error".
func (c *Collector) RecordCommit(result string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.repositoryMetrics.commitsTotal.WithLabelValues(result).Inc()
	c.repositoryMetrics.duration.WithLabelValues("commit").Observe(duration.Seconds())
}

// RecordSync records one sync attempt by merge outcome ("noop",
// "fast_forwarded", "merged", "conflicts", "error").
func (c *Collector) RecordSync(outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.repositoryMetrics.syncsTotal.WithLabelValues(outcome).Inc()
	c.repositoryMetrics.duration.WithLabelValues("sync").Observe(duration.Seconds())
}

// RecordFetched adds the objects and bytes transferred by a fetch.
func (c *Collector) RecordFetched(objects int, bytes int64) {
	if !c.enabled() {
		return
	}
	c.repositoryMetrics.fetchedObjects.Add(float64(objects))
	c.repositoryMetrics.fetchedBytes.Add(float64(bytes))
}

// RecordPush records one push attempt by outcome ("pushed", "up_to_date",
// "remote_missing", "error").
func (c *Collector) RecordPush(outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.repositoryMetrics.pushesTotal.WithLabelValues(outcome).Inc()
	c.repositoryMetrics.duration.WithLabelValues("push").Observe(duration.Seconds())
}
