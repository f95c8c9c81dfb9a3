package metrics

import (
	"backer-hq/backer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RepositoryMetrics tracks commit, sync and push attempts.
type RepositoryMetrics struct {
	commitsTotal   *prometheus.CounterVec
	syncsTotal     *prometheus.CounterVec
	pushesTotal    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	fetchedObjects prometheus.Counter
	fetchedBytes   prometheus.Counter
}

// NewRepositoryMetrics creates and registers repository metrics.
func NewRepositoryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RepositoryMetrics {
	rm := &RepositoryMetrics{
		commitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "repository",
				Name:      "commits_total",
				Help:      "Commit attempts by result",
			},
			[]string{"result"},
		),
		syncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "repository",
				Name:      "syncs_total",
				Help:      "Sync attempts by merge outcome",
			},
			[]string{"outcome"},
		),
		pushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "repository",
				Name:      "pushes_total",
				Help:      "Push attempts by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "repository",
				Name:      "operation_duration_seconds",
				Help:      "Duration of repository operations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"operation"},
		),
		fetchedObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "repository",
			Name:      "fetched_objects_total",
			Help:      "Objects received from the remote",
		}),
		fetchedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "repository",
			Name:      "fetched_bytes_total",
			Help:      "Bytes added to the object store by fetches",
		}),
	}

	registry.MustRegister(
		rm.commitsTotal,
		rm.syncsTotal,
		rm.pushesTotal,
		rm.duration,
		rm.fetchedObjects,
		rm.fetchedBytes,
	)
	return rm
}
