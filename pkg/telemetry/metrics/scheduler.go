package metrics

import (
	"backer-hq/backer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics tracks change detection and debouncing.
//
// Metrics:
//   - backer_watch_events_total: file system events by operation
//   - backer_watch_errors_total: non-fatal monitor errors
//   - backer_debounce_coalesced_total: events absorbed by an armed timer
//   - backer_debounce_triggers_total: commit callbacks fired
//   - backer_debounce_pending: 1 while a timer is armed and not yet fired
type SchedulerMetrics struct {
	eventsTotal    *prometheus.CounterVec
	monitorErrors  prometheus.Counter
	coalescedTotal prometheus.Counter
	triggersTotal  prometheus.Counter
	pending        prometheus.Gauge
}

// NewSchedulerMetrics creates and registers scheduler metrics.
func NewSchedulerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SchedulerMetrics {
	sm := &SchedulerMetrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "watch",
				Name:      "events_total",
				Help:      "File system events observed in the watched tree",
			},
			[]string{"op"},
		),
		monitorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "watch",
			Name:      "errors_total",
			Help:      "Fatal change monitor errors that stopped watching",
		}),
		coalescedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "debounce",
			Name:      "coalesced_total",
			Help:      "Events absorbed by an already armed timer",
		}),
		triggersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "debounce",
			Name:      "triggers_total",
			Help:      "Commit callbacks fired by the debounce timer",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "debounce",
			Name:      "pending",
			Help:      "1 while a debounce timer is armed",
		}),
	}

	registry.MustRegister(
		sm.eventsTotal,
		sm.monitorErrors,
		sm.coalescedTotal,
		sm.triggersTotal,
		sm.pending,
	)
	return sm
}
