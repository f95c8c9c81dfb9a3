// Package metrics exports Prometheus metrics for change detection and
// repository operations.
//
// The Collector uses a private registry and is served by Handler, usually
// at /metrics on telemetry.metrics.listen. It implements debounce.Observer
// so the scheduler reports its transitions directly.
package metrics
