// Package telemetry groups the daemon's observability packages.
//
//   - logging: structured slog logger with file rotation and URL redaction
//   - metrics: Prometheus counters and histograms for scheduling and
//     repository jobs
//   - tracing: OpenTelemetry spans for commit, sync, and push
//   - health: liveness and readiness endpoints backed by the last job outcomes
//
// The metrics and health handlers share one HTTP listener configured by
// telemetry.metrics.listen.
package telemetry
