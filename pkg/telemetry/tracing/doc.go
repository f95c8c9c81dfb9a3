// Package tracing exports OpenTelemetry spans for commit, sync, and push
// jobs.
//
// Tracing is off by default. When telemetry.tracing.enabled is set, spans
// are sent to an OTLP gRPC collector at telemetry.tracing.endpoint:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.5
package tracing
