// Package server serves the daemon's status endpoints over HTTP.
//
// The status server is optional. When telemetry.metrics.listen is set the
// daemon starts one and mounts:
//
//   - the Prometheus metrics handler at telemetry.metrics.path
//   - /healthz, /readyz and /version from pkg/telemetry/health
//
// Every request passes through panic recovery and request logging.
//
// # Basic Usage
//
//	mux := server.NewMux(server.Routes{
//	    MetricsPath: "/metrics",
//	    Metrics:     collector.Handler(),
//	    Health:      checker,
//	    Version:     "1.0.0",
//	})
//	srv := server.New(server.Config{Listen: ":9464"}, mux, logger)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled, then shuts the listener down
// gracefully within Config.ShutdownTimeout.
package server
