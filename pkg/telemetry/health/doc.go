// Package health reports daemon liveness and readiness over HTTP.
//
// A Checker runs named CheckFuncs with a per-check timeout. The daemon
// registers one check per job kind backed by a Tracker, so /readyz turns
// degraded while the most recent commit, sync, or push attempt failed and
// recovers with the next success.
package health
