// Package daemon runs the backup pipeline for one directory.
//
// A Daemon wires a change monitor to the debounce scheduler and runs the
// commit, push and sync jobs against the repository at watch.path:
//
//	monitor -> debounce -> commit -> push
//	cron    -> sync (snapshot, fetch, merge)
//
// Every repository job takes the same lock, so a commit never overlaps a
// sync. The debounce coordinator never takes it and keeps coalescing events
// while a slow fetch is in flight.
//
// Failed attempts are logged at error level and sent to the notifier.
// Merge conflicts and a missing remote are expected outcomes: they are
// logged at warn level and notified as information. Each attempt is also
// recorded in the journal, the health tracker, the metrics collector and
// a trace span.
//
// # Lifecycle
//
//	d, err := daemon.New(cfg, daemon.Deps{Monitor: monitor, Logger: logger})
//	if err != nil {
//	    return err
//	}
//	if err := d.Prepare(ctx); err != nil {
//	    return err // cannot open or initialize the repository
//	}
//	return d.Run(ctx)
//
// The caller owns the monitor and closes it after Run returns.
package daemon
