package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"backer-hq/backer/pkg/cli"
	"backer-hq/backer/pkg/config"
	"backer-hq/backer/pkg/daemon"
	"backer-hq/backer/pkg/journal"
	"backer-hq/backer/pkg/notify"
	"backer-hq/backer/pkg/telemetry/logging"
	"backer-hq/backer/pkg/telemetry/metrics"
	"backer-hq/backer/pkg/telemetry/tracing"
)

// session holds the collaborators shared by every command that touches the
// repository. close releases them in reverse order of creation.
type session struct {
	cfg      *config.Config
	logger   *logging.Logger
	journal  journal.Store
	tracer   *tracing.Tracer
	progress *cli.ProgressWriter
	closers  []func() error
}

// newSession loads the configuration and builds the logger, tracer and
// journal. The caller must call close.
func newSession(extra ...config.Override) (*session, error) {
	cfg, err := loadConfig(extra...)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Telemetry.Logging
	logger, err := logging.New(logging.Config{
		Level:      logCfg.Level,
		Format:     logCfg.Format,
		AddSource:  logCfg.AddSource,
		File:       logCfg.File,
		MaxSizeMB:  logCfg.MaxSizeMB,
		MaxBackups: logCfg.MaxBackups,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Logger)

	rt := &session{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, logger.Shutdown)

	rt.tracer, err = tracing.New(&cfg.Telemetry.Tracing, tracing.WithVersion(Version))
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	rt.closers = append(rt.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		return rt.tracer.Shutdown(ctx)
	})

	rt.journal, err = openJournal(cfg, logger.Logger)
	if err != nil {
		rt.close()
		return nil, err
	}
	if rt.journal != nil {
		rt.closers = append(rt.closers, rt.journal.Close)
	}

	rt.progress = cli.NewProgressWriter(os.Stderr, "remote: ")
	return rt, nil
}

// openJournal opens the SQLite journal, or returns nil when none is
// configured.
func openJournal(cfg *config.Config, logger *slog.Logger) (journal.Store, error) {
	if cfg.Journal.Path == "" {
		return nil, nil
	}
	store, err := journal.NewSQLiteStore(journal.SQLiteConfig{
		Path:       cfg.Journal.Path,
		MaxEntries: cfg.Journal.MaxEntries,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}

// newNotifier builds the notifier selected by notify.backend.
func newNotifier(cfg *config.NotifyConfig, logger *slog.Logger) notify.Notifier {
	switch cfg.Backend {
	case "none":
		return notify.Discard{}
	case "log":
		return notify.Log{Logger: logger}
	default:
		// The desktop may be unavailable (headless sessions); keep a log copy.
		return notify.Multi{notify.NewDesktop("backer"), notify.Log{Logger: logger}}
	}
}

// deps returns every daemon collaborator except the change monitor.
func (rt *session) deps(collector *metrics.Collector) daemon.Deps {
	return daemon.Deps{
		Notifier:  newNotifier(&rt.cfg.Notify, rt.logger.Logger),
		Collector: collector,
		Tracer:    rt.tracer,
		Journal:   rt.journal,
		Logger:    rt.logger.Logger,
		Progress:  rt.progress,
		Build: daemon.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	}
}

// close releases every resource, newest first, and joins the errors.
func (rt *session) close() error {
	if rt.progress != nil {
		rt.progress.Finish()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// withDaemon runs fn against a daemon built for a one-shot command. The
// repository must already exist; interrupts cancel fn's context.
func withDaemon(cmd *cobra.Command, name string, fn func(ctx context.Context, d *daemon.Daemon) error) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.close(); cerr != nil {
			slog.Warn("Failed to release resources", "error", cerr)
		}
	}()

	d, err := daemon.New(sess.cfg, sess.deps(nil))
	if err != nil {
		return cli.NewCommandError(name, err)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if err := fn(ctx, d); err != nil {
		return cli.NewCommandError(name, err)
	}
	return nil
}
