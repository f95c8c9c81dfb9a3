package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"backer-hq/backer/pkg/config"
	"backer-hq/backer/pkg/debounce"
	"backer-hq/backer/pkg/journal"
	"backer-hq/backer/pkg/notify"
	"backer-hq/backer/pkg/server"
	"backer-hq/backer/pkg/telemetry/health"
	"backer-hq/backer/pkg/telemetry/metrics"
	"backer-hq/backer/pkg/telemetry/tracing"
	"backer-hq/backer/pkg/vcs"
	"backer-hq/backer/pkg/watch"
)

// Job names used in logs, metrics labels, journal entries and health checks.
const (
	JobCommit = "commit"
	JobSync   = "sync"
	JobPush   = "push"
)

// ErrNoMonitor is returned by Run when Deps.Monitor was not set.
var ErrNoMonitor = errors.New("no change monitor configured")

// BuildInfo is reported on the /version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Deps are the collaborators of a Daemon. Only Monitor is required, and
// only by Run; it can also be set later with SetMonitor.
type Deps struct {
	Monitor     watch.Monitor
	Notifier    notify.Notifier
	Collector   *metrics.Collector
	Tracer      *tracing.Tracer
	Journal     journal.Store
	Credentials vcs.CredentialProvider
	Health      *health.Tracker
	Clock       clockwork.Clock
	Logger      *slog.Logger
	// Progress receives fetch and push sideband output.
	Progress io.Writer
	Build    BuildInfo
}

// Daemon runs the backup jobs for one working tree.
type Daemon struct {
	cfg *config.Config

	monitor     watch.Monitor
	notifier    notify.Notifier
	collector   *metrics.Collector
	tracer      *tracing.Tracer
	journal     journal.Store
	credentials vcs.CredentialProvider
	tracker     *health.Tracker
	clock       clockwork.Clock
	logger      *slog.Logger
	progress    io.Writer
	build       BuildInfo

	// lane serializes every job that touches the repository.
	lane   sync.Mutex
	author vcs.Signature
}

// New creates a daemon for cfg. cfg must already be validated.
func New(cfg *config.Config, deps Deps) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if cfg.Watch.Path == "" {
		return nil, errors.New("watch path is required")
	}

	d := &Daemon{
		cfg:         cfg,
		monitor:     deps.Monitor,
		notifier:    deps.Notifier,
		collector:   deps.Collector,
		tracer:      deps.Tracer,
		journal:     deps.Journal,
		credentials: deps.Credentials,
		tracker:     deps.Health,
		clock:       deps.Clock,
		logger:      deps.Logger,
		progress:    deps.Progress,
		build:       deps.Build,
	}

	if d.notifier == nil {
		d.notifier = notify.Discard{}
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "daemon")
	if d.tracker == nil {
		d.tracker = health.NewTracker(d.clock)
	}
	if d.tracer == nil {
		t, err := tracing.New(&config.TracingConfig{})
		if err != nil {
			return nil, fmt.Errorf("failed to create tracer: %w", err)
		}
		d.tracer = t
	}
	if d.credentials == nil {
		d.credentials = CredentialsFor(&cfg.Remote)
	}
	if cfg.Commit.AuthorName != "" {
		d.author = vcs.Signature{Name: cfg.Commit.AuthorName, Email: cfg.Commit.AuthorEmail}
	}

	return d, nil
}

// CredentialsFor builds the credential provider selected by remote.auth.
func CredentialsFor(cfg *config.RemoteConfig) vcs.CredentialProvider {
	if cfg.Auth == config.AuthNone {
		return vcs.NoAuth{}
	}
	return &vcs.SSHKeyProvider{
		KeyPath:       cfg.SSHKeyPath,
		User:          cfg.SSHUser,
		KnownHosts:    cfg.KnownHosts,
		IgnoreHostKey: cfg.InsecureIgnoreHostKey,
	}
}

// SetMonitor sets the change monitor used by Run. Call it after Prepare so
// that the directory exists and the startup fast-forward goes unnoticed.
func (d *Daemon) SetMonitor(m watch.Monitor) {
	d.monitor = m
}

// Tracker returns the health tracker fed by every attempt.
func (d *Daemon) Tracker() *health.Tracker {
	return d.tracker
}

// Author returns the signature used for commits.
func (d *Daemon) Author() vcs.Signature {
	return d.author
}

func (d *Daemon) remoteEnabled() bool {
	return d.cfg.Remote.URL != ""
}

func (d *Daemon) pushEnabled() bool {
	return d.remoteEnabled() && !d.cfg.Sync.DisablePush
}

func (d *Daemon) open() (*vcs.Repository, error) {
	return vcs.Open(d.cfg.Watch.Path, vcs.WithNow(d.clock.Now))
}

// Prepare opens or initializes the repository, registers the remote,
// creates the initial commit and runs the startup sync. Only a repository
// that cannot be opened or initialized is an error.
func (d *Daemon) Prepare(ctx context.Context) error {
	d.lane.Lock()
	repo, err := vcs.OpenOrInit(d.cfg.Watch.Path, d.cfg.Remote.Branch, vcs.WithNow(d.clock.Now))
	if err != nil {
		d.lane.Unlock()
		return fmt.Errorf("failed to open repository at %s: %w", d.cfg.Watch.Path, err)
	}

	author := d.signature(repo)

	if d.remoteEnabled() {
		existing, created, err := repo.EnsureRemote(d.cfg.Remote.Name, d.cfg.Remote.URL)
		switch {
		case err != nil:
			d.lane.Unlock()
			return fmt.Errorf("failed to configure remote %s: %w", d.cfg.Remote.Name, err)
		case created:
			d.logger.InfoContext(ctx, "Added remote", "remote", d.cfg.Remote.Name, "url", d.cfg.Remote.URL)
		case existing != d.cfg.Remote.URL:
			d.logger.WarnContext(ctx, "Remote already exists with a different URL; keeping it",
				"remote", d.cfg.Remote.Name,
				"existing_url", existing,
				"configured_url", d.cfg.Remote.URL,
			)
		}
	}

	if rec, err := repo.CreateInitialCommit(author); err != nil {
		d.logger.WarnContext(ctx, "Failed to create initial commit", "error", err)
	} else if rec != nil {
		d.logger.InfoContext(ctx, "Created initial commit", "hash", rec.Hash.String(), "branch", rec.Branch)
	}
	d.lane.Unlock()

	if d.remoteEnabled() && !d.cfg.Sync.SkipStartup {
		// Failures are reported by the job itself.
		_, _ = d.SyncNow(ctx)
	}
	return nil
}

func defaultSignature() vcs.Signature {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return vcs.Signature{Name: "backer", Email: "backer@" + host}
}

// Run watches for changes until ctx is cancelled or the monitor fails.
//
// It also starts the periodic sync when sync.schedule is set and the status
// server when telemetry.metrics.listen is set. A pending commit is allowed
// to finish before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	if d.monitor == nil {
		return ErrNoMonitor
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopSync, err := d.startPeriodicSync(runCtx)
	if err != nil {
		return err
	}
	defer stopSync()

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)
	if srv := d.statusServer(); srv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(runCtx); err != nil {
				serverErr <- err
				cancel()
			}
		}()
	}

	events := make(chan watch.Event)
	errs := make(chan error, 1)
	go d.forward(runCtx, events, errs)

	// An armed timer still commits after shutdown starts.
	commitCtx := context.WithoutCancel(ctx)
	sched := debounce.New(d.cfg.Commit.Delay,
		func() { _, _ = d.CommitNow(commitCtx) },
		debounce.WithClock(d.clock),
		debounce.WithLogger(d.logger),
		debounce.WithObserver(d.collector),
	)

	d.logger.InfoContext(ctx, "Watching for changes",
		"path", d.cfg.Watch.Path,
		"delay", d.cfg.Commit.Delay,
		"remote", d.cfg.Remote.URL,
		"push", d.pushEnabled(),
	)

	err = sched.Run(runCtx, events, errs)
	cancel()
	wg.Wait()

	select {
	case srvErr := <-serverErr:
		return errors.Join(err, srvErr)
	default:
	}
	if err != nil {
		d.logger.ErrorContext(ctx, "Change monitor stopped", "error", err)
		return err
	}
	d.logger.InfoContext(ctx, "Stopped watching", "path", d.cfg.Watch.Path)
	return nil
}

// forward relays monitor output to the scheduler and counts it. Channels
// are closed only when the monitor closes its own.
func (d *Daemon) forward(ctx context.Context, events chan<- watch.Event, errs chan<- error) {
	src, srcErrs := d.monitor.Events(), d.monitor.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-src:
			if !ok {
				close(events)
				return
			}
			d.collector.RecordEvent(ev.Op.String())
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		case err, ok := <-srcErrs:
			if !ok {
				close(errs)
				return
			}
			d.collector.RecordMonitorError()
			errs <- err
			return
		}
	}
}

// startPeriodicSync schedules SyncNow on sync.schedule.
func (d *Daemon) startPeriodicSync(ctx context.Context) (stop func(), err error) {
	if !d.remoteEnabled() || d.cfg.Sync.Schedule == "" {
		return func() {}, nil
	}

	logger := cronLogger{d.logger.With("component", "cron")}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(d.cfg.Sync.Schedule, func() { _, _ = d.SyncNow(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", d.cfg.Sync.Schedule, err)
	}
	c.Start()
	d.logger.InfoContext(ctx, "Periodic sync scheduled", "schedule", d.cfg.Sync.Schedule)

	return func() {
		<-c.Stop().Done()
	}, nil
}

// statusServer builds the metrics and health server, or nil when no listen
// address is configured.
func (d *Daemon) statusServer() *server.Server {
	mc := d.cfg.Telemetry.Metrics
	if mc.Listen == "" {
		return nil
	}

	checker := health.New(d.cfg.Telemetry.Health.CheckTimeout, d.clock)
	checker.RegisterCheck(JobCommit, d.tracker.Check(JobCommit))
	if d.remoteEnabled() {
		checker.RegisterCheck(JobSync, d.tracker.Check(JobSync))
		checker.RegisterCheck(JobPush, d.tracker.Check(JobPush))
	}

	routes := server.Routes{
		MetricsPath: mc.Path,
		Health:      checker,
		Version:     d.build.Version,
		Commit:      d.build.Commit,
		BuildTime:   d.build.BuildTime,
	}
	if d.collector != nil && mc.Enabled {
		routes.Metrics = d.collector.Handler()
	}
	return server.New(server.Config{Listen: mc.Listen}, server.NewMux(routes), d.logger)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
