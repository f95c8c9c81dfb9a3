package config

import "time"

// Config is the root configuration structure for backer.
type Config struct {
	// Watch selects the directory tree to back up and how changes are detected.
	Watch WatchConfig `yaml:"watch"`

	// Commit controls when and how snapshots are recorded.
	Commit CommitConfig `yaml:"commit"`

	// Remote configures the repository that backups are pushed to and pulled from.
	Remote RemoteConfig `yaml:"remote"`

	// Sync controls pulls from the remote and pushes after commits.
	Sync SyncConfig `yaml:"sync"`

	// Notify selects where failure and conflict notifications go.
	Notify NotifyConfig `yaml:"notify"`

	// Journal configures the local history of backup attempts.
	Journal JournalConfig `yaml:"journal"`

	// Telemetry contains configuration for logging, metrics, tracing, and
	// health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// WatchConfig configures change detection.
type WatchConfig struct {
	// Path is the root of the watched tree and of the repository.
	// Supports ~ expansion.
	Path string `yaml:"path"`

	// Monitor selects the change monitor backend.
	// Options: "auto", "fsnotify", "poll"
	// Default: "auto" (fsnotify, falling back to polling)
	Monitor string `yaml:"monitor"`

	// Interval is the monitor frequency used by the polling backend.
	// Default: 2s
	Interval time.Duration `yaml:"interval"`
}

// CommitConfig configures snapshots.
type CommitConfig struct {
	// Delay is the quiet delay between the first change and the commit.
	// Default: 5s
	Delay time.Duration `yaml:"delay"`

	// Message is the message of every automatic commit.
	// Default: "Committed all changes"
	Message string `yaml:"message"`

	// AuthorName and AuthorEmail form the commit signature. When empty the
	// user's global git configuration is used.
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// RemoteConfig configures the backup remote.
type RemoteConfig struct {
	// Name is the remote name in the repository.
	// Default: "origin"
	Name string `yaml:"name"`

	// URL of the remote. Empty means local-only backups.
	// Example: "git@github.com:alice/notes.git"
	URL string `yaml:"url"`

	// Branch is the branch committed to locally and tracked on the remote.
	// Default: "master"
	Branch string `yaml:"branch"`

	// Auth is the transport authentication.
	// Options: "ssh", "none"
	// Default: "ssh"
	Auth string `yaml:"auth"`

	// SSHKeyPath is the private key used for SSH remotes.
	// Required when URL is set and Auth is "ssh".
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHUser overrides the SSH user name.
	// Default: "git"
	SSHUser string `yaml:"ssh_user"`

	// KnownHosts lists known_hosts files used to verify the server key.
	// Default: the ssh client defaults (~/.ssh/known_hosts)
	KnownHosts []string `yaml:"known_hosts"`

	// InsecureIgnoreHostKey disables host key verification.
	// Default: false
	InsecureIgnoreHostKey bool `yaml:"insecure_ignore_host_key"`
}

// SyncConfig configures pulls and pushes.
type SyncConfig struct {
	// Schedule is a cron expression for periodic pulls, e.g. "@every 10m"
	// or "*/15 * * * *". Empty disables periodic pulls.
	Schedule string `yaml:"schedule"`

	// Timeout bounds each network operation. Zero means no bound.
	Timeout time.Duration `yaml:"timeout"`

	// SkipStartup disables the pull performed before watching begins.
	SkipStartup bool `yaml:"skip_startup"`

	// DisablePush keeps commits local.
	DisablePush bool `yaml:"disable_push"`
}

// NotifyConfig configures user notifications.
type NotifyConfig struct {
	// Backend selects the notifier.
	// Options: "desktop", "log", "none"
	// Default: "desktop"
	Backend string `yaml:"backend"`

	// Timeout is how long a notification is shown.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// JournalConfig configures the attempt journal.
type JournalConfig struct {
	// Path of the SQLite database. Empty disables the journal.
	// Example: "~/.local/state/backer/journal.db"
	Path string `yaml:"path"`

	// MaxEntries bounds the number of kept entries; older ones are dropped.
	// 0 keeps everything.
	MaxEntries int `yaml:"max_entries"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// File additionally writes logs to a rotated file. Supports ~ expansion.
	File string `yaml:"file"`

	// MaxSizeMB is the rotation size of File.
	// Default: 10
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept.
	// Default: 3
	MaxBackups int `yaml:"max_backups"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded.
	// Default: true when Listen is set
	Enabled bool `yaml:"enabled"`

	// Listen is the address of the HTTP server exposing metrics and health
	// endpoints. Empty disables the server.
	// Example: "127.0.0.1:9464"
	Listen string `yaml:"listen"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "backer"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for operation durations (seconds).
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the export timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "backer"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// CheckTimeout is the timeout for individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
