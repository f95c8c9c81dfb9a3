package config

import "time"

// Default values for configuration fields.
const (
	// Watch defaults
	DefaultMonitor         = "auto"
	DefaultMonitorInterval = 2 * time.Second

	// Commit defaults
	DefaultCommitDelay   = 5 * time.Second
	DefaultCommitMessage = "Committed all changes"

	// Remote defaults
	DefaultRemoteName = "origin"
	DefaultBranch     = "master"
	DefaultRemoteAuth = AuthSSH

	// Notify defaults
	DefaultNotifyBackend = "desktop"
	DefaultNotifyTimeout = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultLoggingMaxSizeMB   = 10
	DefaultLoggingMaxBackups  = 3
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "backer"
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingTimeout     = 10 * time.Second
	DefaultServiceName        = "backer"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// Remote authentication modes.
const (
	AuthSSH  = "ssh"
	AuthNone = "none"
)

// Default returns a configuration with every default applied and no watch
// path.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field with its default value.
func ApplyDefaults(cfg *Config) {
	// Watch defaults
	if cfg.Watch.Monitor == "" {
		cfg.Watch.Monitor = DefaultMonitor
	}
	if cfg.Watch.Interval == 0 {
		cfg.Watch.Interval = DefaultMonitorInterval
	}

	// Commit defaults
	if cfg.Commit.Delay == 0 {
		cfg.Commit.Delay = DefaultCommitDelay
	}
	if cfg.Commit.Message == "" {
		cfg.Commit.Message = DefaultCommitMessage
	}

	// Remote defaults
	if cfg.Remote.Name == "" {
		cfg.Remote.Name = DefaultRemoteName
	}
	if cfg.Remote.Branch == "" {
		cfg.Remote.Branch = DefaultBranch
	}
	if cfg.Remote.Auth == "" {
		cfg.Remote.Auth = DefaultRemoteAuth
	}

	// Notify defaults
	if cfg.Notify.Backend == "" {
		cfg.Notify.Backend = DefaultNotifyBackend
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = DefaultNotifyTimeout
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = DefaultLoggingMaxSizeMB
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = DefaultLoggingMaxBackups
	}

	// A listen address implies metrics are wanted.
	if cfg.Metrics.Listen != "" {
		cfg.Metrics.Enabled = true
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultServiceName
	}

	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
