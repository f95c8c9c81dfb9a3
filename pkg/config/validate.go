package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "remote.url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// HasField reports whether field failed validation.
func (e ValidationError) HasField(field string) bool {
	return slices.ContainsFunc(e.Errors, func(fe FieldError) bool { return fe.Field == field })
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateWatch(&cfg.Watch)...)
	errs = append(errs, validateCommit(&cfg.Commit)...)
	errs = append(errs, validateRemote(&cfg.Remote)...)
	errs = append(errs, validateSync(&cfg.Sync)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	if cfg.Journal.MaxEntries < 0 {
		errs = append(errs, FieldError{Field: "journal.max_entries", Message: "max_entries cannot be negative"})
	}
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateWatch(cfg *WatchConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "watch.path", Message: "path to watch is required"})
	}
	if !slices.Contains([]string{"auto", "fsnotify", "poll"}, cfg.Monitor) {
		errs = append(errs, FieldError{
			Field:   "watch.monitor",
			Message: fmt.Sprintf("invalid monitor %q: must be 'auto', 'fsnotify', or 'poll'", cfg.Monitor),
		})
	}
	if cfg.Interval <= 0 {
		errs = append(errs, FieldError{Field: "watch.interval", Message: "monitor interval must be positive"})
	}
	return errs
}

func validateCommit(cfg *CommitConfig) []FieldError {
	var errs []FieldError

	if cfg.Delay <= 0 {
		errs = append(errs, FieldError{Field: "commit.delay", Message: "commit delay must be positive"})
	}
	if strings.TrimSpace(cfg.Message) == "" {
		errs = append(errs, FieldError{Field: "commit.message", Message: "commit message must not be blank"})
	}
	if (cfg.AuthorName == "") != (cfg.AuthorEmail == "") {
		errs = append(errs, FieldError{
			Field:   "commit.author_email",
			Message: "author name and email must be set together",
		})
	}
	if cfg.AuthorEmail != "" && !strings.Contains(cfg.AuthorEmail, "@") {
		errs = append(errs, FieldError{
			Field:   "commit.author_email",
			Message: fmt.Sprintf("invalid email %q", cfg.AuthorEmail),
		})
	}
	return errs
}

func validateRemote(cfg *RemoteConfig) []FieldError {
	var errs []FieldError

	if cfg.Name == "" {
		errs = append(errs, FieldError{Field: "remote.name", Message: "remote name is required"})
	}
	if cfg.Branch == "" || strings.ContainsAny(cfg.Branch, " ~^:?*[\\") {
		errs = append(errs, FieldError{
			Field:   "remote.branch",
			Message: fmt.Sprintf("invalid branch name %q", cfg.Branch),
		})
	}

	switch cfg.Auth {
	case AuthSSH:
		if cfg.URL != "" && cfg.SSHKeyPath == "" {
			errs = append(errs, FieldError{
				Field:   "remote.ssh_key_path",
				Message: "an SSH key is required when a remote URL is set (use remote.auth: none for unauthenticated remotes)",
			})
		}
	case AuthNone:
	default:
		errs = append(errs, FieldError{
			Field:   "remote.auth",
			Message: fmt.Sprintf("invalid auth %q: must be 'ssh' or 'none'", cfg.Auth),
		})
	}
	return errs
}

func validateSync(cfg *SyncConfig) []FieldError {
	var errs []FieldError

	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "sync.schedule",
				Message: fmt.Sprintf("invalid schedule %q: %v", cfg.Schedule, err),
			})
		}
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "sync.timeout", Message: "timeout must not be negative"})
	}
	return errs
}

func validateNotify(cfg *NotifyConfig) []FieldError {
	var errs []FieldError

	if !slices.Contains([]string{"desktop", "log", "none"}, cfg.Backend) {
		errs = append(errs, FieldError{
			Field:   "notify.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'desktop', 'log', or 'none'", cfg.Backend),
		})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "notify.timeout", Message: "timeout must be positive"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.Logging.Level) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}
	if !slices.Contains([]string{"json", "text"}, cfg.Logging.Format) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.max_size_mb",
			Message: "rotation limits must not be negative",
		})
	}

	if cfg.Metrics.Listen != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if !slices.Contains([]string{"always", "never", "ratio"}, cfg.Tracing.Sampler) {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.CheckTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must not be negative",
		})
	}
	return errs
}
