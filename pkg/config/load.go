package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "BACKER_"

// Override mutates a configuration after file and environment values are
// applied, typically from command line flags.
type Override func(*Config)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, expands paths, validates the configuration,
// and returns any errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if err := Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention BACKER_SECTION_FIELD (e.g., BACKER_REMOTE_URL) and always take
// precedence over the file.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	return Load(path)
}

// Load builds the effective configuration. Values are applied in order:
//
//  1. YAML file at path (skipped when path is empty)
//  2. BACKER_* environment variables
//  3. overrides, in the order given
//  4. defaults for everything still unset
//
// The result is validated before it is returned.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = parseFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	for _, override := range overrides {
		override(cfg)
	}

	if err := Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize applies defaults, expands ~ in paths, and validates cfg.
func Finalize(cfg *Config) error {
	ApplyDefaults(cfg)

	if err := expandPaths(cfg); err != nil {
		return fmt.Errorf("failed to expand configuration paths: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

func parseFile(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration path %q: %w", path, err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return &cfg, nil
}

func expandPaths(cfg *Config) error {
	paths := []*string{
		&cfg.Watch.Path,
		&cfg.Remote.SSHKeyPath,
		&cfg.Journal.Path,
		&cfg.Telemetry.Logging.File,
	}
	for i := range cfg.Remote.KnownHosts {
		paths = append(paths, &cfg.Remote.KnownHosts[i])
	}

	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format BACKER_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Watch overrides
	envString("WATCH_PATH", &cfg.Watch.Path)
	envString("WATCH_MONITOR", &cfg.Watch.Monitor)
	envDuration("WATCH_INTERVAL", &cfg.Watch.Interval)

	// Commit overrides
	envDuration("COMMIT_DELAY", &cfg.Commit.Delay)
	envString("COMMIT_MESSAGE", &cfg.Commit.Message)
	envString("COMMIT_AUTHOR_NAME", &cfg.Commit.AuthorName)
	envString("COMMIT_AUTHOR_EMAIL", &cfg.Commit.AuthorEmail)

	// Remote overrides
	envString("REMOTE_NAME", &cfg.Remote.Name)
	envString("REMOTE_URL", &cfg.Remote.URL)
	envString("REMOTE_BRANCH", &cfg.Remote.Branch)
	envString("REMOTE_AUTH", &cfg.Remote.Auth)
	envString("REMOTE_SSH_KEY_PATH", &cfg.Remote.SSHKeyPath)
	envString("REMOTE_SSH_USER", &cfg.Remote.SSHUser)
	if val := os.Getenv(EnvPrefix + "REMOTE_KNOWN_HOSTS"); val != "" {
		cfg.Remote.KnownHosts = strings.Split(val, string(os.PathListSeparator))
	}
	envBool("REMOTE_INSECURE_IGNORE_HOST_KEY", &cfg.Remote.InsecureIgnoreHostKey)

	// Sync overrides
	envString("SYNC_SCHEDULE", &cfg.Sync.Schedule)
	envDuration("SYNC_TIMEOUT", &cfg.Sync.Timeout)
	envBool("SYNC_SKIP_STARTUP", &cfg.Sync.SkipStartup)
	envBool("SYNC_DISABLE_PUSH", &cfg.Sync.DisablePush)

	// Notify overrides
	envString("NOTIFY_BACKEND", &cfg.Notify.Backend)
	envDuration("NOTIFY_TIMEOUT", &cfg.Notify.Timeout)

	// Journal overrides
	envString("JOURNAL_PATH", &cfg.Journal.Path)
	envInt("JOURNAL_MAX_ENTRIES", &cfg.Journal.MaxEntries)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envString("TELEMETRY_LOGGING_FILE", &cfg.Telemetry.Logging.File)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_LISTEN", &cfg.Telemetry.Metrics.Listen)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}
