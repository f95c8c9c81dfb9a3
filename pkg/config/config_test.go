package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Watch.Path != "" {
		t.Errorf("expected no default watch path, got %q", cfg.Watch.Path)
	}
	if cfg.Commit.Delay != DefaultCommitDelay {
		t.Errorf("expected commit delay %v, got %v", DefaultCommitDelay, cfg.Commit.Delay)
	}
	if err := Validate(cfg); err == nil {
		t.Error("expected default config without a path to be invalid")
	}
}

func TestConfig_YAMLKeys(t *testing.T) {
	data := `
watch:
  path: /data
remote:
  ssh_key_path: /k
  insecure_ignore_host_key: true
sync:
  skip_startup: true
  disable_push: true
notify:
  backend: log
  timeout: 2s
journal:
  path: /j.db
telemetry:
  logging:
    max_size_mb: 50
  tracing:
    service_name: laptop
`
	var cfg Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if cfg.Remote.SSHKeyPath != "/k" || !cfg.Remote.InsecureIgnoreHostKey {
		t.Errorf("unexpected remote %+v", cfg.Remote)
	}
	if !cfg.Sync.SkipStartup || !cfg.Sync.DisablePush {
		t.Errorf("unexpected sync %+v", cfg.Sync)
	}
	if cfg.Notify.Backend != "log" || cfg.Notify.Timeout != 2*time.Second {
		t.Errorf("unexpected notify %+v", cfg.Notify)
	}
	if cfg.Journal.Path != "/j.db" {
		t.Errorf("unexpected journal %+v", cfg.Journal)
	}
	if cfg.Telemetry.Logging.MaxSizeMB != 50 || cfg.Telemetry.Tracing.ServiceName != "laptop" {
		t.Errorf("unexpected telemetry %+v", cfg.Telemetry)
	}
}
