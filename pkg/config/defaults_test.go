package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format text, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output stdout, got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no metrics port when disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("Expected API port 8080, got %d", cfg.API.Port)
	}
	if !cfg.API.IsEnabled() {
		t.Error("Expected API enabled by default")
	}
	if cfg.API.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.API.RequestTimeout)
	}
}

func TestApplyDefaults_Mounts(t *testing.T) {
	cfg := &Config{
		Mounts: []MountConfig{
			{Name: "a", Type: "MEMORY"},
			{Name: "b", Type: "badger", Root: "/data", RenamePolicy: "reject", Codec: "cbor"},
		},
	}
	ApplyDefaults(cfg)

	a := cfg.Mounts[0]
	if a.Type != "memory" || a.Root != "/" || a.RenamePolicy != "overwrite" || a.Codec != "json" {
		t.Errorf("Unexpected defaults for mount a: %+v", a)
	}
	b := cfg.Mounts[1]
	if b.Root != "/data" || b.RenamePolicy != "reject" || b.Codec != "cbor" {
		t.Errorf("Explicit values for mount b were overwritten: %+v", b)
	}
	if cfg.DefaultMount != "a" {
		t.Errorf("Expected first mount as default, got %q", cfg.DefaultMount)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:         LoggingConfig{Level: "debug", Format: "json", Output: "stderr"},
		ShutdownTimeout: time.Minute,
		Metrics:         MetricsConfig{Enabled: true, Port: 9100},
		DefaultMount:    "b",
	}
	cfg.API.Port = 9000
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("Explicit logging values overwritten: %+v", cfg.Logging)
	}
	if cfg.ShutdownTimeout != time.Minute {
		t.Errorf("Expected 1m, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Metrics.Port != 9100 {
		t.Errorf("Expected metrics port 9100, got %d", cfg.Metrics.Port)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("Expected API port 9000, got %d", cfg.API.Port)
	}
	if cfg.DefaultMount != "b" {
		t.Errorf("Expected default mount b, got %q", cfg.DefaultMount)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Default config should be valid, got: %v", err)
	}
}
