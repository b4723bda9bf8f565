package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default config", mutate: func(*Config) {}},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "INVALID" },
			wantErr: "oneof",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Logging.Format",
		},
		{
			name:    "API port out of range",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "max",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "lte",
		},
		{
			name: "telemetry enabled without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry.endpoint",
		},
		{
			name: "metrics and API on the same port",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = c.API.Port
			},
			wantErr: "must differ",
		},
		{
			name:    "no mounts",
			mutate:  func(c *Config) { c.Mounts = nil },
			wantErr: "Mounts",
		},
		{
			name:    "unknown store type",
			mutate:  func(c *Config) { c.Mounts[0].Type = "floppy" },
			wantErr: "oneof",
		},
		{
			name:    "bad mount name",
			mutate:  func(c *Config) { c.Mounts[0].Name = "has/slash" },
			wantErr: "mountname",
		},
		{
			name:    "bad rename policy",
			mutate:  func(c *Config) { c.Mounts[0].RenamePolicy = "merge" },
			wantErr: "RenamePolicy",
		},
		{
			name:    "bad codec",
			mutate:  func(c *Config) { c.Mounts[0].Codec = "gob" },
			wantErr: "Codec",
		},
		{
			name: "duplicate mount names",
			mutate: func(c *Config) {
				c.Mounts = append(c.Mounts, c.Mounts[0])
			},
			wantErr: "duplicate mount name",
		},
		{
			name:    "unknown default mount",
			mutate:  func(c *Config) { c.DefaultMount = "elsewhere" },
			wantErr: "default_mount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level
		ApplyDefaults(cfg)

		if err := Validate(cfg); err != nil {
			t.Errorf("Level %q should be valid, got: %v", level, err)
		}
		if cfg.Logging.Level != strings.ToUpper(level) {
			t.Errorf("Expected %q normalized to upper case, got %q", level, cfg.Logging.Level)
		}
	}
}
