package config

import (
	"strings"
	"time"

	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/codec"
)

// DefaultMountName names the mount of the default configuration.
const DefaultMountName = "default"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	cfg.API.ApplyDefaults()
	applyMountDefaults(cfg)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Standard OTLP gRPC port
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets the metrics port when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyMountDefaults fills per-mount defaults and picks the default mount.
func applyMountDefaults(cfg *Config) {
	for i := range cfg.Mounts {
		m := &cfg.Mounts[i]
		m.Type = strings.ToLower(m.Type)
		if m.Root == "" {
			m.Root = "/"
		}
		if m.RenamePolicy == "" {
			m.RenamePolicy = string(gfs.RenameOverwrite)
		}
		if m.Codec == "" {
			m.Codec = codec.JSONName
		}
	}

	if cfg.DefaultMount == "" && len(cfg.Mounts) > 0 {
		cfg.DefaultMount = cfg.Mounts[0].Name
	}
}

// GetDefaultConfig returns a Config with all default values applied and a
// single in-memory mount.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Mounts: []MountConfig{
			{Name: DefaultMountName, Type: StoreTypeMemory},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
