package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# gfs Configuration File
#
# Environment variables override any value below, e.g.:
#   GFS_LOGGING_LEVEL=DEBUG
#   GFS_METRICS_ENABLED=true
#
# Mount types: memory, badger, postgres, relational, s3, remote.
# Store-specific settings go under each mount's "options" key.
#
# Example PostgreSQL mount:
#   - name: shared
#     type: postgres
#     codec: cbor
#     options:
#       host: localhost
#       database: gfs
#       user: gfs
#       password: secret
#       auto_migrate: true
#
# Example S3 mount:
#   - name: archive
#     type: s3
#     read_only: true
#     options:
#       bucket: my-bucket
#       region: eu-west-1
#       key_prefix: gfs/
#
# Example mount served by another gfs server:
#   - name: shared-remote
#     type: remote
#     options:
#       url: http://gfs.internal:8080
#       mount: shared
#       timeout: 10s

`

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// SampleOptions customizes the default mount of a generated configuration.
type SampleOptions struct {
	// StoreType is memory, badger or relational. Default: badger
	StoreType string

	// DataDir holds the mount's files. Default: <config dir>/data
	DataDir string
}

// InitConfigToPath writes a sample configuration to path. The sample mounts
// a badger database stored next to the configuration file.
func InitConfigToPath(path string, force bool) error {
	return InitConfigWithOptions(path, force, SampleOptions{})
}

// InitConfigWithOptions writes a sample configuration to path with the
// default mount built from opts.
func InitConfigWithOptions(path string, force bool, opts SampleOptions) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}
	if opts.DataDir == "" {
		opts.DataDir = filepath.Join(filepath.Dir(path), "data")
	}

	cfg, err := sampleConfig(opts)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(sampleHeader), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func sampleConfig(opts SampleOptions) (*Config, error) {
	mount := MountConfig{Name: DefaultMountName}
	switch opts.StoreType {
	case "", StoreTypeBadger:
		mount.Type = StoreTypeBadger
		mount.Codec = "cbor"
		mount.Options = map[string]any{
			"path":        filepath.Join(opts.DataDir, DefaultMountName),
			"compression": "zstd",
		}
	case StoreTypeRelational:
		mount.Type = StoreTypeRelational
		mount.Options = map[string]any{
			"type":   "sqlite",
			"sqlite": map[string]any{"path": filepath.Join(opts.DataDir, DefaultMountName+".db")},
		}
	case StoreTypeMemory:
		mount.Type = StoreTypeMemory
	default:
		return nil, fmt.Errorf("unsupported sample store type %q (valid: badger, relational, memory)", opts.StoreType)
	}

	enabled := true
	cfg := &Config{
		Mounts: []MountConfig{
			mount,
			{Name: "scratch", Type: StoreTypeMemory},
		},
	}
	cfg.API.Enabled = &enabled
	ApplyDefaults(cfg)
	return cfg, nil
}
