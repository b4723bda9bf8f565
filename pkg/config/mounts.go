package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/pkg/apiclient"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/instrumented"
	"github.com/marmos91/gfs/pkg/gfs/store/badger"
	"github.com/marmos91/gfs/pkg/gfs/store/memory"
	"github.com/marmos91/gfs/pkg/gfs/store/postgres"
	"github.com/marmos91/gfs/pkg/gfs/store/relational"
	"github.com/marmos91/gfs/pkg/gfs/store/s3"
	"github.com/marmos91/gfs/pkg/metrics"
	"github.com/marmos91/gfs/pkg/registry"
)

// Store types accepted in MountConfig.Type.
const (
	StoreTypeMemory     = "memory"
	StoreTypeBadger     = "badger"
	StoreTypePostgres   = "postgres"
	StoreTypeRelational = "relational"
	StoreTypeS3         = "s3"
	StoreTypeRemote     = "remote"
)

// InitializeRegistry opens every configured mount and registers it.
// Mounts opened before a failure are closed again.
func InitializeRegistry(ctx context.Context, cfg *Config) (*registry.Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if len(cfg.Mounts) == 0 {
		return nil, fmt.Errorf("no mounts configured: at least one mount is required")
	}

	fsMetrics := metrics.NewFSMetrics()
	reg := registry.NewRegistry()

	for _, mc := range cfg.Mounts {
		m, err := OpenMount(ctx, mc, fsMetrics)
		if err != nil {
			_ = reg.Close()
			return nil, fmt.Errorf("failed to open mount %q: %w", mc.Name, err)
		}
		if err := reg.AddMount(m); err != nil {
			_ = reg.Close()
			return nil, err
		}
	}

	if cfg.DefaultMount != "" {
		if err := reg.SetDefault(cfg.DefaultMount); err != nil {
			_ = reg.Close()
			return nil, err
		}
	}

	logger.Info("Registered mounts", "count", reg.CountMounts(), "default", reg.Default())
	return reg, nil
}

// OpenMount opens the store described by mc and wraps it with
// instrumentation and, when configured, read-only enforcement.
func OpenMount(ctx context.Context, mc MountConfig, fsMetrics metrics.FSMetrics) (*registry.Mount, error) {
	logger.Debug("Opening mount", logger.Mount(mc.Name), logger.KeyStoreType, mc.Type, logger.KeyRoot, mc.Root)

	store, err := openStore(ctx, mc)
	if err != nil {
		return nil, err
	}

	var fs gfs.Filesystem[attr.Attr] = instrumented.Wrap[attr.Attr](store, instrumented.Options{
		Mount:     mc.Name,
		StoreType: mc.Type,
		Metrics:   fsMetrics,
	})
	if mc.ReadOnly {
		fs = gfs.ReadOnly[attr.Attr](fs)
	}

	logger.Info("Mount opened", logger.Mount(mc.Name), logger.KeyStoreType, mc.Type, "read_only", mc.ReadOnly)
	return &registry.Mount{
		Name:      mc.Name,
		StoreType: mc.Type,
		ReadOnly:  mc.ReadOnly,
		FS:        fs,
	}, nil
}

func openStore(ctx context.Context, mc MountConfig) (gfs.Filesystem[attr.Attr], error) {
	policy, err := gfs.ParseRenamePolicy(mc.RenamePolicy)
	if err != nil {
		return nil, err
	}

	switch mc.Type {
	case StoreTypeMemory:
		var c memory.Config
		if err := decodeOptions(mc.Options, &c); err != nil {
			return nil, err
		}
		c.Root, c.RenamePolicy = mc.Root, policy
		return memory.New[attr.Attr](c), nil

	case StoreTypeBadger:
		var c badger.Config
		if err := decodeOptions(mc.Options, &c); err != nil {
			return nil, err
		}
		c.Root, c.RenamePolicy, c.Codec = mc.Root, policy, mc.Codec
		return opened(badger.New[attr.Attr](ctx, c))

	case StoreTypePostgres:
		var c postgres.Config
		if err := decodeOptions(mc.Options, &c); err != nil {
			return nil, err
		}
		c.Root, c.RenamePolicy, c.Codec = mc.Root, policy, mc.Codec
		return opened(postgres.New[attr.Attr](ctx, c))

	case StoreTypeRelational:
		var c relational.Config
		if err := decodeOptions(mc.Options, &c); err != nil {
			return nil, err
		}
		c.Root, c.RenamePolicy, c.Codec = mc.Root, policy, mc.Codec
		return opened(relational.New[attr.Attr](ctx, c))

	case StoreTypeS3:
		var c s3.Config
		if err := decodeOptions(mc.Options, &c); err != nil {
			return nil, err
		}
		c.Root, c.RenamePolicy, c.Codec = mc.Root, policy, mc.Codec
		return opened(s3.NewFromConfig[attr.Attr](ctx, c))

	case StoreTypeRemote:
		c := apiclient.RemoteConfig{Mount: mc.Name}
		if err := decodeOptions(mc.Options, &c); err != nil {
			return nil, err
		}
		return opened(apiclient.OpenRemote(ctx, c))

	default:
		return nil, fmt.Errorf("unknown store type %q", mc.Type)
	}
}

// opened converts a constructor result without leaking a typed nil.
func opened[S gfs.Filesystem[attr.Attr]](s S, err error) (gfs.Filesystem[attr.Attr], error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// decodeOptions decodes a mount's options map into a store config using the
// same hooks as the configuration file.
func decodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       configDecodeHooks(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("invalid mount options: %w", err)
	}
	return nil
}

// MetricsResult holds what InitializeMetrics set up.
type MetricsResult struct {
	// Server is nil when metrics are disabled.
	Server *metrics.Server
}

// InitializeMetrics enables the metrics registry when configured. It must
// run before InitializeRegistry so stores pick up their collectors.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		metrics.Reset()
		return MetricsResult{}
	}
	metrics.InitRegistry()
	return MetricsResult{Server: metrics.NewServer(cfg.Metrics.Port)}
}
