package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/internal/telemetry"
	"github.com/marmos91/gfs/pkg/api"
	"github.com/marmos91/gfs/pkg/config"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/gfs/pkg/metrics/prometheus"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured mounts over HTTP",
		Long: `Open every configured mount and serve them through the HTTP API.

The logging section of the configuration file is reloaded when the file
changes; other sections need a restart.

Examples:
  gfs serve
  GFS_API_PORT=9000 gfs serve --config /etc/gfs/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g.configFile)
		},
	}
}

func runServe(parent context.Context, configFile string) error {
	cfg, err := config.MustLoad(configFile)
	if err != nil {
		return err
	}
	if err := InitLogger(cfg, false); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "gfs",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "gfs",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}

	// Metrics must be enabled before mounts open so stores get collectors.
	metricsResult := config.InitializeMetrics(cfg)

	reg, err := config.InitializeRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Error("Failed to close mounts", logger.Err(err))
		}
	}()

	if configFile != "" || config.DefaultConfigExists() {
		path := configFile
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.Watch(path, func(next *config.Config) {
			if err := config.ApplyLogging(next.Logging); err != nil {
				logger.Warn("Failed to apply reloaded logging config", logger.Err(err))
			}
		}); err != nil {
			logger.Warn("Configuration reload disabled", logger.Err(err))
		}
	}

	group, gctx := errgroup.WithContext(ctx)

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		group.Go(func() error { return metricsResult.Server.Start(gctx) })
	}

	if cfg.API.IsEnabled() {
		server := api.NewServer(cfg.API, reg)
		group.Go(func() error { return server.Start(gctx, cfg.ShutdownTimeout) })
	} else {
		logger.Warn("API server disabled; nothing to serve until shutdown")
	}

	logger.Info("Server is running. Press Ctrl+C to stop.", "mounts", reg.CountMounts())
	group.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("Server error", logger.Err(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
