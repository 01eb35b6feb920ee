package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/internal/telemetry"
	"github.com/scribefs/scribefs/pkg/config"
	"github.com/scribefs/scribefs/pkg/metrics"

	// Import prometheus metrics to register init() functions
	_ "github.com/scribefs/scribefs/pkg/metrics/prometheus"
)

// service is either node role, assembled from configuration.
type service interface {
	Run(ctx context.Context) error
}

// runNode loads configuration, brings up the ambient stack (logging,
// metrics, profiling), and serves the role until SIGINT/SIGTERM.
func runNode(role string, build func(cfg *config.Config) (service, error)) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Profiling.Enabled,
		ServiceName:    "scribefs-" + role,
		ServiceVersion: Version,
		Endpoint:       cfg.Profiling.Endpoint,
		ProfileTypes:   cfg.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("scribefs starting",
		"role", role,
		"version", Version,
		"log_level", cfg.Logging.Level,
		"metrics", cfg.Metrics.Enabled,
	)

	svc, err := build(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		return err
	}
	logger.Info("scribefs stopped", "role", role)
	return nil
}
