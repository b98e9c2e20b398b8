package telemetry

import (
	"context"

	"github.com/bookwyrm/bookwyrm/internal/setup/config"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.uber.org/zap"
)

// ServiceName is reported with every exported span.
const ServiceName = "bookwyrm"

// SetupTracing configures the OpenTelemetry exporters when a DSN is set.
// The returned function flushes pending spans and must be called on shutdown.
func SetupTracing(cfg *config.Uptrace, version string, logger *zap.Logger) func(context.Context) {
	if cfg.DSN == "" {
		logger.Debug("Tracing disabled, no uptrace DSN configured")
		return func(context.Context) {}
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.DSN),
		uptrace.WithServiceName(ServiceName),
		uptrace.WithServiceVersion(version),
		uptrace.WithDeploymentEnvironment(cfg.Environment),
	)
	logger.Info("Tracing enabled", zap.String("environment", cfg.Environment))

	return func(ctx context.Context) {
		if err := uptrace.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
}
