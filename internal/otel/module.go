package otel

import (
	"context"

	"github.com/ronappleton/flowdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const ServiceName = "flowdesk"

// Module starts telemetry export when telemetry.enabled is set. Without it the
// global no-op providers stay in place.
func Module() fx.Option {
	return fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) {
		if !cfg.Telemetry.Enabled {
			logger.Debug("telemetry disabled")
			return
		}
		var shutdown Shutdown
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				fn, err := Init(ctx, ServiceName, cfg.Telemetry)
				if err != nil {
					logger.Warn("telemetry init failed", zap.Error(err))
					return nil
				}
				shutdown = fn
				logger.Info("telemetry exporting", zap.String("endpoint", cfg.Telemetry.Endpoint))
				return nil
			},
			OnStop: func(ctx context.Context) error {
				if shutdown == nil {
					return nil
				}
				return shutdown(ctx)
			},
		})
	})
}
