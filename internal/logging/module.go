package logging

import (
	"context"

	"github.com/ronappleton/flowdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "flowdesk"

func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewLogger),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
}

// NewLogger builds the process logger from config and, when a sink URL is
// configured, tees entries to the remote log sink until the app stops.
func NewLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	logger, err := Build(cfg.Logging)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("service", serviceName))

	var sink *sinkSender
	if cfg.Logging.SinkURL != "" {
		sink = newSinkSender(cfg.Logging.SinkURL, cfg.Logging.SinkAPIKey, serviceName)
		logger = attachSink(logger, sink)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if sink != nil {
				sink.start()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = logger.Sync()
			if sink != nil {
				sink.stop()
			}
			return nil
		},
	})
	return logger, nil
}

func Build(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}
