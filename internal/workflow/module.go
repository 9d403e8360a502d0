package workflow

import (
	"context"
	"fmt"

	"github.com/ronappleton/flowdesk/internal/catalog"
	"github.com/ronappleton/flowdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewStore,
			func(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) Publisher {
				n := NewNotifier(cfg.Events.AuditURL, cfg.Events.EventBusURL, cfg.Events.Timeout, logger.Named("events"))
				lc.Append(fx.Hook{OnStop: n.Wait})
				return n
			},
			func(store Store, templates *catalog.Catalog, events Publisher, cfg config.Config, logger *zap.Logger) *Service {
				return NewService(store, Options{
					Templates:           templates,
					Scorer:              FixedScorer{Value: cfg.Workflows.DefaultHealthScore},
					Events:              events,
					Logger:              logger.Named("workflow"),
					EnforceStepSequence: cfg.Workflows.EnforceStepSequence,
				})
			},
		),
	)
}

// NewStore picks the store named by cfg.Store.Driver. The postgres store is
// closed when the app stops.
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Store.Driver {
	case "", config.StoreMemory:
		logger.Info("workflow store: memory")
		return NewMemoryStore(), nil
	case config.StorePostgres:
		pg, err := NewPGStore(context.Background(), cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			return pg.Close()
		}})
		logger.Info("workflow store: postgres")
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
