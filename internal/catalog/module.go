package catalog

import (
	"github.com/ronappleton/flowdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Provide(func(cfg config.Config, logger *zap.Logger) *Catalog {
		return New(cfg.Catalog.PerTier, logger.Named("catalog"))
	})
}
