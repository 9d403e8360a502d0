package auth

import (
	"github.com/ronappleton/flowdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Provide(func(cfg config.Config, logger *zap.Logger) *Verifier {
		if cfg.Auth.JWTSecret == "" {
			logger.Warn("auth.jwt_secret is empty; every bearer token will be rejected")
		}
		return NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	})
}
