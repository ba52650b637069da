package auth

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/gophercheckout/internal/config"
)

// Module provides the bearer token strategy via fx.
var Module = fx.Provide(newTokenStrategy)

type strategyParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newTokenStrategy(p strategyParams) Strategy {
	strategy := NewHMACStrategy(p.Config.AuthSecret, Options{TTL: p.Config.AuthTokenTTL})
	p.Logger.Info("token strategy configured",
		slog.String("strategy", strategy.Name()),
		slog.Duration("ttl", strategy.ttl),
	)
	return strategy
}
