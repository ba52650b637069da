package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/gophercheckout/internal/adapter/gateway"
	"github.com/polkiloo/gophercheckout/internal/app"
	"github.com/polkiloo/gophercheckout/internal/config"
	"github.com/polkiloo/gophercheckout/internal/events"
	"github.com/polkiloo/gophercheckout/internal/logger"
	"github.com/polkiloo/gophercheckout/internal/metrics"
	"github.com/polkiloo/gophercheckout/internal/pkg/auth"
	"github.com/polkiloo/gophercheckout/internal/server/http/handlers"
	"github.com/polkiloo/gophercheckout/internal/server/http/router"
	"github.com/polkiloo/gophercheckout/internal/storage"
	"github.com/polkiloo/gophercheckout/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		storage.Module,
		gateway.Module,
		events.Module,
		usecase.Module,
		auth.Module,
		fx.Provide(
			func(r *gateway.Registry) usecase.GatewayRegistry { return r },
			func(f *app.CheckoutFacade) handlers.CheckoutFacade { return f },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
