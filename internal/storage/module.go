package storage

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/gophercheckout/internal/config"
	"github.com/polkiloo/gophercheckout/internal/domain/repository"
	"github.com/polkiloo/gophercheckout/internal/storage/memory"
	"github.com/polkiloo/gophercheckout/internal/storage/postgres"
)

// Module wires the configured storage backend and its repositories.
var Module = fx.Options(
	fx.Provide(newFactory),
	fx.Provide(
		func(f repository.Factory) repository.InventoryRepository { return f.Inventory() },
		func(f repository.Factory) repository.OrderRepository { return f.Orders() },
		func(f repository.Factory) repository.PaymentRepository { return f.Payments() },
		func(f repository.Factory) repository.AddressBook { return f.Addresses() },
		func(f repository.Factory) repository.CartStore { return f.Carts() },
	),
	fx.Invoke(registerLifecycle),
)

type factoryParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newFactory(p factoryParams) (repository.Factory, error) {
	if p.Config.DatabaseURI == config.MemoryDatabaseURI {
		p.Logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}
	store, err := postgres.New(p.Ctx, p.Config.DatabaseURI, p.Logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func registerLifecycle(lc fx.Lifecycle, storage repository.Factory) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			storage.Close()
			return nil
		},
	})
}
