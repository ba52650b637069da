package usecase

import (
	"go.uber.org/fx"

	"github.com/polkiloo/gophercheckout/internal/events"
)

// Module provides core business use cases to the fx container.
var Module = fx.Options(
	fx.Provide(
		NewInventoryLedger,
		NewOrderAssembler,
		NewPaymentOrchestrator,
		NewStatusReconciler,
		NewOrderStatusProjector,
	),
	fx.Invoke(func(projector *OrderStatusProjector, bus *events.Bus) {
		projector.Register(bus)
	}),
)
