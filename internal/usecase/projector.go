package usecase

import (
	"context"
	"errors"
	"log/slog"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/domain/repository"
	"github.com/polkiloo/gophercheckout/internal/events"
)

// OrderStatusProjector keeps order status in step with payment events.
type OrderStatusProjector struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	logger   *slog.Logger
}

// NewOrderStatusProjector constructs OrderStatusProjector.
func NewOrderStatusProjector(orders repository.OrderRepository, payments repository.PaymentRepository, logger *slog.Logger) *OrderStatusProjector {
	return &OrderStatusProjector{orders: orders, payments: payments, logger: logger.With(slog.String("component", "order_projector"))}
}

// Register subscribes the projector to the bus.
func (p *OrderStatusProjector) Register(bus *events.Bus) {
	bus.Subscribe(model.EventOrderPaid, p.Handle)
	bus.Subscribe(model.EventOrderPaymentFailed, p.Handle)
}

// Handle applies one payment event to its order.
func (p *OrderStatusProjector) Handle(ctx context.Context, evt model.PaymentEvent) error {
	switch evt.Type {
	case model.EventOrderPaid:
		return p.markPaid(ctx, evt.OrderID)
	case model.EventOrderPaymentFailed:
		return p.reopen(ctx, evt.OrderID)
	default:
		return nil
	}
}

func (p *OrderStatusProjector) markPaid(ctx context.Context, orderID int64) error {
	for _, from := range []model.OrderStatus{model.OrderStatusProcessing, model.OrderStatusPending} {
		err := p.orders.UpdateStatus(ctx, orderID, from, model.OrderStatusPaid)
		if err == nil {
			p.logger.Info("order paid", slog.Int64("order_id", orderID))
			return nil
		}
		if !errors.Is(err, domainErrors.ErrStateConflict) {
			return err
		}
	}
	p.logger.Warn("completed payment for order that is not payable", slog.Int64("order_id", orderID))
	return nil
}

// reopen makes the order payable again unless a newer payment is already under way.
func (p *OrderStatusProjector) reopen(ctx context.Context, orderID int64) error {
	if _, err := p.payments.FindActive(ctx, orderID); err == nil {
		return nil
	} else if !errors.Is(err, domainErrors.ErrNotFound) {
		return err
	}
	err := p.orders.UpdateStatus(ctx, orderID, model.OrderStatusProcessing, model.OrderStatusPending)
	if errors.Is(err, domainErrors.ErrStateConflict) {
		return nil
	}
	return err
}
