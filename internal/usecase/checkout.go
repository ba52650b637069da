package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/gophercheckout/internal/config"
	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/domain/repository"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

const orderNumberAttempts = 3

// OrderAssembler turns cart snapshots into persisted orders.
type OrderAssembler struct {
	ledger    *InventoryLedger
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	addresses repository.AddressBook
	carts     repository.CartStore
	pricing   Pricing
	currency  string
	metrics   *metrics.Collectors
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrderAssembler constructs OrderAssembler.
func NewOrderAssembler(
	ledger *InventoryLedger,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	addresses repository.AddressBook,
	carts repository.CartStore,
	cfg *config.Config,
	m *metrics.Collectors,
	logger *slog.Logger,
) *OrderAssembler {
	return &OrderAssembler{
		ledger:    ledger,
		orders:    orders,
		payments:  payments,
		addresses: addresses,
		carts:     carts,
		pricing:   NewPricing(cfg),
		currency:  cfg.Currency,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Checkout reserves every cart line and persists a PENDING order. Either all
// lines are reserved and the order exists, or nothing changes.
func (a *OrderAssembler) Checkout(ctx context.Context, userID int64, cart model.CartSnapshot, addressID int64) (*model.Order, error) {
	order, err := a.checkout(ctx, userID, cart, addressID)
	a.metrics.CheckoutOutcome(checkoutOutcome(err))
	return order, err
}

func (a *OrderAssembler) checkout(ctx context.Context, userID int64, cart model.CartSnapshot, addressID int64) (*model.Order, error) {
	if cart.Empty() {
		return nil, domainErrors.ErrEmptyCart
	}
	if err := validateCart(cart); err != nil {
		return nil, err
	}

	owns, err := a.addresses.Owns(ctx, userID, addressID)
	if err != nil {
		return nil, fmt.Errorf("check address ownership: %w", err)
	}
	if !owns {
		return nil, domainErrors.ErrAddressNotOwned
	}

	reservations := make([]model.Reservation, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		r, err := a.ledger.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			a.ledger.ReleaseAll(ctx, reservations)
			return nil, err
		}
		reservations = append(reservations, r)
	}

	items := make([]model.OrderItem, len(cart.Lines))
	for i, line := range cart.Lines {
		items[i] = model.OrderItem{ProductID: line.ProductID, Quantity: line.Quantity, UnitPrice: line.UnitPrice}
	}
	order := &model.Order{
		UserID:    userID,
		AddressID: addressID,
		Items:     items,
		Currency:  a.currency,
		Totals:    a.pricing.Totals(items),
		Status:    model.OrderStatusPending,
	}
	if !order.Consistent() {
		a.logger.Error("computed order totals are inconsistent",
			slog.Int64("user_id", userID),
			slog.String("subtotal", order.Totals.Subtotal.String()),
			slog.String("total", order.Totals.Total.String()),
		)
		a.ledger.ReleaseAll(ctx, reservations)
		return nil, domainErrors.ErrTotalMismatch
	}

	if err := a.persist(ctx, order); err != nil {
		a.ledger.ReleaseAll(ctx, reservations)
		return nil, err
	}
	for _, r := range reservations {
		_ = a.ledger.Commit(ctx, r)
	}

	if err := a.carts.Clear(ctx, userID); err != nil {
		a.logger.Warn("failed to clear cart after checkout", slog.Int64("user_id", userID), slog.String("error", err.Error()))
	}
	a.logger.Info("order created",
		slog.String("order", order.Number),
		slog.Int64("user_id", userID),
		slog.String("total", order.Totals.Total.StringFixed(moneyScale)),
	)
	return order, nil
}

// persist stores the order, drawing a fresh number on the rare collision.
func (a *OrderAssembler) persist(ctx context.Context, order *model.Order) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.Number = a.orderNumber()
		err = a.orders.Create(ctx, order)
		if !errors.Is(err, domainErrors.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (a *OrderAssembler) orderNumber() string {
	entropy := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return "ORD-" + a.now().UTC().Format("20060102") + "-" + entropy
}

func validateCart(cart model.CartSnapshot) error {
	for i, line := range cart.Lines {
		switch {
		case line.ProductID <= 0:
			return fmt.Errorf("%w: line %d has no product", domainErrors.ErrInvalidCart, i+1)
		case line.Quantity <= 0:
			return fmt.Errorf("%w: line %d quantity must be positive", domainErrors.ErrInvalidCart, i+1)
		case line.UnitPrice.IsNegative():
			return fmt.Errorf("%w: line %d price must not be negative", domainErrors.ErrInvalidCart, i+1)
		}
	}
	return nil
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, domainErrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domainErrors.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domainErrors.ErrAddressNotOwned):
		return "address_not_owned"
	case errors.Is(err, domainErrors.ErrInvalidCart):
		return "invalid_cart"
	default:
		return "error"
	}
}

// GetOrder returns the order when it belongs to userID. Foreign orders look missing.
func (a *OrderAssembler) GetOrder(ctx context.Context, userID int64, number string) (*model.Order, error) {
	order, err := a.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	return order, nil
}

// CancelOrder cancels a PENDING order and returns its stock. Orders with a
// payment in flight cannot be cancelled.
func (a *OrderAssembler) CancelOrder(ctx context.Context, userID int64, number string) (*model.Order, error) {
	order, err := a.GetOrder(ctx, userID, number)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case model.OrderStatusPending:
	case model.OrderStatusProcessing:
		return nil, domainErrors.ErrPaymentInProgress
	default:
		return nil, fmt.Errorf("%w: order is %s", domainErrors.ErrInvalidStateTransition, order.Status)
	}
	if _, err := a.payments.FindActive(ctx, order.ID); err == nil {
		return nil, domainErrors.ErrPaymentInProgress
	} else if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	if err := a.orders.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusCancelled); err != nil {
		if errors.Is(err, domainErrors.ErrStateConflict) {
			return nil, fmt.Errorf("%w: order changed concurrently", domainErrors.ErrInvalidStateTransition)
		}
		return nil, err
	}
	order.Status = model.OrderStatusCancelled

	reservations := make([]model.Reservation, len(order.Items))
	for i, item := range order.Items {
		reservations[i] = model.Reservation{ID: order.Number, ProductID: item.ProductID, Quantity: item.Quantity}
	}
	a.ledger.ReleaseAll(ctx, reservations)

	a.logger.Info("order cancelled", slog.String("order", order.Number), slog.Int64("user_id", userID))
	return order, nil
}
