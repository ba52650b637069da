package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/gophercheckout/internal/adapter/gateway"
	"github.com/polkiloo/gophercheckout/internal/config"
	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/domain/repository"
	"github.com/polkiloo/gophercheckout/internal/events"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

// GatewayRegistry resolves the adapter for a payment method.
type GatewayRegistry interface {
	Get(method model.PaymentMethod) (gateway.Adapter, error)
}

// PaymentOrchestrator creates payments, dispatches them to gateways and
// records the outcome.
type PaymentOrchestrator struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	gateways GatewayRegistry
	states   *paymentStates
	retry    RetryPolicy
	window   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewPaymentOrchestrator constructs PaymentOrchestrator.
func NewPaymentOrchestrator(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	gateways GatewayRegistry,
	publisher events.Publisher,
	cfg *config.Config,
	m *metrics.Collectors,
	logger *slog.Logger,
) *PaymentOrchestrator {
	logger = logger.With(slog.String("component", "payments"))
	return &PaymentOrchestrator{
		orders:   orders,
		payments: payments,
		gateways: gateways,
		states:   &paymentStates{payments: payments, publisher: publisher, metrics: m, logger: logger, now: time.Now},
		retry:    NewRetryPolicy(cfg),
		window:   cfg.DuplicateWindow,
		logger:   logger,
		now:      time.Now,
	}
}

// Pay settles the user's order through the requested gateway. created is false
// when a duplicate submission returned an existing payment. Gateway failures
// end as a FAILED payment, not as an error.
func (o *PaymentOrchestrator) Pay(ctx context.Context, userID int64, req model.PaymentRequest) (payment *model.Payment, created bool, err error) {
	adapter, err := o.gateways.Get(req.Method)
	if err != nil {
		return nil, false, err
	}

	order, err := o.orders.GetByNumber(ctx, req.OrderNumber)
	if err != nil {
		return nil, false, err
	}
	if order.UserID != userID {
		return nil, false, domainErrors.ErrNotFound
	}

	if req.Currency == "" {
		req.Currency = order.Currency
	}
	if !strings.EqualFold(req.Currency, order.Currency) {
		return nil, false, domainErrors.NewValidationError("currency", "must be "+order.Currency)
	}
	req.Currency = order.Currency
	if !req.Amount.Equal(order.Totals.Total) {
		return nil, false, fmt.Errorf("%w: expected %s", domainErrors.ErrAmountMismatch, order.Totals.Total.StringFixed(moneyScale))
	}
	if err := adapter.Validate(req); err != nil {
		return nil, false, err
	}

	if existing, err := o.payments.FindRecent(ctx, order.ID, req.Amount, o.now().Add(-o.window)); err == nil {
		o.logger.Info("duplicate payment submission", slog.String("transaction_id", existing.TransactionID), slog.String("order", order.Number))
		return existing, false, nil
	} else if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, false, err
	}
	if active, err := o.payments.FindActive(ctx, order.ID); err == nil {
		return active, false, domainErrors.ErrPaymentInProgress
	} else if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, false, err
	}

	if order.Status != model.OrderStatusPending && order.Status != model.OrderStatusProcessing {
		return nil, false, fmt.Errorf("%w: order is %s", domainErrors.ErrInvalidStateTransition, order.Status)
	}

	payment = &model.Payment{
		OrderID:       order.ID,
		UserID:        userID,
		Method:        req.Method,
		Amount:        req.Amount,
		Currency:      req.Currency,
		TransactionID: uuid.NewString(),
		Status:        model.PaymentStatusPending,
	}
	if err := o.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, domainErrors.ErrAlreadyExists) {
			// a concurrent submission won the active slot
			if active, findErr := o.payments.FindActive(ctx, order.ID); findErr == nil {
				return active, false, nil
			}
			return nil, false, domainErrors.ErrPaymentInProgress
		}
		return nil, false, fmt.Errorf("create payment: %w", err)
	}

	if err := o.claimOrder(ctx, order); err != nil {
		if _, cancelErr := o.states.outcome(ctx, payment, model.PaymentStatusCancelled, "", "order is no longer payable"); cancelErr != nil {
			o.logger.Error("failed to cancel orphaned payment", slog.String("transaction_id", payment.TransactionID), slog.String("error", cancelErr.Error()))
		}
		return nil, false, err
	}

	payment, err = o.states.apply(ctx, payment, model.PaymentTransition{To: model.PaymentStatusProcessing})
	if err != nil {
		return nil, false, err
	}

	// the gateway call must not be abandoned halfway when the client goes away
	payment, err = o.dispatch(context.WithoutCancel(ctx), adapter, order, payment, req)
	return payment, true, err
}

// claimOrder marks the order as being paid. An order left PROCESSING by a
// previous attempt whose failure was not projected yet is claimed as is.
func (o *PaymentOrchestrator) claimOrder(ctx context.Context, order *model.Order) error {
	if order.Status == model.OrderStatusProcessing {
		return nil
	}
	err := o.orders.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusProcessing)
	if !errors.Is(err, domainErrors.ErrStateConflict) {
		return err
	}
	current, getErr := o.orders.GetByID(ctx, order.ID)
	if getErr != nil {
		return getErr
	}
	if current.Status == model.OrderStatusProcessing {
		return nil
	}
	return fmt.Errorf("%w: order is %s", domainErrors.ErrInvalidStateTransition, current.Status)
}

func (o *PaymentOrchestrator) dispatch(ctx context.Context, adapter gateway.Adapter, order *model.Order, payment *model.Payment, req model.PaymentRequest) (*model.Payment, error) {
	gwReq := gateway.Request{
		TransactionID: payment.TransactionID,
		OrderNumber:   order.Number,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Details:       req.Details,
	}
	result, err := withRetry(ctx, o.retry, o.logger, "execute", func(ctx context.Context) (gateway.Result, error) {
		return adapter.Execute(ctx, gwReq)
	})
	if err != nil {
		reason := "gateway rejected request: " + err.Error()
		if gateway.IsRetryable(err) {
			reason = "gateway unavailable: " + err.Error()
		}
		o.logger.Warn("payment dispatch failed", slog.String("transaction_id", payment.TransactionID), slog.String("error", err.Error()))
		return o.states.outcome(ctx, payment, model.PaymentStatusFailed, "", reason)
	}

	switch result.Status {
	case model.PaymentStatusCompleted, model.PaymentStatusFailed:
		return o.states.outcome(ctx, payment, result.Status, result.Reference, result.Message)
	case model.PaymentStatusProcessing:
		if result.Reference == "" {
			return payment, nil
		}
		return o.states.outcome(ctx, payment, model.PaymentStatusProcessing, result.Reference, "")
	default:
		o.logger.Error("gateway returned unexpected status", slog.String("status", string(result.Status)))
		return o.states.outcome(ctx, payment, model.PaymentStatusFailed, result.Reference, "unexpected gateway status "+string(result.Status))
	}
}

// Get returns the payment by its transaction id.
func (o *PaymentOrchestrator) Get(ctx context.Context, transactionID string) (*model.Payment, error) {
	return o.payments.GetByTransactionID(ctx, transactionID)
}

// Refund returns amount of a settled payment to the customer. Refunds
// accumulate and never exceed the original amount. The amount is claimed in
// storage before the gateway is asked to move money and released again when
// the gateway refuses.
func (o *PaymentOrchestrator) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*model.Payment, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(moneyScale)) {
		return nil, domainErrors.NewValidationError("amount", "must be a positive amount with at most two decimal places")
	}

	payment, err := o.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentStatusCompleted && payment.Status != model.PaymentStatusRefunded {
		return nil, fmt.Errorf("%w: payment is %s", domainErrors.ErrInvalidStateTransition, payment.Status)
	}
	if amount.GreaterThan(payment.Refundable()) {
		return nil, fmt.Errorf("%w: %s remaining", domainErrors.ErrRefundExceedsAmount, payment.Refundable().StringFixed(moneyScale))
	}

	claimed, err := o.states.claimRefund(ctx, payment, amount)
	if err != nil {
		return nil, err
	}

	reference, err := o.refundAtGateway(ctx, payment, amount)
	if err != nil {
		if releaseErr := o.states.releaseRefund(ctx, claimed.ID, amount); releaseErr != nil {
			o.logger.Error("failed to release refund claim",
				slog.String("transaction_id", payment.TransactionID),
				slog.String("amount", amount.StringFixed(moneyScale)),
				slog.String("error", releaseErr.Error()),
			)
		}
		return nil, err
	}

	if reference != "" {
		o.logger.Info("refund executed at gateway",
			slog.String("transaction_id", payment.TransactionID),
			slog.String("refund_reference", reference),
			slog.String("amount", amount.StringFixed(moneyScale)),
		)
	}
	o.states.confirmRefund(ctx, payment, claimed)
	return claimed, nil
}

// refundAtGateway returns the provider refund reference, or "" when the
// gateway has no refund api.
func (o *PaymentOrchestrator) refundAtGateway(ctx context.Context, payment *model.Payment, amount decimal.Decimal) (string, error) {
	adapter, err := o.gateways.Get(payment.Method)
	if err != nil {
		return "", err
	}
	refunder, ok := adapter.(gateway.Refunder)
	if !ok || payment.GatewayReference == nil {
		o.logger.Info("gateway has no refund api, recording refund only",
			slog.String("transaction_id", payment.TransactionID),
			slog.String("method", string(payment.Method)),
		)
		return "", nil
	}

	req := gateway.RefundRequest{
		RefundID:      uuid.NewString(),
		TransactionID: payment.TransactionID,
		Reference:     *payment.GatewayReference,
		Amount:        amount,
		Currency:      payment.Currency,
	}
	result, err := withRetry(context.WithoutCancel(ctx), o.retry, o.logger, "refund", func(ctx context.Context) (gateway.Result, error) {
		return refunder.Refund(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("refund at gateway: %w", err)
	}
	return result.Reference, nil
}
