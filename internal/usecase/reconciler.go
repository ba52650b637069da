package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polkiloo/gophercheckout/internal/adapter/gateway"
	"github.com/polkiloo/gophercheckout/internal/config"
	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/domain/repository"
	"github.com/polkiloo/gophercheckout/internal/events"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

// Reconciliation triggers.
const (
	TriggerClient   = "client"
	TriggerSweep    = "sweep"
	TriggerCallback = "callback"
)

// reasonDispatchUnknown marks synchronous payments whose dispatch never recorded an outcome.
const reasonDispatchUnknown = "dispatch outcome unknown"

// StatusReconciler advances PROCESSING payments from provider polls and callbacks.
type StatusReconciler struct {
	payments repository.PaymentRepository
	gateways GatewayRegistry
	states   *paymentStates
	timeout  time.Duration
	grace    time.Duration
	metrics  *metrics.Collectors
	logger   *slog.Logger
	now      func() time.Time
}

// NewStatusReconciler constructs StatusReconciler.
func NewStatusReconciler(
	payments repository.PaymentRepository,
	gateways GatewayRegistry,
	publisher events.Publisher,
	cfg *config.Config,
	m *metrics.Collectors,
	logger *slog.Logger,
) *StatusReconciler {
	logger = logger.With(slog.String("component", "reconciler"))
	return &StatusReconciler{
		payments: payments,
		gateways: gateways,
		states:   &paymentStates{payments: payments, publisher: publisher, metrics: m, logger: logger, now: time.Now},
		timeout:  cfg.PaymentTimeout,
		grace:    cfg.ReconcileGrace,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Due lists PROCESSING payments past the grace period, oldest first.
func (r *StatusReconciler) Due(ctx context.Context, limit int) ([]model.Payment, error) {
	return r.payments.ListProcessing(ctx, r.now().Add(-r.grace), limit)
}

// Reconcile applies the provider's current status to a PROCESSING payment.
// Payments past the timeout are closed without asking the provider. Calling it
// on a payment in any other status returns the payment unchanged.
func (r *StatusReconciler) Reconcile(ctx context.Context, paymentID int64, trigger string) (*model.Payment, error) {
	payment, err := r.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	updated, outcome, err := r.reconcile(ctx, payment)
	r.metrics.Reconciliation(trigger, outcome)
	return updated, err
}

func (r *StatusReconciler) reconcile(ctx context.Context, payment *model.Payment) (*model.Payment, string, error) {
	if payment.Status != model.PaymentStatusProcessing {
		return payment, "noop", nil
	}

	expired := r.now().Sub(payment.CreatedAt) >= r.timeout
	adapter, err := r.gateways.Get(payment.Method)
	if err != nil && !errors.Is(err, domainErrors.ErrUnsupportedMethod) {
		return nil, "error", err
	}

	checker, async := adapter.(gateway.StatusChecker)
	switch {
	case expired && (async || adapter == nil):
		reason := fmt.Sprintf("no settlement within %s", r.timeout)
		return r.settle(ctx, payment, model.PaymentStatusTimeout, "", reason)
	case expired:
		return r.settle(ctx, payment, model.PaymentStatusFailed, "", reasonDispatchUnknown)
	case !async || payment.GatewayReference == nil:
		return payment, "pending", nil
	}

	result, err := checker.CheckStatus(ctx, *payment.GatewayReference)
	if err != nil {
		r.logger.Warn("provider status check failed",
			slog.String("transaction_id", payment.TransactionID),
			slog.String("error", err.Error()),
		)
		return payment, "error", nil
	}
	return r.applyResult(ctx, payment, result)
}

func (r *StatusReconciler) applyResult(ctx context.Context, payment *model.Payment, result gateway.Result) (*model.Payment, string, error) {
	switch result.Status {
	case model.PaymentStatusCompleted, model.PaymentStatusFailed:
		return r.settle(ctx, payment, result.Status, result.Reference, result.Message)
	default:
		return payment, "pending", nil
	}
}

// settle applies a terminal status. Losing the compare-and-set to another
// writer is not an error: the stored payment is returned as is.
func (r *StatusReconciler) settle(ctx context.Context, payment *model.Payment, status model.PaymentStatus, reference, reason string) (*model.Payment, string, error) {
	if reference == "" && payment.GatewayReference != nil {
		reference = *payment.GatewayReference
	}
	updated, err := r.states.outcome(ctx, payment, status, reference, reason)
	if errors.Is(err, domainErrors.ErrStateConflict) {
		current, getErr := r.payments.GetByID(ctx, payment.ID)
		if getErr != nil {
			return nil, "error", getErr
		}
		return current, "conflict", nil
	}
	if err != nil {
		return nil, "error", err
	}
	return updated, string(status), nil
}

// HandleCallback applies a provider notification for an asynchronous payment.
// Repeated or late callbacks for settled payments are acknowledged unchanged.
func (r *StatusReconciler) HandleCallback(ctx context.Context, method model.PaymentMethod, body []byte) (*model.Payment, error) {
	adapter, err := r.gateways.Get(method)
	if err != nil {
		return nil, err
	}
	parser, ok := adapter.(gateway.CallbackParser)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not accept callbacks", domainErrors.ErrUnsupportedMethod, method)
	}
	result, err := parser.ParseCallback(body)
	if err != nil {
		return nil, domainErrors.NewValidationError("callback", err.Error())
	}

	payment, err := r.payments.GetByGatewayReference(ctx, method, result.Reference)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentStatusProcessing {
		r.metrics.Reconciliation(TriggerCallback, "noop")
		return payment, nil
	}
	updated, outcome, err := r.applyResult(ctx, payment, result)
	r.metrics.Reconciliation(TriggerCallback, outcome)
	return updated, err
}
