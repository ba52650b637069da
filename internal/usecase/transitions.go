package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/domain/repository"
	"github.com/polkiloo/gophercheckout/internal/events"
	"github.com/polkiloo/gophercheckout/internal/metrics"
)

const maxReleaseAttempts = 5

// paymentStates is the single write path for payment status shared by the
// orchestrator and the reconciler.
type paymentStates struct {
	payments  repository.PaymentRepository
	publisher events.Publisher
	metrics   *metrics.Collectors
	logger    *slog.Logger
	now       func() time.Time
}

func legalTransition(from, to model.PaymentStatus) bool {
	// PROCESSING -> PROCESSING records the asynchronous gateway reference
	if from == model.PaymentStatusProcessing && to == model.PaymentStatusProcessing {
		return true
	}
	return from.CanTransition(to)
}

// apply moves p from its current status with a compare-and-set and publishes
// the resulting domain event. The stored payment is left untouched when the
// transition is illegal or the status changed underneath.
func (s *paymentStates) apply(ctx context.Context, p *model.Payment, t model.PaymentTransition) (*model.Payment, error) {
	t.From = p.Status
	if !legalTransition(t.From, t.To) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidStateTransition, t.From, t.To)
	}

	updated, err := s.payments.Transition(ctx, p.ID, t)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, t.From, updated)
	return updated, nil
}

// announce logs and counts a stored status change and publishes its domain event.
func (s *paymentStates) announce(ctx context.Context, from model.PaymentStatus, updated *model.Payment) {
	logger := s.logger.With(
		slog.String("transaction_id", updated.TransactionID),
		slog.String("from", string(from)),
		slog.String("to", string(updated.Status)),
	)
	if from != updated.Status {
		s.metrics.PaymentTransition(string(updated.Method), string(updated.Status))
		logger.Info("payment transitioned")
	}

	if evt, ok := model.NewPaymentEvent(updated, s.now()); ok {
		if err := s.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
			logger.Error("failed to publish payment event", slog.String("event", string(evt.Type)), slog.String("error", err.Error()))
		}
	}
}

// claimRefund records amount against p before any money moves. Of two
// concurrent claims on the same refunded total only one succeeds, the other
// gets ErrStateConflict. Nothing is announced until the claim is confirmed.
func (s *paymentStates) claimRefund(ctx context.Context, p *model.Payment, amount decimal.Decimal) (*model.Payment, error) {
	if !legalTransition(p.Status, model.PaymentStatusRefunded) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidStateTransition, p.Status, model.PaymentStatusRefunded)
	}
	refunded := p.Refunded()
	total := refunded.Add(amount)
	at := s.now()
	return s.payments.Transition(ctx, p.ID, model.PaymentTransition{
		From:           p.Status,
		To:             model.PaymentStatusRefunded,
		RefundAmount:   &total,
		RefundedAt:     &at,
		ExpectedRefund: &refunded,
	})
}

// confirmRefund announces a claim whose gateway refund succeeded.
func (s *paymentStates) confirmRefund(ctx context.Context, before, claimed *model.Payment) {
	s.announce(ctx, before.Status, claimed)
}

// releaseRefund takes amount back off the stored refund total after the
// gateway refused it. Concurrent claims may have moved the total meanwhile, so
// the compare-and-set is retried against a fresh read.
func (s *paymentStates) releaseRefund(ctx context.Context, paymentID int64, amount decimal.Decimal) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < maxReleaseAttempts; attempt++ {
		var current *model.Payment
		current, err = s.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		refunded := current.Refunded()
		remaining := refunded.Sub(amount)
		if current.Status != model.PaymentStatusRefunded || remaining.IsNegative() {
			return fmt.Errorf("%w: refund claim of %s is gone", domainErrors.ErrStateConflict, amount.StringFixed(moneyScale))
		}

		t := model.PaymentTransition{
			From:           current.Status,
			To:             model.PaymentStatusRefunded,
			ExpectedRefund: &refunded,
			RefundAmount:   &remaining,
		}
		if remaining.IsZero() {
			t.To = model.PaymentStatusCompleted
			t.RefundAmount = nil
			t.ClearRefund = true
		}
		if _, err = s.payments.Transition(ctx, paymentID, t); !errors.Is(err, domainErrors.ErrStateConflict) {
			return err
		}
	}
	return err
}

func (s *paymentStates) outcome(ctx context.Context, p *model.Payment, status model.PaymentStatus, reference, reason string) (*model.Payment, error) {
	t := model.PaymentTransition{To: status}
	if reference != "" {
		t.GatewayReference = &reference
	}
	if reason != "" && status != model.PaymentStatusCompleted {
		t.FailureReason = &reason
	}
	return s.apply(ctx, p, t)
}
