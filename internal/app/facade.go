package app

import (
	"context"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/domain/repository"
	pkgAuth "github.com/polkiloo/gophercheckout/internal/pkg/auth"
	"github.com/polkiloo/gophercheckout/internal/usecase"
)

// CheckoutFacade is the single entry point used by the HTTP layer and the worker.
type CheckoutFacade struct {
	tokens     pkgAuth.Strategy
	assembler  *usecase.OrderAssembler
	payments   *usecase.PaymentOrchestrator
	reconciler *usecase.StatusReconciler
	storage    repository.Factory
}

func NewCheckoutFacade(
	tokens pkgAuth.Strategy,
	assembler *usecase.OrderAssembler,
	payments *usecase.PaymentOrchestrator,
	reconciler *usecase.StatusReconciler,
	storage repository.Factory,
) *CheckoutFacade {
	return &CheckoutFacade{
		tokens:     tokens,
		assembler:  assembler,
		payments:   payments,
		reconciler: reconciler,
		storage:    storage,
	}
}

func (f *CheckoutFacade) ParseToken(token string) (pkgAuth.Principal, error) {
	return f.tokens.ParseToken(token)
}

func (f *CheckoutFacade) Checkout(ctx context.Context, userID int64, cart model.CartSnapshot, addressID int64) (*model.Order, error) {
	return f.assembler.Checkout(ctx, userID, cart, addressID)
}

func (f *CheckoutFacade) Order(ctx context.Context, userID int64, number string) (*model.Order, error) {
	return f.assembler.GetOrder(ctx, userID, number)
}

func (f *CheckoutFacade) CancelOrder(ctx context.Context, userID int64, number string) (*model.Order, error) {
	return f.assembler.CancelOrder(ctx, userID, number)
}

func (f *CheckoutFacade) Pay(ctx context.Context, userID int64, req model.PaymentRequest) (*model.Payment, bool, error) {
	return f.payments.Pay(ctx, userID, req)
}

// Payment returns the caller's payment, reconciling it first while it is PROCESSING.
// Support staff may read any payment; others see foreign payments as missing.
func (f *CheckoutFacade) Payment(ctx context.Context, caller pkgAuth.Principal, transactionID string) (*model.Payment, error) {
	payment, err := f.payments.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != caller.UserID && !caller.HasRole(pkgAuth.RoleAdmin, pkgAuth.RoleSupport) {
		return nil, domainErrors.ErrNotFound
	}
	if payment.Status != model.PaymentStatusProcessing {
		return payment, nil
	}
	return f.reconciler.Reconcile(ctx, payment.ID, usecase.TriggerClient)
}

// Refund is restricted to support staff.
func (f *CheckoutFacade) Refund(ctx context.Context, caller pkgAuth.Principal, transactionID string, amount decimal.Decimal) (*model.Payment, error) {
	if !caller.HasRole(pkgAuth.RoleAdmin, pkgAuth.RoleSupport) {
		return nil, domainErrors.ErrForbidden
	}
	return f.payments.Refund(ctx, transactionID, amount)
}

func (f *CheckoutFacade) HandleCallback(ctx context.Context, method model.PaymentMethod, body []byte) (*model.Payment, error) {
	return f.reconciler.HandleCallback(ctx, method, body)
}

func (f *CheckoutFacade) DuePayments(ctx context.Context, limit int) ([]model.Payment, error) {
	return f.reconciler.Due(ctx, limit)
}

func (f *CheckoutFacade) ReconcilePayment(ctx context.Context, paymentID int64) (*model.Payment, error) {
	return f.reconciler.Reconcile(ctx, paymentID, usecase.TriggerSweep)
}

func (f *CheckoutFacade) HealthCheck(ctx context.Context) error {
	return f.storage.HealthCheck(ctx)
}
