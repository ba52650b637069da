package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
	pkgAuth "github.com/polkiloo/gophercheckout/internal/pkg/auth"
)

// CheckoutFacadeStub provides controllable behaviour for HTTP endpoints.
type CheckoutFacadeStub struct {
	TokenParserStub

	CheckoutFn func(context.Context, int64, model.CartSnapshot, int64) (*model.Order, error)
	OrderFn    func(context.Context, int64, string) (*model.Order, error)
	CancelFn   func(context.Context, int64, string) (*model.Order, error)
	PayFn      func(context.Context, int64, model.PaymentRequest) (*model.Payment, bool, error)
	PaymentFn  func(context.Context, pkgAuth.Principal, string) (*model.Payment, error)
	RefundFn   func(context.Context, pkgAuth.Principal, string, decimal.Decimal) (*model.Payment, error)
	CallbackFn func(context.Context, model.PaymentMethod, []byte) (*model.Payment, error)
	HealthErr  error
}

// SampleOrder returns a consistent pending order for response tests.
func SampleOrder(number string, userID int64) *model.Order {
	price := decimal.RequireFromString("10.00")
	return &model.Order{
		ID:        1,
		Number:    number,
		UserID:    userID,
		AddressID: 1,
		Items:     []model.OrderItem{{ProductID: 1, Quantity: 2, UnitPrice: price}},
		Currency:  "USD",
		Totals: model.Totals{
			Subtotal: decimal.RequireFromString("20.00"),
			Tax:      decimal.RequireFromString("2.00"),
			Shipping: decimal.RequireFromString("2.00"),
			Total:    decimal.RequireFromString("24.00"),
		},
		Status:    model.OrderStatusPending,
		CreatedAt: time.Unix(0, 0).UTC(),
	}
}

// SamplePayment returns a payment in the given status for response tests.
func SamplePayment(transactionID string, status model.PaymentStatus) *model.Payment {
	return &model.Payment{
		ID:            1,
		OrderID:       1,
		UserID:        1,
		Method:        model.PaymentMethodCard,
		Amount:        decimal.RequireFromString("24.00"),
		Currency:      "USD",
		TransactionID: transactionID,
		Status:        status,
		CreatedAt:     time.Unix(0, 0).UTC(),
		UpdatedAt:     time.Unix(0, 0).UTC(),
	}
}

// Checkout delegates to CheckoutFn or returns a sample order.
func (s CheckoutFacadeStub) Checkout(ctx context.Context, userID int64, cart model.CartSnapshot, addressID int64) (*model.Order, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, userID, cart, addressID)
	}
	return SampleOrder("ORD-1", userID), nil
}

// Order delegates to OrderFn or returns a sample order.
func (s CheckoutFacadeStub) Order(ctx context.Context, userID int64, number string) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, userID, number)
	}
	return SampleOrder(number, userID), nil
}

// CancelOrder delegates to CancelFn or returns a cancelled sample order.
func (s CheckoutFacadeStub) CancelOrder(ctx context.Context, userID int64, number string) (*model.Order, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, userID, number)
	}
	order := SampleOrder(number, userID)
	order.Status = model.OrderStatusCancelled
	return order, nil
}

// Pay delegates to PayFn or returns a new completed payment.
func (s CheckoutFacadeStub) Pay(ctx context.Context, userID int64, req model.PaymentRequest) (*model.Payment, bool, error) {
	if s.PayFn != nil {
		return s.PayFn(ctx, userID, req)
	}
	return SamplePayment("tx-1", model.PaymentStatusCompleted), true, nil
}

// Payment delegates to PaymentFn or returns a completed payment.
func (s CheckoutFacadeStub) Payment(ctx context.Context, caller pkgAuth.Principal, transactionID string) (*model.Payment, error) {
	if s.PaymentFn != nil {
		return s.PaymentFn(ctx, caller, transactionID)
	}
	return SamplePayment(transactionID, model.PaymentStatusCompleted), nil
}

// Refund delegates to RefundFn or records the amount on a refunded payment.
func (s CheckoutFacadeStub) Refund(ctx context.Context, caller pkgAuth.Principal, transactionID string, amount decimal.Decimal) (*model.Payment, error) {
	if s.RefundFn != nil {
		return s.RefundFn(ctx, caller, transactionID, amount)
	}
	payment := SamplePayment(transactionID, model.PaymentStatusRefunded)
	payment.RefundAmount = &amount
	return payment, nil
}

// HandleCallback delegates to CallbackFn or returns a completed payment.
func (s CheckoutFacadeStub) HandleCallback(ctx context.Context, method model.PaymentMethod, body []byte) (*model.Payment, error) {
	if s.CallbackFn != nil {
		return s.CallbackFn(ctx, method, body)
	}
	return SamplePayment("tx-cb", model.PaymentStatusCompleted), nil
}

// HealthCheck returns HealthErr.
func (s CheckoutFacadeStub) HealthCheck(context.Context) error {
	return s.HealthErr
}

// SweepFacadeStub mimics worker interactions with the reconciliation facade.
type SweepFacadeStub struct {
	Batches     [][]model.Payment
	DueFn       func(context.Context, int) ([]model.Payment, error)
	ReconcileFn func(context.Context, int64) (*model.Payment, error)

	mu         sync.Mutex
	reconciled []int64
	dueCalls   atomic.Int32
}

// DuePayments returns the configured batches one per call, then nothing.
func (s *SweepFacadeStub) DuePayments(ctx context.Context, limit int) ([]model.Payment, error) {
	if s.DueFn != nil {
		return s.DueFn(ctx, limit)
	}
	call := s.dueCalls.Add(1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// ReconcilePayment records the id and settles the payment unless ReconcileFn says otherwise.
func (s *SweepFacadeStub) ReconcilePayment(ctx context.Context, paymentID int64) (*model.Payment, error) {
	s.mu.Lock()
	s.reconciled = append(s.reconciled, paymentID)
	s.mu.Unlock()
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx, paymentID)
	}
	return &model.Payment{ID: paymentID, Status: model.PaymentStatusCompleted}, nil
}

// Reconciled returns the ids passed to ReconcilePayment so far.
func (s *SweepFacadeStub) Reconciled() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.reconciled...)
}
