package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects the gateway adapter.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodWallet       PaymentMethod = "WALLET"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
)

// PaymentStatus describes payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusTimeout    PaymentStatus = "TIMEOUT"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusProcessing, PaymentStatusCancelled},
	PaymentStatusProcessing: {
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusTimeout,
		PaymentStatusCancelled,
	},
	PaymentStatusCompleted: {PaymentStatusRefunded},
	// partial refunds accumulate while staying REFUNDED
	PaymentStatusRefunded: {PaymentStatusRefunded},
}

// CanTransition reports whether moving from one status to another is legal.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no automatic transition leaves this status.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusTimeout,
		PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// Active reports whether the payment still blocks another payment for the same order.
func (s PaymentStatus) Active() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

// Payment tracks one attempt to settle an order through a gateway.
type Payment struct {
	ID               int64
	OrderID          int64
	UserID           int64
	Method           PaymentMethod
	Amount           decimal.Decimal
	Currency         string
	TransactionID    string
	GatewayReference *string
	Status           PaymentStatus
	FailureReason    *string
	RefundAmount     *decimal.Decimal
	RefundedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Refunded returns the cumulative refunded amount, zero when none.
func (p *Payment) Refunded() decimal.Decimal {
	if p.RefundAmount == nil {
		return decimal.Zero
	}
	return *p.RefundAmount
}

// Refundable returns the amount that can still be refunded.
func (p *Payment) Refundable() decimal.Decimal {
	return p.Amount.Sub(p.Refunded())
}

// PaymentTransition describes a compare-and-set status change and the fields it sets.
// Nil fields keep their stored value. A non-nil ExpectedRefund also requires the
// stored cumulative refund (zero when unset) to equal it. ClearRefund resets the
// refund amount and time to unset and wins over RefundAmount and RefundedAt.
type PaymentTransition struct {
	From             PaymentStatus
	To               PaymentStatus
	GatewayReference *string
	FailureReason    *string
	RefundAmount     *decimal.Decimal
	RefundedAt       *time.Time
	ExpectedRefund   *decimal.Decimal
	ClearRefund      bool
}

// PaymentRequest is the client input for a new payment.
type PaymentRequest struct {
	OrderNumber string
	Method      PaymentMethod
	Amount      decimal.Decimal
	Currency    string
	Details     map[string]string
}
