package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a domain event emitted on payment terminal transitions.
type EventType string

const (
	EventOrderPaid          EventType = "order-paid"
	EventOrderPaymentFailed EventType = "order-payment-failed"
	EventPaymentRefunded    EventType = "payment-refunded"
)

// PaymentEvent is published after a payment reaches a terminal state or is refunded.
type PaymentEvent struct {
	Type          EventType       `json:"type"`
	OrderID       int64           `json:"order_id"`
	PaymentID     int64           `json:"payment_id"`
	TransactionID string          `json:"transaction_id"`
	Method        PaymentMethod   `json:"method"`
	Status        PaymentStatus   `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewPaymentEvent builds the event matching the payment's current status.
// ok is false for statuses that do not emit events.
func NewPaymentEvent(p *Payment, at time.Time) (PaymentEvent, bool) {
	evt := PaymentEvent{
		OrderID:       p.OrderID,
		PaymentID:     p.ID,
		TransactionID: p.TransactionID,
		Method:        p.Method,
		Status:        p.Status,
		Amount:        p.Amount,
		Currency:      p.Currency,
		OccurredAt:    at,
	}
	if p.FailureReason != nil {
		evt.Reason = *p.FailureReason
	}
	switch p.Status {
	case PaymentStatusCompleted:
		evt.Type = EventOrderPaid
	case PaymentStatusFailed, PaymentStatusTimeout, PaymentStatusCancelled:
		evt.Type = EventOrderPaymentFailed
	case PaymentStatusRefunded:
		evt.Type = EventPaymentRefunded
		if p.RefundAmount != nil {
			evt.Amount = *p.RefundAmount
		}
	default:
		return PaymentEvent{}, false
	}
	return evt, true
}
