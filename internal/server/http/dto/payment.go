package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest describes payment submission payload. Details carries
// method-specific fields such as card_token, wallet_id or phone_number.
type PaymentRequest struct {
	OrderNumber string            `json:"order_number" binding:"required"`
	Method      string            `json:"method" binding:"required"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Details     map[string]string `json:"details"`
}

// RefundRequest describes refund payload.
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PaymentResponse describes a payment returned to the client.
type PaymentResponse struct {
	TransactionID    string    `json:"transaction_id"`
	Method           string    `json:"method"`
	Status           string    `json:"status"`
	Amount           string    `json:"amount"`
	Currency         string    `json:"currency"`
	GatewayReference string    `json:"gateway_reference,omitempty"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	RefundedAmount   string    `json:"refunded_amount,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
