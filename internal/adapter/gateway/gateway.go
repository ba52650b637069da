package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

// Request is one dispatch attempt. TransactionID is the idempotency key for the attempt.
type Request struct {
	TransactionID string
	OrderNumber   string
	Amount        decimal.Decimal
	Currency      string
	Details       map[string]string
}

// Result is the provider outcome normalised to payment statuses.
// Status is COMPLETED, FAILED or PROCESSING.
type Result struct {
	Reference string
	Status    model.PaymentStatus
	Message   string
}

// Adapter executes payments against a single external provider.
type Adapter interface {
	Method() model.PaymentMethod
	// Validate runs before any network call and returns *domainErrors.ValidationError for bad input.
	Validate(req model.PaymentRequest) error
	Execute(ctx context.Context, req Request) (Result, error)
}

// StatusChecker is implemented by asynchronous adapters whose outcome is polled later.
type StatusChecker interface {
	CheckStatus(ctx context.Context, reference string) (Result, error)
}

// RefundRequest asks the provider to return part or all of a settled payment.
type RefundRequest struct {
	RefundID      string
	TransactionID string
	Reference     string
	Amount        decimal.Decimal
	Currency      string
}

// Refunder is implemented by adapters that can reverse settled payments.
type Refunder interface {
	Refund(ctx context.Context, req RefundRequest) (Result, error)
}

// CallbackParser is implemented by adapters that receive provider callbacks.
type CallbackParser interface {
	ParseCallback(body []byte) (Result, error)
}

// IsAsync reports whether the adapter settles outside the dispatch call.
func IsAsync(a Adapter) bool {
	_, ok := a.(StatusChecker)
	return ok
}
