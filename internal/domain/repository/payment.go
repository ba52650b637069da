package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

// PaymentRepository describes persistence operations with payments.
type PaymentRepository interface {
	// Create inserts a new payment. ErrAlreadyExists signals another active payment for the order.
	Create(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)
	GetByGatewayReference(ctx context.Context, method model.PaymentMethod, reference string) (*model.Payment, error)
	// FindRecent returns the newest PENDING, PROCESSING or COMPLETED payment for the order
	// with the given amount created at or after since.
	FindRecent(ctx context.Context, orderID int64, amount decimal.Decimal, since time.Time) (*model.Payment, error)
	// FindActive returns the PENDING or PROCESSING payment for the order.
	FindActive(ctx context.Context, orderID int64) (*model.Payment, error)
	// Transition applies the change only while the stored status equals t.From.
	// It returns ErrStateConflict otherwise.
	Transition(ctx context.Context, paymentID int64, t model.PaymentTransition) (*model.Payment, error)
	// ListProcessing returns PROCESSING payments created at or before createdBefore, oldest first.
	ListProcessing(ctx context.Context, createdBefore time.Time, limit int) ([]model.Payment, error)
}
