package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
	pkgAuth "github.com/polkiloo/gophercheckout/internal/pkg/auth"
)

// OrderFacade encapsulates checkout and order operations exposed via HTTP.
type OrderFacade interface {
	Checkout(ctx context.Context, userID int64, cart model.CartSnapshot, addressID int64) (*model.Order, error)
	Order(ctx context.Context, userID int64, number string) (*model.Order, error)
	CancelOrder(ctx context.Context, userID int64, number string) (*model.Order, error)
}

// PaymentFacade provides payment related operations.
type PaymentFacade interface {
	Pay(ctx context.Context, userID int64, req model.PaymentRequest) (*model.Payment, bool, error)
	Payment(ctx context.Context, caller pkgAuth.Principal, transactionID string) (*model.Payment, error)
	Refund(ctx context.Context, caller pkgAuth.Principal, transactionID string, amount decimal.Decimal) (*model.Payment, error)
	HandleCallback(ctx context.Context, method model.PaymentMethod, body []byte) (*model.Payment, error)
}

// HealthChecker reports storage availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckoutFacade aggregates the full set of operations used across handlers.
type CheckoutFacade interface {
	ParseToken(token string) (pkgAuth.Principal, error)
	OrderFacade
	PaymentFacade
	HealthChecker
}
