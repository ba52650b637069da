package repository

import (
	"context"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	// Create stores the order with its items atomically and fills ID and CreatedAt.
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	// UpdateStatus changes status only while the current status equals from.
	// It returns ErrStateConflict otherwise.
	UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus) error
}
