package repository

import (
	"context"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

// InventoryRepository mutates per-product stock with single atomic conditional statements.
type InventoryRepository interface {
	// Decrement subtracts quantity only where available >= quantity.
	// It returns ErrInsufficientStock when no row was affected.
	Decrement(ctx context.Context, productID, quantity int64) error
	// Increment returns quantity to the product.
	Increment(ctx context.Context, productID, quantity int64) error
	Get(ctx context.Context, productID int64) (*model.StockRecord, error)
}
