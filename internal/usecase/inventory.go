package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/domain/repository"
)

// InventoryLedger reserves and releases product stock. Reservations decrement
// stock eagerly, so Commit has nothing left to do.
type InventoryLedger struct {
	stock  repository.InventoryRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewInventoryLedger constructs InventoryLedger.
func NewInventoryLedger(stock repository.InventoryRepository, logger *slog.Logger) *InventoryLedger {
	return &InventoryLedger{stock: stock, logger: logger, now: time.Now}
}

// Reserve atomically takes quantity units of the product.
// ErrInsufficientStock is final and never retried.
func (l *InventoryLedger) Reserve(ctx context.Context, productID, quantity int64) (model.Reservation, error) {
	if quantity <= 0 {
		return model.Reservation{}, domainErrors.NewValidationError("quantity", "must be positive")
	}
	if err := l.stock.Decrement(ctx, productID, quantity); err != nil {
		return model.Reservation{}, fmt.Errorf("reserve product %d: %w", productID, err)
	}
	return model.Reservation{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: l.now(),
	}, nil
}

// Release returns the reserved units to stock.
func (l *InventoryLedger) Release(ctx context.Context, r model.Reservation) error {
	if err := l.stock.Increment(ctx, r.ProductID, r.Quantity); err != nil {
		return fmt.Errorf("release reservation %s: %w", r.ID, err)
	}
	return nil
}

// ReleaseAll releases every reservation and logs the ones that fail.
// It runs detached from ctx cancellation so a dropped request cannot leak stock.
func (l *InventoryLedger) ReleaseAll(ctx context.Context, reservations []model.Reservation) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range reservations {
		if err := l.Release(ctx, r); err != nil {
			l.logger.Error("failed to release reservation",
				slog.String("reservation", r.ID),
				slog.Int64("product_id", r.ProductID),
				slog.Int64("quantity", r.Quantity),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Commit finalises a reservation. Stock was already decremented by Reserve.
func (l *InventoryLedger) Commit(context.Context, model.Reservation) error {
	return nil
}

// Stock returns the current stock record for the product.
func (l *InventoryLedger) Stock(ctx context.Context, productID int64) (*model.StockRecord, error) {
	return l.stock.Get(ctx, productID)
}
