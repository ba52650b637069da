package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

type inventoryRepository struct {
	storage *Storage
}

// Decrement never reads the quantity first: the WHERE clause is the stock check.
func (r *inventoryRepository) Decrement(ctx context.Context, productID, quantity int64) error {
	const query = `UPDATE products
                   SET available = available - $2, version = version + 1, updated_at = NOW()
                   WHERE id = $1 AND available >= $2`
	tag, err := r.storage.pool.Exec(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrInsufficientStock
	}
	return nil
}

func (r *inventoryRepository) Increment(ctx context.Context, productID, quantity int64) error {
	const query = `UPDATE products
                   SET available = available + $2, version = version + 1, updated_at = NOW()
                   WHERE id = $1`
	tag, err := r.storage.pool.Exec(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *inventoryRepository) Get(ctx context.Context, productID int64) (*model.StockRecord, error) {
	const query = `SELECT id, available, version, updated_at FROM products WHERE id=$1`
	var rec model.StockRecord
	err := r.storage.pool.QueryRow(ctx, query, productID).Scan(&rec.ProductID, &rec.Available, &rec.Version, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
