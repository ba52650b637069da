package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

type orderRepository struct {
	storage *Storage
}

const orderColumns = `id, number, user_id, address_id, currency, subtotal, tax, shipping, total, status, created_at, delivered_at`

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	const insertOrder = `INSERT INTO orders (number, user_id, address_id, currency, subtotal, tax, shipping, total, status)
                         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
                         RETURNING id, created_at`
	const insertItem = `INSERT INTO order_items (order_id, position, product_id, quantity, unit_price)
                        VALUES ($1, $2, $3, $4, $5)`

	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertOrder,
			order.Number, order.UserID, order.AddressID, order.Currency,
			order.Totals.Subtotal, order.Totals.Tax, order.Totals.Shipping, order.Totals.Total,
			order.Status,
		).Scan(&order.ID, &order.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return domainErrors.ErrAlreadyExists
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range order.Items {
			if _, err := tx.Exec(ctx, insertItem, order.ID, i, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE number=$1`, number)
}

func (r *orderRepository) get(ctx context.Context, query string, arg any) (*model.Order, error) {
	var o model.Order
	err := r.storage.pool.QueryRow(ctx, query, arg).Scan(
		&o.ID, &o.Number, &o.UserID, &o.AddressID, &o.Currency,
		&o.Totals.Subtotal, &o.Totals.Tax, &o.Totals.Shipping, &o.Totals.Total,
		&o.Status, &o.CreatedAt, &o.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	items, err := r.listItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *orderRepository) listItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	const query = `SELECT product_id, quantity, unit_price FROM order_items WHERE order_id=$1 ORDER BY position`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus) error {
	const query = `UPDATE orders SET status=$3, updated_at=NOW(),
                       delivered_at = CASE WHEN $3 = 'DELIVERED' THEN NOW() ELSE delivered_at END
                   WHERE id=$1 AND status=$2`
	tag, err := r.storage.pool.Exec(ctx, query, orderID, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.storage.conflictOrMissing(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, orderID)
	}
	return nil
}

// conflictOrMissing tells a failed compare-and-set on an existing row apart from a missing row.
func (s *Storage) conflictOrMissing(ctx context.Context, existsQuery string, id int64) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, existsQuery, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domainErrors.ErrNotFound
	}
	return domainErrors.ErrStateConflict
}
