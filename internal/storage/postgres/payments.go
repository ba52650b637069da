package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

type paymentRepository struct {
	storage *Storage
}

const paymentColumns = `id, order_id, user_id, method, amount, currency, transaction_id, gateway_reference,
                        status, failure_reason, refund_amount, refunded_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.UserID, &p.Method, &p.Amount, &p.Currency, &p.TransactionID, &p.GatewayReference,
		&p.Status, &p.FailureReason, &p.RefundAmount, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	const query = `INSERT INTO payments (order_id, user_id, method, amount, currency, transaction_id, status)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)
                   RETURNING id, created_at, updated_at`
	err := r.storage.pool.QueryRow(ctx, query,
		payment.OrderID, payment.UserID, payment.Method, payment.Amount, payment.Currency,
		payment.TransactionID, payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domainErrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	return scanPayment(r.storage.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	return scanPayment(r.storage.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id=$1`, transactionID))
}

func (r *paymentRepository) GetByGatewayReference(ctx context.Context, method model.PaymentMethod, reference string) (*model.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments
                   WHERE method=$1 AND gateway_reference=$2
                   ORDER BY created_at DESC LIMIT 1`
	return scanPayment(r.storage.pool.QueryRow(ctx, query, method, reference))
}

func (r *paymentRepository) FindRecent(ctx context.Context, orderID int64, amount decimal.Decimal, since time.Time) (*model.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments
                   WHERE order_id=$1 AND amount=$2 AND created_at >= $3
                     AND status IN ('PENDING', 'PROCESSING', 'COMPLETED')
                   ORDER BY created_at DESC LIMIT 1`
	return scanPayment(r.storage.pool.QueryRow(ctx, query, orderID, amount, since))
}

func (r *paymentRepository) FindActive(ctx context.Context, orderID int64) (*model.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments
                   WHERE order_id=$1 AND status IN ('PENDING', 'PROCESSING')`
	return scanPayment(r.storage.pool.QueryRow(ctx, query, orderID))
}

// Transition is the single write path for payment status; the WHERE status clause makes it a compare-and-set.
func (r *paymentRepository) Transition(ctx context.Context, paymentID int64, t model.PaymentTransition) (*model.Payment, error) {
	const query = `UPDATE payments SET
                       status = $3,
                       gateway_reference = COALESCE($4, gateway_reference),
                       failure_reason = COALESCE($5, failure_reason),
                       refund_amount = CASE WHEN $9::boolean THEN NULL ELSE COALESCE($6, refund_amount) END,
                       refunded_at = CASE WHEN $9::boolean THEN NULL ELSE COALESCE($7, refunded_at) END,
                       updated_at = NOW()
                   WHERE id=$1 AND status=$2
                     AND ($8::numeric IS NULL OR COALESCE(refund_amount, 0) = $8)
                   RETURNING ` + paymentColumns
	p, err := scanPayment(r.storage.pool.QueryRow(ctx, query,
		paymentID, t.From, t.To, t.GatewayReference, t.FailureReason, t.RefundAmount, t.RefundedAt, t.ExpectedRefund, t.ClearRefund,
	))
	if errors.Is(err, domainErrors.ErrNotFound) {
		return nil, r.storage.conflictOrMissing(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE id=$1)`, paymentID)
	}
	return p, err
}

func (r *paymentRepository) ListProcessing(ctx context.Context, createdBefore time.Time, limit int) ([]model.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments
                   WHERE status='PROCESSING' AND created_at <= $1
                   ORDER BY created_at
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
