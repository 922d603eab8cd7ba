package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/database"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
)

// PaymentRepository implements repository.PaymentRepository.
type PaymentRepository struct {
	pool database.DBTX
}

// NewPaymentRepository creates a PostgreSQL-backed payment repository.
func NewPaymentRepository(pool database.DBTX) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, order_id, status, amount, currency,
		method_id, reference, failure_reason, created_at`

// Create inserts a charge attempt.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, order_id, status, amount, currency,
			method_id, reference, failure_reason, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9
		)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.OrderID,
		p.Status,
		p.Amount.Amount,
		p.Amount.Currency,
		nullableString(p.MethodID),
		nullableString(p.Reference),
		nullableString(p.FailureReason),
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// Update modifies an existing payment, used by the refund flow.
func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, reference = $2, failure_reason = $3
		WHERE id = $4`

	ct, err := r.pool.Exec(ctx, query,
		p.Status,
		nullableString(p.Reference),
		nullableString(p.FailureReason),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("payment", p.ID)
	}

	return nil
}

// ListByOrderID retrieves an order's charge attempts, oldest first.
func (r *PaymentRepository) ListByOrderID(ctx context.Context, orderID string) ([]domain.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at ASC`, paymentColumns)

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}

	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p             domain.Payment
		methodID      *string
		reference     *string
		failureReason *string
	)

	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Status,
		&p.Amount.Amount,
		&p.Amount.Currency,
		&methodID,
		&reference,
		&failureReason,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	if methodID != nil {
		p.MethodID = *methodID
	}
	if reference != nil {
		p.Reference = *reference
	}
	if failureReason != nil {
		p.FailureReason = *failureReason
	}

	return &p, nil
}
