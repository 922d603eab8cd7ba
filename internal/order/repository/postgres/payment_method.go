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

// PaymentMethodRepository implements repository.PaymentMethodRepository.
type PaymentMethodRepository struct {
	pool database.DBTX
}

// NewPaymentMethodRepository creates a PostgreSQL-backed payment method
// repository.
func NewPaymentMethodRepository(pool database.DBTX) *PaymentMethodRepository {
	return &PaymentMethodRepository{pool: pool}
}

const paymentMethodColumns = `id, user_id, type, brand, last4,
		exp_month, exp_year, holder_name, is_default, created_at`

// Create stores a payment instrument. Marking a method as default clears
// the flag on the user's other methods first.
func (r *PaymentMethodRepository) Create(ctx context.Context, m *domain.PaymentMethod) error {
	if m.IsDefault {
		clear := `UPDATE payment_methods SET is_default = FALSE WHERE user_id = $1`
		if _, err := r.pool.Exec(ctx, clear, m.UserID); err != nil {
			return fmt.Errorf("clear default payment method: %w", err)
		}
	}

	query := `
		INSERT INTO payment_methods (
			id, user_id, type, brand, last4,
			exp_month, exp_year, holder_name, is_default, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`

	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.UserID,
		m.Type,
		m.Brand,
		m.Last4,
		m.ExpMonth,
		m.ExpYear,
		nullableString(m.HolderName),
		m.IsDefault,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment method: %w", err)
	}

	return nil
}

// GetByID retrieves a payment method by its id.
func (r *PaymentMethodRepository) GetByID(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_methods WHERE id = $1`, paymentMethodColumns)

	var (
		m          domain.PaymentMethod
		holderName *string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.UserID,
		&m.Type,
		&m.Brand,
		&m.Last4,
		&m.ExpMonth,
		&m.ExpYear,
		&holderName,
		&m.IsDefault,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment method: %w", err)
	}

	if holderName != nil {
		m.HolderName = *holderName
	}

	return &m, nil
}

// ListByUser retrieves a user's stored methods, default first.
func (r *PaymentMethodRepository) ListByUser(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`, paymentMethodColumns)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	methods := []domain.PaymentMethod{}
	for rows.Next() {
		var (
			m          domain.PaymentMethod
			holderName *string
		)
		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.Type,
			&m.Brand,
			&m.Last4,
			&m.ExpMonth,
			&m.ExpYear,
			&holderName,
			&m.IsDefault,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		if holderName != nil {
			m.HolderName = *holderName
		}
		methods = append(methods, m)
	}

	return methods, rows.Err()
}

// Delete removes a payment method.
func (r *PaymentMethodRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM payment_methods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("payment method", id)
	}

	return nil
}
