// Package postgres implements the order repositories on PostgreSQL.
// Order lines, shipping info and shipping method are frozen into JSON
// columns at creation time.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	checkoutdomain "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/database"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
)

// OrderRepository implements repository.OrderRepository.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, checkout_id, user_id, status, payment_status, items,
		subtotal_amount, shipping_amount, total_amount, currency,
		shipping_info, shipping_method, tracking_number, cancel_reason,
		created_at, updated_at`

// Create inserts a new order. A second order for the same checkout hits
// the unique constraint on checkout_id and returns ErrAlreadyExists.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	itemsJSON, shippingJSON, methodJSON, err := marshalOrderFields(o)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			id, checkout_id, user_id, status, payment_status, items,
			subtotal_amount, shipping_amount, total_amount, currency,
			shipping_info, shipping_method, tracking_number, cancel_reason,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16
		)`

	_, err = r.pool.Exec(ctx, query,
		o.ID,
		o.CheckoutID,
		nullableString(o.UserID),
		o.Status,
		o.PaymentStatus,
		itemsJSON,
		o.Subtotal.Amount,
		o.ShippingCost.Amount,
		o.Total.Amount,
		o.Currency,
		shippingJSON,
		methodJSON,
		nullableString(o.TrackingNumber),
		nullableString(o.CancelReason),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "checkout_id", o.CheckoutID)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	return r.scanOrder(r.pool.QueryRow(ctx, query, id))
}

// GetByCheckoutID retrieves the order created from a checkout, if any.
func (r *OrderRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE checkout_id = $1`, orderColumns)
	return r.scanOrder(r.pool.QueryRow(ctx, query, checkoutID))
}

// ListByUser retrieves a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, orderColumns)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	return orders, rows.Err()
}

// Update modifies an existing order.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	itemsJSON, shippingJSON, methodJSON, err := marshalOrderFields(o)
	if err != nil {
		return err
	}

	o.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, items = $3,
			subtotal_amount = $4, shipping_amount = $5, total_amount = $6,
			shipping_info = $7, shipping_method = $8,
			tracking_number = $9, cancel_reason = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.pool.Exec(ctx, query,
		o.Status,
		o.PaymentStatus,
		itemsJSON,
		o.Subtotal.Amount,
		o.ShippingCost.Amount,
		o.Total.Amount,
		shippingJSON,
		methodJSON,
		nullableString(o.TrackingNumber),
		nullableString(o.CancelReason),
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", o.ID)
	}

	return nil
}

// scanOrder reads one order row from either a pgx.Row or pgx.Rows.
func (r *OrderRepository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o              domain.Order
		userID         *string
		trackingNumber *string
		cancelReason   *string
		itemsJSON      []byte
		shippingJSON   []byte
		methodJSON     []byte
		subtotalAmount float64
		shippingAmount float64
		totalAmount    float64
	)

	err := row.Scan(
		&o.ID,
		&o.CheckoutID,
		&userID,
		&o.Status,
		&o.PaymentStatus,
		&itemsJSON,
		&subtotalAmount,
		&shippingAmount,
		&totalAmount,
		&o.Currency,
		&shippingJSON,
		&methodJSON,
		&trackingNumber,
		&cancelReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Subtotal.Amount = subtotalAmount
	o.Subtotal.Currency = o.Currency
	o.ShippingCost.Amount = shippingAmount
	o.ShippingCost.Currency = o.Currency
	o.Total.Amount = totalAmount
	o.Total.Currency = o.Currency

	if userID != nil {
		o.UserID = *userID
	}
	if trackingNumber != nil {
		o.TrackingNumber = *trackingNumber
	}
	if cancelReason != nil {
		o.CancelReason = *cancelReason
	}

	if itemsJSON != nil {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}

	if shippingJSON != nil && string(shippingJSON) != "null" {
		var info checkoutdomain.ShippingInformation
		if err := json.Unmarshal(shippingJSON, &info); err != nil {
			return nil, fmt.Errorf("unmarshal shipping info: %w", err)
		}
		o.ShippingInfo = &info
	}

	if methodJSON != nil && string(methodJSON) != "null" {
		var method checkoutdomain.ShippingMethod
		if err := json.Unmarshal(methodJSON, &method); err != nil {
			return nil, fmt.Errorf("unmarshal shipping method: %w", err)
		}
		o.ShippingMethod = &method
	}

	return &o, nil
}

func marshalOrderFields(o *domain.Order) (items, shipping, method []byte, err error) {
	items, err = json.Marshal(o.Items)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal order items: %w", err)
	}
	shipping, err = json.Marshal(o.ShippingInfo)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal shipping info: %w", err)
	}
	method, err = json.Marshal(o.ShippingMethod)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal shipping method: %w", err)
	}
	return items, shipping, method, nil
}

// nullableString returns nil for the empty string.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
