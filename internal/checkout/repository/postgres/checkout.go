package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/database"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
)

// CheckoutRepository implements repository.CheckoutRepository using
// PostgreSQL. Items, shipping info and shipping method are stored as
// JSON columns.
type CheckoutRepository struct {
	pool database.DBTX
}

// NewCheckoutRepository creates a PostgreSQL-backed checkout repository.
func NewCheckoutRepository(pool database.DBTX) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

const checkoutColumns = `id, cart_id, user_id, status, items,
		subtotal_amount, shipping_amount, total_amount, currency,
		shipping_info, shipping_method, order_id, created_at, updated_at`

// Create inserts a new checkout session.
func (r *CheckoutRepository) Create(ctx context.Context, c *domain.Checkout) error {
	itemsJSON, shippingJSON, methodJSON, err := marshalFields(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkout_sessions (
			id, cart_id, user_id, status, items,
			subtotal_amount, shipping_amount, total_amount, currency,
			shipping_info, shipping_method, order_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14
		)`

	_, err = r.pool.Exec(ctx, query,
		c.ID,
		c.CartID,
		nullableString(c.UserID),
		c.Status,
		itemsJSON,
		c.Subtotal.Amount,
		c.ShippingCost.Amount,
		c.Total.Amount,
		c.Currency,
		shippingJSON,
		methodJSON,
		nullableString(c.OrderID),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}

	return nil
}

// GetByID retrieves a checkout session by its id.
func (r *CheckoutRepository) GetByID(ctx context.Context, id string) (*domain.Checkout, error) {
	query := fmt.Sprintf(`SELECT %s FROM checkout_sessions WHERE id = $1`, checkoutColumns)
	return r.scanCheckout(ctx, query, id)
}

// GetActiveByCartID retrieves the newest non-terminal checkout for a cart.
func (r *CheckoutRepository) GetActiveByCartID(ctx context.Context, cartID string) (*domain.Checkout, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM checkout_sessions
		WHERE cart_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC
		LIMIT 1`, checkoutColumns)
	return r.scanCheckout(ctx, query, cartID)
}

// Update modifies an existing checkout session.
func (r *CheckoutRepository) Update(ctx context.Context, c *domain.Checkout) error {
	itemsJSON, shippingJSON, methodJSON, err := marshalFields(c)
	if err != nil {
		return err
	}

	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE checkout_sessions
		SET status = $1, items = $2,
			subtotal_amount = $3, shipping_amount = $4, total_amount = $5,
			shipping_info = $6, shipping_method = $7, order_id = $8,
			updated_at = $9
		WHERE id = $10`

	ct, err := r.pool.Exec(ctx, query,
		c.Status,
		itemsJSON,
		c.Subtotal.Amount,
		c.ShippingCost.Amount,
		c.Total.Amount,
		shippingJSON,
		methodJSON,
		nullableString(c.OrderID),
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("checkout", c.ID)
	}

	return nil
}

// scanCheckout executes a query expected to return one checkout row.
func (r *CheckoutRepository) scanCheckout(ctx context.Context, query string, args ...any) (*domain.Checkout, error) {
	var (
		c              domain.Checkout
		userID         *string
		orderID        *string
		itemsJSON      []byte
		shippingJSON   []byte
		methodJSON     []byte
		subtotalAmount float64
		shippingAmount float64
		totalAmount    float64
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&c.ID,
		&c.CartID,
		&userID,
		&c.Status,
		&itemsJSON,
		&subtotalAmount,
		&shippingAmount,
		&totalAmount,
		&c.Currency,
		&shippingJSON,
		&methodJSON,
		&orderID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan checkout session: %w", err)
	}

	c.Subtotal.Amount = subtotalAmount
	c.Subtotal.Currency = c.Currency
	c.ShippingCost.Amount = shippingAmount
	c.ShippingCost.Currency = c.Currency
	c.Total.Amount = totalAmount
	c.Total.Currency = c.Currency

	if userID != nil {
		c.UserID = *userID
	}
	if orderID != nil {
		c.OrderID = *orderID
	}

	if itemsJSON != nil {
		if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	if c.Items == nil {
		c.Items = []domain.CheckoutItem{}
	}

	if shippingJSON != nil && string(shippingJSON) != "null" {
		var info domain.ShippingInformation
		if err := json.Unmarshal(shippingJSON, &info); err != nil {
			return nil, fmt.Errorf("unmarshal shipping info: %w", err)
		}
		c.ShippingInfo = &info
	}

	if methodJSON != nil && string(methodJSON) != "null" {
		var method domain.ShippingMethod
		if err := json.Unmarshal(methodJSON, &method); err != nil {
			return nil, fmt.Errorf("unmarshal shipping method: %w", err)
		}
		c.ShippingMethod = &method
	}

	return &c, nil
}

func marshalFields(c *domain.Checkout) (items, shipping, method []byte, err error) {
	items, err = json.Marshal(c.Items)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal items: %w", err)
	}
	shipping, err = json.Marshal(c.ShippingInfo)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal shipping info: %w", err)
	}
	method, err = json.Marshal(c.ShippingMethod)
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
