// Package domain holds the order aggregate and its payment records. An
// order is a frozen copy of a checkout taken at payment time.
package domain

import (
	"time"

	checkoutdomain "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// Order status values. An order starts pending and is confirmed once its
// payment is captured. Shipped and delivered orders can no longer be
// cancelled.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Payment status values.
const (
	PaymentPending    = "pending"
	PaymentAuthorized = "authorized"
	PaymentCaptured   = "captured"
	PaymentFailed     = "failed"
	PaymentRefunded   = "refunded"
)

// Order is the purchase record created from a ready-for-payment checkout.
// CheckoutID is unique: at most one order exists per checkout.
type Order struct {
	ID             string                               `json:"id"`
	CheckoutID     string                               `json:"checkout_id"`
	UserID         string                               `json:"user_id,omitempty"`
	Status         string                               `json:"status"`
	PaymentStatus  string                               `json:"payment_status"`
	Items          []OrderItem                          `json:"items"`
	Subtotal       money.Money                          `json:"subtotal"`
	ShippingCost   money.Money                          `json:"shipping_cost"`
	Total          money.Money                          `json:"total"`
	Currency       string                               `json:"currency"`
	ShippingInfo   *checkoutdomain.ShippingInformation  `json:"shipping_info,omitempty"`
	ShippingMethod *checkoutdomain.ShippingMethod       `json:"shipping_method,omitempty"`
	TrackingNumber string                               `json:"tracking_number,omitempty"`
	CancelReason   string                               `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time                            `json:"created_at"`
	UpdatedAt      time.Time                            `json:"updated_at"`
}

// OrderItem is one purchased line, priced as it was at checkout time.
type OrderItem struct {
	ProductID    string      `json:"product_id"`
	VariantID    string      `json:"variant_id"`
	Title        string      `json:"title"`
	VariantLabel string      `json:"variant_label,omitempty"`
	SKU          string      `json:"sku,omitempty"`
	UnitPrice    money.Money `json:"unit_price"`
	Quantity     int         `json:"quantity"`
}

// Payment is one charge attempt against an order. Failed attempts are kept
// so retries leave a trail.
type Payment struct {
	ID            string      `json:"id"`
	OrderID       string      `json:"order_id"`
	Status        string      `json:"status"`
	Amount        money.Money `json:"amount"`
	MethodID      string      `json:"method_id,omitempty"`
	Reference     string      `json:"reference,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// PaymentMethod is a stored payment instrument. Only the brand and the
// last four digits are persisted, never the full card number.
type PaymentMethod struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Type       string    `json:"type"`
	Brand      string    `json:"brand"`
	Last4      string    `json:"last4"`
	ExpMonth   int       `json:"exp_month"`
	ExpYear    int       `json:"exp_year"`
	HolderName string    `json:"holder_name,omitempty"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsPaid reports whether the order's payment has been captured.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentCaptured
}

// MarkPaid records a captured payment: the order is confirmed and gets a
// tracking number for fulfilment.
func (o *Order) MarkPaid(trackingNumber string) {
	o.Status = StatusConfirmed
	o.PaymentStatus = PaymentCaptured
	o.TrackingNumber = trackingNumber
}

// Cancel moves the order to cancelled. Cancelling an already cancelled
// order is a no-op; shipped and delivered orders cannot be cancelled.
func (o *Order) Cancel(reason string) error {
	switch o.Status {
	case StatusCancelled:
		return nil
	case StatusShipped, StatusDelivered:
		return apperrors.Conflict("order already " + o.Status + ", cannot cancel")
	}
	o.Status = StatusCancelled
	o.CancelReason = reason
	return nil
}

// FromCheckout freezes a checkout into a new order. The caller assigns
// the id and timestamps.
func FromCheckout(c *checkoutdomain.Checkout) *Order {
	items := make([]OrderItem, len(c.Items))
	for i, line := range c.Items {
		items[i] = OrderItem{
			ProductID:    line.ProductID,
			VariantID:    line.VariantID,
			Title:        line.Title,
			VariantLabel: line.VariantLabel,
			SKU:          line.SKU,
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
		}
	}

	return &Order{
		CheckoutID:     c.ID,
		UserID:         c.UserID,
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		Items:          items,
		Subtotal:       c.Subtotal,
		ShippingCost:   c.ShippingCost,
		Total:          c.Total,
		Currency:       c.Currency,
		ShippingInfo:   c.ShippingInfo,
		ShippingMethod: c.ShippingMethod,
	}
}
