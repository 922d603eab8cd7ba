package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// Sentinel errors for checkout flow steps attempted out of order.
var (
	ErrNoCheckout = errors.New("no checkout in session")
	ErrNoOrder    = errors.New("no order in session")
)

// Checkout is the client-side view of a checkout session.
type Checkout struct {
	ID             string               `json:"id"`
	CartID         string               `json:"cart_id"`
	UserID         string               `json:"user_id,omitempty"`
	Status         string               `json:"status"`
	Items          []CheckoutItem       `json:"items"`
	Subtotal       money.Money          `json:"subtotal"`
	ShippingCost   money.Money          `json:"shipping_cost"`
	Total          money.Money          `json:"total"`
	Currency       string               `json:"currency"`
	ShippingInfo   *ShippingInformation `json:"shipping_info,omitempty"`
	ShippingMethod *ShippingMethod      `json:"shipping_method,omitempty"`
	OrderID        string               `json:"order_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// CheckoutItem is one line snapshotted from the cart.
type CheckoutItem struct {
	ProductID    string      `json:"product_id"`
	VariantID    string      `json:"variant_id"`
	Title        string      `json:"title"`
	VariantLabel string      `json:"variant_label,omitempty"`
	SKU          string      `json:"sku"`
	UnitPrice    money.Money `json:"unit_price"`
	Quantity     int         `json:"quantity"`
}

// ShippingInformation is the destination for an order.
type ShippingInformation struct {
	FullName    string `json:"full_name"`
	Street      string `json:"street"`
	Apartment   string `json:"apartment,omitempty"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// ShippingMethod is one way of delivering the order.
type ShippingMethod struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Description           string      `json:"description,omitempty"`
	Price                 money.Money `json:"price"`
	EstimatedDeliveryDays int         `json:"estimated_delivery_days"`
	Carrier               string      `json:"carrier,omitempty"`
}

// Order is the client-side view of a purchase record.
type Order struct {
	ID             string               `json:"id"`
	CheckoutID     string               `json:"checkout_id"`
	UserID         string               `json:"user_id,omitempty"`
	Status         string               `json:"status"`
	PaymentStatus  string               `json:"payment_status"`
	Items          []OrderItem          `json:"items"`
	Subtotal       money.Money          `json:"subtotal"`
	ShippingCost   money.Money          `json:"shipping_cost"`
	Total          money.Money          `json:"total"`
	Currency       string               `json:"currency"`
	ShippingInfo   *ShippingInformation `json:"shipping_info,omitempty"`
	ShippingMethod *ShippingMethod      `json:"shipping_method,omitempty"`
	TrackingNumber string               `json:"tracking_number,omitempty"`
	CancelReason   string               `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// OrderItem is one purchased line.
type OrderItem struct {
	ProductID    string      `json:"product_id"`
	VariantID    string      `json:"variant_id"`
	Title        string      `json:"title"`
	VariantLabel string      `json:"variant_label,omitempty"`
	SKU          string      `json:"sku,omitempty"`
	UnitPrice    money.Money `json:"unit_price"`
	Quantity     int         `json:"quantity"`
}

// Payment is one charge attempt against an order.
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

// PaymentDetails carries the charge parameters for ProcessPayment. The
// amount must match the order total exactly.
type PaymentDetails struct {
	Amount          float64
	Currency        string
	PaymentMethodID string
	CardNumber      string
	CardHolder      string
}

// CheckoutFlow drives a checkout from initiation through payment for
// one shopper session. It shares the session store with a CartSession
// and applies the same one-mutation-at-a-time guard.
type CheckoutFlow struct {
	client  *Client
	session SessionStore
	cart    *CartSession

	inflight sync.Mutex

	mu       sync.RWMutex
	checkout *Checkout
}

// NewCheckoutFlow creates a CheckoutFlow sharing the cart session's
// store.
func NewCheckoutFlow(c *Client, store SessionStore, cart *CartSession) *CheckoutFlow {
	return &CheckoutFlow{client: c, session: store, cart: cart}
}

// Checkout returns the local snapshot, or nil when no checkout has been
// initiated.
func (f *CheckoutFlow) Checkout() *Checkout {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.checkout
}

// CheckoutID returns the checkout id stored in the session.
func (f *CheckoutFlow) CheckoutID() (string, bool) {
	return f.session.Get(SessionKeyCheckoutID)
}

// OrderID returns the order id stored in the session. It survives
// CompleteCheckout so a confirmation page can still load the order.
func (f *CheckoutFlow) OrderID() (string, bool) {
	return f.session.Get(SessionKeyOrderID)
}

func (f *CheckoutFlow) replace(checkout *Checkout) {
	f.mu.Lock()
	f.checkout = checkout
	f.mu.Unlock()
}

type initiateCheckoutRequest struct {
	CartID string `json:"cart_id"`
}

type selectShippingMethodRequest struct {
	ShippingMethodID string `json:"shipping_method_id"`
}

type createOrderRequest struct {
	CheckoutID string `json:"checkout_id"`
}

type processPaymentRequest struct {
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	PaymentMethodID string  `json:"payment_method_id,omitempty"`
	CardNumber      string  `json:"card_number,omitempty"`
	CardHolder      string  `json:"card_holder,omitempty"`
}

// InitializeCheckout starts a checkout from the cart stored in the
// session and stores the new checkout id.
func (f *CheckoutFlow) InitializeCheckout(ctx context.Context) (*Checkout, error) {
	if !f.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer f.inflight.Unlock()

	cartID, ok := f.session.Get(SessionKeyCartID)
	if !ok {
		return nil, &apperrors.AppError{
			Code:    "INVALID_CART",
			Message: "no cart in session to check out",
			Status:  http.StatusBadRequest,
			Err:     apperrors.ErrInvalidInput,
		}
	}

	var checkout Checkout
	err := f.client.do(ctx, http.MethodPost, "/api/v1/checkout", initiateCheckoutRequest{CartID: cartID}, &checkout)
	if err != nil {
		return nil, err
	}

	f.session.Set(SessionKeyCheckoutID, checkout.ID)
	f.replace(&checkout)
	return &checkout, nil
}

// UpdateShipping sets the shipping destination.
func (f *CheckoutFlow) UpdateShipping(ctx context.Context, info ShippingInformation) (*Checkout, error) {
	if !f.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer f.inflight.Unlock()

	checkoutID, ok := f.session.Get(SessionKeyCheckoutID)
	if !ok {
		return nil, ErrNoCheckout
	}

	var checkout Checkout
	if err := f.client.do(ctx, http.MethodPut, "/api/v1/checkout/"+checkoutID+"/shipping", info, &checkout); err != nil {
		return nil, err
	}

	f.replace(&checkout)
	return &checkout, nil
}

// ShippingMethods lists the delivery methods offered for the checkout.
func (f *CheckoutFlow) ShippingMethods(ctx context.Context) ([]ShippingMethod, error) {
	checkoutID, ok := f.session.Get(SessionKeyCheckoutID)
	if !ok {
		return nil, ErrNoCheckout
	}

	var methods []ShippingMethod
	if err := f.client.do(ctx, http.MethodGet, "/api/v1/checkout/"+checkoutID+"/shipping-methods", nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// SelectShippingMethod picks a delivery method; the server recomputes
// the totals.
func (f *CheckoutFlow) SelectShippingMethod(ctx context.Context, methodID string) (*Checkout, error) {
	if !f.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer f.inflight.Unlock()

	checkoutID, ok := f.session.Get(SessionKeyCheckoutID)
	if !ok {
		return nil, ErrNoCheckout
	}

	var checkout Checkout
	err := f.client.do(ctx, http.MethodPut, "/api/v1/checkout/"+checkoutID+"/shipping-method", selectShippingMethodRequest{
		ShippingMethodID: methodID,
	}, &checkout)
	if err != nil {
		return nil, err
	}

	f.replace(&checkout)
	return &checkout, nil
}

// Confirm marks the checkout ready for payment.
func (f *CheckoutFlow) Confirm(ctx context.Context) (*Checkout, error) {
	if !f.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer f.inflight.Unlock()

	checkoutID, ok := f.session.Get(SessionKeyCheckoutID)
	if !ok {
		return nil, ErrNoCheckout
	}

	var checkout Checkout
	if err := f.client.do(ctx, http.MethodPut, "/api/v1/checkout/"+checkoutID+"/confirm", nil, &checkout); err != nil {
		return nil, err
	}

	f.replace(&checkout)
	return &checkout, nil
}

// CancelCheckout cancels the checkout and drops its id from the
// session. The cart is untouched, so shopping can resume.
func (f *CheckoutFlow) CancelCheckout(ctx context.Context) (*Checkout, error) {
	if !f.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer f.inflight.Unlock()

	checkoutID, ok := f.session.Get(SessionKeyCheckoutID)
	if !ok {
		return nil, ErrNoCheckout
	}

	var checkout Checkout
	if err := f.client.do(ctx, http.MethodPost, "/api/v1/checkout/"+checkoutID+"/cancel", nil, &checkout); err != nil {
		return nil, err
	}

	f.session.Delete(SessionKeyCheckoutID)
	f.replace(nil)
	return &checkout, nil
}

// CreateOrder creates the order for the ready-for-payment checkout and
// stores the order id. Repeating the call returns the same order.
func (f *CheckoutFlow) CreateOrder(ctx context.Context) (*Order, error) {
	if !f.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer f.inflight.Unlock()

	checkoutID, ok := f.session.Get(SessionKeyCheckoutID)
	if !ok {
		return nil, ErrNoCheckout
	}

	var order Order
	if err := f.client.do(ctx, http.MethodPost, "/api/v1/orders", createOrderRequest{CheckoutID: checkoutID}, &order); err != nil {
		return nil, err
	}

	f.session.Set(SessionKeyOrderID, order.ID)
	return &order, nil
}

// ProcessPayment charges the order stored in the session. A declined
// charge can be retried with different details.
func (f *CheckoutFlow) ProcessPayment(ctx context.Context, details PaymentDetails) (*Payment, error) {
	if !f.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer f.inflight.Unlock()

	orderID, ok := f.session.Get(SessionKeyOrderID)
	if !ok {
		return nil, ErrNoOrder
	}

	var payment Payment
	err := f.client.do(ctx, http.MethodPost, "/api/v1/orders/"+orderID+"/payments", processPaymentRequest{
		Amount:          details.Amount,
		Currency:        details.Currency,
		PaymentMethodID: details.PaymentMethodID,
		CardNumber:      details.CardNumber,
		CardHolder:      details.CardHolder,
	}, &payment)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

// GetOrder loads the order stored in the session, for the confirmation
// page after the flow completed.
func (f *CheckoutFlow) GetOrder(ctx context.Context) (*Order, error) {
	orderID, ok := f.session.Get(SessionKeyOrderID)
	if !ok {
		return nil, ErrNoOrder
	}

	var order Order
	if err := f.client.do(ctx, http.MethodGet, "/api/v1/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CompleteCheckout ends the flow after a successful payment: the cart
// and checkout ids are dropped along with the local snapshots, while
// the order id stays so a confirmation page can still load the order.
// No server call is made; the server completed the checkout when the
// payment was captured.
func (f *CheckoutFlow) CompleteCheckout() error {
	if !f.inflight.TryLock() {
		return ErrOperationInFlight
	}
	defer f.inflight.Unlock()

	if err := f.cart.ClearCart(); err != nil {
		return err
	}
	f.session.Delete(SessionKeyCheckoutID)
	f.replace(nil)
	return nil
}
