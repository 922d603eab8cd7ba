// Package domain holds the checkout session and its status machine.
package domain

import (
	"time"

	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// Checkout session status constants. Statuses only ever move forward;
// cancellation is reachable from any non-terminal status.
const (
	StatusPending                = "pending"
	StatusShippingInfoProvided   = "shipping_info_provided"
	StatusShippingMethodSelected = "shipping_method_selected"
	StatusReadyForPayment        = "ready_for_payment"
	StatusCompleted              = "completed"
	StatusCancelled              = "cancelled"
)

// statusRank orders the forward path of the checkout. Terminal statuses
// are not part of the path.
var statusRank = map[string]int{
	StatusPending:                0,
	StatusShippingInfoProvided:   1,
	StatusShippingMethodSelected: 2,
	StatusReadyForPayment:        3,
	StatusCompleted:              4,
}

// Checkout represents an ongoing checkout session. Items are a snapshot
// of the cart at initiation time.
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

// ShippingInformation is the destination provided by the shopper.
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

// Validate checks the required shipping fields and returns the missing
// field names.
func (s *ShippingInformation) Validate() []string {
	var missing []string
	if s.FullName == "" {
		missing = append(missing, "full_name")
	}
	if s.Street == "" {
		missing = append(missing, "street")
	}
	if s.City == "" {
		missing = append(missing, "city")
	}
	if s.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if s.Country == "" {
		missing = append(missing, "country")
	}
	return missing
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

// IsTerminal reports whether the checkout reached a final status.
func (c *Checkout) IsTerminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusCancelled
}

// AdvanceTo moves the checkout forward to target. Moving to a status at
// or behind the current one keeps the current status, so repeated
// updates never regress. Terminal checkouts cannot advance.
func (c *Checkout) AdvanceTo(target string) error {
	if c.IsTerminal() {
		return apperrors.Conflict("checkout " + c.ID + " is " + c.Status)
	}
	targetRank, ok := statusRank[target]
	if !ok {
		return apperrors.InvalidInput("unknown checkout status: " + target)
	}
	if targetRank > statusRank[c.Status] {
		c.Status = target
	}
	return nil
}

// Cancel moves the checkout to cancelled. Cancelling an already
// cancelled checkout is a no-op; a completed one cannot be cancelled.
func (c *Checkout) Cancel() error {
	if c.Status == StatusCancelled {
		return nil
	}
	if c.Status == StatusCompleted {
		return apperrors.Conflict("checkout " + c.ID + " is already completed")
	}
	c.Status = StatusCancelled
	return nil
}

// RecomputeTotals derives Subtotal and Total from the items and the
// selected shipping method.
func (c *Checkout) RecomputeTotals() {
	subtotal := money.Zero(c.Currency)
	for i := range c.Items {
		line := c.Items[i].UnitPrice.Times(c.Items[i].Quantity)
		if sum, err := subtotal.Add(line); err == nil {
			subtotal = sum
		}
	}
	c.Subtotal = subtotal

	if c.ShippingMethod != nil {
		c.ShippingCost = c.ShippingMethod.Price
	} else {
		c.ShippingCost = money.Zero(c.Currency)
	}

	if total, err := c.Subtotal.Add(c.ShippingCost); err == nil {
		c.Total = total
	}
}

// ValidStatuses returns the set of valid checkout statuses.
func ValidStatuses() []string {
	return []string{
		StatusPending,
		StatusShippingInfoProvided,
		StatusShippingMethodSelected,
		StatusReadyForPayment,
		StatusCompleted,
		StatusCancelled,
	}
}

// IsValidStatus checks whether the given status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
