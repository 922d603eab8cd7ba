// Package domain holds the cart aggregate.
package domain

import (
	"time"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// Cart is the shopping cart aggregate. Carts are created lazily on the
// first add and are keyed by their own id, not by user, so anonymous
// shoppers get one too.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	Items     []CartItem `json:"items"`
	Currency  string     `json:"currency"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// CartItem is one line in the cart. UnitPrice is captured server-side
// when the line is added; client-supplied prices are never trusted.
type CartItem struct {
	ID           string      `json:"id"`
	ProductID    string      `json:"product_id"`
	VariantID    string      `json:"variant_id"`
	Title        string      `json:"title"`
	VariantLabel string      `json:"variant_label,omitempty"`
	SKU          string      `json:"sku"`
	UnitPrice    money.Money `json:"unit_price"`
	Quantity     int         `json:"quantity"`
	ImageURL     string      `json:"image_url,omitempty"`
}

// LineTotal returns the item's unit price times its quantity.
func (i *CartItem) LineTotal() money.Money {
	return i.UnitPrice.Times(i.Quantity)
}

// TotalAmount returns the sum of all line totals.
func (c *Cart) TotalAmount() money.Money {
	total := money.Zero(c.Currency)
	for i := range c.Items {
		line := c.Items[i].LineTotal()
		if sum, err := total.Add(line); err == nil {
			total = sum
		}
	}
	return total
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	count := 0
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// FindItemIndex returns the index of the line with the given item id,
// or -1 when no such line exists.
func (c *Cart) FindItemIndex(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// FindLineIndex returns the index of the line holding the given product
// and variant, or -1. Adding the same variant twice merges into one line.
func (c *Cart) FindLineIndex(productID, variantID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// Touch bumps the version and update timestamp after a mutation.
func (c *Cart) Touch(now time.Time) {
	c.Version++
	c.UpdatedAt = now
}
