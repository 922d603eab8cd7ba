package domain

import (
	"time"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// Product is a catalog entry. Purchasable stock and pricing live on its
// variants; the product itself carries the presentation data and the
// configurable options shoppers pick from.
type Product struct {
	ID               string         `json:"id"`
	Slug             string         `json:"slug"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Brand            string         `json:"brand,omitempty"`
	Condition        string         `json:"condition,omitempty"`
	Currency         string         `json:"currency"`
	Images           []Image        `json:"images,omitempty"`
	Options          []ConfigOption `json:"options,omitempty"`
	Variants         []Variant      `json:"variants"`
	Installments     *Installments  `json:"installments,omitempty"`
	FreeShippingFrom *money.Money   `json:"free_shipping_from,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Image is a product or variant picture.
type Image struct {
	URL      string `json:"url"`
	AltText  string `json:"alt_text,omitempty"`
	Position int    `json:"position"`
}

// ConfigOption is one configurable axis (e.g. color) with its selectable
// values in display order.
type ConfigOption struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Values      []string `json:"values"`
}

// Installments describes the financing offer shown on the product page.
type Installments struct {
	Quantity     int         `json:"quantity"`
	Amount       money.Money `json:"amount"`
	InterestFree bool        `json:"interest_free"`
}

// VariantByID returns the variant with the given id, or nil.
func (p *Product) VariantByID(id string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// Option returns the config option with the given name, or nil.
func (p *Product) Option(name string) *ConfigOption {
	for i := range p.Options {
		if p.Options[i].Name == name {
			return &p.Options[i]
		}
	}
	return nil
}
