// Package repository defines the persistence interface for carts.
package repository

import (
	"context"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/domain"
)

// CartRepository defines cart persistence. Carts are keyed by cart id.
type CartRepository interface {
	// Get retrieves a cart by id.
	Get(ctx context.Context, cartID string) (*domain.Cart, error)

	// Save persists a cart unconditionally, overwriting any existing value.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion persists a cart only if the stored version still equals
	// expectedVersion. It fails with a conflict when another writer got
	// there first.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int64) error

	// Delete removes a cart by id. Deleting a missing cart is not an error.
	Delete(ctx context.Context, cartID string) error
}
