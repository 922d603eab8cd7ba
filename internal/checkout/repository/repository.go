// Package repository defines the persistence interface for checkouts.
package repository

import (
	"context"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
)

// CheckoutRepository defines checkout session persistence.
type CheckoutRepository interface {
	Create(ctx context.Context, checkout *domain.Checkout) error
	GetByID(ctx context.Context, id string) (*domain.Checkout, error)
	Update(ctx context.Context, checkout *domain.Checkout) error

	// GetActiveByCartID returns the newest non-terminal checkout for a cart,
	// so re-initiating checkout resumes instead of forking sessions.
	GetActiveByCartID(ctx context.Context, cartID string) (*domain.Checkout, error)
}
