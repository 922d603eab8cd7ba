// Package repository defines the persistence interfaces for the catalog.
package repository

import (
	"context"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/domain"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search  *string
	Brand   *string
	Page    int
	PerPage int
}

// ProductRepository persists products and their variants. Variants are
// always returned in catalog order (ascending position).
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	UpdateVariantStock(ctx context.Context, variantID string, delta int) error
}
