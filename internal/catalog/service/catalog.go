// Package service implements the catalog business logic, including
// variant resolution for configurable products.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/repository"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/slug"
)

// CatalogService implements product and variant operations.
type CatalogService struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Title            string
	Description      string
	Brand            string
	Condition        string
	Currency         string
	Images           []domain.Image
	Options          []domain.ConfigOption
	Variants         []VariantInput
	Installments     *domain.Installments
	FreeShippingFrom *money.Money
}

// VariantInput holds the parameters for one variant of a new product.
type VariantInput struct {
	SKU         string
	Attributes  domain.AttributeSet
	Price       float64
	CompareAt   *float64
	Stock       int
	IsAvailable bool
	Images      []domain.Image
}

// CreateProduct creates a product with its variants. The slug is derived
// from the title.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Title == "" {
		return nil, apperrors.InvalidInput("product title is required")
	}
	if len(input.Variants) == 0 {
		return nil, apperrors.InvalidInput("a product needs at least one variant")
	}
	if len(input.Currency) != 3 {
		return nil, apperrors.InvalidInput("currency must be a 3-letter ISO code")
	}

	currency := strings.ToUpper(input.Currency)
	now := time.Now().UTC()

	product := &domain.Product{
		ID:               uuid.New().String(),
		Slug:             slug.Generate(input.Title),
		Title:            input.Title,
		Description:      input.Description,
		Brand:            input.Brand,
		Condition:        input.Condition,
		Currency:         currency,
		Images:           input.Images,
		Options:          input.Options,
		Installments:     input.Installments,
		FreeShippingFrom: input.FreeShippingFrom,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	for i, vi := range input.Variants {
		variant := domain.Variant{
			ID:          uuid.New().String(),
			SKU:         vi.SKU,
			Attributes:  vi.Attributes,
			Price:       money.New(vi.Price, currency),
			Stock:       vi.Stock,
			IsAvailable: vi.IsAvailable,
			Position:    i,
			Images:      vi.Images,
		}
		if vi.CompareAt != nil {
			cmp := money.New(*vi.CompareAt, currency)
			variant.CompareAtPrice = &cmp
		}
		product.Variants = append(product.Variants, variant)
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
		slog.Int("variants", len(product.Variants)),
	)

	return product, nil
}

// GetProduct retrieves a product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// GetProductBySlug retrieves a product by its slug.
func (s *CatalogService) GetProductBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	product, err := s.repo.GetBySlug(ctx, productSlug)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productSlug)
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return product, nil
}

// ListProducts returns a page of products with the total count.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	return s.repo.List(ctx, filter)
}

// AdjustStock changes a variant's stock by delta (negative to reserve).
func (s *CatalogService) AdjustStock(ctx context.Context, variantID string, delta int) error {
	return s.repo.UpdateVariantStock(ctx, variantID, delta)
}

// OptionValueState describes one selectable value of an option relative
// to the shopper's current selection.
type OptionValueState struct {
	Value string `json:"value"`

	// Selected is true when the current selection already carries this value.
	Selected bool `json:"selected"`

	// Available is true when picking this value, keeping the rest of the
	// selection, leads to at least one compatible variant. Stock does not
	// factor in; see InStock.
	Available bool `json:"available"`

	// InStock is true when at least one of those compatible variants is
	// purchasable right now.
	InStock bool `json:"in_stock"`

	// PriceDifference is the price delta of switching to this value. It is
	// omitted when either side of the comparison has no exact variant.
	PriceDifference *money.Money `json:"price_difference,omitempty"`
}

// OptionState groups the value states for one configurable option.
type OptionState struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Values      []OptionValueState `json:"values"`
}

// VariantResolution is the result of resolving a selection against a
// product's variants.
type VariantResolution struct {
	// Compatible holds the variants the selection is compatible with, in
	// catalog order.
	Compatible []domain.Variant `json:"compatible"`

	// Exact is the variant whose attributes equal the selection, if any.
	Exact *domain.Variant `json:"exact,omitempty"`

	// DuplicateExact flags that more than one variant carried the selected
	// attribute set. Exact holds the first one in catalog order.
	DuplicateExact bool `json:"duplicate_exact,omitempty"`

	// Options describes availability and price deltas per option value.
	Options []OptionState `json:"options"`
}

// ResolveVariants resolves a shopper's attribute selection against the
// product's variants. Duplicate exact matches are tolerated and flagged;
// they indicate inconsistent catalog data, not a failed resolution.
func (s *CatalogService) ResolveVariants(ctx context.Context, productID string, selection domain.AttributeSet) (*VariantResolution, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	compatible := domain.FindCompatibleVariants(product.Variants, selection)
	exact := domain.FindExactVariant(product.Variants, selection)

	if exact.Duplicate {
		s.logger.WarnContext(ctx, "duplicate variants share one attribute set",
			slog.String("product_id", product.ID),
			slog.String("variant_id", exact.Variant.ID),
		)
	}

	resolution := &VariantResolution{
		Exact:          exact.Variant,
		DuplicateExact: exact.Duplicate,
	}
	for _, v := range compatible {
		resolution.Compatible = append(resolution.Compatible, *v)
	}

	for _, opt := range product.Options {
		state := OptionState{
			Name:        opt.Name,
			DisplayName: opt.DisplayName,
		}
		selected, _ := selection.Value(opt.Name)
		for _, value := range opt.Values {
			vs := OptionValueState{
				Value:     value,
				Selected:  value == selected,
				Available: domain.IsOptionValueAvailable(product.Variants, selection, opt.Name, value),
			}
			for _, cand := range domain.FindCompatibleVariants(product.Variants, selection.With(opt.Name, value)) {
				if cand.Purchasable() {
					vs.InStock = true
					break
				}
			}
			if diff, ok := domain.PriceDifference(product.Variants, selection, opt.Name, value); ok {
				vs.PriceDifference = &diff
			}
			state.Values = append(state.Values, vs)
		}
		resolution.Options = append(resolution.Options, state)
	}

	return resolution, nil
}
