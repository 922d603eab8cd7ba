package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/event"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/repository"
	catalogdomain "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/domain"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart line.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct lines allowed in a cart.
	MaxItemsPerCart = 50
)

// ProductGetter provides the catalog lookups the cart needs. Prices and
// titles come from the catalog, never from the client.
type ProductGetter interface {
	GetProduct(ctx context.Context, id string) (*catalogdomain.Product, error)
}

// AddItemInput holds the parameters for adding an item to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	repo     repository.CartRepository
	catalog  ProductGetter
	producer *event.Producer
	logger   *slog.Logger
	currency string
	cartTTL  time.Duration
}

// NewCartService creates a new cart service.
func NewCartService(
	repo repository.CartRepository,
	catalog ProductGetter,
	producer *event.Producer,
	logger *slog.Logger,
	currency string,
	cartTTL time.Duration,
) *CartService {
	return &CartService{
		repo:     repo,
		catalog:  catalog,
		producer: producer,
		logger:   logger,
		currency: currency,
		cartTTL:  cartTTL,
	}
}

// CreateCart creates and persists a new empty cart.
func (s *CartService) CreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart := s.newEmptyCart(userID)

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart created",
		slog.String("cart_id", cart.ID),
	)

	return cart, nil
}

// GetCart retrieves a cart by id.
func (s *CartService) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}

	cart, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// AddItem adds a variant to the cart. The unit price, title and image
// are captured from the catalog at add time. Adding the same
// product+variant again merges into the existing line. Optimistic
// locking guards against concurrent cart modifications.
func (s *CartService) AddItem(ctx context.Context, cartID string, input AddItemInput) (*domain.Cart, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.VariantID == "" {
		return nil, apperrors.InvalidInput("variant id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	variant := product.VariantByID(input.VariantID)
	if variant == nil {
		return nil, apperrors.NotFound("variant", input.VariantID)
	}
	if !variant.IsAvailable {
		return nil, apperrors.Conflict(fmt.Sprintf("variant %s is not available for purchase", input.VariantID))
	}

	expectedVersion := cart.Version

	idx := cart.FindLineIndex(input.ProductID, input.VariantID)
	if idx >= 0 {
		newQty := cart.Items[idx].Quantity + input.Quantity
		if newQty > MaxQuantityPerItem {
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
		}
		if variant.Stock < newQty {
			return nil, apperrors.OutOfStock(input.ProductID)
		}
		cart.Items[idx].Quantity = newQty
		// Refresh the captured fields in case the catalog changed.
		cart.Items[idx].UnitPrice = variant.Price
		cart.Items[idx].Title = product.Title
		cart.Items[idx].SKU = variant.SKU
	} else {
		if len(cart.Items) >= MaxItemsPerCart {
			return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
		if variant.Stock < input.Quantity {
			return nil, apperrors.OutOfStock(input.ProductID)
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ID:           uuid.New().String(),
			ProductID:    input.ProductID,
			VariantID:    input.VariantID,
			Title:        product.Title,
			VariantLabel: variantLabel(variant.Attributes),
			SKU:          variant.SKU,
			UnitPrice:    variant.Price,
			Quantity:     input.Quantity,
			ImageURL:     firstImageURL(product, variant),
		})
	}

	if err := s.saveAndPublish(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("cart_id", cartID),
		slog.String("product_id", input.ProductID),
		slog.String("variant_id", input.VariantID),
		slog.Int("quantity", input.Quantity),
	)

	return cart, nil
}

// UpdateItemQuantity sets the quantity of a cart line. Quantities below
// one are rejected; removal is a separate operation.
func (s *CartService) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (*domain.Cart, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	expectedVersion := cart.Version

	idx := cart.FindItemIndex(itemID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", itemID)
	}
	cart.Items[idx].Quantity = quantity

	if err := s.saveAndPublish(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("cart_id", cartID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveItem removes a cart line. Removing a line that is already gone
// succeeds, so retries are safe.
func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID string) (*domain.Cart, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}

	cart, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	expectedVersion := cart.Version

	idx := cart.FindItemIndex(itemID)
	if idx < 0 {
		return cart, nil
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	if err := s.saveAndPublish(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("cart_id", cartID),
		slog.String("item_id", itemID),
	)

	return cart, nil
}

// DeleteCart removes the cart from the store entirely. The checkout flow
// uses it after an order completes.
func (s *CartService) DeleteCart(ctx context.Context, cartID string) error {
	if cartID == "" {
		return apperrors.InvalidInput("cart id is required")
	}

	if err := s.repo.Delete(ctx, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, cartID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart deleted",
		slog.String("cart_id", cartID),
	)

	return nil
}

// saveAndPublish bumps the version, saves with an optimistic version
// check, and publishes the updated event. Event failures are logged,
// not returned; the cart write already succeeded.
func (s *CartService) saveAndPublish(ctx context.Context, cart *domain.Cart, expectedVersion int64) error {
	now := time.Now().UTC()
	cart.Touch(now)
	cart.ExpiresAt = now.Add(s.cartTTL)

	if err := s.repo.SaveIfVersion(ctx, cart, expectedVersion); err != nil {
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("save cart: %w", err)
	}

	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// newEmptyCart creates a new empty cart.
func (s *CartService) newEmptyCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.CartItem{},
		Currency:  s.currency,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cartTTL),
	}
}

func variantLabel(attrs catalogdomain.AttributeSet) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, a.Name+": "+a.Value)
	}
	return strings.Join(parts, ", ")
}

func firstImageURL(product *catalogdomain.Product, variant *catalogdomain.Variant) string {
	if len(variant.Images) > 0 {
		return variant.Images[0].URL
	}
	if len(product.Images) > 0 {
		return product.Images[0].URL
	}
	return ""
}
