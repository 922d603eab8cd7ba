// Package service implements the checkout state machine on top of the
// cart snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cartdomain "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/event"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/repository"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
)

// CartProvider gives the checkout access to carts. Implemented by the
// cart service.
type CartProvider interface {
	GetCart(ctx context.Context, cartID string) (*cartdomain.Cart, error)
	DeleteCart(ctx context.Context, cartID string) error
}

// CheckoutService implements the business logic for checkout operations.
type CheckoutService struct {
	repo     repository.CheckoutRepository
	carts    CartProvider
	producer *event.Producer
	logger   *slog.Logger
	currency string
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	repo repository.CheckoutRepository,
	carts CartProvider,
	producer *event.Producer,
	logger *slog.Logger,
	currency string,
) *CheckoutService {
	return &CheckoutService{
		repo:     repo,
		carts:    carts,
		producer: producer,
		logger:   logger,
		currency: currency,
	}
}

// Initiate starts a checkout from a cart. The cart must exist and hold
// at least one item; its lines are snapshotted into the session. When a
// non-terminal checkout already exists for the cart it is resumed
// instead of forked.
func (s *CheckoutService) Initiate(ctx context.Context, cartID, userID string) (*domain.Checkout, error) {
	if cartID == "" {
		return nil, apperrors.InvalidCart(cartID)
	}

	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidCart(cartID)
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidCart(cartID)
	}

	if existing, err := s.repo.GetActiveByCartID(ctx, cartID); err == nil {
		s.logger.InfoContext(ctx, "resuming active checkout",
			slog.String("checkout_id", existing.ID),
			slog.String("cart_id", cartID),
		)
		return existing, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up active checkout: %w", err)
	}

	now := time.Now().UTC()
	checkout := &domain.Checkout{
		ID:        uuid.New().String(),
		CartID:    cartID,
		UserID:    userID,
		Status:    domain.StatusPending,
		Currency:  cart.Currency,
		Items:     snapshotItems(cart),
		CreatedAt: now,
		UpdatedAt: now,
	}
	checkout.RecomputeTotals()

	if err := s.repo.Create(ctx, checkout); err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	if err := s.producer.PublishCheckoutInitiated(ctx, checkout); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.initiated event",
			slog.String("checkout_id", checkout.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout initiated",
		slog.String("checkout_id", checkout.ID),
		slog.String("cart_id", cartID),
		slog.Int("items", len(checkout.Items)),
	)

	return checkout, nil
}

// Get retrieves a checkout by id.
func (s *CheckoutService) Get(ctx context.Context, checkoutID string) (*domain.Checkout, error) {
	checkout, err := s.repo.GetByID(ctx, checkoutID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("checkout", checkoutID)
		}
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	return checkout, nil
}

// ListShippingMethods returns the methods available for a checkout.
func (s *CheckoutService) ListShippingMethods(ctx context.Context, checkoutID string) ([]domain.ShippingMethod, error) {
	checkout, err := s.Get(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	return domain.DefaultShippingMethods(checkout.Currency), nil
}

// UpdateShipping sets the shipping destination and advances the
// checkout to shipping_info_provided. Re-submitting shipping info on a
// later status updates the destination without regressing the status.
func (s *CheckoutService) UpdateShipping(ctx context.Context, checkoutID string, info domain.ShippingInformation) (*domain.Checkout, error) {
	if missing := info.Validate(); len(missing) > 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("missing required shipping fields: %v", missing))
	}

	checkout, err := s.Get(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	if err := checkout.AdvanceTo(domain.StatusShippingInfoProvided); err != nil {
		return nil, err
	}
	checkout.ShippingInfo = &info

	if err := s.repo.Update(ctx, checkout); err != nil {
		return nil, fmt.Errorf("update checkout: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout shipping info updated",
		slog.String("checkout_id", checkoutID),
		slog.String("status", checkout.Status),
	)

	return checkout, nil
}

// SelectShippingMethod picks a delivery method, recomputes the totals
// and advances the checkout to shipping_method_selected.
func (s *CheckoutService) SelectShippingMethod(ctx context.Context, checkoutID, methodID string) (*domain.Checkout, error) {
	checkout, err := s.Get(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	if checkout.ShippingInfo == nil {
		return nil, apperrors.Conflict("shipping information must be provided before selecting a method")
	}

	method := domain.FindShippingMethod(domain.DefaultShippingMethods(checkout.Currency), methodID)
	if method == nil {
		return nil, apperrors.UnknownShippingMethod(methodID)
	}

	if err := checkout.AdvanceTo(domain.StatusShippingMethodSelected); err != nil {
		return nil, err
	}
	checkout.ShippingMethod = method
	checkout.RecomputeTotals()

	if err := s.repo.Update(ctx, checkout); err != nil {
		return nil, fmt.Errorf("update checkout: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout shipping method selected",
		slog.String("checkout_id", checkoutID),
		slog.String("method", methodID),
		slog.Float64("total", checkout.Total.Amount),
	)

	return checkout, nil
}

// Confirm advances the checkout to ready_for_payment. It requires a
// selected shipping method.
func (s *CheckoutService) Confirm(ctx context.Context, checkoutID string) (*domain.Checkout, error) {
	checkout, err := s.Get(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	if checkout.ShippingMethod == nil {
		return nil, apperrors.Conflict("a shipping method must be selected before confirming")
	}

	if err := checkout.AdvanceTo(domain.StatusReadyForPayment); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, checkout); err != nil {
		return nil, fmt.Errorf("update checkout: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout confirmed",
		slog.String("checkout_id", checkoutID),
	)

	return checkout, nil
}

// Cancel moves a non-terminal checkout to cancelled.
func (s *CheckoutService) Cancel(ctx context.Context, checkoutID string) (*domain.Checkout, error) {
	checkout, err := s.Get(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	lastStatus := checkout.Status
	if err := checkout.Cancel(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, checkout); err != nil {
		return nil, fmt.Errorf("update checkout: %w", err)
	}

	if err := s.producer.PublishCheckoutCancelled(ctx, checkout, lastStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.cancelled event",
			slog.String("checkout_id", checkoutID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout cancelled",
		slog.String("checkout_id", checkoutID),
		slog.String("last_status", lastStatus),
	)

	return checkout, nil
}

// Complete marks the checkout completed after its order was created,
// records the order id and deletes the backing cart. The order module
// drives this once payment settles.
func (s *CheckoutService) Complete(ctx context.Context, checkoutID, orderID string) (*domain.Checkout, error) {
	checkout, err := s.Get(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	if checkout.Status != domain.StatusReadyForPayment {
		return nil, apperrors.Conflict("checkout must be ready for payment to complete, is " + checkout.Status)
	}

	checkout.OrderID = orderID
	if err := checkout.AdvanceTo(domain.StatusCompleted); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, checkout); err != nil {
		return nil, fmt.Errorf("update checkout: %w", err)
	}

	if err := s.carts.DeleteCart(ctx, checkout.CartID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete cart after checkout completion",
			slog.String("cart_id", checkout.CartID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishCheckoutCompleted(ctx, checkout); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.completed event",
			slog.String("checkout_id", checkoutID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout completed",
		slog.String("checkout_id", checkoutID),
		slog.String("order_id", orderID),
	)

	return checkout, nil
}

// snapshotItems copies the cart lines into checkout items.
func snapshotItems(cart *cartdomain.Cart) []domain.CheckoutItem {
	items := make([]domain.CheckoutItem, len(cart.Items))
	for i, line := range cart.Items {
		items[i] = domain.CheckoutItem{
			ProductID:    line.ProductID,
			VariantID:    line.VariantID,
			Title:        line.Title,
			VariantLabel: line.VariantLabel,
			SKU:          line.SKU,
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
		}
	}
	return items
}
