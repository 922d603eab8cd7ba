// Package service implements order creation and payment processing on
// top of the checkout flow.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	checkoutdomain "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/event"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/provider"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/repository"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// CheckoutProvider gives the order flow access to checkouts. Implemented
// by the checkout service.
type CheckoutProvider interface {
	Get(ctx context.Context, checkoutID string) (*checkoutdomain.Checkout, error)
	Complete(ctx context.Context, checkoutID, orderID string) (*checkoutdomain.Checkout, error)
}

// OrderService implements the business logic for orders and payments.
type OrderService struct {
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	methods   repository.PaymentMethodRepository
	checkouts CheckoutProvider
	gateway   provider.Provider
	producer  *event.Producer
	logger    *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	methods repository.PaymentMethodRepository,
	checkouts CheckoutProvider,
	gateway provider.Provider,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		payments:  payments,
		methods:   methods,
		checkouts: checkouts,
		gateway:   gateway,
		producer:  producer,
		logger:    logger,
	}
}

// PaymentInput carries one charge attempt. Either a stored method id or
// raw card details are provided; the full card number is never persisted.
type PaymentInput struct {
	Amount     money.Money
	MethodID   string
	CardNumber string
	CardHolder string
}

// AddPaymentMethodInput carries a new payment instrument.
type AddPaymentMethodInput struct {
	CardNumber string
	HolderName string
	ExpMonth   int
	ExpYear    int
	SetDefault bool
}

// CreateOrder freezes a ready-for-payment checkout into an order. The
// operation is idempotent per checkout: if an order already exists for
// the checkout it is returned unchanged.
func (s *OrderService) CreateOrder(ctx context.Context, checkoutID, userID string) (*domain.Order, error) {
	if existing, err := s.orders.GetByCheckoutID(ctx, checkoutID); err == nil {
		return existing, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up order by checkout: %w", err)
	}

	checkout, err := s.checkouts.Get(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout.Status != checkoutdomain.StatusReadyForPayment {
		return nil, apperrors.Conflict("checkout must be ready for payment to create an order, is " + checkout.Status)
	}

	now := time.Now().UTC()
	order := domain.FromCheckout(checkout)
	order.ID = uuid.New().String()
	if userID != "" {
		order.UserID = userID
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := s.orders.Create(ctx, order); err != nil {
		// A concurrent request won the race; return its order.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return s.orders.GetByCheckoutID(ctx, checkoutID)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("checkout_id", checkoutID),
		slog.Float64("total", order.Total.Amount),
	)

	return order, nil
}

// GetOrder retrieves an order by id.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// ListOrders retrieves a user's orders.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ProcessPayment charges an order. The amount must match the order total
// exactly; a mismatch rejects the attempt before any charge and leaves
// the checkout untouched. A successful charge confirms the order,
// completes the checkout, and deletes the backing cart. A declined
// charge is recorded and can be retried.
func (s *OrderService) ProcessPayment(ctx context.Context, orderID string, input PaymentInput) (*domain.Payment, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.IsPaid() {
		return nil, apperrors.Conflict("order is already paid")
	}
	if order.Status == domain.StatusCancelled {
		return nil, apperrors.Conflict("order is cancelled")
	}

	if !input.Amount.Equal(order.Total) {
		return nil, apperrors.AmountMismatch(order.Total.Amount, input.Amount.Amount, order.Currency)
	}

	payment := &domain.Payment{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		Amount:    order.Total,
		MethodID:  input.MethodID,
		CreatedAt: time.Now().UTC(),
	}

	result, err := s.gateway.Charge(ctx, provider.ChargeRequest{
		OrderID:    order.ID,
		Amount:     order.Total,
		CardNumber: input.CardNumber,
		CardHolder: input.CardHolder,
		MethodID:   input.MethodID,
	})
	if err != nil {
		payment.Status = domain.PaymentFailed
		payment.FailureReason = failureReason(err)
		if saveErr := s.payments.Create(ctx, payment); saveErr != nil {
			s.logger.ErrorContext(ctx, "failed to record failed payment",
				slog.String("order_id", order.ID),
				slog.String("error", saveErr.Error()),
			)
		}

		if pubErr := s.producer.PublishPaymentFailed(ctx, payment); pubErr != nil {
			s.logger.ErrorContext(ctx, "failed to publish payment.failed event",
				slog.String("payment_id", payment.ID),
				slog.String("error", pubErr.Error()),
			)
		}

		s.logger.WarnContext(ctx, "payment declined",
			slog.String("order_id", order.ID),
			slog.String("reason", payment.FailureReason),
		)

		return nil, apperrors.PaymentFailed(payment.FailureReason)
	}

	payment.Status = domain.PaymentCaptured
	payment.Reference = result.Reference

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	order.MarkPaid(newTrackingNumber())
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	if _, err := s.checkouts.Complete(ctx, order.CheckoutID, order.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to complete checkout after payment",
			slog.String("checkout_id", order.CheckoutID),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishPaymentSucceeded(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.succeeded event",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment captured",
		slog.String("order_id", order.ID),
		slog.String("payment_id", payment.ID),
		slog.String("reference", payment.Reference),
	)

	return payment, nil
}

// CancelOrder cancels an order. Captured payments are refunded through
// the gateway.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	wasPaid := order.IsPaid()
	if err := order.Cancel(reason); err != nil {
		return nil, err
	}

	if wasPaid {
		if err := s.refundOrder(ctx, order); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", orderID),
		slog.String("reason", reason),
		slog.Bool("refunded", wasPaid),
	)

	return order, nil
}

// refundOrder reverses the captured payment of an order being cancelled.
func (s *OrderService) refundOrder(ctx context.Context, order *domain.Order) error {
	payments, err := s.payments.ListByOrderID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("list payments for refund: %w", err)
	}

	for i := range payments {
		p := &payments[i]
		if p.Status != domain.PaymentCaptured {
			continue
		}

		if err := s.gateway.Refund(ctx, p.Reference, p.Amount); err != nil {
			return fmt.Errorf("refund payment %s: %w", p.ID, err)
		}

		p.Status = domain.PaymentRefunded
		if err := s.payments.Update(ctx, p); err != nil {
			return fmt.Errorf("record refund: %w", err)
		}

		s.logger.InfoContext(ctx, "payment refunded",
			slog.String("payment_id", p.ID),
			slog.String("order_id", order.ID),
		)
	}

	order.PaymentStatus = domain.PaymentRefunded
	return nil
}

// ListPaymentMethods retrieves a user's stored payment methods.
func (s *OrderService) ListPaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	methods, err := s.methods.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

// AddPaymentMethod stores a payment instrument, keeping only the brand
// and the last four digits of the card number.
func (s *OrderService) AddPaymentMethod(ctx context.Context, userID string, input AddPaymentMethodInput) (*domain.PaymentMethod, error) {
	number := strings.ReplaceAll(input.CardNumber, " ", "")
	if len(number) < 12 {
		return nil, apperrors.InvalidInput("card number is too short")
	}

	method := &domain.PaymentMethod{
		ID:         uuid.New().String(),
		UserID:     userID,
		Type:       "card",
		Brand:      cardBrand(number),
		Last4:      number[len(number)-4:],
		ExpMonth:   input.ExpMonth,
		ExpYear:    input.ExpYear,
		HolderName: input.HolderName,
		IsDefault:  input.SetDefault,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.methods.Create(ctx, method); err != nil {
		return nil, fmt.Errorf("store payment method: %w", err)
	}

	s.logger.InfoContext(ctx, "payment method added",
		slog.String("method_id", method.ID),
		slog.String("brand", method.Brand),
	)

	return method, nil
}

// RemovePaymentMethod deletes a stored payment method. Methods owned by
// another user are reported as not found.
func (s *OrderService) RemovePaymentMethod(ctx context.Context, userID, methodID string) error {
	method, err := s.methods.GetByID(ctx, methodID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("payment method", methodID)
		}
		return fmt.Errorf("get payment method: %w", err)
	}
	if method.UserID != userID {
		return apperrors.NotFound("payment method", methodID)
	}

	if err := s.methods.Delete(ctx, methodID); err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}

	return nil
}

// failureReason extracts a user-safe message from a gateway error.
func failureReason(err error) string {
	var decline *provider.DeclineError
	if errors.As(err, &decline) {
		return decline.Reason
	}
	return "payment could not be processed"
}

// newTrackingNumber generates a fulfilment tracking code.
func newTrackingNumber() string {
	return "TRK-" + strings.ToUpper(uuid.New().String()[:8])
}

// cardBrand infers the network from the leading digit.
func cardBrand(number string) string {
	switch number[0] {
	case '4':
		return "visa"
	case '5':
		return "mastercard"
	case '3':
		return "amex"
	default:
		return "card"
	}
}
