// Package repository defines the persistence contracts for orders,
// payments, and stored payment methods.
package repository

import (
	"context"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/domain"
)

// OrderRepository persists orders. GetByCheckoutID backs the
// one-order-per-checkout idempotency guarantee.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByCheckoutID(ctx context.Context, checkoutID string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

// PaymentRepository persists charge attempts, including failed ones.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	Update(ctx context.Context, payment *domain.Payment) error
	ListByOrderID(ctx context.Context, orderID string) ([]domain.Payment, error)
}

// PaymentMethodRepository persists stored payment instruments per user.
type PaymentMethodRepository interface {
	Create(ctx context.Context, method *domain.PaymentMethod) error
	GetByID(ctx context.Context, id string) (*domain.PaymentMethod, error)
	ListByUser(ctx context.Context, userID string) ([]domain.PaymentMethod, error)
	Delete(ctx context.Context, id string) error
}
