package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/domain"
	pkgkafka "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/kafka"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// Kafka topic constants for checkout domain events.
const (
	TopicCheckoutInitiated = "ecommerce.checkout.initiated"
	TopicCheckoutCompleted = "ecommerce.checkout.completed"
	TopicCheckoutCancelled = "ecommerce.checkout.cancelled"
)

// Aggregate type constant.
const AggregateTypeCheckout = "checkout"

// Source identifier for events originating from the storefront.
const SourceStorefront = "storefront"

// CheckoutInitiatedData is the payload for a checkout.initiated event.
type CheckoutInitiatedData struct {
	CheckoutID string      `json:"checkout_id"`
	CartID     string      `json:"cart_id"`
	ItemCount  int         `json:"item_count"`
	Subtotal   money.Money `json:"subtotal"`
	Currency   string      `json:"currency"`
}

// CheckoutCompletedData is the payload for a checkout.completed event.
type CheckoutCompletedData struct {
	CheckoutID string      `json:"checkout_id"`
	CartID     string      `json:"cart_id"`
	OrderID    string      `json:"order_id"`
	Total      money.Money `json:"total"`
}

// CheckoutCancelledData is the payload for a checkout.cancelled event.
type CheckoutCancelledData struct {
	CheckoutID string `json:"checkout_id"`
	CartID     string `json:"cart_id"`
	LastStatus string `json:"last_status"`
}

// Producer publishes checkout domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the checkout module.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCheckoutInitiated publishes a checkout.initiated event.
func (p *Producer) PublishCheckoutInitiated(ctx context.Context, c *domain.Checkout) error {
	itemCount := 0
	for i := range c.Items {
		itemCount += c.Items[i].Quantity
	}

	data := CheckoutInitiatedData{
		CheckoutID: c.ID,
		CartID:     c.CartID,
		ItemCount:  itemCount,
		Subtotal:   c.Subtotal,
		Currency:   c.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicCheckoutInitiated, c.ID, AggregateTypeCheckout, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create checkout.initiated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCheckoutInitiated, event); err != nil {
		return fmt.Errorf("publish checkout.initiated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published checkout.initiated event",
		slog.String("checkout_id", c.ID),
	)

	return nil
}

// PublishCheckoutCompleted publishes a checkout.completed event.
func (p *Producer) PublishCheckoutCompleted(ctx context.Context, c *domain.Checkout) error {
	data := CheckoutCompletedData{
		CheckoutID: c.ID,
		CartID:     c.CartID,
		OrderID:    c.OrderID,
		Total:      c.Total,
	}

	event, err := pkgkafka.NewEvent(TopicCheckoutCompleted, c.ID, AggregateTypeCheckout, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create checkout.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCheckoutCompleted, event); err != nil {
		return fmt.Errorf("publish checkout.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published checkout.completed event",
		slog.String("checkout_id", c.ID),
		slog.String("order_id", c.OrderID),
	)

	return nil
}

// PublishCheckoutCancelled publishes a checkout.cancelled event.
func (p *Producer) PublishCheckoutCancelled(ctx context.Context, c *domain.Checkout, lastStatus string) error {
	data := CheckoutCancelledData{
		CheckoutID: c.ID,
		CartID:     c.CartID,
		LastStatus: lastStatus,
	}

	event, err := pkgkafka.NewEvent(TopicCheckoutCancelled, c.ID, AggregateTypeCheckout, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create checkout.cancelled event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCheckoutCancelled, event); err != nil {
		return fmt.Errorf("publish checkout.cancelled event: %w", err)
	}

	p.logger.DebugContext(ctx, "published checkout.cancelled event",
		slog.String("checkout_id", c.ID),
	)

	return nil
}
