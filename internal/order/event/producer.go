package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/domain"
	pkgkafka "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/kafka"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// Kafka topic constants for order and payment domain events.
const (
	TopicOrderCreated     = "ecommerce.order.created"
	TopicPaymentSucceeded = "ecommerce.payment.succeeded"
	TopicPaymentFailed    = "ecommerce.payment.failed"
)

// Aggregate type constants.
const (
	AggregateTypeOrder   = "order"
	AggregateTypePayment = "payment"
)

// Source identifier for events originating from the storefront.
const SourceStorefront = "storefront"

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID    string      `json:"order_id"`
	CheckoutID string      `json:"checkout_id"`
	UserID     string      `json:"user_id,omitempty"`
	ItemCount  int         `json:"item_count"`
	Total      money.Money `json:"total"`
}

// PaymentSucceededData is the payload for a payment.succeeded event.
type PaymentSucceededData struct {
	PaymentID string      `json:"payment_id"`
	OrderID   string      `json:"order_id"`
	Amount    money.Money `json:"amount"`
	Reference string      `json:"reference"`
}

// PaymentFailedData is the payload for a payment.failed event.
type PaymentFailedData struct {
	PaymentID string      `json:"payment_id"`
	OrderID   string      `json:"order_id"`
	Amount    money.Money `json:"amount"`
	Reason    string      `json:"reason"`
}

// Producer publishes order and payment domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the order module.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	itemCount := 0
	for i := range o.Items {
		itemCount += o.Items[i].Quantity
	}

	data := OrderCreatedData{
		OrderID:    o.ID,
		CheckoutID: o.CheckoutID,
		UserID:     o.UserID,
		ItemCount:  itemCount,
		Total:      o.Total,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, o.ID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", o.ID),
	)

	return nil
}

// PublishPaymentSucceeded publishes a payment.succeeded event.
func (p *Producer) PublishPaymentSucceeded(ctx context.Context, payment *domain.Payment) error {
	data := PaymentSucceededData{
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		Amount:    payment.Amount,
		Reference: payment.Reference,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentSucceeded, payment.OrderID, AggregateTypePayment, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create payment.succeeded event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentSucceeded, event); err != nil {
		return fmt.Errorf("publish payment.succeeded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.succeeded event",
		slog.String("payment_id", payment.ID),
		slog.String("order_id", payment.OrderID),
	)

	return nil
}

// PublishPaymentFailed publishes a payment.failed event.
func (p *Producer) PublishPaymentFailed(ctx context.Context, payment *domain.Payment) error {
	data := PaymentFailedData{
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		Amount:    payment.Amount,
		Reason:    payment.FailureReason,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentFailed, payment.OrderID, AggregateTypePayment, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create payment.failed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentFailed, event); err != nil {
		return fmt.Errorf("publish payment.failed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.failed event",
		slog.String("payment_id", payment.ID),
		slog.String("order_id", payment.OrderID),
	)

	return nil
}
