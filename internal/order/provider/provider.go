// Package provider abstracts the payment gateway. The storefront ships
// with a mock gateway for development and tests.
package provider

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// ChargeRequest describes one charge attempt.
type ChargeRequest struct {
	OrderID    string
	Amount     money.Money
	CardNumber string
	CardHolder string
	MethodID   string
}

// ChargeResult is the gateway's answer to a successful charge.
type ChargeResult struct {
	Reference string
	Status    string
}

// Provider charges and refunds payments. Charge returns an error for a
// declined or failed attempt; Refund reverses a captured charge by its
// gateway reference.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, reference string, amount money.Money) error
}

// DeclineError marks a charge the gateway rejected. The reason is safe
// to surface to the caller.
type DeclineError struct {
	Reason string
}

func (e *DeclineError) Error() string {
	return "charge declined: " + e.Reason
}

// MockProvider simulates a payment gateway. Card numbers ending in 0002
// are declined, everything else is captured with a synthetic reference.
type MockProvider struct{}

// NewMockProvider creates the simulated gateway.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Charge implements Provider.
func (p *MockProvider) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	number := strings.ReplaceAll(req.CardNumber, " ", "")
	if strings.HasSuffix(number, "0002") {
		return nil, &DeclineError{Reason: "card declined by issuer"}
	}

	return &ChargeResult{
		Reference: "mock_pay_" + uuid.New().String(),
		Status:    "captured",
	}, nil
}

// Refund implements Provider. The mock gateway accepts any refund with a
// known-looking reference.
func (p *MockProvider) Refund(_ context.Context, reference string, _ money.Money) error {
	if !strings.HasPrefix(reference, "mock_pay_") {
		return &DeclineError{Reason: "unknown payment reference"}
	}
	return nil
}
