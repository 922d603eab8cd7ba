package money

import (
	"fmt"
	"math"
)

// epsilon is half a cent; float amounts closer than this are considered equal.
const epsilon = 0.005

// Money is an amount in a single currency. Amounts are decimal values in the
// currency's major unit (e.g. 108774.05 ARS), matching the wire format the
// storefront exposes.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// New creates a Money value.
func New(amount float64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: 0, Currency: currency}
}

// Add returns m + other. Both values must share a currency; mixing currencies
// is a programming error and returns an error rather than a silent sum.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s + %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub returns m - other under the same currency rules as Add.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s - %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Times returns the amount multiplied by a quantity.
func (m Money) Times(qty int) Money {
	return Money{Amount: m.Amount * float64(qty), Currency: m.Currency}
}

// Equal reports whether two values represent the same amount in the same
// currency, tolerating float rounding below half a cent.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && math.Abs(m.Amount-other.Amount) < epsilon
}

// IsZero reports whether the amount is zero (currency ignored).
func (m Money) IsZero() bool {
	return math.Abs(m.Amount) < epsilon
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount < -epsilon
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Amount, m.Currency)
}
