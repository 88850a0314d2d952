// internal/domain/models/money.go
package models

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents). Aggregates are maintained with
// $inc deltas, so amounts are stored as integers to keep the sums exact.
type Money int64

// MaxMoney bounds a single amount (one billion dollars).
const MaxMoney Money = 100_000_000_000

var (
	ErrMoneyFormat    = errors.New("amount is not a number")
	ErrMoneyPrecision = errors.New("amount has more than two decimal places")
	ErrMoneyRange     = errors.New("amount is out of range")
)

var hundred = decimal.NewFromInt(100)

// ParseMoney parses a decimal string such as "12.50" into Money.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrMoneyFormat
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal converts a decimal value, rejecting sub-cent precision.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, ErrMoneyPrecision
	}
	if cents.Abs().GreaterThan(decimal.NewFromInt(int64(MaxMoney))) {
		return 0, ErrMoneyRange
	}
	return Money(cents.IntPart()), nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Positive reports whether the amount is strictly greater than zero.
func (m Money) Positive() bool {
	return m > 0
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	v, err := ParseMoney(s)
	if err != nil {
		return fmt.Errorf("%w: %q", err, s)
	}
	*m = v
	return nil
}
