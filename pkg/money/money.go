// Package money implements a fixed-precision currency amount backed by
// shopspring/decimal. Arithmetic is exact; rounding only happens when an
// amount is converted to minor units for a payment network or formatted
// for display.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an immutable currency amount.
type Money struct {
	amount decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Zero returns a zero amount.
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// New wraps a decimal value.
func New(d decimal.Decimal) Money {
	return Money{amount: d}
}

// FromMinor builds an amount from integer minor units (cents).
func FromMinor(units int64) Money {
	return Money{amount: decimal.New(units, -2)}
}

// Parse reads a decimal string such as "12.50".
func Parse(raw string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", raw, err)
	}
	return Money{amount: d}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(raw string) Money {
	m, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns the sum of m and every operand.
func (m Money) Add(others ...Money) Money {
	sum := m.amount
	for _, o := range others {
		sum = sum.Add(o.amount)
	}
	return Money{amount: sum}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{amount: m.amount.Sub(o.amount)}
}

// Multiply scales the amount by an integer quantity. The result is exact.
func (m Money) Multiply(quantity int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(quantity)))}
}

// Negate flips the sign.
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg()}
}

// PercentageOf returns percent% of value without intermediate rounding.
func PercentageOf(value Money, percent decimal.Decimal) Money {
	return Money{amount: value.amount.Mul(percent).Div(hundred)}
}

// Min returns the smaller amount.
func Min(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger amount.
func Max(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Decimal exposes the raw decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Float64 is for logging and display only.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// MinorUnits rounds half away from zero to cents. Only payment network
// boundaries should call it.
func (m Money) MinorUnits() int64 {
	return m.amount.Mul(hundred).Round(0).IntPart()
}

// Cmp orders amounts by decimal value.
func (m Money) Cmp(o Money) int {
	return m.amount.Cmp(o.amount)
}

// Equal compares by value, so 10 and 10.00 are equal.
func (m Money) Equal(o Money) bool {
	return m.amount.Equal(o.amount)
}

func (m Money) LessThan(o Money) bool {
	return m.amount.LessThan(o.amount)
}

func (m Money) GreaterThan(o Money) bool {
	return m.amount.GreaterThan(o.amount)
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// String returns the canonical decimal representation.
func (m Money) String() string {
	return m.amount.String()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.String())
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode money: %w", err)
	}
	m.amount = d
	return nil
}

// Value stores the amount as a decimal string so numeric columns keep full precision.
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	m.amount = d
	return nil
}
