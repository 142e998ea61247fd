// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and rendering them back for display. Amounts are held as integer cents;
// decimal arithmetic is only used at the edges.
package core

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency label used when none is configured.
const DefaultCurrency = "ZAR"

// Money is an amount in cents.
type Money struct {
	Cents int64
}

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a decimal string to Money with half-up rounding to cents.
//
// It accepts a dot (12.34) or a comma (12,34) as the decimal separator. Commas
// that each precede exactly three digits are thousands separators (6,000).
// Mixing both separators is ambiguous and returns ErrInvalidAmount. Zero is a
// valid amount; negative values return ErrNegativeAmount and anything that is
// not a plain number returns ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("3000")     -> Money{Cents: 300000}, nil
//	ParseAmount("6,000")    -> Money{Cents: 600000}, nil
//	ParseAmount("12,34")    -> Money{Cents: 1234}, nil
//	ParseAmount("12.345")   -> Money{Cents: 1235}, nil (rounds up)
//	ParseAmount("6,000.00") -> Money{}, ErrInvalidAmount
//	ParseAmount("-1")       -> Money{}, ErrNegativeAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s, ok := normalizeSeparators(s)
	if !ok {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") {
		return Money{}, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}

	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// normalizeSeparators rewrites comma input into dot-decimal form.
func normalizeSeparators(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	if strings.Contains(s, ".") {
		return "", false
	}
	parts := strings.Split(s, ",")
	if len(parts) == 2 && len(parts[1]) != 3 {
		return parts[0] + "." + parts[1], true
	}
	if parts[0] == "" || parts[0] == "-" || parts[0] == "+" {
		return "", false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

// MustAmount is ParseAmount for literals known to be valid. It panics otherwise.
func MustAmount(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic("core: invalid amount literal " + s + ": " + err.Error())
	}
	return m
}

// Units returns a Money worth n whole currency units.
func Units(n int64) Money {
	return Money{Cents: n * 100}
}

// Decimal returns the amount in currency units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two fixed decimals and no grouping ("3000.00").
// It is the form used in input fields and CSV files.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders the amount for people, e.g. "ZAR 3,000.00".
func (m Money) Format(currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	units := m.Decimal().InexactFloat64()
	return currency + " " + humanize.FormatFloat("#,###.##", units)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Validate rejects negative amounts.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler using String.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseAmount.
func (m *Money) UnmarshalText(b []byte) error {
	v, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
