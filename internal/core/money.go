// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Parsing and percentage math go through
// shopspring/decimal so no float rounding leaks into stored or reported values.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// MaxCents bounds a single amount (ten billion in currency units). Sums over
// millions of such rows still fit in int64, in Go and in SQLite's SUM.
const MaxCents int64 = 1_000_000_000_000

type Money struct {
	Cents int64
}

// ParseMoney converts a decimal string to Money.
//
// Both dot (12.34) and comma (12,34) separators are accepted and the value is
// rounded half-up to cents. Negative values and values above MaxCents are
// rejected, zero is allowed.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents
//	ParseMoney("0")      -> 0 cents
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(MaxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > MaxCents {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units, e.g. 1234 cents -> 12.34.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// PercentFromPoints converts whole percent points to a fraction (25 -> 0.25).
func PercentFromPoints(points int) decimal.Decimal {
	return decimal.New(int64(points), -2)
}

// PercentPoints converts a fraction back to whole percent points, rounding
// half-up (0.255 -> 26).
func PercentPoints(fraction decimal.Decimal) int {
	return int(fraction.Mul(hundred).Round(0).IntPart())
}

// Share returns part as a whole-number percentage of total, rounding half to
// even. The caller guarantees total is non-zero.
func Share(part, total Money) int {
	ratio := decimal.NewFromInt(part.Cents).Mul(hundred).Div(decimal.NewFromInt(total.Cents))
	return int(ratio.RoundBank(0).IntPart())
}
