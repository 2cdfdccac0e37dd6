// Package core holds the supplier analytics domain: categories, suppliers,
// money, reporting windows and the derived metric types.
//
// Money is always carried as integer cents. Decimal rendering goes through
// shopspring/decimal so no float ever touches an amount.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Reais builds a Money from a whole number of reais.
func Reais(r int64) Money {
	return Money{Cents: r * 100}
}

// ParseDecimalToCents converts a decimal string to cents, rounding half-up on
// the third decimal place. Both "12.34" and "12,34" are accepted, as is a
// pt-BR grouped value like "1.234,56". Negative values are rejected; zero is
// allowed because supplier totals may legitimately be zero.
//
//	ParseDecimalToCents("12,34")    -> 1234
//	ParseDecimalToCents("1.234,56") -> 123456
//	ParseDecimalToCents("12.345")   -> 1235
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		// pt-BR: dots group thousands, the comma is the decimal separator
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Decimal returns the amount in reais as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Plain renders the amount as a plain decimal with no grouping and no
// trailing zeros: 12500000 cents -> "125000", 1500050 -> "15000.5".
func (m Money) Plain() string {
	return m.Decimal().String()
}

// BRL renders the amount for display: "R$ 125.000" or "R$ 15.000,50".
func (m Money) BRL() string {
	neg := m.Cents < 0
	cents := m.Cents
	if neg {
		cents = -cents
	}
	whole := decimal.New(cents, -2).Truncate(0).String()
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac := cents % 100; frac != 0 {
		out += fmt.Sprintf(",%02d", frac)
	}
	if neg {
		return "-R$ " + out
	}
	return "R$ " + out
}
