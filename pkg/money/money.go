// Package money provides BRL-centric monetary helpers on top of go-money
// and shopspring/decimal. Statement amounts travel through the pipeline as
// float64 magnitudes; this package keeps the rounding in one place.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BRL is the only currency the ingestion pipeline deals in.
const BRL = "BRL"

// ToCents converts a float amount to integer cents using decimal arithmetic,
// avoiding the usual float64 truncation surprises (e.g. 23.50*100 == 2349.99...).
func ToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.New(1, 2)).Round(0).IntPart()
}

// FromCents converts integer cents back to a float amount.
func FromCents(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}

// Display renders a float amount as a BRL string ("R$1.234,56").
func Display(amount float64) string {
	return money.New(ToCents(amount), BRL).Display()
}

// SplitEven divides an amount by n and rounds to cents. Every share is equal;
// the remainder cent, if any, is dropped rather than redistributed, matching
// how the statement itself reports per-installment charges.
func SplitEven(amount float64, n int) float64 {
	if n <= 0 {
		return amount
	}
	share := decimal.NewFromFloat(amount).Div(decimal.NewFromInt(int64(n))).Round(2)
	f, _ := share.Float64()
	return f
}

// Equalish reports whether two amounts are equal within a one-cent tolerance.
func Equalish(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= 0.01
}
