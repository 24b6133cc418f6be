// Package money provides fixed-point monetary helpers used across the engine.
package money

import (
	"github.com/shopspring/decimal"
)

// Scale is the fractional precision of every externally visible amount.
const Scale = 2

// intermediateScale is used for discount multiplication before final rounding.
const intermediateScale = Scale + 2

var hundred = decimal.NewFromInt(100)

// Normalize rounds v to two fractional digits, half-up.
// The zero value of decimal.Decimal is zero, so absent inputs normalize to 0.00.
func Normalize(v decimal.Decimal) decimal.Decimal {
	return v.Round(Scale)
}

// ApplyDiscount returns v reduced by percent, computed at four fractional
// digits and then normalized. Percent outside [0,100] returns v unchanged.
func ApplyDiscount(v decimal.Decimal, percent int) decimal.Decimal {
	if percent < 0 || percent > 100 {
		return v
	}
	toPay := decimal.NewFromInt(int64(100 - percent))
	result := v.Mul(toPay).DivRound(hundred, intermediateScale)
	return Normalize(result)
}

// DiscountAmount returns the savings of paying v at the given percent.
// Percent outside [0,100] yields zero. The result keeps natural subtraction
// scale rather than being forced to two digits.
func DiscountAmount(v decimal.Decimal, percent int) decimal.Decimal {
	if percent < 0 || percent > 100 {
		return decimal.Zero
	}
	return v.Sub(ApplyDiscount(v, percent))
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}
