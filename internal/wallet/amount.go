package wallet

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorDigits is the number of decimal places kept for every amount.
const MinorDigits = 2

// Amount is a monetary value in minor units (hundredths).
type Amount int64

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// maxScale bounds the decimal exponent and the number of major-unit digits
// accepted before any arithmetic.
const maxScale = 18

// Major converts a whole number of major units into an Amount.
func Major(units int64) Amount {
	return Amount(units * 100)
}

// ParseAmount reads a decimal string such as "1,250.50" into minor units.
// More than two fractional digits, non-numeric input and values that do not
// fit into an int64 are rejected with ErrInvalidAmount.
func ParseAmount(s string) (Amount, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal value in major units into minor units.
// The exponent is bounded first: decimal expands it into a big integer on
// comparison, and "1e999999999" is a short string.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	exp := int64(d.Exponent())
	if exp < -maxScale || exp > maxScale || int64(d.NumDigits())+exp > maxScale {
		return 0, ErrInvalidAmount
	}
	minor := d.Shift(MinorDigits)
	if !minor.IsInteger() || minor.Abs().GreaterThan(maxMinor) {
		return 0, ErrInvalidAmount
	}
	return Amount(minor.IntPart()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -MinorDigits)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(MinorDigits)
}
