// Package money implements the exact base-10 rational arithmetic that every
// monetary value in the engine is closed over. No binary floats appear on
// the value path.
package money

import (
	"github.com/shopspring/decimal"
)

// Amount is an exact signed decimal value.
type Amount = decimal.Decimal

// Zero is the additive identity.
var Zero = decimal.Zero

// One is the multiplicative identity.
var One = decimal.NewFromInt(1)

// SetPrecision configures the number of decimal places kept when a
// division does not terminate. This is a count of digits after the
// decimal point, not of significant digits: a quotient smaller than 1
// keeps fewer than digits significant digits. The engine's configuration
// requires at least 28; callers are expected to enforce that before
// calling this.
func SetPrecision(digits int32) {
	decimal.DivisionPrecision = int(digits)
}

// NewFromString parses a decimal literal. It is a thin re-export so callers
// never need to import shopspring/decimal directly.
func NewFromString(s string) (Amount, error) {
	return decimal.NewFromString(s)
}

// NewFromFloat converts a float64 into an Amount. Reserved for boundary
// adapters ingesting a third-party API that only hands back float64 (e.g.
// a JSON price feed); never use this on a value that started out decimal.
func NewFromFloat(f float64) Amount {
	return decimal.NewFromFloat(f)
}

// RoundDown formats amt for external display using round-down (floor) on
// the absolute value before sign re-application, per the ledger's
// conservative display stance: rounding never increases the magnitude of
// a value, so neither a gain nor a loss is shown larger than it is.
func RoundDown(amt Amount, places int32) Amount {
	if amt.IsZero() {
		return amt
	}
	neg := amt.IsNegative()
	abs := amt.Abs()
	floored := abs.Truncate(places)
	if neg {
		return floored.Neg()
	}
	return floored
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
