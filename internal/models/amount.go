package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as NUMERIC(15,2). Floating point is never used for
// money — volume aggregation must not drift.
const (
	amountMaxScale  = 2
	amountMaxDigits = 13 // integer digits in NUMERIC(15,2)
)

var amountUpperBound = decimal.New(1, amountMaxDigits) // 10^13

// ParseAmount parses and validates a deal amount. The amount must be a
// positive decimal with at most two fractional digits.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a decimal number", ErrValidation, s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if amount.Exponent() < -amountMaxScale {
		return decimal.Zero, fmt.Errorf("%w: amount has more than %d decimal places", ErrValidation, amountMaxScale)
	}
	if amount.GreaterThanOrEqual(amountUpperBound) {
		return decimal.Zero, fmt.Errorf("%w: amount too large", ErrValidation)
	}
	return amount, nil
}
