package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses an exact decimal amount such as "10" or "0.015".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// IsExhausted reports whether a remaining volume or locked amount is used up.
func IsExhausted(d decimal.Decimal) bool {
	return d.LessThanOrEqual(decimal.Zero)
}

// TruncateFee rounds a fee toward zero to the given number of decimal places.
func TruncateFee(fee decimal.Decimal, places int32) decimal.Decimal {
	return fee.RoundDown(places)
}
