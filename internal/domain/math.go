package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const usdPrecision = 2

var hundred = decimal.NewFromInt(100)

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// PercentChange computes (current - previous) / previous * 100.
// Returns zero when previous is not positive, never a division fault.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.Sign() <= 0 {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred)
}

// FormatUSD rounds to 2 decimal places and strips trailing zeros.
func FormatUSD(d decimal.Decimal) string {
	s := d.Round(usdPrecision).StringFixed(usdPrecision)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
