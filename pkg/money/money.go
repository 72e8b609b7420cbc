// Package money holds the decimal helpers used for invoice arithmetic.
//
// Amounts are stored as signed minor units (paise) and converted to
// decimal rupees for tax math. Every figure that ends up on a document is
// rounded to two decimals on its own; callers never round a sum of raw
// values.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimals printed on invoices.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Zero is the decimal zero value, kept for readability at call sites.
var Zero = decimal.Zero

// FromMinor converts paise to rupees without rounding.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}

// ToMinor converts rupees to paise, rounding half away from zero.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// Round2 rounds to two decimals, half away from zero.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Places)
}

// Percent returns amount * rate / 100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// Sum adds values as-is. Callers pass already-rounded figures.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// FormatINR renders an amount with Indian digit grouping (12,34,567.89).
// symbol is prepended with a single space when not empty.
func FormatINR(amount decimal.Decimal, symbol string) string {
	amount = Round2(amount)
	negative := amount.IsNegative()
	fixed := amount.Abs().StringFixed(Places)

	intPart, fracPart := fixed, ""
	if idx := strings.IndexByte(fixed, '.'); idx >= 0 {
		intPart, fracPart = fixed[:idx], fixed[idx:]
	}

	out := groupIndian(intPart) + fracPart
	if negative {
		out = "-" + out
	}
	if symbol != "" {
		out = symbol + " " + out
	}
	return out
}

// FormatPlain renders an amount with two decimals and no grouping.
func FormatPlain(amount decimal.Decimal) string {
	return Round2(amount).StringFixed(Places)
}

// FormatRate renders a percentage without trailing zeros ("18", "2.5").
func FormatRate(rate decimal.Decimal) string {
	return rate.String() + "%"
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
