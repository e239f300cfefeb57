// Package core provides money parsing and handling utilities.
//
// Amounts are signed decimals end to end. Rounding happens only when a value is
// rendered for display, through FormatCurrency and FormatPercent.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	amountReplacer = strings.NewReplacer("$", "", ",", "")

	// Plain positional notation only; exponents would let one cell expand into
	// millions of digits.
	amountPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

func init() {
	// Amounts travel as JSON numbers, e.g. {"amount":-4.5}.
	decimal.MarshalJSONWithoutQuotes = true
}

// maxAmountDigits bounds the number of digits accepted in one amount cell.
const maxAmountDigits = 24

// ParseAmount converts a statement amount cell to a signed decimal.
//
// Currency symbols ($) and thousands separators (,) are stripped before parsing,
// so "-$1,234.50" and "$-1,234.50" both yield -1234.50.
//
// Examples:
//
//	ParseAmount("-$4.50")   -> -4.50, nil
//	ParseAmount("1,200")    -> 1200, nil
//	ParseAmount("12 EUR")   -> 0, ErrInvalidAmount
//	ParseAmount("1e6")      -> 0, ErrInvalidAmount
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(amountReplacer.Replace(raw))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amountPattern.MatchString(s) {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "amount is not a number"}
	}
	if digits := len(s) - strings.Count(s, ".") - strings.Count(s, "-") - strings.Count(s, "+"); digits > maxAmountDigits {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "amount has too many digits"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "amount is not a number"}
	}
	return d, nil
}

// Percent returns part/whole*100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// FormatCurrency renders a monetary value with two decimal places.
func FormatCurrency(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatPercent renders a percentage with one decimal place.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(1)
}
