// Package core provides numeric parsing for bill form fields.
//
// Form values arrive as free text. Amount and percentage are read as whole
// numbers: "348" and "348.90" both read as 348, and text that is not a number
// does not parse at all.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a form amount to an integer amount.
//
// It accepts dot and comma decimal separators and truncates the fractional
// part. The second return is false when the input is not numeric; callers keep
// the field unset in that case rather than rejecting the bill.
//
// Examples:
//
//	ParseAmount("348")    -> 348, true
//	ParseAmount("12,75")  -> 12, true
//	ParseAmount("abc")    -> 0, false
//	ParseAmount("1e3")    -> 0, false
func ParseAmount(s string) (int64, bool) {
	d, ok := parseDecimal(s)
	if !ok || !inRange(d, math.MinInt64, math.MaxInt64) {
		return 0, false
	}
	return d.IntPart(), true
}

// ParsePct converts the VAT percentage, falling back to DefaultPct when the
// value is blank or unparseable.
func ParsePct(s string) int {
	d, ok := parseDecimal(s)
	if !ok || !inRange(d, math.MinInt, math.MaxInt) {
		return DefaultPct
	}
	return int(d.IntPart())
}

// NormalizeVAT trims the VAT field and normalizes a decimal comma.
// Non-numeric input is kept verbatim.
func NormalizeVAT(s string) string {
	s = strings.TrimSpace(s)
	if d, ok := parseDecimal(s); ok {
		return d.String()
	}
	return s
}

// inRange reports whether the integer part of d fits in [lo, hi].
func inRange(d decimal.Decimal, lo, hi int64) bool {
	i := d.Truncate(0)
	return !i.LessThan(decimal.NewFromInt(lo)) && !i.GreaterThan(decimal.NewFromInt(hi))
}

// parseDecimal reads plain decimal notation only; exponents such as "1e3"
// are not numbers in the form.
func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
