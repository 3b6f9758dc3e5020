package utils

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// FormatNumber renders v with thousands separators and at most two decimals.
// NaN renders as "n/a".
func FormatNumber(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// FormatInt renders n with thousands separators.
func FormatInt(n int) string {
	return printer.Sprintf("%d", n)
}
