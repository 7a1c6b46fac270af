// Package format renders numbers for display on the dashboard.
package format

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Fixed returns the value rounded half away from zero to two decimal places
// (e.g., "161.03").
func Fixed(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := Grouped(math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Grouped returns a two-decimal string with thousands separators (e.g., "-1,234.56").
func Grouped(amount float64) string {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return printer.Sprintf("%.2f", rounded)
}

// Percent returns a one-decimal percentage (e.g., "92.5%").
func Percent(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(1) + "%"
}

// Kilobytes returns a byte count as one-decimal kilobytes (e.g., "2.0 KB").
func Kilobytes(size int64) string {
	return decimal.NewFromInt(size).Div(decimal.NewFromInt(1024)).StringFixed(1) + " KB"
}
