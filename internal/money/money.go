// Package money holds the decimal conventions shared by every monetary field.
package money

import "github.com/shopspring/decimal"

// Places is the number of fractional digits stored for currency amounts.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round rounds an amount half away from zero to currency precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Positive reports whether d is strictly greater than zero.
func Positive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// Percent returns part/whole*100 rounded to currency precision, or zero when
// whole is zero.
func Percent(part, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return Round(decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)))
}
