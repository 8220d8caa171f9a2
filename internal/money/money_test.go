package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.True(t, Round(dec("857.8125")).Equal(dec("857.81")))
	assert.True(t, Round(dec("0.005")).Equal(dec("0.01")))
	assert.True(t, Round(dec("-0.005")).Equal(dec("-0.01")))
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(1, 3).Equal(dec("33.33")))
	assert.True(t, Percent(2, 3).Equal(dec("66.67")))
	assert.True(t, Percent(5, 0).IsZero())
}

func TestPositive(t *testing.T) {
	assert.True(t, Positive(dec("0.01")))
	assert.False(t, Positive(decimal.Zero))
	assert.False(t, Positive(dec("-1")))
}
