package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.99", Format(1299))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "0.00", Format(0))
	assert.Equal(t, "-8.00", Format(-800))
	assert.Equal(t, "USD 42.00", FormatWithCurrency(4200, "USD"))
}

func TestPercentOf_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(104), PercentOf(1299, decimal.NewFromInt(8)))
	assert.Equal(t, int64(15), PercentOf(299, decimal.NewFromInt(5)))
	assert.Equal(t, int64(1000), PercentOf(10000, decimal.NewFromInt(10)))
	assert.Equal(t, int64(1), PercentOf(10, decimal.RequireFromString("5")))
}

func TestMulDiv(t *testing.T) {
	assert.Equal(t, int64(33), MulDiv(100, 101, 301))
	assert.Equal(t, int64(500_000_000_000), MulDiv(1_000_000_000_000, 2_000_000_000_000, 4_000_000_000_000))
	assert.Equal(t, int64(-3), MulDiv(-10, 1, 3))
}
