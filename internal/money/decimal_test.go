package money_test

import (
	"testing"

	"github.com/quantrail/corebook/internal/money"
	"github.com/stretchr/testify/assert"
)

func TestRoundBank_RoundsHalfToEven(t *testing.T) {
	// 2.5 rounds to 2, 3.5 rounds to 4 under banker's rounding.
	assert.True(t, money.RoundBank(money.NewFromFloat(2.5), 0).Equal(money.NewFromInt(2)))
	assert.True(t, money.RoundBank(money.NewFromFloat(3.5), 0).Equal(money.NewFromInt(4)))
}

func TestQuantizeMinorUnit(t *testing.T) {
	amount := money.NewFromFloat(10.005)
	got := money.QuantizeMinorUnit(amount, 2)
	assert.True(t, got.Equal(money.NewFromFloat(10.00)), "got %s", got)
}

func TestClamp(t *testing.T) {
	lo, hi := money.NewFromInt(1), money.NewFromInt(10)
	assert.True(t, money.Clamp(money.NewFromInt(-5), lo, hi).Equal(lo))
	assert.True(t, money.Clamp(money.NewFromInt(50), lo, hi).Equal(hi))
	assert.True(t, money.Clamp(money.NewFromInt(5), lo, hi).Equal(money.NewFromInt(5)))
}

func TestSignHelpers(t *testing.T) {
	assert.True(t, money.IsPositive(money.NewFromInt(1)))
	assert.True(t, money.IsNegative(money.NewFromInt(-1)))
	assert.True(t, money.IsZero(money.Zero))
	assert.Equal(t, 1, money.Sign(money.NewFromInt(5)))
	assert.Equal(t, -1, money.Sign(money.NewFromInt(-5)))
}
