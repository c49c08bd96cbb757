package brokerage_test

import (
	"testing"

	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedFeeModel_IgnoresFillSize(t *testing.T) {
	m := brokerage.FixedFeeModel{Amount: money.NewFromFloat(1.5)}
	assert.True(t, m.Fee(money.NewFromInt(1), money.NewFromInt(1)).Equal(money.NewFromFloat(1.5)))
	assert.True(t, m.Fee(money.NewFromInt(1000), money.NewFromInt(500)).Equal(money.NewFromFloat(1.5)))
}

func TestPercentageFeeModel_ScalesWithNotional(t *testing.T) {
	m := brokerage.PercentageFeeModel{Rate: money.NewFromFloat(0.001)}
	fee := m.Fee(money.NewFromInt(-10), money.NewFromInt(100)) // short fill, fee is still positive
	assert.True(t, fee.Equal(money.NewFromFloat(1)))
}

func TestFeeRegistry_ResolveUnknownIsError(t *testing.T) {
	r := brokerage.DefaultFeeRegistry()
	_, err := r.Resolve(security.ModelID("fee.unregistered"))
	assert.Error(t, err)
}

func TestFeeRegistry_SetOverridesModel(t *testing.T) {
	r := brokerage.DefaultFeeRegistry()
	r.Set(security.FeeModelFixed, brokerage.FixedFeeModel{Amount: money.NewFromInt(2)})
	m, err := r.Resolve(security.FeeModelFixed)
	require.NoError(t, err)
	assert.True(t, m.Fee(money.Zero, money.Zero).Equal(money.NewFromInt(2)))
}
