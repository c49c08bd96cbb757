package contingent_test

import (
	"testing"

	"github.com/quantrail/corebook/internal/contingent"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossesZero(t *testing.T) {
	assert.True(t, contingent.CrossesZero(money.NewFromInt(5), money.NewFromInt(-12)))
	assert.False(t, contingent.CrossesZero(money.NewFromInt(5), money.NewFromInt(-3)))
	assert.False(t, contingent.CrossesZero(money.NewFromInt(5), money.NewFromInt(10)))
}

func TestSplit_ProducesClosingAndOpeningChildren(t *testing.T) {
	req := order.Request{Quantity: money.NewFromInt(-12), Type: order.TypeMarket}
	closing, opening := contingent.Split(req, money.NewFromInt(5))

	assert.True(t, closing.Quantity.Equal(money.NewFromInt(-5)))
	assert.True(t, opening.Quantity.Equal(money.NewFromInt(-7)))
}

func TestSplit_ConvertsStopComponentsOnOpeningChild(t *testing.T) {
	stop := money.NewFromInt(95)
	req := order.Request{Quantity: money.NewFromInt(-12), Type: order.TypeStopMarket, StopPrice: &stop}
	_, opening := contingent.Split(req, money.NewFromInt(5))

	assert.Equal(t, order.TypeMarket, opening.Type)
	assert.Nil(t, opening.StopPrice)
}

func TestManager_DequeueNextDestroysQueueWhenEmpty(t *testing.T) {
	m := contingent.NewManager()
	opening := order.Request{Quantity: money.NewFromInt(-7)}
	m.Create(1, opening)

	assert.True(t, m.Active(1))

	next, ok := m.DequeueNext(1)
	require.True(t, ok)
	assert.True(t, next.Quantity.Equal(money.NewFromInt(-7)))
	assert.False(t, m.Active(1))

	_, ok = m.DequeueNext(1)
	assert.False(t, ok)
}

func TestManager_DestroyRemovesQueue(t *testing.T) {
	m := contingent.NewManager()
	m.Create(2, order.Request{})
	m.Destroy(2)
	_, ok := m.Get(2)
	assert.False(t, ok)
}
