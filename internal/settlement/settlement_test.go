package settlement_test

import (
	"testing"
	"time"

	"github.com/quantrail/corebook/internal/cashbook"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
	"github.com/quantrail/corebook/internal/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usHours() security.Hours {
	return security.NewHours(time.UTC, 9*time.Hour+30*time.Minute, 16*time.Hour)
}

func TestImmediateModel_CreditsOnFill(t *testing.T) {
	cb := cashbook.New("USD")
	q := settlement.NewQueue()
	settlement.ImmediateModel{}.Settle(q, cb, "USD", money.NewFromInt(10000), time.Now(), usHours())

	c, _ := cb.Get("USD")
	assert.True(t, c.Amount.Equal(money.NewFromInt(10000)))
	assert.Equal(t, 0, q.Len())
}

func TestDelayedModel_BuyOutflowSettlesImmediately(t *testing.T) {
	cb := cashbook.New("USD")
	q := settlement.NewQueue()
	model := settlement.DelayedModel{TradingDays: 2, TimeOfDay: 16 * time.Hour}
	model.Settle(q, cb, "USD", money.NewFromInt(-5000), time.Now(), usHours())

	c, _ := cb.Get("USD")
	assert.True(t, c.Amount.Equal(money.NewFromInt(-5000)))
	assert.Equal(t, 0, q.Len())
}

func TestDelayedModel_SellProceedsGoToUnsettledQueue(t *testing.T) {
	cb := cashbook.New("USD")
	q := settlement.NewQueue()
	model := settlement.DelayedModel{TradingDays: 2, TimeOfDay: 16 * time.Hour}

	// Monday.
	fillTime := time.Date(2024, 7, 1, 16, 0, 0, 0, time.UTC)
	model.Settle(q, cb, "USD", money.NewFromInt(10000), fillTime, usHours())

	c, _ := cb.Get("USD")
	assert.True(t, c.Amount.IsZero())
	require.Equal(t, 1, q.Len())

	drained := q.DrainDue(cb, fillTime)
	assert.Empty(t, drained)

	settleDay := time.Date(2024, 7, 3, 16, 0, 0, 0, time.UTC) // Wednesday
	drained = q.DrainDue(cb, settleDay)
	require.Len(t, drained, 1)
	c, _ = cb.Get("USD")
	assert.True(t, c.Amount.Equal(money.NewFromInt(10000)))
}

func TestQueue_DrainDue_OrdersBySettlementTime(t *testing.T) {
	cb := cashbook.New("USD")
	q := settlement.NewQueue()
	base := time.Date(2024, 7, 1, 16, 0, 0, 0, time.UTC)

	q.Push(settlement.Entry{SettlementTimeUTC: base.Add(2 * time.Hour), Currency: "USD", Amount: money.NewFromInt(2)})
	q.Push(settlement.Entry{SettlementTimeUTC: base.Add(1 * time.Hour), Currency: "USD", Amount: money.NewFromInt(1)})

	drained := q.DrainDue(cb, base.Add(3*time.Hour))
	require.Len(t, drained, 2)
	assert.True(t, drained[0].Amount.Equal(money.NewFromInt(1)))
	assert.True(t, drained[1].Amount.Equal(money.NewFromInt(2)))
}
