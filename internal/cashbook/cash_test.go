package cashbook_test

import (
	"testing"

	"github.com/quantrail/corebook/internal/cashbook"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AccountCurrencyFixedAtRateOne(t *testing.T) {
	cb := cashbook.New("USD")
	c, ok := cb.Get("USD")
	require.True(t, ok)
	assert.True(t, c.Rate.Equal(money.One))

	err := cb.SetRate("USD", money.NewFromInt(2))
	assert.ErrorIs(t, err, cashbook.ErrAccountCurrencyRateFixed)
}

func TestAddAmount_AccumulatesBalance(t *testing.T) {
	cb := cashbook.New("USD")
	cb.AddAmount("USD", money.NewFromInt(100))
	cb.AddAmount("USD", money.NewFromInt(-30))
	c, _ := cb.Get("USD")
	assert.True(t, c.Amount.Equal(money.NewFromInt(70)))
}

func TestConvert_SameCurrencyIsIdentity(t *testing.T) {
	cb := cashbook.New("USD")
	got, err := cb.Convert(money.NewFromInt(50), "USD", "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(money.NewFromInt(50)))
}

func TestConvert_UnknownCurrencyErrors(t *testing.T) {
	cb := cashbook.New("USD")
	_, err := cb.Convert(money.NewFromInt(50), "EUR", "USD")
	assert.Error(t, err)
}

func TestConvert_UsesBothSidesRates(t *testing.T) {
	cb := cashbook.New("USD")
	require.NoError(t, cb.SetRate("EUR", money.NewFromFloat(1.1)))
	cb.Ensure("GBP")
	require.NoError(t, cb.SetRate("GBP", money.NewFromFloat(1.3)))

	got, err := cb.Convert(money.NewFromInt(10), "EUR", "GBP")
	require.NoError(t, err)
	assert.True(t, got.Equal(money.NewFromInt(10).Mul(money.NewFromFloat(1.1)).Div(money.NewFromFloat(1.3))))
}

func TestConvert_RoundTripIsExact(t *testing.T) {
	cb := cashbook.New("USD")
	require.NoError(t, cb.SetRate("EUR", money.NewFromFloat(1.1)))
	cb.Ensure("GBP")
	require.NoError(t, cb.SetRate("GBP", money.NewFromFloat(1.3)))

	x := money.NewFromInt(10)
	toGBP, err := cb.Convert(x, "EUR", "GBP")
	require.NoError(t, err)
	back, err := cb.Convert(toGBP, "GBP", "EUR")
	require.NoError(t, err)
	assert.True(t, back.Equal(x), "round-trip EUR->GBP->EUR must return the original amount exactly, got %s", back)
}

func TestEnsureCurrencyDataFeed_CreatesInvertedSubscriptionWhenNoneExists(t *testing.T) {
	arena := security.NewArena()
	res := cashbook.EnsureCurrencyDataFeed(arena, "USD", "EUR")
	assert.True(t, res.Inverted)
	assert.Equal(t, "USDEUR", res.Symbol.Ticker)

	id, ok := arena.Lookup(res.Symbol)
	require.True(t, ok)
	sec, ok := arena.Get(id)
	require.True(t, ok)
	assert.Equal(t, "EUR", sec.QuoteCurrency)
}

func TestEnsureCurrencyDataFeed_PrefersDirectSubscription(t *testing.T) {
	arena := security.NewArena()
	direct := security.Symbol{Ticker: "EURUSD", Type: security.TypeForex, Market: "FX"}
	arena.Subscribe(security.Security{Symbol: direct})

	res := cashbook.EnsureCurrencyDataFeed(arena, "USD", "EUR")
	assert.False(t, res.Inverted)
	assert.Equal(t, direct, res.Symbol)
}

func TestApplyRateUpdate_DividesWhenInverted(t *testing.T) {
	cb := cashbook.New("USD")
	feed := cashbook.FeedResult{Inverted: true}
	require.NoError(t, cashbook.ApplyRateUpdate(cb, "EUR", feed, money.NewFromFloat(0.9)))
	c, _ := cb.Get("EUR")
	assert.True(t, c.Rate.Equal(money.One.Div(money.NewFromFloat(0.9))))
}

func TestTotalInAccountCurrency_SkipsZeroRateEntries(t *testing.T) {
	cb := cashbook.New("USD")
	cb.AddAmount("USD", money.NewFromInt(100))
	cb.Ensure("EUR")
	cb.AddAmount("EUR", money.NewFromInt(50)) // no rate set yet: excluded
	assert.True(t, cb.TotalInAccountCurrency().Equal(money.NewFromInt(100)))
}
