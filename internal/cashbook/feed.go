package cashbook

import (
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
)

// FeedResult describes the Forex/Cfd subscription ensureCurrencyDataFeed
// resolved or created for a non-account currency (spec §4.6).
type FeedResult struct {
	Symbol   security.Symbol
	Inverted bool // true if the subscription is quoted BASE/currency rather than currency/BASE
}

// EnsureCurrencyDataFeed finds or creates a Forex/Cfd subscription letting
// currency's cash balance be priced against accountCurrency: it first
// looks for a direct `currency+accountCurrency` pair, then the inverted
// `accountCurrency+currency` pair, subscribing the inverted one if neither
// exists. The returned Inverted flag tells callers whether subsequent
// price updates for that symbol must be divided rather than multiplied to
// get currency's rate (spec §4.6: "record inversion flag; all subsequent
// rate updates divide by price when inverted").
func EnsureCurrencyDataFeed(arena *security.Arena, accountCurrency, currency string) FeedResult {
	direct := security.Symbol{Ticker: currency + accountCurrency, Type: security.TypeForex, Market: "FX"}
	if _, ok := arena.Lookup(direct); ok {
		return FeedResult{Symbol: direct, Inverted: false}
	}

	inverted := security.Symbol{Ticker: accountCurrency + currency, Type: security.TypeForex, Market: "FX"}
	if _, ok := arena.Lookup(inverted); ok {
		return FeedResult{Symbol: inverted, Inverted: true}
	}

	arena.Subscribe(security.Security{
		Symbol:        inverted,
		QuoteCurrency: currency,
		Properties:    security.DefaultForexProperties(),
	})
	return FeedResult{Symbol: inverted, Inverted: true}
}

// ApplyRateUpdate sets cb's rate for currency from a fresh price quoted on
// feed's symbol, dividing when the feed is inverted (spec §4.6).
func ApplyRateUpdate(cb *CashBook, currency string, feed FeedResult, price money.Decimal) error {
	rate := price
	if feed.Inverted {
		if money.IsZero(price) {
			return nil
		}
		rate = money.One.Div(price)
	}
	return cb.SetRate(currency, rate)
}
