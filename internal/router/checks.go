// Package router implements the Order Router: the pre-order check
// pipeline and the strategy-facing operations (order, limit, stopMarket,
// stopLimit, marketOnOpen, marketOnClose, liquidate, setHoldings,
// setMaximumOrders) that build on it (spec §4.1, §4.2). Grounded on the
// teacher's risk-checking pipeline
// (_examples/newthinker-atlas/internal/broker/risk.go), generalized from
// a single day-trading-limit check into the spec's ten-check ordered
// pipeline over the engine's own arena-index model.
package router

import (
	"time"

	"github.com/quantrail/corebook/internal/cashbook"
	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/order"
	"github.com/quantrail/corebook/internal/security"
)

// checkInput carries everything a single pre-order check needs to
// evaluate a request.
type checkInput struct {
	req             order.Request
	sec             security.Security
	secFound        bool
	cash            *cashbook.CashBook
	accountCurrency string
	now             time.Time
	ordersSubmitted int64
	maxOrders       int64
}

// check is one pre-order predicate; it returns a non-nil rejection Reason
// on failure, or nil on success.
type check func(checkInput) *core.Error

// checks runs in spec §4.2's exact order; the first non-nil result wins.
var checks = []check{
	checkSecurityExists,
	checkQuantityAboveLotSize,
	checkTradable,
	checkMarketOnCloseExchangeOpen,
	checkPriceStrictlyPositive,
	checkQuoteCurrencyConvertible,
	checkForexBaseCurrencyConvertible,
	checkHasData,
	checkMaxOrders,
	checkMarketOnCloseWindow,
}

// RunPipeline runs spec §4.2's ordered pre-order checks against in. It
// returns nil on success.
func RunPipeline(in checkInput) *core.Error {
	for _, c := range checks {
		if reason := c(in); reason != nil {
			return reason
		}
	}
	return nil
}

func checkSecurityExists(in checkInput) *core.Error {
	if !in.secFound || in.req.Symbol.Ticker == "" {
		return order.ReasonMissingSecurity
	}
	return nil
}

func checkQuantityAboveLotSize(in checkInput) *core.Error {
	if in.req.Symbol.Ticker == "" {
		return order.ReasonZeroQuantity
	}
	if money.IsZero(in.req.Quantity) {
		return order.ReasonZeroQuantity
	}
	if money.Abs(in.req.Quantity).Cmp(in.sec.Properties.LotSize) < 0 {
		return order.ReasonZeroQuantity
	}
	return nil
}

func checkTradable(in checkInput) *core.Error {
	if !in.sec.Tradable {
		return order.ReasonNonTradableSecurity
	}
	return nil
}

func checkMarketOnCloseExchangeOpen(in checkInput) *core.Error {
	if in.req.Type != order.TypeMarketOnClose {
		return nil
	}
	if !in.sec.ExchangeHours.IsOpen(in.now) {
		return order.ReasonExchangeNotOpen
	}
	return nil
}

func checkPriceStrictlyPositive(in checkInput) *core.Error {
	if !money.IsPositive(in.sec.Price) {
		return order.ReasonSecurityPriceZero
	}
	return nil
}

func checkQuoteCurrencyConvertible(in checkInput) *core.Error {
	c, ok := in.cash.Get(in.sec.QuoteCurrency)
	if !ok {
		return order.ReasonQuoteCurrencyRequired
	}
	if money.IsZero(c.Rate) {
		return order.ReasonConversionRateZero
	}
	return nil
}

func checkForexBaseCurrencyConvertible(in checkInput) *core.Error {
	if in.req.Symbol.Type != security.TypeForex {
		return nil
	}
	base, quote, ok := in.req.Symbol.BaseQuote()
	if !ok {
		return order.ReasonForexBaseAndQuoteCurrenciesRequired
	}
	baseEntry, baseOK := in.cash.Get(base)
	_, quoteOK := in.cash.Get(quote)
	if !baseOK || !quoteOK {
		return order.ReasonForexBaseAndQuoteCurrenciesRequired
	}
	if money.IsZero(baseEntry.Rate) {
		return order.ReasonForexConversionRateZero
	}
	return nil
}

func checkHasData(in checkInput) *core.Error {
	if !in.sec.HasData {
		return order.ReasonSecurityHasNoData
	}
	return nil
}

func checkMaxOrders(in checkInput) *core.Error {
	if in.maxOrders > 0 && in.ordersSubmitted >= in.maxOrders {
		return order.ReasonExceededMaximumOrders
	}
	return nil
}

// marketOnCloseCutoff is how far ahead of the next market close a
// MarketOnClose order must be submitted (spec §4.2 check 10).
const marketOnCloseCutoff = 16 * time.Minute

func checkMarketOnCloseWindow(in checkInput) *core.Error {
	if in.req.Type != order.TypeMarketOnClose {
		return nil
	}
	nextClose := in.sec.ExchangeHours.NextClose(in.now)
	if in.now.After(nextClose.Add(-marketOnCloseCutoff)) {
		return order.ReasonMarketOnCloseOrderTooLate
	}
	return nil
}
