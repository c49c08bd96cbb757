package order

import "github.com/quantrail/corebook/internal/core"

// Reason is the closed set of order-level rejection kinds produced by the
// pre-order check pipeline (spec §7). Each is surfaced to the strategy via
// the ticket's Invalid status and carried as the Code on a *core.Error so
// callers can errors.Is against either the Reason constant or the wrapping
// error.
var (
	ReasonMissingSecurity                       = &core.Error{Code: "MissingSecurity", Message: "security is not in the subscribed set"}
	ReasonZeroQuantity                          = &core.Error{Code: "ZeroQuantity", Message: "quantity is zero or below the symbol's lot size"}
	ReasonNonTradableSecurity                   = &core.Error{Code: "NonTradableSecurity", Message: "security is not marked tradable"}
	ReasonExchangeNotOpen                       = &core.Error{Code: "ExchangeNotOpen", Message: "exchange is not open"}
	ReasonSecurityPriceZero                     = &core.Error{Code: "SecurityPriceZero", Message: "security price is not strictly positive"}
	ReasonQuoteCurrencyRequired                 = &core.Error{Code: "QuoteCurrencyRequired", Message: "quote currency missing from cash book"}
	ReasonConversionRateZero                    = &core.Error{Code: "ConversionRateZero", Message: "quote currency conversion rate is zero"}
	ReasonForexBaseAndQuoteCurrenciesRequired   = &core.Error{Code: "ForexBaseAndQuoteCurrenciesRequired", Message: "forex base or quote currency missing from cash book"}
	ReasonForexConversionRateZero               = &core.Error{Code: "ForexConversionRateZero", Message: "forex base currency conversion rate is zero"}
	ReasonSecurityHasNoData                     = &core.Error{Code: "SecurityHasNoData", Message: "security has no data points"}
	ReasonExceededMaximumOrders                 = &core.Error{Code: "ExceededMaximumOrders", Message: "exceeded the maximum number of orders for this run"}
	ReasonMarketOnCloseOrderTooLate              = &core.Error{Code: "MarketOnCloseOrderTooLate", Message: "market-on-close submission window has passed"}
)

// allReasons preserves the §7 check ordering for documentation/iteration
// purposes (e.g. listing valid codes in an API error payload).
var allReasons = []*core.Error{
	ReasonMissingSecurity,
	ReasonZeroQuantity,
	ReasonNonTradableSecurity,
	ReasonExchangeNotOpen,
	ReasonSecurityPriceZero,
	ReasonQuoteCurrencyRequired,
	ReasonConversionRateZero,
	ReasonForexBaseAndQuoteCurrenciesRequired,
	ReasonForexConversionRateZero,
	ReasonSecurityHasNoData,
	ReasonExceededMaximumOrders,
	ReasonMarketOnCloseOrderTooLate,
}

// Reasons returns the closed set of order-level rejection reasons.
func Reasons() []*core.Error {
	out := make([]*core.Error, len(allReasons))
	copy(out, allReasons)
	return out
}

// ReasonOneOrderPerSymbol rejects a new submission for a symbol that
// already has an open brokerage-tracked order, per the single-outstanding-
// symbol rule (spec §4.3). Not part of the §4.2 pre-order pipeline's
// closed set; the Router applies it after the pipeline passes.
var ReasonOneOrderPerSymbol = &core.Error{Code: "OneOrderPerSymbol", Message: "symbol already has an open brokerage-tracked order"}
