package brokerage

import (
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/order"
)

// ConvertOrderType maps the internal order type to its wire counterpart.
// MarketOnOpen and MarketOnClose both collapse to a plain market order at
// the wire: the distinction only matters for when the Order Router submits
// it, not how the brokerage executes it (spec §4.5).
func ConvertOrderType(t order.Type) WireOrderType {
	switch t {
	case order.TypeLimit:
		return WireTypeLimit
	case order.TypeStopMarket:
		return WireTypeStop
	case order.TypeStopLimit:
		return WireTypeStopLimit
	default:
		return WireTypeMarket
	}
}

// ConvertDirection derives the brokerage's holdings-aware direction label
// from the signed order quantity and the current holding quantity for the
// same symbol (spec §4.5's table). A buy (positive orderQty) against a
// flat or long book opens or adds to a long; against a short book it
// closes (wholly or partially) the short. The symmetric rule applies to
// sells.
func ConvertDirection(currentHoldingQty, orderQty money.Decimal) WireDirection {
	buy := money.IsPositive(orderQty)

	switch {
	case money.IsZero(currentHoldingQty):
		if buy {
			return WireDirectionOpenLong
		}
		return WireDirectionOpenShort
	case money.IsPositive(currentHoldingQty):
		if buy {
			return WireDirectionAddLong
		}
		return WireDirectionCloseLong
	default: // currentHoldingQty negative: short book
		if buy {
			return WireDirectionCloseShort
		}
		return WireDirectionAddShort
	}
}

// IsShortSide reports whether d is a sell-side direction (opening or
// adding to a short, or closing a long). The reconciler uses this to
// turn a broker-reported unsigned fill quantity back into the engine's
// signed convention: a short-side fill reduces the internal (signed)
// holding even though the wire quantity itself is always non-negative.
func IsShortSide(d WireDirection) bool {
	return d == WireDirectionOpenShort || d == WireDirectionAddShort || d == WireDirectionCloseLong
}

// ConvertQuantity returns the unsigned wire quantity for a signed internal
// order quantity. Direction, not sign, carries the buy/sell distinction at
// the wire (spec §4.5).
func ConvertQuantity(qty money.Decimal) money.Decimal {
	return money.Abs(qty)
}

// ConvertStatus maps a brokerage-reported wire status to the internal
// lifecycle status. Expired and Rejected both map to Invalid: spec §4.5
// requires the reconciler to treat both as "this order never traded and
// will not trade," which is the same terminal disposition as a pre-order
// check failure.
func ConvertStatus(ws WireStatus) order.Status {
	switch ws {
	case WireStatusNew, WireStatusPendingNew:
		return order.StatusNew
	case WireStatusPartiallyFilled:
		return order.StatusPartiallyFilled
	case WireStatusFilled:
		return order.StatusFilled
	case WireStatusCanceled:
		return order.StatusCanceled
	case WireStatusExpired, WireStatusRejected:
		return order.StatusInvalid
	default:
		return order.StatusInvalid
	}
}

// ConvertStatusToWire maps an internal status back to the nearest wire
// status, used by the mock adapter to synthesize brokerage responses.
// Invalid has no single wire origin, so it is reported as Rejected.
func ConvertStatusToWire(s order.Status) WireStatus {
	switch s {
	case order.StatusNew:
		return WireStatusNew
	case order.StatusSubmitted:
		return WireStatusPendingNew
	case order.StatusPartiallyFilled:
		return WireStatusPartiallyFilled
	case order.StatusFilled:
		return WireStatusFilled
	case order.StatusCanceled:
		return WireStatusCanceled
	default:
		return WireStatusRejected
	}
}
