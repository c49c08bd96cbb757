// Package brokerage translates between the engine's internal order
// vocabulary and a brokerage's wire representation, and defines the
// Broker interface every concrete adapter implements (spec §4.5). The
// interface shape is grounded on the teacher's internal/broker.Broker
// (_examples/newthinker-atlas/internal/broker/types.go), generalized from
// a fixed Buy/Sell side to the holdings-aware direction table spec §4.5
// requires.
package brokerage

import (
	"time"

	"github.com/quantrail/corebook/internal/money"
)

// WireDirection is a brokerage's holdings-aware direction label (spec
// §4.5's table: many brokers distinguish opening a position from closing
// one).
type WireDirection string

const (
	WireDirectionOpenLong   WireDirection = "open_long"
	WireDirectionAddLong    WireDirection = "add_long"
	WireDirectionCloseLong  WireDirection = "close_long"
	WireDirectionOpenShort  WireDirection = "open_short"
	WireDirectionAddShort   WireDirection = "add_short"
	WireDirectionCloseShort WireDirection = "close_short"
)

// WireOrderType is the wire-level order type vocabulary. MarketOnOpen and
// MarketOnClose collapse to Market at the wire (spec §4.5).
type WireOrderType string

const (
	WireTypeMarket    WireOrderType = "market"
	WireTypeLimit     WireOrderType = "limit"
	WireTypeStop      WireOrderType = "stop"
	WireTypeStopLimit WireOrderType = "stop_limit"
)

// WireStatus is the brokerage's reported order status vocabulary.
type WireStatus string

const (
	WireStatusNew             WireStatus = "new"
	WireStatusPendingNew      WireStatus = "pending_new"
	WireStatusPartiallyFilled WireStatus = "partially_filled"
	WireStatusFilled          WireStatus = "filled"
	WireStatusCanceled        WireStatus = "canceled"
	WireStatusExpired         WireStatus = "expired"
	WireStatusRejected        WireStatus = "rejected"
)

// WireOrder is the brokerage's view of an order, as returned by
// GetOpenOrders (spec §6 "Brokerage wire contract").
type WireOrder struct {
	ID              string
	Symbol          string
	Direction       WireDirection
	Type            WireOrderType
	Status          WireStatus
	Quantity        money.Decimal
	Remaining       money.Decimal
	Executed        money.Decimal
	LastFillPrice   money.Decimal
	LastFillQty     money.Decimal
	TransactionTime time.Time
}

// WireSubmitResult is the outcome of an order submission (spec §6).
type WireSubmitResult struct {
	ID     string
	OK     bool
	Errors []string
}

// WirePosition mirrors the brokerage's position listing.
type WirePosition struct {
	Symbol      string
	Quantity    money.Decimal
	AverageCost money.Decimal
}

// WireBalance mirrors the brokerage's cash balance listing.
type WireBalance struct {
	Currency string
	Amount   money.Decimal
	Rate     money.Decimal // against account currency; 1 for the account currency itself
}
