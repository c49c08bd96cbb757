// Package order defines the logical order vocabulary: the instruction
// types a strategy can submit, the ticket handed back to it, the event
// stream describing state transitions, and the closed set of rejection
// reasons produced by the pre-order check pipeline (spec §3, §7).
package order

import (
	"time"

	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
)

// Type is the order variant (spec §3).
type Type string

const (
	TypeMarket        Type = "Market"
	TypeMarketOnOpen  Type = "MarketOnOpen"
	TypeMarketOnClose Type = "MarketOnClose"
	TypeLimit         Type = "Limit"
	TypeStopMarket    Type = "StopMarket"
	TypeStopLimit     Type = "StopLimit"
)

// Duration is how long an order remains active absent a fill or cancel.
type Duration string

const (
	DurationDay Duration = "Day"
	DurationGTC Duration = "GTC"
)

// Status is the brokerage order lifecycle state (spec §4.4).
type Status string

const (
	StatusNew            Status = "New"
	StatusSubmitted      Status = "Submitted"
	StatusPartiallyFilled Status = "PartiallyFilled"
	StatusFilled         Status = "Filled"
	StatusCanceled       Status = "Canceled"
	StatusInvalid        Status = "Invalid"
)

// IsTerminal reports whether s is one of the terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusInvalid
}

// validTransitions encodes spec §4.4's state machine:
//
//	New              -> {Submitted, PartiallyFilled, Filled, Canceled, Invalid}
//	Submitted        -> {PartiallyFilled, Filled, Canceled, Invalid}
//	PartiallyFilled  -> {PartiallyFilled, Filled, Canceled}
//
// Apart from the non-terminal self-transitions CanTransition allows, any
// pair not listed here is a protocol violation.
var validTransitions = map[Status]map[Status]bool{
	StatusNew: {
		StatusSubmitted:       true,
		StatusPartiallyFilled: true,
		StatusFilled:          true,
		StatusCanceled:        true,
		StatusInvalid:         true,
	},
	StatusSubmitted: {
		StatusPartiallyFilled: true,
		StatusFilled:          true,
		StatusCanceled:        true,
		StatusInvalid:         true,
	},
	StatusPartiallyFilled: {
		StatusPartiallyFilled: true,
		StatusFilled:          true,
		StatusCanceled:        true,
	},
}

// CanTransition reports whether moving from -> to is a legal state
// machine transition. A non-terminal status transitioning to itself (e.g.
// repeated PartiallyFilled observations) is legal; terminal states accept
// no further transitions, not even to themselves.
func CanTransition(from, to Status) bool {
	if from == to {
		return from == StatusPartiallyFilled || !from.IsTerminal()
	}
	if from.IsTerminal() {
		return false
	}
	return validTransitions[from][to]
}

// ErrProtocolViolation is returned when the reconciler observes a
// transition CanTransition rejects.
var ErrProtocolViolation = &core.Error{Code: "PROTOCOL_VIOLATION", Message: "illegal order status transition"}

// Request is a submit-request: the fully-formed instruction produced by
// the router after pre-order checks pass, prior to Transaction Manager
// id assignment and brokerage submission.
type Request struct {
	Symbol    security.Symbol
	SymbolID  core.SymbolId
	Type      Type
	Quantity  money.Decimal // signed: positive buy, negative sell
	LimitPrice *money.Decimal
	StopPrice  *money.Decimal
	Duration   Duration
	Tag        string
}

// Order is the logical instruction record held by the Transaction Manager
// once an internal id has been assigned (spec §3).
type Order struct {
	ID            core.OrderId
	Request       Request
	SubmittedUTC  time.Time
	BrokerageIDs  []string // one per submission; zero-crossing orders may have two
}

// Event is an immutable record of a state transition (spec §3).
type Event struct {
	OrderID      core.OrderId
	UTCTime      time.Time
	Status       Status
	FillPrice    money.Decimal
	FillQuantity money.Decimal
	Fee          money.Decimal
	Message      string
}
