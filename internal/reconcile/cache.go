package reconcile

import (
	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/money"
)

// CachedOpenOrder is the reconciler's last known brokerage view of an
// open order, plus the emittedFee flag that makes fee delivery
// exactly-once (spec §3 "CachedOpenOrder", §4.4 "processUpdate"). The
// Fill Reconciler exclusively owns this record.
type CachedOpenOrder struct {
	BrokerageID string
	OrderID     core.OrderId
	Symbol      string
	Direction   brokerage.WireDirection

	Status    brokerage.WireStatus
	Remaining money.Decimal
	Executed  money.Decimal

	// EmittedFee is set the first time a fee is charged against this
	// order; every later OrderEvent for the same brokerage id carries a
	// zero fee (spec §8: "No two OrderEvents emit a non-zero fee for the
	// same internal order id").
	EmittedFee bool
}
