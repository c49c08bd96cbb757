// Package portfolio owns Holdings and exposes the sole mutation path for
// them, Arena.ApplyFill (spec §3 "Ownership": "the Portfolio exclusively owns
// Holdings and the CashBook"). Grounded on the teacher's position
// tracking (_examples/newthinker-atlas/internal/broker/position.go),
// generalized from a single flat position list into a SymbolId-indexed
// arena matching the rest of the engine's arena-index model (spec §9).
package portfolio

import (
	"sync"

	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/money"
)

// Holding is a per-symbol position (spec §3). Quantity is signed: positive
// is long, negative is short, zero is flat. Invariants enforced by
// ApplyFill: average price is always non-negative; quantity=0 forces
// average price to 0 on the next full-close; realized profit only changes
// on a position-reducing fill.
type Holding struct {
	SymbolID         core.SymbolId
	Quantity         money.Decimal
	AveragePrice     money.Decimal
	RealizedProfit   money.Decimal
	CumulativeFees   money.Decimal
	LastMarketPrice  money.Decimal
	LastClosedProfit money.Decimal
}

// IsFlat reports whether the holding has zero quantity.
func (h Holding) IsFlat() bool {
	return money.IsZero(h.Quantity)
}

// Arena is the flat, SymbolId-indexed container of every symbol's
// Holding, mirroring security.Arena's shape (spec §9).
type Arena struct {
	mu       sync.RWMutex
	holdings map[core.SymbolId]*Holding
}

// NewArena creates an empty Holding arena.
func NewArena() *Arena {
	return &Arena{holdings: make(map[core.SymbolId]*Holding)}
}

// Get returns a copy of id's Holding, creating a flat zero-value one if
// none exists yet. Every symbol implicitly starts flat.
func (a *Arena) Get(id core.SymbolId) Holding {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.at(id)
	return *h
}

// UpdateMarketPrice sets id's last observed market price, used for
// unrealized P&L in holdings snapshots.
func (a *Arena) UpdateMarketPrice(id core.SymbolId, price money.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.at(id).LastMarketPrice = price
}

// Snapshot returns every non-flat holding, for the strategy-facing
// read-only holdings listing (spec §6).
func (a *Arena) Snapshot() []Holding {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Holding, 0, len(a.holdings))
	for _, h := range a.holdings {
		if !h.IsFlat() {
			out = append(out, *h)
		}
	}
	return out
}

// UnrealizedPnL returns (marketPrice - averagePrice) * quantity for id.
func (h Holding) UnrealizedPnL() money.Decimal {
	return h.LastMarketPrice.Sub(h.AveragePrice).Mul(h.Quantity)
}

// at returns id's Holding record, creating it if absent. Caller must hold
// a.mu.
func (a *Arena) at(id core.SymbolId) *Holding {
	h, ok := a.holdings[id]
	if !ok {
		h = &Holding{SymbolID: id}
		a.holdings[id] = h
	}
	return h
}

// ApplyFill is the Holding arena's sole mutator (spec §3, §9): it applies
// one signed fill quantity at fillPrice, with fee, to id's holding and
// returns the updated Holding. Quantity-increasing fills (same sign as
// the existing holding, or opening from flat) extend the weighted-average
// price; quantity-reducing fills realize profit on the reduced portion
// and, if they cross zero, re-open the remainder at fillPrice.
func (a *Arena) ApplyFill(id core.SymbolId, fillQty, fillPrice, fee money.Decimal) Holding {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := a.at(id)
	h.CumulativeFees = h.CumulativeFees.Add(fee)

	switch {
	case money.IsZero(h.Quantity) || sameSign(h.Quantity, fillQty):
		// Opening or adding: extend the weighted-average price.
		newQty := h.Quantity.Add(fillQty)
		totalCost := h.AveragePrice.Mul(h.Quantity).Add(fillPrice.Mul(fillQty))
		if money.IsZero(newQty) {
			h.AveragePrice = money.Zero
		} else {
			h.AveragePrice = totalCost.Div(newQty)
		}
		h.Quantity = newQty

	default:
		// Reducing, possibly crossing zero.
		reduceQty := money.Min(money.Abs(fillQty), money.Abs(h.Quantity))
		if money.IsNegative(h.Quantity) {
			reduceQty = reduceQty.Neg()
		}
		realized := fillPrice.Sub(h.AveragePrice).Mul(reduceQty)
		h.RealizedProfit = h.RealizedProfit.Add(realized)
		h.LastClosedProfit = realized

		newQty := h.Quantity.Add(fillQty)
		if money.IsZero(newQty) {
			h.AveragePrice = money.Zero
		} else if !sameSign(h.Quantity, newQty) {
			// Crossed zero: the remainder re-opens at the fill price.
			h.AveragePrice = fillPrice
		}
		h.Quantity = newQty
	}

	return *h
}

func sameSign(a, b money.Decimal) bool {
	return a.Sign() == b.Sign()
}
