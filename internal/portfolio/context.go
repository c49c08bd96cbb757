package portfolio

import (
	"github.com/quantrail/corebook/internal/cashbook"
	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
)

// Context is the cross-arena accessor spec §9 requires in place of a
// cyclic Security<->Portfolio<->Order graph: "cross-entity access goes
// through a PortfolioContext accessor that takes the arenas as explicit
// parameters." It never stores a live pointer into another component's
// arena; every method call re-resolves through the id.
type Context struct {
	Securities *security.Arena
	Holdings   *Arena
	Cash       *cashbook.CashBook
}

// NewContext wires a Context over the given arenas.
func NewContext(securities *security.Arena, holdings *Arena, cash *cashbook.CashBook) *Context {
	return &Context{Securities: securities, Holdings: holdings, Cash: cash}
}

// HoldingValue returns quantity * last market price for id's Security, in
// that security's quote currency.
func (c *Context) HoldingValue(id core.SymbolId) money.Decimal {
	h := c.Holdings.Get(id)
	sec, ok := c.Securities.Get(id)
	if !ok {
		return money.Zero
	}
	return h.Quantity.Mul(sec.Price)
}

// TotalPortfolioValue sums cash (in account currency) plus every
// holding's value converted to the account currency, per spec §8's
// invariant: `sum(holdings.averagePrice * holdings.quantity) +
// cashBook.totalInAccountCurrency ≈ totalPortfolioValue`.
func (c *Context) TotalPortfolioValue() money.Decimal {
	total := c.Cash.TotalInAccountCurrency()
	for _, id := range c.Securities.Symbols() {
		sec, ok := c.Securities.Get(id)
		if !ok {
			continue
		}
		h := c.Holdings.Get(id)
		if h.IsFlat() {
			continue
		}
		value := h.Quantity.Mul(sec.Price)
		converted, err := c.Cash.Convert(value, sec.QuoteCurrency, c.Cash.AccountCurrency())
		if err != nil {
			continue
		}
		total = total.Add(converted)
	}
	return total
}

// ValueOfOneUnit returns the account-currency value of one unit of id's
// security at its current price, used by the target-quantity sizing
// algorithm (spec §4.1.1).
func (c *Context) ValueOfOneUnit(id core.SymbolId) (money.Decimal, error) {
	sec, ok := c.Securities.Get(id)
	if !ok {
		return money.Zero, nil
	}
	unit := sec.Price.Mul(sec.Properties.ContractMultiplier)
	return c.Cash.Convert(unit, sec.QuoteCurrency, c.Cash.AccountCurrency())
}
