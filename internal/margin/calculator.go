package margin

import (
	"time"

	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/portfolio"
)

// Calculator computes margin usage and availability over a portfolio
// Context, dispatching each security's margin ratios through its
// registered Model (spec §4.7).
type Calculator struct {
	Ctx      *portfolio.Context
	Registry *Registry
}

// NewCalculator wires a Calculator over ctx and registry.
func NewCalculator(ctx *portfolio.Context, registry *Registry) *Calculator {
	return &Calculator{Ctx: ctx, Registry: registry}
}

func (c *Calculator) ratios(id core.SymbolId) (initial, maintenance money.Decimal, ok bool) {
	sec, found := c.Ctx.Securities.Get(id)
	if !found {
		return money.Zero, money.Zero, false
	}
	model, err := c.Registry.Resolve(sec.MarginModel)
	if err != nil {
		return money.Zero, money.Zero, false
	}
	exchangeOpen := sec.ExchangeHours.IsOpen(time.Now().UTC())
	return model.InitialMarginRatio(exchangeOpen), model.MaintenanceMarginRatio(exchangeOpen), true
}

// HoldingValue returns the absolute value (quantity times price, in the
// security's quote currency, not converted to account currency) of id's
// current holding.
func (c *Calculator) HoldingValue(id core.SymbolId) money.Decimal {
	return money.Abs(c.Ctx.HoldingValue(id))
}

// MaintenanceMargin returns the maintenance margin currently reserved
// against id's holding.
func (c *Calculator) MaintenanceMargin(id core.SymbolId) money.Decimal {
	_, maintenance, ok := c.ratios(id)
	if !ok {
		return money.Zero
	}
	return c.HoldingValue(id).Mul(maintenance)
}

// TotalMargin sums maintenance margin across every subscribed symbol with
// a non-flat holding.
func (c *Calculator) TotalMargin() money.Decimal {
	total := money.Zero
	for _, id := range c.Ctx.Securities.Symbols() {
		h := c.Ctx.Holdings.Get(id)
		if h.IsFlat() {
			continue
		}
		total = total.Add(c.MaintenanceMargin(id))
	}
	return total
}

// NetLiquidationValue is the portfolio's total value in account currency.
func (c *Calculator) NetLiquidationValue() money.Decimal {
	return c.Ctx.TotalPortfolioValue()
}

// PortfolioMarginRemaining is the portfolio-wide free margin: net
// liquidation value minus total margin in use.
func (c *Calculator) PortfolioMarginRemaining() money.Decimal {
	return c.NetLiquidationValue().Sub(c.TotalMargin())
}

// MarginRemaining implements spec §4.7's marginRemaining(symbol,
// direction) algorithm: if the proposed direction aligns with the current
// holding's sign (or the holding is flat), it returns the portfolio-wide
// free margin; if it opposes (a flip), it returns the holding's
// maintenance margin plus the initial margin required to open the flip,
// plus the portfolio-wide free margin.
func (c *Calculator) MarginRemaining(id core.SymbolId, direction Direction) money.Decimal {
	h := c.Ctx.Holdings.Get(id)
	portfolioFree := c.PortfolioMarginRemaining()

	if h.IsFlat() {
		return portfolioFree
	}

	holdingIsLong := money.IsPositive(h.Quantity)
	directionIsBuy := direction == DirectionBuy
	aligned := holdingIsLong == directionIsBuy
	if aligned {
		return portfolioFree
	}

	initial, _, ok := c.ratios(id)
	if !ok {
		return portfolioFree
	}
	return c.MaintenanceMargin(id).Add(c.HoldingValue(id).Mul(initial)).Add(portfolioFree)
}

// MarginCallQuantity implements spec §4.7's margin-call sizing: if
// totalMargin exceeds 110% of net liquidation value, returns the signed
// quantity of a liquidating market order sized to bring totalMargin back
// to netLiquidationValue, clipped to [1, |holdings|] in magnitude and
// signed to reduce the position. Returns zero quantity if no call is
// triggered or the holding is already flat.
func (c *Calculator) MarginCallQuantity(id core.SymbolId) money.Decimal {
	totalMargin := c.TotalMargin()
	netLiq := c.NetLiquidationValue()
	threshold := netLiq.Mul(money.NewFromFloat(1.10))
	if totalMargin.Cmp(threshold) <= 0 {
		return money.Zero
	}

	h := c.Ctx.Holdings.Get(id)
	if h.IsFlat() {
		return money.Zero
	}

	_, maintenance, ok := c.ratios(id)
	if !ok || money.IsZero(maintenance) {
		return money.Zero
	}

	excessMargin := totalMargin.Sub(netLiq)
	reduceValue := excessMargin.Div(maintenance)
	sec, _ := c.Ctx.Securities.Get(id)
	if money.IsZero(sec.Price) {
		return money.Zero
	}
	reduceQty := reduceValue.Div(sec.Price).Ceil()

	maxQty := money.Abs(h.Quantity)
	reduceQty = money.Clamp(reduceQty, money.One, maxQty)

	if money.IsPositive(h.Quantity) {
		return reduceQty.Neg()
	}
	return reduceQty
}
