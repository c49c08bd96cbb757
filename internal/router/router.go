package router

import (
	"context"
	"sync"
	"time"

	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/cashbook"
	"github.com/quantrail/corebook/internal/contingent"
	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/margin"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/order"
	"github.com/quantrail/corebook/internal/portfolio"
	"github.com/quantrail/corebook/internal/security"
	"github.com/quantrail/corebook/internal/txn"
	"go.uber.org/zap"
)

// Router is the Order Router (spec §4.1): it accepts strategy-issued
// intents, runs them through the pre-order check pipeline, decomposes
// zero-crossing equity orders, and hands the first leg of every order to
// the shared Submitter. Grounded on the teacher's signal-dispatch Router
// (_examples/newthinker-atlas/internal/router/router.go), generalized
// from notifier fan-out with a confidence/cooldown filter into the
// brokerage order-submission surface the spec describes — the filter
// pipeline becomes the pre-order check pipeline, and "notify" becomes
// "submit".
type Router struct {
	mu  sync.RWMutex
	log *zap.Logger

	securities  *security.Arena
	ctx         *portfolio.Context
	marginCalc  *margin.Calculator
	cash        *cashbook.CashBook
	txnMgr      *txn.Manager
	contingents *contingent.Manager
	submit      *Submitter
	fees        *brokerage.FeeRegistry

	maxOrders int64 // 0 means unlimited
	locked    bool  // true once the first order has been submitted
}

// New wires a Router over the given arenas/services. log and fees may be
// nil; fees defaults to brokerage.DefaultFeeRegistry().
func New(securities *security.Arena, ctx *portfolio.Context, marginCalc *margin.Calculator, cash *cashbook.CashBook, txnMgr *txn.Manager, contingents *contingent.Manager, submit *Submitter, fees *brokerage.FeeRegistry, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	if fees == nil {
		fees = brokerage.DefaultFeeRegistry()
	}
	return &Router{
		log:         log,
		securities:  securities,
		ctx:         ctx,
		marginCalc:  marginCalc,
		cash:        cash,
		txnMgr:      txnMgr,
		contingents: contingents,
		submit:      submit,
		fees:        fees,
	}
}

// SetMaximumOrders sets the run's order cap (spec §4.1 "setMaximumOrders").
// Effective only before the algorithm is locked: the first successful
// order submission locks it, after which further calls are ignored.
func (r *Router) SetMaximumOrders(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked {
		r.log.Warn("setMaximumOrders ignored: algorithm already locked")
		return
	}
	r.maxOrders = n
}

func (r *Router) maxOrderLimit() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxOrders
}

func (r *Router) lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = true
}

// Order submits a market order by default (spec §4.1 "order"). If the
// exchange is closed and every one of the symbol's data subscriptions is
// at daily resolution, it is automatically rewritten as a MarketOnOpen
// order and the conversion is logged. When asynchronous is false, the
// call blocks until the ticket reaches a terminal status.
func (r *Router) Order(ctx context.Context, sym security.Symbol, qty money.Decimal, asynchronous bool, tag string) *order.Ticket {
	req := order.Request{Symbol: sym, Type: order.TypeMarket, Quantity: qty, Duration: order.DurationDay, Tag: tag}

	if secID, ok := r.securities.Lookup(sym); ok {
		if sec, ok := r.securities.Get(secID); ok {
			if !sec.ExchangeHours.IsOpen(time.Now().UTC()) && sec.DailyResolutionOnly {
				req.Type = order.TypeMarketOnOpen
				r.log.Info("rewrote market order as MarketOnOpen: exchange closed and all data subscriptions are daily resolution",
					zap.String("symbol", sym.Ticker))
			}
		}
	}

	return r.submitRequest(ctx, req, asynchronous)
}

// Limit submits a limit order (spec §4.1 "limit").
func (r *Router) Limit(ctx context.Context, sym security.Symbol, qty money.Decimal, limitPrice money.Decimal, asynchronous bool, tag string) *order.Ticket {
	req := order.Request{Symbol: sym, Type: order.TypeLimit, Quantity: qty, LimitPrice: &limitPrice, Duration: order.DurationDay, Tag: tag}
	return r.submitRequest(ctx, req, asynchronous)
}

// StopMarket submits a stop-market order (spec §4.1 "stopMarket").
func (r *Router) StopMarket(ctx context.Context, sym security.Symbol, qty money.Decimal, stopPrice money.Decimal, asynchronous bool, tag string) *order.Ticket {
	req := order.Request{Symbol: sym, Type: order.TypeStopMarket, Quantity: qty, StopPrice: &stopPrice, Duration: order.DurationDay, Tag: tag}
	return r.submitRequest(ctx, req, asynchronous)
}

// StopLimit submits a stop-limit order (spec §4.1 "stopLimit").
func (r *Router) StopLimit(ctx context.Context, sym security.Symbol, qty money.Decimal, limitPrice, stopPrice money.Decimal, asynchronous bool, tag string) *order.Ticket {
	req := order.Request{Symbol: sym, Type: order.TypeStopLimit, Quantity: qty, LimitPrice: &limitPrice, StopPrice: &stopPrice, Duration: order.DurationDay, Tag: tag}
	return r.submitRequest(ctx, req, asynchronous)
}

// MarketOnOpen submits a market-on-open order (spec §4.1 "marketOnOpen").
func (r *Router) MarketOnOpen(ctx context.Context, sym security.Symbol, qty money.Decimal, asynchronous bool, tag string) *order.Ticket {
	req := order.Request{Symbol: sym, Type: order.TypeMarketOnOpen, Quantity: qty, Duration: order.DurationDay, Tag: tag}
	return r.submitRequest(ctx, req, asynchronous)
}

// MarketOnClose submits a market-on-close order (spec §4.1 "marketOnClose").
func (r *Router) MarketOnClose(ctx context.Context, sym security.Symbol, qty money.Decimal, asynchronous bool, tag string) *order.Ticket {
	req := order.Request{Symbol: sym, Type: order.TypeMarketOnClose, Quantity: qty, Duration: order.DurationDay, Tag: tag}
	return r.submitRequest(ctx, req, asynchronous)
}

// Liquidate implements spec §4.1's "liquidate(symbol?)": for each held
// symbol (or only sym if non-nil), cancel every non-market open order and
// submit a single closing market order for -(held + open market-order
// remaining quantity). Does nothing for a symbol whose only outstanding
// order already exactly closes the position.
func (r *Router) Liquidate(ctx context.Context, sym *security.Symbol) []*order.Ticket {
	var ids []core.SymbolId
	if sym != nil {
		if id, ok := r.securities.Lookup(*sym); ok {
			ids = []core.SymbolId{id}
		}
	} else {
		for _, id := range r.securities.Symbols() {
			if !r.ctx.Holdings.Get(id).IsFlat() {
				ids = append(ids, id)
			}
		}
	}

	tickets := make([]*order.Ticket, 0, len(ids))
	for _, id := range ids {
		sec, ok := r.securities.Get(id)
		if !ok {
			continue
		}
		held := r.ctx.Holdings.Get(id).Quantity

		openMarketRemaining := money.Zero
		for _, t := range r.txnMgr.GetOpenOrders(sec.Symbol.Ticker) {
			req := t.Request()
			if req.Type != order.TypeMarket && req.Type != order.TypeMarketOnOpen && req.Type != order.TypeMarketOnClose {
				for _, brokerageID := range t.BrokerageIDs() {
					if err := r.submit.Broker.CancelOrder(ctx, brokerageID); err != nil {
						r.log.Warn("liquidate: failed to cancel non-market open order", zap.String("symbol", sec.Symbol.Ticker), zap.Error(err))
					}
				}
				continue
			}
			openMarketRemaining = openMarketRemaining.Add(req.Quantity.Sub(t.FilledQuantity()))
		}

		closingQty := held.Add(openMarketRemaining).Neg()
		if money.IsZero(closingQty) {
			continue
		}
		tickets = append(tickets, r.Order(ctx, sec.Symbol, closingQty, true, "liquidate"))
	}
	return tickets
}

// CheckMarginCall implements the supplemented margin-call liquidation
// feature: for every subscribed symbol, it asks the margin calculator
// for a margin-call order quantity (spec §4.7) and, if non-zero,
// submits it as an asynchronous market order through the identical
// pre-order-check pipeline and submission path a strategy-issued
// liquidation uses, rather than bypassing checks for an "emergency"
// order.
func (r *Router) CheckMarginCall(ctx context.Context) []*order.Ticket {
	var tickets []*order.Ticket
	for _, id := range r.securities.Symbols() {
		qty := r.marginCalc.MarginCallQuantity(id)
		if money.IsZero(qty) {
			continue
		}
		sec, ok := r.securities.Get(id)
		if !ok {
			continue
		}
		r.log.Warn("margin call: submitting liquidating order",
			zap.String("symbol", sec.Symbol.Ticker),
			zap.String("quantity", qty.String()))
		tickets = append(tickets, r.Order(ctx, sec.Symbol, qty, true, "margin-call"))
	}
	return tickets
}

// SetHoldings implements spec §4.1's "setHoldings": computes the target
// quantity (4.1.1) for fraction of sym and submits a market order if
// non-zero. If liquidateExisting is true, every other symbol with a
// non-zero holding is closed out first.
func (r *Router) SetHoldings(ctx context.Context, sym security.Symbol, fraction money.Decimal, liquidateExisting bool, tag string) *order.Ticket {
	if liquidateExisting {
		for _, id := range r.securities.Symbols() {
			sec, ok := r.securities.Get(id)
			if !ok || sec.Symbol == sym {
				continue
			}
			if r.ctx.Holdings.Get(id).IsFlat() {
				continue
			}
			other := sec.Symbol
			r.Liquidate(ctx, &other)
		}
	}

	id, ok := r.securities.Lookup(sym)
	if !ok {
		return order.NewInvalidTicket(core.InvalidOrderId, order.Request{Symbol: sym, Tag: tag}, order.ReasonMissingSecurity)
	}

	qty := r.targetQuantity(id, fraction)
	if money.IsZero(qty) {
		return nil
	}
	return r.Order(ctx, sym, qty, false, tag)
}

// targetQuantity implements spec §4.1.1's target-quantity algorithm.
func (r *Router) targetQuantity(id core.SymbolId, fraction money.Decimal) money.Decimal {
	sec, ok := r.securities.Get(id)
	if !ok || money.IsZero(sec.Price) {
		return money.Zero
	}
	if money.IsZero(fraction) {
		return r.ctx.Holdings.Get(id).Quantity.Neg()
	}

	currentQty := r.ctx.Holdings.Get(id).Quantity
	targetValue := fraction.Mul(r.ctx.TotalPortfolioValue())
	currentValue := sec.Price.Mul(currentQty)
	deltaValue := money.Abs(targetValue.Sub(currentValue))
	dir := margin.DirectionBuy
	if money.IsNegative(targetValue.Sub(currentValue)) {
		dir = margin.DirectionSell
	}

	unitPrice, err := r.ctx.ValueOfOneUnit(id)
	if err != nil || money.IsZero(unitPrice) {
		return money.Zero
	}
	marginAvail := r.marginCalc.MarginRemaining(id, dir)
	if !money.IsPositive(marginAvail) {
		return money.Zero
	}

	fee := r.estimateFee(sec, deltaValue.Div(unitPrice))
	n := deltaValue.Div(unitPrice).Floor()

	for money.IsPositive(n) {
		marginRequired := r.marginRequiredFor(id, n, dir)
		notional := n.Mul(unitPrice).Add(fee)
		if marginRequired.Cmp(marginAvail) <= 0 && notional.Cmp(deltaValue) <= 0 {
			break
		}
		shrink := money.One
		if money.IsPositive(fee) {
			shrink = money.Max(money.One, fee.Div(unitPrice).Ceil())
		}
		n = n.Sub(shrink)
	}
	if !money.IsPositive(n) {
		return money.Zero
	}

	lotSize := sec.Properties.LotSize
	if money.IsPositive(lotSize) {
		lots := n.Div(lotSize).Floor()
		n = lots.Mul(lotSize)
	}
	if !money.IsPositive(n) {
		return money.Zero
	}

	if dir == margin.DirectionSell {
		return n.Neg()
	}
	return n
}

// marginRequiredFor estimates the margin a hypothetical n-unit order in
// dir would require, by scaling the maintenance-margin ratio against the
// notional value n*price.
func (r *Router) marginRequiredFor(id core.SymbolId, n money.Decimal, _ margin.Direction) money.Decimal {
	sec, ok := r.securities.Get(id)
	if !ok {
		return money.Zero
	}
	notional := n.Mul(sec.Price)
	model, err := r.marginCalc.Registry.Resolve(sec.MarginModel)
	if err != nil {
		return notional
	}
	return notional.Mul(model.MaintenanceMarginRatio(sec.ExchangeHours.IsOpen(time.Now().UTC())))
}

// estimateFee resolves sec's fee model and estimates the fee for an
// n-unit fill at the current price, used only to shrink the 4.1.1 sizing
// iteration; the actual fee charged on fill comes from the same model.
func (r *Router) estimateFee(sec security.Security, n money.Decimal) money.Decimal {
	model, err := r.fees.Resolve(sec.FeeModel)
	if err != nil {
		return money.Zero
	}
	return model.Fee(n, sec.Price)
}

// submitRequest runs the pre-order check pipeline, applies the
// single-outstanding-symbol rule, decomposes zero-crossing equity orders,
// and hands the first leg to the Submitter.
func (r *Router) submitRequest(ctx context.Context, req order.Request, asynchronous bool) *order.Ticket {
	secID, found := r.securities.Lookup(req.Symbol)
	req.SymbolID = secID
	sec, _ := r.securities.Get(secID)

	in := checkInput{
		req:             req,
		sec:             sec,
		secFound:        found,
		cash:            r.cash,
		accountCurrency: r.cash.AccountCurrency(),
		now:             time.Now().UTC(),
		ordersSubmitted: r.txnMgr.OrdersCount(),
		maxOrders:       r.maxOrderLimit(),
	}
	if reason := RunPipeline(in); reason != nil {
		if reason == order.ReasonExceededMaximumOrders {
			r.log.Warn("algorithm stopped: exceeded maximum orders for this run")
		}
		return order.NewInvalidTicket(core.InvalidOrderId, req, reason)
	}

	if reason := r.enforceSingleOutstandingSymbol(ctx, req.Symbol.Ticker); reason != nil {
		return order.NewInvalidTicket(core.InvalidOrderId, req, reason)
	}

	r.lock()
	id := r.txnMgr.NextOrderID()
	ticket := order.NewTicket(id, req)
	r.txnMgr.Register(ticket)

	currentQty := r.ctx.Holdings.Get(secID).Quantity
	if req.Symbol.Type == security.TypeEquity && contingent.CrossesZero(currentQty, req.Quantity) {
		closing, opening := contingent.Split(req, currentQty)
		r.contingents.Create(id, opening)
		go func() {
			if err := r.submit.SubmitChild(ctx, ticket, secID, closing); err != nil {
				r.log.Warn("zero-crossing closing child submission failed", zap.Int64("orderID", int64(id)), zap.Error(err))
			}
		}()
	} else {
		go func() {
			if err := r.submit.SubmitChild(ctx, ticket, secID, req); err != nil {
				r.log.Warn("order submission failed", zap.Int64("orderID", int64(id)), zap.Error(err))
			}
		}()
	}

	if !asynchronous {
		r.txnMgr.WaitForOrder(ctx, id)
	}
	return ticket
}

// enforceSingleOutstandingSymbol implements spec §4.3's single-
// outstanding-symbol rule: a new order is rejected if ticker already has
// an open brokerage-tracked order, after first attempting to cancel it
// (some brokerage adapters cannot track multiple per-symbol orders
// reliably).
func (r *Router) enforceSingleOutstandingSymbol(ctx context.Context, ticker string) *core.Error {
	for _, t := range r.txnMgr.GetOpenOrders(ticker) {
		ids := t.BrokerageIDs()
		if len(ids) == 0 {
			continue
		}
		last := ids[len(ids)-1]
		if err := r.submit.Broker.CancelOrder(ctx, last); err != nil {
			r.log.Warn("single-outstanding-symbol: failed to cancel existing order", zap.String("symbol", ticker), zap.String("brokerageID", last), zap.Error(err))
		}
		return order.ReasonOneOrderPerSymbol
	}
	return nil
}
