// Package reconcile implements the Fill Reconciliation Engine (spec
// §4.4): a polling state machine that diffs a local cache of open orders
// against the brokerage's authoritative view, emits at-most-once
// OrderEvents, chains contingent (zero-crossing) child orders, and
// escalates ids the engine has no record of. Grounded on the teacher's
// periodic-poll signal pipeline
// (_examples/newthinker-atlas/internal/scheduler or equivalent polling
// loop) for the tick/worker-pool shape, generalized from notification
// dispatch to brokerage order-state diffing.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/cashbook"
	"github.com/quantrail/corebook/internal/contingent"
	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/eventbus"
	"github.com/quantrail/corebook/internal/metrics"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/order"
	"github.com/quantrail/corebook/internal/portfolio"
	"github.com/quantrail/corebook/internal/router"
	"github.com/quantrail/corebook/internal/security"
	"github.com/quantrail/corebook/internal/settlement"
	"github.com/quantrail/corebook/internal/txn"
	"go.uber.org/zap"
)

const (
	defaultRingSize     = 10000
	defaultUnknownGrace = 2 * time.Second
	defaultWorkers      = 4
)

// Reconciler is the Fill Reconciliation Engine. It exclusively owns the
// CachedOpenOrder map and the unknown-id tracking state (spec §3
// "Ownership"); the Transaction Manager and contingent.Manager remain
// owned by their own packages and are only read/mutated through their
// accessors.
type Reconciler struct {
	log *zap.Logger

	broker      brokerage.Broker
	txnMgr      *txn.Manager
	contingents *contingent.Manager
	submitter   *router.Submitter
	securities  *security.Arena
	holdings    *portfolio.Arena
	cash        *cashbook.CashBook
	fees        *brokerage.FeeRegistry

	settlementModel settlement.Model
	settlementQueue *settlement.Queue

	bus     *eventbus.Bus
	metrics *metrics.Registry

	initUTC      time.Time
	unknownGrace time.Duration
	ring         *Ring

	tickMu sync.Mutex // non-reentrant poll lock (spec §5 lock (b))

	mu                 sync.Mutex
	tracked            map[string]core.OrderId // brokerageID -> internal order id, populated by Track
	cache              map[string]*CachedOpenOrder
	unknown            map[string]time.Time
	unknownScheduled   bool
	contingentInFlight map[core.OrderId]bool

	sem       chan struct{}
	workersWG sync.WaitGroup
}

// Config carries the constructor's tunables; zero values fall back to
// the documented defaults.
type Config struct {
	RingSize     int
	UnknownGrace time.Duration
	Workers      int
}

// New wires a Reconciler over the given collaborators. settlementModel
// and settlementQueue may be nil, in which case settlement posting is
// skipped (useful for tests that only assert on OrderEvents). log and
// metricsReg may be nil.
func New(
	broker brokerage.Broker,
	txnMgr *txn.Manager,
	contingents *contingent.Manager,
	submitter *router.Submitter,
	securities *security.Arena,
	holdings *portfolio.Arena,
	cash *cashbook.CashBook,
	fees *brokerage.FeeRegistry,
	settlementModel settlement.Model,
	settlementQueue *settlement.Queue,
	bus *eventbus.Bus,
	metricsReg *metrics.Registry,
	cfg Config,
	log *zap.Logger,
) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = defaultRingSize
	}
	if cfg.UnknownGrace <= 0 {
		cfg.UnknownGrace = defaultUnknownGrace
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	return &Reconciler{
		log:                log,
		broker:             broker,
		txnMgr:             txnMgr,
		contingents:        contingents,
		submitter:          submitter,
		securities:         securities,
		holdings:           holdings,
		cash:               cash,
		fees:               fees,
		settlementModel:    settlementModel,
		settlementQueue:    settlementQueue,
		bus:                bus,
		metrics:            metricsReg,
		initUTC:            time.Now().UTC(),
		unknownGrace:       cfg.UnknownGrace,
		ring:               NewRing(cfg.RingSize),
		tracked:            make(map[string]core.OrderId),
		cache:              make(map[string]*CachedOpenOrder),
		unknown:            make(map[string]time.Time),
		contingentInFlight: make(map[core.OrderId]bool),
		sem:                make(chan struct{}, cfg.Workers),
	}
}

// Track implements router.Tracker: it is called by Submitter.SubmitChild
// immediately after a brokerage id is minted, before the next poll tick
// can possibly observe it.
func (r *Reconciler) Track(brokerageID string, orderID core.OrderId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked[brokerageID] = orderID
}

// Run polls at interval until ctx is canceled, then waits for any
// in-flight reconciler-issued submits to finish before returning.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval < 500*time.Millisecond {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.workersWG.Wait()
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one poll cycle. A concurrent call (e.g. a slow prior tick
// still running) returns immediately without blocking: polling is
// serialized by a non-reentrant lock (spec §5 lock (b)).
func (r *Reconciler) Tick(ctx context.Context) {
	if !r.tickMu.TryLock() {
		return
	}
	defer r.tickMu.Unlock()

	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordReconcileTick(time.Since(start).Seconds())
		}
	}()

	fresh, err := r.broker.GetOpenOrders(ctx)
	if err != nil {
		r.log.Warn("reconcile: failed to fetch open orders", zap.Error(err))
		return
	}
	freshByID := make(map[string]brokerage.WireOrder, len(fresh))
	for _, wo := range fresh {
		freshByID[wo.ID] = wo
	}

	r.mu.Lock()
	cachedIDs := make([]string, 0, len(r.cache))
	for id := range r.cache {
		cachedIDs = append(cachedIDs, id)
	}
	r.mu.Unlock()

	for _, id := range cachedIDs {
		r.mu.Lock()
		cached := r.cache[id]
		r.mu.Unlock()
		if cached == nil {
			continue
		}
		if wo, present := freshByID[id]; present {
			r.processUpdate(ctx, cached, wo)
		} else {
			r.resolveDisappeared(ctx, cached)
		}
	}

	for id, wo := range freshByID {
		r.mu.Lock()
		_, cachedExists := r.cache[id]
		orderID, tracked := r.tracked[id]
		r.mu.Unlock()
		if cachedExists {
			continue
		}
		if tracked {
			r.adoptBaseline(ctx, id, orderID, wo)
			continue
		}
		r.considerUnknown(id, wo)
	}

	// A tracked id may fill completely before ever appearing in an
	// open-orders snapshot (GetOpenOrders excludes terminal orders):
	// resolve those directly rather than waiting for a fetch that will
	// never show them.
	r.mu.Lock()
	pendingAdopt := make(map[string]core.OrderId)
	for id, orderID := range r.tracked {
		if _, cached := r.cache[id]; cached {
			continue
		}
		if _, fresh := freshByID[id]; fresh {
			continue
		}
		pendingAdopt[id] = orderID
	}
	r.mu.Unlock()

	for id, orderID := range pendingAdopt {
		wo, ok, err := r.broker.GetOrder(ctx, id)
		if err != nil {
			r.log.Warn("reconcile: failed to resolve tracked order absent from open-orders fetch",
				zap.String("brokerageID", id), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		r.adoptBaseline(ctx, id, orderID, wo)
	}

	if r.metrics != nil {
		r.metrics.SetContingentQueueDepth(r.contingents.Count())
	}
	if r.settlementQueue != nil && r.cash != nil {
		r.settlementQueue.DrainDue(r.cash, time.Now().UTC())
	}
}

// adoptBaseline seeds a cache entry for a brokerage id the reconciler
// knows belongs to an internal order (via Track) but has not yet
// reconciled against a live brokerage snapshot. The baseline assumes
// nothing has executed yet, so the immediate processUpdate call against
// fresh correctly surfaces any fill that happened between submission and
// this first poll.
func (r *Reconciler) adoptBaseline(ctx context.Context, brokerageID string, orderID core.OrderId, fresh brokerage.WireOrder) {
	baseline := &CachedOpenOrder{
		BrokerageID: brokerageID,
		OrderID:     orderID,
		Symbol:      fresh.Symbol,
		Direction:   fresh.Direction,
		Status:      brokerage.WireStatusNew,
		Remaining:   fresh.Quantity,
		Executed:    money.Zero,
	}
	r.mu.Lock()
	r.cache[brokerageID] = baseline
	r.mu.Unlock()
	r.processUpdate(ctx, baseline, fresh)
}

// resolveDisappeared handles a cached id absent from the latest
// GetOpenOrders fetch: it asks the brokerage directly for the order's
// final state. If the brokerage has no record of it at all, the order is
// treated as canceled out-of-band (spec §8 scenario 5).
func (r *Reconciler) resolveDisappeared(ctx context.Context, cached *CachedOpenOrder) {
	wo, ok, err := r.broker.GetOrder(ctx, cached.BrokerageID)
	if err != nil {
		r.log.Warn("reconcile: failed to resolve order missing from open-orders fetch",
			zap.String("brokerageID", cached.BrokerageID), zap.Error(err))
		return
	}
	if !ok {
		wo = brokerage.WireOrder{
			ID:              cached.BrokerageID,
			Symbol:          cached.Symbol,
			Direction:       cached.Direction,
			Status:          brokerage.WireStatusCanceled,
			Remaining:       cached.Remaining,
			Executed:        cached.Executed,
			TransactionTime: time.Now().UTC(),
		}
	}
	r.processUpdate(ctx, cached, wo)
}

// processUpdate implements spec §4.4's processUpdate: it fires an
// OrderEvent iff fresh's remaining quantity or status differs from
// cached, folds the fill into Holdings and the settlement model, and
// chains the next contingent child on a Filled observation. The fill
// price is fresh.LastFillPrice: several fills between two polls are
// reported as one fill of their combined quantity at the last fill's
// price.
func (r *Reconciler) processUpdate(ctx context.Context, cached *CachedOpenOrder, fresh brokerage.WireOrder) {
	if fresh.Remaining.Equal(cached.Remaining) && fresh.Status == cached.Status {
		// Neither remaining nor status changed: just refresh the cache's
		// bookkeeping fields and stop.
		cached.Executed = fresh.Executed
		return
	}

	ticket, ok := r.txnMgr.Get(cached.OrderID)
	if !ok {
		r.log.Warn("reconcile: brokerage update for an internal order id the Transaction Manager no longer has",
			zap.String("brokerageID", cached.BrokerageID), zap.Int64("orderID", int64(cached.OrderID)))
		return
	}

	fillQty := fresh.Executed.Sub(cached.Executed)
	if brokerage.IsShortSide(fresh.Direction) {
		fillQty = fillQty.Neg()
	}

	fee := money.Zero
	if !cached.EmittedFee && money.IsPositive(fresh.Executed) {
		fee = r.computeFee(ticket, fresh)
		cached.EmittedFee = true
	}

	reportStatus := brokerage.ConvertStatus(fresh.Status)
	if reportStatus == order.StatusFilled {
		reportStatus = r.handleContingentOnFill(ticket, cached.OrderID)
	}

	ev := order.Event{
		OrderID:      cached.OrderID,
		UTCTime:      fresh.TransactionTime,
		Status:       reportStatus,
		FillPrice:    fresh.LastFillPrice,
		FillQuantity: fillQty,
		Fee:          fee,
	}

	// The cache always absorbs the brokerage's latest reported state, and a
	// terminal observation always retires the id from tracked/cache, even
	// if the transition below turns out to be illegal: otherwise a
	// protocol violation would be re-diffed and re-warned on every
	// subsequent tick forever.
	cached.Status = fresh.Status
	cached.Remaining = fresh.Remaining
	cached.Executed = fresh.Executed
	terminal := brokerage.ConvertStatus(fresh.Status).IsTerminal()
	if terminal {
		r.mu.Lock()
		delete(r.cache, cached.BrokerageID)
		delete(r.tracked, cached.BrokerageID)
		r.mu.Unlock()
		r.ring.Add(cached.BrokerageID)
	}

	applied := ticket.ApplyEvent(ev)
	if !applied {
		r.log.Warn("reconcile: dropped an illegal order status transition",
			zap.String("brokerageID", cached.BrokerageID), zap.String("status", string(ev.Status)))
		return
	}

	if !money.IsZero(fillQty) {
		r.applyFill(ticket, ev)
	}
	if err := r.bus.PublishOrderEvent(ctx, ev); err != nil {
		r.log.Warn("reconcile: failed to publish order event", zap.Error(err))
	}
}

// applyFill posts ev's fill to Holdings and, if a settlement model is
// wired, to the CashBook/unsettled queue (spec §4.8).
func (r *Reconciler) applyFill(ticket *order.Ticket, ev order.Event) {
	secID := ticket.Request().SymbolID
	r.holdings.ApplyFill(secID, ev.FillQuantity, ev.FillPrice, ev.Fee)

	if r.settlementModel == nil || r.settlementQueue == nil {
		return
	}
	sec, ok := r.securities.Get(secID)
	if !ok {
		return
	}
	fillValue := ev.FillQuantity.Mul(ev.FillPrice).Neg().Sub(ev.Fee)
	r.settlementModel.Settle(r.settlementQueue, r.cash, sec.QuoteCurrency, fillValue, ev.UTCTime, sec.ExchangeHours)
}

// computeFee resolves the order's security's fee model and charges it
// once against the executed quantity observed so far (spec §4.4: "Fee is
// emitted exactly once per order").
func (r *Reconciler) computeFee(ticket *order.Ticket, fresh brokerage.WireOrder) money.Decimal {
	sec, ok := r.securities.Get(ticket.Request().SymbolID)
	if !ok {
		return money.Zero
	}
	model, err := r.fees.Resolve(sec.FeeModel)
	if err != nil {
		r.log.Warn("reconcile: no fee model registered for security", zap.Error(err))
		return money.Zero
	}
	return model.Fee(fresh.Executed, fresh.LastFillPrice)
}

// handleContingentOnFill implements spec §4.3/§4.4's contingent chaining:
// on a Filled observation, if a ContingentQueue exists for the parent id,
// the next child is dequeued and submitted asynchronously and the
// reported status is downgraded to PartiallyFilled; the true Filled is
// reported only once the queue is exhausted. contingentInFlight is the
// reentrance guard spec §4.4 calls for, keyed by internal order id.
func (r *Reconciler) handleContingentOnFill(ticket *order.Ticket, parentID core.OrderId) order.Status {
	r.mu.Lock()
	if r.contingentInFlight[parentID] {
		r.mu.Unlock()
		return order.StatusPartiallyFilled
	}
	r.contingentInFlight[parentID] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.contingentInFlight, parentID)
		r.mu.Unlock()
	}()

	child, ok := r.contingents.DequeueNext(parentID)
	if !ok {
		return order.StatusFilled
	}

	r.enqueueSubmit(func() {
		if err := r.submitter.SubmitChild(context.Background(), ticket, child.SymbolID, child); err != nil {
			r.log.Warn("reconcile: contingent child submission failed",
				zap.Int64("orderID", int64(parentID)), zap.Error(err))
		}
	})
	return order.StatusPartiallyFilled
}

// enqueueSubmit runs job on the reconciler's worker pool: the dispatching
// goroutine is spawned immediately so Tick never blocks, while a
// buffered semaphore bounds how many reconciler-issued submits run at
// once (spec §4.4 "Reconciler-issued submits run on a worker task pool").
func (r *Reconciler) enqueueSubmit(job func()) {
	r.workersWG.Add(1)
	go func() {
		defer r.workersWG.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		job()
	}()
}
