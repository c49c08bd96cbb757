// Package settlement implements the Immediate and Delayed settlement
// model variants and the unsettled-cash queue they feed (spec §4.8).
// Grounded on the teacher's account/position bookkeeping
// (_examples/newthinker-atlas/internal/broker/position.go) for the
// "credit/debit the ledger on a trade" shape, generalized to the
// spec's settlement-time-keyed unsettled queue the teacher has no
// equivalent of.
package settlement

import (
	"container/heap"
	"sync"
	"time"

	"github.com/quantrail/corebook/internal/cashbook"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
)

// Model settles a fill's cash impact: buys and sells may post to the
// settled CashBook at different times.
type Model interface {
	// Settle posts fillValue (signed: negative for a buy's cash outflow,
	// positive for a sell's proceeds) for currency, for a fill that
	// occurred at fillTime against hours' exchange calendar.
	Settle(q *Queue, cb *cashbook.CashBook, currency string, fillValue money.Decimal, fillTime time.Time, hours security.Hours)
}

// ImmediateModel credits/debits the settled CashBook the instant a fill
// occurs (spec §4.8).
type ImmediateModel struct{}

func (ImmediateModel) Settle(_ *Queue, cb *cashbook.CashBook, currency string, fillValue money.Decimal, _ time.Time, _ security.Hours) {
	cb.AddAmount(currency, fillValue)
}

// DelayedModel posts buys immediately (their cash outflow is certain at
// trade time) but routes sell proceeds to the unsettled queue, to be
// credited n trading days later at time-of-day tod (spec §4.8).
type DelayedModel struct {
	TradingDays int
	TimeOfDay   time.Duration
}

func (m DelayedModel) Settle(q *Queue, cb *cashbook.CashBook, currency string, fillValue money.Decimal, fillTime time.Time, hours security.Hours) {
	if money.IsNegative(fillValue) {
		// A buy's outflow settles immediately: there is no "unsettled debit."
		cb.AddAmount(currency, fillValue)
		return
	}
	settleAt := hours.AddTradingDays(fillTime, m.TradingDays, m.TimeOfDay)
	q.Push(Entry{SettlementTimeUTC: settleAt, Currency: currency, Amount: fillValue})
}

// Entry is an UnsettledCashAmount: a (settlement_time_utc, currency,
// amount) triple (spec §3).
type Entry struct {
	SettlementTimeUTC time.Time
	Currency          string
	Amount            money.Decimal
}

// entryHeap orders Entries by settlement time for the priority queue.
type entryHeap []Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].SettlementTimeUTC.Before(h[j].SettlementTimeUTC) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(Entry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is an ordered queue of UnsettledCashAmounts keyed by settlement
// time, drained by DrainDue as simulated time advances (spec §3, §4.8).
type Queue struct {
	mu sync.Mutex
	h  entryHeap
}

// NewQueue creates an empty unsettled-cash queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push adds an unsettled entry.
func (q *Queue) Push(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.h, e)
}

// Len returns the number of entries still pending.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

// DrainDue moves every entry whose settlement time is at or before now
// from unsettled into cb's settled balances, atomically per entry, and
// returns the drained entries in settlement-time order (spec §4.8: "The
// unsettled queue is drained in time-order on every algorithm time tick;
// drained entries move atomically from unsettled to settled").
func (q *Queue) DrainDue(cb *cashbook.CashBook, now time.Time) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := make([]Entry, 0)
	for q.h.Len() > 0 && !q.h[0].SettlementTimeUTC.After(now) {
		e := heap.Pop(&q.h).(Entry)
		cb.AddAmount(e.Currency, e.Amount)
		drained = append(drained, e)
	}
	return drained
}
