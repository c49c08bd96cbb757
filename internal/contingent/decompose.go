// Package contingent implements zero-crossing order decomposition and
// the per-parent-order queue of child submit-requests it produces (spec
// §4.3). Grounded on the teacher's order-routing types
// (_examples/newthinker-atlas/internal/broker/types.go) for the
// Request/Order vocabulary, generalized with the split/queue logic the
// teacher's single-leg order model has no equivalent of.
package contingent

import (
	"sync"

	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/order"
)

// CrossesZero reports whether applying a signed delta quantity to a
// current signed holding quantity would flip its sign (spec §4.3:
// `q * (q + Δ) < 0`).
func CrossesZero(currentQty, delta money.Decimal) bool {
	newQty := currentQty.Add(delta)
	return currentQty.Mul(newQty).IsNegative()
}

// Split decomposes req into a closing child (brings the position exactly
// to zero) and an opening child (the remainder), per spec §4.3. The
// opening child's stop component, if any, is converted to its base type:
// StopMarket becomes Market, StopLimit becomes Limit, and the stop price
// is cleared. Split must only be called when CrossesZero(currentQty,
// req.Quantity) is true.
func Split(req order.Request, currentQty money.Decimal) (closing, opening order.Request) {
	closing = req
	closing.Quantity = currentQty.Neg()

	opening = req
	opening.Quantity = req.Quantity.Sub(closing.Quantity)
	switch req.Type {
	case order.TypeStopMarket:
		opening.Type = order.TypeMarket
		opening.StopPrice = nil
	case order.TypeStopLimit:
		opening.Type = order.TypeLimit
		opening.StopPrice = nil
	}
	return closing, opening
}

// Queue is a per-parent FIFO of child submit-requests (spec §3
// "ContingentQueue"). The Fill Reconciler exclusively owns the map of
// Queues keyed by parent internal order id (spec §3 "Ownership").
type Queue struct {
	mu      sync.Mutex
	pending []order.Request
}

// NewQueue creates a Queue seeded with the given pending children, in
// submission order.
func NewQueue(children ...order.Request) *Queue {
	return &Queue{pending: append([]order.Request(nil), children...)}
}

// Next removes and returns the next pending child, or false if the queue
// is empty.
func (q *Queue) Next() (order.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return order.Request{}, false
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	return next, true
}

// Empty reports whether the queue has no remaining children.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0
}

// Manager owns every parent internal order id's Queue (spec §3:
// "destroyed when empty or when the parent is canceled").
type Manager struct {
	mu     sync.Mutex
	queues map[core.OrderId]*Queue
}

// NewManager creates an empty contingent-queue manager.
func NewManager() *Manager {
	return &Manager{queues: make(map[core.OrderId]*Queue)}
}

// Create registers a new Queue for parentID with the given opening
// child(ren) pending.
func (m *Manager) Create(parentID core.OrderId, children ...order.Request) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := NewQueue(children...)
	m.queues[parentID] = q
	return q
}

// Get returns parentID's Queue, or false if none exists.
func (m *Manager) Get(parentID core.OrderId) (*Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[parentID]
	return q, ok
}

// DequeueNext pops parentID's next child and destroys the queue if it is
// now empty. Returns false if parentID has no queue or its queue was
// already empty.
func (m *Manager) DequeueNext(parentID core.OrderId) (order.Request, bool) {
	m.mu.Lock()
	q, ok := m.queues[parentID]
	m.mu.Unlock()
	if !ok {
		return order.Request{}, false
	}

	next, ok := q.Next()
	if !ok {
		m.Destroy(parentID)
		return order.Request{}, false
	}
	if q.Empty() {
		m.Destroy(parentID)
	}
	return next, true
}

// Destroy removes parentID's queue, e.g. when the parent is canceled.
func (m *Manager) Destroy(parentID core.OrderId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queues, parentID)
}

// Count returns the number of parent order ids with a live queue, for the
// contingent-queue-depth gauge (spec §9's ambient metrics).
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues)
}

// Active reports whether parentID currently has a live, non-empty queue.
func (m *Manager) Active(parentID core.OrderId) bool {
	m.mu.Lock()
	q, ok := m.queues[parentID]
	m.mu.Unlock()
	return ok && !q.Empty()
}
