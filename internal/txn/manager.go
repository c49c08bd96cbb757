// Package txn implements the Transaction Manager: a stateless registry of
// OrderTickets plus the blocking primitive strategies use to wait on a
// submitted order (spec §4.9). The Transaction Manager exclusively owns
// OrderTickets (spec §3 "Ownership"); every other component reads through
// the accessors here.
package txn

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/order"
)

// Manager assigns monotonic internal order ids, stores OrderTickets keyed
// by id, and blocks strategy calls until a ticket reaches a terminal
// state.
type Manager struct {
	seq     int64 // atomic
	mu      sync.RWMutex
	tickets map[core.OrderId]*order.Ticket
	order   []core.OrderId // submission order, for snapshotting
}

// NewManager creates an empty Transaction Manager.
func NewManager() *Manager {
	return &Manager{
		tickets: make(map[core.OrderId]*order.Ticket),
	}
}

// NextOrderID assigns and returns the next monotonic internal order id.
// IDs are never reused or decremented: ordersCount (spec §4.9) is derived
// from this counter, not from len(tickets).
func (m *Manager) NextOrderID() core.OrderId {
	return core.OrderId(atomic.AddInt64(&m.seq, 1))
}

// Register stores ticket under its own OrderID. Callers obtain the id via
// NextOrderID before constructing the ticket.
func (m *Manager) Register(ticket *order.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := ticket.OrderID()
	if _, exists := m.tickets[id]; !exists {
		m.order = append(m.order, id)
	}
	m.tickets[id] = ticket
}

// Get returns the ticket for id, or false if unknown.
func (m *Manager) Get(id core.OrderId) (*order.Ticket, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	return t, ok
}

// WaitForOrder blocks the calling goroutine until the ticket for id
// reaches a terminal status, ctx is canceled, or id is unknown (returns
// immediately in the last case).
func (m *Manager) WaitForOrder(ctx context.Context, id core.OrderId) (*order.Ticket, error) {
	ticket, ok := m.Get(id)
	if !ok {
		return nil, nil
	}
	select {
	case <-ticket.Done():
		return ticket, nil
	case <-ctx.Done():
		return ticket, ctx.Err()
	}
}

// GetOpenOrders returns a consistent snapshot of tickets whose status is
// not yet terminal, optionally filtered to one symbol's ticker.
func (m *Manager) GetOpenOrders(ticker string) []*order.Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()

	open := make([]*order.Ticket, 0)
	for _, id := range m.order {
		t := m.tickets[id]
		if t.Status().IsTerminal() {
			continue
		}
		if ticker != "" && t.Request().Symbol.Ticker != ticker {
			continue
		}
		open = append(open, t)
	}
	return open
}

// OrdersCount returns the total number of internal order ids ever
// assigned (never decremented), per spec §4.9.
func (m *Manager) OrdersCount() int64 {
	return atomic.LoadInt64(&m.seq)
}
