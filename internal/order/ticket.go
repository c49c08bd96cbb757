package order

import (
	"sync"
	"time"

	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/money"
)

// Ticket is the handle returned to the strategy (spec §3). It is
// exclusively owned and mutated by the Transaction Manager
// (internal/txn); every other component treats it as read-only via the
// accessors below. The done channel is closed exactly once, the instant
// Status first becomes terminal, so concurrent WaitForOrder callers never
// race on it.
type Ticket struct {
	mu sync.RWMutex

	orderID        core.OrderId
	request        Request
	status         Status
	filledQuantity money.Decimal
	avgFillPrice   money.Decimal
	submittedAt    time.Time
	invalidReason  *core.Error
	brokerageIDs   []string

	done     chan struct{}
	closeOne sync.Once
}

// NewTicket creates a ticket in the New status for the given request.
func NewTicket(id core.OrderId, req Request) *Ticket {
	return &Ticket{
		orderID: id,
		request: req,
		status:  StatusNew,
		done:    make(chan struct{}),
	}
}

// NewInvalidTicket creates a ticket that is immediately terminal and
// Invalid, carrying reason. Used by the pre-order check pipeline (spec
// §4.1 "Failure modes").
func NewInvalidTicket(id core.OrderId, req Request, reason *core.Error) *Ticket {
	t := &Ticket{
		orderID:       id,
		request:       req,
		status:        StatusInvalid,
		invalidReason: reason,
		done:          make(chan struct{}),
	}
	close(t.done)
	return t
}

// OrderID returns the internal order id.
func (t *Ticket) OrderID() core.OrderId {
	return t.orderID
}

// Request returns the originating submit-request.
func (t *Ticket) Request() Request {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.request
}

// Status returns the current status.
func (t *Ticket) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// FilledQuantity returns the cumulative signed filled quantity.
func (t *Ticket) FilledQuantity() money.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.filledQuantity
}

// AverageFillPrice returns the volume-weighted average fill price.
func (t *Ticket) AverageFillPrice() money.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.avgFillPrice
}

// SubmittedAt returns the UTC time the ticket transitioned to Submitted,
// the zero time if it has not yet.
func (t *Ticket) SubmittedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.submittedAt
}

// InvalidReason returns the rejection reason, or nil if the ticket was
// never invalidated.
func (t *Ticket) InvalidReason() *core.Error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.invalidReason
}

// BrokerageIDs returns every brokerage-side order id submitted under this
// ticket. A zero-crossing order accumulates two: one per child (spec §3
// "Order": "one per submission; zero-crossing orders may have two").
func (t *Ticket) BrokerageIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.brokerageIDs))
	copy(out, t.brokerageIDs)
	return out
}

// AddBrokerageID records a brokerage-side order id submitted under this
// ticket.
func (t *Ticket) AddBrokerageID(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brokerageIDs = append(t.brokerageIDs, id)
}

// Done returns a channel closed the instant the ticket reaches a terminal
// status. Used by the Transaction Manager's WaitForOrder.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// ApplyEvent folds an OrderEvent into the ticket: updates status and, for
// fill events, the running filled quantity and volume-weighted average
// fill price. Returns false (no-op) if ev.Status is not a legal
// transition from the current status.
func (t *Ticket) ApplyEvent(ev Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !CanTransition(t.status, ev.Status) {
		return false
	}

	if money.Sign(ev.FillQuantity) != 0 {
		oldQty := t.filledQuantity
		oldAvg := t.avgFillPrice
		newQty := oldQty.Add(ev.FillQuantity)
		if !newQty.IsZero() {
			weightedOld := oldAvg.Mul(oldQty.Abs())
			weightedNew := ev.FillPrice.Mul(ev.FillQuantity.Abs())
			t.avgFillPrice = weightedOld.Add(weightedNew).Div(newQty.Abs())
		}
		t.filledQuantity = newQty
	}

	if ev.Status == StatusSubmitted && t.submittedAt.IsZero() {
		t.submittedAt = ev.UTCTime
	}

	t.status = ev.Status
	if ev.Status == StatusInvalid && ev.Message != "" {
		t.invalidReason = &core.Error{Code: "Invalid", Message: ev.Message}
	}

	if ev.Status.IsTerminal() {
		t.closeOne.Do(func() { close(t.done) })
	}
	return true
}
