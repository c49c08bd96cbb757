// Package eventbus delivers OrderEvents and error-events from the Fill
// Reconciler back to the strategy (spec §5 "Event delivery... uses a
// single-consumer queue drained between data slices" and §6
// "Order-event bus" / "Error-event channel").
//
// Grounded on
// _examples/BikeshR-menorepo/projects/pi5-trading-system-go/internal/core/events/bus.go,
// which distributes events over per-subscriber buffered channels and
// drops on a full buffer. That shape fits a fan-out pub/sub bus; this
// engine has exactly one consumer (the strategy thread) and cannot
// afford to drop a fill event, so Publish here blocks rather than
// drops, and there is a single queue rather than a subscriber map.
// Logged through zap rather than zerolog to stay consistent with the
// rest of the engine's logging choice (see DESIGN.md).
package eventbus

import (
	"context"

	"github.com/quantrail/corebook/internal/order"
	"go.uber.org/zap"
)

// Severity distinguishes a non-fatal Warning from a fatal Error on the
// error-event channel (spec §6).
type Severity string

const (
	SeverityWarning Severity = "Warning"
	SeverityError   Severity = "Error"
)

// ErrorEvent is an item on the error-event channel. A fatal Error item
// terminates the algorithm on delivery; a Warning does not.
type ErrorEvent struct {
	Severity Severity
	Code     string
	Message  string
}

// Bus is the single-consumer, non-dropping queue of OrderEvents and
// ErrorEvents delivered to the strategy. The reconciler pushes to it;
// the strategy runner is the sole drainer, once per data slice, so
// events for a given order id are observed in submission order and the
// strategy never re-enters itself mid-drain (spec §5).
type Bus struct {
	orders chan order.Event
	errors chan ErrorEvent
	log    *zap.Logger
}

// New creates a Bus with the given channel capacity. Capacity only
// bounds how far the reconciler can run ahead of the strategy's drain
// cadence before PublishOrderEvent blocks; it never causes a drop.
func New(capacity int, log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		orders: make(chan order.Event, capacity),
		errors: make(chan ErrorEvent, capacity),
		log:    log,
	}
}

// PublishOrderEvent enqueues ev, blocking if the queue is full until
// either the strategy drains it or ctx is canceled. Unlike the
// fan-out bus this is grounded on, this never drops: the reconciler
// must pace itself to queue capacity rather than lose a fill.
func (b *Bus) PublishOrderEvent(ctx context.Context, ev order.Event) error {
	select {
	case b.orders <- ev:
		b.log.Debug("order event published",
			zap.Int("order_id", int(ev.OrderID)),
			zap.String("status", string(ev.Status)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishError enqueues ev, blocking until drained or ctx is canceled.
// A Severity of SeverityError is logged at Error level since spec §6
// says delivery of a fatal item terminates the algorithm; termination
// itself is the strategy runner's responsibility on drain.
func (b *Bus) PublishError(ctx context.Context, ev ErrorEvent) error {
	select {
	case b.errors <- ev:
		if ev.Severity == SeverityError {
			b.log.Error("fatal error event published", zap.String("code", ev.Code), zap.String("message", ev.Message))
		} else {
			b.log.Warn("warning event published", zap.String("code", ev.Code), zap.String("message", ev.Message))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OrderEvents returns the channel the strategy runner drains order
// events from.
func (b *Bus) OrderEvents() <-chan order.Event {
	return b.orders
}

// Errors returns the channel the strategy runner drains error events
// from.
func (b *Bus) Errors() <-chan ErrorEvent {
	return b.errors
}

// DrainOrderEvents returns every OrderEvent currently queued without
// blocking, in arrival order. This is what the strategy runner calls
// once per data slice (spec §5): a single non-blocking sweep rather
// than an indefinite read loop, so the strategy thread is never
// blocked by the reconciliation loop.
func (b *Bus) DrainOrderEvents() []order.Event {
	var out []order.Event
	for {
		select {
		case ev := <-b.orders:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// DrainErrors returns every ErrorEvent currently queued without
// blocking, in arrival order.
func (b *Bus) DrainErrors() []ErrorEvent {
	var out []ErrorEvent
	for {
		select {
		case ev := <-b.errors:
			out = append(out, ev)
		default:
			return out
		}
	}
}
