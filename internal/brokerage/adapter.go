package brokerage

import (
	"context"
	"errors"
	"time"

	"github.com/quantrail/corebook/internal/order"
)

// Errors returned by Broker adapters, grounded on the teacher's
// internal/broker error vocabulary.
var (
	ErrNotConnected     = errors.New("brokerage: not connected")
	ErrAlreadyConnected = errors.New("brokerage: already connected")
	ErrOrderNotFound    = errors.New("brokerage: order not found")
	ErrQuantityChange   = errors.New("brokerage: quantity changes are rejected by UpdateOrder")
)

// UpdateFields carries the subset of an order update spec §4.5 allows:
// limit/stop/type/duration changes only. A nil field leaves it unchanged.
type UpdateFields struct {
	LimitPrice *float64
	StopPrice  *float64
	Type       *WireOrderType
	Duration   *order.Duration
}

// Broker is the brokerage adapter interface (spec §4.5 "Operations
// exposed by the adapter"). Concrete adapters (a live brokerage client, or
// the mock adapter in this package) implement this; the Fill Reconciler
// and Order Router depend only on this interface.
type Broker interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	PlaceOrder(ctx context.Context, req order.Request, wireType WireOrderType, direction WireDirection, clientOrderID string) (WireSubmitResult, error)
	CancelOrder(ctx context.Context, brokerageID string) error
	UpdateOrder(ctx context.Context, brokerageID string, fields UpdateFields) error

	GetOpenOrders(ctx context.Context) ([]WireOrder, error)
	GetOrder(ctx context.Context, brokerageID string) (WireOrder, bool, error)
	// GetRecentRejected lists orders rejected at or after since, the Fill
	// Reconciler's second filter (after GetOrder) for resolving an unknown
	// brokerage id during deferred verification (spec §4.4).
	GetRecentRejected(ctx context.Context, since time.Time) ([]WireOrder, error)
	GetHoldings(ctx context.Context) ([]WirePosition, error)
	GetCashBalance(ctx context.Context) ([]WireBalance, error)
}
