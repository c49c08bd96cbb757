package brokerage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/order"
)

// mockOrder is the mock adapter's internal record of a submitted order,
// tracking enough state to answer GetOpenOrders/GetOrder and to let tests
// drive fills via Fill.
type mockOrder struct {
	wire WireOrder
	req  order.Request
}

// MockBroker is an in-memory Broker implementation for tests and local
// development, grounded on the teacher's internal/broker/mock.MockBroker
// (_examples/newthinker-atlas/internal/broker/mock/mock.go), generalized
// from the teacher's fixed sample-position fixture to a broker whose
// holdings and fills are driven entirely by test code via Fill and
// SetHolding.
type MockBroker struct {
	mu        sync.RWMutex
	connected bool
	seq       int
	orders    map[string]*mockOrder
	phantoms  map[string]WireOrder     // see InjectPhantomOrder
	holdings  map[string]money.Decimal // ticker -> signed quantity
	balances  []WireBalance
}

// NewMock creates a disconnected mock broker with no holdings.
func NewMock() *MockBroker {
	return &MockBroker{
		orders:   make(map[string]*mockOrder),
		phantoms: make(map[string]WireOrder),
		holdings: make(map[string]money.Decimal),
		balances: []WireBalance{{Currency: "USD", Amount: money.NewFromInt(100000), Rate: money.One}},
	}
}

// InjectPhantomOrder makes wo appear in GetOpenOrders without ever
// resolving through GetOrder, CancelOrder, or Fill: it simulates a
// brokerage whose bulk open-orders feed and single-order lookup disagree,
// the case spec §4.4's deferred unknown-id verification exists to catch.
func (m *MockBroker) InjectPhantomOrder(wo WireOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phantoms[wo.ID] = wo
}

func (m *MockBroker) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return ErrAlreadyConnected
	}
	m.connected = true
	return nil
}

func (m *MockBroker) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *MockBroker) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SetHolding seeds the mock's holding quantity for ticker, for tests that
// need to exercise the add/close legs of the direction table.
func (m *MockBroker) SetHolding(ticker string, qty money.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings[ticker] = qty
}

func (m *MockBroker) PlaceOrder(_ context.Context, req order.Request, wireType WireOrderType, direction WireDirection, clientOrderID string) (WireSubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return WireSubmitResult{}, ErrNotConnected
	}

	m.seq++
	id := clientOrderID
	if id == "" {
		id = fmt.Sprintf("MOCK-%d", m.seq)
	}

	mo := &mockOrder{
		req: req,
		wire: WireOrder{
			ID:              id,
			Symbol:          req.Symbol.Ticker,
			Direction:       direction,
			Type:            wireType,
			Status:          WireStatusNew,
			Quantity:        ConvertQuantity(req.Quantity),
			Remaining:       ConvertQuantity(req.Quantity),
			TransactionTime: time.Now().UTC(),
		},
	}
	m.orders[id] = mo
	return WireSubmitResult{ID: id, OK: true}, nil
}

func (m *MockBroker) CancelOrder(_ context.Context, brokerageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.orders[brokerageID]
	if !ok {
		return ErrOrderNotFound
	}
	if mo.wire.Status == WireStatusFilled || mo.wire.Status == WireStatusCanceled {
		return fmt.Errorf("brokerage: order %s is already terminal", brokerageID)
	}
	mo.wire.Status = WireStatusCanceled
	mo.wire.TransactionTime = time.Now().UTC()
	return nil
}

func (m *MockBroker) UpdateOrder(_ context.Context, brokerageID string, fields UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.orders[brokerageID]
	if !ok {
		return ErrOrderNotFound
	}
	if mo.wire.Status.terminal() {
		return fmt.Errorf("brokerage: order %s is already terminal", brokerageID)
	}
	if fields.LimitPrice != nil {
		v := money.NewFromFloat(*fields.LimitPrice)
		mo.req.LimitPrice = &v
	}
	if fields.StopPrice != nil {
		v := money.NewFromFloat(*fields.StopPrice)
		mo.req.StopPrice = &v
	}
	if fields.Type != nil {
		mo.wire.Type = *fields.Type
	}
	if fields.Duration != nil {
		mo.req.Duration = *fields.Duration
	}
	return nil
}

func (m *MockBroker) GetOpenOrders(_ context.Context) ([]WireOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	open := make([]WireOrder, 0)
	for _, mo := range m.orders {
		if mo.wire.Status.terminal() {
			continue
		}
		open = append(open, mo.wire)
	}
	for _, wo := range m.phantoms {
		open = append(open, wo)
	}
	return open, nil
}

func (m *MockBroker) GetOrder(_ context.Context, brokerageID string) (WireOrder, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return WireOrder{}, false, ErrNotConnected
	}
	mo, ok := m.orders[brokerageID]
	if !ok {
		return WireOrder{}, false, nil
	}
	return mo.wire, true, nil
}

// GetRecentRejected returns every mock order rejected at or after since.
func (m *MockBroker) GetRecentRejected(_ context.Context, since time.Time) ([]WireOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	out := make([]WireOrder, 0)
	for _, mo := range m.orders {
		if mo.wire.Status == WireStatusRejected && !mo.wire.TransactionTime.Before(since) {
			out = append(out, mo.wire)
		}
	}
	return out, nil
}

func (m *MockBroker) GetHoldings(_ context.Context) ([]WirePosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	positions := make([]WirePosition, 0, len(m.holdings))
	for ticker, qty := range m.holdings {
		if money.IsZero(qty) {
			continue
		}
		positions = append(positions, WirePosition{Symbol: ticker, Quantity: qty})
	}
	return positions, nil
}

func (m *MockBroker) GetCashBalance(_ context.Context) ([]WireBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	out := make([]WireBalance, len(m.balances))
	copy(out, m.balances)
	return out, nil
}

// Fill simulates a (partial) fill reported by the brokerage for
// brokerageID: updates the mock's own holdings bookkeeping and the order's
// wire status/remaining/executed so the next GetOpenOrders/GetOrder call
// reflects it.
func (m *MockBroker) Fill(brokerageID string, fillQty, fillPrice money.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.orders[brokerageID]
	if !ok {
		return ErrOrderNotFound
	}
	if mo.wire.Status.terminal() {
		return fmt.Errorf("brokerage: order %s is already terminal", brokerageID)
	}

	mo.wire.Executed = mo.wire.Executed.Add(fillQty)
	mo.wire.Remaining = mo.wire.Remaining.Sub(fillQty)
	mo.wire.LastFillQty = fillQty
	mo.wire.LastFillPrice = fillPrice
	mo.wire.TransactionTime = time.Now().UTC()

	signed := fillQty
	if IsShortSide(mo.wire.Direction) {
		signed = signed.Neg()
	}
	m.holdings[mo.wire.Symbol] = m.holdings[mo.wire.Symbol].Add(signed)

	if money.IsZero(mo.wire.Remaining) {
		mo.wire.Status = WireStatusFilled
	} else {
		mo.wire.Status = WireStatusPartiallyFilled
	}
	return nil
}

func (s WireStatus) terminal() bool {
	return s == WireStatusFilled || s == WireStatusCanceled || s == WireStatusExpired || s == WireStatusRejected
}
