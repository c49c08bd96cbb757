package txn_test

import (
	"context"
	"testing"
	"time"

	"github.com/quantrail/corebook/internal/order"
	"github.com/quantrail/corebook/internal/security"
	"github.com/quantrail/corebook/internal/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSymbol(ticker string) security.Symbol {
	return security.Symbol{Ticker: ticker, Type: security.TypeEquity, Market: "US"}
}

func TestManager_NextOrderID_Monotonic(t *testing.T) {
	m := txn.NewManager()
	a := m.NextOrderID()
	b := m.NextOrderID()
	assert.Less(t, int64(a), int64(b))
	assert.EqualValues(t, 2, m.OrdersCount())
}

func TestManager_WaitForOrder_UnblocksOnTerminal(t *testing.T) {
	m := txn.NewManager()
	id := m.NextOrderID()
	ticket := order.NewTicket(id, order.Request{Symbol: mustSymbol("AAPL")})
	m.Register(ticket)

	done := make(chan error, 1)
	go func() {
		_, err := m.WaitForOrder(context.Background(), id)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	ticket.ApplyEvent(order.Event{Status: order.StatusFilled})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForOrder did not unblock")
	}
}

func TestManager_GetOpenOrders_FiltersTerminalAndSymbol(t *testing.T) {
	m := txn.NewManager()

	id1 := m.NextOrderID()
	t1 := order.NewTicket(id1, order.Request{Symbol: mustSymbol("AAPL")})
	m.Register(t1)

	id2 := m.NextOrderID()
	t2 := order.NewTicket(id2, order.Request{Symbol: mustSymbol("MSFT")})
	m.Register(t2)
	t2.ApplyEvent(order.Event{Status: order.StatusFilled})

	open := m.GetOpenOrders("")
	assert.Len(t, open, 1)
	assert.Equal(t, id1, open[0].OrderID())

	open = m.GetOpenOrders("AAPL")
	assert.Len(t, open, 1)

	open = m.GetOpenOrders("MSFT")
	assert.Len(t, open, 0)
}
