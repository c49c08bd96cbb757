package router

import (
	"context"
	"testing"
	"time"

	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/cashbook"
	"github.com/quantrail/corebook/internal/contingent"
	"github.com/quantrail/corebook/internal/margin"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/order"
	"github.com/quantrail/corebook/internal/portfolio"
	"github.com/quantrail/corebook/internal/ratelimit"
	"github.com/quantrail/corebook/internal/security"
	"github.com/quantrail/corebook/internal/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	router     *Router
	securities *security.Arena
	holdings   *portfolio.Arena
	cash       *cashbook.CashBook
	broker     *brokerage.MockBroker
	aaplID     security.SymbolId
}

func usHours() security.Hours {
	return security.NewHours(time.UTC, 9*time.Hour+30*time.Minute, 16*time.Hour)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	securities := security.NewArena()
	aaplID := securities.Subscribe(security.Security{
		Symbol:        security.Symbol{Ticker: "AAPL", Type: security.TypeEquity, Market: "NASDAQ"},
		Price:         money.NewFromInt(100),
		QuoteCurrency: "USD",
		Properties:    security.DefaultEquityProperties(),
		Tradable:      true,
		HasData:       true,
		ExchangeHours: usHours(),
	})

	holdings := portfolio.NewArena()
	cash := cashbook.New("USD")
	cash.AddAmount("USD", money.NewFromInt(100000))
	ctx := portfolio.NewContext(securities, holdings, cash)

	marginCalc := margin.NewCalculator(ctx, margin.DefaultRegistry())

	broker := brokerage.NewMock()
	require.NoError(t, broker.Connect(context.Background()))

	submitter := &Submitter{
		Broker:   broker,
		Retrier:  brokerage.NewRetrier(zap.NewNop()),
		Limiter:  ratelimit.DefaultLimiter(),
		Holdings: holdings,
	}

	r := New(securities, ctx, marginCalc, cash, txn.NewManager(), contingent.NewManager(), submitter, brokerage.DefaultFeeRegistry(), zap.NewNop())

	return &fixture{router: r, securities: securities, holdings: holdings, cash: cash, broker: broker, aaplID: aaplID}
}

func aaplSymbol() security.Symbol {
	return security.Symbol{Ticker: "AAPL", Type: security.TypeEquity, Market: "NASDAQ"}
}

// shortWait bounds the synchronous (asynchronous=false) order tests: with
// no Fill Reconciler running in these unit tests, a ticket never reaches a
// terminal status on its own, so WaitForOrder would otherwise block
// forever on ctx. A short deadline lets it return once Submitted has been
// observed, which is the property these tests assert.
func shortWait() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 200*time.Millisecond)
}

func TestRouter_Order_SimpleLongOpen(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := shortWait()
	defer cancel()
	ticket := f.router.Order(ctx, aaplSymbol(), money.NewFromInt(10), false, "")
	require.NotNil(t, ticket)
	assert.Equal(t, order.StatusSubmitted, ticket.Status())
	assert.Len(t, ticket.BrokerageIDs(), 1)
}

func TestRouter_Order_RejectsUnknownSecurity(t *testing.T) {
	f := newFixture(t)

	unknown := security.Symbol{Ticker: "ZZZZ", Type: security.TypeEquity, Market: "NASDAQ"}
	ticket := f.router.Order(context.Background(), unknown, money.NewFromInt(10), true, "")
	require.NotNil(t, ticket)
	assert.Equal(t, order.StatusInvalid, ticket.Status())
	assert.Equal(t, order.ReasonMissingSecurity, ticket.InvalidReason())
}

func TestRouter_Order_RejectsZeroQuantity(t *testing.T) {
	f := newFixture(t)

	ticket := f.router.Order(context.Background(), aaplSymbol(), money.Zero, true, "")
	require.NotNil(t, ticket)
	assert.Equal(t, order.StatusInvalid, ticket.Status())
	assert.Equal(t, order.ReasonZeroQuantity, ticket.InvalidReason())
}

func TestRouter_SetMaximumOrders_LocksAfterFirstSubmission(t *testing.T) {
	f := newFixture(t)

	f.router.SetMaximumOrders(5)
	f.router.Order(context.Background(), aaplSymbol(), money.NewFromInt(1), true, "")

	f.router.SetMaximumOrders(1)
	assert.Equal(t, int64(5), f.router.maxOrderLimit())
}

func TestRouter_MaxOrders_StopsAlgorithm(t *testing.T) {
	f := newFixture(t)
	f.router.SetMaximumOrders(1)

	first := f.router.Order(context.Background(), aaplSymbol(), money.NewFromInt(1), true, "")
	require.NotNil(t, first)
	assert.NotEqual(t, order.StatusInvalid, first.Status())

	second := f.router.Order(context.Background(), aaplSymbol(), money.NewFromInt(1), true, "")
	require.NotNil(t, second)
	assert.Equal(t, order.StatusInvalid, second.Status())
	assert.Equal(t, order.ReasonExceededMaximumOrders, second.InvalidReason())
}

func TestRouter_ZeroCrossing_SplitsIntoClosingAndOpeningChildren(t *testing.T) {
	f := newFixture(t)

	f.holdings.ApplyFill(f.aaplID, money.NewFromInt(5), money.NewFromInt(90), money.Zero)

	ctx, cancel := shortWait()
	defer cancel()
	ticket := f.router.Order(ctx, aaplSymbol(), money.NewFromInt(-12), false, "")
	require.NotNil(t, ticket)
	assert.Len(t, ticket.BrokerageIDs(), 1)

	q, ok := f.router.contingents.Get(ticket.OrderID())
	require.True(t, ok)
	pending, ok := q.Next()
	require.True(t, ok)
	assert.True(t, pending.Quantity.Equal(money.NewFromInt(-7)))
}

func TestRouter_SingleOutstandingSymbol_RejectsSecondOrder(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := shortWait()
	defer cancel()
	first := f.router.Order(ctx, aaplSymbol(), money.NewFromInt(10), false, "")
	require.NotNil(t, first)
	require.Len(t, first.BrokerageIDs(), 1)

	second := f.router.Order(context.Background(), aaplSymbol(), money.NewFromInt(5), true, "")
	require.NotNil(t, second)
	assert.Equal(t, order.StatusInvalid, second.Status())
	assert.Equal(t, order.ReasonOneOrderPerSymbol, second.InvalidReason())
}

func TestRouter_SetHoldings_ZeroFractionClosesPosition(t *testing.T) {
	f := newFixture(t)
	f.holdings.ApplyFill(f.aaplID, money.NewFromInt(10), money.NewFromInt(100), money.Zero)

	ctx, cancel := shortWait()
	defer cancel()
	ticket := f.router.SetHoldings(ctx, aaplSymbol(), money.Zero, false, "")
	require.NotNil(t, ticket)
	assert.True(t, ticket.Request().Quantity.Equal(money.NewFromInt(-10)))
}

func TestRouter_SetHoldings_NoOpWhenTargetAlreadyZero(t *testing.T) {
	f := newFixture(t)
	ticket := f.router.SetHoldings(context.Background(), aaplSymbol(), money.Zero, false, "")
	assert.Nil(t, ticket)
}

func TestRouter_Liquidate_NoOpWhenFlat(t *testing.T) {
	f := newFixture(t)
	tickets := f.router.Liquidate(context.Background(), nil)
	assert.Empty(t, tickets)
}

func TestRouter_Liquidate_ClosesHeldPosition(t *testing.T) {
	f := newFixture(t)
	f.holdings.ApplyFill(f.aaplID, money.NewFromInt(10), money.NewFromInt(100), money.Zero)

	sym := aaplSymbol()
	tickets := f.router.Liquidate(context.Background(), &sym)
	require.Len(t, tickets, 1)
	assert.True(t, tickets[0].Request().Quantity.Equal(money.NewFromInt(-10)))
}

func TestRouter_CheckMarginCall_NoOpWhenWithinThreshold(t *testing.T) {
	f := newFixture(t)
	f.holdings.ApplyFill(f.aaplID, money.NewFromInt(10), money.NewFromInt(100), money.Zero)

	tickets := f.router.CheckMarginCall(context.Background())
	assert.Empty(t, tickets)
}

func TestRouter_CheckMarginCall_SubmitsLiquidatingOrderWhenOverLeveraged(t *testing.T) {
	f := newFixture(t)
	// Leave a 1,000 cash cushion and pay 100,000 for the buy below, so the
	// position is heavily over-margined relative to net liquidation value.
	held, _ := f.cash.Get("USD")
	f.cash.AddAmount("USD", held.Amount.Neg().Add(money.NewFromInt(1000-100000)))
	f.holdings.ApplyFill(f.aaplID, money.NewFromInt(1000), money.NewFromInt(100), money.Zero)

	ctx, cancel := shortWait()
	defer cancel()
	tickets := f.router.CheckMarginCall(ctx)
	require.Len(t, tickets, 1)
	assert.True(t, money.IsNegative(tickets[0].Request().Quantity))
	assert.Equal(t, "margin-call", tickets[0].Request().Tag)
}
