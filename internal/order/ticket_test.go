package order_test

import (
	"testing"
	"time"

	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicket_ApplyEvent_FillSequence(t *testing.T) {
	ticket := order.NewTicket(1, order.Request{Quantity: money.NewFromInt(10)})

	ok := ticket.ApplyEvent(order.Event{Status: order.StatusSubmitted, UTCTime: time.Now()})
	require.True(t, ok)
	assert.Equal(t, order.StatusSubmitted, ticket.Status())

	ok = ticket.ApplyEvent(order.Event{
		Status:       order.StatusPartiallyFilled,
		FillQuantity: money.NewFromInt(4),
		FillPrice:    money.NewFromInt(100),
	})
	require.True(t, ok)
	assert.True(t, ticket.FilledQuantity().Equal(money.NewFromInt(4)))

	ok = ticket.ApplyEvent(order.Event{
		Status:       order.StatusFilled,
		FillQuantity: money.NewFromInt(6),
		FillPrice:    money.NewFromInt(102),
	})
	require.True(t, ok)
	assert.Equal(t, order.StatusFilled, ticket.Status())
	assert.True(t, ticket.FilledQuantity().Equal(money.NewFromInt(10)))

	select {
	case <-ticket.Done():
	default:
		t.Fatal("expected done channel closed on terminal status")
	}
}

func TestTicket_ApplyEvent_RejectsIllegalTransition(t *testing.T) {
	ticket := order.NewTicket(1, order.Request{})
	require.True(t, ticket.ApplyEvent(order.Event{Status: order.StatusFilled}))
	// Filled is terminal; no further transition is legal.
	ok := ticket.ApplyEvent(order.Event{Status: order.StatusCanceled})
	assert.False(t, ok)
}

func TestNewInvalidTicket(t *testing.T) {
	ticket := order.NewInvalidTicket(2, order.Request{}, order.ReasonZeroQuantity)
	assert.Equal(t, order.StatusInvalid, ticket.Status())
	assert.Equal(t, order.ReasonZeroQuantity, ticket.InvalidReason())
	select {
	case <-ticket.Done():
	default:
		t.Fatal("invalid ticket must already be done")
	}
}

func TestTicket_AddBrokerageID_AccumulatesForZeroCrossingChildren(t *testing.T) {
	ticket := order.NewTicket(1, order.Request{})
	ticket.AddBrokerageID("BROK-1")
	ticket.AddBrokerageID("BROK-2")
	assert.Equal(t, []string{"BROK-1", "BROK-2"}, ticket.BrokerageIDs())
}

func TestTicket_SubmittedAtSetOnce(t *testing.T) {
	ticket := order.NewTicket(1, order.Request{})
	first := time.Now()
	require.True(t, ticket.ApplyEvent(order.Event{Status: order.StatusSubmitted, UTCTime: first}))
	require.True(t, ticket.ApplyEvent(order.Event{Status: order.StatusSubmitted, UTCTime: first.Add(time.Hour)}))
	assert.True(t, ticket.SubmittedAt().Equal(first))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, order.CanTransition(order.StatusNew, order.StatusSubmitted))
	assert.True(t, order.CanTransition(order.StatusSubmitted, order.StatusFilled))
	assert.True(t, order.CanTransition(order.StatusPartiallyFilled, order.StatusPartiallyFilled))
	assert.False(t, order.CanTransition(order.StatusFilled, order.StatusPartiallyFilled))
	assert.False(t, order.CanTransition(order.StatusPartiallyFilled, order.StatusNew))
}
