package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quantrail/corebook/internal/eventbus"
	"github.com/quantrail/corebook/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishThenDrainPreservesOrder(t *testing.T) {
	b := eventbus.New(4, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.PublishOrderEvent(ctx, order.Event{OrderID: 1, Status: order.StatusPartiallyFilled}))
	}
	require.NoError(t, b.PublishOrderEvent(ctx, order.Event{OrderID: 1, Status: order.StatusFilled}))

	drained := b.DrainOrderEvents()
	require.Len(t, drained, 4)
	assert.Equal(t, order.StatusPartiallyFilled, drained[0].Status)
	assert.Equal(t, order.StatusFilled, drained[3].Status)
}

func TestBus_DrainOrderEvents_NonBlockingWhenEmpty(t *testing.T) {
	b := eventbus.New(4, nil)
	assert.Empty(t, b.DrainOrderEvents())
}

func TestBus_PublishOrderEvent_BlocksUntilDrainedNotDropped(t *testing.T) {
	b := eventbus.New(1, nil)
	ctx := context.Background()
	require.NoError(t, b.PublishOrderEvent(ctx, order.Event{OrderID: 1, Status: order.StatusSubmitted}))

	var wg sync.WaitGroup
	wg.Add(1)
	published := make(chan struct{})
	go func() {
		defer wg.Done()
		require.NoError(t, b.PublishOrderEvent(ctx, order.Event{OrderID: 1, Status: order.StatusFilled}))
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("second publish should have blocked on a full, non-dropping queue")
	case <-time.After(20 * time.Millisecond):
	}

	drained := b.DrainOrderEvents()
	require.Len(t, drained, 1)

	wg.Wait()
	drained = b.DrainOrderEvents()
	require.Len(t, drained, 1)
	assert.Equal(t, order.StatusFilled, drained[0].Status)
}

func TestBus_PublishOrderEvent_RespectsContextCancellation(t *testing.T) {
	b := eventbus.New(1, nil)
	ctx := context.Background()
	require.NoError(t, b.PublishOrderEvent(ctx, order.Event{OrderID: 1, Status: order.StatusSubmitted}))

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err := b.PublishOrderEvent(cctx, order.Event{OrderID: 1, Status: order.StatusFilled})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBus_PublishError_FatalAndWarningBothQueue(t *testing.T) {
	b := eventbus.New(4, nil)
	ctx := context.Background()
	require.NoError(t, b.PublishError(ctx, eventbus.ErrorEvent{Severity: eventbus.SeverityWarning, Code: "RATE_LIMIT", Message: "slow down"}))
	require.NoError(t, b.PublishError(ctx, eventbus.ErrorEvent{Severity: eventbus.SeverityError, Code: "UNKNOWN_ORDER_ID", Message: "fatal"}))

	drained := b.DrainErrors()
	require.Len(t, drained, 2)
	assert.Equal(t, eventbus.SeverityWarning, drained[0].Severity)
	assert.Equal(t, eventbus.SeverityError, drained[1].Severity)
}
