package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/quantrail/corebook/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstThenBlocks(t *testing.T) {
	l := ratelimit.NewLimiter(map[ratelimit.Category][2]float64{
		ratelimit.CategoryOrders: {2, 100}, // burst 2, then one token every 10ms
	})
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, ratelimit.CategoryOrders))
	require.NoError(t, l.Wait(ctx, ratelimit.CategoryOrders))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, ratelimit.CategoryOrders))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestLimiter_RespectsContextCancellation(t *testing.T) {
	l := ratelimit.NewLimiter(map[ratelimit.Category][2]float64{
		ratelimit.CategoryOrders: {1, 0.001}, // near-zero refill rate
	})
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, ratelimit.CategoryOrders)) // drains the only token

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := l.Wait(cctx, ratelimit.CategoryOrders)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_UnconfiguredCategoryDoesNotBlock(t *testing.T) {
	l := ratelimit.NewLimiter(map[ratelimit.Category][2]float64{
		ratelimit.CategoryOrders: {1, 1000},
	})
	err := l.Wait(context.Background(), ratelimit.CategoryAccount)
	assert.NoError(t, err)
}

func TestDefaultLimiter_OrdersCategoryThrottles(t *testing.T) {
	l := ratelimit.DefaultLimiter()
	ctx := context.Background()
	for i := 0; i < 20; i++ { // the orders burst
		require.NoError(t, l.Wait(ctx, ratelimit.CategoryOrders))
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(cctx, ratelimit.CategoryOrders), context.DeadlineExceeded)
}
