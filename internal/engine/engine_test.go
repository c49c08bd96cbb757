package engine

import (
	"context"
	"testing"
	"time"

	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/config"
	"github.com/quantrail/corebook/internal/money"
	"github.com/quantrail/corebook/internal/security"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Reconciler.PollInterval = 500 * time.Millisecond
	return cfg
}

func TestNewWiresEveryCollaborator(t *testing.T) {
	broker := brokerage.NewMock()
	eng, err := New(testConfig(), broker, nil)
	require.NoError(t, err)

	require.NotNil(t, eng.Securities)
	require.NotNil(t, eng.Holdings)
	require.NotNil(t, eng.Cash)
	require.NotNil(t, eng.Portfolio)
	require.NotNil(t, eng.Txns)
	require.NotNil(t, eng.Contingent)
	require.NotNil(t, eng.Fees)
	require.NotNil(t, eng.Margin)
	require.NotNil(t, eng.Submitter)
	require.NotNil(t, eng.Router)
	require.NotNil(t, eng.Reconciler)
	require.NotNil(t, eng.Bus)
	require.NotNil(t, eng.Metrics)

	require.Equal(t, "USD", eng.Cash.AccountCurrency())
	entry, ok := eng.Cash.Get("USD")
	require.True(t, ok)
	require.True(t, entry.Rate.Equal(money.One))
}

func TestNewRejectsUnknownMarginModel(t *testing.T) {
	cfg := testConfig()
	cfg.Margin.Model = "bogus"
	_, err := New(cfg, brokerage.NewMock(), nil)
	require.Error(t, err)
}

func TestNewRejectsUnknownSettlementModel(t *testing.T) {
	cfg := testConfig()
	cfg.Settlement.Model = "bogus"
	_, err := New(cfg, brokerage.NewMock(), nil)
	require.Error(t, err)
}

func TestStartConnectsBrokerAndRunsReconciler(t *testing.T) {
	broker := brokerage.NewMock()
	eng, err := New(testConfig(), broker, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, eng.Start(ctx))
	require.True(t, broker.IsConnected())

	// A second concurrent Start call must not be allowed while running.
	require.Error(t, eng.Start(ctx))

	require.NoError(t, eng.Stop())
	require.False(t, broker.IsConnected())

	// Stop is idempotent.
	require.NoError(t, eng.Stop())
}

func TestDefaultMarginModelReflectsConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Margin.Model = "cash"
	eng, err := New(cfg, brokerage.NewMock(), nil)
	require.NoError(t, err)
	require.Equal(t, security.MarginModelNull, eng.DefaultMarginModel())

	cfg2 := testConfig()
	cfg2.Margin.Model = "reg_t"
	eng2, err := New(cfg2, brokerage.NewMock(), nil)
	require.NoError(t, err)
	require.Equal(t, security.MarginModelPDT, eng2.DefaultMarginModel())
}
