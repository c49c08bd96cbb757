// Package engine wires the core's components into one runnable unit the
// way the teacher's internal/app.App wires collectors/strategies/router
// into ATLAS's monitoring loop
// (_examples/newthinker-atlas/internal/app/app.go): a single New takes
// config and a logger, constructs every arena and service in dependency
// order, and exposes Start/Stop for the Fill Reconciler's polling loop.
// A strategy (or, for this repo, cmd/corebookctl) drives the engine
// through Router and reads Bus for order events.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/cashbook"
	"github.com/quantrail/corebook/internal/config"
	"github.com/quantrail/corebook/internal/contingent"
	"github.com/quantrail/corebook/internal/eventbus"
	"github.com/quantrail/corebook/internal/margin"
	"github.com/quantrail/corebook/internal/metrics"
	"github.com/quantrail/corebook/internal/portfolio"
	"github.com/quantrail/corebook/internal/ratelimit"
	"github.com/quantrail/corebook/internal/reconcile"
	"github.com/quantrail/corebook/internal/router"
	"github.com/quantrail/corebook/internal/security"
	"github.com/quantrail/corebook/internal/settlement"
	"github.com/quantrail/corebook/internal/txn"
	"go.uber.org/zap"
)

// Engine owns every long-lived service the core needs, wired from a
// config.Config and a concrete brokerage.Broker. The broker is supplied by
// the caller (cmd/corebookctl picks it per Brokerage.Provider) rather than
// constructed here, so tests and the mock-broker demo path share this
// exact wiring.
type Engine struct {
	cfg *config.Config
	log *zap.Logger

	Broker     brokerage.Broker
	Securities *security.Arena
	Holdings   *portfolio.Arena
	Cash       *cashbook.CashBook
	Portfolio  *portfolio.Context
	Txns       *txn.Manager
	Contingent *contingent.Manager
	Fees       *brokerage.FeeRegistry
	Margin     *margin.Calculator
	Submitter  *router.Submitter
	Router     *router.Router
	Reconciler *reconcile.Reconciler
	Bus        *eventbus.Bus
	Metrics    *metrics.Registry

	marginModelDefault security.ModelID
	settlementModel    settlement.Model

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New wires an Engine over cfg and broker. log may be nil.
func New(cfg *config.Config, broker brokerage.Broker, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	marginModel, err := resolveMarginModelID(cfg.Margin.Model)
	if err != nil {
		return nil, err
	}
	settlementModel, err := resolveSettlementModel(cfg.Settlement)
	if err != nil {
		return nil, err
	}

	securities := security.NewArena()
	holdings := portfolio.NewArena()
	cash := cashbook.New(cfg.CashBook.BaseCurrency)
	ctx := portfolio.NewContext(securities, holdings, cash)
	txnMgr := txn.NewManager()
	contingents := contingent.NewManager()
	fees := brokerage.DefaultFeeRegistry()
	marginCalc := margin.NewCalculator(ctx, margin.DefaultRegistry())

	limiter := ratelimit.NewLimiter(map[ratelimit.Category][2]float64{
		ratelimit.CategoryOrders:    {float64(cfg.Brokerage.OrdersBurst), cfg.Brokerage.OrdersPerSecond},
		ratelimit.CategoryAccount:   {float64(cfg.Brokerage.AccountBurst), cfg.Brokerage.AccountPerSecond},
		ratelimit.CategoryReference: {float64(cfg.Brokerage.AccountBurst), cfg.Brokerage.AccountPerSecond},
	})
	retrier := brokerage.NewRetrier(log)

	bus := eventbus.New(256, log)
	metricsReg := metrics.NewRegistry()

	submitter := &router.Submitter{
		Broker:   broker,
		Retrier:  retrier,
		Limiter:  limiter,
		Holdings: holdings,
		Bus:      bus,
	}

	r := router.New(securities, ctx, marginCalc, cash, txnMgr, contingents, submitter, fees, log)
	r.SetMaximumOrders(int64(cfg.Router.MaxOrders))

	rec := reconcile.New(broker, txnMgr, contingents, submitter, securities, holdings, cash, fees,
		settlementModel, settlement.NewQueue(), bus, metricsReg,
		reconcile.Config{
			RingSize:     cfg.Reconciler.FilledRingSize,
			UnknownGrace: cfg.Reconciler.UnknownIDGracePeriod,
		}, log)
	submitter.Tracker = rec

	return &Engine{
		cfg:                cfg,
		log:                log,
		Broker:             broker,
		Securities:         securities,
		Holdings:           holdings,
		Cash:               cash,
		Portfolio:          ctx,
		Txns:               txnMgr,
		Contingent:         contingents,
		Fees:               fees,
		Margin:             marginCalc,
		Submitter:          submitter,
		Router:             r,
		Reconciler:         rec,
		Bus:                bus,
		Metrics:            metricsReg,
		marginModelDefault: marginModel,
		settlementModel:    settlementModel,
	}, nil
}

// DefaultMarginModel reports the margin ModelID a newly-subscribed
// Security should carry absent a more specific choice, resolved once from
// config at wiring time.
func (e *Engine) DefaultMarginModel() security.ModelID { return e.marginModelDefault }

// Start connects the broker (if not already connected) and begins the
// Fill Reconciler's polling loop at the configured interval. It returns
// once the connection succeeds; the poll loop runs until ctx is done or
// Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine: already running")
	}
	if !e.Broker.IsConnected() {
		if err := e.Broker.Connect(ctx); err != nil {
			e.mu.Unlock()
			return fmt.Errorf("engine: connecting to broker: %w", err)
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.mu.Unlock()

	e.log.Info("engine starting",
		zap.Duration("poll_interval", e.cfg.Reconciler.PollInterval),
		zap.String("margin_model", string(e.marginModelDefault)))

	go e.Reconciler.Run(runCtx, e.cfg.Reconciler.PollInterval)
	return nil
}

// Stop halts the reconciliation loop and disconnects the broker.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return e.Broker.Disconnect()
}

// resolveMarginModelID maps the config's account-type name to the
// security.ModelID margin.DefaultRegistry serves. "cash" accounts carry
// no leverage (NullModel, ratio 1); "reg_t" is Regulation T's pattern-day-
// trading ratio table; "portfolio" uses the flat constant-ratio model,
// whose ratio a caller tunes via a custom margin.Registry if the default
// 50%/25% split does not fit.
func resolveMarginModelID(name string) (security.ModelID, error) {
	switch name {
	case "cash":
		return security.MarginModelNull, nil
	case "reg_t":
		return security.MarginModelPDT, nil
	case "portfolio":
		return security.MarginModelConstant, nil
	default:
		return "", fmt.Errorf("engine: unknown margin model %q", name)
	}
}

func resolveSettlementModel(cfg config.SettlementConfig) (settlement.Model, error) {
	switch cfg.Model {
	case "immediate":
		return settlement.ImmediateModel{}, nil
	case "delayed":
		return settlement.DelayedModel{TradingDays: cfg.DelayDays}, nil
	default:
		return nil, fmt.Errorf("engine: unknown settlement model %q", cfg.Model)
	}
}
