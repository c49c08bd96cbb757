package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/config"
	"github.com/quantrail/corebook/internal/engine"
	"github.com/quantrail/corebook/internal/logger"
	"github.com/quantrail/corebook/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the order lifecycle core's reconciliation loop and operator HTTP surface",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	cfg.WarnHardcodedSecrets(func(msg string) { log.Warn(msg) })

	broker, err := getBroker(cfg)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, broker, log)
	if err != nil {
		return fmt.Errorf("wiring engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	log.Info("engine started",
		zap.String("brokerage_provider", cfg.Brokerage.Provider),
		zap.Duration("poll_interval", cfg.Reconciler.PollInterval))

	var httpServer *http.Server
	if cfg.Metrics.Enabled {
		httpServer = newOperatorServer(cfg, eng.Metrics, log)
		go func() {
			log.Info("operator HTTP server listening",
				zap.String("addr", httpServer.Addr), zap.String("metrics_path", cfg.Metrics.Path))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("operator HTTP server error", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("operator HTTP server shutdown error", zap.Error(err))
		}
	}
	return eng.Stop()
}

// newOperatorServer builds the thin HTTP surface cmd/corebookctl exposes
// alongside the engine: Prometheus metrics and a liveness probe. It is
// never the transport the strategy or brokerage adapter use — those are
// out of scope for the core per spec §1.
func newOperatorServer(cfg *config.Config, reg *metrics.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.LoggingMiddleware(log)(metrics.HTTPMiddleware(reg)(promhttp.HandlerFor(reg.Registry, promhttp.HandlerOpts{}))))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: mux,
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Defaults(), nil
	}
	return config.Load(cfgFile)
}

// getBroker resolves the configured brokerage provider to a concrete
// brokerage.Broker. Only "mock" is implemented in this repo; a live wire
// brokerage adapter is an external collaborator per spec §1 and is left
// for a deployment to supply.
func getBroker(cfg *config.Config) (brokerage.Broker, error) {
	switch cfg.Brokerage.Provider {
	case "", "mock":
		return brokerage.NewMock(), nil
	default:
		return nil, fmt.Errorf("brokerage provider %q not implemented; use \"mock\"", cfg.Brokerage.Provider)
	}
}
