package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Brokerage adapter operations",
	Long:  `Commands for inspecting the brokerage adapter's connection, open orders, holdings, and balances.`,
}

var brokerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check brokerage adapter connection status",
	RunE:  runBrokerStatus,
}

var brokerOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List open brokerage orders",
	RunE:  runBrokerOrders,
}

var brokerPositionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List brokerage-reported holdings",
	RunE:  runBrokerPositions,
}

var brokerBalancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "List brokerage cash balances",
	RunE:  runBrokerBalances,
}

func init() {
	rootCmd.AddCommand(brokerCmd)
	brokerCmd.AddCommand(brokerStatusCmd)
	brokerCmd.AddCommand(brokerOrdersCmd)
	brokerCmd.AddCommand(brokerPositionsCmd)
	brokerCmd.AddCommand(brokerBalancesCmd)
}

// withBroker connects the configured broker, runs fn, and disconnects
// regardless of fn's outcome.
func withBroker(fn func(ctx context.Context, b brokerage.Broker, log *zap.Logger) error) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b, err := getBroker(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := b.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer b.Disconnect()

	return fn(ctx, b, log)
}

func runBrokerStatus(cmd *cobra.Command, args []string) error {
	return withBroker(func(ctx context.Context, b brokerage.Broker, log *zap.Logger) error {
		fmt.Printf("Connected: %v\n", b.IsConnected())
		log.Info("broker status checked", zap.Bool("connected", b.IsConnected()))
		return nil
	})
}

func runBrokerOrders(cmd *cobra.Command, args []string) error {
	return withBroker(func(ctx context.Context, b brokerage.Broker, log *zap.Logger) error {
		orders, err := b.GetOpenOrders(ctx)
		if err != nil {
			return fmt.Errorf("getting open orders: %w", err)
		}
		if len(orders) == 0 {
			fmt.Println("No open orders.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSYMBOL\tDIRECTION\tTYPE\tSTATUS\tQTY\tREMAINING\tEXECUTED\t")
		for _, o := range orders {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				o.ID, o.Symbol, o.Direction, o.Type, o.Status,
				o.Quantity.String(), o.Remaining.String(), o.Executed.String())
		}
		w.Flush()

		log.Info("open orders listed", zap.Int("count", len(orders)))
		return nil
	})
}

func runBrokerPositions(cmd *cobra.Command, args []string) error {
	return withBroker(func(ctx context.Context, b brokerage.Broker, log *zap.Logger) error {
		positions, err := b.GetHoldings(ctx)
		if err != nil {
			return fmt.Errorf("getting holdings: %w", err)
		}
		if len(positions) == 0 {
			fmt.Println("No positions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tQUANTITY\tAVG COST\t")
		for _, p := range positions {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", p.Symbol, p.Quantity.String(), p.AverageCost.String())
		}
		w.Flush()

		log.Info("positions listed", zap.Int("count", len(positions)))
		return nil
	})
}

func runBrokerBalances(cmd *cobra.Command, args []string) error {
	return withBroker(func(ctx context.Context, b brokerage.Broker, log *zap.Logger) error {
		balances, err := b.GetCashBalance(ctx)
		if err != nil {
			return fmt.Errorf("getting cash balances: %w", err)
		}
		if len(balances) == 0 {
			fmt.Println("No balances.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENCY\tAMOUNT\tRATE\t")
		for _, bal := range balances {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", bal.Currency, bal.Amount.String(), bal.Rate.String())
		}
		w.Flush()

		log.Info("balances listed", zap.Int("count", len(balances)))
		return nil
	})
}
