package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "corebookctl",
	Short: "corebookctl operates the Brokerage Order Lifecycle Core",
	Long: `corebookctl is the thin operator CLI over the order lifecycle core: it
starts the Fill Reconciliation Engine's HTTP metrics/health surface and
gives an operator read access to the brokerage adapter (status, open
orders, holdings) without going through a strategy.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
