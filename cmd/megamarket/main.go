// Package main provides the entry point for the megamarket service and CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version      = "0.1.0-dev"
	globalConfig string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "megamarket",
		Short:   "A temporal catalog of categories and offers with streaming price aggregation",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&globalConfig, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newDeleteCmd(),
		newNodeCmd(),
		newStatisticCmd(),
		newSalesCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
