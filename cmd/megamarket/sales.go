package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
)

type salesFlags struct {
	date string
}

func newSalesCmd() *cobra.Command {
	var flags salesFlags

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Print offers updated in the 24 hours before a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSales(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.date, "date", "", "Reference date (defaults to now)")

	return cmd
}

func runSales(cmd *cobra.Command, flags salesFlags) error {
	date := time.Now().UTC()
	if flags.date != "" {
		parsed, err := entities.ParseDate(flags.date)
		if err != nil {
			return fmt.Errorf("parsing --date: %w", err)
		}
		date = parsed
	}

	return withDeps(func(d *Deps) error {
		if err := d.Sales.HandleSales(cmd.Context(), date, stdoutEmit); err != nil {
			return fmt.Errorf("streaming sales: %w", err)
		}

		fmt.Println()
		return nil
	})
}
