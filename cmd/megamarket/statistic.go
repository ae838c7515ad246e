package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
)

type statisticFlags struct {
	from string
	to   string
}

func newStatisticCmd() *cobra.Command {
	var flags statisticFlags

	cmd := &cobra.Command{
		Use:   "statistic <id>",
		Short: "Print the update history of a unit as JSON",
		Long:  "Streams one snapshot of the unit per update date within the requested interval.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatistic(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.from, "from", "", "Interval start (inclusive)")
	cmd.Flags().StringVar(&flags.to, "to", "", "Interval end (inclusive)")

	return cmd
}

func runStatistic(cmd *cobra.Command, unitID string, flags statisticFlags) error {
	var win entities.Window

	if flags.from != "" {
		from, err := entities.ParseDate(flags.from)
		if err != nil {
			return fmt.Errorf("parsing --from: %w", err)
		}
		win.From = &from
	}

	if flags.to != "" {
		to, err := entities.ParseDate(flags.to)
		if err != nil {
			return fmt.Errorf("parsing --to: %w", err)
		}
		win.To = &to
	}

	return withDeps(func(d *Deps) error {
		if err := d.Nodes.HandleStatistic(cmd.Context(), unitID, win, stdoutEmit); err != nil {
			return fmt.Errorf("streaming statistic: %w", err)
		}

		fmt.Println()
		return nil
	})
}
