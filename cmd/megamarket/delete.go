package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a unit and its current subtree",
		Long:  "Removes a unit, all of its history, and every unit currently parented under it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				if err := d.Imports.HandleDelete(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("deleting unit: %w", err)
				}

				fmt.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
}
