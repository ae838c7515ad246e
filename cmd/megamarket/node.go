package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// stdoutEmit writes stream fragments straight to stdout.
func stdoutEmit(fragment string) error {
	_, err := os.Stdout.WriteString(fragment)
	return err
}

func newNodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "node <id>",
		Short: "Print a unit and its current subtree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				if err := d.Nodes.HandleGet(cmd.Context(), args[0], stdoutEmit); err != nil {
					return fmt.Errorf("streaming node: %w", err)
				}

				fmt.Println()
				return nil
			})
		},
	}
}
