package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
)

type importFlags struct {
	date string
}

// importFile mirrors the wire payload of POST /imports.
type importFile struct {
	Items      []entities.ImportItem `json:"items"`
	UpdateDate string                `json:"updateDate"`
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a batch of units from a JSON file",
		Long:  "Applies a batch of category and offer updates from a JSON file with {items, updateDate}.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportBatch(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.date, "date", "", "Override the batch update date (defaults to the file's updateDate, then now)")

	return cmd
}

func runImportBatch(cmd *cobra.Command, filePath string, flags importFlags) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading batch file: %w", err)
	}

	var batch importFile
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("parsing batch file: %w", err)
	}

	raw := batch.UpdateDate
	if flags.date != "" {
		raw = flags.date
	}

	updateDate := time.Now().UTC()
	if raw != "" {
		updateDate, err = entities.ParseDate(raw)
		if err != nil {
			return fmt.Errorf("parsing update date: %w", err)
		}
	}

	return withDeps(func(d *Deps) error {
		if err := d.Imports.HandleImport(cmd.Context(), batch.Items, updateDate); err != nil {
			return fmt.Errorf("importing batch: %w", err)
		}

		fmt.Printf("Imported %d items as of %s\n", len(batch.Items), entities.FormatDate(updateDate))
		return nil
	})
}
