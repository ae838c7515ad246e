package handlers

import (
	"context"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/services"
)

// ImportHandler handles the mutation path at the application layer.
type ImportHandler struct {
	importService *services.ImportService
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService *services.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: importService,
	}
}

// HandleImport applies one batch of unit descriptors stamped updateDate.
// The outcome is a terminal signal only: nil on commit, ErrBadRequest on any
// invariant violation, in which case nothing was written.
func (h *ImportHandler) HandleImport(ctx context.Context, items []entities.ImportItem, updateDate time.Time) error {
	return h.importService.Import(ctx, items, updateDate)
}

// HandleDelete removes a unit and its current descendants.
func (h *ImportHandler) HandleDelete(ctx context.Context, unitID string) error {
	return h.importService.Delete(ctx, unitID)
}
