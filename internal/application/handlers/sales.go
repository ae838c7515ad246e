package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/ports"
	"github.com/Dest0re/backend-school2022/internal/domain/services"
)

// salesWindow is how far back from the requested date the sales listing
// reaches.
const salesWindow = 24 * time.Hour

// SalesHandler handles the sales listing at the application layer.
type SalesHandler struct {
	store  ports.RevisionStore
	budget time.Duration
}

// NewSalesHandler creates a new SalesHandler.
func NewSalesHandler(store ports.RevisionStore, budget time.Duration) *SalesHandler {
	return &SalesHandler{
		store:  store,
		budget: budget,
	}
}

// HandleSales streams the offers whose latest revision falls inside the
// 24-hour window ending at date, as an {"items": [...]} envelope.
func (h *SalesHandler) HandleSales(ctx context.Context, date time.Time, emit services.EmitFunc) error {
	tx, err := h.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback()

	aggregator := services.NewAggregator(tx, h.budget)
	sales := services.NewSalesCollector(tx, aggregator)
	return sales.Stream(ctx, entities.Between(date.Add(-salesWindow), date), emit)
}
