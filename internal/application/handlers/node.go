// Package handlers exposes application-level operations to the transports
// (HTTP and CLI). Handlers receive validated, typed inputs, build fresh
// request-scoped services over one store transaction, and hand back either a
// terminal signal or a lazy fragment stream.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/ports"
	"github.com/Dest0re/backend-school2022/internal/domain/services"
)

// NodeHandler handles node read operations at the application layer.
type NodeHandler struct {
	store  ports.RevisionStore
	budget time.Duration
}

// NewNodeHandler creates a new NodeHandler with the given streaming budget.
func NewNodeHandler(store ports.RevisionStore, budget time.Duration) *NodeHandler {
	return &NodeHandler{
		store:  store,
		budget: budget,
	}
}

// HandleGet streams the unit and its whole aggregated subtree as one JSON
// object. The subtree is read at the latest known state.
func (h *NodeHandler) HandleGet(ctx context.Context, unitID string, emit services.EmitFunc) error {
	tx, err := h.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback()

	aggregator := services.NewAggregator(tx, h.budget)
	return aggregator.Stream(ctx, unitID, entities.Window{}, true, emit)
}

// HandleStatistic streams the change timeline of the unit inside the window
// as an {"items": [...]} envelope of flat snapshots. The unit must exist at
// all (in any window) before the stream starts; otherwise NotFound is
// reported up front rather than after the envelope opened.
func (h *NodeHandler) HandleStatistic(ctx context.Context, unitID string, win entities.Window, emit services.EmitFunc) error {
	tx, err := h.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback()

	rev, err := tx.FindGoverningRevision(ctx, unitID, entities.Window{})
	if err != nil {
		return fmt.Errorf("checking unit %q: %w", unitID, err)
	}
	if rev == nil {
		return fmt.Errorf("unit %q: %w", unitID, entities.ErrNotFound)
	}

	aggregator := services.NewAggregator(tx, h.budget)
	timeline := services.NewTimelineCollector(tx, aggregator)
	return timeline.Stream(ctx, unitID, win, emit)
}
