package services

import (
	"context"
	"fmt"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/ports"
)

// SalesCollector streams the offers whose latest revision falls inside a
// date window, as flat snapshots. Offers are leaves, so no aggregation runs;
// each entry is a single object.
type SalesCollector struct {
	reader     ports.RevisionReader
	aggregator *Aggregator
}

// NewSalesCollector creates a SalesCollector over the request's store view.
func NewSalesCollector(reader ports.RevisionReader, aggregator *Aggregator) *SalesCollector {
	return &SalesCollector{reader: reader, aggregator: aggregator}
}

// Stream emits an {"items": [...]} envelope with one entry per unit whose
// latest OFFER revision date lies inside the window. Units without an OFFER
// revision in the window are omitted; no unit appears twice.
func (c *SalesCollector) Stream(ctx context.Context, win entities.Window, emit EmitFunc) error {
	offers, err := c.reader.ListLatestOfferRevisions(ctx, win)
	if err != nil {
		return fmt.Errorf("listing offer revisions: %w", err)
	}

	if err := emit(`{"items": [`); err != nil {
		return fmt.Errorf("emitting envelope: %w", err)
	}

	for i, rev := range offers {
		if i > 0 {
			if err := emit(childSeparator); err != nil {
				return fmt.Errorf("emitting separator: %w", err)
			}
		}
		if err := c.aggregator.Stream(ctx, rev.UnitID, win, false, emit); err != nil {
			return err
		}
	}

	if err := emit(`]}`); err != nil {
		return fmt.Errorf("emitting envelope: %w", err)
	}
	return nil
}
