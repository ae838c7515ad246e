package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/ports"
)

// TimelineCollector streams the change history of a unit: one flat snapshot
// per distinct date on which the unit or any then-current descendant was
// revised inside the window, ordered by date ascending.
type TimelineCollector struct {
	reader     ports.RevisionReader
	aggregator *Aggregator
}

// NewTimelineCollector creates a TimelineCollector sharing the request's
// store view and streaming budget with the given aggregator.
func NewTimelineCollector(reader ports.RevisionReader, aggregator *Aggregator) *TimelineCollector {
	return &TimelineCollector{reader: reader, aggregator: aggregator}
}

// Stream emits an {"items": [...]} envelope with one flat snapshot of the
// unit per change date. Dates before the unit's creation are skipped
// silently. Each snapshot is computed as of its date with no lower bound,
// regardless of the window's From, which only restricts which change dates
// qualify.
func (c *TimelineCollector) Stream(ctx context.Context, unitID string, win entities.Window, emit EmitFunc) error {
	dates, err := c.changeDates(ctx, unitID, win)
	if err != nil {
		return err
	}

	if err := emit(`{"items": [`); err != nil {
		return fmt.Errorf("emitting envelope: %w", err)
	}

	first := true
	for _, date := range dates {
		asOf := entities.UpTo(date)

		rev, err := c.reader.FindGoverningRevision(ctx, unitID, asOf)
		if err != nil {
			return fmt.Errorf("fetching revision as of %s: %w", entities.FormatDate(date), err)
		}
		if rev == nil {
			// The unit did not exist yet at this date.
			continue
		}

		if !first {
			if err := emit(childSeparator); err != nil {
				return fmt.Errorf("emitting separator: %w", err)
			}
		}

		// The reader is a request-scoped snapshot, so the governing check
		// above and the walk below cannot disagree.
		if err := c.aggregator.Stream(ctx, unitID, asOf, false, emit); err != nil {
			return err
		}
		first = false
	}

	if err := emit(`]}`); err != nil {
		return fmt.Errorf("emitting envelope: %w", err)
	}
	return nil
}

// changeDates computes the identity closure of the unit inside the window
// and returns the sorted, deduplicated union of all revision dates of those
// identities that fall inside the window.
func (c *TimelineCollector) changeDates(ctx context.Context, unitID string, win entities.Window) ([]time.Time, error) {
	closure := map[string]struct{}{unitID: {}}
	stack := []string{unitID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := c.reader.ListEffectiveChildren(ctx, id, win)
		if err != nil {
			return nil, fmt.Errorf("expanding closure of %q: %w", id, err)
		}
		for _, child := range children {
			if _, seen := closure[child.ID]; seen {
				continue
			}
			closure[child.ID] = struct{}{}
			if child.Type == entities.UnitTypeCategory {
				stack = append(stack, child.ID)
			}
		}
	}

	ids := make([]string, 0, len(closure))
	for id := range closure {
		ids = append(ids, id)
	}

	revs, err := c.reader.ListRevisions(ctx, ids, win)
	if err != nil {
		return nil, fmt.Errorf("listing closure revisions: %w", err)
	}

	seen := make(map[time.Time]struct{}, len(revs))
	dates := make([]time.Time, 0, len(revs))
	for _, rev := range revs {
		d := rev.Date.UTC()
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
