package services

import (
	"context"
	"fmt"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/ports"
)

// Resolution is the historical state of one unit within a window: its
// governing revision, the parent recorded on that revision, and the set of
// effective children.
type Resolution struct {
	Revision entities.Revision
	ParentID *string
	Children []entities.ChildRef
}

// Resolver locates the point-in-time state of a unit. A new resolver is
// built per request on top of that request's store view; it holds no state
// of its own.
type Resolver struct {
	reader ports.RevisionReader
}

// NewResolver creates a Resolver over the given store view.
func NewResolver(reader ports.RevisionReader) *Resolver {
	return &Resolver{reader: reader}
}

// Resolve finds the governing revision of the unit inside the window, the
// parent id carried by that revision, and the unit's effective children.
// Children are listed only for categories; offers are leaves.
func (r *Resolver) Resolve(ctx context.Context, unitID string, win entities.Window) (*Resolution, error) {
	rev, err := r.reader.FindGoverningRevision(ctx, unitID, win)
	if err != nil {
		return nil, fmt.Errorf("fetching governing revision: %w", err)
	}
	if rev == nil {
		return nil, fmt.Errorf("unit %q: %w", unitID, entities.ErrNotFound)
	}

	parentID, err := r.reader.FindParentID(ctx, rev.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching parent link: %w", err)
	}

	res := &Resolution{Revision: *rev, ParentID: parentID}

	if rev.Type == entities.UnitTypeCategory {
		children, err := r.reader.ListEffectiveChildren(ctx, unitID, win)
		if err != nil {
			return nil, fmt.Errorf("listing effective children: %w", err)
		}
		res.Children = children
	}

	return res, nil
}
