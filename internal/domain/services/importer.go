package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/ports"
)

// ImportService is the mutation path of the catalog. It appends revisions in
// batches and deletes units with cascade, enforcing every structural
// invariant inside one serializable transaction: a batch commits atomically
// or not at all.
type ImportService struct {
	store ports.RevisionStore
}

// NewImportService creates an ImportService.
func NewImportService(store ports.RevisionStore) *ImportService {
	return &ImportService{store: store}
}

// Import appends one revision per item, all stamped updateDate. Identities
// are created on first reference and never duplicated. The whole batch is
// validated and written inside a single serializable transaction; any
// violation aborts it with entities.ErrBadRequest and no partial writes. An
// empty batch is accepted as a no-op. A serialization conflict reported by
// the store is returned as-is and not retried.
func (s *ImportService) Import(ctx context.Context, items []entities.ImportItem, updateDate time.Time) error {
	if len(items) == 0 {
		return nil
	}
	if err := validateBatch(items); err != nil {
		return err
	}

	tx, err := s.store.BeginSerializable(ctx)
	if err != nil {
		return fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	// Mirrors the write order of the wire: all identities, then all
	// revisions, then all parent links. A parent revision arriving in the
	// same batch must already be inserted when its child's link is checked.
	for _, item := range items {
		if err := tx.CreateIdentity(ctx, item.ID); err != nil {
			return fmt.Errorf("creating identity %q: %w", item.ID, err)
		}
	}

	revisionIDs := make(map[string]int64, len(items))
	for _, item := range items {
		revID, err := s.insertRevision(ctx, tx, item, updateDate)
		if err != nil {
			return err
		}
		revisionIDs[item.ID] = revID
	}

	for _, item := range items {
		if item.ParentID == nil {
			continue
		}
		if err := s.linkParent(ctx, tx, revisionIDs[item.ID], item.ID, *item.ParentID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

// insertRevision appends one revision after checking date uniqueness and
// kind immutability against the unit's existing history.
func (s *ImportService) insertRevision(ctx context.Context, tx ports.StoreTx, item entities.ImportItem, updateDate time.Time) (int64, error) {
	prior, err := tx.LatestRevision(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("fetching latest revision of %q: %w", item.ID, err)
	}
	if prior != nil && prior.Type != item.Type {
		return 0, fmt.Errorf("unit %q: kind change from %s to %s: %w",
			item.ID, prior.Type, item.Type, entities.ErrBadRequest)
	}

	exists, err := tx.RevisionExists(ctx, item.ID, updateDate)
	if err != nil {
		return 0, fmt.Errorf("checking revision date of %q: %w", item.ID, err)
	}
	if exists {
		return 0, fmt.Errorf("unit %q: duplicate revision date %s: %w",
			item.ID, entities.FormatDate(updateDate), entities.ErrBadRequest)
	}

	revID, err := tx.InsertRevision(ctx, entities.Revision{
		UnitID: item.ID,
		Date:   updateDate,
		Name:   item.Name,
		Type:   item.Type,
		Price:  item.Price,
	})
	if err != nil {
		return 0, fmt.Errorf("inserting revision of %q: %w", item.ID, err)
	}
	return revID, nil
}

// linkParent attaches a child revision to its parent after validating the
// parent's then-current governing revision: offers are leaves and cannot
// adopt children.
func (s *ImportService) linkParent(ctx context.Context, tx ports.StoreTx, childRevisionID int64, childID, parentID string) error {
	parentRev, err := tx.LatestRevision(ctx, parentID)
	if err != nil {
		return fmt.Errorf("fetching parent %q: %w", parentID, err)
	}
	if parentRev == nil {
		return fmt.Errorf("unit %q: unknown parent %q: %w", childID, parentID, entities.ErrBadRequest)
	}
	if parentRev.Type == entities.UnitTypeOffer {
		return fmt.Errorf("unit %q: parent %q is an offer: %w", childID, parentID, entities.ErrBadRequest)
	}

	if err := tx.InsertParentLink(ctx, childRevisionID, parentID); err != nil {
		return fmt.Errorf("linking %q to %q: %w", childID, parentID, err)
	}
	return nil
}

// Delete removes the unit and every unit currently reachable as its
// descendant, transitively, by the current governing revisions. Historical
// parent links pointing at deleted units are dropped with them. Returns
// entities.ErrNotFound if the id is unknown.
func (s *ImportService) Delete(ctx context.Context, unitID string) error {
	tx, err := s.store.BeginSerializable(ctx)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := tx.IdentityExists(ctx, unitID)
	if err != nil {
		return fmt.Errorf("checking unit %q: %w", unitID, err)
	}
	if !exists {
		return fmt.Errorf("unit %q: %w", unitID, entities.ErrNotFound)
	}

	// The cascade is driven by current state only: a unit that was once a
	// child here but has since moved away survives. The seen set guards
	// against re-parenting loops in the current link graph.
	seen := map[string]struct{}{unitID: {}}
	doomed := []string{unitID}
	for frontier := []string{unitID}; len(frontier) > 0; {
		id := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		children, err := tx.ListEffectiveChildren(ctx, id, entities.Window{})
		if err != nil {
			return fmt.Errorf("listing children of %q: %w", id, err)
		}
		for _, child := range children {
			if _, ok := seen[child.ID]; ok {
				continue
			}
			seen[child.ID] = struct{}{}
			doomed = append(doomed, child.ID)
			if child.Type == entities.UnitTypeCategory {
				frontier = append(frontier, child.ID)
			}
		}
	}

	for _, id := range doomed {
		if err := tx.DeleteIdentity(ctx, id); err != nil {
			return fmt.Errorf("deleting unit %q: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// validateBatch rejects whole batches before any write: repeated ids, price
// placement by kind, and self-parenting.
func validateBatch(items []entities.ImportItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("duplicate id %q in batch: %w", item.ID, entities.ErrBadRequest)
		}
		seen[item.ID] = struct{}{}

		if !item.Type.Valid() {
			return fmt.Errorf("unit %q: unknown type %q: %w", item.ID, item.Type, entities.ErrBadRequest)
		}
		switch item.Type {
		case entities.UnitTypeOffer:
			if item.Price == nil || *item.Price < 0 {
				return fmt.Errorf("unit %q: offer price must be a non-negative integer: %w",
					item.ID, entities.ErrBadRequest)
			}
		case entities.UnitTypeCategory:
			if item.Price != nil {
				return fmt.Errorf("unit %q: category must not carry a price: %w",
					item.ID, entities.ErrBadRequest)
			}
		}

		if item.ParentID != nil && *item.ParentID == item.ID {
			return fmt.Errorf("unit %q: parent references self: %w", item.ID, entities.ErrBadRequest)
		}
	}
	return nil
}
