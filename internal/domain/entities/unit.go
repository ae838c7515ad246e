// Package entities contains core domain data structures.
package entities

import "time"

// UnitType represents the kind of a catalog unit.
type UnitType string

const (
	UnitTypeOffer    UnitType = "OFFER"
	UnitTypeCategory UnitType = "CATEGORY"
)

// Valid reports whether the type is one of the known unit kinds.
func (t UnitType) Valid() bool {
	return t == UnitTypeOffer || t == UnitTypeCategory
}

// Revision is one immutable dated snapshot of a unit's attributes.
// A unit's full history is the append-only sequence of its revisions;
// the revision with the greatest date not after a query's upper bound
// governs the unit's state at that point in time.
type Revision struct {
	ID     int64     `json:"id"`
	UnitID string    `json:"unit_id"`
	Date   time.Time `json:"date"`
	Name   string    `json:"name"`
	Type   UnitType  `json:"type"`
	Price  *int64    `json:"price,omitempty"`
}

// ChildRef identifies an effective child of a unit together with its kind,
// which decides whether the child is a leaf or a subtree.
type ChildRef struct {
	ID   string   `json:"id"`
	Type UnitType `json:"type"`
}

// ImportItem is one unit descriptor of an import batch.
type ImportItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     UnitType `json:"type"`
	ParentID *string  `json:"parentId,omitempty"`
	Price    *int64   `json:"price,omitempty"`
}
