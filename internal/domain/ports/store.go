// Package ports defines the interfaces between the domain and its
// collaborators. The store interfaces are primitive by design: all business
// logic (aggregation, invariant enforcement, cascades) lives in the services
// layer, and the store only answers point-in-time fetch and list questions.
package ports

import (
	"context"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
)

// RevisionReader is the read-only view of the revision store. It is
// implemented both by the store itself (one query per call) and by StoreTx
// (all calls inside one transaction), so read paths can run against a single
// request-scoped snapshot.
type RevisionReader interface {
	// FindGoverningRevision returns the revision of the unit with the
	// greatest date inside the window, or nil if the unit has no revision
	// there.
	FindGoverningRevision(ctx context.Context, unitID string, win entities.Window) (*entities.Revision, error)

	// FindParentID returns the parent unit id linked to the given revision,
	// or nil if the revision has no parent link.
	FindParentID(ctx context.Context, revisionID int64) (*string, error)

	// ListEffectiveChildren returns the units whose own governing revision
	// inside the window carries a parent link to parentID. Each candidate's
	// single governing revision is picked first and only then filtered by
	// parent, so a unit re-parented by a later revision is not reported
	// under its historical parent.
	ListEffectiveChildren(ctx context.Context, parentID string, win entities.Window) ([]entities.ChildRef, error)

	// ListRevisions returns every revision of the given units whose date
	// falls inside the window.
	ListRevisions(ctx context.Context, unitIDs []string, win entities.Window) ([]entities.Revision, error)

	// ListLatestOfferRevisions returns, for every unit of kind OFFER with at
	// least one revision inside the window, the revision with the maximum
	// date there. No unit appears twice.
	ListLatestOfferRevisions(ctx context.Context, win entities.Window) ([]entities.Revision, error)
}

// StoreTx is one open transaction against the revision store. Mutations are
// visible to reads on the same transaction and become durable only on Commit.
type StoreTx interface {
	RevisionReader

	// CreateIdentity registers a permanent unit id. Creating an id that
	// already exists is a no-op.
	CreateIdentity(ctx context.Context, unitID string) error

	// IdentityExists reports whether the unit id is registered.
	IdentityExists(ctx context.Context, unitID string) (bool, error)

	// LatestRevision returns the unit's revision with the greatest date
	// regardless of any window, or nil if the unit has no revisions.
	LatestRevision(ctx context.Context, unitID string) (*entities.Revision, error)

	// RevisionExists reports whether the unit already has a revision with
	// this exact date.
	RevisionExists(ctx context.Context, unitID string, date time.Time) (bool, error)

	// InsertRevision appends a revision and returns its sequence id.
	InsertRevision(ctx context.Context, rev entities.Revision) (int64, error)

	// InsertParentLink associates a child revision with a parent unit id.
	InsertParentLink(ctx context.Context, childRevisionID int64, parentID string) error

	// DeleteIdentity removes a unit id together with all its revisions and
	// the parent links attached to them.
	DeleteIdentity(ctx context.Context, unitID string) error

	Commit() error
	Rollback() error
}

// RevisionStore is the persistence collaborator of the engine.
type RevisionStore interface {
	RevisionReader

	// EnsureSchema creates the storage schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Begin opens a read transaction at the store's default isolation.
	Begin(ctx context.Context) (StoreTx, error)

	// BeginSerializable opens a transaction with serializable isolation for
	// the mutation path. A conflict detected by the store surfaces as an
	// error from Commit and is not retried here.
	BeginSerializable(ctx context.Context) (StoreTx, error)

	// Close closes the underlying connection.
	Close() error
}
