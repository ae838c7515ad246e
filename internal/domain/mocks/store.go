// Package mocks provides in-memory implementations of the domain ports.
package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/ports"
)

// Store is an in-memory implementation of ports.RevisionStore. Transactions
// copy the whole dataset and swap it back on Commit, which gives tests real
// batch atomicity without a database.
type Store struct {
	mu   sync.Mutex
	data *data

	// Err, when set, is returned by every storage operation.
	Err error
}

type data struct {
	units     map[string]struct{}
	revisions []entities.Revision
	links     map[int64]string
	nextID    int64
}

func newData() *data {
	return &data{
		units:  make(map[string]struct{}),
		links:  make(map[int64]string),
		nextID: 1,
	}
}

func (d *data) clone() *data {
	c := &data{
		units:     make(map[string]struct{}, len(d.units)),
		revisions: append([]entities.Revision(nil), d.revisions...),
		links:     make(map[int64]string, len(d.links)),
		nextID:    d.nextID,
	}
	for id := range d.units {
		c.units[id] = struct{}{}
	}
	for rev, parent := range d.links {
		c.links[rev] = parent
	}
	return c
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newData()}
}

// EnsureSchema is a no-op.
func (s *Store) EnsureSchema(_ context.Context) error {
	return s.Err
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Begin opens a transaction over a snapshot of the current data.
func (s *Store) Begin(_ context.Context) (ports.StoreTx, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Tx{store: s, data: s.data.clone()}, nil
}

// BeginSerializable behaves like Begin; the copy-and-swap commit already
// serializes writers behind the store mutex.
func (s *Store) BeginSerializable(ctx context.Context) (ports.StoreTx, error) {
	return s.Begin(ctx)
}

// Reader methods over committed data.

func (s *Store) FindGoverningRevision(_ context.Context, unitID string, win entities.Window) (*entities.Revision, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.governing(unitID, win), nil
}

func (s *Store) FindParentID(_ context.Context, revisionID int64) (*string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.parentID(revisionID), nil
}

func (s *Store) ListEffectiveChildren(_ context.Context, parentID string, win entities.Window) ([]entities.ChildRef, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.effectiveChildren(parentID, win), nil
}

func (s *Store) ListRevisions(_ context.Context, unitIDs []string, win entities.Window) ([]entities.Revision, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.listRevisions(unitIDs, win), nil
}

func (s *Store) ListLatestOfferRevisions(_ context.Context, win entities.Window) ([]entities.Revision, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.latestOffers(win), nil
}

// Tx is an in-memory transaction over a cloned dataset.
type Tx struct {
	store *Store
	data  *data
	done  bool
}

// Commit publishes the transaction's dataset.
func (t *Tx) Commit() error {
	if t.store.Err != nil {
		return t.store.Err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if !t.done {
		t.store.data = t.data
		t.done = true
	}
	return nil
}

// Rollback discards the transaction's dataset.
func (t *Tx) Rollback() error {
	t.done = true
	return nil
}

func (t *Tx) CreateIdentity(_ context.Context, unitID string) error {
	if t.store.Err != nil {
		return t.store.Err
	}
	t.data.units[unitID] = struct{}{}
	return nil
}

func (t *Tx) IdentityExists(_ context.Context, unitID string) (bool, error) {
	if t.store.Err != nil {
		return false, t.store.Err
	}
	_, ok := t.data.units[unitID]
	return ok, nil
}

func (t *Tx) LatestRevision(_ context.Context, unitID string) (*entities.Revision, error) {
	if t.store.Err != nil {
		return nil, t.store.Err
	}
	return t.data.governing(unitID, entities.Window{}), nil
}

func (t *Tx) RevisionExists(_ context.Context, unitID string, date time.Time) (bool, error) {
	if t.store.Err != nil {
		return false, t.store.Err
	}
	for _, rev := range t.data.revisions {
		if rev.UnitID == unitID && rev.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (t *Tx) InsertRevision(_ context.Context, rev entities.Revision) (int64, error) {
	if t.store.Err != nil {
		return 0, t.store.Err
	}
	rev.ID = t.data.nextID
	rev.Date = rev.Date.UTC()
	t.data.nextID++
	t.data.revisions = append(t.data.revisions, rev)
	return rev.ID, nil
}

func (t *Tx) InsertParentLink(_ context.Context, childRevisionID int64, parentID string) error {
	if t.store.Err != nil {
		return t.store.Err
	}
	t.data.links[childRevisionID] = parentID
	return nil
}

func (t *Tx) DeleteIdentity(_ context.Context, unitID string) error {
	if t.store.Err != nil {
		return t.store.Err
	}
	delete(t.data.units, unitID)

	kept := t.data.revisions[:0]
	for _, rev := range t.data.revisions {
		if rev.UnitID == unitID {
			delete(t.data.links, rev.ID)
			continue
		}
		kept = append(kept, rev)
	}
	t.data.revisions = kept

	for revID, parent := range t.data.links {
		if parent == unitID {
			delete(t.data.links, revID)
		}
	}
	return nil
}

func (t *Tx) FindGoverningRevision(_ context.Context, unitID string, win entities.Window) (*entities.Revision, error) {
	if t.store.Err != nil {
		return nil, t.store.Err
	}
	return t.data.governing(unitID, win), nil
}

func (t *Tx) FindParentID(_ context.Context, revisionID int64) (*string, error) {
	if t.store.Err != nil {
		return nil, t.store.Err
	}
	return t.data.parentID(revisionID), nil
}

func (t *Tx) ListEffectiveChildren(_ context.Context, parentID string, win entities.Window) ([]entities.ChildRef, error) {
	if t.store.Err != nil {
		return nil, t.store.Err
	}
	return t.data.effectiveChildren(parentID, win), nil
}

func (t *Tx) ListRevisions(_ context.Context, unitIDs []string, win entities.Window) ([]entities.Revision, error) {
	if t.store.Err != nil {
		return nil, t.store.Err
	}
	return t.data.listRevisions(unitIDs, win), nil
}

func (t *Tx) ListLatestOfferRevisions(_ context.Context, win entities.Window) ([]entities.Revision, error) {
	if t.store.Err != nil {
		return nil, t.store.Err
	}
	return t.data.latestOffers(win), nil
}

// Query logic shared by store and transaction views.

func (d *data) governing(unitID string, win entities.Window) *entities.Revision {
	var best *entities.Revision
	for i := range d.revisions {
		rev := &d.revisions[i]
		if rev.UnitID != unitID || !win.Contains(rev.Date) {
			continue
		}
		if best == nil || rev.Date.After(best.Date) {
			best = rev
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func (d *data) parentID(revisionID int64) *string {
	parent, ok := d.links[revisionID]
	if !ok {
		return nil
	}
	return &parent
}

func (d *data) effectiveChildren(parentID string, win entities.Window) []entities.ChildRef {
	children := make([]entities.ChildRef, 0, 8)
	for id := range d.units {
		rev := d.governing(id, win)
		if rev == nil {
			continue
		}
		if p := d.parentID(rev.ID); p != nil && *p == parentID {
			children = append(children, entities.ChildRef{ID: id, Type: rev.Type})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children
}

func (d *data) listRevisions(unitIDs []string, win entities.Window) []entities.Revision {
	wanted := make(map[string]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		wanted[id] = struct{}{}
	}
	result := make([]entities.Revision, 0, 16)
	for _, rev := range d.revisions {
		if _, ok := wanted[rev.UnitID]; ok && win.Contains(rev.Date) {
			result = append(result, rev)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

func (d *data) latestOffers(win entities.Window) []entities.Revision {
	latest := make(map[string]entities.Revision)
	for _, rev := range d.revisions {
		if rev.Type != entities.UnitTypeOffer || !win.Contains(rev.Date) {
			continue
		}
		if prev, ok := latest[rev.UnitID]; !ok || rev.Date.After(prev.Date) {
			latest[rev.UnitID] = rev
		}
	}
	result := make([]entities.Revision, 0, len(latest))
	for _, rev := range latest {
		result = append(result, rev)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UnitID < result[j].UnitID })
	return result
}
