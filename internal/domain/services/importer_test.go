package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/mocks"
)

func TestImportService_EmptyBatch(t *testing.T) {
	store := mocks.NewStore()
	svc := NewImportService(store)

	err := svc.Import(context.Background(), nil, mustDate(t, "2022-02-01T12:00:00.000Z"))
	require.NoError(t, err)
}

func TestImportService_ImportAndResolve(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z",
		categoryItem("root", "Goods", ""),
		offerItem("o1", "Phone", "root", 100),
	)

	rev, err := store.FindGoverningRevision(context.Background(), "o1", entities.Window{})
	require.NoError(t, err)
	require.NotNil(t, rev)
	assert.Equal(t, "Phone", rev.Name)
	assert.Equal(t, entities.UnitTypeOffer, rev.Type)
	require.NotNil(t, rev.Price)
	assert.Equal(t, int64(100), *rev.Price)

	children, err := store.ListEffectiveChildren(context.Background(), "root", entities.Window{})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "o1", children[0].ID)
}

func TestImportService_DuplicateIDInBatch(t *testing.T) {
	store := mocks.NewStore()
	svc := NewImportService(store)

	err := svc.Import(context.Background(), []entities.ImportItem{
		offerItem("o1", "Phone", "", 100),
		offerItem("o1", "Phone again", "", 200),
	}, mustDate(t, "2022-02-01T12:00:00.000Z"))

	assert.ErrorIs(t, err, entities.ErrBadRequest)
}

func TestImportService_PriceRules(t *testing.T) {
	tests := []struct {
		name string
		item entities.ImportItem
	}{
		{"offer without price", entities.ImportItem{ID: "o1", Name: "Phone", Type: entities.UnitTypeOffer}},
		{"offer with negative price", offerItem("o1", "Phone", "", -1)},
		{"category with price", func() entities.ImportItem {
			price := int64(10)
			item := categoryItem("c1", "Goods", "")
			item.Price = &price
			return item
		}()},
		{"unknown type", entities.ImportItem{ID: "x", Name: "What", Type: "GADGET"}},
		{"self parent", func() entities.ImportItem {
			item := categoryItem("c1", "Goods", "")
			item.ParentID = &item.ID
			return item
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewStore()
			svc := NewImportService(store)

			err := svc.Import(context.Background(), []entities.ImportItem{tt.item},
				mustDate(t, "2022-02-01T12:00:00.000Z"))
			assert.ErrorIs(t, err, entities.ErrBadRequest)
		})
	}
}

func TestImportService_TypeChangeRejected(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z", offerItem("u1", "Phone", "", 100))

	svc := NewImportService(store)
	err := svc.Import(context.Background(), []entities.ImportItem{
		categoryItem("u1", "Phone, reborn", ""),
	}, mustDate(t, "2022-02-02T12:00:00.000Z"))

	assert.ErrorIs(t, err, entities.ErrBadRequest)
}

func TestImportService_DuplicateDateRejected(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z", offerItem("o1", "Phone", "", 100))

	svc := NewImportService(store)
	err := svc.Import(context.Background(), []entities.ImportItem{
		offerItem("o1", "Phone again", "", 200),
	}, mustDate(t, "2022-02-01T12:00:00.000Z"))

	assert.ErrorIs(t, err, entities.ErrBadRequest)
}

func TestImportService_OfferCannotBeParent(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z", offerItem("o1", "Phone", "", 100))

	svc := NewImportService(store)
	err := svc.Import(context.Background(), []entities.ImportItem{
		offerItem("o2", "Case", "o1", 10),
	}, mustDate(t, "2022-02-02T12:00:00.000Z"))

	assert.ErrorIs(t, err, entities.ErrBadRequest)
}

func TestImportService_UnknownParentRejected(t *testing.T) {
	store := mocks.NewStore()
	svc := NewImportService(store)

	err := svc.Import(context.Background(), []entities.ImportItem{
		offerItem("o1", "Phone", "ghost", 100),
	}, mustDate(t, "2022-02-01T12:00:00.000Z"))

	assert.ErrorIs(t, err, entities.ErrBadRequest)
}

func TestImportService_ParentInSameBatch(t *testing.T) {
	store := mocks.NewStore()
	// The child references a parent created by the same batch; order in the
	// items slice must not matter.
	seed(t, store, "2022-02-01T12:00:00.000Z",
		offerItem("o1", "Phone", "root", 100),
		categoryItem("root", "Goods", ""),
	)

	children, err := store.ListEffectiveChildren(context.Background(), "root", entities.Window{})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "o1", children[0].ID)
}

func TestImportService_BatchIsAtomic(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z", offerItem("u1", "Phone", "", 100))

	// The first item is fine, the second changes u1's kind. Nothing from
	// the batch may survive.
	svc := NewImportService(store)
	err := svc.Import(context.Background(), []entities.ImportItem{
		offerItem("fresh", "New thing", "", 50),
		categoryItem("u1", "Phone, reborn", ""),
	}, mustDate(t, "2022-02-02T12:00:00.000Z"))
	require.ErrorIs(t, err, entities.ErrBadRequest)

	rev, err := store.FindGoverningRevision(context.Background(), "fresh", entities.Window{})
	require.NoError(t, err)
	assert.Nil(t, rev)
}

func TestImportService_ReparentingKeepsHistory(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z",
		categoryItem("c1", "Old home", ""),
		categoryItem("c2", "New home", ""),
		offerItem("o1", "Phone", "c1", 100),
	)
	seed(t, store, "2022-02-05T12:00:00.000Z", offerItem("o1", "Phone", "c2", 100))

	ctx := context.Background()

	// Today o1 lives under c2.
	now, err := store.ListEffectiveChildren(ctx, "c2", entities.Window{})
	require.NoError(t, err)
	require.Len(t, now, 1)
	assert.Equal(t, "o1", now[0].ID)

	gone, err := store.ListEffectiveChildren(ctx, "c1", entities.Window{})
	require.NoError(t, err)
	assert.Empty(t, gone)

	// As of Feb 2nd it still lived under c1.
	asOf := entities.UpTo(mustDate(t, "2022-02-02T00:00:00.000Z"))
	then, err := store.ListEffectiveChildren(ctx, "c1", asOf)
	require.NoError(t, err)
	require.Len(t, then, 1)
	assert.Equal(t, "o1", then[0].ID)
}

func TestImportService_DeleteUnknown(t *testing.T) {
	store := mocks.NewStore()
	svc := NewImportService(store)

	err := svc.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestImportService_DeleteCascades(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z",
		categoryItem("root", "Goods", ""),
		categoryItem("phones", "Phones", "root"),
		offerItem("o1", "Phone", "phones", 100),
	)

	svc := NewImportService(store)
	require.NoError(t, svc.Delete(context.Background(), "root"))

	for _, id := range []string{"root", "phones", "o1"} {
		rev, err := store.FindGoverningRevision(context.Background(), id, entities.Window{})
		require.NoError(t, err)
		assert.Nil(t, rev, "unit %s should be gone", id)
	}
}

func TestImportService_DeleteSparesMovedAwayChildren(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z",
		categoryItem("c1", "Old home", ""),
		categoryItem("c2", "New home", ""),
		offerItem("o1", "Phone", "c1", 100),
	)
	seed(t, store, "2022-02-05T12:00:00.000Z", offerItem("o1", "Phone", "c2", 100))

	// o1 was once under c1, but the cascade follows current links only.
	svc := NewImportService(store)
	require.NoError(t, svc.Delete(context.Background(), "c1"))

	rev, err := store.FindGoverningRevision(context.Background(), "o1", entities.Window{})
	require.NoError(t, err)
	require.NotNil(t, rev)
	assert.Equal(t, "Phone", rev.Name)
}

func TestImportService_StoreFailureSurfaces(t *testing.T) {
	store := mocks.NewStore()
	store.Err = assert.AnError

	svc := NewImportService(store)
	err := svc.Import(context.Background(), []entities.ImportItem{
		offerItem("o1", "Phone", "", 100),
	}, mustDate(t, "2022-02-01T12:00:00.000Z"))

	assert.ErrorIs(t, err, assert.AnError)
}
