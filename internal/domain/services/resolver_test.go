package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/mocks"
)

func TestResolver_GoverningRevision(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z", offerItem("o1", "Phone", "", 100))
	seed(t, store, "2022-02-05T12:00:00.000Z", offerItem("o1", "Phone v2", "", 200))

	res, err := NewResolver(store).Resolve(context.Background(), "o1", entities.Window{})
	require.NoError(t, err)
	assert.Equal(t, "Phone v2", res.Revision.Name)
	assert.Nil(t, res.ParentID)
	assert.Empty(t, res.Children)
}

func TestResolver_NotFound(t *testing.T) {
	store := mocks.NewStore()

	_, err := NewResolver(store).Resolve(context.Background(), "ghost", entities.Window{})
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestResolver_ParentFollowsGoverningRevision(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z",
		categoryItem("c1", "Old home", ""),
		categoryItem("c2", "New home", ""),
		offerItem("o1", "Phone", "c1", 100),
	)
	seed(t, store, "2022-02-05T12:00:00.000Z", offerItem("o1", "Phone", "c2", 100))

	resolver := NewResolver(store)

	now, err := resolver.Resolve(context.Background(), "o1", entities.Window{})
	require.NoError(t, err)
	require.NotNil(t, now.ParentID)
	assert.Equal(t, "c2", *now.ParentID)

	// The parent reported for a historical window is the one recorded on
	// the revision governing that window.
	asOf := entities.UpTo(mustDate(t, "2022-02-02T00:00:00.000Z"))
	then, err := resolver.Resolve(context.Background(), "o1", asOf)
	require.NoError(t, err)
	require.NotNil(t, then.ParentID)
	assert.Equal(t, "c1", *then.ParentID)
}

func TestResolver_CategoryChildren(t *testing.T) {
	store := mocks.NewStore()
	seed(t, store, "2022-02-01T12:00:00.000Z",
		categoryItem("root", "Goods", ""),
		offerItem("o1", "Phone", "root", 100),
		categoryItem("phones", "Phones", "root"),
	)

	res, err := NewResolver(store).Resolve(context.Background(), "root", entities.Window{})
	require.NoError(t, err)
	require.Len(t, res.Children, 2)
	assert.Equal(t, "o1", res.Children[0].ID)
	assert.Equal(t, entities.UnitTypeOffer, res.Children[0].Type)
	assert.Equal(t, "phones", res.Children[1].ID)
	assert.Equal(t, entities.UnitTypeCategory, res.Children[1].Type)
}
