package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dest0re/backend-school2022/internal/application/handlers"
	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/services"
	"github.com/Dest0re/backend-school2022/internal/infrastructure/config"
	"github.com/Dest0re/backend-school2022/internal/infrastructure/relationaldb/sqlite"
)

// catalog wires the full application stack over a real SQLite file.
type catalog struct {
	repo    *sqlite.Repository
	nodes   *handlers.NodeHandler
	sales   *handlers.SalesHandler
	imports *handlers.ImportHandler
}

func newCatalog(t *testing.T) *catalog {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.EnsureSchema(context.Background()))

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file should exist")

	return &catalog{
		repo:    repo,
		nodes:   handlers.NewNodeHandler(repo, 10*time.Second),
		sales:   handlers.NewSalesHandler(repo, 10*time.Second),
		imports: handlers.NewImportHandler(services.NewImportService(repo)),
	}
}

func (c *catalog) collect(t *testing.T, fn func(emit services.EmitFunc) error) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, fn(func(fragment string) error {
		b.WriteString(fragment)
		return nil
	}))
	return b.String()
}

func parseDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := entities.ParseDate(s)
	require.NoError(t, err)
	return d
}

func offer(id, name, parentID string, price int64) entities.ImportItem {
	item := entities.ImportItem{ID: id, Name: name, Type: entities.UnitTypeOffer, Price: &price}
	if parentID != "" {
		item.ParentID = &parentID
	}
	return item
}

func category(id, name, parentID string) entities.ImportItem {
	item := entities.ImportItem{ID: id, Name: name, Type: entities.UnitTypeCategory}
	if parentID != "" {
		item.ParentID = &parentID
	}
	return item
}

func TestCatalogIntegration_FullLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	c := newCatalog(t)
	ctx := context.Background()

	// Build a small catalog over two imports.
	require.NoError(t, c.imports.HandleImport(ctx, []entities.ImportItem{
		category("root", "Goods", ""),
		category("phones", "Phones", "root"),
		offer("jphone", "jPhone 13", "phones", 79999),
		offer("xomia", "Xomiа Readme 10", "phones", 59999),
	}, parseDate(t, "2022-02-01T12:00:00.000Z")))

	require.NoError(t, c.imports.HandleImport(ctx, []entities.ImportItem{
		offer("jphone", "jPhone 13", "phones", 89999),
	}, parseDate(t, "2022-02-03T15:00:00.000Z")))

	// The aggregated tree reflects the latest state everywhere.
	out := c.collect(t, func(emit services.EmitFunc) error {
		return c.nodes.HandleGet(ctx, "root", emit)
	})
	require.True(t, json.Valid([]byte(out)), out)

	var root map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Equal(t, "root", root["id"])
	assert.Equal(t, float64((89999+59999)/2), root["price"])
	assert.Equal(t, "2022-02-03T15:00:00.000Z", root["date"])

	// The timeline shows both states of the subtree.
	stats := c.collect(t, func(emit services.EmitFunc) error {
		return c.nodes.HandleStatistic(ctx, "phones", entities.Window{}, emit)
	})

	var timeline struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(stats), &timeline))
	require.Len(t, timeline.Items, 2)
	assert.Equal(t, float64((79999+59999)/2), timeline.Items[0]["price"])
	assert.Equal(t, float64((89999+59999)/2), timeline.Items[1]["price"])

	// Sales sees only the offer revised inside the last 24 hours.
	sold := c.collect(t, func(emit services.EmitFunc) error {
		return c.sales.HandleSales(ctx, parseDate(t, "2022-02-04T00:00:00.000Z"), emit)
	})

	var sales struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(sold), &sales))
	require.Len(t, sales.Items, 1)
	assert.Equal(t, "jphone", sales.Items[0]["id"])

	// Deleting the middle category takes the offers with it.
	require.NoError(t, c.imports.HandleDelete(ctx, "phones"))

	err := c.nodes.HandleGet(ctx, "jphone", func(string) error { return nil })
	assert.ErrorIs(t, err, entities.ErrNotFound)

	// The root survives, empty again.
	out = c.collect(t, func(emit services.EmitFunc) error {
		return c.nodes.HandleGet(ctx, "root", emit)
	})
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Nil(t, root["price"])
}

func TestCatalogIntegration_AtomicImportAcrossRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))

	imports := handlers.NewImportHandler(services.NewImportService(repo))
	require.NoError(t, imports.HandleImport(ctx, []entities.ImportItem{
		offer("o1", "Phone", "", 100),
	}, parseDate(t, "2022-02-01T12:00:00.000Z")))

	// A failing batch must leave no trace even though one item is fine.
	err = imports.HandleImport(ctx, []entities.ImportItem{
		offer("fresh", "New thing", "", 50),
		category("o1", "Phone, reborn", ""),
	}, parseDate(t, "2022-02-02T12:00:00.000Z"))
	require.ErrorIs(t, err, entities.ErrBadRequest)
	require.NoError(t, repo.Close())

	// Reopen the same file and verify the committed state only.
	repo, err = sqlite.NewRepository(config.SQLiteConfig{Path: dbPath})
	require.NoError(t, err)
	defer repo.Close()

	rev, err := repo.FindGoverningRevision(ctx, "o1", entities.Window{})
	require.NoError(t, err)
	require.NotNil(t, rev)
	assert.Equal(t, "Phone", rev.Name)

	rev, err = repo.FindGoverningRevision(ctx, "fresh", entities.Window{})
	require.NoError(t, err)
	assert.Nil(t, rev)
}
