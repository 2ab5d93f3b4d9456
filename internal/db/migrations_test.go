package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateFreshDatabase(t *testing.T) {
	database := NewTestDB(t)

	version, err := CurrentVersion(database)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), version)

	for _, col := range []string{
		"id", "item_name", "category", "quantity", "base_price", "cost_price", "shelf_life",
		"expiry_date", "discounted_price", "seller_name", "is_active", "created_at", "updated_at",
	} {
		var n int
		err := database.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('items') WHERE name = ?`, col).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "column %s", col)
	}

	for _, idx := range []string{"idx_items_expiry_date", "idx_items_category"} {
		var n int
		err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, idx).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "index %s", idx)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO items (item_name, category, quantity, base_price, expiry_date)
		VALUES ('Milk', 'Dairy', 3, 5.99, '2026-10-20')`)
	require.NoError(t, err)

	require.NoError(t, Migrate(database))
	require.NoError(t, Migrate(database))

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigrateUpgradesLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := Open(path)
	require.NoError(t, err)
	_, err = legacy.Exec(`
CREATE TABLE perishable_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_name TEXT NOT NULL,
    category TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    base_price REAL NOT NULL,
    expiry_date DATE NOT NULL,
    discounted_price REAL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE INDEX idx_expiry_date ON perishable_items(expiry_date)`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO perishable_items (item_name, category, quantity, base_price, expiry_date, discounted_price)
		VALUES ('Bread', 'Bakery', 4, 10.0, '2026-10-19', 2.5), ('Cheese', 'Dairy', 1, 8.0, '2026-11-01', 8.0)`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	database, err := OpenAndMigrate(path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	var tables int
	require.NoError(t, database.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'perishable_items'`).Scan(&tables))
	assert.Zero(t, tables)

	var (
		count  int
		cost   float64
		seller string
		active int
		oldIdx int
	)
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 2, count)

	require.NoError(t, database.QueryRow(
		`SELECT cost_price, seller_name, is_active FROM items WHERE item_name = 'Bread'`).Scan(&cost, &seller, &active))
	assert.Equal(t, 7.0, cost)
	assert.Equal(t, "Admin", seller)
	assert.Equal(t, 1, active)

	require.NoError(t, database.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_expiry_date'`).Scan(&oldIdx))
	assert.Zero(t, oldIdx)

	version, err := CurrentVersion(database)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), version)
}

func TestSchemaLookups(t *testing.T) {
	s := Schema{"items": {"id": true, "item_name": true}}

	assert.True(t, s.HasTable("items"))
	assert.False(t, s.HasTable("settings"))
	assert.True(t, s.HasColumn("items", "item_name"))
	assert.False(t, s.HasColumn("items", "cost_price"))
	assert.False(t, s.HasColumn("settings", "key"))

	plan := addColumn("items", "cost_price", "REAL")
	assert.Equal(t, []string{`ALTER TABLE items ADD COLUMN cost_price REAL`}, plan(s))

	s["items"]["cost_price"] = true
	assert.Empty(t, plan(s))
}
