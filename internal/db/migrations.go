package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is a snapshot of the tables in a database and their columns.
type Schema map[string]map[string]bool

// HasTable reports whether the table exists.
func (s Schema) HasTable(table string) bool {
	_, ok := s[table]
	return ok
}

// HasColumn reports whether the table exists and has the column.
func (s Schema) HasColumn(table, column string) bool {
	return s[table][column]
}

// Migration is one schema step. Plan inspects the current schema and returns
// the statements that bring it to this version; a step that is already
// satisfied returns nothing.
type Migration struct {
	Version int
	Name    string
	Plan    func(Schema) []string
}

const itemsTable = "items"

// migrations is the ordered schema history. Append new migrations at the end
// and never reorder or renumber existing ones.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "adopt legacy perishable_items table",
		Plan: func(s Schema) []string {
			if s.HasTable("perishable_items") && !s.HasTable(itemsTable) {
				return []string{`ALTER TABLE perishable_items RENAME TO items`}
			}
			return nil
		},
	},
	{
		Version: 2,
		Name:    "create items",
		Plan: func(s Schema) []string {
			if s.HasTable(itemsTable) {
				return nil
			}
			return []string{`
CREATE TABLE items (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    item_name        TEXT NOT NULL,
    category         TEXT NOT NULL,
    quantity         INTEGER NOT NULL,
    base_price       REAL NOT NULL,
    expiry_date      DATE NOT NULL,
    discounted_price REAL,
    created_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`}
		},
	},
	{
		Version: 3,
		Name:    "add items.cost_price",
		Plan:    addColumn(itemsTable, "cost_price", "REAL"),
	},
	{
		Version: 4,
		Name:    "add items.shelf_life",
		Plan:    addColumn(itemsTable, "shelf_life", "INTEGER"),
	},
	{
		Version: 5,
		Name:    "add items.seller_name",
		Plan:    addColumn(itemsTable, "seller_name", "TEXT NOT NULL DEFAULT 'Admin'"),
	},
	{
		Version: 6,
		Name:    "add items.is_active",
		Plan:    addColumn(itemsTable, "is_active", "INTEGER NOT NULL DEFAULT 1"),
	},
	{
		Version: 7,
		Name:    "index items by expiry date and category",
		Plan: func(Schema) []string {
			return []string{
				`DROP INDEX IF EXISTS idx_expiry_date`,
				`DROP INDEX IF EXISTS idx_category`,
				`CREATE INDEX IF NOT EXISTS idx_items_expiry_date ON items(expiry_date)`,
				`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
			}
		},
	},
	{
		Version: 8,
		Name:    "create settings",
		Plan: func(Schema) []string {
			return []string{`
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`}
		},
	},
	{
		Version: 9,
		Name:    "backfill missing cost and seller",
		Plan: func(Schema) []string {
			return []string{
				`UPDATE items SET cost_price = ROUND(base_price * 0.7, 2) WHERE cost_price IS NULL`,
				`UPDATE items SET seller_name = 'Admin' WHERE seller_name IS NULL OR seller_name = ''`,
			}
		},
	},
}

func addColumn(table, column, definition string) func(Schema) []string {
	return func(s Schema) []string {
		if s.HasColumn(table, column) {
			return nil
		}
		return []string{fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition)}
	}
}

// LatestVersion is the schema version Migrate brings a database to.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// CurrentVersion returns the schema version recorded in the database.
func CurrentVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// Migrate runs the database schema migrations. All pending steps run in one
// transaction; a failure leaves the database at its previous version.
func Migrate(db *sql.DB) error {
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting migration: %w", err)
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		schema, err := readSchema(ctx, tx)
		if err != nil {
			return err
		}

		for _, stmt := range m.Plan(schema) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("running migration %d (%s): %w", m.Version, m.Name, err)
			}
		}

		// PRAGMA takes no bound parameters; Version is a compile-time int.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, m.Version)); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migrations: %w", err)
	}
	return nil
}

func readSchema(ctx context.Context, tx *sql.Tx) (Schema, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	schema := make(Schema, len(tables))
	for _, table := range tables {
		cols, err := tx.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
		if err != nil {
			return nil, fmt.Errorf("listing columns of %s: %w", table, err)
		}
		schema[table] = map[string]bool{}
		for cols.Next() {
			var name string
			if err := cols.Scan(&name); err != nil {
				cols.Close()
				return nil, fmt.Errorf("scanning column of %s: %w", table, err)
			}
			schema[table][name] = true
		}
		cols.Close()
		if err := cols.Err(); err != nil {
			return nil, fmt.Errorf("listing columns of %s: %w", table, err)
		}
	}
	return schema, nil
}
