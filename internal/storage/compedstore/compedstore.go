// Package compedstore provides a SQLite-backed implementation of the
// storage.CompedStore interface. The database lives at the data root, so
// the comped list is shared by every session under that root and survives
// independently of any single session's metadata.
package compedstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/courtside/courtbill/internal/models"
	"github.com/courtside/courtbill/internal/storage"
)

// DatabaseFilename is the comped-list database file under the data root.
const DatabaseFilename = "comped.db"

// Ensure CompedDB implements storage.CompedStore.
var _ storage.CompedStore = (*CompedDB)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS comped_names (
    name TEXT PRIMARY KEY,
    added_at INTEGER NOT NULL
);
`

// CompedDB implements storage.CompedStore using SQLite.
type CompedDB struct {
	db *sql.DB
}

// Open creates a CompedDB for the database under dataRoot, creating the
// directory and schema as needed.
func Open(dataRoot string) (*CompedDB, error) {
	if err := os.MkdirAll(dataRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data root: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataRoot, DatabaseFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to open comped database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &CompedDB{db: db}, nil
}

// Close closes the database connection.
func (c *CompedDB) Close() error {
	return c.db.Close()
}

// Add inserts name into the comped list. Adding an existing name is a
// no-op.
func (c *CompedDB) Add(ctx context.Context, name string) error {
	normalized := models.NormalizeName(name)
	if normalized == "" {
		return fmt.Errorf("comped name must not be empty")
	}
	_, err := c.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO comped_names (name, added_at) VALUES (?, ?)",
		normalized, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to add comped name: %w", err)
	}
	return nil
}

// Remove deletes name from the comped list.
func (c *CompedDB) Remove(ctx context.Context, name string) error {
	result, err := c.db.ExecContext(ctx,
		"DELETE FROM comped_names WHERE name = ?",
		models.NormalizeName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to remove comped name: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removal: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("comped name %q: %w", name, storage.ErrNotFound)
	}
	return nil
}

// All returns the current comped list.
func (c *CompedDB) All(ctx context.Context) (models.CompedList, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT name FROM comped_names ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query comped names: %w", err)
	}
	defer rows.Close()

	list := models.NewCompedList()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan comped name: %w", err)
		}
		list.Add(name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comped names: %w", err)
	}
	return list, nil
}
