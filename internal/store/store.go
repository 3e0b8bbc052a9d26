// Package store persists curator records in SQLite: stage definitions,
// per-album movement logs, the per-user track cache and the durable sync
// queue. It is the single owner of the database schema.
package store

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "curator"
	dbFileName = "curator.db"
)

// Manager owns the database handle.
type Manager struct {
	db *sql.DB
}

// Open opens (or creates) the curator database at the default XDG data
// location, or at path when it is non-empty.
func Open(path string) (*Manager, error) {
	if path == "" {
		var err error
		path, err = xdg.DataFile(filepath.Join(appName, dbFileName))
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{db: db}, nil
}

// OpenMemory opens an in-memory database. Intended for tests and for
// callers that rebuild everything from the remote source of truth anyway.
func OpenMemory() (*Manager, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Each pooled connection would get its own empty in-memory database;
	// pin the pool to the one connection that holds the schema.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// DB exposes the raw handle for callers that need ad-hoc queries.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// withTx executes fn within a transaction, rolling back on error.
func (m *Manager) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nullString(n sql.NullString) string {
	if !n.Valid {
		return ""
	}
	return n.String
}

func nullTimePtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}
