// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	custom_errors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

// SQLiteBackend stores the cache record in a local SQLite file.
type SQLiteBackend struct {
	db *sqlx.DB
}

// NewSQLiteBackend opens or creates the SQLite database at path and ensures the schema exists.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps writers from tripping over SQLite's file lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_records (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	_, err := b.db.Exec(schema)
	return err
}

func (b *SQLiteBackend) Load(ctx context.Context, key string) (*model.CacheRecord, error) {
	var payload string
	err := b.db.GetContext(ctx, &payload, `SELECT payload FROM cache_records WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &custom_errors.StorageError{Op: "load", Err: err}
	}

	rec, err := decodeRecord([]byte(payload))
	if err != nil {
		return nil, &custom_errors.StorageError{Op: "load", Err: err}
	}
	return rec, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, key string, record model.CacheRecord) error {
	payload, err := encodeRecord(record)
	if err != nil {
		return &custom_errors.StorageError{Op: "save", Err: err}
	}

	query := `
		INSERT INTO cache_records (key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`
	if _, err := b.db.ExecContext(ctx, query, key, string(payload), time.Now().UTC()); err != nil {
		return &custom_errors.StorageError{Op: "save", Err: err}
	}
	return nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
