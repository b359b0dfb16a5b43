// internal/store/postgres.go
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	custom_errors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

// PostgresBackend stores the cache record in the cache_records table.
// The schema is managed by the migrations directory.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend wraps an existing pool. The caller owns the pool's lifetime.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Load(ctx context.Context, key string) (*model.CacheRecord, error) {
	var payload []byte
	err := b.pool.QueryRow(ctx, `SELECT payload FROM cache_records WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &custom_errors.StorageError{Op: "load", Err: err}
	}

	rec, err := decodeRecord(payload)
	if err != nil {
		return nil, &custom_errors.StorageError{Op: "load", Err: err}
	}
	return rec, nil
}

func (b *PostgresBackend) Save(ctx context.Context, key string, record model.CacheRecord) error {
	payload, err := encodeRecord(record)
	if err != nil {
		return &custom_errors.StorageError{Op: "save", Err: err}
	}

	query := `
		INSERT INTO cache_records (key, payload, fetched_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = now()`
	if _, err := b.pool.Exec(ctx, query, key, payload, record.LastFetched); err != nil {
		return &custom_errors.StorageError{Op: "save", Err: err}
	}
	return nil
}

// Close is a no-op; the pool is closed by whoever created it.
func (b *PostgresBackend) Close() error { return nil }
