// internal/store/store.go
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github-dashboard/internal/model"
)

// DefaultKey is the storage key the cache record is persisted under.
const DefaultKey = "github-data"

// Backend persists one serialized cache record per key.
// Load returns a nil record and no error when nothing was stored yet.
type Backend interface {
	Load(ctx context.Context, key string) (*model.CacheRecord, error)
	Save(ctx context.Context, key string, record model.CacheRecord) error
	Close() error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp writes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds the process-wide cache record in memory and mirrors it to a Backend.
// Persistence is best-effort: backend failures are logged and the in-memory record stays authoritative.
type Store struct {
	mu     sync.RWMutex
	record model.CacheRecord

	// saveMu is taken before mu is released so backend writes land in the same order as in-memory ones.
	saveMu sync.Mutex

	backend Backend
	key     string
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Store backed by backend. An empty key falls back to DefaultKey.
func New(backend Backend, key string, logger *slog.Logger, opts ...Option) *Store {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		backend: backend,
		key:     key,
		now:     time.Now,
		logger:  logger.With("storage_key", key),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the durable record into memory. A missing, unreadable or half-populated
// record leaves the store empty.
func (s *Store) Load(ctx context.Context) {
	rec, err := s.backend.Load(ctx, s.key)
	if err != nil {
		s.logger.Warn("Persisted cache record unavailable, starting empty", "error", err)
		return
	}
	if rec == nil || rec.IsEmpty() {
		s.logger.Info("No persisted cache record found")
		return
	}

	s.mu.Lock()
	s.record = *rec
	s.mu.Unlock()
	s.logger.Info("Loaded persisted cache record", "username", rec.Snapshot.Username, "last_fetched", rec.LastFetched.Format(time.RFC3339))
}

// Read returns the current record. Both fields are nil until the first Write.
func (s *Store) Read(_ context.Context) model.CacheRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// Write replaces the record with snapshot stamped with the current time and returns it.
func (s *Store) Write(ctx context.Context, snapshot *model.Snapshot) model.CacheRecord {
	now := s.now()
	rec := model.CacheRecord{Snapshot: snapshot, LastFetched: &now}
	if snapshot == nil {
		rec = model.CacheRecord{}
	}
	s.replace(ctx, rec, "write")
	return rec
}

// Clear drops the snapshot and timestamp together.
func (s *Store) Clear(ctx context.Context) {
	s.replace(ctx, model.CacheRecord{}, "clear")
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) replace(ctx context.Context, rec model.CacheRecord, op string) {
	s.mu.Lock()
	s.record = rec
	s.saveMu.Lock()
	s.mu.Unlock()
	defer s.saveMu.Unlock()

	if err := s.backend.Save(ctx, s.key, rec); err != nil {
		s.logger.Warn("Failed to persist cache record, keeping in-memory copy", "op", op, "error", err)
		return
	}
	s.logger.Debug("Persisted cache record", "op", op)
}
