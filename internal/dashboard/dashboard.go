// internal/dashboard/dashboard.go
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github-dashboard/internal/model"
)

// DefaultStalenessWindow is how long a cached snapshot is trusted without refetching.
const DefaultStalenessWindow = 24 * time.Hour

// DefaultFetchTimeout bounds a shared refresh once it no longer follows a caller's context.
const DefaultFetchTimeout = time.Minute

// Fetcher retrieves a complete snapshot for a user.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, username string) (*model.Snapshot, error)
}

// Cache holds the single cache record.
type Cache interface {
	Read(ctx context.Context) model.CacheRecord
	Write(ctx context.Context, snapshot *model.Snapshot) model.CacheRecord
	Clear(ctx context.Context)
}

// Notifier is told about every snapshot written to the cache.
type Notifier interface {
	SnapshotRefreshed(ctx context.Context, record model.CacheRecord) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithFetchTimeout sets how long a refresh may run. Non-positive values keep DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithNotifier registers a notifier for successful refreshes.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// Service ties the fetcher and the cache together and applies the staleness policy.
type Service struct {
	fetcher  Fetcher
	cache    Cache
	notifier Notifier
	logger   *slog.Logger
	window   time.Duration
	now      func() time.Time

	fetchTimeout time.Duration

	inflight singleflight.Group
}

// NewService creates a new Service. A non-positive window falls back to DefaultStalenessWindow.
func NewService(fetcher Fetcher, cache Cache, logger *slog.Logger, window time.Duration, opts ...Option) *Service {
	if window <= 0 {
		window = DefaultStalenessWindow
	}
	s := &Service{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
		window:  window,
		now:     time.Now,

		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsFresh reports whether record can be shown for username without refetching at time now.
func IsFresh(record model.CacheRecord, username string, now time.Time, window time.Duration) bool {
	if record.IsEmpty() {
		return false
	}
	if username != "" && record.Snapshot.Username != username {
		return false
	}
	return record.Age(now) < window
}

// Window returns the configured staleness window.
func (s *Service) Window() time.Duration {
	return s.window
}

// Current returns the cached record as is.
func (s *Service) Current(ctx context.Context) model.CacheRecord {
	return s.cache.Read(ctx)
}

// Clear empties the cache.
func (s *Service) Clear(ctx context.Context) {
	s.cache.Clear(ctx)
	s.logger.Info("Cache cleared")
}

// Refresh fetches a new snapshot for username and writes it to the cache.
// On failure the cache is left untouched and the fetch error is returned unchanged.
// Concurrent refreshes for the same username share one upstream fetch. The shared fetch
// keeps running when a caller goes away; that caller alone gets its context error.
func (s *Service) Refresh(ctx context.Context, username string) (model.CacheRecord, error) {
	ch := s.inflight.DoChan(username, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.refresh(fetchCtx, username)
	})

	select {
	case <-ctx.Done():
		s.logger.Debug("Caller left in-flight refresh", "username", username, "error", ctx.Err())
		return model.CacheRecord{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Joined in-flight refresh", "username", username)
		}
		if res.Err != nil {
			return model.CacheRecord{}, res.Err
		}
		return res.Val.(model.CacheRecord), nil
	}
}

func (s *Service) refresh(ctx context.Context, username string) (model.CacheRecord, error) {
	logger := s.logger.With("username", username)
	logger.Info("Refreshing github snapshot")

	snap, err := s.fetcher.FetchSnapshot(ctx, username)
	if err != nil {
		logger.Error("Failed to refresh github snapshot", "error", err)
		return model.CacheRecord{}, err
	}

	rec := s.cache.Write(ctx, snap)
	logger.Info("Github snapshot cached", "repos", len(snap.Repos), "events", len(snap.Events))

	if s.notifier != nil {
		if err := s.notifier.SnapshotRefreshed(ctx, rec); err != nil {
			logger.Warn("Failed to publish refresh notification", "error", err)
		}
	}
	return rec, nil
}

// EnsureFresh returns the cached record when it is fresh for username, otherwise refreshes it.
// When the refresh fails the previous (stale or empty) record is returned alongside the error.
func (s *Service) EnsureFresh(ctx context.Context, username string) (model.CacheRecord, error) {
	current := s.cache.Read(ctx)
	if IsFresh(current, username, s.now(), s.window) {
		s.logger.Debug("Serving cached github snapshot", "username", username, "age", current.Age(s.now()).String())
		return current, nil
	}

	rec, err := s.Refresh(ctx, username)
	if err != nil {
		return current, err
	}
	return rec, nil
}
