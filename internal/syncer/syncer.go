// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github-dashboard/internal/github"
	"github-dashboard/internal/model"
)

// Refresher applies the staleness policy for one username.
type Refresher interface {
	EnsureFresh(ctx context.Context, username string) (model.CacheRecord, error)
}

// Syncer keeps the cached snapshot of one user warm in the background.
type Syncer struct {
	refresher Refresher
	logger    *slog.Logger
	username  string
	interval  time.Duration
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(refresher Refresher, logger *slog.Logger, username string, interval time.Duration) (*Syncer, error) {
	if err := github.ValidateUsername(username); err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sync interval must be positive, got %s", interval)
	}

	return &Syncer{
		refresher: refresher,
		logger:    logger.With("username", username),
		username:  username,
		interval:  interval,
	}, nil
}

// Start runs a sync pass immediately and then on every tick until ctx is cancelled.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.runSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// runSyncCycle refreshes the cached snapshot if it went stale. Failures are logged and
// left for the next tick.
func (s *Syncer) runSyncCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Debug("Starting new sync cycle")

	rec, err := s.refresher.EnsureFresh(ctx, s.username)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("Sync cycle failed", "error", err)
		}
		return
	}
	s.logger.Info("Sync cycle finished", "last_fetched", rec.LastFetched.Format(time.RFC3339))
}
