// internal/syncer/syncer_test.go
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	custom_errors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

// MockRefresher is a mock of the Refresher interface.
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) EnsureFresh(ctx context.Context, username string) (model.CacheRecord, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.CacheRecord), args.Error(1)
}

var testLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

func freshRecord() model.CacheRecord {
	now := time.Now()
	return model.CacheRecord{Snapshot: &model.Snapshot{Username: "octocat"}, LastFetched: &now}
}

func TestNewSyncer(t *testing.T) {
	t.Run("rejects invalid username", func(t *testing.T) {
		_, err := NewSyncer(new(MockRefresher), testLogger, "bad/name", time.Hour)

		assert.ErrorIs(t, err, custom_errors.ErrInvalidUsername)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		_, err := NewSyncer(new(MockRefresher), testLogger, "octocat", 0)

		assert.Error(t, err)
	})
}

func TestSyncer_RunSyncCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes configured user", func(t *testing.T) {
		refresher := new(MockRefresher)
		refresher.On("EnsureFresh", ctx, "octocat").Return(freshRecord(), nil).Once()
		s, err := NewSyncer(refresher, testLogger, "octocat", time.Hour)
		require.NoError(t, err)

		s.runSyncCycle(ctx)

		refresher.AssertExpectations(t)
	})

	t.Run("survives refresh failure", func(t *testing.T) {
		refresher := new(MockRefresher)
		refresher.On("EnsureFresh", ctx, "octocat").Return(model.CacheRecord{}, errors.New("rate limited")).Once()
		s, err := NewSyncer(refresher, testLogger, "octocat", time.Hour)
		require.NoError(t, err)

		assert.NotPanics(t, func() { s.runSyncCycle(ctx) })
		refresher.AssertExpectations(t)
	})

	t.Run("skips when context is already cancelled", func(t *testing.T) {
		refresher := new(MockRefresher)
		s, err := NewSyncer(refresher, testLogger, "octocat", time.Hour)
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		s.runSyncCycle(cctx)

		refresher.AssertNotCalled(t, "EnsureFresh", mock.Anything, mock.Anything)
	})
}

func TestSyncer_StartStopsOnCancel(t *testing.T) {
	var calls int32
	refresher := new(MockRefresher)
	refresher.On("EnsureFresh", mock.Anything, "octocat").
		Run(func(mock.Arguments) { atomic.AddInt32(&calls, 1) }).
		Return(freshRecord(), nil)
	s, err := NewSyncer(refresher, testLogger, "octocat", 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("syncer did not stop after cancel")
	}
}
