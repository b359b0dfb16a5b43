package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-dashboard/internal/model"
)

func TestNewSnapshotMessage(t *testing.T) {
	fetched := time.Date(2024, 2, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	rec := model.CacheRecord{
		Snapshot: &model.Snapshot{
			Username: "octocat",
			Repos:    []model.Repository{{StargazersCount: 3}, {StargazersCount: 12}},
			Events:   []model.Event{{Type: "PushEvent"}},
		},
		LastFetched: &fetched,
	}

	msg, err := NewSnapshotMessage(rec)

	require.NoError(t, err)
	assert.Equal(t, SnapshotMessage{
		Username:    "octocat",
		Repos:       2,
		Events:      1,
		TotalStars:  15,
		LastFetched: fetched.UTC(),
	}, msg)
}

func TestNewSnapshotMessage_EmptyRecord(t *testing.T) {
	_, err := NewSnapshotMessage(model.CacheRecord{})

	assert.Error(t, err)
}
