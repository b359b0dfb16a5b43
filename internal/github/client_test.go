// internal/github/client_test.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "github-dashboard/internal/errors"
)

const (
	userJSON  = `{"login": "octocat", "name": "The Octocat", "bio": "mascot", "avatar_url": "https://avatars/octocat", "html_url": "https://github.com/octocat", "followers": 10, "following": 2, "public_repos": 3}`
	reposJSON = `[
		{"id": 3, "name": "MyAPI", "stargazers_count": 3, "forks_count": 1, "language": "Go", "html_url": "https://github.com/octocat/MyAPI", "size": 120, "open_issues_count": 4, "created_at": "2023-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"},
		{"id": 1, "name": "other", "stargazers_count": 0, "language": null},
		{"id": 2, "name": "apiclient", "stargazers_count": 12, "language": "TypeScript", "description": "client"}
	]`
	eventsJSON = `[
		{"id": "e2", "type": "PushEvent", "created_at": "2024-01-02T10:00:00Z"},
		{"id": "e1", "type": "WatchEvent", "created_at": "2024-01-01T23:59:59Z"}
	]`
)

// setupTestClient creates a httptest server and a client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler, opts Options) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts.BaseURL = server.URL
	client, err := NewClient(opts, logger)
	require.NoError(t, err)

	return client, server
}

// githubMux serves the three snapshot endpoints, overriding the status of any path listed in failures.
func githubMux(counts map[string]*int32, failures map[string]int) http.Handler {
	bodies := map[string]string{
		"/users/octocat":        userJSON,
		"/users/octocat/repos":  reposJSON,
		"/users/octocat/events": eventsJSON,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := counts[r.URL.Path]; ok {
			atomic.AddInt32(c, 1)
		}
		if status, ok := failures[r.URL.Path]; ok {
			w.WriteHeader(status)
			fmt.Fprintln(w, `{"message": "boom"}`)
			return
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, body)
	})
}

func newCounts() map[string]*int32 {
	return map[string]*int32{
		"/users/octocat":        new(int32),
		"/users/octocat/repos":  new(int32),
		"/users/octocat/events": new(int32),
	}
}

func TestClient_FetchSnapshot(t *testing.T) {
	t.Run("assembles snapshot preserving API order", func(t *testing.T) {
		client, _ := setupTestClient(t, githubMux(newCounts(), nil), Options{})

		snap, err := client.FetchSnapshot(context.Background(), "octocat")

		require.NoError(t, err)
		assert.Equal(t, "octocat", snap.Username)
		assert.Equal(t, "The Octocat", snap.User.Name)
		assert.Equal(t, 10, snap.User.Followers)
		assert.Equal(t, 3, snap.User.PublicRepos)

		require.Len(t, snap.Repos, 3)
		assert.Equal(t, []string{"MyAPI", "other", "apiclient"}, []string{snap.Repos[0].Name, snap.Repos[1].Name, snap.Repos[2].Name})
		assert.Equal(t, "Go", snap.Repos[0].LanguageName())
		assert.Nil(t, snap.Repos[1].Language)
		assert.Equal(t, 12, snap.Repos[2].StargazersCount)
		assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), snap.Repos[0].CreatedAt.UTC())

		require.Len(t, snap.Events, 2)
		assert.Equal(t, "e2", snap.Events[0].ID)
		assert.Equal(t, "WatchEvent", snap.Events[1].Type)
	})

	t.Run("fails whole fetch when repos call fails", func(t *testing.T) {
		client, _ := setupTestClient(t, githubMux(newCounts(), map[string]int{"/users/octocat/repos": http.StatusNotFound}), Options{})

		snap, err := client.FetchSnapshot(context.Background(), "octocat")

		require.Error(t, err)
		assert.Nil(t, snap)
		var fetchErr *custom_errors.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, custom_errors.ResourceRepos, fetchErr.Resource)
		var ghErr *github.ErrorResponse
		require.ErrorAs(t, err, &ghErr)
		assert.Equal(t, http.StatusNotFound, ghErr.Response.StatusCode)
	})

	t.Run("tags events failures", func(t *testing.T) {
		client, _ := setupTestClient(t, githubMux(newCounts(), map[string]int{"/users/octocat/events": http.StatusInternalServerError}), Options{})

		_, err := client.FetchSnapshot(context.Background(), "octocat")

		var fetchErr *custom_errors.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, custom_errors.ResourceEvents, fetchErr.Resource)
		assert.Contains(t, err.Error(), "events")
	})

	t.Run("does not retry on server error", func(t *testing.T) {
		counts := newCounts()
		client, _ := setupTestClient(t, githubMux(counts, map[string]int{"/users/octocat": http.StatusServiceUnavailable}), Options{})

		_, err := client.FetchSnapshot(context.Background(), "octocat")

		var fetchErr *custom_errors.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, custom_errors.ResourceUser, fetchErr.Resource)
		assert.Equal(t, int32(1), atomic.LoadInt32(counts["/users/octocat"]), "should have made exactly one request")
	})

	t.Run("rejects invalid usernames without calling the API", func(t *testing.T) {
		counts := newCounts()
		client, _ := setupTestClient(t, githubMux(counts, nil), Options{})

		for _, name := range []string{"", "octo/cat", "octo cat", "a?b"} {
			_, err := client.FetchSnapshot(context.Background(), name)
			assert.True(t, errors.Is(err, custom_errors.ErrInvalidUsername), "username %q", name)
		}
		for path, c := range counts {
			assert.Zero(t, atomic.LoadInt32(c), path)
		}
	})
}

func TestClient_RequestOptions(t *testing.T) {
	var gotAuth, gotPerPage atomic.Value
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		gotPerPage.Store(r.URL.Query().Get("per_page"))
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `[]`)
	})
	client, _ := setupTestClient(t, handler, Options{Token: "secret", PerPage: 30})

	repos, err := client.ListRepos(context.Background(), "octocat")

	require.NoError(t, err)
	assert.Empty(t, repos)
	assert.Equal(t, "Bearer secret", gotAuth.Load())
	assert.Equal(t, "30", gotPerPage.Load())
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("caioricciuti"))
	assert.NoError(t, ValidateUsername("some-user-1"))
	assert.ErrorIs(t, ValidateUsername(""), custom_errors.ErrInvalidUsername)
	assert.NoError(t, ValidateUsername(strings.Repeat("a", 39)))

	for _, bad := range []string{"", ".", "..", "../etc", "a/b", "a b", "a?b", "a#b", "a%2e", "user_name", strings.Repeat("a", 40)} {
		assert.ErrorIs(t, ValidateUsername(bad), custom_errors.ErrInvalidUsername, "username %q", bad)
	}
}

func TestClient_FetchSnapshotRejectsDotSegments(t *testing.T) {
	var requests int32
	client, _ := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusOK)
	}), Options{})

	for _, name := range []string{".", ".."} {
		_, err := client.FetchSnapshot(context.Background(), name)
		assert.ErrorIs(t, err, custom_errors.ErrInvalidUsername)
	}
	assert.Zero(t, atomic.LoadInt32(&requests))
}
