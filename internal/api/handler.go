// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	custom_errors "github-dashboard/internal/errors"
	"github-dashboard/internal/github"
	"github-dashboard/internal/model"
	"github-dashboard/internal/stats"
)

const topRepositories = 5

// Dashboard is the cache-backed view of a GitHub profile the API serves.
type Dashboard interface {
	Current(ctx context.Context) model.CacheRecord
	EnsureFresh(ctx context.Context, username string) (model.CacheRecord, error)
	Refresh(ctx context.Context, username string) (model.CacheRecord, error)
	Clear(ctx context.Context)
}

// Handler is the container for API dependencies.
type Handler struct {
	dashboard Dashboard
	logger    *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(dashboard Dashboard, limiter *rate.Limiter, logger *slog.Logger) http.Handler {
	h := &Handler{
		dashboard: dashboard,
		logger:    logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if limiter != nil {
		r.Use(RateLimit(limiter, logger))
	}

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/record", h.getRecord)
		r.Delete("/record", h.clearRecord)
		r.Route("/users/{username}", func(r chi.Router) {
			r.Get("/dashboard", h.getDashboard)
			r.Post("/refresh", h.refresh)
			r.Get("/repos", h.getRepos)
			r.Get("/languages", h.getLanguages)
			r.Get("/activity", h.getActivity)
		})
	})

	return r
}

type dashboardResponse struct {
	Record     model.CacheRecord     `json:"record"`
	Summary    stats.Summary         `json:"summary"`
	Languages  []stats.LanguageCount `json:"languages"`
	Activity   []stats.DateCount     `json:"activity"`
	EventTypes []stats.TypeCount     `json:"event_types"`
	TopRepos   []model.Repository    `json:"top_repos"`
}

func newDashboardResponse(rec model.CacheRecord) dashboardResponse {
	repos := stats.Repos(rec.Snapshot)
	events := stats.Events(rec.Snapshot)
	return dashboardResponse{
		Record:     rec,
		Summary:    stats.Summarize(rec.Snapshot),
		Languages:  stats.LanguageHistogram(repos),
		Activity:   stats.EventDateHistogram(events),
		EventTypes: stats.EventTypeHistogram(events),
		TopRepos:   stats.TopRepositories(repos, topRepositories),
	}
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getRecord returns the cached record without refreshing it.
// GET /v1/record
func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.dashboard.Current(r.Context()))
}

// clearRecord empties the cache.
// DELETE /v1/record
func (h *Handler) clearRecord(w http.ResponseWriter, r *http.Request) {
	h.dashboard.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// getDashboard returns the fresh snapshot with every aggregate the front end renders.
// GET /v1/users/{username}/dashboard
func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.freshRecord(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, newDashboardResponse(rec))
}

// refresh forces a refetch regardless of the cache age.
// POST /v1/users/{username}/refresh
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := github.ValidateUsername(username); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.dashboard.Refresh(r.Context(), username)
	if err != nil {
		h.respondWithFetchError(w, username, h.dashboard.Current(r.Context()), err)
		return
	}
	respondWithJSON(w, http.StatusOK, newDashboardResponse(rec))
}

// getRepos searches repositories by name and sorts them by stars.
// GET /v1/users/{username}/repos?q=api&limit=N
func (h *Handler) getRepos(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 || n > 100 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
			return
		}
		limit = n
	}

	rec, ok := h.freshRecord(w, r)
	if !ok {
		return
	}

	repos := stats.SearchRepositories(stats.Repos(rec.Snapshot), r.URL.Query().Get("q"))
	if limit > 0 && len(repos) > limit {
		repos = repos[:limit]
	}
	respondWithJSON(w, http.StatusOK, repos)
}

// getLanguages returns the language distribution.
// GET /v1/users/{username}/languages
func (h *Handler) getLanguages(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.freshRecord(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, stats.LanguageHistogram(stats.Repos(rec.Snapshot)))
}

// getActivity returns events per day.
// GET /v1/users/{username}/activity
func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.freshRecord(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, stats.EventDateHistogram(stats.Events(rec.Snapshot)))
}

// freshRecord applies the staleness policy for the username in the path and writes
// the error response itself when that fails.
func (h *Handler) freshRecord(w http.ResponseWriter, r *http.Request) (model.CacheRecord, bool) {
	username := chi.URLParam(r, "username")
	if err := github.ValidateUsername(username); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return model.CacheRecord{}, false
	}

	rec, err := h.dashboard.EnsureFresh(r.Context(), username)
	if err != nil {
		h.respondWithFetchError(w, username, rec, err)
		return model.CacheRecord{}, false
	}
	return rec, true
}

func (h *Handler) respondWithFetchError(w http.ResponseWriter, username string, previous model.CacheRecord, err error) {
	if errors.Is(err, custom_errors.ErrInvalidUsername) {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Error("Failed to fetch github data", "username", username, "error", err)
	resp := fetchErrorResponse{
		Error:      err.Error(),
		Username:   username,
		ProfileURL: profileURL(username),
	}
	var fetchErr *custom_errors.FetchError
	if errors.As(err, &fetchErr) {
		resp.Resource = fetchErr.Resource
	}
	if !previous.IsEmpty() && previous.Snapshot.Username == username {
		resp.StaleRecord = &previous
	}
	respondWithJSON(w, upstreamStatus(err), resp)
}
