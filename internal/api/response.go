package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/go-github/v62/github"

	"github-dashboard/internal/model"
)

const profileBaseURL = "https://github.com/"

type errorResponse struct {
	Error string `json:"error"`
}

// fetchErrorResponse tells the front end what failed and where the public profile lives,
// so it can offer a retry and a fallback link.
type fetchErrorResponse struct {
	Error       string             `json:"error"`
	Resource    string             `json:"resource,omitempty"`
	Username    string             `json:"username"`
	ProfileURL  string             `json:"profile_url"`
	StaleRecord *model.CacheRecord `json:"stale_record,omitempty"`
}

func profileURL(username string) string {
	return profileBaseURL + username
}

// upstreamStatus maps a fetch failure to the status returned to clients.
// A missing GitHub user is a 404, anything else from upstream is a bad gateway.
func upstreamStatus(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, errorResponse{Error: message})
}
