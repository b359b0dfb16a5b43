package api

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit rejects requests with 429 once limiter runs out of tokens. Health checks are never limited.
func RateLimit(limiter *rate.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow() {
				logger.Warn("Rate limit exceeded", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				respondWithJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":   "rate limit exceeded",
					"message": "please try again later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
