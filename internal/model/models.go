// internal/model/models.go
package model

import "time"

// User is the profile part of a snapshot.
type User struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	HTMLURL     string `json:"html_url"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
}

// Repository represents the metadata of a GitHub repository.
type Repository struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	HTMLURL         string    `json:"html_url"`
	Language        *string   `json:"language"`
	Size            int       `json:"size"`
	OpenIssuesCount int       `json:"open_issues_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LanguageName returns the primary language or "" when GitHub reported none.
func (r Repository) LanguageName() string {
	if r.Language == nil {
		return ""
	}
	return *r.Language
}

// Event is one public GitHub event.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is one complete bundle of profile, repositories and events fetched together.
// It is never modified after construction.
type Snapshot struct {
	Username string       `json:"username"`
	User     User         `json:"user"`
	Repos    []Repository `json:"repos"`
	Events   []Event      `json:"events"`
}

// CacheRecord is the persisted store state. Snapshot and LastFetched are either both nil or both set.
type CacheRecord struct {
	Snapshot    *Snapshot  `json:"data"`
	LastFetched *time.Time `json:"last_fetched"`
}

// IsEmpty reports whether the record holds no snapshot.
func (r CacheRecord) IsEmpty() bool {
	return r.Snapshot == nil || r.LastFetched == nil
}

// Age returns how long ago the record was written. Empty records report zero.
func (r CacheRecord) Age(now time.Time) time.Duration {
	if r.LastFetched == nil {
		return 0
	}
	return now.Sub(*r.LastFetched)
}
