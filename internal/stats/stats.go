// Package stats derives dashboard aggregates from a snapshot.
// Every function is pure and treats a nil or empty snapshot as having no data.
package stats

import (
	"sort"
	"strings"

	"github-dashboard/internal/model"
)

const dateLayout = "2006-01-02"

// LanguageCount is one slice of the language distribution.
type LanguageCount struct {
	Language string  `json:"name"`
	Count    int     `json:"value"`
	Share    float64 `json:"share"`
}

// DateCount is the number of events on one UTC calendar day.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TypeCount is the number of events of one type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Summary holds the headline numbers shown next to the profile.
type Summary struct {
	Followers   int `json:"followers"`
	Following   int `json:"following"`
	PublicRepos int `json:"public_repos"`
	TotalStars  int `json:"total_stars"`
	TotalForks  int `json:"total_forks"`
}

// StarTotal sums stargazers over all repositories.
func StarTotal(repos []model.Repository) int {
	total := 0
	for _, r := range repos {
		total += r.StargazersCount
	}
	return total
}

// ForkTotal sums forks over all repositories.
func ForkTotal(repos []model.Repository) int {
	total := 0
	for _, r := range repos {
		total += r.ForksCount
	}
	return total
}

// LanguageHistogram counts repositories per non-empty language, in order of first occurrence.
func LanguageHistogram(repos []model.Repository) []LanguageCount {
	index := make(map[string]int)
	out := []LanguageCount{}
	counted := 0
	for _, r := range repos {
		lang := r.LanguageName()
		if lang == "" {
			continue
		}
		counted++
		if i, ok := index[lang]; ok {
			out[i].Count++
			continue
		}
		index[lang] = len(out)
		out = append(out, LanguageCount{Language: lang, Count: 1})
	}
	for i := range out {
		out[i].Share = float64(out[i].Count) / float64(counted)
	}
	return out
}

// EventDateHistogram counts events per UTC calendar date, ordered by date ascending.
func EventDateHistogram(events []model.Event) []DateCount {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.CreatedAt.UTC().Format(dateLayout)]++
	}

	out := make([]DateCount, 0, len(counts))
	for date, n := range counts {
		out = append(out, DateCount{Date: date, Count: n})
	}
	// YYYY-MM-DD sorts lexically in date order.
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// EventTypeHistogram counts events per type tag, in order of first occurrence.
func EventTypeHistogram(events []model.Event) []TypeCount {
	index := make(map[string]int)
	out := []TypeCount{}
	for _, e := range events {
		if i, ok := index[e.Type]; ok {
			out[i].Count++
			continue
		}
		index[e.Type] = len(out)
		out = append(out, TypeCount{Type: e.Type, Count: 1})
	}
	return out
}

// SearchRepositories keeps repositories whose name contains query (case-insensitive)
// and orders them by stars descending. Ties keep their input order.
// The input slice is not modified.
func SearchRepositories(repos []model.Repository, query string) []model.Repository {
	needle := strings.ToLower(query)
	out := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StargazersCount > out[j].StargazersCount
	})
	return out
}

// TopRepositories returns the first n repositories in API order, as the repos tab lists them.
// A non-positive n returns every repository. The result never aliases repos.
func TopRepositories(repos []model.Repository, n int) []model.Repository {
	if n <= 0 || n > len(repos) {
		n = len(repos)
	}
	out := make([]model.Repository, n)
	copy(out, repos[:n])
	return out
}

// Summarize collects the headline numbers for snapshot.
func Summarize(snapshot *model.Snapshot) Summary {
	if snapshot == nil {
		return Summary{}
	}
	return Summary{
		Followers:   snapshot.User.Followers,
		Following:   snapshot.User.Following,
		PublicRepos: snapshot.User.PublicRepos,
		TotalStars:  StarTotal(snapshot.Repos),
		TotalForks:  ForkTotal(snapshot.Repos),
	}
}

// Repos returns the snapshot's repositories, or nil for a nil snapshot.
func Repos(snapshot *model.Snapshot) []model.Repository {
	if snapshot == nil {
		return nil
	}
	return snapshot.Repos
}

// Events returns the snapshot's events, or nil for a nil snapshot.
func Events(snapshot *model.Snapshot) []model.Event {
	if snapshot == nil {
		return nil
	}
	return snapshot.Events
}
