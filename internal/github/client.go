// internal/github/client.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	custom_errors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

const (
	defaultPerPage = 100
	defaultTimeout = 30 * time.Second
)

// loginPattern is GitHub's login charset: letters, digits and hyphens, at most 39 characters.
var loginPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,39}$`)

// Options configures a Client. The zero value talks to api.github.com anonymously.
type Options struct {
	Token   string
	BaseURL string
	PerPage int
	Timeout time.Duration
}

// Client is a wrapper around the go-github client.
type Client struct {
	gh      *github.Client
	logger  *slog.Logger
	perPage int
}

// NewClient creates and configures a new Client instance.
// When a token is provided it is used to create an authenticated http.Client,
// otherwise requests are sent unauthenticated and share GitHub's anonymous rate limit.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var hc *http.Client
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: opts.Token},
		)
		hc = oauth2.NewClient(context.Background(), ts)
		hc.Timeout = timeout
	} else {
		hc = &http.Client{Timeout: timeout}
	}

	gh := github.NewClient(hc)
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %q: %w", opts.BaseURL, err)
		}
		gh.BaseURL = u
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	return &Client{
		gh:      gh,
		logger:  logger,
		perPage: perPage,
	}, nil
}

// ValidateUsername checks that username is a well-formed GitHub login.
// Anything else, dot segments included, would not map to a single /users/{login} path.
func ValidateUsername(username string) error {
	if !loginPattern.MatchString(username) {
		return fmt.Errorf("%w: %q", custom_errors.ErrInvalidUsername, username)
	}
	return nil
}

// GetUser fetches the public profile of username.
func (c *Client) GetUser(ctx context.Context, username string) (*model.User, error) {
	u, _, err := c.gh.Users.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return toInternalUser(u), nil
}

// ListRepos fetches the first page of repositories owned by username, in API order.
func (c *Client) ListRepos(ctx context.Context, username string) ([]model.Repository, error) {
	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{PerPage: c.perPage},
	}
	repos, _, err := c.gh.Repositories.ListByUser(ctx, username, opts)
	if err != nil {
		return nil, err
	}

	out := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, toInternalRepository(r))
	}
	return out, nil
}

// ListEvents fetches the first page of events performed by username, in API order.
func (c *Client) ListEvents(ctx context.Context, username string) ([]model.Event, error) {
	opts := &github.ListOptions{PerPage: c.perPage}
	events, _, err := c.gh.Activity.ListEventsPerformedByUser(ctx, username, false, opts)
	if err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		out = append(out, toInternalEvent(e))
	}
	return out, nil
}

// FetchSnapshot retrieves profile, repositories and events concurrently and assembles them.
// If any call fails the others are cancelled and no snapshot is returned.
func (c *Client) FetchSnapshot(ctx context.Context, username string) (*model.Snapshot, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	logger := c.logger.With("username", username)
	logger.Debug("Fetching github snapshot")

	var (
		user   *model.User
		repos  []model.Repository
		events []model.Event
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := c.GetUser(gctx, username)
		if err != nil {
			return &custom_errors.FetchError{Resource: custom_errors.ResourceUser, Username: username, Err: err}
		}
		user = u
		return nil
	})
	g.Go(func() error {
		r, err := c.ListRepos(gctx, username)
		if err != nil {
			return &custom_errors.FetchError{Resource: custom_errors.ResourceRepos, Username: username, Err: err}
		}
		repos = r
		return nil
	})
	g.Go(func() error {
		e, err := c.ListEvents(gctx, username)
		if err != nil {
			return &custom_errors.FetchError{Resource: custom_errors.ResourceEvents, Username: username, Err: err}
		}
		events = e
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Warn("Github snapshot fetch failed", "error", err)
		return nil, err
	}

	logger.Info("Fetched github snapshot", "repos", len(repos), "events", len(events))
	return &model.Snapshot{
		Username: username,
		User:     *user,
		Repos:    repos,
		Events:   events,
	}, nil
}

// toInternalUser translates a github.User object to our internal model.User.
func toInternalUser(u *github.User) *model.User {
	return &model.User{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		Bio:         u.GetBio(),
		AvatarURL:   u.GetAvatarURL(),
		HTMLURL:     u.GetHTMLURL(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		PublicRepos: u.GetPublicRepos(),
	}
}

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) model.Repository {
	return model.Repository{
		ID:              r.GetID(),
		Name:            r.GetName(),
		Description:     r.Description,
		StargazersCount: r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		HTMLURL:         r.GetHTMLURL(),
		Language:        r.Language,
		Size:            r.GetSize(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       r.GetUpdatedAt().Time,
	}
}

func toInternalEvent(e *github.Event) model.Event {
	return model.Event{
		ID:        e.GetID(),
		Type:      e.GetType(),
		CreatedAt: e.GetCreatedAt().Time,
	}
}
