// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Sub-resources fetched for a snapshot.
const (
	ResourceUser   = "user"
	ResourceRepos  = "repos"
	ResourceEvents = "events"
)

// ErrInvalidUsername is returned when a username is empty or is not a single URL path segment.
var ErrInvalidUsername = errors.New("invalid github username")

// FetchError is returned when one of the upstream GitHub calls fails.
type FetchError struct {
	Resource string
	Username string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s data for %q: %v", e.Resource, e.Username, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StorageError is returned by storage backends when the durable medium cannot be used.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
