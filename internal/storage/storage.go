// Package storage defines the persistence interface for postings and its
// backends. SQLite is the default backend; Postgres is available for
// shared deployments.
package storage

import (
	"context"
	"errors"
	"time"

	"phdradar/internal/types"
)

// ErrNotFound is returned when a posting does not exist.
var ErrNotFound = errors.New("posting not found")

// Storage persists postings across pipeline runs.
type Storage interface {
	// UpsertPosting inserts the posting, or replaces the stored record
	// when one with the same URI already exists.
	UpsertPosting(ctx context.Context, p *types.Posting) error

	// GetPosting returns the posting with the given URI, or ErrNotFound.
	GetPosting(ctx context.Context, uri string) (*types.Posting, error)

	// QueryCanonical returns verified canonical postings (no duplicate
	// link) from one source with created_at >= since, newest first.
	QueryCanonical(ctx context.Context, source string, since time.Time) ([]*types.Posting, error)

	// SetDuplicateLink points the posting at its canonical URI. Stored
	// postings already pointing at uri are repointed to canonicalURI in
	// the same step, so a link target is always canonical and chains
	// never form. An empty canonicalURI clears the link, restoring the
	// posting to canonical; its dependents keep pointing at it.
	SetDuplicateLink(ctx context.Context, uri, canonicalURI string) error

	// ExistingURIs reports which of the given URIs are already stored.
	ExistingURIs(ctx context.Context, uris []string) (map[string]bool, error)

	// Close releases the backend's resources.
	Close() error
}
