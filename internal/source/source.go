// Package source defines where candidate postings come from. A DataSource
// yields raw posts newer than a cursor; network crawling lives behind the
// same interface as local feed files.
package source

import (
	"context"

	"phdradar/internal/types"
)

// DataSource fetches candidate posts from one feed.
type DataSource interface {
	// Name identifies the source; it keys sync state and the postings'
	// Source field.
	Name() string

	// Fetch returns posts created after the cursor, oldest first. An
	// empty cursor means fetch everything the source can see.
	// The cursor is an RFC3339 timestamp of the newest post already
	// processed.
	Fetch(ctx context.Context, cursor string) ([]*types.RawPost, error)
}
