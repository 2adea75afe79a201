package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"phdradar/internal/types"
)

// FeedFile reads candidate posts from a local JSON file holding an array
// of raw posts. It is the offline counterpart of a network crawler and
// the source used by fixture-driven runs.
type FeedFile struct {
	name string
	path string
}

// NewFeedFile creates a feed-file source.
func NewFeedFile(name, path string) (*FeedFile, error) {
	if name == "" {
		return nil, fmt.Errorf("source name is required")
	}
	if path == "" {
		return nil, fmt.Errorf("feed file path is required")
	}
	return &FeedFile{name: name, path: path}, nil
}

func (f *FeedFile) Name() string { return f.name }

// Fetch loads the feed and returns posts created strictly after the
// cursor, oldest first. A missing file is an error: a configured feed
// that cannot be read should fail its source run, not silently yield
// nothing.
func (f *FeedFile) Fetch(ctx context.Context, cursor string) ([]*types.RawPost, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", f.path, err)
	}

	var posts []*types.RawPost
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", f.path, err)
	}

	var after time.Time
	if cursor != "" {
		after, err = time.Parse(time.RFC3339, cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q for source %s: %w", cursor, f.name, err)
		}
	}

	filtered := posts[:0]
	for _, p := range posts {
		if p.URI == "" || p.CreatedAt.IsZero() {
			continue
		}
		if !after.IsZero() && !p.CreatedAt.After(after) {
			continue
		}
		filtered = append(filtered, p)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})
	return filtered, nil
}
