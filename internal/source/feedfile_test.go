package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleFeed = `[
	{"uri": "at://b", "message": "second", "created_at": "2024-06-02T00:00:00Z"},
	{"uri": "at://a", "message": "first", "created_at": "2024-06-01T00:00:00Z"},
	{"uri": "at://c", "message": "third", "created_at": "2024-06-03T00:00:00Z"},
	{"uri": "", "message": "no uri", "created_at": "2024-06-04T00:00:00Z"}
]`

func TestFetchReturnsOldestFirst(t *testing.T) {
	feed, err := NewFeedFile("bluesky", writeFeed(t, sampleFeed))
	require.NoError(t, err)

	posts, err := feed.Fetch(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, posts, 3, "posts without a uri are dropped")
	assert.Equal(t, "at://a", posts[0].URI)
	assert.Equal(t, "at://c", posts[2].URI)
}

func TestFetchFiltersByCursor(t *testing.T) {
	feed, err := NewFeedFile("bluesky", writeFeed(t, sampleFeed))
	require.NoError(t, err)

	posts, err := feed.Fetch(context.Background(), "2024-06-01T00:00:00Z")
	require.NoError(t, err)

	require.Len(t, posts, 2, "cursor boundary is exclusive")
	assert.Equal(t, "at://b", posts[0].URI)
	assert.Equal(t, "at://c", posts[1].URI)
}

func TestFetchRejectsBadCursor(t *testing.T) {
	feed, err := NewFeedFile("bluesky", writeFeed(t, sampleFeed))
	require.NoError(t, err)

	_, err = feed.Fetch(context.Background(), "not a timestamp")
	assert.Error(t, err)
}

func TestFetchMissingFileFails(t *testing.T) {
	feed, err := NewFeedFile("bluesky", filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	_, err = feed.Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestNewFeedFileValidation(t *testing.T) {
	_, err := NewFeedFile("", "feed.json")
	assert.Error(t, err)

	_, err = NewFeedFile("bluesky", "")
	assert.Error(t, err)
}
