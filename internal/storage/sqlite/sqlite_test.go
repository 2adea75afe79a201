package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phdradar/internal/storage"
	"phdradar/internal/types"
)

func testStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "phdradar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func samplePosting(uri string, createdAt time.Time) *types.Posting {
	return &types.Posting{
		URI:           uri,
		Message:       "Open PhD position in Biology",
		URL:           "https://example.org/post",
		SourceUser:    "lab.example.org",
		Source:        "bluesky",
		CreatedAt:     createdAt,
		Disciplines:   []string{"Biology"},
		Country:       "Germany",
		PositionType:  []string{"PhD"},
		IsVerifiedJob: true,
	}
}

func TestUpsertAndGet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	p := samplePosting("at://a", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.UpsertPosting(ctx, p))

	got, err := store.GetPosting(ctx, "at://a")
	require.NoError(t, err)
	assert.Equal(t, p.Message, got.Message)
	assert.Equal(t, p.Disciplines, got.Disciplines)
	assert.Equal(t, p.PositionType, got.PositionType)
	assert.True(t, got.IsVerifiedJob)
	assert.True(t, got.CreatedAt.Equal(p.CreatedAt))
	assert.False(t, got.IndexedAt.IsZero())
}

func TestUpsertReplacesOnSameURI(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	p := samplePosting("at://a", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.UpsertPosting(ctx, p))

	p.Country = "France"
	p.Disciplines = []string{"Chemistry & Materials Science"}
	require.NoError(t, store.UpsertPosting(ctx, p))

	got, err := store.GetPosting(ctx, "at://a")
	require.NoError(t, err)
	assert.Equal(t, "France", got.Country)
	assert.Equal(t, []string{"Chemistry & Materials Science"}, got.Disciplines)
}

func TestUpsertRejectsInvalid(t *testing.T) {
	store := testStore(t)
	err := store.UpsertPosting(context.Background(), &types.Posting{Message: "no uri"})
	assert.Error(t, err)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.GetPosting(context.Background(), "at://missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestQueryCanonicalFilters(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	canonical := samplePosting("at://canonical", base)
	require.NoError(t, store.UpsertPosting(ctx, canonical))

	duplicate := samplePosting("at://duplicate", base.Add(time.Hour))
	duplicate.DuplicateOf = "at://canonical"
	require.NoError(t, store.UpsertPosting(ctx, duplicate))

	unverified := samplePosting("at://unverified", base.Add(2*time.Hour))
	unverified.IsVerifiedJob = false
	unverified.Disciplines = nil
	require.NoError(t, store.UpsertPosting(ctx, unverified))

	stale := samplePosting("at://stale", base.AddDate(0, -6, 0))
	require.NoError(t, store.UpsertPosting(ctx, stale))

	otherSource := samplePosting("at://other", base)
	otherSource.Source = "scholarshipdb"
	require.NoError(t, store.UpsertPosting(ctx, otherSource))

	got, err := store.QueryCanonical(ctx, "bluesky", base.AddDate(0, 0, -90))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "at://canonical", got[0].URI)
}

func TestQueryCanonicalNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertPosting(ctx, samplePosting("at://old", base)))
	require.NoError(t, store.UpsertPosting(ctx, samplePosting("at://new", base.Add(48*time.Hour))))

	got, err := store.QueryCanonical(ctx, "bluesky", base.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "at://new", got[0].URI)
}

func TestSetDuplicateLink(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertPosting(ctx, samplePosting("at://a", base)))
	require.NoError(t, store.SetDuplicateLink(ctx, "at://a", "at://b"))

	got, err := store.GetPosting(ctx, "at://a")
	require.NoError(t, err)
	assert.Equal(t, "at://b", got.DuplicateOf)
	assert.False(t, got.IsCanonical())

	// Clearing the link restores canonical status.
	require.NoError(t, store.SetDuplicateLink(ctx, "at://a", ""))
	got, err = store.GetPosting(ctx, "at://a")
	require.NoError(t, err)
	assert.True(t, got.IsCanonical())
}

func TestSetDuplicateLinkRepointsDependents(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertPosting(ctx, samplePosting("at://a", base)))
	require.NoError(t, store.UpsertPosting(ctx, samplePosting("at://b", base.Add(time.Hour))))
	require.NoError(t, store.UpsertPosting(ctx, samplePosting("at://c", base.Add(2*time.Hour))))

	// a -> b, then b loses canonical status to c.
	require.NoError(t, store.SetDuplicateLink(ctx, "at://a", "at://b"))
	require.NoError(t, store.SetDuplicateLink(ctx, "at://b", "at://c"))

	a, err := store.GetPosting(ctx, "at://a")
	require.NoError(t, err)
	assert.Equal(t, "at://c", a.DuplicateOf, "dependents must follow the new canonical head")

	b, err := store.GetPosting(ctx, "at://b")
	require.NoError(t, err)
	assert.Equal(t, "at://c", b.DuplicateOf)

	c, err := store.GetPosting(ctx, "at://c")
	require.NoError(t, err)
	assert.True(t, c.IsCanonical())
}

func TestSetDuplicateLinkMissingPosting(t *testing.T) {
	store := testStore(t)
	err := store.SetDuplicateLink(context.Background(), "at://missing", "at://b")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExistingURIs(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertPosting(ctx, samplePosting("at://a", base)))

	existing, err := store.ExistingURIs(ctx, []string{"at://a", "at://b"})
	require.NoError(t, err)
	assert.True(t, existing["at://a"])
	assert.False(t, existing["at://b"])

	empty, err := store.ExistingURIs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmptySlicesRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	p := samplePosting("at://a", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	p.IsVerifiedJob = false
	p.Disciplines = nil
	p.PositionType = nil
	require.NoError(t, store.UpsertPosting(ctx, p))

	got, err := store.GetPosting(ctx, "at://a")
	require.NoError(t, err)
	assert.Nil(t, got.Disciplines)
	assert.Nil(t, got.PositionType)
}
