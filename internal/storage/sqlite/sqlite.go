// Package sqlite implements posting storage on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"phdradar/internal/storage"
	"phdradar/internal/types"
)

// SQLiteStorage implements storage.Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// New opens (or creates) the database at path and initializes the schema.
func New(path string) (*SQLiteStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL mode for concurrent reads during a sync run.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// UpsertPosting inserts or fully replaces the record keyed by uri.
func (s *SQLiteStorage) UpsertPosting(ctx context.Context, p *types.Posting) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid posting: %w", err)
	}

	disciplines, err := json.Marshal(emptySlice(p.Disciplines))
	if err != nil {
		return fmt.Errorf("failed to marshal disciplines: %w", err)
	}
	positionType, err := json.Marshal(emptySlice(p.PositionType))
	if err != nil {
		return fmt.Errorf("failed to marshal position types: %w", err)
	}

	indexedAt := p.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO postings (uri, message, url, source_user, source, created_at, indexed_at,
			disciplines, country, position_type, is_verified_job, duplicate_of)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			message = excluded.message,
			url = excluded.url,
			source_user = excluded.source_user,
			source = excluded.source,
			created_at = excluded.created_at,
			disciplines = excluded.disciplines,
			country = excluded.country,
			position_type = excluded.position_type,
			is_verified_job = excluded.is_verified_job,
			duplicate_of = excluded.duplicate_of
	`, p.URI, p.Message, p.URL, p.SourceUser, p.Source, p.CreatedAt.UTC(), indexedAt,
		string(disciplines), p.Country, string(positionType), boolToInt(p.IsVerifiedJob), p.DuplicateOf)
	if err != nil {
		return fmt.Errorf("failed to upsert posting %s: %w", p.URI, err)
	}
	return nil
}

// GetPosting returns one posting by URI.
func (s *SQLiteStorage) GetPosting(ctx context.Context, uri string) (*types.Posting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uri, message, url, source_user, source, created_at, indexed_at,
			disciplines, country, position_type, is_verified_job, duplicate_of
		FROM postings WHERE uri = ?
	`, uri)

	p, err := scanPosting(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get posting %s: %w", uri, err)
	}
	return p, nil
}

// QueryCanonical returns verified canonical postings for a source since the
// given time, newest first.
func (s *SQLiteStorage) QueryCanonical(ctx context.Context, source string, since time.Time) ([]*types.Posting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uri, message, url, source_user, source, created_at, indexed_at,
			disciplines, country, position_type, is_verified_job, duplicate_of
		FROM postings
		WHERE source = ? AND is_verified_job = 1 AND duplicate_of = '' AND created_at >= ?
		ORDER BY created_at DESC
	`, source, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query canonical postings: %w", err)
	}
	defer rows.Close()

	var postings []*types.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// SetDuplicateLink points a posting at its canonical URI and repoints the
// posting's own dependents at the same target.
func (s *SQLiteStorage) SetDuplicateLink(ctx context.Context, uri, canonicalURI string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE postings SET duplicate_of = ? WHERE uri = ?`, canonicalURI, uri)
	if err != nil {
		return fmt.Errorf("failed to set duplicate link for %s: %w", uri, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check duplicate link update: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	if canonicalURI == "" {
		return nil
	}

	// A posting that just lost canonical status may have dependents from
	// earlier runs; they follow it to the new head so no link ever points
	// at a duplicate.
	_, err = s.db.ExecContext(ctx,
		`UPDATE postings SET duplicate_of = ? WHERE duplicate_of = ? AND uri <> ?`,
		canonicalURI, uri, canonicalURI)
	if err != nil {
		return fmt.Errorf("failed to repoint dependents of %s: %w", uri, err)
	}
	return nil
}

// ExistingURIs reports which URIs are already stored.
func (s *SQLiteStorage) ExistingURIs(ctx context.Context, uris []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(uris))
	if len(uris) == 0 {
		return existing, nil
	}

	placeholders := strings.Repeat("?,", len(uris))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(uris))
	for i, uri := range uris {
		args[i] = uri
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT uri FROM postings WHERE uri IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing uris: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, err
		}
		existing[uri] = true
	}
	return existing, rows.Err()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (*types.Posting, error) {
	var p types.Posting
	var disciplines, positionType string
	var verified int

	err := row.Scan(&p.URI, &p.Message, &p.URL, &p.SourceUser, &p.Source,
		&p.CreatedAt, &p.IndexedAt, &disciplines, &p.Country, &positionType,
		&verified, &p.DuplicateOf)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(disciplines), &p.Disciplines); err != nil {
		return nil, fmt.Errorf("corrupt disciplines for %s: %w", p.URI, err)
	}
	if err := json.Unmarshal([]byte(positionType), &p.PositionType); err != nil {
		return nil, fmt.Errorf("corrupt position types for %s: %w", p.URI, err)
	}
	if len(p.Disciplines) == 0 {
		p.Disciplines = nil
	}
	if len(p.PositionType) == 0 {
		p.PositionType = nil
	}
	p.IsVerifiedJob = verified != 0
	return &p, nil
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
