// Package postgres implements posting storage on PostgreSQL for shared
// deployments where several sync processes write into one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"phdradar/internal/storage"
	"phdradar/internal/types"
)

// PostgresStorage implements storage.Storage using a pgx connection pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a config with pooling defaults; DSN must be set by
// the caller.
func DefaultConfig() *Config {
	return &Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a PostgreSQL storage backend and initializes the schema.
func New(ctx context.Context, cfg *Config) (*PostgresStorage, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// UpsertPosting inserts or fully replaces the record keyed by uri.
func (s *PostgresStorage) UpsertPosting(ctx context.Context, p *types.Posting) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid posting: %w", err)
	}

	indexedAt := p.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO postings (uri, message, url, source_user, source, created_at, indexed_at,
			disciplines, country, position_type, is_verified_job, duplicate_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (uri) DO UPDATE SET
			message = EXCLUDED.message,
			url = EXCLUDED.url,
			source_user = EXCLUDED.source_user,
			source = EXCLUDED.source,
			created_at = EXCLUDED.created_at,
			disciplines = EXCLUDED.disciplines,
			country = EXCLUDED.country,
			position_type = EXCLUDED.position_type,
			is_verified_job = EXCLUDED.is_verified_job,
			duplicate_of = EXCLUDED.duplicate_of
	`, p.URI, p.Message, p.URL, p.SourceUser, p.Source, p.CreatedAt.UTC(), indexedAt,
		emptySlice(p.Disciplines), p.Country, emptySlice(p.PositionType), p.IsVerifiedJob, p.DuplicateOf)
	if err != nil {
		return fmt.Errorf("failed to upsert posting %s: %w", p.URI, err)
	}
	return nil
}

// GetPosting returns one posting by URI.
func (s *PostgresStorage) GetPosting(ctx context.Context, uri string) (*types.Posting, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT uri, message, url, source_user, source, created_at, indexed_at,
			disciplines, country, position_type, is_verified_job, duplicate_of
		FROM postings WHERE uri = $1
	`, uri)

	p, err := scanPosting(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get posting %s: %w", uri, err)
	}
	return p, nil
}

// QueryCanonical returns verified canonical postings for a source since the
// given time, newest first.
func (s *PostgresStorage) QueryCanonical(ctx context.Context, source string, since time.Time) ([]*types.Posting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT uri, message, url, source_user, source, created_at, indexed_at,
			disciplines, country, position_type, is_verified_job, duplicate_of
		FROM postings
		WHERE source = $1 AND is_verified_job AND duplicate_of = '' AND created_at >= $2
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
func (s *PostgresStorage) SetDuplicateLink(ctx context.Context, uri, canonicalURI string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE postings SET duplicate_of = $1 WHERE uri = $2`, canonicalURI, uri)
	if err != nil {
		return fmt.Errorf("failed to set duplicate link for %s: %w", uri, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	if canonicalURI == "" {
		return nil
	}

	// Dependents from earlier runs follow the posting to the new head so
	// no link ever points at a duplicate.
	_, err = s.pool.Exec(ctx,
		`UPDATE postings SET duplicate_of = $1 WHERE duplicate_of = $2 AND uri <> $1`,
		canonicalURI, uri)
	if err != nil {
		return fmt.Errorf("failed to repoint dependents of %s: %w", uri, err)
	}
	return nil
}

// ExistingURIs reports which URIs are already stored.
func (s *PostgresStorage) ExistingURIs(ctx context.Context, uris []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(uris))
	if len(uris) == 0 {
		return existing, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT uri FROM postings WHERE uri = ANY($1)`, uris)
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

// Close releases the connection pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (*types.Posting, error) {
	var p types.Posting
	var disciplines, positionType []string

	err := row.Scan(&p.URI, &p.Message, &p.URL, &p.SourceUser, &p.Source,
		&p.CreatedAt, &p.IndexedAt, &disciplines, &p.Country, &positionType,
		&p.IsVerifiedJob, &p.DuplicateOf)
	if err != nil {
		return nil, err
	}

	if len(disciplines) > 0 {
		p.Disciplines = disciplines
	}
	if len(positionType) > 0 {
		p.PositionType = positionType
	}
	return &p, nil
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
