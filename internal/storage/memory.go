package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"phdradar/internal/types"
)

// MemoryStorage is an in-memory Storage used by tests and dry runs.
type MemoryStorage struct {
	mu       sync.RWMutex
	postings map[string]types.Posting
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{postings: make(map[string]types.Posting)}
}

func (m *MemoryStorage) UpsertPosting(ctx context.Context, p *types.Posting) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postings[p.URI] = *p
	return nil
}

func (m *MemoryStorage) GetPosting(ctx context.Context, uri string) (*types.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.postings[uri]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStorage) QueryCanonical(ctx context.Context, source string, since time.Time) ([]*types.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*types.Posting
	for _, p := range m.postings {
		if p.Source != source || !p.IsVerifiedJob || !p.IsCanonical() {
			continue
		}
		if p.CreatedAt.Before(since) {
			continue
		}
		p := p
		result = append(result, &p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStorage) SetDuplicateLink(ctx context.Context, uri, canonicalURI string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.postings[uri]
	if !ok {
		return ErrNotFound
	}
	p.DuplicateOf = canonicalURI
	m.postings[uri] = p

	if canonicalURI == "" {
		return nil
	}
	// Dependents follow the posting to the new head so no link ever
	// points at a duplicate.
	for depURI, dep := range m.postings {
		if dep.DuplicateOf == uri && depURI != canonicalURI {
			dep.DuplicateOf = canonicalURI
			m.postings[depURI] = dep
		}
	}
	return nil
}

func (m *MemoryStorage) ExistingURIs(ctx context.Context, uris []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	existing := make(map[string]bool, len(uris))
	for _, uri := range uris {
		if _, ok := m.postings[uri]; ok {
			existing[uri] = true
		}
	}
	return existing, nil
}

func (m *MemoryStorage) Close() error { return nil }
