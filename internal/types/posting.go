package types

import (
	"fmt"
	"time"
)

// UnknownCountry is the default value when no country could be extracted.
const UnknownCountry = "Unknown"

// RawPost is a candidate announcement as delivered by a fetch collaborator.
// Enrichment fields (AuthorBio, EmbedSummary) are passed opaquely into the
// classifier; they never participate in job/non-job detection.
type RawPost struct {
	URI         string    `json:"uri"`
	Message     string    `json:"message"`
	URL         string    `json:"url"`
	SourceUser  string    `json:"source_user"`
	CreatedAt   time.Time `json:"created_at"`
	AuthorBio   string    `json:"author_bio,omitempty"`
	EmbedSummary string   `json:"embed_summary,omitempty"`

	// Some sources (field-indexed job boards) arrive pre-classified.
	// When PreVerified is true and Disciplines is non-empty, the
	// classifier is skipped for this post.
	PreVerified bool     `json:"pre_verified,omitempty"`
	Disciplines []string `json:"disciplines,omitempty"`
}

// Posting is one canonical or duplicate announcement record.
type Posting struct {
	URI          string    `json:"uri"`
	Message      string    `json:"message"`
	URL          string    `json:"url"`
	SourceUser   string    `json:"source_user"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
	IndexedAt    time.Time `json:"indexed_at"`
	Disciplines  []string  `json:"disciplines,omitempty"`
	Country      string    `json:"country,omitempty"`
	PositionType []string  `json:"position_type,omitempty"`

	// IsVerifiedJob is true if the source pre-verified the post or the
	// classifier confirmed it.
	IsVerifiedJob bool `json:"is_verified_job"`

	// DuplicateOf references the canonical posting's URI. Empty means
	// this posting is itself canonical.
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

// Validate checks the posting's field invariants.
func (p *Posting) Validate() error {
	if p.URI == "" {
		return fmt.Errorf("uri is required")
	}
	if p.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if len(p.Disciplines) > 3 {
		return fmt.Errorf("disciplines must have at most 3 entries (got %d)", len(p.Disciplines))
	}
	if p.IsVerifiedJob && len(p.Disciplines) == 0 {
		return fmt.Errorf("verified job must have at least 1 discipline")
	}
	if p.DuplicateOf == p.URI && p.URI != "" {
		return fmt.Errorf("posting cannot be a duplicate of itself")
	}
	return nil
}

// IsCanonical reports whether the posting represents its duplicate group.
func (p *Posting) IsCanonical() bool {
	return p.DuplicateOf == ""
}

// Classification is the structured label set produced for one posting.
// A rejected (non-job) post has IsJob=false and no metadata.
type Classification struct {
	IsJob        bool     `json:"is_job"`
	Disciplines  []string `json:"disciplines,omitempty"`
	Country      string   `json:"country,omitempty"`
	PositionType []string `json:"position_type,omitempty"`
}

// Apply copies the classification onto a posting.
func (c *Classification) Apply(p *Posting) {
	p.IsVerifiedJob = c.IsJob
	if !c.IsJob {
		p.Disciplines = nil
		p.Country = ""
		p.PositionType = nil
		return
	}
	p.Disciplines = c.Disciplines
	p.Country = c.Country
	if p.Country == "" {
		p.Country = UnknownCountry
	}
	p.PositionType = c.PositionType
}

// SourceSyncState tracks how much of one source's feed has been processed.
type SourceSyncState struct {
	Version    int       `json:"version"`
	LastCursor string    `json:"last_cursor,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
