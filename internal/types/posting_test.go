package types

import (
	"strings"
	"testing"
	"time"
)

func TestPostingValidate(t *testing.T) {
	base := func() Posting {
		return Posting{
			URI:           "at://did:plc:abc/app.bsky.feed.post/1",
			Message:       "Open PhD position in Biology",
			CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Disciplines:   []string{"Biology"},
			IsVerifiedJob: true,
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Posting)
		expectError string
	}{
		{
			name:   "valid posting",
			mutate: func(p *Posting) {},
		},
		{
			name:        "missing uri",
			mutate:      func(p *Posting) { p.URI = "" },
			expectError: "uri is required",
		},
		{
			name:        "missing created_at",
			mutate:      func(p *Posting) { p.CreatedAt = time.Time{} },
			expectError: "created_at is required",
		},
		{
			name: "too many disciplines",
			mutate: func(p *Posting) {
				p.Disciplines = []string{"Biology", "Physics", "Chemistry & Materials Science", "Other"}
			},
			expectError: "at most 3",
		},
		{
			name:        "verified job without disciplines",
			mutate:      func(p *Posting) { p.Disciplines = nil },
			expectError: "at least 1 discipline",
		},
		{
			name: "rejected post without disciplines is valid",
			mutate: func(p *Posting) {
				p.IsVerifiedJob = false
				p.Disciplines = nil
			},
		},
		{
			name:        "self duplicate",
			mutate:      func(p *Posting) { p.DuplicateOf = p.URI },
			expectError: "duplicate of itself",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			err := p.Validate()
			if tt.expectError == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.expectError)
				} else if !contains(err.Error(), tt.expectError) {
					t.Errorf("expected error containing %q, got %q", tt.expectError, err.Error())
				}
			}
		})
	}
}

func TestClassificationApply(t *testing.T) {
	t.Run("job classification fills metadata", func(t *testing.T) {
		p := Posting{URI: "at://x", CreatedAt: time.Now()}
		c := Classification{
			IsJob:        true,
			Disciplines:  []string{"Computer Science"},
			PositionType: []string{"PhD"},
		}
		c.Apply(&p)
		if !p.IsVerifiedJob {
			t.Error("expected is_verified_job=true")
		}
		if p.Country != UnknownCountry {
			t.Errorf("expected country defaulted to %q, got %q", UnknownCountry, p.Country)
		}
	})

	t.Run("rejection clears metadata", func(t *testing.T) {
		p := Posting{
			URI:         "at://x",
			CreatedAt:   time.Now(),
			Disciplines: []string{"Biology"},
			Country:     "Germany",
		}
		c := Classification{IsJob: false}
		c.Apply(&p)
		if p.IsVerifiedJob {
			t.Error("expected is_verified_job=false")
		}
		if len(p.Disciplines) != 0 || p.Country != "" {
			t.Errorf("expected cleared metadata, got disciplines=%v country=%q", p.Disciplines, p.Country)
		}
	})
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
