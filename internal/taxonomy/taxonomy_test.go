package taxonomy

import (
	"testing"
)

func TestMatchDiscipline(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"exact match", "Biology", "Biology"},
		{"case insensitive", "biology", "Biology"},
		{"label inside echo", "The discipline is Computer Science.", "Computer Science"},
		{"compound label", "chemistry & materials science", "Chemistry & Materials Science"},
		{"no match", "Astrology", ""},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchDiscipline(tt.response); got != tt.want {
				t.Errorf("MatchDiscipline(%q) = %q, want %q", tt.response, got, tt.want)
			}
		})
	}
}

func TestFilterDisciplines(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       []string
	}{
		{
			name:       "valid labels pass through",
			candidates: []string{"Biology", "Physics"},
			want:       []string{"Biology", "Physics"},
		},
		{
			name:       "invalid labels dropped",
			candidates: []string{"Biology", "Astrology"},
			want:       []string{"Biology"},
		},
		{
			name:       "nothing valid defaults to Other",
			candidates: []string{"Astrology", "Alchemy"},
			want:       []string{"Other"},
		},
		{
			name:       "empty input defaults to Other",
			candidates: nil,
			want:       []string{"Other"},
		},
		{
			name:       "capped at three",
			candidates: []string{"Biology", "Physics", "Mathematics", "Economics"},
			want:       []string{"Biology", "Physics", "Mathematics"},
		},
		{
			name:       "duplicates collapsed",
			candidates: []string{"Biology", "biology", "BIOLOGY"},
			want:       []string{"Biology"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterDisciplines(tt.candidates)
			if len(got) != len(tt.want) {
				t.Fatalf("FilterDisciplines(%v) = %v, want %v", tt.candidates, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FilterDisciplines(%v)[%d] = %q, want %q", tt.candidates, i, got[i], tt.want[i])
				}
			}
		})
	}

	t.Run("result always within bounds", func(t *testing.T) {
		got := FilterDisciplines([]string{"Biology", "Physics", "Mathematics", "Economics", "History"})
		if len(got) < 1 || len(got) > 3 {
			t.Errorf("expected 1..3 disciplines, got %d", len(got))
		}
		for _, d := range got {
			if MatchDiscipline(d) != d {
				t.Errorf("result label %q not in taxonomy", d)
			}
		}
	})
}

func TestFilterPositionTypes(t *testing.T) {
	got := FilterPositionTypes([]string{"PhD", "Visiting Artist", "Postdoc"})
	if len(got) != 2 || got[0] != "PhD" || got[1] != "Postdoc" {
		t.Errorf("unexpected result: %v", got)
	}
	if got := FilterPositionTypes(nil); len(got) != 0 {
		t.Errorf("expected empty result for empty input, got %v", got)
	}
}
