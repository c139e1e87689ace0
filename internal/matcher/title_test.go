package matcher

import (
	"testing"

	"github.com/fetcharr/fetcharr/internal/parser"
)

func TestPossibleTitles(t *testing.T) {
	titles := PossibleTitles("The Great Escape")

	want := map[string]bool{
		"the great escape": true,
		"great escape the": true,
		"great escape":     true,
	}
	if len(titles) != len(want) {
		t.Fatalf("PossibleTitles() = %v, want %d permutations", titles, len(want))
	}
	for _, title := range titles {
		if !want[title] {
			t.Errorf("unexpected permutation %q", title)
		}
	}
}

func TestTitleMatchesPermutations(t *testing.T) {
	// The article can sit at either end of the release name.
	tests := []string{
		"The.Great.Escape.1963.1080p.BluRay",
		"Great.Escape.The.1963.1080p.BluRay",
		"Great.Escape.1963.1080p.BluRay",
	}
	for _, name := range tests {
		parsed := parser.Parse(name)
		if !TitleMatches(parsed, []string{"The Great Escape"}, 1963) {
			t.Errorf("TitleMatches(%q) = false, want true", name)
		}
	}
}

func TestTitleMatchesYearTolerance(t *testing.T) {
	// Long titles tolerate a year off by one.
	parsed := parser.Parse("The.Great.Escape.1962.1080p.BluRay")
	if !TitleMatches(parsed, []string{"The Great Escape"}, 1963) {
		t.Error("TitleMatches() year off by one on long title = false, want true")
	}

	parsed = parser.Parse("The.Great.Escape.1960.1080p.BluRay")
	if TitleMatches(parsed, []string{"The Great Escape"}, 1963) {
		t.Error("TitleMatches() year off by three = true, want false")
	}
}

func TestTitleMatchesShortTitleExactYear(t *testing.T) {
	// Two-word titles require the exact year.
	parsed := parser.Parse("The.Matrix.1998.1080p.BluRay")
	if TitleMatches(parsed, []string{"The Matrix"}, 1999) {
		t.Error("TitleMatches() short title year off by one = true, want false")
	}

	parsed = parser.Parse("The.Matrix.1999.1080p.BluRay")
	if !TitleMatches(parsed, []string{"The Matrix"}, 1999) {
		t.Error("TitleMatches() exact short title = false, want true")
	}
}

func TestTitleMatchesRejectsWrongMovie(t *testing.T) {
	// A sequel name must not satisfy the original, even with a close year.
	parsed := parser.Parse("The.Matrix.Reloaded.2003.1080p.BluRay")
	if TitleMatches(parsed, []string{"The Matrix"}, 1999) {
		t.Error("TitleMatches() sequel = true, want false")
	}
}

func TestTitleMatchesMissingYear(t *testing.T) {
	// An exact name match passes when either side lacks a year.
	parsed := parser.Parse("The.Matrix.1080p.BluRay")
	if !TitleMatches(parsed, []string{"The Matrix"}, 1999) {
		t.Error("TitleMatches() releases without year = false, want true")
	}

	parsed = parser.Parse("The.Matrix.1999.1080p.BluRay")
	if !TitleMatches(parsed, []string{"The Matrix"}, 0) {
		t.Error("TitleMatches() media without year = false, want true")
	}
}

func TestTitleMatchesLooseFallbackLongTitlesOnly(t *testing.T) {
	// A long title with a dropped word still matches when the year agrees.
	parsed := parser.Parse("Great.Escape.1963.1080p.BluRay")
	if !TitleMatches(parsed, []string{"The Great Escape"}, 1963) {
		t.Error("TitleMatches() dropped article on long title = false, want true")
	}
}
