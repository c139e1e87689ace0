package matcher

import "testing"

func TestContainsWordSet(t *testing.T) {
	name := "The.Matrix.1999.1080p.BluRay.x264-GROUP"

	if !ContainsWordSet(name, "bluray") {
		t.Error("ContainsWordSet(bluray) = false, want true")
	}
	if !ContainsWordSet(name, "1080p&bluray") {
		t.Error("ContainsWordSet(1080p&bluray) = false, want true")
	}
	if ContainsWordSet(name, "1080p&webrip") {
		t.Error("ContainsWordSet(1080p&webrip) = true, want false")
	}
	// Whole words only: "ray" is a fragment of "bluray".
	if ContainsWordSet(name, "ray") {
		t.Error("ContainsWordSet(ray) = true, want false")
	}
}

func TestMatchesAnySet(t *testing.T) {
	name := "The.Matrix.1999.1080p.WEBRip.x264"

	if !MatchesAnySet(name, []string{"bluray", "webrip"}) {
		t.Error("MatchesAnySet() = false, want true via webrip")
	}
	if MatchesAnySet(name, []string{"bluray", "dvdrip"}) {
		t.Error("MatchesAnySet() = true, want false")
	}
	if MatchesAnySet(name, nil) {
		t.Error("MatchesAnySet(nil) = true, want false")
	}
}

func TestContainsIgnoredSetSubstrings(t *testing.T) {
	name := "The.Matrix.1999.German.1080p.BluRay"

	// Ignored words match as substrings.
	set, found := ContainsIgnoredSet(name, []string{"german"})
	if !found || set != "german" {
		t.Errorf("ContainsIgnoredSet() = %q, %v, want german, true", set, found)
	}
	if _, found := ContainsIgnoredSet(name, []string{"french"}); found {
		t.Error("ContainsIgnoredSet(french) = true, want false")
	}
	// Substring semantics: a fragment still triggers the set.
	if _, found := ContainsIgnoredSet(name, []string{"man"}); !found {
		t.Error("ContainsIgnoredSet(man) = false, want true as substring of german")
	}
}
