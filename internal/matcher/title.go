package matcher

import (
	"strings"

	"github.com/fetcharr/fetcharr/internal/parser"
)

var articles = []string{"the", "a", "an"}

// PossibleTitles generates the permutation set for a known title: the
// literal title, the title with a leading article moved to the end (and
// the reverse), and the article dropped entirely. All permutations are
// simplified for comparison.
func PossibleTitles(title string) []string {
	simplified := parser.Simplify(title)
	titles := []string{simplified}

	words := strings.Fields(simplified)
	if len(words) > 1 {
		first := words[0]
		last := words[len(words)-1]
		for _, article := range articles {
			if first == article {
				rest := strings.Join(words[1:], " ")
				titles = append(titles, rest+" "+article, rest)
			}
			if last == article {
				rest := strings.Join(words[:len(words)-1], " ")
				titles = append(titles, article+" "+rest, rest)
			}
		}
	}

	return dedupe(titles)
}

// TitleMatches decides whether a parsed release plausibly refers to one of
// the media's known titles.
//
// A release matches when its title tokens are word-for-word equal to any
// permutation of any known title; the release year, when present, must then
// agree with the media year within one year for titles longer than two
// words, and exactly for short titles. Short titles never match on year
// alone; titles longer than two words fall back to a loose year-only match.
func TitleMatches(parsed parser.ParsedRelease, knownTitles []string, year int) bool {
	for _, known := range knownTitles {
		knownWords := strings.Fields(parser.Simplify(known))
		tolerance := 0
		if len(knownWords) > 2 {
			tolerance = 1
		}

		for _, possible := range PossibleTitles(known) {
			if !wordsEqual(parsed.TitleWords, strings.Fields(possible)) {
				continue
			}
			if year == 0 || parsed.Year == 0 {
				return true
			}
			if withinYears(parsed.Year, year, tolerance) {
				return true
			}
		}

		// Loose fallback: long titles tolerate a near-miss on the name when
		// the year pins the match down. Short titles carry too much
		// false-positive risk for this.
		if len(knownWords) > 2 && year != 0 && parsed.Year != 0 && withinYears(parsed.Year, year, 1) {
			if coversAllWords(parsed.TitleWords, knownWords) {
				return true
			}
		}
	}
	return false
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// coversAllWords reports whether every parsed title word appears in the
// known title's word set.
func coversAllWords(parsed, known []string) bool {
	if len(parsed) == 0 {
		return false
	}
	set := make(map[string]bool, len(known))
	for _, w := range known {
		set[w] = true
	}
	for _, w := range parsed {
		if !set[w] {
			return false
		}
	}
	return true
}

func withinYears(got, want, tolerance int) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, s := range list {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
