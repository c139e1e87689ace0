// Package matcher implements the per-candidate accept/reject pipeline:
// word filters, title matching, identifier matching, and the combined
// match engine.
package matcher

import (
	"strings"

	"github.com/fetcharr/fetcharr/internal/parser"
)

// A word set is expressed as "word1&word2": words within a set are ANDed,
// multiple sets are ORed against each other.

// splitSet splits a "word1&word2" expression into its lowercased words.
func splitSet(set string) []string {
	parts := strings.Split(strings.ToLower(set), "&")
	words := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			words = append(words, p)
		}
	}
	return words
}

// ContainsWordSet reports whether the name contains every word of the set
// as a whole word.
func ContainsWordSet(name string, set string) bool {
	words := wordSet(parser.Simplify(name))
	for _, w := range splitSet(set) {
		if !words[w] {
			return false
		}
	}
	return true
}

// MatchesAnySet reports whether the name satisfies at least one of the
// given word sets. An empty list matches nothing.
func MatchesAnySet(name string, sets []string) bool {
	for _, set := range sets {
		if ContainsWordSet(name, set) {
			return true
		}
	}
	return false
}

// ContainsIgnoredSet reports whether the name matches an ignored-word set.
// Ignored words match as substrings: ignoring is intentionally stricter
// than the whole-word rule used for required and preferred words.
func ContainsIgnoredSet(name string, sets []string) (string, bool) {
	simplified := parser.Simplify(name)
	for _, set := range sets {
		all := true
		for _, w := range splitSet(set) {
			if !strings.Contains(simplified, w) {
				all = false
				break
			}
		}
		if all && len(splitSet(set)) > 0 {
			return set, true
		}
	}
	return "", false
}

// ContainsWholeWord reports whether the simplified name contains the word
// as a whole word.
func ContainsWholeWord(name, word string) bool {
	return wordSet(parser.Simplify(name))[strings.ToLower(word)]
}

func wordSet(simplified string) map[string]bool {
	fields := strings.Fields(simplified)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
