package matcher

import (
	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/parser"
)

// IdentifierMatches decides whether a release's season/episode numbering
// satisfies the wanted identifier. Movies carry an empty requirement and
// always match.
//
// Zero-valued keys in the requirement are wildcards. Multi-episode ranges
// are rejected outright rather than partially matched: a single-episode
// want must never be satisfied by a multi-episode pack. A release without
// an episode number (a season pack) subset-matches a season-level want.
func IdentifierMatches(parsed *parser.Identifier, required media.Identifier) bool {
	if required.Empty() {
		return true
	}
	if parsed == nil {
		return false
	}
	if parsed.IsRange() {
		return false
	}
	if required.Season != 0 && parsed.Season != required.Season {
		return false
	}
	if required.Episode != 0 && parsed.Episode != required.Episode {
		return false
	}
	return true
}
