package matcher

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/parser"
	"github.com/fetcharr/fetcharr/internal/quality"
	"github.com/fetcharr/fetcharr/internal/release"
)

// Rejection reasons reported by the engine. Rejections are expected and
// high frequency; they are logged, never surfaced as errors.
const (
	ReasonRetention    = "outside retention"
	ReasonRequired     = "required word missing"
	ReasonIgnored      = "ignored word"
	ReasonContent      = "disallowed content"
	ReasonQuality      = "quality mismatch"
	ReasonOtherQuality = "contains other quality"
	ReasonTooSmall     = "too small"
	ReasonTooLarge     = "too large"
	ReasonTitle        = "undetermined naming"
	ReasonIdentifier   = "identifier mismatch"
)

// Decision is the outcome of evaluating one candidate.
type Decision struct {
	Accepted bool
	Reason   string
	Detail   string
	Parsed   parser.ParsedRelease
}

func accept(parsed parser.ParsedRelease) Decision {
	return Decision{Accepted: true, Parsed: parsed}
}

func reject(parsed parser.ParsedRelease, reason, detail string) Decision {
	return Decision{Reason: reason, Detail: detail, Parsed: parsed}
}

// Config holds the engine's global word filters and retention window.
type Config struct {
	RetentionDays  int      // usenet retention; 0 disables the check
	RequiredWords  []string // "word1&word2" sets, ORed together
	IgnoredWords   []string
	ContentMarkers []string // words that reject unless present in the media title
}

// DefaultContentMarkers are name tokens that nearly always indicate the
// release is not the wanted media at all.
var DefaultContentMarkers = []string{
	"xxx", "sex", "porn", "erotic", "erotica", "orgy", "milf",
}

// Engine composes quality, title, and identifier matching with the word
// filters into a single accept/reject decision per candidate. It is pure:
// no I/O beyond the parse it delegates to.
type Engine struct {
	cfg     Config
	quality *quality.Matcher
	logger  zerolog.Logger
}

// NewEngine creates a match engine.
func NewEngine(cfg Config, qualityMatcher *quality.Matcher, logger zerolog.Logger) *Engine {
	if len(cfg.ContentMarkers) == 0 {
		cfg.ContentMarkers = DefaultContentMarkers
	}
	return &Engine{
		cfg:     cfg,
		quality: qualityMatcher,
		logger:  logger.With().Str("component", "matcher").Logger(),
	}
}

// Accept evaluates a candidate against a media item and quality tier. The
// checks short-circuit on the first failure; every rejection carries a
// specific reason and is logged. Malformed candidates are rejections,
// never errors.
func (e *Engine) Accept(c *release.Candidate, item *media.Item, tier quality.Tier) Decision {
	// Movies never carry episode numbering; parsing it anyway would pull
	// number-like tokens out of the title.
	var parsed parser.ParsedRelease
	if item.Kind == media.KindMovie {
		parsed = parser.ParseMovie(c.Name)
	} else {
		parsed = parser.Parse(c.Name)
	}

	def, ok := tier.Definition()
	if !ok {
		return e.rejected(c, reject(parsed, ReasonQuality, fmt.Sprintf("unknown quality %q", tier.Quality)))
	}

	// Usenet posts age out of provider retention; torrents carry seeders
	// instead of an age guarantee.
	if c.Seeders == nil && e.cfg.RetentionDays > 0 && c.AgeDays > e.cfg.RetentionDays {
		return e.rejected(c, reject(parsed, ReasonRetention,
			fmt.Sprintf("age %d days, retention %d", c.AgeDays, e.cfg.RetentionDays)))
	}

	if required := e.requiredSets(item); len(required) > 0 && !MatchesAnySet(c.Name, required) {
		return e.rejected(c, reject(parsed, ReasonRequired, strings.Join(required, ",")))
	}

	if set, found := ContainsIgnoredSet(c.Name, e.ignoredSets(item)); found {
		return e.rejected(c, reject(parsed, ReasonIgnored, set))
	}

	if marker, found := e.disallowedContent(c.Name, item); found {
		return e.rejected(c, reject(parsed, ReasonContent, marker))
	}

	// Old media often carries no quality token at all; a size-based guess
	// stands in for the missing tag before the name is rejected outright.
	if !e.quality.Matches(parsed, tier.Quality, c.Width) &&
		e.quality.AssumeFromSize(parsed, c.SizeMB, item.Year) != tier.Quality {
		return e.rejected(c, reject(parsed, ReasonQuality, tier.Quality))
	}
	if e.quality.ContainsOther(parsed, c.SizeMB, item.Year, tier.Quality) {
		return e.rejected(c, reject(parsed, ReasonOtherQuality, tier.Quality))
	}

	if c.SizeMB > 0 && c.SizeMB < def.SizeMin {
		return e.rejected(c, reject(parsed, ReasonTooSmall,
			fmt.Sprintf("%dMB, minimum for %s is %dMB", c.SizeMB, def.Label, def.SizeMin)))
	}
	if c.SizeMB > 0 && c.SizeMB > def.SizeMax {
		return e.rejected(c, reject(parsed, ReasonTooLarge,
			fmt.Sprintf("%dMB, maximum for %s is %dMB", c.SizeMB, def.Label, def.SizeMax)))
	}

	// A direct external-id reference in the description confirms the match
	// outright; name heuristics are skipped.
	if e.confirmedByExternalID(c, parsed, item) {
		return accept(parsed)
	}

	if !TitleMatches(parsed, item.Titles, item.Year) {
		return e.rejected(c, reject(parsed, ReasonTitle,
			fmt.Sprintf("looking for %q (%d)", item.Title(), item.Year)))
	}

	if item.Kind != media.KindMovie && !IdentifierMatches(parsed.Identifier, item.Identifier) {
		return e.rejected(c, reject(parsed, ReasonIdentifier,
			fmt.Sprintf("want season %d episode %d", item.Identifier.Season, item.Identifier.Episode)))
	}

	return accept(parsed)
}

func (e *Engine) rejected(c *release.Candidate, d Decision) Decision {
	e.logger.Info().
		Str("release", c.Name).
		Str("provider", c.Provider).
		Str("reason", d.Reason).
		Str("detail", d.Detail).
		Msg("Rejected candidate")
	return d
}

func (e *Engine) requiredSets(item *media.Item) []string {
	sets := e.cfg.RequiredWords
	if item.Category != nil {
		sets = append(append([]string(nil), sets...), item.Category.RequiredWords...)
	}
	return sets
}

func (e *Engine) ignoredSets(item *media.Item) []string {
	sets := e.cfg.IgnoredWords
	if item.Category != nil {
		sets = append(append([]string(nil), sets...), item.Category.IgnoredWords...)
	}
	return sets
}

// disallowedContent rejects names carrying content markers, unless the
// marker appears in the media's own title (real titles can contain them).
func (e *Engine) disallowedContent(name string, item *media.Item) (string, bool) {
	titleWords := wordSet(parser.Simplify(item.Title()))
	for _, marker := range e.cfg.ContentMarkers {
		if ContainsWholeWord(name, marker) && !titleWords[marker] {
			return marker, true
		}
	}
	return "", false
}

func (e *Engine) confirmedByExternalID(c *release.Candidate, parsed parser.ParsedRelease, item *media.Item) bool {
	if item.ID == "" {
		return false
	}
	if parsed.ExternalID == item.ID {
		return true
	}
	return c.Description != "" && strings.Contains(c.Description, "imdb.com/title/"+item.ID)
}
