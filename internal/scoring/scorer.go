package scoring

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/parser"
	"github.com/fetcharr/fetcharr/internal/quality"
	"github.com/fetcharr/fetcharr/internal/release"
)

// Scorer calculates desirability scores for candidates. Higher is better;
// scores can go negative, and candidates scoring <= 0 are not attempted.
type Scorer struct {
	cfg      Config
	halfPart []*regexp.Regexp
	nuked    []*regexp.Regexp
	logger   zerolog.Logger
}

// NewScorer creates a scorer with the given weight tables.
func NewScorer(cfg Config, logger zerolog.Logger) *Scorer {
	return &Scorer{
		cfg:      cfg,
		halfPart: compileAll(cfg.HalfMultipartPatterns),
		nuked:    compileAll(cfg.NukedPatterns),
		logger:   logger.With().Str("component", "scoring").Logger(),
	}
}

// NewDefaultScorer creates a scorer with the built-in weight tables.
func NewDefaultScorer(logger zerolog.Logger) *Scorer {
	return NewScorer(DefaultConfig(), logger)
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			out = append(out, re)
		}
	}
	return out
}

// Score computes the additive desirability score for one candidate.
func (s *Scorer) Score(c *release.Candidate, item *media.Item, preferredWords, ignoredWords []string) int {
	name := strings.ToLower(c.Name)
	simplified := parser.Simplify(c.Name)
	words := strings.Fields(simplified)

	score := 0
	score += s.nameScore(name)
	score += s.yearScore(name, item.Year)
	score += s.preferredScore(words, preferredWords)
	score += s.partialIgnoredScore(simplified, ignoredWords)
	score += s.extraWordsScore(words, item)
	score += s.sizeScore(c)
	score += s.torrentScore(c)
	score += s.providerScore(c.Provider)
	score += s.duplicateTitleScore(simplified, item)
	score += s.patternScore(c.Name, s.halfPart, s.cfg.HalfMultipartScore)
	score += s.patternScore(c.Name, s.nuked, s.cfg.NukedScore)

	s.logger.Debug().
		Str("release", c.Name).
		Int("score", score).
		Msg("Scored candidate")

	return score
}

// ScoreAll scores every candidate in place.
func (s *Scorer) ScoreAll(candidates []release.Candidate, item *media.Item, preferredWords, ignoredWords []string) {
	for i := range candidates {
		candidates[i].Score = s.Score(&candidates[i], item, preferredWords, ignoredWords)
	}
}

// SortCandidates orders candidates by score descending. The sort is stable
// so equal-score candidates keep their indexer-return order; a configured
// protocol preference breaks exact ties.
func (s *Scorer) SortCandidates(candidates []release.Candidate) {
	preferTorrent := s.cfg.PreferredProtocol == "torrent"
	preferUsenet := s.cfg.PreferredProtocol == "usenet"

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if preferTorrent && a.Protocol.IsTorrent() != b.Protocol.IsTorrent() {
			return a.Protocol.IsTorrent()
		}
		if preferUsenet && (a.Protocol == release.ProtocolUsenet) != (b.Protocol == release.ProtocolUsenet) {
			return a.Protocol == release.ProtocolUsenet
		}
		return false
	})
}

func (s *Scorer) nameScore(name string) int {
	score := 0
	for _, ww := range s.cfg.NameScores {
		if strings.Contains(name, ww.Word) {
			score += ww.Weight
		}
	}
	return score
}

func (s *Scorer) yearScore(name string, year int) int {
	if year > 0 && strings.Contains(name, strconv.Itoa(year)) {
		return s.cfg.YearScore
	}
	return 0
}

func (s *Scorer) preferredScore(words []string, preferred []string) int {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	score := 0
	for _, p := range preferred {
		if set[strings.ToLower(strings.TrimSpace(p))] {
			score += s.cfg.PreferredWordScore
		}
	}
	return score
}

// partialIgnoredScore penalizes ignored words even as substrings, matching
// the stricter substring rule the ignore filter uses.
func (s *Scorer) partialIgnoredScore(simplified string, ignored []string) int {
	score := 0
	for _, w := range ignored {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(simplified, w) {
			score += s.cfg.PartialIgnoredScore
		}
	}
	return score
}

// extraWordsScore rewards names carrying a useful amount of extra tagging
// beyond the matched title, without rewarding garbage-heavy names.
func (s *Scorer) extraWordsScore(words []string, item *media.Item) int {
	titleWords := len(strings.Fields(parser.Simplify(item.Title())))
	extra := len(words) - titleWords
	if extra >= s.cfg.ExtraWordsMin && extra <= s.cfg.ExtraWordsMax {
		return s.cfg.ExtraWordsScore
	}
	return 0
}

// sizeScore rewards sizes near the middle of the tier's bounds. Out-of-band
// sizes are rejected upstream; this only nudges ranking within the band.
func (s *Scorer) sizeScore(c *release.Candidate) int {
	if c.SizeMB <= 0 {
		return 0
	}
	parsed := parser.Parse(c.Name)
	def := quality.Guess(parsed.Words, c.SizeMB)
	if def == nil || def.SizeMax <= def.SizeMin {
		return 0
	}
	mid := (def.SizeMin + def.SizeMax) / 2
	span := (def.SizeMax - def.SizeMin) / 2
	dist := c.SizeMB - mid
	if dist < 0 {
		dist = -dist
	}
	if dist*2 <= span {
		return s.cfg.SizeSweetSpotScore
	}
	return 0
}

func (s *Scorer) torrentScore(c *release.Candidate) int {
	if c.Seeders == nil {
		return 0
	}
	score := *c.Seeders / 5
	if c.Leechers != nil {
		score += *c.Leechers / 10
	}
	return score
}

func (s *Scorer) providerScore(provider string) int {
	return s.cfg.ProviderScores[provider]
}

// duplicateTitleScore penalizes names containing the media title more than
// once, a common trait of malformed release names.
func (s *Scorer) duplicateTitleScore(simplified string, item *media.Item) int {
	title := parser.Simplify(item.Title())
	if title == "" {
		return 0
	}
	if strings.Count(simplified, title) > 1 {
		return s.cfg.DuplicateTitleScore
	}
	return 0
}

func (s *Scorer) patternScore(name string, patterns []*regexp.Regexp, weight int) int {
	for _, re := range patterns {
		if re.MatchString(name) {
			return weight
		}
	}
	return 0
}
