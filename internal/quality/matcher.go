package quality

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fetcharr/fetcharr/internal/parser"
)

// Matcher decides whether a parsed release matches a target quality and
// whether it secretly carries a different quality than claimed.
type Matcher struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewMatcher creates a quality matcher.
func NewMatcher(logger zerolog.Logger) *Matcher {
	return &Matcher{
		logger: logger.With().Str("component", "quality").Logger(),
		now:    time.Now,
	}
}

// Matches reports whether the release's tags satisfy the target quality.
// All required tags for the target must be present (set containment); an
// alternative token alone also identifies the quality. An explicit video
// width from container metadata is authoritative over name-derived tags.
func (m *Matcher) Matches(parsed parser.ParsedRelease, target string, metadataWidth int) bool {
	def, ok := ByIdentifier(target)
	if !ok {
		return false
	}

	if metadataWidth > 0 && def.Width > 0 {
		return metadataWidth == def.Width
	}

	words := wordSet(parsed.Words)

	if words[def.Identifier] {
		return true
	}
	if len(def.Tags) > 0 && containsAll(words, def.Tags) {
		return true
	}
	for _, alt := range def.Alternatives {
		if words[alt] {
			return true
		}
	}
	return false
}

// ContainsOther reports whether the release name carries quality tags that
// belong to qualities other than the target or its allowed alternates.
// Used to reject releases that claim one quality but encode another.
func (m *Matcher) ContainsOther(parsed parser.ParsedRelease, sizeMB int64, mediaYear int, target string) bool {
	def, ok := ByIdentifier(target)
	if !ok {
		return false
	}

	words := wordSet(parsed.Words)

	found := make(map[string]bool)
	for i := range Definitions {
		d := &Definitions[i]
		if words[d.Identifier] {
			found[d.Identifier] = true
			continue
		}
		for _, alt := range d.Alternatives {
			if words[alt] {
				found[d.Identifier] = true
				break
			}
		}
		for _, tag := range d.Tags {
			if words[tag] {
				found[d.Identifier] = true
				break
			}
		}
	}

	// Older movies often carry no quality tag at all; guess from size.
	if len(found) == 0 {
		if assumed := m.AssumeFromSize(parsed, sizeMB, mediaYear); assumed != "" {
			return assumed != def.Identifier
		}
	}

	delete(found, def.Identifier)
	for _, allowed := range def.Allow {
		delete(found, allowed)
	}

	return len(found) > 0
}

// AssumeFromSize guesses a quality for a release whose name carries no
// quality token at all. Only media released more than a few years back
// qualifies; recent tagless names are too ambiguous to guess. Returns the
// empty string when no guess applies.
func (m *Matcher) AssumeFromSize(parsed parser.ParsedRelease, sizeMB int64, mediaYear int) string {
	if mediaYear <= 0 || mediaYear >= m.now().Year()-3 || parsed.Year != 0 {
		return ""
	}

	words := wordSet(parsed.Words)
	for i := range Definitions {
		d := &Definitions[i]
		if words[d.Identifier] {
			return ""
		}
		for _, alt := range d.Alternatives {
			if words[alt] {
				return ""
			}
		}
		for _, tag := range d.Tags {
			if words[tag] {
				return ""
			}
		}
	}

	assumed := "dvdrip"
	if sizeMB > 3000 {
		assumed = "dvdr"
	}
	m.logger.Debug().
		Str("release", parsed.Original).
		Int64("sizeMB", sizeMB).
		Str("assumed", assumed).
		Msg("Quality missing from name, assuming from size")
	return assumed
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func containsAll(words map[string]bool, tags []string) bool {
	for _, tag := range tags {
		if !words[tag] {
			return false
		}
	}
	return true
}
