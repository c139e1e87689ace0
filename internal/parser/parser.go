// Package parser extracts structured tokens from raw release names.
// Parsing is a pure function over an immutable input: it never fails and
// never keeps state between calls.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Identifier holds season/episode numbering extracted from a release name.
// Zero values mean the field was absent. A non-zero EpisodeFrom/EpisodeTo
// pair marks a multi-episode range.
type Identifier struct {
	Season      int `json:"season,omitempty"`
	Episode     int `json:"episode,omitempty"`
	EpisodeFrom int `json:"episodeFrom,omitempty"`
	EpisodeTo   int `json:"episodeTo,omitempty"`
	Absolute    int `json:"absolute,omitempty"`
}

// IsRange reports whether the identifier spans multiple episodes.
func (id *Identifier) IsRange() bool {
	return id != nil && id.EpisodeFrom > 0 && id.EpisodeTo > id.EpisodeFrom
}

// ParsedRelease is the output of Parse: release-name tokens grouped by
// category. Unclassified tokens are dropped, not kept as title noise.
type ParsedRelease struct {
	Original   string      `json:"original"`
	Simplified string      `json:"simplified"` // lowercased, separators collapsed
	Title      string      `json:"title"`
	TitleWords []string    `json:"titleWords"`
	Year       int         `json:"year,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	VideoTags  []string    `json:"videoTags,omitempty"`
	AudioTags  []string    `json:"audioTags,omitempty"`
	SourceTags []string    `json:"sourceTags,omitempty"`
	Flags      []string    `json:"flags,omitempty"`
	Group      string      `json:"group,omitempty"`
	ExternalID string      `json:"externalId,omitempty"` // embedded canonical id, from a cp(...) marker
	Words      []string    `json:"words"`                // all simplified words, in order
}

var (
	separatorPattern = regexp.MustCompile(`[\._\-\s]+`)
	nonWordPattern   = regexp.MustCompile(`[^a-z0-9 ]+`)
	cpTagPattern     = regexp.MustCompile(`(?i)[\s\.]?cp\((tt[0-9]+)\)`)
	groupPattern     = regexp.MustCompile(`-([A-Za-z0-9]+)$`)
	extensionPattern = regexp.MustCompile(`(?i)\.(mkv|avi|mp4|m4v|wmv|mov|nzb|torrent)$`)
	yearPattern      = regexp.MustCompile(`\b(19[0-9]{2}|20[0-9]{2})\b`)
	doubleSpace      = regexp.MustCompile(`\s{2,}`)

	// Multi-part markers, applied in order until the name stops changing.
	multipartPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)[ _.\-]+cd[ _.\-]*([0-9a-d]+)`),
		regexp.MustCompile(`(?i)[ _.\-]+dvd[ _.\-]*([0-9a-d]+)`),
		regexp.MustCompile(`(?i)[ _.\-]+part[ _.\-]*([0-9a-d]+)`),
		regexp.MustCompile(`(?i)[ _.\-]+dis[ck][ _.\-]*([0-9a-d]+)`),
		regexp.MustCompile(`(?i)[ _.\-]+([0-9]*[abcd]+)$`),
	}

	// Season/episode numbering. Ranges are captured so downstream matching
	// can reject them explicitly.
	episodeRangePattern  = regexp.MustCompile(`(?i)\bs?([0-9]{1,2})[xe]([0-9]{1,3})(?:[\-e]|\se)e?([0-9]{1,3})\b`)
	seasonEpisodePattern = regexp.MustCompile(`(?i)\bs([0-9]{1,2})[\s\.]?e([0-9]{1,3})\b`)
	crossPattern         = regexp.MustCompile(`(?i)\b([0-9]{1,2})x([0-9]{1,3})\b`)
	seasonOnlyPattern    = regexp.MustCompile(`(?i)\bs(?:eason[\s\.]?)?([0-9]{1,2})\b`)
	absolutePattern      = regexp.MustCompile(`(?i)\be([0-9]{1,3})\b`)
)

// Keyword tables for classifying non-title tokens.
var (
	videoTagWords = map[string]bool{
		"480p": true, "480i": true, "576p": true, "576i": true,
		"720p": true, "720i": true, "1080p": true, "1080i": true,
		"2160p": true, "4k": true, "uhd": true, "hrhd": true, "hrhdtv": true,
	}
	sourceTagWords = map[string]bool{
		"bluray": true, "bdrip": true, "brrip": true, "bd50": true, "bd25": true,
		"bdmv": true, "hddvd": true, "dvd": true, "dvdr": true, "dvdrip": true,
		"dvdscr": true, "screener": true, "scr": true, "ppvrip": true,
		"hdtv": true, "hdtvrip": true, "hdrip": true, "pdtv": true, "dsr": true,
		"webdl": true, "webrip": true, "web": true,
		"cam": true, "ts": true, "telesync": true, "tc": true, "telecine": true,
		"r3": true, "r5": true, "pal": true, "ntsc": true,
	}
	codecTagWords = map[string]bool{
		"x264": true, "h264": true, "x265": true, "h265": true, "hevc": true,
		"xvid": true, "divx": true, "divx5": true, "av1": true, "xvidvd": true,
	}
	audioTagWords = map[string]bool{
		"dts": true, "ac3": true, "ac3d": true, "aac": true, "mp3": true,
		"flac": true, "truehd": true, "atmos": true, "ddp": true, "eac3": true,
	}
	flagWords = map[string]bool{
		"proper": true, "repack": true, "rerip": true, "unrated": true,
		"limited": true, "internal": true, "retail": true, "extended": true,
		"ws": true, "fs": true, "se": true, "dc": true, "custom": true,
		"readnfo": true, "nfofix": true,
	}
	languageWords = map[string]bool{
		"dutch": true, "german": true, "french": true, "swedish": true,
		"spanish": true, "italian": true, "nordic": true, "multisubs": true,
		"multi": true,
	}
)

// Parse extracts structured tokens from a raw release name, including
// season/episode numbering. It never fails; malformed input yields a
// partial structure.
func Parse(name string) ParsedRelease {
	return parse(name, true)
}

// ParseMovie parses a release name without season/episode extraction, so
// numeric tokens like 2x04 inside a movie title stay title words.
func ParseMovie(name string) ParsedRelease {
	return parse(name, false)
}

func parse(name string, withNumbering bool) ParsedRelease {
	parsed := ParsedRelease{Original: name}
	if strings.TrimSpace(name) == "" {
		return parsed
	}

	work := name
	if m := cpTagPattern.FindStringSubmatch(work); m != nil {
		parsed.ExternalID = m[1]
		work = cpTagPattern.ReplaceAllString(work, "")
	}
	work = extensionPattern.ReplaceAllString(work, "")

	// The group suffix is captured and removed before separators are
	// collapsed; left in place it would block the trailing stop-word scan.
	// A known tag word behind the final dash is a tag, not a group.
	if m := groupPattern.FindStringSubmatch(work); m != nil && !isTagWord(strings.ToLower(m[1])) {
		parsed.Group = m[1]
		work = work[:len(work)-len(m[0])]
	}
	work = StripMultipart(work)

	simplified := Simplify(work)
	parsed.Simplified = simplified
	parsed.Words = strings.Fields(simplified)

	// Season/episode numbering is extracted before the title split and its
	// tokens removed so they don't leak into the title.
	cleaned := simplified
	if withNumbering {
		parsed.Identifier, cleaned = parseIdentifier(simplified)
	}

	titlePart, year := splitTitleYear(cleaned)
	parsed.Year = year

	titleWords := classifyTail(titlePart, &parsed)
	titleWords = dedupeConsecutive(titleWords)
	parsed.TitleWords = titleWords
	parsed.Title = strings.Join(titleWords, " ")

	// Classify everything after the title for tag categories.
	rest := strings.TrimPrefix(cleaned, titlePart)
	classifyRest(rest, &parsed)

	return parsed
}

// Simplify lowercases a name and collapses separators and non-word
// characters into single spaces.
func Simplify(name string) string {
	s := strings.ToLower(name)
	s = separatorPattern.ReplaceAllString(s, " ")
	s = nonWordPattern.ReplaceAllString(s, " ")
	s = doubleSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripMultipart removes cdN/partN/diskN style markers. The pattern list is
// applied repeatedly until a fixed point, so the transform is idempotent.
func StripMultipart(name string) string {
	for {
		stripped := name
		for _, re := range multipartPatterns {
			if out := re.ReplaceAllString(stripped, ""); out != stripped {
				stripped = out
				break
			}
		}
		if stripped == name {
			return name
		}
		name = stripped
	}
}

// StripExternalIDTag removes an embedded cp(ttNNN) round-trip marker.
func StripExternalIDTag(name string) string {
	return cpTagPattern.ReplaceAllString(name, "")
}

// splitTitleYear finds the first plausible year token and returns the text
// before it as the title part. Without a year the whole string is the title
// part, degrading to stop-word classification alone.
func splitTitleYear(simplified string) (string, int) {
	maxYear := time.Now().Year() + 1
	for _, loc := range yearPattern.FindAllStringIndex(simplified, -1) {
		year, err := strconv.Atoi(simplified[loc[0]:loc[1]])
		if err != nil || year < 1900 || year > maxYear {
			continue
		}
		// A year at the very start is part of the title, not a marker.
		if loc[0] == 0 {
			continue
		}
		return strings.TrimSpace(simplified[:loc[0]]), year
	}
	return simplified, 0
}

// classifyTail walks the title part and drops any trailing run of known
// stop-words, keeping only genuine title tokens.
func classifyTail(titlePart string, parsed *ParsedRelease) []string {
	words := strings.Fields(titlePart)
	end := len(words)
	for end > 0 {
		w := words[end-1]
		if !classifyWord(w, parsed) {
			break
		}
		end--
	}
	return words[:end]
}

// classifyRest classifies every known stop-word after the title into its
// tag category. Unknown words are dropped.
func classifyRest(rest string, parsed *ParsedRelease) {
	for _, w := range strings.Fields(rest) {
		classifyWord(w, parsed)
	}
}

func isTagWord(w string) bool {
	return videoTagWords[w] || codecTagWords[w] || sourceTagWords[w] ||
		audioTagWords[w] || flagWords[w] || languageWords[w]
}

// classifyWord files a word into its tag category, returning whether it was
// recognized as a stop-word.
func classifyWord(w string, parsed *ParsedRelease) bool {
	switch {
	case videoTagWords[w] || codecTagWords[w]:
		parsed.VideoTags = appendUnique(parsed.VideoTags, w)
	case sourceTagWords[w]:
		parsed.SourceTags = appendUnique(parsed.SourceTags, w)
	case audioTagWords[w]:
		parsed.AudioTags = appendUnique(parsed.AudioTags, w)
	case flagWords[w] || languageWords[w]:
		parsed.Flags = appendUnique(parsed.Flags, w)
	default:
		return false
	}
	return true
}

// parseIdentifier extracts season/episode numbering and returns the
// simplified string with the matched tokens removed, so numbering never
// pollutes the title.
func parseIdentifier(simplified string) (*Identifier, string) {
	if m := episodeRangePattern.FindStringSubmatch(simplified); m != nil {
		season, _ := strconv.Atoi(m[1])
		from, _ := strconv.Atoi(m[2])
		to, _ := strconv.Atoi(m[3])
		if to > from {
			return &Identifier{Season: season, EpisodeFrom: from, EpisodeTo: to},
				stripMatch(simplified, episodeRangePattern)
		}
	}
	if m := seasonEpisodePattern.FindStringSubmatch(simplified); m != nil {
		season, _ := strconv.Atoi(m[1])
		episode, _ := strconv.Atoi(m[2])
		return &Identifier{Season: season, Episode: episode},
			stripMatch(simplified, seasonEpisodePattern)
	}
	if m := crossPattern.FindStringSubmatch(simplified); m != nil {
		season, _ := strconv.Atoi(m[1])
		episode, _ := strconv.Atoi(m[2])
		// Avoid reading resolutions like 1920x1080 as numbering.
		if season <= 50 && episode < 100 {
			return &Identifier{Season: season, Episode: episode},
				stripMatch(simplified, crossPattern)
		}
	}
	if m := seasonOnlyPattern.FindStringSubmatch(simplified); m != nil {
		season, _ := strconv.Atoi(m[1])
		return &Identifier{Season: season}, stripMatch(simplified, seasonOnlyPattern)
	}
	if m := absolutePattern.FindStringSubmatch(simplified); m != nil {
		abs, _ := strconv.Atoi(m[1])
		return &Identifier{Absolute: abs}, stripMatch(simplified, absolutePattern)
	}
	return nil, simplified
}

func stripMatch(s string, re *regexp.Regexp) string {
	s = re.ReplaceAllString(s, " ")
	s = doubleSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// dedupeConsecutive removes immediately repeated words, which show up when
// group tags duplicate title words.
func dedupeConsecutive(words []string) []string {
	out := words[:0]
	prev := ""
	for _, w := range words {
		if w == prev {
			continue
		}
		out = append(out, w)
		prev = w
	}
	return out
}

func appendUnique(list []string, w string) []string {
	for _, have := range list {
		if have == w {
			return list
		}
	}
	return append(list, w)
}
