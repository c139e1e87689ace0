// Package scoring computes desirability scores for accepted candidates and
// orders them for download attempts.
package scoring

// WeightedWord is one (substring, weight) entry of the name score table.
type WeightedWord struct {
	Word   string `json:"word"`
	Weight int    `json:"weight"`
}

// Config holds the tunable weight tables. The half-multipart and nuke
// tables have no principled provenance; they are configuration, not
// constants.
type Config struct {
	NameScores []WeightedWord `json:"nameScores"`

	PreferredWordScore  int `json:"preferredWordScore"`  // per whole-word hit; outweighs every name score
	YearScore           int `json:"yearScore"`           // media year appears literally in the name
	PartialIgnoredScore int `json:"partialIgnoredScore"` // per ignored word found as substring

	ExtraWordsMin   int `json:"extraWordsMin"` // band of useful extra words beyond the title
	ExtraWordsMax   int `json:"extraWordsMax"`
	ExtraWordsScore int `json:"extraWordsScore"`

	SizeSweetSpotScore int `json:"sizeSweetSpotScore"` // size near the middle of the tier's bounds

	DuplicateTitleScore int `json:"duplicateTitleScore"` // title substring occurs more than once

	HalfMultipartScore    int      `json:"halfMultipartScore"`
	HalfMultipartPatterns []string `json:"halfMultipartPatterns"`

	NukedScore    int      `json:"nukedScore"`
	NukedPatterns []string `json:"nukedPatterns"`

	ProviderScores map[string]int `json:"providerScores"`

	// PreferredProtocol breaks score ties: "usenet", "torrent", or "" for
	// no preference.
	PreferredProtocol string `json:"preferredProtocol"`
}

// DefaultConfig returns the built-in weight tables.
func DefaultConfig() Config {
	return Config{
		NameScores: []WeightedWord{
			{Word: "proper", Weight: 2},
			{Word: "repack", Weight: 2},
			{Word: "unrated", Weight: 1},
			{Word: "720p", Weight: 10},
			{Word: "1080p", Weight: 10},
			{Word: "bluray", Weight: 10},
			{Word: "x264", Weight: 1},
			{Word: "dts", Weight: 2},
			{Word: "ac3", Weight: 1},
			{Word: "german", Weight: -10},
			{Word: "french", Weight: -10},
			{Word: "dutch", Weight: -10},
			{Word: "swesub", Weight: -10},
			{Word: "korsub", Weight: -10},
			{Word: "subbed", Weight: -5},
			{Word: "cam", Weight: -15},
			{Word: "ts", Weight: -10},
		},
		PreferredWordScore:  100,
		YearScore:           5,
		PartialIgnoredScore: -5,
		ExtraWordsMin:       2,
		ExtraWordsMax:       6,
		ExtraWordsScore:     4,
		SizeSweetSpotScore:  5,
		DuplicateTitleScore: -6,
		HalfMultipartScore:  -30,
		HalfMultipartPatterns: []string{
			`(?i)\b(cd|dvd|part|dis[ck])[ _.\-]?1\b`,
			`(?i)[ _.\-]1of[0-9]\b`,
		},
		NukedScore: -30,
		NukedPatterns: []string{
			`(?i)\bnuked\b`,
			`(?i)\bnfo[ _.\-]?fix\b.*\bnuke\b`,
		},
		ProviderScores: map[string]int{},
	}
}
