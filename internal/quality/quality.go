// Package quality defines the quality ladder and quality detection for
// release names.
package quality

// Definition describes one quality level. Order is the rank within the
// ladder; lower is better (0 = most preferred).
type Definition struct {
	Identifier   string   `json:"identifier"`
	Label        string   `json:"label"`
	Order        int      `json:"order"`
	SizeMin      int64    `json:"sizeMin"` // MB
	SizeMax      int64    `json:"sizeMax"` // MB
	Width        int      `json:"width,omitempty"` // video width when known (1920, 1280)
	HD           bool     `json:"hd,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	Allow        []string `json:"allow,omitempty"` // other qualities this one tolerates in a name
	Tags         []string `json:"tags,omitempty"`  // extra tokens that identify this quality
}

// Definitions is the built-in quality ladder, best first.
var Definitions = []Definition{
	{Identifier: "bd50", Label: "BR-Disk", Order: 0, SizeMin: 15000, SizeMax: 60000, Width: 1920, HD: true, Alternatives: []string{"bd25"}, Allow: []string{"1080p"}, Tags: []string{"bdmv", "certificate"}},
	{Identifier: "1080p", Label: "1080p", Order: 1, SizeMin: 5000, SizeMax: 20000, Width: 1920, HD: true},
	{Identifier: "720p", Label: "720p", Order: 2, SizeMin: 3500, SizeMax: 10000, Width: 1280, HD: true},
	{Identifier: "brrip", Label: "BR-Rip", Order: 3, SizeMin: 700, SizeMax: 7000, HD: true, Alternatives: []string{"bdrip"}, Allow: []string{"720p"}},
	{Identifier: "dvdr", Label: "DVD-R", Order: 4, SizeMin: 3000, SizeMax: 10000, Tags: []string{"pal", "ntsc", "video_ts", "audio_ts"}},
	{Identifier: "dvdrip", Label: "DVD-Rip", Order: 5, SizeMin: 600, SizeMax: 2400},
	{Identifier: "scr", Label: "Screener", Order: 6, SizeMin: 600, SizeMax: 1600, Alternatives: []string{"dvdscr", "ppvrip"}, Allow: []string{"dvdr"}},
	{Identifier: "r5", Label: "R5", Order: 7, SizeMin: 600, SizeMax: 1000, Allow: []string{"dvdr"}},
	{Identifier: "tc", Label: "TeleCine", Order: 8, SizeMin: 600, SizeMax: 1000, Alternatives: []string{"telecine"}},
	{Identifier: "ts", Label: "TeleSync", Order: 9, SizeMin: 600, SizeMax: 1000, Alternatives: []string{"telesync"}},
	{Identifier: "cam", Label: "Cam", Order: 10, SizeMin: 600, SizeMax: 1000},
}

// PreReleases are the qualities that circulate before a proper home release.
var PreReleases = []string{"cam", "ts", "tc", "r5", "scr"}

var byIdentifier = func() map[string]*Definition {
	m := make(map[string]*Definition, len(Definitions))
	for i := range Definitions {
		m[Definitions[i].Identifier] = &Definitions[i]
	}
	return m
}()

// ByIdentifier returns the definition for a quality identifier.
func ByIdentifier(identifier string) (*Definition, bool) {
	d, ok := byIdentifier[identifier]
	return d, ok
}

// IsPreRelease reports whether the identifier belongs to the pre-release set.
func IsPreRelease(identifier string) bool {
	for _, pre := range PreReleases {
		if pre == identifier {
			return true
		}
	}
	return false
}

// Guess identifies a quality from a word list and an optional size in MB.
// Identifier and alternative tokens are checked first; tags next; size
// bounds are only used as a loose tiebreak when nothing else matched.
func Guess(words []string, sizeMB int64) *Definition {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}

	for i := range Definitions {
		d := &Definitions[i]
		if set[d.Identifier] {
			return d
		}
		for _, alt := range d.Alternatives {
			if set[alt] {
				return d
			}
		}
	}
	for i := range Definitions {
		d := &Definitions[i]
		for _, tag := range d.Tags {
			if set[tag] {
				return d
			}
		}
	}

	if sizeMB > 0 {
		for i := range Definitions {
			d := &Definitions[i]
			if sizeMB >= d.SizeMin && sizeMB <= d.SizeMax {
				return d
			}
		}
	}
	return nil
}
