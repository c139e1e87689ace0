package quality

import (
	"encoding/json"
	"time"
)

// Tier is one entry of a profile: a quality plus the policies attached to it.
type Tier struct {
	Quality string        `json:"quality"`
	Finish  bool          `json:"finish"`            // stop searching once this tier is downloaded
	WaitFor time.Duration `json:"waitFor,omitempty"` // delay before accepting young releases
	ThreeD  bool          `json:"is3d,omitempty"`
}

// Definition resolves the tier's quality definition.
func (t Tier) Definition() (*Definition, bool) {
	return ByIdentifier(t.Quality)
}

// Order returns the tier's rank in the quality ladder, or a worse-than-worst
// rank for unknown identifiers.
func (t Tier) Order() int {
	if d, ok := ByIdentifier(t.Quality); ok {
		return d.Order
	}
	return len(Definitions)
}

// Profile is an ordered list of acceptable tiers, most preferred first.
// Profiles are user configuration; the search core treats them read-only.
type Profile struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Tiers     []Tier    `json:"tiers"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// BestTier returns the most preferred tier, if any.
func (p *Profile) BestTier() (Tier, bool) {
	if len(p.Tiers) == 0 {
		return Tier{}, false
	}
	return p.Tiers[0], true
}

// Contains reports whether the profile lists the given quality.
func (p *Profile) Contains(identifier string) bool {
	for _, t := range p.Tiers {
		if t.Quality == identifier {
			return true
		}
	}
	return false
}

// DefaultProfile accepts any HD quality, best first, finishing on the first
// tier that downloads.
func DefaultProfile() Profile {
	tiers := make([]Tier, 0, len(Definitions))
	for _, d := range Definitions {
		if d.HD {
			tiers = append(tiers, Tier{Quality: d.Identifier, Finish: true})
		}
	}
	return Profile{Label: "Any HD", Tiers: tiers}
}

// SerializeTiers converts tiers to JSON for database storage.
func SerializeTiers(tiers []Tier) (string, error) {
	data, err := json.Marshal(tiers)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeserializeTiers parses JSON tiers from database storage.
func DeserializeTiers(data string) ([]Tier, error) {
	var tiers []Tier
	if err := json.Unmarshal([]byte(data), &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}
