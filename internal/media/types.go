// Package media holds the wanted-item value types the search pipeline
// operates on. Items are owned by the status store; within a search pass
// they are treated as immutable values.
package media

import (
	"time"
)

// Kind is the type of a wanted media item.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindShow    Kind = "show"
	KindSeason  Kind = "season"
	KindEpisode Kind = "episode"
)

// Status is the lifecycle status of a media item.
type Status string

const (
	StatusActive  Status = "active"
	StatusDone    Status = "done"
	StatusDeleted Status = "deleted"
)

// Identifier is the season/episode requirement of a wanted item. Zero
// values are wildcards; movies carry an empty identifier.
type Identifier struct {
	Season  int `json:"season,omitempty"`
	Episode int `json:"episode,omitempty"`
}

// Empty reports whether the identifier carries no requirement.
func (id Identifier) Empty() bool {
	return id.Season == 0 && id.Episode == 0
}

// Category carries per-media word-list overrides.
type Category struct {
	Label          string   `json:"label"`
	RequiredWords  []string `json:"requiredWords,omitempty"`
	IgnoredWords   []string `json:"ignoredWords,omitempty"`
	PreferredWords []string `json:"preferredWords,omitempty"`
}

// ReleaseDates are the known theatrical/disc dates for a movie, used to
// decide whether a quality could be released yet. Zero times mean unknown.
type ReleaseDates struct {
	Theater time.Time `json:"theater,omitempty"`
	Disc    time.Time `json:"disc,omitempty"`
}

// Item is one wanted movie or show-level entity.
type Item struct {
	ID         string     `json:"id"` // stable external identifier (imdb id)
	Kind       Kind       `json:"kind"`
	Titles     []string   `json:"titles"`
	Year       int        `json:"year,omitempty"`
	Status     Status     `json:"status"`
	ProfileID  int64      `json:"profileId"`
	Category   *Category  `json:"category,omitempty"`
	Identifier Identifier `json:"identifier,omitempty"`
	LastEdit   time.Time  `json:"lastEdit,omitempty"`
}

// Title returns the item's default (first) title.
func (i *Item) Title() string {
	if len(i.Titles) == 0 {
		return ""
	}
	return i.Titles[0]
}
