package search

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/quality"
	"github.com/fetcharr/fetcharr/internal/release"
)

const (
	preReleaseLead = 7 * 24 * time.Hour
	theaterSettle  = 12 * 7 * 24 * time.Hour
	discLead       = 4 * 7 * 24 * time.Hour
)

// ProfileWalker decides which tiers of a profile still need searching for a
// media item, given the releases already tracked for it.
type ProfileWalker struct {
	alwaysSearch bool
	now          func() time.Time
	logger       zerolog.Logger
}

// NewProfileWalker creates a profile walker. With alwaysSearch set, the
// release-date gate is bypassed and every unsatisfied tier is searched.
func NewProfileWalker(alwaysSearch bool, logger zerolog.Logger) *ProfileWalker {
	return &ProfileWalker{
		alwaysSearch: alwaysSearch,
		now:          time.Now,
		logger:       logger.With().Str("component", "profile-walker").Logger(),
	}
}

// Walk is the outcome of walking a profile against the tracked releases.
type Walk struct {
	// Tiers still worth searching, most preferred first.
	Tiers []quality.Tier
	// Restatus is set when the most preferred tier is already satisfied,
	// meaning the item's status should be recomputed (likely to done).
	Restatus bool
}

// TiersToSearch walks the profile from the most preferred tier down. A tier
// is satisfied when a tracked release of equal or better quality has made it
// past the available stage; satisfied tiers and everything below them are
// skipped, since a worse grab can never improve on what is already held.
func (w *ProfileWalker) TiersToSearch(item *media.Item, profile *quality.Profile, tracked []*release.Release, dates media.ReleaseDates) Walk {
	var walk Walk

	for i, tier := range profile.Tiers {
		if w.tierSatisfied(tier, tracked) {
			if i == 0 {
				walk.Restatus = true
			}
			break
		}
		if !w.alwaysSearch && !w.tierReleased(tier, dates, item.Year) {
			w.logger.Debug().
				Str("media", item.ID).
				Str("quality", tier.Quality).
				Msg("Quality not expected to be released yet, skipping")
			continue
		}
		walk.Tiers = append(walk.Tiers, tier)
	}

	return walk
}

// tierSatisfied reports whether a release of this tier's quality or better
// is already held. Available, ignored and failed releases never satisfy a
// tier; they are candidates or dead ends, not downloads.
func (w *ProfileWalker) tierSatisfied(tier quality.Tier, tracked []*release.Release) bool {
	for _, rel := range tracked {
		switch rel.Status {
		case release.StatusAvailable, release.StatusIgnored, release.StatusFailed, release.StatusMissing:
			continue
		}
		def, ok := quality.ByIdentifier(rel.Quality)
		if !ok {
			continue
		}
		if def.Order <= tier.Order() {
			return true
		}
	}
	return false
}

func (w *ProfileWalker) tierReleased(tier quality.Tier, dates media.ReleaseDates, year int) bool {
	return CouldBeReleased(quality.IsPreRelease(tier.Quality), dates, year, w.now())
}

// CouldBeReleased reports whether content of the given quality class can
// plausibly exist yet. Pre-release qualities appear up to a week before the
// theatrical date; retail qualities twelve weeks after theaters, four weeks
// before the disc date, or any time after it. With no known dates, items
// from past years are assumed released.
func CouldBeReleased(preRelease bool, dates media.ReleaseDates, year int, now time.Time) bool {
	if dates.Theater.IsZero() && dates.Disc.IsZero() {
		return year == 0 || year < now.Year()
	}

	if preRelease {
		return !dates.Theater.IsZero() && dates.Theater.Add(-preReleaseLead).Before(now)
	}

	if !dates.Theater.IsZero() && dates.Theater.Add(theaterSettle).Before(now) {
		return true
	}
	if !dates.Disc.IsZero() && dates.Disc.Add(-discLead).Before(now) {
		return true
	}
	return false
}
