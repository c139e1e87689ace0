// Package notification reports search lifecycle events. The log notifier
// is the only built-in sink; outward channels plug in behind the same
// interface.
package notification

import (
	"github.com/rs/zerolog"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/search"
)

// LogNotifier writes search events to the application log.
type LogNotifier struct {
	logger zerolog.Logger
}

var _ search.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

func (n *LogNotifier) SearchStarted(item *media.Item) {
	n.logger.Info().Str("media", item.ID).Str("title", item.Title()).Msg("Search started")
}

func (n *LogNotifier) SearchEnded(item *media.Item, found int) {
	n.logger.Info().Str("media", item.ID).Int("found", found).Msg("Search ended")
}

func (n *LogNotifier) Snatched(item *media.Item, rel *release.Release) {
	n.logger.Info().
		Str("media", item.ID).
		Str("title", item.Title()).
		Str("release", rel.Name).
		Str("quality", rel.Quality).
		Int("score", rel.Score).
		Msg("Release snatched")
}

func (n *LogNotifier) Exhausted(item *media.Item) {
	n.logger.Info().Str("media", item.ID).Str("title", item.Title()).Msg("No release snatched")
}

func (n *LogNotifier) PassSkipped() {
	n.logger.Warn().Msg("Search pass already in progress, request skipped")
}
