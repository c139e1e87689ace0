package search

import (
	"context"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/quality"
	"github.com/fetcharr/fetcharr/internal/release"
)

// Provider is one searchable indexer. Implementations own their transport,
// authentication and result mapping; the orchestrator only sees candidates.
type Provider interface {
	// Name identifies the provider in logs and scoring.
	Name() string
	// Search queries the provider for releases of the item at the given
	// quality tier. An empty result with nil error means nothing found.
	Search(ctx context.Context, item *media.Item, tier quality.Tier) ([]*release.Candidate, error)
}

// Outcome is the download gateway's verdict on a grab attempt.
type Outcome string

const (
	// OutcomeOK means the download was handed off successfully.
	OutcomeOK Outcome = "ok"
	// OutcomeTryNext means this release is unusable (dead link, rejected
	// by the client) and the next candidate should be attempted.
	OutcomeTryNext Outcome = "try_next"
	// OutcomeFailed means the attempt failed in a way that makes trying
	// further candidates pointless right now (client unreachable).
	OutcomeFailed Outcome = "failed"
)

// GrabResult is what the download gateway returns for an attempt.
type GrabResult struct {
	Outcome    Outcome
	DownloadID string
}

// DownloadGateway hands accepted releases to a download client.
type DownloadGateway interface {
	Download(ctx context.Context, rel *release.Release, item *media.Item) (GrabResult, error)
}

// Catalog is the orchestrator's view of the wanted-media store.
type Catalog interface {
	// ListWanted returns all items that still need content.
	ListWanted(ctx context.Context) ([]*media.Item, error)
	// Get returns a single item by ID.
	Get(ctx context.Context, id string) (*media.Item, error)
	// ReleaseDates returns the known release dates for an item. A zero
	// value means unknown.
	ReleaseDates(ctx context.Context, id string) (media.ReleaseDates, error)
	// Restatus recomputes the item's status from its tracked releases.
	Restatus(ctx context.Context, id string) error
}

// ProfileSource resolves quality profiles by ID.
type ProfileSource interface {
	Profile(ctx context.Context, id int64) (*quality.Profile, error)
}

// Notifier receives search lifecycle events. Implementations must not
// block; the orchestrator calls them inline.
type Notifier interface {
	SearchStarted(item *media.Item)
	SearchEnded(item *media.Item, found int)
	Snatched(item *media.Item, rel *release.Release)
	Exhausted(item *media.Item)
	// PassSkipped fires when a full search pass is requested while
	// another one is still running.
	PassSkipped()
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) SearchStarted(*media.Item)              {}
func (NopNotifier) SearchEnded(*media.Item, int)           {}
func (NopNotifier) Snatched(*media.Item, *release.Release) {}
func (NopNotifier) Exhausted(*media.Item)                  {}
func (NopNotifier) PassSkipped()                           {}
