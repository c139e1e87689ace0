package release

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Requeuer kicks off a fresh search for a single media item. The search
// orchestrator satisfies this.
type Requeuer interface {
	SearchMedia(ctx context.Context, mediaID string) error
}

// Lifecycle drives status transitions on tracked releases. All transitions
// are guarded on the current status so concurrent actors cannot double-act
// on the same row.
type Lifecycle struct {
	store   *Store
	requeue Requeuer
	logger  zerolog.Logger
}

// NewLifecycle creates a new release lifecycle service. The requeuer may be
// set later via SetRequeuer to break the construction cycle with the
// search orchestrator.
func NewLifecycle(store *Store, logger zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		store:  store,
		logger: logger.With().Str("component", "release-lifecycle").Logger(),
	}
}

// SetRequeuer wires the search entry point used by TryNextRelease.
func (l *Lifecycle) SetRequeuer(r Requeuer) {
	l.requeue = r
}

// Store exposes the underlying store for read access.
func (l *Lifecycle) Store() *Store {
	return l.store
}

// RecordFound persists a scored candidate as an available release. Calling
// it again for the same candidate refreshes metadata without resetting the
// release's status, so recording is idempotent across passes.
func (l *Lifecycle) RecordFound(ctx context.Context, c *Candidate, mediaID, qualityID string) (*Release, error) {
	return l.store.Upsert(ctx, FromCandidate(c, mediaID, qualityID))
}

// MarkSnatched moves an available release to snatched and records the
// download client's identifier. It reports false when the release was
// already grabbed or removed by another actor; that is not an error.
func (l *Lifecycle) MarkSnatched(ctx context.Context, id int64, downloadID string) (bool, error) {
	ok, err := l.store.TransitionStatus(ctx, id, StatusAvailable, StatusSnatched)
	if err != nil {
		return false, err
	}
	if !ok {
		l.logger.Info().Int64("release", id).Msg("Release no longer available, skipping snatch")
		return false, nil
	}
	if downloadID != "" {
		if err := l.store.SetDownloadID(ctx, id, downloadID); err != nil {
			return true, err
		}
	}
	l.logger.Info().Int64("release", id).Str("downloadId", downloadID).Msg("Release snatched")
	return true, nil
}

// MarkSeeding moves a snatched torrent release to seeding.
func (l *Lifecycle) MarkSeeding(ctx context.Context, id int64) (bool, error) {
	return l.store.TransitionStatus(ctx, id, StatusSnatched, StatusSeeding)
}

// MarkDownloaded moves a snatched or seeding release to downloaded.
func (l *Lifecycle) MarkDownloaded(ctx context.Context, id int64) (bool, error) {
	ok, err := l.store.TransitionStatus(ctx, id, StatusSnatched, StatusDownloaded)
	if err != nil || ok {
		return ok, err
	}
	return l.store.TransitionStatus(ctx, id, StatusSeeding, StatusDownloaded)
}

// MarkFailed moves a snatched or seeding release to failed.
func (l *Lifecycle) MarkFailed(ctx context.Context, id int64) (bool, error) {
	ok, err := l.store.TransitionStatus(ctx, id, StatusSnatched, StatusFailed)
	if err != nil || ok {
		return ok, err
	}
	return l.store.TransitionStatus(ctx, id, StatusSeeding, StatusFailed)
}

// MarkMissing moves a snatched release to missing when the download client
// no longer knows about it.
func (l *Lifecycle) MarkMissing(ctx context.Context, id int64) (bool, error) {
	return l.store.TransitionStatus(ctx, id, StatusSnatched, StatusMissing)
}

// Ignore marks a release as ignored regardless of its current status,
// except done releases which stay done.
func (l *Lifecycle) Ignore(ctx context.Context, id int64) error {
	rel, err := l.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rel.Status == StatusDone {
		return nil
	}
	ok, err := l.store.TransitionStatus(ctx, id, rel.Status, StatusIgnored)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("release %d changed status while ignoring", id)
	}
	return nil
}

// TryNextRelease abandons every tried release of a media item and starts a
// fresh search so the next best candidate gets its turn.
func (l *Lifecycle) TryNextRelease(ctx context.Context, mediaID string) error {
	n, err := l.store.IgnoreTried(ctx, mediaID)
	if err != nil {
		return err
	}
	l.logger.Info().Str("media", mediaID).Int64("ignored", n).Msg("Trying next release")
	if l.requeue == nil {
		return fmt.Errorf("no search requeuer configured")
	}
	return l.requeue.SearchMedia(ctx, mediaID)
}

// CleanStale prunes old bookkeeping rows. Available releases older than
// availableFor are deleted; snatched or downloaded releases untouched for
// abandonedFor are demoted to ignored.
func (l *Lifecycle) CleanStale(ctx context.Context, availableFor, abandonedFor time.Duration) error {
	now := time.Now()
	return l.store.CleanStale(ctx, now.Add(-availableFor), now.Add(-abandonedFor))
}
