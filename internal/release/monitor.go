package release

import (
	"context"

	"github.com/rs/zerolog"
)

// DownloadState is the download client's view of an in-flight grab.
type DownloadState string

const (
	StateBusy      DownloadState = "busy"
	StateSeeding   DownloadState = "seeding"
	StateCompleted DownloadState = "completed"
	StateFailed    DownloadState = "failed"
	StateMissing   DownloadState = "missing"
)

// StatusPoller reports the state of a download by the client's identifier.
type StatusPoller interface {
	Status(ctx context.Context, downloadID string) (DownloadState, error)
}

// Monitor periodically reconciles snatched releases against the download
// client. Failed grabs optionally trigger a fresh search for the next
// candidate.
type Monitor struct {
	lifecycle    *Lifecycle
	poller       StatusPoller
	nextOnFailed bool
	logger       zerolog.Logger
}

// NewMonitor creates a new snatched-release monitor.
func NewMonitor(lifecycle *Lifecycle, poller StatusPoller, nextOnFailed bool, logger zerolog.Logger) *Monitor {
	return &Monitor{
		lifecycle:    lifecycle,
		poller:       poller,
		nextOnFailed: nextOnFailed,
		logger:       logger.With().Str("component", "snatch-monitor").Logger(),
	}
}

// CheckSnatched polls the download client for every snatched and seeding
// release and applies the resulting transitions. Poll errors on individual
// releases are logged and skipped so one flaky download does not stall the
// rest of the sweep.
func (m *Monitor) CheckSnatched(ctx context.Context) error {
	releases, err := m.lifecycle.Store().ListByStatus(ctx, StatusSnatched, StatusSeeding)
	if err != nil {
		return err
	}

	for _, rel := range releases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rel.DownloadID == "" {
			continue
		}

		state, err := m.poller.Status(ctx, rel.DownloadID)
		if err != nil {
			m.logger.Warn().Err(err).
				Int64("release", rel.ID).
				Str("downloadId", rel.DownloadID).
				Msg("Failed to poll download status")
			continue
		}

		if err := m.apply(ctx, rel, state); err != nil {
			m.logger.Error().Err(err).
				Int64("release", rel.ID).
				Str("state", string(state)).
				Msg("Failed to apply download state")
		}
	}

	return nil
}

func (m *Monitor) apply(ctx context.Context, rel *Release, state DownloadState) error {
	switch state {
	case StateBusy:
		return nil

	case StateSeeding:
		if rel.Status == StatusSnatched && rel.Protocol.IsTorrent() {
			_, err := m.lifecycle.MarkSeeding(ctx, rel.ID)
			return err
		}
		return nil

	case StateCompleted:
		ok, err := m.lifecycle.MarkDownloaded(ctx, rel.ID)
		if err != nil {
			return err
		}
		if ok {
			m.logger.Info().Int64("release", rel.ID).Str("name", rel.Name).Msg("Download completed")
		}
		return nil

	case StateFailed:
		if _, err := m.lifecycle.MarkFailed(ctx, rel.ID); err != nil {
			return err
		}
		m.logger.Info().Int64("release", rel.ID).Str("name", rel.Name).Msg("Download failed")
		if m.nextOnFailed {
			return m.lifecycle.TryNextRelease(ctx, rel.MediaID)
		}
		return nil

	case StateMissing:
		if _, err := m.lifecycle.MarkMissing(ctx, rel.ID); err != nil {
			return err
		}
		m.logger.Info().Int64("release", rel.ID).Str("name", rel.Name).Msg("Download missing from client")
		return nil
	}

	m.logger.Warn().Int64("release", rel.ID).Str("state", string(state)).Msg("Unknown download state")
	return nil
}
