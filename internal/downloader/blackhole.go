// Package downloader hands accepted releases to a download client. The
// blackhole client drops fetched payloads into a watch directory that an
// external client consumes.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/search"
)

// Config holds the blackhole directories.
type Config struct {
	// WatchDir is where payloads are dropped for the external client.
	WatchDir string `mapstructure:"watch_dir"`
	// DoneDir is scanned to detect completed downloads.
	DoneDir string `mapstructure:"done_dir"`
}

// Blackhole writes release payloads into a watch directory and infers
// download status from the filesystem.
type Blackhole struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

var (
	_ search.DownloadGateway = (*Blackhole)(nil)
	_ release.StatusPoller   = (*Blackhole)(nil)
)

// New creates a blackhole downloader.
func New(cfg Config, logger zerolog.Logger) (*Blackhole, error) {
	if err := os.MkdirAll(cfg.WatchDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create watch directory: %w", err)
	}
	if cfg.DoneDir != "" {
		if err := os.MkdirAll(cfg.DoneDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create done directory: %w", err)
		}
	}
	return &Blackhole{
		cfg: cfg,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger.With().Str("component", "downloader").Logger(),
	}, nil
}

// Download fetches the release payload and writes it to the watch
// directory. The written filename carries the media's external ID so the
// name survives the round trip through the external client.
func (b *Blackhole) Download(ctx context.Context, rel *release.Release, item *media.Item) (search.GrabResult, error) {
	name := downloadName(rel, item)

	if rel.Protocol == release.ProtocolTorrentMagnet {
		path := filepath.Join(b.cfg.WatchDir, name+".magnet")
		if err := os.WriteFile(path, []byte(rel.URL), 0o644); err != nil {
			return search.GrabResult{Outcome: search.OutcomeFailed}, fmt.Errorf("failed to write magnet file: %w", err)
		}
		b.logger.Info().Str("file", path).Msg("Wrote magnet link")
		return search.GrabResult{Outcome: search.OutcomeOK, DownloadID: name}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rel.URL, nil)
	if err != nil {
		return search.GrabResult{Outcome: search.OutcomeTryNext}, fmt.Errorf("invalid download url: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return search.GrabResult{Outcome: search.OutcomeTryNext}, fmt.Errorf("failed to fetch payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// A dead link is this release's problem, not the client's.
		return search.GrabResult{Outcome: search.OutcomeTryNext},
			fmt.Errorf("payload fetch returned status %d", resp.StatusCode)
	}

	ext := ".torrent"
	if rel.Protocol == release.ProtocolUsenet {
		ext = ".nzb"
	}
	path := filepath.Join(b.cfg.WatchDir, name+ext)

	out, err := os.Create(path)
	if err != nil {
		return search.GrabResult{Outcome: search.OutcomeFailed}, fmt.Errorf("failed to create payload file: %w", err)
	}
	if _, err := io.Copy(out, io.LimitReader(resp.Body, 64<<20)); err != nil {
		out.Close()
		os.Remove(path)
		return search.GrabResult{Outcome: search.OutcomeFailed}, fmt.Errorf("failed to write payload file: %w", err)
	}
	if err := out.Close(); err != nil {
		return search.GrabResult{Outcome: search.OutcomeFailed}, fmt.Errorf("failed to close payload file: %w", err)
	}

	b.logger.Info().Str("file", path).Msg("Wrote payload to watch directory")
	return search.GrabResult{Outcome: search.OutcomeOK, DownloadID: name}, nil
}

// Status infers a download's state from the filesystem: a matching entry
// in the done directory means completed, payload still in the watch
// directory means busy, neither means the client lost it.
func (b *Blackhole) Status(ctx context.Context, downloadID string) (release.DownloadState, error) {
	if b.cfg.DoneDir != "" {
		done, err := hasEntry(b.cfg.DoneDir, downloadID)
		if err != nil {
			return "", err
		}
		if done {
			return release.StateCompleted, nil
		}
	}
	pending, err := hasEntry(b.cfg.WatchDir, downloadID)
	if err != nil {
		return "", err
	}
	if pending {
		return release.StateBusy, nil
	}
	if b.cfg.DoneDir == "" {
		// No done directory to confirm against; assume the client
		// picked it up and finished.
		return release.StateCompleted, nil
	}
	return release.StateMissing, nil
}

func hasEntry(dir, prefix string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) {
			return true, nil
		}
	}
	return false, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_ ()]`)

// downloadName builds the payload filename: the release name with a
// trailing external-ID tag the parser recognizes on the way back in.
func downloadName(rel *release.Release, item *media.Item) string {
	name := unsafeChars.ReplaceAllString(rel.Name, "")
	name = strings.TrimSpace(name)
	if name == "" {
		name = rel.Fingerprint
	}
	if item.ID != "" {
		name = fmt.Sprintf("%s.cp(%s)", name, item.ID)
	}
	return name
}
