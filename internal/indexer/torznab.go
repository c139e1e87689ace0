// Package indexer implements search providers over the newznab/torznab
// API family.
package indexer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/quality"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/search"
)

// Config describes one newznab/torznab endpoint.
type Config struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	Protocol string `mapstructure:"protocol"` // "usenet" or "torrent"
	// Categories are the numeric newznab categories to search, comma
	// separated in the query. Empty means the server's default.
	Categories []int `mapstructure:"categories"`
}

// Torznab queries a single newznab or torznab endpoint.
type Torznab struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

var _ search.Provider = (*Torznab)(nil)

// New creates a provider for one endpoint.
func New(cfg Config, logger zerolog.Logger) *Torznab {
	return &Torznab{
		cfg: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.With().Str("component", "indexer").Str("indexer", cfg.Name).Logger(),
	}
}

// NewAll creates providers for a list of endpoint configs.
func NewAll(cfgs []Config, logger zerolog.Logger) []search.Provider {
	providers := make([]search.Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		providers = append(providers, New(cfg, logger))
	}
	return providers
}

// Name identifies the provider in logs and scoring.
func (t *Torznab) Name() string {
	return t.cfg.Name
}

// Search queries the endpoint for the item at the given quality tier.
func (t *Torznab) Search(ctx context.Context, item *media.Item, tier quality.Tier) ([]*release.Candidate, error) {
	endpoint, err := t.buildURL(item, tier)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", t.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", t.cfg.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", t.cfg.Name, err)
	}

	items, err := ParseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed from %s: %w", t.cfg.Name, err)
	}

	candidates := make([]*release.Candidate, 0, len(items))
	for _, fi := range items {
		candidates = append(candidates, t.toCandidate(fi))
	}
	t.logger.Debug().Int("results", len(candidates)).Str("media", item.ID).Msg("Search done")
	return candidates, nil
}

func (t *Torznab) buildURL(item *media.Item, tier quality.Tier) (string, error) {
	base, err := url.Parse(t.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid indexer url: %w", err)
	}

	q := url.Values{}
	q.Set("t", "search")
	if t.cfg.APIKey != "" {
		q.Set("apikey", t.cfg.APIKey)
	}
	if len(t.cfg.Categories) > 0 {
		cats := make([]string, len(t.cfg.Categories))
		for i, c := range t.cfg.Categories {
			cats[i] = strconv.Itoa(c)
		}
		q.Set("cat", strings.Join(cats, ","))
	}

	switch item.Kind {
	case media.KindMovie:
		q.Set("t", "movie")
		if strings.HasPrefix(item.ID, "tt") {
			q.Set("imdbid", strings.TrimPrefix(item.ID, "tt"))
		} else {
			q.Set("q", searchQuery(item, tier))
		}
	default:
		q.Set("t", "tvsearch")
		q.Set("q", item.Title())
		if item.Identifier.Season > 0 {
			q.Set("season", strconv.Itoa(item.Identifier.Season))
		}
		if item.Identifier.Episode > 0 {
			q.Set("ep", strconv.Itoa(item.Identifier.Episode))
		}
	}

	base.RawQuery = q.Encode()
	return base.String(), nil
}

// searchQuery builds the free-text query used when no external ID is
// available: title, year and the quality label.
func searchQuery(item *media.Item, tier quality.Tier) string {
	parts := []string{item.Title()}
	if item.Year > 0 {
		parts = append(parts, strconv.Itoa(item.Year))
	}
	if def, ok := tier.Definition(); ok {
		parts = append(parts, def.Label)
	}
	return strings.Join(parts, " ")
}

func (t *Torznab) toCandidate(fi FeedItem) *release.Candidate {
	protocol := release.ProtocolUsenet
	if t.cfg.Protocol == "torrent" || fi.Protocol.IsTorrent() {
		protocol = release.ProtocolTorrent
		if strings.HasPrefix(fi.DownloadURL, "magnet:") {
			protocol = release.ProtocolTorrentMagnet
		}
	}

	c := &release.Candidate{
		Name:        fi.Title,
		URL:         fi.DownloadURL,
		Provider:    t.cfg.Name,
		Protocol:    protocol,
		SizeMB:      fi.Size / (1024 * 1024),
		Description: fi.Description,
	}
	if !fi.PublishDate.IsZero() {
		c.AgeDays = int(time.Since(fi.PublishDate).Hours() / 24)
	}
	if protocol.IsTorrent() {
		seeders := fi.Seeders
		leechers := fi.Leechers
		c.Seeders = &seeders
		c.Leechers = &leechers
	}
	return c
}
