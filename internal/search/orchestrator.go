// Package search orchestrates search passes: it walks quality profiles,
// fans out to providers, filters and scores the results, and grabs the
// best acceptable release.
package search

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fetcharr/fetcharr/internal/matcher"
	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/quality"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/scoring"
)

// Config holds the orchestrator's tunables.
type Config struct {
	// Concurrency bounds how many providers are queried at once.
	Concurrency int
	// Retries is how often a failing provider query is retried.
	Retries uint
	// PreferredWords boost matching candidates during scoring.
	PreferredWords []string
	// IgnoredWords penalize candidates that partially contain them.
	IgnoredWords []string
}

// Orchestrator runs search passes over wanted media. A pass for one item
// walks its profile tiers from best to worst, queries all providers for
// each tier, and grabs the highest scoring acceptable release.
type Orchestrator struct {
	cfg       Config
	providers []Provider
	engine    *matcher.Engine
	scorer    *scoring.Scorer
	walker    *ProfileWalker
	lifecycle *release.Lifecycle
	gateway   DownloadGateway
	catalog   Catalog
	profiles  ProfileSource
	notifier  Notifier
	grabs     *GrabLock
	logger    zerolog.Logger

	mu            sync.Mutex
	inProgress    map[string]time.Time
	fullPass      bool
	passTotal     int
	passRemaining int
}

// Progress is a snapshot of search activity: the full-pass counters and
// the per-media searches currently running.
type Progress struct {
	FullPass  bool
	Total     int
	Remaining int
	Active    map[string]time.Time
}

// NewOrchestrator creates a search orchestrator.
func NewOrchestrator(
	cfg Config,
	providers []Provider,
	engine *matcher.Engine,
	scorer *scoring.Scorer,
	walker *ProfileWalker,
	lifecycle *release.Lifecycle,
	gateway DownloadGateway,
	catalog Catalog,
	profiles ProfileSource,
	notifier Notifier,
	logger zerolog.Logger,
) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.Retries < 1 {
		cfg.Retries = 2
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Orchestrator{
		cfg:        cfg,
		providers:  providers,
		engine:     engine,
		scorer:     scorer,
		walker:     walker,
		lifecycle:  lifecycle,
		gateway:    gateway,
		catalog:    catalog,
		profiles:   profiles,
		notifier:   notifier,
		grabs:      NewGrabLock(),
		logger:     logger.With().Str("component", "search").Logger(),
		inProgress: make(map[string]time.Time),
	}
}

// Progress reports the state of the running full pass, if any, and the
// media IDs currently being searched with their start times.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	active := make(map[string]time.Time, len(o.inProgress))
	for id, started := range o.inProgress {
		active[id] = started
	}
	return Progress{
		FullPass:  o.fullPass,
		Total:     o.passTotal,
		Remaining: o.passRemaining,
		Active:    active,
	}
}

// SearchAll runs a search pass over every wanted item, in random order so
// no item monopolizes the front of the queue across passes. At most one
// full pass runs at a time; a pass requested while one is running is
// skipped and announced through the notifier.
func (o *Orchestrator) SearchAll(ctx context.Context) error {
	o.mu.Lock()
	if o.fullPass {
		o.mu.Unlock()
		o.logger.Info().Msg("Search pass already in progress, skipping")
		o.notifier.PassSkipped()
		return nil
	}
	o.fullPass = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.fullPass = false
		o.passTotal = 0
		o.passRemaining = 0
		o.mu.Unlock()
	}()

	items, err := o.catalog.ListWanted(ctx)
	if err != nil {
		return fmt.Errorf("failed to list wanted media: %w", err)
	}
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	o.mu.Lock()
	o.passTotal = len(items)
	o.passRemaining = len(items)
	o.mu.Unlock()

	o.logger.Info().Int("items", len(items)).Msg("Starting search pass")
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.Single(ctx, item, false); err != nil {
			o.logger.Error().Err(err).Str("media", item.ID).Msg("Search failed")
		}
		o.mu.Lock()
		o.passRemaining--
		o.mu.Unlock()
	}
	return nil
}

// SearchMedia searches for a single media item by ID. It satisfies
// release.Requeuer.
func (o *Orchestrator) SearchMedia(ctx context.Context, mediaID string) error {
	item, err := o.catalog.Get(ctx, mediaID)
	if err != nil {
		return fmt.Errorf("failed to load media %s: %w", mediaID, err)
	}
	return o.Single(ctx, item, false)
}

// Single runs one search pass for one item. Manual searches bypass the
// wait-for deferral on young releases but follow every other rule. A
// search already in progress for the same item makes this a no-op.
func (o *Orchestrator) Single(ctx context.Context, item *media.Item, manual bool) error {
	o.mu.Lock()
	if _, busy := o.inProgress[item.ID]; busy {
		o.mu.Unlock()
		o.logger.Info().Str("media", item.ID).Msg("Search already in progress, skipping")
		return nil
	}
	o.inProgress[item.ID] = time.Now()
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.inProgress, item.ID)
		o.mu.Unlock()
	}()

	passID := uuid.NewString()
	logger := o.logger.With().Str("pass", passID).Str("media", item.ID).Logger()

	profile, err := o.profiles.Profile(ctx, item.ProfileID)
	if err != nil {
		return fmt.Errorf("failed to load profile %d: %w", item.ProfileID, err)
	}
	tracked, err := o.lifecycle.Store().ListByMedia(ctx, item.ID)
	if err != nil {
		return err
	}
	dates, err := o.catalog.ReleaseDates(ctx, item.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load release dates, assuming unknown")
		dates = media.ReleaseDates{}
	}

	walk := o.walker.TiersToSearch(item, profile, tracked, dates)
	if walk.Restatus {
		logger.Info().Msg("Best quality already satisfied, recomputing status")
		return o.catalog.Restatus(ctx, item.ID)
	}
	if len(walk.Tiers) == 0 {
		logger.Debug().Msg("No tiers to search")
		return nil
	}

	o.notifier.SearchStarted(item)
	logger.Info().Str("title", item.Title()).Int("tiers", len(walk.Tiers)).Msg("Searching")

	seen := make(map[string]bool)
	totalFound := 0
	snatched := false

	for _, tier := range walk.Tiers {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates := o.queryProviders(ctx, logger, item, tier)
		accepted := o.filter(candidates, item, tier)
		totalFound += len(accepted)
		if len(accepted) == 0 {
			continue
		}

		preferred, ignored := o.scoringWords(item)
		o.scorer.ScoreAll(accepted, item, preferred, ignored)
		o.scorer.SortCandidates(accepted)

		recorded := make([]*release.Release, 0, len(accepted))
		for i := range accepted {
			rel, err := o.lifecycle.RecordFound(ctx, &accepted[i], item.ID, tier.Quality)
			if err != nil {
				logger.Error().Err(err).Str("release", accepted[i].Name).Msg("Failed to record release")
				continue
			}
			seen[rel.Fingerprint] = true
			recorded = append(recorded, rel)
		}

		if o.grab(ctx, logger, item, tier, recorded, manual) {
			snatched = true
			if tier.Finish {
				if err := o.catalog.Restatus(ctx, item.ID); err != nil {
					logger.Warn().Err(err).Msg("Failed to recompute media status")
				}
			}
			break
		}
	}

	if _, err := o.lifecycle.Store().DeleteStaleAvailable(ctx, item.ID, keys(seen)); err != nil {
		logger.Warn().Err(err).Msg("Failed to clean stale available releases")
	}

	o.notifier.SearchEnded(item, totalFound)
	if !snatched && totalFound > 0 {
		o.notifier.Exhausted(item)
	}
	logger.Info().Int("found", totalFound).Bool("snatched", snatched).Msg("Search finished")
	return nil
}

// queryProviders fans out one tier's query to all providers with bounded
// concurrency. Provider failures are retried, then logged and dropped;
// a broken indexer never fails the pass.
func (o *Orchestrator) queryProviders(ctx context.Context, logger zerolog.Logger, item *media.Item, tier quality.Tier) []release.Candidate {
	var mu sync.Mutex
	var candidates []release.Candidate

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for _, provider := range o.providers {
		provider := provider
		g.Go(func() error {
			var results []*release.Candidate
			err := retry.Do(
				func() error {
					var err error
					results, err = provider.Search(ctx, item, tier)
					return err
				},
				retry.Attempts(o.cfg.Retries),
				retry.Context(ctx),
				retry.LastErrorOnly(true),
			)
			if err != nil {
				logger.Warn().Err(err).
					Str("provider", provider.Name()).
					Str("quality", tier.Quality).
					Msg("Provider search failed")
				return nil
			}

			mu.Lock()
			for _, c := range results {
				candidates = append(candidates, *c)
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	logger.Debug().
		Str("quality", tier.Quality).
		Int("candidates", len(candidates)).
		Msg("Providers queried")
	return candidates
}

// filter runs every candidate through the match engine and keeps the
// accepted ones, deduplicated by fingerprint.
func (o *Orchestrator) filter(candidates []release.Candidate, item *media.Item, tier quality.Tier) []release.Candidate {
	var accepted []release.Candidate
	byFingerprint := make(map[string]bool, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		fp := c.Fingerprint()
		if byFingerprint[fp] {
			continue
		}
		decision := o.engine.Accept(c, item, tier)
		if !decision.Accepted {
			continue
		}
		// The parsed audio tags join the fingerprint and quality in the
		// release's persisted identity.
		c.Audio = strings.Join(decision.Parsed.AudioTags, " ")
		byFingerprint[fp] = true
		accepted = append(accepted, *c)
	}
	return accepted
}

// grab attempts the recorded releases in score order until one is handed
// off to the download client. The per-media grab lock keeps a concurrent
// manual search from snatching the same item twice.
func (o *Orchestrator) grab(ctx context.Context, logger zerolog.Logger, item *media.Item, tier quality.Tier, recorded []*release.Release, manual bool) bool {
	if !o.grabs.TryAcquire(item.ID) {
		logger.Info().Msg("Grab already in progress for this item")
		return false
	}
	defer o.grabs.Release(item.ID)

	for _, rel := range recorded {
		if err := ctx.Err(); err != nil {
			return false
		}
		if rel.Status != release.StatusAvailable {
			continue
		}
		if rel.Score <= 0 {
			logger.Debug().Str("release", rel.Name).Int("score", rel.Score).Msg("Score too low, skipping")
			continue
		}
		if !manual && tier.WaitFor > 0 {
			age := time.Duration(rel.AgeDays) * 24 * time.Hour
			if age < tier.WaitFor {
				logger.Info().
					Str("release", rel.Name).
					Dur("waitFor", tier.WaitFor).
					Msg("Release too young, waiting")
				continue
			}
		}

		result, err := o.gateway.Download(ctx, rel, item)
		if err != nil {
			logger.Warn().Err(err).Str("release", rel.Name).Msg("Download attempt errored")
			continue
		}
		switch result.Outcome {
		case OutcomeOK:
			ok, err := o.lifecycle.MarkSnatched(ctx, rel.ID, result.DownloadID)
			if err != nil {
				logger.Error().Err(err).Str("release", rel.Name).Msg("Failed to mark snatched")
				return false
			}
			if !ok {
				// Lost the race to another grabber; the item is handled.
				return true
			}
			o.notifier.Snatched(item, rel)
			logger.Info().Str("release", rel.Name).Int("score", rel.Score).Msg("Snatched")
			return true
		case OutcomeTryNext:
			logger.Info().Str("release", rel.Name).Msg("Release unusable, trying next")
			continue
		case OutcomeFailed:
			logger.Warn().Str("release", rel.Name).Msg("Download client unavailable, aborting grabs")
			return false
		}
	}
	return false
}

func (o *Orchestrator) scoringWords(item *media.Item) (preferred, ignored []string) {
	preferred = append(preferred, o.cfg.PreferredWords...)
	ignored = append(ignored, o.cfg.IgnoredWords...)
	if item.Category != nil {
		preferred = append(preferred, item.Category.PreferredWords...)
		ignored = append(ignored, item.Category.IgnoredWords...)
	}
	return preferred, ignored
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
