package search

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fetcharr/fetcharr/internal/matcher"
	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/quality"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/scoring"
	"github.com/fetcharr/fetcharr/internal/testutil"
)

type fakeProvider struct {
	name       string
	candidates []*release.Candidate
	err        error
	block      chan struct{} // when set, Search waits on it
	calls      atomic.Int64
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Search(_ context.Context, _ *media.Item, tier quality.Tier) ([]*release.Candidate, error) {
	p.calls.Add(1)
	if p.block != nil {
		<-p.block
	}
	if p.err != nil {
		return nil, p.err
	}
	var out []*release.Candidate
	for _, c := range p.candidates {
		copied := *c
		out = append(out, &copied)
	}
	return out, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	outcome   Outcome
	downloads []string
}

func (g *fakeGateway) Download(_ context.Context, rel *release.Release, _ *media.Item) (GrabResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.downloads = append(g.downloads, rel.Name)
	outcome := g.outcome
	if outcome == "" {
		outcome = OutcomeOK
	}
	return GrabResult{Outcome: outcome, DownloadID: "dl-" + rel.Fingerprint}, nil
}

type captureNotifier struct {
	mu      sync.Mutex
	skipped int
}

func (n *captureNotifier) SearchStarted(*media.Item)              {}
func (n *captureNotifier) SearchEnded(*media.Item, int)           {}
func (n *captureNotifier) Snatched(*media.Item, *release.Release) {}
func (n *captureNotifier) Exhausted(*media.Item)                  {}

func (n *captureNotifier) PassSkipped() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.skipped++
}

func (n *captureNotifier) skippedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.skipped
}

type fakeCatalog struct {
	mu        sync.Mutex
	items     map[string]*media.Item
	dates     map[string]media.ReleaseDates
	restatued []string
}

func (c *fakeCatalog) ListWanted(_ context.Context) ([]*media.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*media.Item
	for _, item := range c.items {
		if item.Status == media.StatusActive {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *fakeCatalog) Get(_ context.Context, id string) (*media.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[id], nil
}

func (c *fakeCatalog) ReleaseDates(_ context.Context, id string) (media.ReleaseDates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dates[id], nil
}

func (c *fakeCatalog) Restatus(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restatued = append(c.restatued, id)
	return nil
}

type fakeProfiles struct {
	profile *quality.Profile
}

func (f *fakeProfiles) Profile(_ context.Context, _ int64) (*quality.Profile, error) {
	return f.profile, nil
}

type orchFixture struct {
	tdb       *testutil.TestDB
	store     *release.Store
	lifecycle *release.Lifecycle
	catalog   *fakeCatalog
	gateway   *fakeGateway
	item      *media.Item
}

func newOrchestrator(t *testing.T, providers []Provider, cfg Config) (*Orchestrator, *orchFixture) {
	t.Helper()

	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	// The fake catalog owns the media items; the release table's foreign
	// key still needs real rows behind them.
	if _, err := tdb.Conn.Exec(`INSERT INTO profiles (id, label, tiers) VALUES (1, 'test', '[]')`); err != nil {
		t.Fatalf("Failed to insert profile: %v", err)
	}
	if _, err := tdb.Conn.Exec(
		`INSERT INTO media (id, kind, titles, year, profile_id) VALUES ('tt0100001', 'movie', '["Some Movie"]', 2010, 1)`); err != nil {
		t.Fatalf("Failed to insert media: %v", err)
	}

	item := &media.Item{
		ID:        "tt0100001",
		Kind:      media.KindMovie,
		Titles:    []string{"Some Movie"},
		Year:      2010,
		Status:    media.StatusActive,
		ProfileID: 1,
	}

	store := release.NewStore(tdb.Conn, tdb.Logger)
	lifecycle := release.NewLifecycle(store, tdb.Logger)
	catalog := &fakeCatalog{
		items: map[string]*media.Item{item.ID: item},
		dates: map[string]media.ReleaseDates{},
	}
	gateway := &fakeGateway{}
	profiles := &fakeProfiles{profile: &quality.Profile{
		ID:    1,
		Label: "test",
		Tiers: []quality.Tier{{Quality: "720p", Finish: true}},
	}}

	engine := matcher.NewEngine(matcher.Config{}, quality.NewMatcher(tdb.Logger), tdb.Logger)
	scorer := scoring.NewDefaultScorer(tdb.Logger)
	walker := NewProfileWalker(true, tdb.Logger)

	orch := NewOrchestrator(cfg, providers, engine, scorer, walker,
		lifecycle, gateway, catalog, profiles, nil, tdb.Logger)

	return orch, &orchFixture{
		tdb:       tdb,
		store:     store,
		lifecycle: lifecycle,
		catalog:   catalog,
		gateway:   gateway,
		item:      item,
	}
}

func candidate720p(name, url string) *release.Candidate {
	return &release.Candidate{
		Name:     name,
		URL:      url,
		Provider: "fake",
		Protocol: release.ProtocolUsenet,
		SizeMB:   4500,
		AgeDays:  10,
	}
}

func TestSingleSnatchesBestCandidate(t *testing.T) {
	provider := &fakeProvider{
		name: "fake",
		candidates: []*release.Candidate{
			candidate720p("Some.Movie.2010.720p.HDTV.x264", "https://i/plain"),
			candidate720p("Some.Movie.2010.720p.BluRay.x264", "https://i/bluray"),
		},
	}
	orch, f := newOrchestrator(t, []Provider{provider}, Config{})
	ctx := context.Background()

	if err := orch.Single(ctx, f.item, false); err != nil {
		t.Fatalf("Single failed: %v", err)
	}

	// The bluray-tagged release outscores the plain one and gets grabbed.
	if len(f.gateway.downloads) != 1 {
		t.Fatalf("downloads = %v, want exactly one", f.gateway.downloads)
	}
	if f.gateway.downloads[0] != "Some.Movie.2010.720p.BluRay.x264" {
		t.Errorf("grabbed %q, want the bluray release", f.gateway.downloads[0])
	}

	snatched, err := f.store.ListByStatus(ctx, release.StatusSnatched)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(snatched) != 1 {
		t.Fatalf("got %d snatched releases, want 1", len(snatched))
	}
	if snatched[0].DownloadID == "" {
		t.Error("download id not recorded")
	}

	// The finishing tier was satisfied, so the item's status gets
	// recomputed.
	if len(f.catalog.restatued) != 1 {
		t.Errorf("restatued = %v, want one entry", f.catalog.restatued)
	}
}

func TestSingleRecordsLosingCandidates(t *testing.T) {
	provider := &fakeProvider{
		name: "fake",
		candidates: []*release.Candidate{
			candidate720p("Some.Movie.2010.720p.HDTV.x264", "https://i/plain"),
			candidate720p("Some.Movie.2010.720p.BluRay.x264", "https://i/bluray"),
		},
	}
	orch, f := newOrchestrator(t, []Provider{provider}, Config{})
	ctx := context.Background()

	if err := orch.Single(ctx, f.item, false); err != nil {
		t.Fatalf("Single failed: %v", err)
	}

	all, err := f.store.ListByMedia(ctx, f.item.ID)
	if err != nil {
		t.Fatalf("ListByMedia failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d tracked releases, want 2", len(all))
	}
	available := 0
	for _, rel := range all {
		if rel.Status == release.StatusAvailable {
			available++
		}
	}
	if available != 1 {
		t.Errorf("got %d available, want the losing candidate kept", available)
	}
}

func TestSingleRejectsWrongTitle(t *testing.T) {
	provider := &fakeProvider{
		name: "fake",
		candidates: []*release.Candidate{
			candidate720p("Other.Movie.2010.720p.BluRay.x264", "https://i/other"),
		},
	}
	orch, f := newOrchestrator(t, []Provider{provider}, Config{})
	ctx := context.Background()

	if err := orch.Single(ctx, f.item, false); err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	if len(f.gateway.downloads) != 0 {
		t.Errorf("downloads = %v, want none", f.gateway.downloads)
	}
	all, err := f.store.ListByMedia(ctx, f.item.ID)
	if err != nil {
		t.Fatalf("ListByMedia failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("rejected candidate was recorded: %v", all)
	}
}

func TestSingleDeduplicatesAcrossProviders(t *testing.T) {
	shared := candidate720p("Some.Movie.2010.720p.BluRay.x264", "https://i/same")
	a := &fakeProvider{name: "a", candidates: []*release.Candidate{shared}}
	b := &fakeProvider{name: "b", candidates: []*release.Candidate{shared}}

	orch, f := newOrchestrator(t, []Provider{a, b}, Config{})
	ctx := context.Background()

	if err := orch.Single(ctx, f.item, false); err != nil {
		t.Fatalf("Single failed: %v", err)
	}

	all, err := f.store.ListByMedia(ctx, f.item.ID)
	if err != nil {
		t.Fatalf("ListByMedia failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d tracked releases, want 1 after dedupe", len(all))
	}
}

func TestSingleTryNextOutcomeMovesOn(t *testing.T) {
	provider := &fakeProvider{
		name: "fake",
		candidates: []*release.Candidate{
			candidate720p("Some.Movie.2010.720p.HDTV.x264", "https://i/plain"),
			candidate720p("Some.Movie.2010.720p.BluRay.x264", "https://i/bluray"),
		},
	}
	orch, f := newOrchestrator(t, []Provider{provider}, Config{})
	f.gateway.outcome = OutcomeTryNext
	ctx := context.Background()

	if err := orch.Single(ctx, f.item, false); err != nil {
		t.Fatalf("Single failed: %v", err)
	}

	// Every candidate gets an attempt, none gets snatched.
	if len(f.gateway.downloads) != 2 {
		t.Errorf("downloads = %v, want both attempted", f.gateway.downloads)
	}
	snatched, err := f.store.ListByStatus(ctx, release.StatusSnatched)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(snatched) != 0 {
		t.Errorf("got %d snatched, want 0", len(snatched))
	}
}

func TestSingleFailedOutcomeAborts(t *testing.T) {
	provider := &fakeProvider{
		name: "fake",
		candidates: []*release.Candidate{
			candidate720p("Some.Movie.2010.720p.HDTV.x264", "https://i/plain"),
			candidate720p("Some.Movie.2010.720p.BluRay.x264", "https://i/bluray"),
		},
	}
	orch, f := newOrchestrator(t, []Provider{provider}, Config{})
	f.gateway.outcome = OutcomeFailed
	ctx := context.Background()

	if err := orch.Single(ctx, f.item, false); err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	if len(f.gateway.downloads) != 1 {
		t.Errorf("downloads = %v, want grab loop aborted after first failure", f.gateway.downloads)
	}
}

func TestSingleProviderFailureDoesNotFailPass(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: context.DeadlineExceeded}
	working := &fakeProvider{
		name: "working",
		candidates: []*release.Candidate{
			candidate720p("Some.Movie.2010.720p.BluRay.x264", "https://i/bluray"),
		},
	}
	orch, f := newOrchestrator(t, []Provider{broken, working}, Config{Retries: 1})
	ctx := context.Background()

	if err := orch.Single(ctx, f.item, false); err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	if len(f.gateway.downloads) != 1 {
		t.Errorf("downloads = %v, want one from the working provider", f.gateway.downloads)
	}
}

func TestConcurrentSinglesSnatchAtMostOnce(t *testing.T) {
	provider := &fakeProvider{
		name: "fake",
		candidates: []*release.Candidate{
			candidate720p("Some.Movie.2010.720p.BluRay.x264", "https://i/bluray"),
		},
	}
	orch, f := newOrchestrator(t, []Provider{provider}, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := orch.Single(ctx, f.item, false); err != nil {
				t.Errorf("Single failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// Overlapping searches short-circuit on the in-progress guard;
	// sequential ones find the release already snatched. Either way the
	// item is grabbed at most once.
	snatched, err := f.store.ListByStatus(ctx, release.StatusSnatched)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(snatched) > 1 {
		t.Errorf("got %d snatched releases, want at most 1", len(snatched))
	}
	if len(f.gateway.downloads) > 1 {
		t.Errorf("downloads = %v, want at most one handoff", f.gateway.downloads)
	}
}

func TestSingleWaitForDefersYoungReleases(t *testing.T) {
	young := candidate720p("Some.Movie.2010.720p.BluRay.x264", "https://i/young")
	young.AgeDays = 1
	provider := &fakeProvider{name: "fake", candidates: []*release.Candidate{young}}

	orch, f := newOrchestrator(t, []Provider{provider}, Config{})
	ctx := context.Background()

	// Raise the tier's wait-for above the candidate's age.
	profiles := &fakeProfiles{profile: &quality.Profile{
		ID:    1,
		Label: "test",
		Tiers: []quality.Tier{{Quality: "720p", Finish: true, WaitFor: 3 * 24 * time.Hour}},
	}}
	orch.profiles = profiles

	if err := orch.Single(ctx, f.item, false); err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	if len(f.gateway.downloads) != 0 {
		t.Errorf("young release grabbed despite wait-for: %v", f.gateway.downloads)
	}

	// A manual search bypasses the deferral.
	if err := orch.Single(ctx, f.item, true); err != nil {
		t.Fatalf("manual Single failed: %v", err)
	}
	if len(f.gateway.downloads) != 1 {
		t.Errorf("downloads = %v, want manual grab", f.gateway.downloads)
	}
}

func TestSearchAllRunsEveryWantedItem(t *testing.T) {
	provider := &fakeProvider{name: "fake"}
	orch, f := newOrchestrator(t, []Provider{provider}, Config{})
	ctx := context.Background()

	f.catalog.items["tt0100002"] = &media.Item{
		ID: "tt0100002", Kind: media.KindMovie, Titles: []string{"Other Movie"},
		Year: 2011, Status: media.StatusActive, ProfileID: 1,
	}
	f.catalog.items["tt0100003"] = &media.Item{
		ID: "tt0100003", Kind: media.KindMovie, Titles: []string{"Done Movie"},
		Year: 2012, Status: media.StatusDone, ProfileID: 1,
	}

	if err := orch.SearchAll(ctx); err != nil {
		t.Fatalf("SearchAll failed: %v", err)
	}

	// Two active items, one tier each.
	if got := provider.calls.Load(); got != 2 {
		t.Errorf("provider queried %d times, want 2", got)
	}
}

// waitForFullPass polls until a running full pass shows up in Progress.
func waitForFullPass(t *testing.T, orch *Orchestrator, total int) Progress {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p := orch.Progress()
		if p.FullPass && p.Total == total {
			return p
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("full pass never became visible in progress")
	return Progress{}
}

func TestSearchAllTracksProgress(t *testing.T) {
	gate := make(chan struct{})
	provider := &fakeProvider{name: "fake", block: gate}
	orch, f := newOrchestrator(t, []Provider{provider}, Config{})
	f.catalog.items["tt0100002"] = &media.Item{
		ID: "tt0100002", Kind: media.KindMovie, Titles: []string{"Other Movie"},
		Year: 2011, Status: media.StatusActive, ProfileID: 1,
	}
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := orch.SearchAll(ctx); err != nil {
			t.Errorf("SearchAll failed: %v", err)
		}
	}()

	p := waitForFullPass(t, orch, 2)
	if p.Remaining < 1 || p.Remaining > 2 {
		t.Errorf("remaining = %d, want 1 or 2 while the pass runs", p.Remaining)
	}

	close(gate)
	<-done

	if p := orch.Progress(); p.FullPass || p.Total != 0 || p.Remaining != 0 {
		t.Errorf("progress after pass = %+v, want counters cleared", p)
	}
}

func TestSearchAllSkipsConcurrentPass(t *testing.T) {
	gate := make(chan struct{})
	provider := &fakeProvider{name: "fake", block: gate}
	orch, _ := newOrchestrator(t, []Provider{provider}, Config{})
	notifier := &captureNotifier{}
	orch.notifier = notifier
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orch.SearchAll(ctx)
	}()
	waitForFullPass(t, orch, 1)

	// The overlapping request is a no-op, announced through the notifier.
	if err := orch.SearchAll(ctx); err != nil {
		t.Fatalf("concurrent SearchAll returned %v, want nil", err)
	}
	if got := notifier.skippedCount(); got != 1 {
		t.Errorf("skipped notices = %d, want 1", got)
	}

	close(gate)
	<-done
}
