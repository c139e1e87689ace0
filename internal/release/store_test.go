package release

import (
	"context"
	"testing"
	"time"

	"github.com/fetcharr/fetcharr/internal/testutil"
)

func seedMedia(t *testing.T, tdb *testutil.TestDB, mediaID string) {
	t.Helper()

	res, err := tdb.Conn.Exec(
		`INSERT INTO profiles (label, tiers) VALUES ('test', '[]')`)
	if err != nil {
		t.Fatalf("Failed to insert profile: %v", err)
	}
	profileID, _ := res.LastInsertId()

	_, err = tdb.Conn.Exec(
		`INSERT INTO media (id, kind, titles, year, profile_id)
		 VALUES (?, 'movie', '["Some Movie"]', 2010, ?)`, mediaID, profileID)
	if err != nil {
		t.Fatalf("Failed to insert media: %v", err)
	}
}

func testCandidate(name, url string) *Candidate {
	return &Candidate{
		Name:     name,
		URL:      url,
		Provider: "indexer-a",
		Protocol: ProtocolUsenet,
		SizeMB:   4500,
		AgeDays:  3,
		Score:    42,
	}
}

func TestUpsertInsertsAndRefreshes(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	seedMedia(t, tdb, "tt0100001")

	store := NewStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	c := testCandidate("Some.Movie.2010.720p.BluRay.x264", "https://indexer/a/1")
	rel, err := store.Upsert(ctx, FromCandidate(c, "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if rel.ID == 0 {
		t.Error("expected assigned ID")
	}
	if rel.Status != StatusAvailable {
		t.Errorf("status = %s, want available", rel.Status)
	}
	if rel.Fingerprint != c.Fingerprint() {
		t.Errorf("fingerprint = %s, want %s", rel.Fingerprint, c.Fingerprint())
	}

	// Re-upserting the same candidate refreshes metadata, keeps identity.
	c.Score = 99
	again, err := store.Upsert(ctx, FromCandidate(c, "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if again.ID != rel.ID {
		t.Errorf("upsert created new row: id %d != %d", again.ID, rel.ID)
	}
	if again.Score != 99 {
		t.Errorf("score not refreshed: %d", again.Score)
	}
}

func TestUpsertPreservesStatus(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	seedMedia(t, tdb, "tt0100001")

	store := NewStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	c := testCandidate("Some.Movie.2010.720p.BluRay.x264", "https://indexer/a/1")
	rel, err := store.Upsert(ctx, FromCandidate(c, "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	ok, err := store.TransitionStatus(ctx, rel.ID, StatusAvailable, StatusSnatched)
	if err != nil || !ok {
		t.Fatalf("TransitionStatus = %v, %v", ok, err)
	}

	// A search pass re-finding the release must not reset it to available.
	again, err := store.Upsert(ctx, FromCandidate(c, "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("re-upsert failed: %v", err)
	}
	if again.Status != StatusSnatched {
		t.Errorf("status = %s, want snatched preserved", again.Status)
	}
}

func TestSameURLDifferentQualityCoexists(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	seedMedia(t, tdb, "tt0100001")

	store := NewStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	c := testCandidate("Some.Movie.2010.BluRay", "https://indexer/a/1")
	first, err := store.Upsert(ctx, FromCandidate(c, "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second, err := store.Upsert(ctx, FromCandidate(c, "tt0100001", "1080p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if first.ID == second.ID {
		t.Error("expected distinct rows per quality")
	}

	all, err := store.ListByMedia(ctx, "tt0100001")
	if err != nil {
		t.Fatalf("ListByMedia failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d releases, want 2", len(all))
	}
}

func TestSameURLDifferentAudioCoexists(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	seedMedia(t, tdb, "tt0100001")

	store := NewStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	dts := testCandidate("Some.Movie.2010.720p.DTS", "https://indexer/a/1")
	dts.Audio = "dts"
	ac3 := testCandidate("Some.Movie.2010.720p.AC3", "https://indexer/a/1")
	ac3.Audio = "ac3"

	first, err := store.Upsert(ctx, FromCandidate(dts, "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second, err := store.Upsert(ctx, FromCandidate(ac3, "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if first.ID == second.ID {
		t.Error("expected distinct rows per audio tag")
	}
	if first.Audio != "dts" || second.Audio != "ac3" {
		t.Errorf("audio = %q/%q, want dts/ac3", first.Audio, second.Audio)
	}

	got, err := store.GetByIdentity(ctx, dts.Fingerprint(), "720p", "dts")
	if err != nil {
		t.Fatalf("GetByIdentity failed: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("GetByIdentity returned id %d, want %d", got.ID, first.ID)
	}
}

func TestTransitionStatusGuards(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	seedMedia(t, tdb, "tt0100001")

	store := NewStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	c := testCandidate("Some.Movie.2010.720p", "https://indexer/a/1")
	rel, err := store.Upsert(ctx, FromCandidate(c, "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	ok, err := store.TransitionStatus(ctx, rel.ID, StatusAvailable, StatusSnatched)
	if err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	if !ok {
		t.Fatal("expected first transition to win")
	}

	// A second actor expecting the old status loses cleanly.
	ok, err = store.TransitionStatus(ctx, rel.ID, StatusAvailable, StatusSnatched)
	if err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	if ok {
		t.Error("expected second transition to lose the race")
	}

	got, err := store.Get(ctx, rel.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusSnatched {
		t.Errorf("status = %s, want snatched", got.Status)
	}
}

func TestListByStatus(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	seedMedia(t, tdb, "tt0100001")

	store := NewStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	for i, url := range []string{"https://a/1", "https://a/2", "https://a/3"} {
		c := testCandidate("Some.Movie.2010.720p", url)
		rel, err := store.Upsert(ctx, FromCandidate(c, "tt0100001", "720p"))
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if i > 0 {
			if _, err := store.TransitionStatus(ctx, rel.ID, StatusAvailable, StatusSnatched); err != nil {
				t.Fatalf("TransitionStatus failed: %v", err)
			}
		}
	}

	snatched, err := store.ListByStatus(ctx, StatusSnatched)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(snatched) != 2 {
		t.Errorf("got %d snatched, want 2", len(snatched))
	}

	none, err := store.ListByStatus(ctx)
	if err != nil {
		t.Fatalf("ListByStatus with no statuses failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d releases for empty status list, want 0", len(none))
	}
}

func TestDeleteStaleAvailable(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	seedMedia(t, tdb, "tt0100001")

	store := NewStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	seenCand := testCandidate("Some.Movie.2010.720p", "https://a/seen")
	goneCand := testCandidate("Some.Movie.2010.720p.PROPER", "https://a/gone")
	snatchedCand := testCandidate("Some.Movie.2010.1080p", "https://a/snatched")

	if _, err := store.Upsert(ctx, FromCandidate(seenCand, "tt0100001", "720p")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.Upsert(ctx, FromCandidate(goneCand, "tt0100001", "720p")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	snatched, err := store.Upsert(ctx, FromCandidate(snatchedCand, "tt0100001", "1080p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.TransitionStatus(ctx, snatched.ID, StatusAvailable, StatusSnatched); err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}

	n, err := store.DeleteStaleAvailable(ctx, "tt0100001", []string{seenCand.Fingerprint()})
	if err != nil {
		t.Fatalf("DeleteStaleAvailable failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}

	remaining, err := store.ListByMedia(ctx, "tt0100001")
	if err != nil {
		t.Fatalf("ListByMedia failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("got %d releases, want 2", len(remaining))
	}
	for _, rel := range remaining {
		if rel.Fingerprint == goneCand.Fingerprint() {
			t.Error("unseen available release survived")
		}
	}
}

func TestIgnoreTried(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	seedMedia(t, tdb, "tt0100001")

	store := NewStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	snatched, err := store.Upsert(ctx, FromCandidate(testCandidate("A", "https://a/1"), "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.TransitionStatus(ctx, snatched.ID, StatusAvailable, StatusSnatched); err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	available, err := store.Upsert(ctx, FromCandidate(testCandidate("B", "https://a/2"), "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	n, err := store.IgnoreTried(ctx, "tt0100001")
	if err != nil {
		t.Fatalf("IgnoreTried failed: %v", err)
	}
	if n != 1 {
		t.Errorf("ignored %d, want 1", n)
	}

	got, err := store.Get(ctx, snatched.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusIgnored {
		t.Errorf("snatched release = %s, want ignored", got.Status)
	}
	got, err = store.Get(ctx, available.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusAvailable {
		t.Errorf("available release = %s, want untouched", got.Status)
	}
}

func TestCleanStale(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	seedMedia(t, tdb, "tt0100001")

	store := NewStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	oldAvailable, err := store.Upsert(ctx, FromCandidate(testCandidate("A", "https://a/1"), "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	abandoned, err := store.Upsert(ctx, FromCandidate(testCandidate("B", "https://a/2"), "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.TransitionStatus(ctx, abandoned.ID, StatusAvailable, StatusSnatched); err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	fresh, err := store.Upsert(ctx, FromCandidate(testCandidate("C", "https://a/3"), "tt0100001", "720p"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Backdate the first two rows past the cutoffs.
	stale := time.Now().UTC().Add(-30 * 24 * time.Hour)
	for _, id := range []int64{oldAvailable.ID, abandoned.ID} {
		if _, err := tdb.Conn.Exec(`UPDATE releases SET last_edit = ? WHERE id = ?`, stale, id); err != nil {
			t.Fatalf("Failed to backdate release: %v", err)
		}
	}

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	if err := store.CleanStale(ctx, cutoff, cutoff); err != nil {
		t.Fatalf("CleanStale failed: %v", err)
	}

	if _, err := store.Get(ctx, oldAvailable.ID); err == nil {
		t.Error("stale available release survived")
	}
	got, err := store.Get(ctx, abandoned.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusIgnored {
		t.Errorf("abandoned release = %s, want ignored", got.Status)
	}
	got, err = store.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusAvailable {
		t.Errorf("fresh release = %s, want available", got.Status)
	}
}
