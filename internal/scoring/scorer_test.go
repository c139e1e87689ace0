package scoring

import (
	"testing"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/testutil"
)

func testItem() *media.Item {
	return &media.Item{
		ID:     "tt0133093",
		Kind:   media.KindMovie,
		Titles: []string{"The Good Movie"},
		Year:   2020,
	}
}

func TestScoreNameWeights(t *testing.T) {
	s := NewDefaultScorer(testutil.NopLogger())
	item := testItem()

	good := &release.Candidate{Name: "The.Good.Movie.2020.1080p.BluRay.x264-GRP", URL: "http://a", Protocol: release.ProtocolUsenet}
	bad := &release.Candidate{Name: "The.Good.Movie.2020.German.DVDRip.XviD-GRP", URL: "http://b", Protocol: release.ProtocolUsenet}

	gs := s.Score(good, item, nil, nil)
	bs := s.Score(bad, item, nil, nil)
	if gs <= bs {
		t.Errorf("expected 1080p bluray to outscore german dvdrip: got %d vs %d", gs, bs)
	}
}

func TestYearScore(t *testing.T) {
	s := NewDefaultScorer(testutil.NopLogger())
	item := testItem()

	with := &release.Candidate{Name: "The.Good.Movie.2020.DVDRip.XviD", URL: "http://a", Protocol: release.ProtocolUsenet}
	without := &release.Candidate{Name: "The.Good.Movie.DVDRip.XviD", URL: "http://b", Protocol: release.ProtocolUsenet}

	diff := s.Score(with, item, nil, nil) - s.Score(without, item, nil, nil)
	if diff < 5 {
		t.Errorf("expected year-bearing name to score at least 5 higher, diff = %d", diff)
	}
}

func TestPreferredWordScore(t *testing.T) {
	s := NewDefaultScorer(testutil.NopLogger())
	item := testItem()
	c := &release.Candidate{Name: "The.Good.Movie.2020.1080p.BluRay.x264-GRP", URL: "http://a", Protocol: release.ProtocolUsenet}

	base := s.Score(c, item, nil, nil)
	preferred := s.Score(c, item, []string{"x264"}, nil)
	if preferred-base != 100 {
		t.Errorf("preferred word bonus = %d, want 100", preferred-base)
	}

	// Preferred words match whole words only.
	partial := s.Score(c, item, []string{"x26"}, nil)
	if partial != base {
		t.Errorf("partial preferred word changed score: %d != %d", partial, base)
	}
}

func TestIgnoredWordPenalty(t *testing.T) {
	s := NewDefaultScorer(testutil.NopLogger())
	item := testItem()
	c := &release.Candidate{Name: "The.Good.Movie.2020.German.Subbed.DVDRip", URL: "http://a", Protocol: release.ProtocolUsenet}

	base := s.Score(c, item, nil, nil)
	// Ignored words penalize even as substrings.
	penalized := s.Score(c, item, nil, []string{"ger"})
	if penalized >= base {
		t.Errorf("ignored substring did not lower score: %d >= %d", penalized, base)
	}
}

func TestTorrentSeederScore(t *testing.T) {
	s := NewScorer(Config{}, testutil.NopLogger())
	item := testItem()

	seeded := &release.Candidate{
		Name: "The.Good.Movie.2020", URL: "http://a",
		Protocol: release.ProtocolTorrent,
		Seeders:  testutil.IntPtr(50), Leechers: testutil.IntPtr(20),
	}
	if got := s.Score(seeded, item, nil, nil); got != 12 {
		t.Errorf("seeder score = %d, want 12", got)
	}

	usenet := &release.Candidate{Name: "The.Good.Movie.2020", URL: "http://b", Protocol: release.ProtocolUsenet}
	if got := s.Score(usenet, item, nil, nil); got != 0 {
		t.Errorf("usenet candidate scored %d from seeders, want 0", got)
	}
}

func TestHalfMultipartPenalty(t *testing.T) {
	cfg := Config{
		HalfMultipartScore:    -30,
		HalfMultipartPatterns: DefaultConfig().HalfMultipartPatterns,
	}
	s := NewScorer(cfg, testutil.NopLogger())
	item := testItem()

	for _, name := range []string{
		"The.Good.Movie.2020.DVDRip.CD1",
		"The.Good.Movie.2020.part.1",
		"The.Good.Movie.2020.1of2",
	} {
		c := &release.Candidate{Name: name, URL: "http://" + name, Protocol: release.ProtocolUsenet}
		if got := s.Score(c, item, nil, nil); got != -30 {
			t.Errorf("Score(%q) = %d, want -30", name, got)
		}
	}

	whole := &release.Candidate{Name: "The.Good.Movie.2020.DVDRip", URL: "http://w", Protocol: release.ProtocolUsenet}
	if got := s.Score(whole, item, nil, nil); got != 0 {
		t.Errorf("whole release penalized: %d", got)
	}
}

func TestNukedPenalty(t *testing.T) {
	cfg := Config{
		NukedScore:    -30,
		NukedPatterns: DefaultConfig().NukedPatterns,
	}
	s := NewScorer(cfg, testutil.NopLogger())
	item := testItem()

	c := &release.Candidate{Name: "The.Good.Movie.2020.NUKED.DVDRip", URL: "http://a", Protocol: release.ProtocolUsenet}
	if got := s.Score(c, item, nil, nil); got != -30 {
		t.Errorf("nuked score = %d, want -30", got)
	}
}

func TestSortCandidatesByScore(t *testing.T) {
	s := NewScorer(Config{}, testutil.NopLogger())
	candidates := []release.Candidate{
		{Name: "low", Score: 5},
		{Name: "high", Score: 50},
		{Name: "mid", Score: 20},
	}
	s.SortCandidates(candidates)

	want := []string{"high", "mid", "low"}
	for i, name := range want {
		if candidates[i].Name != name {
			t.Errorf("position %d = %q, want %q", i, candidates[i].Name, name)
		}
	}
}

func TestSortCandidatesStableOnTies(t *testing.T) {
	s := NewScorer(Config{}, testutil.NopLogger())
	candidates := []release.Candidate{
		{Name: "first", Score: 10},
		{Name: "second", Score: 10},
		{Name: "third", Score: 10},
	}
	s.SortCandidates(candidates)

	want := []string{"first", "second", "third"}
	for i, name := range want {
		if candidates[i].Name != name {
			t.Errorf("tie order broken at %d: got %q, want %q", i, candidates[i].Name, name)
		}
	}
}

func TestSortCandidatesProtocolTieBreak(t *testing.T) {
	s := NewScorer(Config{PreferredProtocol: "torrent"}, testutil.NopLogger())
	candidates := []release.Candidate{
		{Name: "usenet", Score: 10, Protocol: release.ProtocolUsenet},
		{Name: "torrent", Score: 10, Protocol: release.ProtocolTorrent},
	}
	s.SortCandidates(candidates)
	if candidates[0].Name != "torrent" {
		t.Errorf("torrent preference did not break tie, first = %q", candidates[0].Name)
	}

	s = NewScorer(Config{PreferredProtocol: "usenet"}, testutil.NopLogger())
	candidates = []release.Candidate{
		{Name: "torrent", Score: 10, Protocol: release.ProtocolTorrent},
		{Name: "usenet", Score: 10, Protocol: release.ProtocolUsenet},
	}
	s.SortCandidates(candidates)
	if candidates[0].Name != "usenet" {
		t.Errorf("usenet preference did not break tie, first = %q", candidates[0].Name)
	}
}
