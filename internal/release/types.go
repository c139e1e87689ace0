// Package release holds candidate and persisted release types plus the
// lifecycle bookkeeping around them.
package release

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Protocol is the transfer protocol a candidate is fetched over.
type Protocol string

const (
	ProtocolUsenet        Protocol = "usenet"
	ProtocolTorrent       Protocol = "torrent"
	ProtocolTorrentMagnet Protocol = "torrent_magnet"
)

// IsTorrent reports whether the protocol is torrent-based.
func (p Protocol) IsTorrent() bool {
	return p == ProtocolTorrent || p == ProtocolTorrentMagnet
}

// Status is the lifecycle status of a persisted release.
type Status string

const (
	StatusAvailable  Status = "available"
	StatusSnatched   Status = "snatched"
	StatusSeeding    Status = "seeding"
	StatusDownloaded Status = "downloaded"
	StatusDone       Status = "done"
	StatusIgnored    Status = "ignored"
	StatusFailed     Status = "failed"
	StatusMissing    Status = "missing"
)

// Active reports whether the status counts as an in-flight download attempt.
func (s Status) Active() bool {
	return s == StatusSnatched || s == StatusSeeding
}

// Candidate is one unvalidated search result from an indexer. Candidates
// are created fresh every pass and never mutated after scoring.
type Candidate struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Provider    string   `json:"provider"`
	Protocol    Protocol `json:"protocol"`
	SizeMB      int64    `json:"sizeMb"`
	AgeDays     int      `json:"ageDays,omitempty"`
	Seeders     *int     `json:"seeders,omitempty"` // nil for usenet
	Leechers    *int     `json:"leechers,omitempty"`
	Description string   `json:"description,omitempty"`
	Width       int      `json:"width,omitempty"` // video width from provider metadata, if any
	Audio       string   `json:"audio,omitempty"` // audio tags from the name, set by the match engine

	Score int `json:"score"` // set by the scorer
}

// Fingerprint is the candidate's stable identity, a hash of its URL.
func (c *Candidate) Fingerprint() string {
	return Fingerprint(c.URL)
}

// Fingerprint computes the canonical identity hash for a release URL.
func Fingerprint(url string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(url))
}

// Release is a persisted record of a found candidate, tracked across
// passes. The (fingerprint, quality, audio) triple is unique so the same
// content at different qualities, or with a different audio track, can
// coexist.
type Release struct {
	ID          int64     `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	MediaID     string    `json:"mediaId"`
	Quality     string    `json:"quality"`
	Audio       string    `json:"audio,omitempty"`
	Status      Status    `json:"status"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Provider    string    `json:"provider"`
	Protocol    Protocol  `json:"protocol"`
	SizeMB      int64     `json:"sizeMb"`
	AgeDays     int       `json:"ageDays"`
	Seeders     *int      `json:"seeders,omitempty"`
	Leechers    *int      `json:"leechers,omitempty"`
	Score       int       `json:"score"`
	DownloadID  string    `json:"downloadId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	LastEdit    time.Time `json:"lastEdit"`
}

// FromCandidate builds a Release row for a newly accepted candidate.
func FromCandidate(c *Candidate, mediaID, qualityID string) Release {
	return Release{
		Fingerprint: c.Fingerprint(),
		MediaID:     mediaID,
		Quality:     qualityID,
		Audio:       c.Audio,
		Status:      StatusAvailable,
		Name:        c.Name,
		URL:         c.URL,
		Provider:    c.Provider,
		Protocol:    c.Protocol,
		SizeMB:      c.SizeMB,
		AgeDays:     c.AgeDays,
		Seeders:     c.Seeders,
		Leechers:    c.Leechers,
		Score:       c.Score,
	}
}
