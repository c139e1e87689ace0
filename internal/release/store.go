package release

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Store persists releases found by searches. Rows are keyed by the
// (fingerprint, quality, audio) triple so re-finding a known release
// refreshes its metadata without disturbing its status.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a new release store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "release-store").Logger(),
	}
}

const releaseColumns = `id, fingerprint, media_id, quality, audio, status, name,
	url, provider, protocol, size_mb, age_days, seeders, leechers, score,
	download_id, created_at, last_edit`

// Upsert inserts a release or, when the (fingerprint, quality, audio)
// triple already exists, refreshes its metadata. The existing status and
// download ID are preserved so a re-found snatched release stays snatched.
func (s *Store) Upsert(ctx context.Context, rel Release) (*Release, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO releases (fingerprint, media_id, quality, audio, status, name,
			url, provider, protocol, size_mb, age_days, seeders, leechers, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint, quality, audio) DO UPDATE SET
			media_id = excluded.media_id,
			name = excluded.name,
			url = excluded.url,
			provider = excluded.provider,
			protocol = excluded.protocol,
			size_mb = excluded.size_mb,
			age_days = excluded.age_days,
			seeders = excluded.seeders,
			leechers = excluded.leechers,
			score = excluded.score,
			last_edit = CURRENT_TIMESTAMP
		RETURNING `+releaseColumns,
		rel.Fingerprint, rel.MediaID, rel.Quality, rel.Audio, string(rel.Status),
		rel.Name, rel.URL, rel.Provider, string(rel.Protocol), rel.SizeMB,
		rel.AgeDays, nullInt(rel.Seeders), nullInt(rel.Leechers), rel.Score)

	stored, err := scanRelease(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert release: %w", err)
	}
	return stored, nil
}

// Get returns a release by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Release, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE id = ?`, id)
	rel, err := scanRelease(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get release %d: %w", id, err)
	}
	return rel, nil
}

// GetByIdentity returns a release by its (fingerprint, quality, audio)
// triple.
func (s *Store) GetByIdentity(ctx context.Context, fingerprint, quality, audio string) (*Release, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+releaseColumns+` FROM releases
		 WHERE fingerprint = ? AND quality = ? AND audio = ?`,
		fingerprint, quality, audio)
	rel, err := scanRelease(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get release %s/%s: %w", fingerprint, quality, err)
	}
	return rel, nil
}

// ListByMedia returns all releases tracked for a media item, best score first.
func (s *Store) ListByMedia(ctx context.Context, mediaID string) ([]*Release, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE media_id = ? ORDER BY score DESC, id ASC`,
		mediaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases for media %s: %w", mediaID, err)
	}
	defer rows.Close()
	return collectReleases(rows)
}

// ListByStatus returns all releases in any of the given statuses, across all
// media, oldest edit first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Release, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE status IN (`+
			strings.Join(placeholders, ", ")+`) ORDER BY last_edit ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases by status: %w", err)
	}
	defer rows.Close()
	return collectReleases(rows)
}

// TransitionStatus moves a release from one status to another. It reports
// false without error when the release is no longer in the expected status,
// so concurrent grabbers lose the race cleanly instead of double-acting.
func (s *Store) TransitionStatus(ctx context.Context, id int64, from, to Status) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE releases SET status = ?, last_edit = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to transition release %d to %s: %w", id, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to transition release %d to %s: %w", id, to, err)
	}
	return n == 1, nil
}

// SetDownloadID records the download client's identifier for a release.
func (s *Store) SetDownloadID(ctx context.Context, id int64, downloadID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE releases SET download_id = ?, last_edit = CURRENT_TIMESTAMP WHERE id = ?`,
		downloadID, id)
	if err != nil {
		return fmt.Errorf("failed to set download id on release %d: %w", id, err)
	}
	return nil
}

// DeleteStaleAvailable removes available releases for a media item whose
// fingerprint was not seen in the current search pass. Releases in any other
// status are never touched here.
func (s *Store) DeleteStaleAvailable(ctx context.Context, mediaID string, seen []string) (int64, error) {
	query := `DELETE FROM releases WHERE media_id = ? AND status = ?`
	args := []any{mediaID, string(StatusAvailable)}
	if len(seen) > 0 {
		placeholders := make([]string, len(seen))
		for i, fp := range seen {
			placeholders[i] = "?"
			args = append(args, fp)
		}
		query += ` AND fingerprint NOT IN (` + strings.Join(placeholders, ", ") + `)`
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale releases for media %s: %w", mediaID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// IgnoreTried marks every snatched and downloaded release of a media item as
// ignored so the next search pass skips them and tries something else.
func (s *Store) IgnoreTried(ctx context.Context, mediaID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE releases SET status = ?, last_edit = CURRENT_TIMESTAMP
		 WHERE media_id = ? AND status IN (?, ?)`,
		string(StatusIgnored), mediaID, string(StatusSnatched), string(StatusDownloaded))
	if err != nil {
		return 0, fmt.Errorf("failed to ignore tried releases for media %s: %w", mediaID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CleanStale prunes bookkeeping rows that no longer serve a purpose:
// available releases not refreshed since availableBefore are deleted, and
// snatched or downloaded releases untouched since abandonedBefore are
// demoted to ignored.
func (s *Store) CleanStale(ctx context.Context, availableBefore, abandonedBefore time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM releases WHERE status = ? AND last_edit < ?`,
		string(StatusAvailable), availableBefore.UTC())
	if err != nil {
		return fmt.Errorf("failed to prune stale available releases: %w", err)
	}
	deleted, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx,
		`UPDATE releases SET status = ?, last_edit = CURRENT_TIMESTAMP
		 WHERE status IN (?, ?) AND last_edit < ?`,
		string(StatusIgnored), string(StatusSnatched), string(StatusDownloaded),
		abandonedBefore.UTC())
	if err != nil {
		return fmt.Errorf("failed to demote abandoned releases: %w", err)
	}
	demoted, _ := res.RowsAffected()

	if deleted > 0 || demoted > 0 {
		s.logger.Info().
			Int64("deleted", deleted).
			Int64("demoted", demoted).
			Msg("Cleaned stale releases")
	}
	return nil
}

// DeleteByMedia removes all releases tracked for a media item.
func (s *Store) DeleteByMedia(ctx context.Context, mediaID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM releases WHERE media_id = ?`, mediaID)
	if err != nil {
		return fmt.Errorf("failed to delete releases for media %s: %w", mediaID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRelease(row rowScanner) (*Release, error) {
	var rel Release
	var status, protocol string
	var seeders, leechers sql.NullInt64
	var downloadID sql.NullString
	var createdAt, lastEdit sql.NullTime

	err := row.Scan(&rel.ID, &rel.Fingerprint, &rel.MediaID, &rel.Quality,
		&rel.Audio, &status, &rel.Name, &rel.URL, &rel.Provider, &protocol,
		&rel.SizeMB, &rel.AgeDays, &seeders, &leechers, &rel.Score,
		&downloadID, &createdAt, &lastEdit)
	if err != nil {
		return nil, err
	}

	rel.Status = Status(status)
	rel.Protocol = Protocol(protocol)
	if seeders.Valid {
		v := int(seeders.Int64)
		rel.Seeders = &v
	}
	if leechers.Valid {
		v := int(leechers.Int64)
		rel.Leechers = &v
	}
	if downloadID.Valid {
		rel.DownloadID = downloadID.String
	}
	if createdAt.Valid {
		rel.CreatedAt = createdAt.Time
	}
	if lastEdit.Valid {
		rel.LastEdit = lastEdit.Time
	}
	return &rel, nil
}

func collectReleases(rows *sql.Rows) ([]*Release, error) {
	var releases []*Release
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		releases = append(releases, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate releases: %w", err)
	}
	return releases, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
