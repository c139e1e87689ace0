package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fetcharr/fetcharr/internal/quality"
	"github.com/fetcharr/fetcharr/internal/release"
)

// ProfileLoader resolves quality profiles; the quality service satisfies
// this.
type ProfileLoader interface {
	Profile(ctx context.Context, id int64) (*quality.Profile, error)
}

// ReleaseLister reads the releases tracked for a media item; the release
// store satisfies this.
type ReleaseLister interface {
	ListByMedia(ctx context.Context, mediaID string) ([]*release.Release, error)
}

// Store persists wanted media items and computes their status from the
// releases tracked for them.
type Store struct {
	db       *sql.DB
	profiles ProfileLoader
	releases ReleaseLister
	logger   zerolog.Logger
}

// NewStore creates a media store.
func NewStore(db *sql.DB, profiles ProfileLoader, releases ReleaseLister, logger zerolog.Logger) *Store {
	return &Store{
		db:       db,
		profiles: profiles,
		releases: releases,
		logger:   logger.With().Str("component", "media-store").Logger(),
	}
}

const mediaColumns = `id, kind, titles, year, status, profile_id, category,
	season, episode, theater_date, disc_date, last_edit`

// Add inserts or replaces a wanted item.
func (s *Store) Add(ctx context.Context, item *Item) error {
	titles, err := json.Marshal(item.Titles)
	if err != nil {
		return fmt.Errorf("failed to serialize titles: %w", err)
	}
	var category sql.NullString
	if item.Category != nil {
		data, err := json.Marshal(item.Category)
		if err != nil {
			return fmt.Errorf("failed to serialize category: %w", err)
		}
		category = sql.NullString{String: string(data), Valid: true}
	}
	status := item.Status
	if status == "" {
		status = StatusActive
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO media (id, kind, titles, year, status, profile_id, category, season, episode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			titles = excluded.titles,
			year = excluded.year,
			profile_id = excluded.profile_id,
			category = excluded.category,
			season = excluded.season,
			episode = excluded.episode,
			last_edit = CURRENT_TIMESTAMP`,
		item.ID, string(item.Kind), string(titles), item.Year, string(status),
		item.ProfileID, category, item.Identifier.Season, item.Identifier.Episode)
	if err != nil {
		return fmt.Errorf("failed to add media %s: %w", item.ID, err)
	}
	return nil
}

// Get returns a single item by ID.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	item, _, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get media %s: %w", id, err)
	}
	return item, nil
}

// ListWanted returns all active items.
func (s *Store) ListWanted(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE status = ? ORDER BY last_edit ASC`,
		string(StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list wanted media: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, _, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media: %w", err)
	}
	return items, nil
}

// ReleaseDates returns the known release dates for an item.
func (s *Store) ReleaseDates(ctx context.Context, id string) (ReleaseDates, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT theater_date, disc_date FROM media WHERE id = ?`, id)
	var theater, disc sql.NullTime
	if err := row.Scan(&theater, &disc); err != nil {
		return ReleaseDates{}, fmt.Errorf("failed to get release dates for %s: %w", id, err)
	}
	var dates ReleaseDates
	if theater.Valid {
		dates.Theater = theater.Time
	}
	if disc.Valid {
		dates.Disc = disc.Time
	}
	return dates, nil
}

// SetReleaseDates updates the known release dates for an item.
func (s *Store) SetReleaseDates(ctx context.Context, id string, dates ReleaseDates) error {
	theater := sql.NullTime{Time: dates.Theater, Valid: !dates.Theater.IsZero()}
	disc := sql.NullTime{Time: dates.Disc, Valid: !dates.Disc.IsZero()}
	_, err := s.db.ExecContext(ctx,
		`UPDATE media SET theater_date = ?, disc_date = ?, last_edit = CURRENT_TIMESTAMP WHERE id = ?`,
		theater, disc, id)
	if err != nil {
		return fmt.Errorf("failed to set release dates for %s: %w", id, err)
	}
	return nil
}

// SetStatus updates an item's status directly.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE media SET status = ?, last_edit = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set status for %s: %w", id, err)
	}
	return nil
}

// Delete marks an item deleted. Its tracked releases stay until the
// cascading cleanup removes them.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, StatusDeleted)
}

// Restatus recomputes an item's status from its tracked releases: done
// when a finishing tier of its profile is satisfied by a downloaded or
// done release, active otherwise.
func (s *Store) Restatus(ctx context.Context, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Status == StatusDeleted {
		return nil
	}

	profile, err := s.profiles.Profile(ctx, item.ProfileID)
	if err != nil {
		return fmt.Errorf("failed to load profile %d: %w", item.ProfileID, err)
	}
	tracked, err := s.releases.ListByMedia(ctx, id)
	if err != nil {
		return err
	}

	status := StatusActive
	if finished(profile, tracked) {
		status = StatusDone
	}
	if status == item.Status {
		return nil
	}

	s.logger.Info().Str("media", id).Str("status", string(status)).Msg("Media status changed")
	return s.SetStatus(ctx, id, status)
}

// finished reports whether any finishing tier of the profile is satisfied
// by a release that made it to downloaded or done.
func finished(profile *quality.Profile, tracked []*release.Release) bool {
	for _, tier := range profile.Tiers {
		if !tier.Finish {
			continue
		}
		for _, rel := range tracked {
			if rel.Status != release.StatusDownloaded && rel.Status != release.StatusDone {
				continue
			}
			def, ok := quality.ByIdentifier(rel.Quality)
			if !ok {
				continue
			}
			if def.Order <= tier.Order() {
				return true
			}
		}
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, ReleaseDates, error) {
	var item Item
	var kind, status, titles string
	var category sql.NullString
	var theater, disc, lastEdit sql.NullTime

	err := row.Scan(&item.ID, &kind, &titles, &item.Year, &status,
		&item.ProfileID, &category, &item.Identifier.Season,
		&item.Identifier.Episode, &theater, &disc, &lastEdit)
	if err != nil {
		return nil, ReleaseDates{}, err
	}

	item.Kind = Kind(kind)
	item.Status = Status(status)
	if err := json.Unmarshal([]byte(titles), &item.Titles); err != nil {
		return nil, ReleaseDates{}, fmt.Errorf("failed to parse titles: %w", err)
	}
	if category.Valid {
		var c Category
		if err := json.Unmarshal([]byte(category.String), &c); err != nil {
			return nil, ReleaseDates{}, fmt.Errorf("failed to parse category: %w", err)
		}
		item.Category = &c
	}
	if lastEdit.Valid {
		item.LastEdit = lastEdit.Time
	}

	var dates ReleaseDates
	if theater.Valid {
		dates.Theater = theater.Time
	}
	if disc.Valid {
		dates.Disc = disc.Time
	}
	return &item, dates, nil
}
