package quality

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Service manages quality profiles in the database.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a quality profile service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "quality").Logger(),
	}
}

// EnsureDefault creates the default profile when no profiles exist yet.
func (s *Service) EnsureDefault(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count profiles: %w", err)
	}
	if count > 0 {
		return nil
	}
	p := DefaultProfile()
	if _, err := s.Create(ctx, &p); err != nil {
		return err
	}
	s.logger.Info().Str("label", p.Label).Msg("Created default quality profile")
	return nil
}

// Create inserts a new profile and returns it with its assigned ID.
func (s *Service) Create(ctx context.Context, p *Profile) (*Profile, error) {
	tiers, err := SerializeTiers(p.Tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize tiers: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (label, tiers) VALUES (?, ?)`, p.Label, tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return p, nil
}

// Update replaces a profile's label and tiers.
func (s *Service) Update(ctx context.Context, p *Profile) error {
	tiers, err := SerializeTiers(p.Tiers)
	if err != nil {
		return fmt.Errorf("failed to serialize tiers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE profiles SET label = ?, tiers = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Label, tiers, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile %d: %w", p.ID, err)
	}
	return nil
}

// Delete removes a profile. Media still referencing it fall back to the
// default profile at search time.
func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile %d: %w", id, err)
	}
	return nil
}

// Profile returns a profile by ID. A missing profile resolves to the
// default profile so a stale reference never stalls searching.
func (s *Service) Profile(ctx context.Context, id int64) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, tiers, created_at, updated_at FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn().Int64("profile", id).Msg("Profile not found, using default")
		def := DefaultProfile()
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %d: %w", id, err)
	}
	return p, nil
}

// List returns all profiles.
func (s *Service) List(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, tiers, created_at, updated_at FROM profiles ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var tiers string
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Label, &tiers, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	parsed, err := DeserializeTiers(tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tiers: %w", err)
	}
	p.Tiers = parsed
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return &p, nil
}
