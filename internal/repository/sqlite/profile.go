package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/model"
	"github.com/livme/livme/internal/repository"
)

var _ repository.ProfileRepository = (*ProfileDB)(nil)

// ProfileDB stores profiles in the users table. Gallery and social links are
// JSON-encoded TEXT columns.
type ProfileDB struct {
	conn *sql.DB
}

const profileColumns = `id, user_id, name, bio, link, avatar_url, gallery_images, social_links, created_at, updated_at`

// Create inserts a profile. The caller supplies the ID (it is the identity
// id). A taken handle yields apperror.ErrConflict.
func (s *ProfileDB) Create(ctx context.Context, p *model.Profile) error {
	gallery, social, err := encodeProfileLists(p.Gallery, p.Social)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Gallery == nil {
		p.Gallery = []string{}
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO users (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Handle, p.Name, p.Bio, p.Link, p.Avatar,
		gallery, social, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("profile", p.Handle)
		}
		return fmt.Errorf("sqlite: creating profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *ProfileDB) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE id = ?`, id)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return p, nil
}

func (s *ProfileDB) GetByHandle(ctx context.Context, handle string) (*model.Profile, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE user_id = ?`, handle)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("profile", handle)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting profile by handle %s: %w", handle, err)
	}
	return p, nil
}

// Update writes every mutable column in a single UPDATE, so readers never
// observe half of a save.
func (s *ProfileDB) Update(ctx context.Context, id string, u model.ProfileUpdate) (*model.Profile, error) {
	gallery, social, err := encodeProfileLists(u.Gallery, u.Social)
	if err != nil {
		return nil, err
	}

	result, err := s.conn.ExecContext(ctx,
		`UPDATE users
		 SET user_id = ?, name = ?, bio = ?, link = ?, avatar_url = ?,
		     gallery_images = ?, social_links = ?, updated_at = ?
		 WHERE id = ?`,
		u.Handle, u.Name, u.Bio, u.Link, u.Avatar,
		gallery, social, time.Now().UTC(),
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("profile", u.Handle)
		}
		return nil, fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("profile", id)
	}

	return s.GetByID(ctx, id)
}

func (s *ProfileDB) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting profile %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("profile", id)
	}
	return nil
}

// HandleExists reports whether any profile currently uses handle.
// The comparison is exact (case-sensitive), matching the UNIQUE column.
func (s *ProfileDB) HandleExists(ctx context.Context, handle string) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = ?)`, handle,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking handle %s: %w", handle, err)
	}
	return exists, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*model.Profile, error) {
	var (
		p       model.Profile
		gallery string
		social  string
	)
	if err := row.Scan(
		&p.ID, &p.Handle, &p.Name, &p.Bio, &p.Link, &p.Avatar,
		&gallery, &social, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(gallery), &p.Gallery); err != nil {
		return nil, fmt.Errorf("decoding gallery_images: %w", err)
	}
	if p.Gallery == nil {
		p.Gallery = []string{}
	}
	if err := json.Unmarshal([]byte(social), &p.Social); err != nil {
		return nil, fmt.Errorf("decoding social_links: %w", err)
	}
	return &p, nil
}

func encodeProfileLists(gallery []string, social model.SocialLinks) (string, string, error) {
	if gallery == nil {
		gallery = []string{}
	}
	g, err := json.Marshal(gallery)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encoding gallery_images: %w", err)
	}
	sl, err := json.Marshal(social)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encoding social_links: %w", err)
	}
	return string(g), string(sl), nil
}
