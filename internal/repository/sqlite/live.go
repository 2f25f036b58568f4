package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/model"
	"github.com/livme/livme/internal/repository"
)

var _ repository.LiveRepository = (*LiveDB)(nil)

// LiveDB stores live events in the lives table.
type LiveDB struct {
	conn *sql.DB
}

const liveColumns = `id, user_id, title, date, time, venue, artist, link, created_at, updated_at`

// Create inserts a live event and fills in its ID and timestamps.
// An unknown owner yields apperror.ErrNotFound.
func (s *LiveDB) Create(ctx context.Context, e *model.LiveEvent) error {
	e.ID = xid.New().String()
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO lives (`+liveColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Title, e.Date, e.Time, e.Venue, e.Artist, e.Link,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("profile", e.OwnerID)
		}
		return fmt.Errorf("sqlite: creating live: %w", err)
	}
	return nil
}

func (s *LiveDB) GetByID(ctx context.Context, id string) (*model.LiveEvent, error) {
	e, err := scanLive(s.conn.QueryRowContext(ctx,
		`SELECT `+liveColumns+` FROM lives WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("live", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting live %s: %w", id, err)
	}
	return e, nil
}

// ListByOwner returns every event of ownerID, latest date first. Events on
// the same date are ordered by time, then by creation, both descending.
func (s *LiveDB) ListByOwner(ctx context.Context, ownerID string) ([]model.LiveEvent, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+liveColumns+` FROM lives
		 WHERE user_id = ?
		 ORDER BY date DESC, time DESC, created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lives for %s: %w", ownerID, err)
	}
	defer rows.Close()

	lives := []model.LiveEvent{}
	for rows.Next() {
		e, err := scanLive(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning live row: %w", err)
		}
		lives = append(lives, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lives: %w", err)
	}
	return lives, nil
}

// Update overwrites the editable columns. Owner and created_at never change.
func (s *LiveDB) Update(ctx context.Context, e *model.LiveEvent) error {
	e.UpdatedAt = time.Now().UTC()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE lives
		 SET title = ?, date = ?, time = ?, venue = ?, artist = ?, link = ?, updated_at = ?
		 WHERE id = ?`,
		e.Title, e.Date, e.Time, e.Venue, e.Artist, e.Link, e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating live %s: %w", e.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("live", e.ID)
	}
	return nil
}

func (s *LiveDB) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM lives WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting live %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("live", id)
	}
	return nil
}

func scanLive(row scanner) (*model.LiveEvent, error) {
	var e model.LiveEvent
	if err := row.Scan(
		&e.ID, &e.OwnerID, &e.Title, &e.Date, &e.Time, &e.Venue, &e.Artist, &e.Link,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
