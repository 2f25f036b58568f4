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

var _ repository.FollowRepository = (*FollowDB)(nil)

// FollowDB stores follow edges in the follows table.
type FollowDB struct {
	conn *sql.DB
}

// Create inserts an edge. A second edge for the same ordered pair is
// apperror.ErrConflict; an unknown user on either end is apperror.ErrNotFound.
func (s *FollowDB) Create(ctx context.Context, f *model.Follow) error {
	f.ID = xid.New().String()
	f.CreatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO follows (id, follower_id, following_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		f.ID, f.FollowerID, f.FollowingID, f.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict("follow", f.FollowerID+"->"+f.FollowingID)
		case isForeignKeyViolation(err):
			return apperror.NotFound("profile", f.FollowingID)
		}
		return fmt.Errorf("sqlite: creating follow: %w", err)
	}
	return nil
}

func (s *FollowDB) Delete(ctx context.Context, followerID, followingID string) error {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND following_id = ?`,
		followerID, followingID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting follow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("follow", followerID+"->"+followingID)
	}
	return nil
}

func (s *FollowDB) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?)`,
		followerID, followingID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow: %w", err)
	}
	return exists, nil
}

func (s *FollowDB) CountFollowers(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM follows WHERE following_id = ?`, userID)
}

func (s *FollowDB) CountFollowing(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM follows WHERE follower_id = ?`, userID)
}

func (s *FollowDB) count(ctx context.Context, query, userID string) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting follows for %s: %w", userID, err)
	}
	return n, nil
}
