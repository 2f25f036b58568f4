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

var _ repository.IdentityRepository = (*IdentityDB)(nil)

// IdentityDB stores authenticated accounts in the identities table.
type IdentityDB struct {
	conn *sql.DB
}

const identityColumns = `id, email, password_hash, provider, subject, created_at`

// Create inserts an identity and fills in ID and CreatedAt. A duplicate
// email (or provider subject) yields apperror.ErrConflict.
func (s *IdentityDB) Create(ctx context.Context, i *model.Identity) error {
	i.ID = xid.New().String()
	i.CreatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, i.Email, i.PasswordHash, i.Provider, i.Subject, i.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("identity", i.Email)
		}
		return fmt.Errorf("sqlite: creating identity: %w", err)
	}
	return nil
}

func (s *IdentityDB) GetByID(ctx context.Context, id string) (*model.Identity, error) {
	return s.get(ctx, `WHERE id = ?`, "identity", id)
}

func (s *IdentityDB) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	return s.get(ctx, `WHERE email = ? AND email <> ''`, "identity", email)
}

func (s *IdentityDB) GetBySubject(ctx context.Context, provider, subject string) (*model.Identity, error) {
	var i model.Identity
	err := s.conn.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE provider = ? AND subject = ?`,
		provider, subject,
	).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Provider, &i.Subject, &i.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("identity", provider+":"+subject)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting identity %s:%s: %w", provider, subject, err)
	}
	return &i, nil
}

func (s *IdentityDB) get(ctx context.Context, where, resource, key string) (*model.Identity, error) {
	var i model.Identity
	err := s.conn.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities `+where, key,
	).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Provider, &i.Subject, &i.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound(resource, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting %s %s: %w", resource, key, err)
	}
	return &i, nil
}

func (s *IdentityDB) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting identity %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("identity", id)
	}
	return nil
}
