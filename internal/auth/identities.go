package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/model"
	"github.com/livme/livme/internal/repository"
	"github.com/livme/livme/internal/validate"
)

// Identities is the identity store: it creates accounts and checks
// credentials. It knows nothing about profiles; pairing an identity with its
// profile is the session provider's job.
type Identities struct {
	repo      repository.IdentityRepository
	passwords *PasswordService
	logger    *slog.Logger
}

func NewIdentities(repo repository.IdentityRepository, passwords *PasswordService, logger *slog.Logger) *Identities {
	return &Identities{
		repo:      repo,
		passwords: passwords,
		logger:    logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a password identity. A registered email is
// apperror.ErrConflict.
func (s *Identities) SignUp(ctx context.Context, email, password string) (*model.Identity, error) {
	email = normalizeEmail(email)
	if err := validate.Email(email); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	identity := &model.Identity{
		Email:        email,
		PasswordHash: hash,
		Provider:     model.ProviderPassword,
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "auth: email already registered",
				Field:   "email",
			}
		}
		return nil, fmt.Errorf("auth: creating identity: %w", err)
	}

	s.logger.Info("identity created",
		slog.String("identityID", identity.ID),
		slog.String("provider", identity.Provider),
	)
	return identity, nil
}

// SignIn checks email and password. An unknown email and a wrong password
// are the same apperror.ErrUnauthorized, so callers cannot probe for
// registered addresses.
func (s *Identities) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	identity, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("auth: invalid credentials")
		}
		return nil, fmt.Errorf("auth: looking up identity: %w", err)
	}

	if identity.Provider != model.ProviderPassword || identity.PasswordHash == "" {
		return nil, apperror.Unauthorized("auth: invalid credentials")
	}
	if err := s.passwords.Verify(identity.PasswordHash, password); err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			return nil, apperror.Unauthorized("auth: invalid credentials")
		}
		return nil, err
	}

	return identity, nil
}

// SignInExternal finds or creates the identity for an account at an
// external provider. created reports whether the identity is new, in which
// case the caller still has to create its profile.
func (s *Identities) SignInExternal(ctx context.Context, provider, subject, email string) (identity *model.Identity, created bool, err error) {
	if provider == "" || subject == "" {
		return nil, false, apperror.ValidationFailed("provider", "auth: provider and subject are required")
	}

	identity, err = s.repo.GetBySubject(ctx, provider, subject)
	if err == nil {
		return identity, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, fmt.Errorf("auth: looking up %s identity: %w", provider, err)
	}

	identity = &model.Identity{
		Email:    normalizeEmail(email),
		Provider: provider,
		Subject:  subject,
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		if errors.Is(err, apperror.ErrConflict) && identity.Email != "" {
			// The address already belongs to another identity; keep the
			// external account but leave the email unset.
			identity.Email = ""
			err = s.repo.Create(ctx, identity)
		}
		if err != nil {
			return nil, false, fmt.Errorf("auth: creating %s identity: %w", provider, err)
		}
	}

	s.logger.Info("identity created",
		slog.String("identityID", identity.ID),
		slog.String("provider", provider),
	)
	return identity, true, nil
}

func (s *Identities) Get(ctx context.Context, id string) (*model.Identity, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes an identity. The session provider uses it to undo a
// sign-up whose profile could not be created.
func (s *Identities) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("auth: deleting identity %s: %w", id, err)
	}
	s.logger.Info("identity deleted", slog.String("identityID", id))
	return nil
}
