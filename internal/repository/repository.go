// Package repository declares the storage interfaces behind the gateway.
// Implementations return apperror.NotFound for missing rows and
// apperror.Conflict for uniqueness violations.
package repository

import (
	"context"

	"github.com/livme/livme/internal/model"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByHandle(ctx context.Context, handle string) (*model.Profile, error)
	// Update replaces the whole mutable subset in one statement.
	Update(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error)
	Delete(ctx context.Context, id string) error
	HandleExists(ctx context.Context, handle string) (bool, error)
}

type LiveRepository interface {
	Create(ctx context.Context, live *model.LiveEvent) error
	GetByID(ctx context.Context, id string) (*model.LiveEvent, error)
	// ListByOwner returns the owner's events, newest date first.
	ListByOwner(ctx context.Context, ownerID string) ([]model.LiveEvent, error)
	Update(ctx context.Context, live *model.LiveEvent) error
	Delete(ctx context.Context, id string) error
}

type FollowRepository interface {
	Create(ctx context.Context, follow *model.Follow) error
	Delete(ctx context.Context, followerID, followingID string) error
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
	CountFollowing(ctx context.Context, userID string) (int, error)
}

type IdentityRepository interface {
	Create(ctx context.Context, identity *model.Identity) error
	GetByID(ctx context.Context, id string) (*model.Identity, error)
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	GetBySubject(ctx context.Context, provider, subject string) (*model.Identity, error)
	Delete(ctx context.Context, id string) error
}
