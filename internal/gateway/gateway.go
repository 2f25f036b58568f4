// Package gateway is the single boundary between the app's workflows and
// everything that persists: profile, live and follow tables, and the image
// object store.
//
// Every operation takes a context and returns (value, error). A missing
// record is reported as apperror.ErrNotFound, a uniqueness clash as
// apperror.ErrConflict, a rejected input as apperror.ErrValidation, and a
// backend failure as apperror.ErrUnavailable. Callers branch on
// apperror.KindOf, never on message text.
package gateway

import (
	"context"

	"github.com/livme/livme/internal/model"
)

// MaxImageBytes is the largest image accepted for upload or inline encoding.
const MaxImageBytes = 5 * 1024 * 1024

type Gateway interface {
	GetProfileByHandle(ctx context.Context, handle string) (*model.Profile, error)
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	// CreateProfile inserts the profile row created at registration.
	CreateProfile(ctx context.Context, profile *model.Profile) error
	// UpdateProfile replaces the whole mutable subset atomically and returns
	// the stored result.
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error)
	// DeleteProfile exists only to undo a half-finished registration.
	DeleteProfile(ctx context.Context, id string) error
	CheckHandleAvailable(ctx context.Context, handle string) (bool, error)

	// ListEventsForUser returns the user's events sorted by date, newest first.
	ListEventsForUser(ctx context.Context, userID string) ([]model.LiveEvent, error)
	GetEvent(ctx context.Context, id string) (*model.LiveEvent, error)
	CreateEvent(ctx context.Context, ownerID string, in model.LiveEventInput) (*model.LiveEvent, error)
	UpdateEvent(ctx context.Context, id string, in model.LiveEventInput) (*model.LiveEvent, error)
	DeleteEvent(ctx context.Context, id string) error

	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	FollowerCount(ctx context.Context, userID string) (int, error)
	FollowingCount(ctx context.Context, userID string) (int, error)

	// UploadImage stores an image under path and returns its URL.
	UploadImage(ctx context.Context, data []byte, path string) (string, error)
	DeleteImage(ctx context.Context, path string) error
}
