package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/model"
	"github.com/livme/livme/internal/repository"
	"github.com/livme/livme/internal/storage"
	"github.com/livme/livme/internal/validate"
)

var _ Gateway = (*Remote)(nil)

// Remote implements Gateway over the repositories and an object store.
// The store may be nil, in which case image operations report
// apperror.ErrUnavailable.
type Remote struct {
	profiles repository.ProfileRepository
	lives    repository.LiveRepository
	follows  repository.FollowRepository
	images   storage.ObjectStore
	logger   *slog.Logger
}

func NewRemote(
	profiles repository.ProfileRepository,
	lives repository.LiveRepository,
	follows repository.FollowRepository,
	images storage.ObjectStore,
	logger *slog.Logger,
) *Remote {
	return &Remote{
		profiles: profiles,
		lives:    lives,
		follows:  follows,
		images:   images,
		logger:   logger,
	}
}

// fail classifies err. Errors that already carry a kind pass through;
// anything else is a backend failure, logged and wrapped as Unavailable.
func (g *Remote) fail(op string, err error) error {
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	g.logger.Error("gateway operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.Unavailable(op, err)
}

func (g *Remote) GetProfileByHandle(ctx context.Context, handle string) (*model.Profile, error) {
	p, err := g.profiles.GetByHandle(ctx, handle)
	if err != nil {
		return nil, g.fail("get profile by handle", err)
	}
	return p, nil
}

func (g *Remote) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := g.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, g.fail("get profile", err)
	}
	return p, nil
}

func (g *Remote) CreateProfile(ctx context.Context, p *model.Profile) error {
	if err := validate.Profile(p.Update()); err != nil {
		return err
	}
	if err := g.profiles.Create(ctx, p); err != nil {
		return g.fail("create profile", err)
	}
	g.logger.Info("profile created", slog.String("id", p.ID), slog.String("handle", p.Handle))
	return nil
}

func (g *Remote) UpdateProfile(ctx context.Context, id string, u model.ProfileUpdate) (*model.Profile, error) {
	u.Name = strings.TrimSpace(u.Name)
	if err := validate.Profile(u); err != nil {
		return nil, err
	}

	p, err := g.profiles.Update(ctx, id, u)
	if err != nil {
		return nil, g.fail("update profile", err)
	}
	g.logger.Info("profile updated", slog.String("id", id), slog.String("handle", p.Handle))
	return p, nil
}

func (g *Remote) DeleteProfile(ctx context.Context, id string) error {
	if err := g.profiles.Delete(ctx, id); err != nil {
		return g.fail("delete profile", err)
	}
	g.logger.Warn("profile deleted", slog.String("id", id))
	return nil
}

// CheckHandleAvailable reports whether no profile uses handle. It does not
// check the format; callers validate first.
func (g *Remote) CheckHandleAvailable(ctx context.Context, handle string) (bool, error) {
	taken, err := g.profiles.HandleExists(ctx, handle)
	if err != nil {
		return false, g.fail("check handle", err)
	}
	return !taken, nil
}

func (g *Remote) ListEventsForUser(ctx context.Context, userID string) ([]model.LiveEvent, error) {
	lives, err := g.lives.ListByOwner(ctx, userID)
	if err != nil {
		return nil, g.fail("list lives", err)
	}
	sort.SliceStable(lives, func(i, j int) bool {
		return lives[i].Date.After(lives[j].Date)
	})
	return lives, nil
}

func (g *Remote) GetEvent(ctx context.Context, id string) (*model.LiveEvent, error) {
	e, err := g.lives.GetByID(ctx, id)
	if err != nil {
		return nil, g.fail("get live", err)
	}
	return e, nil
}

func (g *Remote) CreateEvent(ctx context.Context, ownerID string, in model.LiveEventInput) (*model.LiveEvent, error) {
	in = trimLive(in)
	if err := validate.LiveEvent(in); err != nil {
		return nil, err
	}

	e := &model.LiveEvent{OwnerID: ownerID}
	in.Apply(e)
	if err := g.lives.Create(ctx, e); err != nil {
		return nil, g.fail("create live", err)
	}
	g.logger.Info("live created", slog.String("id", e.ID), slog.String("owner", ownerID))
	return e, nil
}

func (g *Remote) UpdateEvent(ctx context.Context, id string, in model.LiveEventInput) (*model.LiveEvent, error) {
	in = trimLive(in)
	if err := validate.LiveEvent(in); err != nil {
		return nil, err
	}

	e, err := g.lives.GetByID(ctx, id)
	if err != nil {
		return nil, g.fail("get live", err)
	}
	in.Apply(e)
	if err := g.lives.Update(ctx, e); err != nil {
		return nil, g.fail("update live", err)
	}
	g.logger.Info("live updated", slog.String("id", id))
	return e, nil
}

func (g *Remote) DeleteEvent(ctx context.Context, id string) error {
	if err := g.lives.Delete(ctx, id); err != nil {
		return g.fail("delete live", err)
	}
	g.logger.Info("live deleted", slog.String("id", id))
	return nil
}

func trimLive(in model.LiveEventInput) model.LiveEventInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Venue = strings.TrimSpace(in.Venue)
	in.Artist = strings.TrimSpace(in.Artist)
	in.Link = strings.TrimSpace(in.Link)
	in.Time = strings.TrimSpace(in.Time)
	return in
}

func (g *Remote) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return apperror.ValidationFailed("following_id", "自分自身はフォローできません")
	}
	if err := g.follows.Create(ctx, &model.Follow{FollowerID: followerID, FollowingID: followingID}); err != nil {
		return g.fail("follow", err)
	}
	return nil
}

func (g *Remote) Unfollow(ctx context.Context, followerID, followingID string) error {
	if err := g.follows.Delete(ctx, followerID, followingID); err != nil {
		return g.fail("unfollow", err)
	}
	return nil
}

func (g *Remote) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	ok, err := g.follows.Exists(ctx, followerID, followingID)
	if err != nil {
		return false, g.fail("is following", err)
	}
	return ok, nil
}

func (g *Remote) FollowerCount(ctx context.Context, userID string) (int, error) {
	n, err := g.follows.CountFollowers(ctx, userID)
	if err != nil {
		return 0, g.fail("count followers", err)
	}
	return n, nil
}

func (g *Remote) FollowingCount(ctx context.Context, userID string) (int, error) {
	n, err := g.follows.CountFollowing(ctx, userID)
	if err != nil {
		return 0, g.fail("count following", err)
	}
	return n, nil
}

// UploadImage sniffs the content type from the bytes; anything that is not
// an image, is empty, or exceeds MaxImageBytes is a validation error.
func (g *Remote) UploadImage(ctx context.Context, data []byte, path string) (string, error) {
	if g.images == nil {
		return "", apperror.Unavailable("upload image", fmt.Errorf("no object store configured"))
	}
	if len(data) == 0 {
		return "", apperror.ValidationFailed("image", "画像ファイルが空です")
	}
	if len(data) > MaxImageBytes {
		return "", apperror.ValidationFailed("image", "画像サイズは5MB以下にしてください")
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", apperror.ValidationFailed("image", "画像ファイルを選択してください")
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" || strings.Contains(path, "..") {
		return "", apperror.ValidationFailed("path", "invalid image path")
	}

	url, err := g.images.Put(ctx, path, data, mime.String())
	if err != nil {
		return "", g.fail("upload image", err)
	}
	g.logger.Info("image uploaded", slog.String("path", path), slog.Int("bytes", len(data)))
	return url, nil
}

func (g *Remote) DeleteImage(ctx context.Context, path string) error {
	if g.images == nil {
		return apperror.Unavailable("delete image", fmt.Errorf("no object store configured"))
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" || strings.Contains(path, "..") {
		return apperror.ValidationFailed("path", "invalid image path")
	}
	if err := g.images.Delete(ctx, path); err != nil {
		return g.fail("delete image", err)
	}
	return nil
}
