package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/auth"
	"github.com/livme/livme/internal/gateway"
	"github.com/livme/livme/internal/model"
)

type FollowHandler struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

func NewFollowHandler(gw gateway.Gateway, logger *slog.Logger) *FollowHandler {
	return &FollowHandler{gw: gw, logger: logger}
}

type FollowResponse struct {
	Following bool `json:"following"`
	Followers int  `json:"followers"`
}

// target resolves the caller and the profile named in the URL.
func (h *FollowHandler) target(r *http.Request) (string, *model.Profile, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", nil, apperror.Unauthorized("not signed in")
	}
	profile, err := h.gw.GetProfileByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		return "", nil, err
	}
	return userID, profile, nil
}

func (h *FollowHandler) respond(w http.ResponseWriter, r *http.Request, following bool, profileID string) {
	followers, err := h.gw.FollowerCount(r.Context(), profileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FollowResponse{Following: following, Followers: followers})
}

// HandleFollow follows a user. Following twice is not an error.
//
// HTTP: PUT /api/users/{handle}/follow
// Auth: required
func (h *FollowHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	userID, profile, err := h.target(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gw.Follow(r.Context(), userID, profile.ID); err != nil && !errors.Is(err, apperror.ErrConflict) {
		writeError(w, err)
		return
	}
	h.respond(w, r, true, profile.ID)
}

// HandleUnfollow stops following a user. Unfollowing someone not followed
// is not an error.
//
// HTTP: DELETE /api/users/{handle}/follow
// Auth: required
func (h *FollowHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	userID, profile, err := h.target(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gw.Unfollow(r.Context(), userID, profile.ID); err != nil && !errors.Is(err, apperror.ErrNotFound) {
		writeError(w, err)
		return
	}
	h.respond(w, r, false, profile.ID)
}

// HandleStatus reports whether the caller follows a user.
//
// HTTP: GET /api/users/{handle}/follow
// Auth: required
func (h *FollowHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID, profile, err := h.target(r)
	if err != nil {
		writeError(w, err)
		return
	}

	following, err := h.gw.IsFollowing(r.Context(), userID, profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, r, following, profile.ID)
}
