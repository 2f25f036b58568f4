package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/auth"
	"github.com/livme/livme/internal/gateway"
	"github.com/livme/livme/internal/model"
	"github.com/livme/livme/internal/session"
	"github.com/livme/livme/internal/validate"
)

type ProfileHandler struct {
	gw           gateway.Gateway
	deps         session.Dependencies
	checkTimeout time.Duration
	logger       *slog.Logger
}

func NewProfileHandler(gw gateway.Gateway, deps session.Dependencies, checkTimeout time.Duration, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		gw:           gw,
		deps:         deps,
		checkTimeout: checkTimeout,
		logger:       logger,
	}
}

// ProfileResponse is a public profile page: the profile, its follow counts
// and, for signed-in viewers, whether they follow it.
type ProfileResponse struct {
	model.ProfileStats
	IsFollowing *bool `json:"is_following,omitempty"`
	IsOwn       bool  `json:"is_own"`
}

// HandleGet returns a profile by handle.
//
// HTTP: GET /api/users/{handle}
// Auth: optional
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := h.gw.GetProfileByHandle(ctx, chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, err)
		return
	}

	followers, err := h.gw.FollowerCount(ctx, profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	following, err := h.gw.FollowingCount(ctx, profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ProfileResponse{
		ProfileStats: model.ProfileStats{Profile: *profile, Followers: followers, Following: following},
	}

	if viewerID, ok := auth.UserIDFromContext(ctx); ok {
		resp.IsOwn = viewerID == profile.ID
		if !resp.IsOwn {
			isFollowing, err := h.gw.IsFollowing(ctx, viewerID, profile.ID)
			if err != nil {
				writeError(w, err)
				return
			}
			resp.IsFollowing = &isFollowing
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdate saves the signed-in user's whole profile draft in one update.
//
// HTTP: PUT /api/me/profile
// Auth: required
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update model.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.Profile(update); err != nil {
		writeError(w, err)
		return
	}

	p := session.NewProvider(h.deps)
	if err := p.Start(r.Context(), auth.TokenFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}
	if p.State() != session.Authenticated {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	profile, err := p.UpdateProfile(r.Context(), update)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// AvailabilityResponse answers a handle check. Status is "idle" when the
// handle is the caller's own, otherwise "available" or "taken".
type AvailabilityResponse struct {
	Handle    string `json:"user_id"`
	Available bool   `json:"available"`
	Status    string `json:"status"`
}

// HandleAvailability checks whether a handle is free. The format is
// checked first and a malformed handle never reaches the database.
//
// HTTP: GET /api/handles/{handle}/available
// Auth: optional
func (h *ProfileHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	if err := validate.Handle(handle); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	if viewerID, ok := auth.UserIDFromContext(ctx); ok {
		if own, err := h.gw.GetProfileByID(ctx, viewerID); err == nil && own.Handle == handle {
			writeJSON(w, http.StatusOK, AvailabilityResponse{Handle: handle, Available: true, Status: "idle"})
			return
		}
	}

	available, err := h.gw.CheckHandleAvailable(ctx, handle)
	if err != nil {
		h.logger.Warn("handle check failed", slog.String("handle", handle), slog.String("error", err.Error()))
		if ctx.Err() != nil {
			err = apperror.Unavailable("check handle", ctx.Err())
		}
		writeError(w, err)
		return
	}

	status := "available"
	if !available {
		status = "taken"
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{Handle: handle, Available: available, Status: status})
}
