package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/auth"
	"github.com/livme/livme/internal/gateway"
	"github.com/livme/livme/internal/live"
	"github.com/livme/livme/internal/model"
)

type LiveHandler struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

func NewLiveHandler(gw gateway.Gateway, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{gw: gw, logger: logger}
}

// TimelineResponse is a user's attendance history grouped by month.
type TimelineResponse struct {
	Handle string            `json:"user_id"`
	Total  int               `json:"total"`
	Months []live.MonthGroup `json:"months"`
}

// HandleListByUser returns a user's events grouped by month, newest first.
//
// HTTP: GET /api/users/{handle}/lives
func (h *LiveHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.gw.GetProfileByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, err)
		return
	}

	groups, err := live.Grouped(r.Context(), h.gw, profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TimelineResponse{
		Handle: profile.Handle,
		Total:  live.Count(groups),
		Months: groups,
	})
}

// HandleGet returns one event.
//
// HTTP: GET /api/lives/{id}
func (h *LiveHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	e, err := h.gw.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleCreate adds an event owned by the caller.
//
// HTTP: POST /api/lives
// Auth: required
func (h *LiveHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	var in model.LiveEventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.gw.CreateEvent(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// HandleUpdate replaces an event's fields.
//
// HTTP: PUT /api/lives/{id}
// Auth: required, owner only
func (h *LiveHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.requireOwner(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	var in model.LiveEventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.gw.UpdateEvent(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleDelete removes an event.
//
// HTTP: DELETE /api/lives/{id}
// Auth: required, owner only
func (h *LiveHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.requireOwner(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	if err := h.gw.DeleteEvent(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LiveHandler) requireOwner(ctx context.Context, id string) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return apperror.Unauthorized("not signed in")
	}

	e, err := h.gw.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if e.OwnerID != userID {
		h.logger.Warn("live edit by non-owner",
			slog.String("liveID", id),
			slog.String("userID", userID),
		)
		return apperror.Forbidden("only the owner can change this live")
	}
	return nil
}
