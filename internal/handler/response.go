package handler

// Every error response has the same shape:
//
//	{"error": "conflict", "message": "このユーザーIDは既に使用されています", "field": "user_id"}
//
// "error" is the machine-readable kind; "message" is ready to show to the
// user.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/session"
)

// maxJSONBody bounds request bodies. Profiles carry inline data URLs, so
// this has to fit a full gallery.
const maxJSONBody = 48 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sets headers and status before the body; anything set after the
// first write is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps an error kind to its status. Internal errors never leak
// their text to the client.
func writeError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)

	resp := ErrorResponse{
		Error:   kind.String(),
		Message: session.Message(err),
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && kind != apperror.KindInternal {
		resp.Field = appErr.Field
	}

	writeJSON(w, statusFor(kind), resp)
}

// decodeJSON reads a JSON body into dst. A malformed body is a validation
// error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &apperror.AppError{
			Err:     apperror.ErrValidation,
			Message: fmt.Sprintf("invalid JSON body: %v", err),
		}
	}
	return nil
}
