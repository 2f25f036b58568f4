package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/auth"
	"github.com/livme/livme/internal/gateway"
)

// Image kinds, used as the second path segment of stored objects:
// <userID>/<kind>/<xid><ext>.
var imageKinds = map[string]bool{"avatar": true, "gallery": true}

type ImageHandler struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

func NewImageHandler(gw gateway.Gateway, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{gw: gw, logger: logger}
}

type ImageResponse struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// HandleUpload stores one image from the multipart field "file". The form
// field "kind" is avatar or gallery.
//
// HTTP: POST /api/images
// Auth: required
func (h *ImageHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, gateway.MaxImageBytes+1<<20)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperror.ValidationFailed("image", "画像サイズは5MB以下にしてください"))
			return
		}
		writeError(w, apperror.ValidationFailed("image", "画像ファイルを選択してください"))
		return
	}
	defer file.Close()

	kind := r.FormValue("kind")
	if kind == "" {
		kind = "gallery"
	}
	if !imageKinds[kind] {
		writeError(w, apperror.ValidationFailed("kind", "kind must be avatar or gallery"))
		return
	}

	// One byte past the limit is enough to tell the gateway it is too big.
	data, err := io.ReadAll(io.LimitReader(file, gateway.MaxImageBytes+1))
	if err != nil {
		writeError(w, apperror.ValidationFailed("image", "画像ファイルを読み込めませんでした"))
		return
	}

	path := userID + "/" + kind + "/" + xid.New().String() + mimetype.Detect(data).Extension()
	url, err := h.gw.UploadImage(r.Context(), data, path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ImageResponse{URL: url, Path: path})
}

// HandleDelete removes one of the caller's own images.
//
// HTTP: DELETE /api/images/*
// Auth: required
func (h *ImageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	path := chi.URLParam(r, "*")
	if !strings.HasPrefix(path, userID+"/") {
		writeError(w, apperror.Forbidden("images can only be deleted by their owner"))
		return
	}

	if err := h.gw.DeleteImage(r.Context(), path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
