package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(Config{
		DBPath:    ":memory:",
		JWTSecret: "server-test-secret-0123456789",
		TokenTTL:  time.Hour,
	}, logger, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func serve(t *testing.T, srv *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewRejectsShortSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(Config{DBPath: ":memory:", JWTSecret: "short"}, logger, nil, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(t, srv, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(t, srv, http.MethodGet, "/api/nothing-here", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// A full visit: register, record a live, read the public timeline, sign
// out. Sign-out must hold without Redis.
func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(t, srv, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
		"user_id":  "alice",
		"name":     "Alice",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))

	rec = serve(t, srv, http.MethodPost, "/api/lives", map[string]string{
		"title": "ツアーファイナル",
		"date":  "2024-12-24",
		"venue": "東京ドーム",
	}, sess.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(t, srv, http.MethodGet, "/api/users/alice/lives", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2024年12月")

	rec = serve(t, srv, http.MethodPost, "/api/auth/signout", nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, srv, http.MethodGet, "/api/auth/me", nil, sess.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImagesWithoutStore(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(t, srv, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    "bob@example.com",
		"password": "secret123",
		"user_id":  "bob",
		"name":     "Bob",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "a.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGitHubDisabled(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(t, srv, http.MethodGet, "/auth/github/login", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
