package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/auth"
	"github.com/livme/livme/internal/gateway"
	"github.com/livme/livme/internal/handler"
	"github.com/livme/livme/internal/model"
	sqliteRepo "github.com/livme/livme/internal/repository/sqlite"
	"github.com/livme/livme/internal/session"
	"github.com/livme/livme/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "https://img.test/" + key, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// outageGateway fails profile reads by id while down is set.
type outageGateway struct {
	gateway.Gateway
	down atomic.Bool
}

func (g *outageGateway) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	if g.down.Load() {
		return nil, apperror.Unavailable("get profile", errors.New("connection refused"))
	}
	return g.Gateway.GetProfileByID(ctx, id)
}

type testAPI struct {
	router http.Handler
	store  *memStore
	gw     *outageGateway
}

// newTestAPI mounts every handler the way the server does, over an
// in-memory database and object store.
func newTestAPI(t *testing.T, github *auth.GitHubProvider) *testAPI {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &memStore{objects: map[string][]byte{}}

	tokens, err := auth.NewTokenService("test-secret-at-least-32-bytes-long!!", time.Hour)
	require.NoError(t, err)
	revoker := auth.NewMemoryRevoker()

	var images storage.ObjectStore = store
	gw := &outageGateway{Gateway: gateway.NewRemote(db.Profiles(), db.Lives(), db.Follows(), images, logger)}
	deps := session.Dependencies{
		Identities: auth.NewIdentities(db.Identities(), auth.NewPasswordServiceForTest(bcrypt.MinCost), logger),
		Gateway:    gw,
		Tokens:     tokens,
		Revoker:    revoker,
		Logger:     logger,
	}
	authn := auth.NewAuthenticator(tokens, revoker, logger)

	authH := handler.NewAuthHandler(deps, github, false, logger)
	profileH := handler.NewProfileHandler(gw, deps, time.Second, logger)
	liveH := handler.NewLiveHandler(gw, logger)
	followH := handler.NewFollowHandler(gw, logger)
	imageH := handler.NewImageHandler(gw, logger)

	r := chi.NewRouter()
	r.Get("/auth/github/login", authH.HandleGitHubLogin)
	r.Get("/auth/github/callback", authH.HandleGitHubCallback)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authH.HandleSignUp)
		r.Post("/auth/signin", authH.HandleSignIn)
		r.Post("/auth/signout", authH.HandleSignOut)
		r.Get("/auth/me", authH.HandleMe)

		r.Group(func(r chi.Router) {
			r.Use(authn.OptionalAuth)
			r.Get("/users/{handle}", profileH.HandleGet)
			r.Get("/users/{handle}/lives", liveH.HandleListByUser)
			r.Get("/handles/{handle}/available", profileH.HandleAvailability)
			r.Get("/lives/{id}", liveH.HandleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth)
			r.Put("/me/profile", profileH.HandleUpdate)
			r.Post("/lives", liveH.HandleCreate)
			r.Put("/lives/{id}", liveH.HandleUpdate)
			r.Delete("/lives/{id}", liveH.HandleDelete)
			r.Get("/users/{handle}/follow", followH.HandleStatus)
			r.Put("/users/{handle}/follow", followH.HandleFollow)
			r.Delete("/users/{handle}/follow", followH.HandleUnfollow)
			r.Post("/images", imageH.HandleUpload)
			r.Delete("/images/*", imageH.HandleDelete)
		})
	})

	return &testAPI{router: r, store: store, gw: gw}
}

// do sends body as JSON (nil for none) with an optional Bearer token.
func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// signUp registers handle with a derived email and returns its session.
func (a *testAPI) signUp(t *testing.T, handle string) handler.SessionResponse {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/auth/signup", session.SignUpInput{
		Email:    handle + "@example.com",
		Password: "secret123",
		Handle:   handle,
		Name:     handle,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp handler.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind, field string) handler.ErrorResponse {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	resp := decodeBody[handler.ErrorResponse](t, rec)
	assert.Equal(t, kind, resp.Error)
	assert.Equal(t, field, resp.Field)
	assert.NotEmpty(t, resp.Message)
	return resp
}
