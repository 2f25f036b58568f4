package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livme/livme/internal/handler"
)

func TestFollowLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signUp(t, "alice")
	bob := api.signUp(t, "bob")

	status := func(method string) handler.FollowResponse {
		t.Helper()
		rec := api.do(t, method, "/api/users/alice/follow", nil, bob.Token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decodeBody[handler.FollowResponse](t, rec)
	}

	assert.Equal(t, handler.FollowResponse{Following: false, Followers: 0}, status(http.MethodGet))

	assert.Equal(t, handler.FollowResponse{Following: true, Followers: 1}, status(http.MethodPut))
	// Following again is idempotent.
	assert.Equal(t, handler.FollowResponse{Following: true, Followers: 1}, status(http.MethodPut))
	assert.Equal(t, handler.FollowResponse{Following: true, Followers: 1}, status(http.MethodGet))

	assert.Equal(t, handler.FollowResponse{Following: false, Followers: 0}, status(http.MethodDelete))
	assert.Equal(t, handler.FollowResponse{Following: false, Followers: 0}, status(http.MethodDelete))
}

func TestFollowUnknownUser(t *testing.T) {
	api := newTestAPI(t, nil)
	bob := api.signUp(t, "bob")

	rec := api.do(t, http.MethodPut, "/api/users/nobody/follow", nil, bob.Token)
	assertError(t, rec, http.StatusNotFound, "not_found", "")
}

func TestFollowRequiresSignIn(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signUp(t, "alice")

	rec := api.do(t, http.MethodPut, "/api/users/alice/follow", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
