package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livme/livme/internal/handler"
	"github.com/livme/livme/internal/model"
)

func createLive(t *testing.T, api *testAPI, token, title, date string) model.LiveEvent {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/api/lives", map[string]string{
		"title": title,
		"date":  date,
		"venue": "日本武道館",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[model.LiveEvent](t, rec)
}

func TestTimeline(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.signUp(t, "alice")

	createLive(t, api, alice.Token, "A", "2024-03-10")
	createLive(t, api, alice.Token, "B", "2024-05-01")
	createLive(t, api, alice.Token, "C", "2024-03-25")

	rec := api.do(t, http.MethodGet, "/api/users/alice/lives", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[handler.TimelineResponse](t, rec)
	assert.Equal(t, "alice", resp.Handle)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Months, 2)

	assert.Equal(t, "2024年5月", resp.Months[0].Key)
	require.Len(t, resp.Months[0].Events, 1)
	assert.Equal(t, "B", resp.Months[0].Events[0].Title)

	assert.Equal(t, "2024年3月", resp.Months[1].Key)
	require.Len(t, resp.Months[1].Events, 2)
	assert.Equal(t, "C", resp.Months[1].Events[0].Title)
	assert.Equal(t, "A", resp.Months[1].Events[1].Title)
}

func TestTimelineEmpty(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signUp(t, "alice")

	rec := api.do(t, http.MethodGet, "/api/users/alice/lives", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"alice","total":0,"months":[]}`, rec.Body.String())
}

func TestCreateLiveValidation(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.signUp(t, "alice")

	cases := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"no title", map[string]string{"date": "2024-01-01", "venue": "v"}, "title"},
		{"no date", map[string]string{"title": "t", "venue": "v"}, "date"},
		{"no venue", map[string]string{"title": "t", "date": "2024-01-01"}, "venue"},
		{"bad time", map[string]string{"title": "t", "date": "2024-01-01", "venue": "v", "time": "25:99"}, "time"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/lives", tc.body, alice.Token)
			assertError(t, rec, http.StatusBadRequest, "validation_error", tc.field)
		})
	}
}

func TestLiveOwnership(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.signUp(t, "alice")
	bob := api.signUp(t, "bob")

	e := createLive(t, api, alice.Token, "ワンマン", "2024-06-01")
	assert.Equal(t, alice.Profile.ID, e.OwnerID)

	edit := map[string]string{"title": "改題", "date": "2024-06-02", "venue": "Zepp"}

	t.Run("other user cannot edit", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/lives/"+e.ID, edit, bob.Token)
		assertError(t, rec, http.StatusForbidden, "forbidden", "")
	})

	t.Run("other user cannot delete", func(t *testing.T) {
		rec := api.do(t, http.MethodDelete, "/api/lives/"+e.ID, nil, bob.Token)
		assertError(t, rec, http.StatusForbidden, "forbidden", "")
	})

	t.Run("owner edits", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/lives/"+e.ID, edit, alice.Token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decodeBody[model.LiveEvent](t, rec)
		assert.Equal(t, "改題", got.Title)
		assert.Equal(t, "2024-06-02", got.Date.String())
	})

	t.Run("owner deletes", func(t *testing.T) {
		rec := api.do(t, http.MethodDelete, "/api/lives/"+e.ID, nil, alice.Token)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = api.do(t, http.MethodGet, "/api/lives/"+e.ID, nil, "")
		assertError(t, rec, http.StatusNotFound, "not_found", "")
	})
}

func TestLiveRequiresSignIn(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/lives", map[string]string{"title": "t"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
