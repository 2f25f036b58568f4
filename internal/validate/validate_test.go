package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/model"
)

func TestField(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		wantErr bool
	}{
		{"name ok", FieldName, "Alice", false},
		{"name empty", FieldName, "", true},
		{"name whitespace only", FieldName, "   ", true},
		{"name at limit", FieldName, strings.Repeat("a", 50), false},
		{"name over limit", FieldName, strings.Repeat("a", 51), true},
		{"name counts runes not bytes", FieldName, strings.Repeat("あ", 50), false},

		{"handle ok", FieldHandle, "bob_2024", false},
		{"handle empty", FieldHandle, "", true},
		{"handle too short", FieldHandle, "al", true},
		{"handle min length", FieldHandle, "abc", false},
		{"handle max length", FieldHandle, strings.Repeat("x", 30), false},
		{"handle too long", FieldHandle, strings.Repeat("x", 31), true},
		{"handle dash", FieldHandle, "al-ice", true},
		{"handle space", FieldHandle, "al ice", true},
		{"handle non ascii", FieldHandle, "ありす", true},

		{"bio empty", FieldBio, "", false},
		{"bio at limit", FieldBio, strings.Repeat("b", 200), false},
		{"bio over limit", FieldBio, strings.Repeat("b", 201), true},

		{"link empty", FieldLink, "", false},
		{"link http", FieldLink, "http://example.com", false},
		{"link https", FieldLink, "https://example.com/me", false},
		{"link no scheme", FieldLink, "example.com", true},
		{"link ftp", FieldLink, "ftp://example.com", true},

		{"unknown field", "nickname", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Field(tt.field, tt.value)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestField_HandleMessages(t *testing.T) {
	assert.EqualError(t, Handle(""), "ユーザーIDを入力してください")
	assert.EqualError(t, Handle("al"), "ユーザーIDは3〜30文字で入力してください")
	assert.EqualError(t, Handle("al-ice"), "ユーザーIDは英数字とアンダースコアのみ使用できます")
}

func validUpdate() model.ProfileUpdate {
	return model.ProfileUpdate{
		Handle: "alice",
		Name:   "Alice",
		Bio:    "live music fan",
		Link:   "https://alice.example.com",
	}
}

func TestProfile(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Profile(validUpdate()))
	})

	t.Run("first failing field wins", func(t *testing.T) {
		u := validUpdate()
		u.Name = ""
		u.Link = "nope"

		var appErr *apperror.AppError
		require.True(t, errors.As(Profile(u), &appErr))
		assert.Equal(t, FieldName, appErr.Field)
	})

	t.Run("too many gallery images", func(t *testing.T) {
		u := validUpdate()
		u.Gallery = make([]string, model.MaxGalleryImages+1)

		err := Profile(u)
		assert.True(t, errors.Is(err, apperror.ErrValidation))
	})
}

func TestProfileErrors(t *testing.T) {
	assert.Empty(t, ProfileErrors(validUpdate()))

	u := validUpdate()
	u.Handle = "a"
	u.Bio = strings.Repeat("x", 201)

	errs := ProfileErrors(u)
	assert.Len(t, errs, 2)
	assert.Contains(t, errs, FieldHandle)
	assert.Contains(t, errs, FieldBio)
}

func TestLiveEvent(t *testing.T) {
	valid := model.LiveEventInput{
		Title: "Summer Sonic",
		Date:  model.MustDate("2024-08-17"),
		Venue: "ZOZO Marine Stadium",
	}

	tests := []struct {
		name      string
		mutate    func(*model.LiveEventInput)
		wantField string
	}{
		{"valid", func(*model.LiveEventInput) {}, ""},
		{"missing title", func(in *model.LiveEventInput) { in.Title = " " }, "title"},
		{"missing date", func(in *model.LiveEventInput) { in.Date = model.Date{} }, "date"},
		{"missing venue", func(in *model.LiveEventInput) { in.Venue = "" }, "venue"},
		{"good time", func(in *model.LiveEventInput) { in.Time = "18:30" }, ""},
		{"bad time", func(in *model.LiveEventInput) { in.Time = "6pm" }, "time"},
		{"bad link", func(in *model.LiveEventInput) { in.Link = "tickets.example.com" }, "link"},
		{"long artist", func(in *model.LiveEventInput) { in.Artist = strings.Repeat("a", 101) }, "artist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			err := LiveEvent(in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr), "want validation error, got %v", err)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("fan@example.com"))
	assert.ErrorIs(t, Email(""), apperror.ErrValidation)
	assert.ErrorIs(t, Email("not-an-address"), apperror.ErrValidation)
}
