// Package validate holds the synchronous field rules for profiles and live
// events. Every rule is pure: it never touches the network, and the same
// input always yields the same result.
package validate

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/model"
)

// Profile field names, as used in AppError.Field and in JSON.
const (
	FieldName   = "name"
	FieldHandle = "user_id"
	FieldBio    = "bio"
	FieldLink   = "link"
)

const (
	MaxNameLength   = 50
	MinHandleLength = 3
	MaxHandleLength = 30
	MaxBioLength    = 200
	MaxTitleLength  = 100
	MaxVenueLength  = 100
	MaxArtistLength = 100
)

var (
	handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	linkPattern   = regexp.MustCompile(`^https?://`)
)

// rule is one validator tag and the message shown when it fails.
// Rules for a field run in order and the first failure wins.
type rule struct {
	tag     string
	message string
}

var profileRules = map[string][]rule{
	FieldName: {
		{"required", "名前を入力してください"},
		{"max=50", "名前は50文字以内で入力してください"},
	},
	FieldHandle: {
		{"required", "ユーザーIDを入力してください"},
		{"min=3,max=30", "ユーザーIDは3〜30文字で入力してください"},
		{"handle", "ユーザーIDは英数字とアンダースコアのみ使用できます"},
	},
	FieldBio: {
		{"max=200", "自己紹介は200文字以内で入力してください"},
	},
	FieldLink: {
		{"omitempty,httplink", "リンクはhttp://またはhttps://で始めてください"},
	},
}

var liveRules = map[string][]rule{
	"title": {
		{"required", "タイトルを入力してください"},
		{"max=100", "タイトルは100文字以内で入力してください"},
	},
	"venue": {
		{"required", "会場を入力してください"},
		{"max=100", "会場は100文字以内で入力してください"},
	},
	"artist": {
		{"max=100", "アーティスト名は100文字以内で入力してください"},
	},
	"time": {
		{"omitempty,datetime=15:04", "時間はHH:MM形式で入力してください"},
	},
	"link": {
		{"omitempty,httplink", "リンクはhttp://またはhttps://で始めてください"},
	},
}

var (
	once     sync.Once
	instance *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Both registrations only fail on an empty tag or nil func.
		_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
			return handlePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("httplink", func(fl validator.FieldLevel) bool {
			return linkPattern.MatchString(fl.Field().String())
		})
		instance = v
	})
	return instance
}

func check(rules map[string][]rule, field, value string) error {
	for _, r := range rules[field] {
		if err := engine().Var(value, r.tag); err != nil {
			return apperror.ValidationFailed(field, r.message)
		}
	}
	return nil
}

// Field validates a single profile field. The name is trimmed first, so a
// whitespace-only name counts as empty. Unknown fields always pass.
func Field(field, value string) error {
	if field == FieldName {
		value = strings.TrimSpace(value)
	}
	return check(profileRules, field, value)
}

// Profile validates the whole draft and returns the first failing field in
// form order: name, user_id, bio, link.
func Profile(u model.ProfileUpdate) error {
	for _, f := range profileFields(u) {
		if err := Field(f.name, f.value); err != nil {
			return err
		}
	}
	if len(u.Gallery) > model.MaxGalleryImages {
		return apperror.ValidationFailed("gallery_images", "ギャラリー画像は最大6枚までです")
	}
	return nil
}

// ProfileErrors returns every failing profile field mapped to its message.
// An empty map means the draft is valid.
func ProfileErrors(u model.ProfileUpdate) map[string]string {
	errs := make(map[string]string)
	for _, f := range profileFields(u) {
		if err := Field(f.name, f.value); err != nil {
			errs[f.name] = err.Error()
		}
	}
	return errs
}

type namedValue struct {
	name  string
	value string
}

func profileFields(u model.ProfileUpdate) []namedValue {
	return []namedValue{
		{FieldName, u.Name},
		{FieldHandle, u.Handle},
		{FieldBio, u.Bio},
		{FieldLink, u.Link},
	}
}

// Handle is shorthand for Field(FieldHandle, h).
func Handle(h string) error {
	return Field(FieldHandle, h)
}

// LiveEvent checks the fields required to save a live event: title, date
// and venue must be present.
func LiveEvent(in model.LiveEventInput) error {
	if err := check(liveRules, "title", strings.TrimSpace(in.Title)); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return apperror.ValidationFailed("date", "日付を入力してください")
	}
	for _, f := range []namedValue{
		{"venue", strings.TrimSpace(in.Venue)},
		{"artist", in.Artist},
		{"time", in.Time},
		{"link", in.Link},
	} {
		if err := check(liveRules, f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// Email checks the address used for password sign-up.
func Email(email string) error {
	if err := engine().Var(email, "required"); err != nil {
		return apperror.ValidationFailed("email", "メールアドレスを入力してください")
	}
	if err := engine().Var(email, "email"); err != nil {
		return apperror.ValidationFailed("email", "メールアドレスの形式が正しくありません")
	}
	return nil
}
