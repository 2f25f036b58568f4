package profileedit

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/gateway"
)

// PresetAvatars are the built-in avatars a user can pick instead of
// uploading a file.
var PresetAvatars = []string{
	"/avatars/guitar.png",
	"/avatars/drum.png",
	"/avatars/mic.png",
	"/avatars/keyboard.png",
	"/avatars/lightstick.png",
	"/avatars/ticket.png",
}

func isPreset(url string) bool {
	for _, p := range PresetAvatars {
		if p == url {
			return true
		}
	}
	return false
}

// EncodeDataURL checks that data is an image no larger than
// gateway.MaxImageBytes and returns it as a base64 data URL.
func EncodeDataURL(field string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperror.ValidationFailed(field, "画像ファイルが空です")
	}
	if len(data) > gateway.MaxImageBytes {
		return "", apperror.ValidationFailed(field, "画像サイズは5MB以下にしてください")
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", apperror.ValidationFailed(field, "画像ファイルを選択してください")
	}

	return "data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
