package session

import (
	"errors"

	"github.com/livme/livme/internal/apperror"
)

// Stage errors say which step of a session operation failed. They sit
// alongside the apperror kind, so errors.Is(err, ErrLoad) and
// apperror.KindOf(err) both work on the same error.
var (
	ErrAuth = errors.New("session: authentication failed")
	ErrLoad = errors.New("session: profile load failed")
	ErrSave = errors.New("session: profile save failed")
)

// StageError pairs a stage sentinel with the underlying cause.
type StageError struct {
	Stage error
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage.Error() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() []error {
	return []error{e.Stage, e.Err}
}

func stageErr(stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Message turns any session, gateway or validation error into the text
// shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var appErr *apperror.AppError
	hasAppErr := errors.As(err, &appErr)

	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		if hasAppErr && appErr.Field != "" {
			return appErr.Message
		}
		return "入力内容を確認してください"
	case apperror.KindUnauthorized:
		return "メールアドレスまたはパスワードが正しくありません"
	case apperror.KindConflict:
		if hasAppErr && appErr.Field == "email" {
			return "このメールアドレスは既に登録されています"
		}
		return "このユーザーIDは既に使用されています"
	case apperror.KindForbidden:
		return "この操作を行う権限がありません"
	case apperror.KindNotFound:
		if errors.Is(err, ErrLoad) {
			return "プロフィールが見つかりませんでした"
		}
		return "データが見つかりませんでした"
	case apperror.KindUnavailable:
		return "サーバーに接続できませんでした。時間をおいて再度お試しください"
	}

	switch {
	case errors.Is(err, ErrLoad):
		return "プロフィールの読み込みに失敗しました"
	case errors.Is(err, ErrSave):
		return "プロフィールの保存に失敗しました"
	case errors.Is(err, ErrAuth):
		return "認証に失敗しました"
	}
	return "エラーが発生しました"
}
