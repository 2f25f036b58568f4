// Package profileedit is the profile edit workflow: it turns the persisted
// profile into a draft, validates the draft as the user types, checks handle
// availability in the background, and then commits or discards the draft as
// a whole.
//
// HANDLE CHECKS:
// Every handle change bumps a request token and stops the pending timer, so
// only the most recent value is ever checked. A check that was already in
// flight when the handle changed finds a newer token on return and its
// result is dropped.
package profileedit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/model"
	"github.com/livme/livme/internal/validate"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultCheckTimeout = 5 * time.Second
)

var (
	// ErrAvailabilityCheck marks a handle check that could not be answered.
	ErrAvailabilityCheck = errors.New("profileedit: availability check failed")
	// ErrSave marks a draft the backend did not accept.
	ErrSave = errors.New("profileedit: save failed")
	// ErrNotEditing is returned by operations that need an open draft.
	ErrNotEditing = errors.New("profileedit: not editing")
)

// Checker answers whether a handle is free. gateway.Gateway satisfies it.
type Checker interface {
	CheckHandleAvailable(ctx context.Context, handle string) (bool, error)
}

// Saver commits a draft and re-reads the stored profile. *session.Provider
// satisfies it.
type Saver interface {
	UpdateProfile(ctx context.Context, u model.ProfileUpdate) (*model.Profile, error)
	Refresh(ctx context.Context) (*model.Profile, error)
}

type Options struct {
	Debounce     time.Duration
	CheckTimeout time.Duration
	Scheduler    Scheduler
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.CheckTimeout <= 0 {
		o.CheckTimeout = DefaultCheckTimeout
	}
	if o.Scheduler == nil {
		o.Scheduler = clockScheduler{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Editor holds one user's draft. It is safe to call from several
// goroutines; the debounce timer fires on its own goroutine.
type Editor struct {
	checker Checker
	saver   Saver
	opts    Options

	mu            sync.Mutex
	editing       bool
	closed        bool
	saving        bool
	persisted     *model.Profile
	draft         model.ProfileUpdate
	status        HandleStatus
	checkErr      error
	token         uint64
	timer         Timer
	cancelCheck   context.CancelFunc
	pendingAvatar bool
}

func NewEditor(checker Checker, saver Saver, opts Options) *Editor {
	return &Editor{
		checker: checker,
		saver:   saver,
		opts:    opts.withDefaults(),
	}
}

// Begin enters edit mode with a draft seeded from the persisted profile.
func (e *Editor) Begin(persisted *model.Profile) error {
	if persisted == nil {
		return apperror.NotFound("profile", "")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrNotEditing
	}
	e.stopCheckLocked()
	e.persisted = persisted.Clone()
	e.resetDraftLocked()
	e.editing = true
	return nil
}

func (e *Editor) resetDraftLocked() {
	e.draft = e.persisted.Update()
	e.status = Idle
	e.checkErr = nil
	e.pendingAvatar = false
}

// stopCheckLocked invalidates any scheduled or in-flight check.
func (e *Editor) stopCheckLocked() {
	e.token++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancelCheck != nil {
		e.cancelCheck()
		e.cancelCheck = nil
	}
}

func (e *Editor) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// Draft returns a copy of the working values.
func (e *Editor) Draft() model.ProfileUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyUpdate(e.draft)
}

// Persisted returns a copy of the last saved profile, or nil before Begin.
func (e *Editor) Persisted() *model.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.persisted == nil {
		return nil
	}
	return e.persisted.Clone()
}

func (e *Editor) HandleStatus() HandleStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// CheckError is the error of the last failed availability check, wrapped
// in ErrAvailabilityCheck, or nil.
func (e *Editor) CheckError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkErr
}

func (e *Editor) edit(fn func(d *model.ProfileUpdate)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	fn(&e.draft)
	return nil
}

func (e *Editor) SetName(name string) error {
	return e.edit(func(d *model.ProfileUpdate) { d.Name = name })
}

func (e *Editor) SetBio(bio string) error {
	return e.edit(func(d *model.ProfileUpdate) { d.Bio = bio })
}

func (e *Editor) SetLink(link string) error {
	return e.edit(func(d *model.ProfileUpdate) { d.Link = link })
}

func (e *Editor) SetSocial(social model.SocialLinks) error {
	return e.edit(func(d *model.ProfileUpdate) { d.Social = social })
}

// SetHandle records a keystroke in the handle field and moves the status:
// back to the persisted handle is Idle, a bad format is Invalid, anything
// else is Checking until the debounced check answers.
func (e *Editor) SetHandle(handle string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editing {
		return ErrNotEditing
	}

	e.draft.Handle = handle
	e.checkErr = nil
	e.stopCheckLocked()

	switch {
	case handle == e.persisted.Handle:
		e.status = Idle
	case validate.Handle(handle) != nil:
		e.status = Invalid
	default:
		e.status = Checking
		token := e.token
		e.timer = e.opts.Scheduler.AfterFunc(e.opts.Debounce, func() {
			e.runCheck(token, handle)
		})
	}
	return nil
}

func (e *Editor) runCheck(token uint64, handle string) {
	e.mu.Lock()
	if token != e.token || !e.editing {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.CheckTimeout)
	e.timer = nil
	e.cancelCheck = cancel
	e.mu.Unlock()

	available, err := e.checker.CheckHandleAvailable(ctx, handle)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if token != e.token {
		e.opts.Logger.Debug("dropping stale handle check", slog.String("handle", handle))
		return
	}
	e.cancelCheck = nil

	switch {
	case err != nil:
		e.opts.Logger.Warn("handle availability check failed",
			slog.String("handle", handle),
			slog.String("error", err.Error()),
		)
		e.status = Invalid
		e.checkErr = fmt.Errorf("%w: %w", ErrAvailabilityCheck, err)
	case available:
		e.status = Available
	default:
		e.status = Taken
	}
}

// FieldErrors maps every failing draft field to its message.
func (e *Editor) FieldErrors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return draftErrors(e.draft)
}

func draftErrors(d model.ProfileUpdate) map[string]string {
	errs := validate.ProfileErrors(d)
	if len(d.Gallery) > model.MaxGalleryImages {
		errs["gallery_images"] = "ギャラリー画像は最大6枚までです"
	}
	return errs
}

// CanSave reports whether Save would be attempted.
func (e *Editor) CanSave() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveBlockerLocked() == nil
}

func (e *Editor) saveBlockerLocked() error {
	if !e.editing {
		return ErrNotEditing
	}
	if e.saving {
		return apperror.ValidationFailed("", "保存中です")
	}
	if err := validate.Profile(e.draft); err != nil {
		return err
	}
	switch e.status {
	case Taken:
		return apperror.ValidationFailed(validate.FieldHandle, "このユーザーIDは既に使用されています")
	case Checking:
		return apperror.ValidationFailed(validate.FieldHandle, "ユーザーIDを確認しています")
	case Invalid:
		return apperror.ValidationFailed(validate.FieldHandle, "ユーザーIDを確認できませんでした")
	}
	return nil
}

// Save commits the draft as one update. On success edit mode ends and the
// profile is re-read to pick up server-side normalisation. On failure the
// draft stays as it was and the error wraps ErrSave.
func (e *Editor) Save(ctx context.Context) (*model.Profile, error) {
	e.mu.Lock()
	if err := e.saveBlockerLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.saving = true
	draft := copyUpdate(e.draft)
	e.mu.Unlock()

	saved, err := e.saver.UpdateProfile(ctx, draft)
	if err != nil {
		e.mu.Lock()
		e.saving = false
		// Someone claimed the handle between the check and the commit.
		if errors.Is(err, apperror.ErrConflict) && e.draft.Handle == draft.Handle &&
			(e.persisted == nil || draft.Handle != e.persisted.Handle) {
			e.stopCheckLocked()
			e.status = Taken
		}
		e.mu.Unlock()
		e.opts.Logger.Warn("saving profile draft", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrSave, err)
	}

	if refreshed, err := e.saver.Refresh(ctx); err != nil {
		e.opts.Logger.Warn("re-reading profile after save", slog.String("error", err.Error()))
	} else {
		saved = refreshed
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false
	e.stopCheckLocked()
	e.persisted = saved.Clone()
	e.resetDraftLocked()
	e.editing = false
	return saved.Clone(), nil
}

// Cancel throws the draft away and leaves edit mode. Nothing is sent.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopCheckLocked()
	if e.persisted != nil {
		e.resetDraftLocked()
	}
	e.editing = false
}

// Close cancels like Cancel and makes the editor unusable, so no timer can
// update it afterwards.
func (e *Editor) Close() {
	e.Cancel()
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// AddGalleryImage appends an image to the gallery as a data URL. A file
// that is too large, not an image, or over the gallery limit is rejected
// and the gallery is left as it was.
func (e *Editor) AddGalleryImage(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editing {
		return ErrNotEditing
	}
	if len(e.draft.Gallery) >= model.MaxGalleryImages {
		return apperror.ValidationFailed("gallery_images", "ギャラリー画像は最大6枚までです")
	}

	url, err := EncodeDataURL("gallery_images", data)
	if err != nil {
		return err
	}
	e.draft.Gallery = append(e.draft.Gallery, url)
	return nil
}

func (e *Editor) RemoveGalleryImage(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editing {
		return ErrNotEditing
	}
	if index < 0 || index >= len(e.draft.Gallery) {
		return apperror.ValidationFailed("gallery_images", "削除する画像が見つかりません")
	}
	gallery := make([]string, 0, len(e.draft.Gallery)-1)
	gallery = append(gallery, e.draft.Gallery[:index]...)
	e.draft.Gallery = append(gallery, e.draft.Gallery[index+1:]...)
	return nil
}

// SetAvatarFile uses an uploaded file as the avatar.
func (e *Editor) SetAvatarFile(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editing {
		return ErrNotEditing
	}
	url, err := EncodeDataURL("avatar_url", data)
	if err != nil {
		return err
	}
	e.draft.Avatar = url
	e.pendingAvatar = true
	return nil
}

// ChoosePresetAvatar picks one of PresetAvatars, replacing any uploaded
// file.
func (e *Editor) ChoosePresetAvatar(url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editing {
		return ErrNotEditing
	}
	if !isPreset(url) {
		return apperror.ValidationFailed("avatar_url", "選択できないアバターです")
	}
	e.draft.Avatar = url
	e.pendingAvatar = false
	return nil
}

// PendingAvatarUpload reports whether the draft avatar is a file chosen in
// this edit session.
func (e *Editor) PendingAvatarUpload() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingAvatar
}

func copyUpdate(u model.ProfileUpdate) model.ProfileUpdate {
	gallery := make([]string, len(u.Gallery))
	copy(gallery, u.Gallery)
	u.Gallery = gallery
	return u
}
