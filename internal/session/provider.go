// Package session holds the signed-in state of one client: who the user is,
// their cached profile and the token that proves it.
//
// A Provider is an ordinary value. It is created explicitly, passed to
// whatever needs the current user, and torn down by SignOut. The HTTP
// layer builds one per request from the request's token.
//
// STATES:
//
//	Unresolved ──Start──▶ Authenticated | Anonymous
//	Anonymous ──SignIn/SignUp──▶ Authenticated
//	any ──SignOut──▶ Anonymous
//
// Authenticated is reached only when both the identity check and the
// profile fetch succeed. If the profile cannot be loaded after the identity
// check passed, the provider falls back to Anonymous and returns ErrLoad.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/auth"
	"github.com/livme/livme/internal/gateway"
	"github.com/livme/livme/internal/model"
	"github.com/livme/livme/internal/validate"
)

type State int

const (
	Unresolved State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unresolved"
	}
}

// IdentityStore is the account side of the session. *auth.Identities
// satisfies it.
type IdentityStore interface {
	SignUp(ctx context.Context, email, password string) (*model.Identity, error)
	SignIn(ctx context.Context, email, password string) (*model.Identity, error)
	SignInExternal(ctx context.Context, provider, subject, email string) (*model.Identity, bool, error)
	Delete(ctx context.Context, id string) error
}

// Dependencies are shared by every Provider. Revoker may be nil.
type Dependencies struct {
	Identities IdentityStore
	Gateway    gateway.Gateway
	Tokens     *auth.TokenService
	Revoker    auth.Revoker
	Logger     *slog.Logger
}

type Provider struct {
	deps Dependencies

	mu      sync.RWMutex
	state   State
	profile *model.Profile
	token   string
	claims  *auth.Claims
	loading int
}

func NewProvider(deps Dependencies) *Provider {
	return &Provider{deps: deps, state: Unresolved}
}

// SignUpInput is everything registration needs: credentials plus the
// handle and display name for the new profile.
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Handle   string `json:"user_id"`
	Name     string `json:"name"`
}

// ExternalAccount describes an account at an outside identity provider.
type ExternalAccount struct {
	Provider string
	Subject  string
	Email    string
	Login    string
	Name     string
	Avatar   string
}

func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Profile returns a copy of the signed-in user's profile, or nil.
func (p *Provider) Profile() *model.Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return nil
	}
	return p.profile.Clone()
}

// Loading reports whether an operation is in progress.
func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading > 0
}

func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// UserID is the signed-in user's internal id, or "".
func (p *Provider) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.claims == nil {
		return ""
	}
	return p.claims.UserID
}

func (p *Provider) begin() func() {
	p.mu.Lock()
	p.loading++
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.loading--
		p.mu.Unlock()
	}
}

func (p *Provider) setAuthenticated(token string, c *auth.Claims, profile *model.Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Authenticated
	p.token = token
	p.claims = c
	p.profile = profile
}

func (p *Provider) setAnonymous() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Anonymous
	p.token = ""
	p.claims = nil
	p.profile = nil
}

// Start resolves an existing session from token. A missing, invalid,
// expired or revoked token is simply Anonymous. A valid token whose profile
// cannot be loaded is Anonymous plus ErrLoad.
func (p *Provider) Start(ctx context.Context, token string) error {
	done := p.begin()
	defer done()

	if token == "" {
		p.setAnonymous()
		return nil
	}

	c, err := p.deps.Tokens.Parse(token)
	if err != nil {
		p.setAnonymous()
		return nil
	}

	if p.deps.Revoker != nil {
		revoked, err := p.deps.Revoker.IsRevoked(ctx, c.TokenID)
		if err != nil {
			p.setAnonymous()
			return stageErr(ErrAuth, apperror.Unavailable("check token", err))
		}
		if revoked {
			p.setAnonymous()
			return nil
		}
	}

	profile, err := p.deps.Gateway.GetProfileByID(ctx, c.UserID)
	if err != nil {
		p.setAnonymous()
		return stageErr(ErrLoad, err)
	}

	p.setAuthenticated(token, c, profile)
	return nil
}

// SignIn checks credentials, issues a token and loads the profile.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*model.Profile, error) {
	done := p.begin()
	defer done()

	identity, err := p.deps.Identities.SignIn(ctx, email, password)
	if err != nil {
		return nil, stageErr(ErrAuth, err)
	}

	return p.establish(ctx, identity.ID)
}

// SignUp registers an identity and its profile. The two writes form a
// saga: if the profile row cannot be created, the identity is deleted again
// so no account is left without a profile.
func (p *Provider) SignUp(ctx context.Context, in SignUpInput) (*model.Profile, error) {
	done := p.begin()
	defer done()

	profile := &model.Profile{
		Handle:  strings.TrimSpace(in.Handle),
		Name:    strings.TrimSpace(in.Name),
		Bio:     model.DefaultBio,
		Gallery: []string{},
	}
	if err := validate.Profile(profile.Update()); err != nil {
		return nil, stageErr(ErrAuth, err)
	}

	available, err := p.deps.Gateway.CheckHandleAvailable(ctx, profile.Handle)
	if err != nil {
		return nil, stageErr(ErrAuth, err)
	}
	if !available {
		return nil, stageErr(ErrAuth, handleTaken(profile.Handle))
	}

	identity, err := p.deps.Identities.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return nil, stageErr(ErrAuth, err)
	}

	profile.ID = identity.ID
	if err := p.createProfile(ctx, identity.ID, profile); err != nil {
		return nil, stageErr(ErrAuth, err)
	}

	p.deps.Logger.Info("user registered",
		slog.String("userID", identity.ID),
		slog.String("handle", profile.Handle),
	)
	return p.establish(ctx, identity.ID)
}

// SignInExternal signs in with an account from an outside provider,
// registering identity and profile on first use.
func (p *Provider) SignInExternal(ctx context.Context, acct ExternalAccount) (*model.Profile, error) {
	done := p.begin()
	defer done()

	identity, created, err := p.deps.Identities.SignInExternal(ctx, acct.Provider, acct.Subject, acct.Email)
	if err != nil {
		return nil, stageErr(ErrAuth, err)
	}

	if created {
		handle, err := p.freeHandle(ctx, acct.Login)
		if err != nil {
			p.compensate(ctx, identity.ID, err)
			return nil, stageErr(ErrAuth, err)
		}

		name := strings.TrimSpace(acct.Name)
		if name == "" {
			name = handle
		}
		if len([]rune(name)) > validate.MaxNameLength {
			name = string([]rune(name)[:validate.MaxNameLength])
		}

		profile := &model.Profile{
			ID:      identity.ID,
			Handle:  handle,
			Name:    name,
			Bio:     model.DefaultBio,
			Avatar:  acct.Avatar,
			Gallery: []string{},
		}
		if err := p.createProfile(ctx, identity.ID, profile); err != nil {
			return nil, stageErr(ErrAuth, err)
		}
	}

	return p.establish(ctx, identity.ID)
}

// createProfile inserts the profile row and deletes the identity again when
// that fails.
func (p *Provider) createProfile(ctx context.Context, identityID string, profile *model.Profile) error {
	err := p.deps.Gateway.CreateProfile(ctx, profile)
	if err == nil {
		return nil
	}

	p.compensate(ctx, identityID, err)
	if errors.Is(err, apperror.ErrConflict) {
		return handleTaken(profile.Handle)
	}
	return err
}

func (p *Provider) compensate(ctx context.Context, identityID string, cause error) {
	p.deps.Logger.Warn("registration incomplete, removing identity",
		slog.String("identityID", identityID),
		slog.String("cause", cause.Error()),
	)
	// The request context may already be cancelled; cleanup must still run.
	if err := p.deps.Identities.Delete(context.WithoutCancel(ctx), identityID); err != nil {
		p.deps.Logger.Error("compensating identity delete failed",
			slog.String("identityID", identityID),
			slog.String("error", err.Error()),
		)
	}
}

// establish issues a token for userID and loads the profile. Only when both
// succeed does the provider become Authenticated.
func (p *Provider) establish(ctx context.Context, userID string) (*model.Profile, error) {
	token, err := p.deps.Tokens.Generate(userID)
	if err != nil {
		p.setAnonymous()
		return nil, stageErr(ErrAuth, err)
	}
	c, err := p.deps.Tokens.Parse(token)
	if err != nil {
		p.setAnonymous()
		return nil, stageErr(ErrAuth, err)
	}

	profile, err := p.deps.Gateway.GetProfileByID(ctx, userID)
	if err != nil {
		p.deps.Logger.Warn("signed in but profile could not be loaded",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		p.setAnonymous()
		return nil, stageErr(ErrLoad, err)
	}

	p.setAuthenticated(token, c, profile)
	return profile.Clone(), nil
}

// SignOut always ends in Anonymous. With a revoker configured the current
// token is also revoked; a failure there is returned after the local state
// has been cleared.
func (p *Provider) SignOut(ctx context.Context) error {
	done := p.begin()
	defer done()

	p.mu.RLock()
	c := p.claims
	p.mu.RUnlock()

	p.setAnonymous()
	return p.revoke(ctx, c)
}

// SignOutToken revokes token directly, whether or not its profile can be
// loaded, and ends in Anonymous. A token that does not parse has nothing
// left to revoke.
func (p *Provider) SignOutToken(ctx context.Context, token string) error {
	done := p.begin()
	defer done()

	p.setAnonymous()
	if token == "" {
		return nil
	}
	c, err := p.deps.Tokens.Parse(token)
	if err != nil {
		return nil
	}
	return p.revoke(ctx, c)
}

func (p *Provider) revoke(ctx context.Context, c *auth.Claims) error {
	if c == nil || p.deps.Revoker == nil {
		return nil
	}
	if err := p.deps.Revoker.Revoke(ctx, c.TokenID, c.ExpiresAt); err != nil {
		p.deps.Logger.Error("revoking token on sign-out",
			slog.String("userID", c.UserID),
			slog.String("error", err.Error()),
		)
		return stageErr(ErrAuth, apperror.Unavailable("revoke token", err))
	}
	return nil
}

// UpdateProfile saves the whole mutable subset of the signed-in user's
// profile. On success the cached profile is replaced by the stored one; on
// failure it is left untouched.
func (p *Provider) UpdateProfile(ctx context.Context, u model.ProfileUpdate) (*model.Profile, error) {
	done := p.begin()
	defer done()

	userID := p.UserID()
	if userID == "" {
		return nil, stageErr(ErrSave, apperror.Unauthorized("session: not signed in"))
	}

	updated, err := p.deps.Gateway.UpdateProfile(ctx, userID, u)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			err = handleTaken(u.Handle)
		}
		return nil, stageErr(ErrSave, err)
	}

	p.mu.Lock()
	if p.state == Authenticated && p.claims != nil && p.claims.UserID == userID {
		p.profile = updated
	}
	p.mu.Unlock()

	return updated.Clone(), nil
}

// Refresh re-reads the signed-in user's profile. A failure leaves the
// cached profile as it was.
func (p *Provider) Refresh(ctx context.Context) (*model.Profile, error) {
	done := p.begin()
	defer done()

	userID := p.UserID()
	if userID == "" {
		return nil, stageErr(ErrLoad, apperror.Unauthorized("session: not signed in"))
	}

	profile, err := p.deps.Gateway.GetProfileByID(ctx, userID)
	if err != nil {
		return nil, stageErr(ErrLoad, err)
	}

	p.mu.Lock()
	if p.claims != nil && p.claims.UserID == userID {
		p.profile = profile
	}
	p.mu.Unlock()

	return profile.Clone(), nil
}

func handleTaken(handle string) error {
	return &apperror.AppError{
		Err:     apperror.ErrConflict,
		Message: fmt.Sprintf("handle %q is already taken", handle),
		Field:   validate.FieldHandle,
	}
}
