package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/livme/livme/internal/apperror"
	"github.com/livme/livme/internal/auth"
	"github.com/livme/livme/internal/model"
	"github.com/livme/livme/internal/session"
)

const stateCookie = "oauth_state"

// AuthHandler exposes the session provider over HTTP. Each request gets its
// own Provider, resolved from the request's token where needed.
type AuthHandler struct {
	deps          session.Dependencies
	github        *auth.GitHubProvider // nil when GitHub sign-in is not configured
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(deps session.Dependencies, github *auth.GitHubProvider, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		deps:          deps,
		github:        github,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// SessionResponse is returned by every call that establishes a session.
// The token is also set as an HttpOnly cookie; it is echoed here for
// clients that send it as a Bearer header instead.
type SessionResponse struct {
	Profile *model.Profile `json:"profile"`
	Token   string         `json:"token"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.deps.Tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleSignUp registers an account and its profile.
//
// HTTP: POST /api/auth/signup
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req session.SignUpInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	p := session.NewProvider(h.deps)
	profile, err := p.SignUp(r.Context(), req)
	if err != nil {
		h.logger.Info("sign-up rejected", slog.String("kind", apperror.KindOf(err).String()))
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, p.Token())
	writeJSON(w, http.StatusCreated, SessionResponse{Profile: profile, Token: p.Token()})
}

// HandleSignIn checks email and password.
//
// HTTP: POST /api/auth/signin
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	p := session.NewProvider(h.deps)
	profile, err := p.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, p.Token())
	writeJSON(w, http.StatusOK, SessionResponse{Profile: profile, Token: p.Token()})
}

// HandleSignOut revokes the caller's token and clears the cookie. The
// profile is never read, so sign-out works while profiles are unreachable.
// It succeeds for anonymous callers too.
//
// HTTP: POST /api/auth/signout
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	p := session.NewProvider(h.deps)
	if err := p.SignOutToken(r.Context(), auth.TokenFromRequest(r)); err != nil {
		h.clearSessionCookie(w)
		writeError(w, err)
		return
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p := session.NewProvider(h.deps)
	if err := p.Start(r.Context(), auth.TokenFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}
	if p.State() != session.Authenticated {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	writeJSON(w, http.StatusOK, p.Profile())
}

// HandleGitHubLogin sends the browser to GitHub. A random state is kept in
// a short-lived cookie and compared on the callback.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.Unavailable("github sign-in", errors.New("not configured")))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes the GitHub flow, registering identity and
// profile on first sign-in, then redirects to the signed-in user's page.
//
// HTTP: GET /auth/github/callback?code=...&state=...
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.Unavailable("github sign-in", errors.New("not configured")))
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("github callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized("github authentication failed"))
		return
	}

	p := session.NewProvider(h.deps)
	profile, err := p.SignInExternal(r.Context(), session.ExternalAccount{
		Provider: model.ProviderGitHub,
		Subject:  ghUser.Subject(),
		Email:    ghUser.Email,
		Login:    ghUser.Login,
		Name:     ghUser.Name,
		Avatar:   ghUser.AvatarURL,
	})
	if err != nil {
		h.logger.Error("github callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	h.logger.Info("user signed in via GitHub",
		slog.String("userID", profile.ID),
		slog.String("handle", profile.Handle),
	)
	h.setSessionCookie(w, p.Token())
	http.Redirect(w, r, "/"+profile.Handle, http.StatusSeeOther)
}
