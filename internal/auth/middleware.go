package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// CookieName is the cookie that carries the session token.
const CookieName = "token"

// contextKey is private so no other package can read or shadow the values
// stored here.
type contextKey string

const claimsKey contextKey = "claims"

var errNoToken = errors.New("auth: no token")

// Authenticator resolves the session token on a request. The revoker is
// optional; with none configured a signed-out token stays valid until it
// expires.
type Authenticator struct {
	tokens  *TokenService
	revoker Revoker
	logger  *slog.Logger
}

func NewAuthenticator(tokens *TokenService, revoker Revoker, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, revoker: revoker, logger: logger}
}

// RequireAuth rejects requests without a valid, unrevoked token with 401.
// A revocation store that cannot be reached yields 503.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := a.Authenticate(r)
		if err != nil {
			if errors.Is(err, errRevocationUnavailable) {
				writeAuthError(w, http.StatusServiceUnavailable, "unavailable", "session check unavailable")
				return
			}
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
	})
}

// OptionalAuth attaches the caller's claims when a valid token is present
// and otherwise lets the request through anonymously.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := a.Authenticate(r); err == nil {
			r = r.WithContext(WithClaims(r.Context(), c))
		}
		next.ServeHTTP(w, r)
	})
}

var errRevocationUnavailable = errors.New("auth: revocation store unavailable")

// Authenticate reads the token from the cookie or an Authorization header,
// verifies it and checks it against the revoker.
func (a *Authenticator) Authenticate(r *http.Request) (*Claims, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return nil, errNoToken
	}

	c, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	if a.revoker != nil {
		revoked, err := a.revoker.IsRevoked(r.Context(), c.TokenID)
		if err != nil {
			a.logger.Error("checking token revocation",
				slog.String("tokenID", c.TokenID),
				slog.String("error", err.Error()),
			)
			return nil, errRevocationUnavailable
		}
		if revoked {
			return nil, errors.New("auth: token revoked")
		}
	}

	return c, nil
}

// TokenFromRequest returns the raw token, preferring the cookie over a
// Bearer header. It returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.UserID == "" {
		return "", false
	}
	return c.UserID, true
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","message":"` + message + `"}`))
}
