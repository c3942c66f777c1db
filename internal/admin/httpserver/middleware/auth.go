package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"go.uber.org/zap"

	appsession "finitefield.org/blog-admin/internal/admin/session"
)

type authContextKey string

const userContextKey authContextKey = "auth.user"

// AuthCookieName carries the bearer token issued at sign-in.
const AuthCookieName = "Authorization"

// User represents the signed-in account.
type User struct {
	UID   string
	Email string
	Roles []string
	Token string
}

// Authenticator resolves an incoming Bearer token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is returned when authentication fails.
var ErrUnauthorized = errors.New("unauthorized")

// AuthError contains reason codes for failed authentication attempts.
type AuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError constructs an AuthError with the provided reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

const (
	// ReasonMissingToken indicates an auth attempt without credentials.
	ReasonMissingToken = "missing_token"
	// ReasonTokenInvalid indicates a malformed or invalid token.
	ReasonTokenInvalid = "token_invalid"
	// ReasonTokenExpired indicates an expired token which may be recoverable.
	ReasonTokenExpired = "token_expired"
)

// AccountLookup resolves tokens issued by a local account store.
type AccountLookup interface {
	LookupAccount(token string) (email string, roles []string, ok bool)
}

// DefaultAuthenticator accepts any non-empty bearer token and is intended for local development.
func DefaultAuthenticator() Authenticator {
	return &passthroughAuthenticator{}
}

// DevelopmentAuthenticator resolves tokens issued by accounts to their own
// roles. Any other non-empty token is accepted as an administrator.
func DevelopmentAuthenticator(accounts AccountLookup) Authenticator {
	return &passthroughAuthenticator{accounts: accounts}
}

// Auth validates incoming requests and either attaches a User to context or redirects to login.
func Auth(authenticator Authenticator, loginPath string) func(http.Handler) http.Handler {
	if authenticator == nil {
		authenticator = DefaultAuthenticator()
	}
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				zap.L().Info("auth failure", zap.String("reason", ReasonMissingToken), zap.String("path", r.URL.Path))
				destroySession(r.Context())
				handleUnauthorized(w, r, loginPath, ReasonMissingToken)
				return
			}

			user, err := authenticator.Authenticate(r, token)
			if err != nil || user == nil {
				reason := ReasonTokenInvalid
				var authErr *AuthError
				if errors.As(err, &authErr) && authErr.Reason != "" {
					reason = authErr.Reason
				}
				if err == nil {
					err = ErrUnauthorized
				}
				zap.L().Info("auth failure", zap.String("reason", reason), zap.Error(err))
				destroySession(r.Context())
				handleUnauthorized(w, r, loginPath, reason)
				return
			}

			if sess, ok := SessionFromContext(r.Context()); ok {
				sess.SetUser(&appsession.User{
					UID:   user.UID,
					Email: user.Email,
					Roles: slices.Clone(user.Roles),
				})
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// ContextWithUser stores the user on ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user if present.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok && user != nil
}

// TokenFromRequest extracts a bearer token from the Authorization header or cookie.
func TokenFromRequest(r *http.Request) string {
	if token := parseBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return cookieToken(r)
}

func parseBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func cookieToken(r *http.Request) string {
	for _, name := range []string{AuthCookieName, "__session"} {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		val := strings.TrimSpace(c.Value)
		if val == "" {
			continue
		}
		if token := parseBearerToken(val); token != "" {
			return token
		}
		return val
	}
	return ""
}

func handleUnauthorized(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	if IsHTMXRequest(r.Context()) {
		if reason == ReasonTokenExpired {
			w.Header().Set("HX-Refresh", "true")
		} else {
			w.Header().Set("HX-Redirect", loginPath)
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	redirectURL := loginPath
	if reason == ReasonTokenExpired {
		if u, err := url.Parse(loginPath); err == nil {
			q := u.Query()
			q.Set("reason", "expired")
			u.RawQuery = q.Encode()
			redirectURL = u.String()
		}
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func destroySession(ctx context.Context) {
	if sess, ok := SessionFromContext(ctx); ok {
		sess.Destroy()
	}
}

type passthroughAuthenticator struct {
	accounts AccountLookup
}

func (p *passthroughAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	if p.accounts != nil {
		if email, roles, ok := p.accounts.LookupAccount(token); ok {
			return &User{
				UID:   token,
				Email: email,
				Roles: roles,
				Token: token,
			}, nil
		}
	}
	return &User{
		UID:   token,
		Roles: []string{"admin"},
		Token: token,
	}, nil
}
