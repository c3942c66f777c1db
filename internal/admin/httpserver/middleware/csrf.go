package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// CSRFFormField is the hidden input name checked when the header is absent.
const CSRFFormField = "_csrf"

// Reasons logged when an unsafe request is rejected.
const (
	CSRFReasonMissing  = "missing"
	CSRFReasonMismatch = "mismatch"
)

const csrfTokenBytes = 32

type csrfTokenKey struct{}

// CSRFConfig controls cookie/header behaviour.
type CSRFConfig struct {
	CookieName string
	CookiePath string
	HeaderName string
	MaxAge     time.Duration
	Secure     bool
	// Logger receives rejected requests. Defaults to zap.L().
	Logger *zap.Logger
}

func (c CSRFConfig) withDefaults() CSRFConfig {
	if c.CookieName == "" {
		c.CookieName = "admin_csrf"
	}
	if c.HeaderName == "" {
		c.HeaderName = "X-CSRF-Token"
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.MaxAge == 0 {
		c.MaxAge = 24 * time.Hour
	}
	if c.Logger == nil {
		c.Logger = zap.L()
	}
	return c
}

// CSRF attaches double-submit cookie protection. Every request carries a token
// in its context for forms to embed. Unsafe methods must echo the cookie value
// in the header or the _csrf form field.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	guard := &csrfGuard{cfg: cfg.withDefaults()}
	return guard.middleware
}

type csrfGuard struct {
	cfg CSRFConfig
}

func (g *csrfGuard) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := g.issue(w, r)
		if err != nil {
			g.cfg.Logger.Error("csrf token generation failed", zap.Error(err))
			http.Error(w, "csrf token error", http.StatusInternalServerError)
			return
		}

		if isUnsafeMethod(r.Method) {
			if reason := g.verify(r, token); reason != "" {
				g.cfg.Logger.Warn("csrf token rejected",
					zap.String("reason", reason),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Bool("htmx", IsHTMXRequest(r.Context())),
				)
				forbidden(w, r)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token)))
	})
}

// issue returns the cookie token, minting and setting a fresh one when absent.
func (g *csrfGuard) issue(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(g.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	raw := securecookie.GenerateRandomKey(csrfTokenBytes)
	if raw == nil {
		return "", errors.New("csrf: random source unavailable")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     g.cfg.CookiePath,
		HttpOnly: true,
		Secure:   g.cfg.Secure || r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(g.cfg.MaxAge.Seconds()),
	})
	return token, nil
}

// verify returns the rejection reason, or "" when the submitted token matches.
func (g *csrfGuard) verify(r *http.Request, token string) string {
	submitted := r.Header.Get(g.cfg.HeaderName)
	if submitted == "" {
		submitted = r.PostFormValue(CSRFFormField)
	}
	switch {
	case submitted == "":
		return CSRFReasonMissing
	case subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1:
		return CSRFReasonMismatch
	default:
		return ""
	}
}

// CSRFTokenFromContext returns the token issued for the current request.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfTokenKey{}).(string)
	return token
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}
