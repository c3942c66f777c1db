package middleware

import (
	"context"
	"net/http"
	"strings"

	"finitefield.org/blog-admin/internal/admin/i18n"
)

type localeContextKey struct{}

const localeCookieName = "hl"

// Locale resolves the request language: an explicit ?hl= wins and is
// remembered in the session and the hl cookie, then the session, then the
// cookie, then Accept-Language.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := resolveLocale(w, r, bundle)
			w.Header().Set("Content-Language", lang)
			w.Header().Add("Vary", "Accept-Language")

			ctx := context.WithValue(r.Context(), localeContextKey{}, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveLocale(w http.ResponseWriter, r *http.Request, bundle *i18n.Bundle) string {
	sess, hasSession := SessionFromContext(r.Context())

	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("hl"))); q != "" && bundle.IsSupported(q) {
		if hasSession {
			sess.SetLocale(q)
		}
		http.SetCookie(w, &http.Cookie{Name: localeCookieName, Value: q, Path: "/", SameSite: http.SameSiteLaxMode})
		return q
	}
	if hasSession && bundle.IsSupported(sess.Locale()) {
		return sess.Locale()
	}
	if c, err := r.Cookie(localeCookieName); err == nil && bundle.IsSupported(c.Value) {
		return strings.ToLower(c.Value)
	}
	return bundle.Resolve(r.Header.Get("Accept-Language"))
}

// LangFromContext returns the resolved language, or "en" outside the middleware.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(localeContextKey{}).(string); ok && lang != "" {
		return lang
	}
	return "en"
}

// ContextWithLang overrides the resolved language on ctx.
func ContextWithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, lang)
}
