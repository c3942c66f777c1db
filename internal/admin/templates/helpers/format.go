package helpers

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"

	"finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/blog-admin/internal/admin/i18n"
)

// Date formats the timestamp in the provided layout (defaults to 2006-01-02 15:04 MST).
func Date(ts time.Time, layout string) string {
	if ts.IsZero() {
		return ""
	}
	if layout == "" {
		layout = "2006-01-02 15:04 MST"
	}
	return ts.In(time.Local).Format(layout)
}

// Translator returns the translator for the request language. The bundle is
// installed by WithBundle; without one every lookup yields its fallback.
func Translator(ctx context.Context) i18n.Translator {
	bundle, _ := ctx.Value(bundleKey{}).(*i18n.Bundle)
	if bundle == nil {
		return i18n.Passthrough()
	}
	return bundle.For(middleware.LangFromContext(ctx))
}

// T translates key for the request language.
func T(ctx context.Context, key, fallback string) string {
	return Translator(ctx).T(key, fallback)
}

type bundleKey struct{}

// WithBundle makes bundle available to T and Translator.
func WithBundle(ctx context.Context, bundle *i18n.Bundle) context.Context {
	return context.WithValue(ctx, bundleKey{}, bundle)
}

// NavClass returns sidebar link classes.
func NavClass(active bool) string {
	if active {
		return "flex items-center gap-2 rounded-md bg-slate-900 px-3 py-2 text-sm font-medium text-white shadow-sm"
	}
	return "flex items-center gap-2 rounded-md px-3 py-2 text-sm font-medium text-slate-600 hover:bg-slate-100 hover:text-slate-900"
}

// BadgeClass maps semantic tones to utility classes.
func BadgeClass(tone string) string {
	switch tone {
	case "success":
		return "inline-flex items-center rounded-full bg-emerald-100 px-2 py-1 text-xs font-medium text-emerald-700"
	case "warning":
		return "inline-flex items-center rounded-full bg-amber-100 px-2 py-1 text-xs font-medium text-amber-700"
	case "danger":
		return "inline-flex items-center rounded-full bg-rose-100 px-2 py-1 text-xs font-medium text-rose-700"
	default:
		return "inline-flex items-center rounded-full bg-slate-100 px-2 py-1 text-xs font-medium text-slate-700"
	}
}

// StatusTone maps a post status onto a badge tone.
func StatusTone(status string) string {
	switch status {
	case "published":
		return "success"
	case "draft":
		return "warning"
	case "rejected":
		return "danger"
	default:
		return ""
	}
}

// TextComponent returns a templ component that renders escaped text.
func TextComponent(value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(value))
		return err
	})
}
