package layout

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/blog-admin/internal/admin/templates/helpers"
	"finitefield.org/blog-admin/internal/admin/templates/partials"
)

// StaticPath is where the embedded assets are served.
const StaticPath = "/public/static"

// Flash is a notification shown above the page content.
type Flash struct {
	Kind    string
	Message string
}

// Base renders a complete HTML document around body.
func Base(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<!DOCTYPE html><html`)
		p.Attr("lang", middleware.LangFromContext(ctx))
		p.Raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.Raw(`<meta name="csrf-token"`)
		p.Attr("content", middleware.CSRFTokenFromContext(ctx))
		p.Raw(`><title>`)
		p.Text(pageTitle(ctx, title))
		p.Raw(`</title><link rel="stylesheet"`)
		p.Attr("href", StaticPath+"/admin.css")
		p.Raw(`></head><body class="min-h-screen bg-slate-50 text-slate-900">`)
		p.Component(ctx, body)
		p.Raw(`</body></html>`)
		return p.Err()
	})
}

// Centered places content in a narrow centred column, used by the auth pages.
func Centered(title string, content templ.Component) templ.Component {
	return Base(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<main class="mx-auto flex min-h-screen max-w-md flex-col justify-center px-4 py-12" data-auth-shell>`)
		p.Component(ctx, content)
		p.Raw(`</main>`)
		return p.Err()
	}))
}

// App wraps content in the signed-in chrome: topbar, sidebar and flash message.
func App(title string, flash *Flash, content templ.Component) templ.Component {
	return Base(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Component(ctx, partials.Topbar())
		p.Raw(`<div class="flex"><aside class="w-60 shrink-0 border-r border-slate-200 bg-white p-4">`)
		p.Component(ctx, partials.Sidebar(partials.BuildMenu(helpers.BasePath(ctx))))
		p.Raw(`</aside><main class="flex-1 space-y-4 p-6" id="content">`)
		if flash != nil {
			p.Component(ctx, partials.Flash(flash.Kind, flash.Message))
		}
		p.Component(ctx, content)
		p.Raw(`</main></div>`)
		return p.Err()
	}))
}

func pageTitle(ctx context.Context, title string) string {
	app := helpers.T(ctx, "app.title", "Blog Admin")
	if title == "" {
		return app
	}
	return title + " | " + app
}
