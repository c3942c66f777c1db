package partials

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/blog-admin/internal/admin/templates/helpers"
)

// Sidebar renders the navigation menu, hiding entries the user cannot reach.
func Sidebar(menu []MenuGroup) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<nav class="flex flex-col gap-6" data-sidebar>`)
		for _, group := range menu {
			if !hasVisibleItems(group, ctx) {
				continue
			}
			p.Raw(`<section`)
			p.Attr("data-menu-group", group.Key)
			p.Raw(`><h2 class="px-3 text-xs font-semibold uppercase tracking-wide text-slate-400">`)
			p.Text(helpers.T(ctx, group.LabelKey, group.Label))
			p.Raw(`</h2><ul class="mt-2 space-y-1">`)
			for _, item := range visibleItems(group, ctx) {
				active := helpers.NavActive(ctx, item.Pattern, item.MatchPrefix)
				p.Raw(`<li><a`)
				p.URLAttr("href", item.Href)
				p.Attr("class", helpers.NavClass(active))
				if active {
					p.Attr("aria-current", "page")
				}
				p.Raw(`>`)
				p.Text(helpers.T(ctx, item.LabelKey, item.Label))
				p.Raw(`</a></li>`)
			}
			p.Raw(`</ul></section>`)
		}
		p.Raw(`</nav>`)
		return p.Err()
	})
}

func hasVisibleItems(group MenuGroup, ctx context.Context) bool {
	return len(visibleItems(group, ctx)) > 0
}

func visibleItems(group MenuGroup, ctx context.Context) []MenuItem {
	if !helpers.HasCapability(ctx, group.Capability) {
		return nil
	}
	out := make([]MenuItem, 0, len(group.Items))
	for _, item := range group.Items {
		if helpers.HasCapability(ctx, item.Capability) {
			out = append(out, item)
		}
	}
	return out
}

// Topbar renders the application title, environment badge and user menu.
func Topbar() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		env := middleware.EnvironmentFromContext(ctx)

		p.Raw(`<header class="flex items-center justify-between border-b border-slate-200 bg-white px-6 py-3" data-topbar>`)
		p.Raw(`<div class="flex items-center gap-3"><a class="text-base font-semibold text-slate-900"`)
		p.URLAttr("href", helpers.BasePath(ctx))
		p.Raw(`>`)
		p.Text(helpers.T(ctx, "app.title", "Blog Admin"))
		p.Raw(`</a><span data-environment-badge`)
		p.Attr("title", env)
		p.Attr("class", helpers.BadgeClass(environmentTone(env)))
		p.Raw(`><span aria-hidden="true">`)
		p.Text(EnvironmentAbbrev(env))
		p.Raw(`</span><span class="sr-only">`)
		p.Text(env)
		p.Raw(`</span></span></div>`)

		if user, ok := middleware.UserFromContext(ctx); ok {
			display := user.Email
			if strings.TrimSpace(display) == "" {
				display = user.UID
			}
			p.Raw(`<div class="flex items-center gap-3" data-user-menu><span class="truncate text-sm text-slate-700">`)
			p.Text(display)
			p.Raw(`</span><form method="post" data-user-menu-logout`)
			p.URLAttr("action", helpers.Route(ctx, "/logout"))
			p.Raw(`>`)
			p.Component(ctx, CSRFField())
			p.Raw(`<button type="submit" class="text-sm text-slate-500 hover:text-slate-900">`)
			p.Text(helpers.T(ctx, "buttons.logout", "Logout"))
			p.Raw(`</button></form></div>`)
		}
		p.Raw(`</header>`)
		return p.Err()
	})
}

// EnvironmentAbbrev shortens an environment label for the badge.
func EnvironmentAbbrev(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "development", "dev", "local":
		return "DEV"
	case "staging", "stg":
		return "STG"
	case "production", "prod":
		return "PRD"
	default:
		runes := []rune(strings.ToUpper(env))
		if len(runes) > 3 {
			runes = runes[:3]
		}
		return string(runes)
	}
}

func environmentTone(env string) string {
	switch EnvironmentAbbrev(env) {
	case "PRD":
		return "danger"
	case "STG":
		return "warning"
	default:
		return ""
	}
}

// CSRFField renders the hidden double-submit token input.
func CSRFField() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<input type="hidden"`)
		p.Attr("name", middleware.CSRFFormField)
		p.Attr("value", middleware.CSRFTokenFromContext(ctx))
		p.Raw(`>`)
		return p.Err()
	})
}

// Flash renders a one-shot notification. Empty messages render nothing.
func Flash(kind, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if strings.TrimSpace(message) == "" {
			return nil
		}
		tone := kind
		if tone == "error" {
			tone = "danger"
		}
		p := helpers.NewPrinter(w)
		p.Raw(`<div role="alert" data-flash`)
		p.Attr("data-flash-kind", kind)
		p.Attr("class", "rounded-md px-4 py-3 text-sm "+flashClass(tone))
		p.Raw(`>`)
		p.Text(message)
		p.Raw(`</div>`)
		return p.Err()
	})
}

func flashClass(tone string) string {
	switch tone {
	case "success":
		return "bg-emerald-50 text-emerald-800"
	case "danger":
		return "bg-rose-50 text-rose-800"
	case "warning":
		return "bg-amber-50 text-amber-800"
	default:
		return "bg-slate-50 text-slate-800"
	}
}

// Pagination renders previous/next links that keep the other query parameters.
func Pagination(path, rawQuery string, page, totalPages int, prev, next *int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<nav class="flex items-center justify-between pt-4" data-pagination>`)
		pageLink := func(target *int, key, fallback, rel string) {
			label := helpers.T(ctx, key, fallback)
			if target == nil {
				p.Raw(`<span class="text-sm text-slate-400" aria-disabled="true">`)
				p.Text(label)
				p.Raw(`</span>`)
				return
			}
			p.Raw(`<a class="text-sm text-slate-700 hover:underline"`)
			p.Attr("rel", rel)
			p.URLAttr("href", helpers.BuildURL(path, helpers.SetRawQuery(rawQuery, "page", strconv.Itoa(*target))))
			p.Raw(`>`)
			p.Text(label)
			p.Raw(`</a>`)
		}
		pageLink(prev, "buttons.previous", "Previous", "prev")
		p.Raw(`<span class="text-sm text-slate-500" data-page-indicator>`)
		p.Text(strconv.Itoa(page) + " / " + strconv.Itoa(totalPages))
		p.Raw(`</span>`)
		pageLink(next, "buttons.next", "Next", "next")
		p.Raw(`</nav>`)
		return p.Err()
	})
}
