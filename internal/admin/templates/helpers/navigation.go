package helpers

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/blog-admin/internal/admin/httpserver/middleware"
)

// RequestPath returns the current request URL path for template helpers.
func RequestPath(ctx context.Context) string {
	return normalizeRoute(middleware.RequestPathFromContext(ctx))
}

// BasePath returns the configured admin base path.
func BasePath(ctx context.Context) string {
	return normalizeRoute(middleware.BasePathFromContext(ctx))
}

// Route joins route onto the admin base path.
func Route(ctx context.Context, route string) string {
	return JoinRoute(BasePath(ctx), route)
}

// JoinRoute joins base and route into a normalised absolute path.
func JoinRoute(base, route string) string {
	base = normalizeRoute(base)
	route = strings.TrimSpace(route)
	if route == "" || route == "/" {
		return base
	}
	if base == "/" {
		return normalizeRoute(route)
	}
	return normalizeRoute(base + "/" + strings.TrimPrefix(route, "/"))
}

// NavActive reports whether the current request should highlight the menu item.
func NavActive(ctx context.Context, pattern string, prefix bool) bool {
	current := RequestPath(ctx)
	target := normalizeRoute(pattern)

	if target == "" {
		return false
	}

	if prefix {
		if target == "/" {
			return current == "/"
		}
		if current == target {
			return true
		}
		return strings.HasPrefix(current, target+"/")
	}

	return current == target
}

// LinkFunc renders an anchor for route (relative to the base path) wrapping children.
type LinkFunc func(route string, attrs templ.Attributes, children templ.Component) templ.Component

// Link is the default LinkFunc: a plain anchor resolved against the base path.
func Link(route string, attrs templ.Attributes, children templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := NewPrinter(w)
		p.Raw(`<a href="`)
		p.Raw(templ.EscapeString(string(templ.URL(Route(ctx, route)))))
		p.Raw(`"`)
		p.Attrs(attrs)
		p.Raw(`>`)
		p.Component(ctx, children)
		p.Raw(`</a>`)
		return p.Err()
	})
}

func normalizeRoute(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}
