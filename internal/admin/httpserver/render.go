package httpserver

import (
	"net/http"

	"github.com/a-h/templ"

	"finitefield.org/blog-admin/internal/admin/i18n"
	"finitefield.org/blog-admin/internal/admin/templates/helpers"
)

func render(w http.ResponseWriter, r *http.Request, c templ.Component, status int) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

func withBundle(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(helpers.WithBundle(r.Context(), bundle)))
		})
	}
}
