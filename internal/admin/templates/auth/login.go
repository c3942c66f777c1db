package auth

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/blog-admin/internal/admin/templates/helpers"
	"finitefield.org/blog-admin/internal/admin/templates/layout"
	"finitefield.org/blog-admin/internal/admin/templates/partials"
)

// LoginPageData encapsulates rendering state for the admin login screen.
type LoginPageData struct {
	Email     string
	Message   string
	Error     string
	Remember  bool
	Next      string
	LoginPath string
	// PasswordLogin shows a password field in place of the ID token field.
	PasswordLogin bool
	RegisterRoute string
}

// LoginPage renders the sign-in screen.
func LoginPage(data LoginPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := helpers.T(ctx, "pages.login.title", "Sign in to your account")
		card := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			p := helpers.NewPrinter(w)
			p.Component(ctx, TitleRegion(Title{}))
			p.Raw(`<div class="rounded-lg border border-slate-200 bg-white p-8 shadow-sm" data-login-card>`)
			p.Raw(`<h1 class="mb-8 text-center text-2xl font-semibold text-blue-600">`)
			p.Text(title)
			p.Raw(`</h1>`)
			p.Component(ctx, partials.Flash("info", data.Message))
			p.Component(ctx, partials.Flash("error", data.Error))

			p.Raw(`<form method="post" novalidate data-login-form`)
			p.URLAttr("action", data.LoginPath)
			p.Raw(`>`)
			p.Component(ctx, partials.CSRFField())
			if data.Next != "" {
				p.Raw(`<input type="hidden" name="next"`)
				p.Attr("value", data.Next)
				p.Raw(`>`)
			}
			p.Component(ctx, field(fieldSpec{
				name:         "email",
				inputType:    "text",
				label:        helpers.T(ctx, "pages.login.fields.email", "Email"),
				placeholder:  "Email",
				value:        data.Email,
				autocomplete: "email",
			}))
			if data.PasswordLogin {
				p.Component(ctx, field(fieldSpec{
					name:         "password",
					inputType:    "password",
					label:        helpers.T(ctx, "pages.register.fields.password", "Password"),
					placeholder:  "Password",
					autocomplete: "current-password",
				}))
			} else {
				p.Component(ctx, field(fieldSpec{
					name:        "id_token",
					inputType:   "password",
					label:       helpers.T(ctx, "pages.login.fields.idToken", "ID token"),
					placeholder: "ID token",
				}))
			}
			p.Raw(`<label class="mt-4 flex items-center gap-2 text-sm"><input type="checkbox" name="remember" value="1"`)
			p.BoolAttr("checked", data.Remember)
			p.Raw(`><span>`)
			p.Text(helpers.T(ctx, "pages.login.fields.remember", "Remember me"))
			p.Raw(`</span></label>`)
			p.Raw(`<button type="submit" class="mt-6 w-full rounded-md bg-blue-600 px-4 py-2 text-sm font-medium text-white">`)
			p.Text(helpers.T(ctx, "pages.login.buttons.submit", "Sign in"))
			p.Raw(`</button>`)

			route := data.RegisterRoute
			if route == "" {
				route = "/register"
			}
			p.Raw(`<div class="mt-6 flex justify-end text-xs" data-register-link><span>`)
			p.Text(helpers.T(ctx, "pages.login.buttons.noAccount", "Don't have an account?"))
			p.Raw(`</span>`)
			p.Component(ctx, helpers.Link(route, templ.Attributes{"class": "ml-1 font-bold text-blue-600"}, helpers.TextComponent(helpers.T(ctx, "pages.login.signup", "Sign up"))))
			p.Raw(`</div></form></div>`)
			return p.Err()
		})
		return layout.Centered(title, card).Render(ctx, w)
	})
}
