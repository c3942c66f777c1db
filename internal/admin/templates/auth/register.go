package auth

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/blog-admin/internal/admin/registration"
	"finitefield.org/blog-admin/internal/admin/templates/helpers"
	"finitefield.org/blog-admin/internal/admin/templates/layout"
	"finitefield.org/blog-admin/internal/admin/templates/partials"
)

// TitleMode selects how the page title region is rendered.
type TitleMode int

const (
	// TitleDefault renders the branded application title.
	TitleDefault TitleMode = iota
	// TitleHidden omits the title region entirely.
	TitleHidden
	// TitleCustom renders Title.Content in the title region.
	TitleCustom
)

// Title configures the title region above the form card.
type Title struct {
	Mode    TitleMode
	Content templ.Component
}

// HiddenTitle suppresses the title region.
func HiddenTitle() Title {
	return Title{Mode: TitleHidden}
}

// CustomTitle replaces the branded title with c.
func CustomTitle(c templ.Component) Title {
	return Title{Mode: TitleCustom, Content: c}
}

// RenderContentFunc composes the form card and the title region. title is nil
// when the title is hidden.
type RenderContentFunc func(content, title templ.Component) templ.Component

// RegisterPageData encapsulates rendering state for the registration screen.
type RegisterPageData struct {
	Title         Title
	LoginLink     templ.Component
	RenderContent RenderContentFunc
	Providers     []registration.Provider
	// Link resolves routes for the sign-in affordance. Defaults to helpers.Link.
	Link helpers.LinkFunc

	Email  string
	Errors registration.ValidationErrors
	Error  string

	Action         string
	ProviderAction func(providerID string) string
	LoginRoute     string
}

// RegisterPage renders the self-service registration screen.
func RegisterPage(data RegisterPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := TitleRegion(data.Title)
		content := registerCard(data)

		var body templ.Component
		if data.RenderContent != nil {
			body = data.RenderContent(content, title)
		} else {
			body = templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				p := helpers.NewPrinter(w)
				p.Component(ctx, title)
				p.Component(ctx, content)
				return p.Err()
			})
		}
		return layout.Centered(helpers.T(ctx, "pages.register.title", "Sign up for your account"), body).Render(ctx, w)
	})
}

// TitleRegion returns the component for the configured title mode, or nil when hidden.
func TitleRegion(t Title) templ.Component {
	switch t.Mode {
	case TitleHidden:
		return nil
	case TitleCustom:
		if t.Content == nil {
			return nil
		}
		return titleWrapper(t.Content)
	default:
		return titleWrapper(brandedTitle())
	}
}

func titleWrapper(inner templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<div class="mb-8 flex justify-center text-xl" data-page-title>`)
		p.Component(ctx, inner)
		p.Raw(`</div>`)
		return p.Err()
	})
}

func brandedTitle() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<a class="flex items-center gap-2 font-semibold text-slate-900" data-branded-title`)
		p.URLAttr("href", helpers.BasePath(ctx))
		p.Raw(`><span aria-hidden="true" class="inline-block h-6 w-6 rounded bg-blue-600"></span><span>`)
		p.Text(helpers.T(ctx, "app.title", "Blog Admin"))
		p.Raw(`</span></a>`)
		return p.Err()
	})
}

func registerCard(data RegisterPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<div class="rounded-lg border border-slate-200 bg-white p-8 shadow-sm" data-register-card>`)
		p.Raw(`<h1 class="mb-8 text-center text-2xl font-semibold text-blue-600">`)
		p.Text(helpers.T(ctx, "pages.register.title", "Sign up for your account"))
		p.Raw(`</h1>`)

		p.Component(ctx, partials.Flash("error", data.Error))
		p.Component(ctx, providerButtons(data))

		p.Raw(`<form method="post" novalidate data-register-form`)
		p.URLAttr("action", data.Action)
		p.Raw(`>`)
		p.Component(ctx, partials.CSRFField())
		p.Component(ctx, field(fieldSpec{
			name:         "email",
			inputType:    "text",
			label:        helpers.T(ctx, "pages.register.fields.email", "Email"),
			placeholder:  "Email",
			value:        data.Email,
			err:          data.Errors[registration.FieldEmail],
			autocomplete: "email",
		}))
		p.Component(ctx, field(fieldSpec{
			name:         "password",
			inputType:    "password",
			label:        helpers.T(ctx, "pages.register.fields.password", "Password"),
			placeholder:  "Password",
			err:          data.Errors[registration.FieldPassword],
			autocomplete: "new-password",
		}))
		p.Raw(`<button type="submit" class="mt-6 w-full rounded-md bg-blue-600 px-4 py-2 text-sm font-medium text-white" data-register-submit>`)
		p.Text(helpers.T(ctx, "pages.register.buttons.submit", "Sign up"))
		p.Raw(`</button>`)

		if data.LoginLink != nil {
			p.Component(ctx, data.LoginLink)
		} else {
			p.Component(ctx, defaultLoginLink(data))
		}
		p.Raw(`</form></div>`)
		return p.Err()
	})
}

func providerButtons(data RegisterPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(data.Providers) == 0 {
			return nil
		}
		p := helpers.NewPrinter(w)
		p.Raw(`<div class="flex flex-col gap-2" data-providers>`)
		for _, provider := range data.Providers {
			action := ""
			if data.ProviderAction != nil {
				action = data.ProviderAction(provider.ID)
			}
			p.Raw(`<form method="post"`)
			p.URLAttr("action", action)
			p.Attr("data-provider-form", provider.ID)
			p.Raw(`>`)
			p.Component(ctx, partials.CSRFField())
			p.Raw(`<button type="submit" class="flex w-full items-center justify-center gap-2 rounded-md border border-slate-300 px-4 py-2 text-sm"`)
			p.Attr("data-provider", provider.ID)
			p.Raw(`>`)
			if provider.Icon != nil {
				p.Raw(`<span aria-hidden="true" data-provider-icon>`)
				p.Component(ctx, provider.Icon)
				p.Raw(`</span>`)
			}
			p.Raw(`<span>`)
			p.Text(provider.DisplayLabel())
			p.Raw(`</span></button></form>`)
		}
		p.Raw(`</div><hr class="my-6 border-slate-200" data-divider>`)
		return p.Err()
	})
}

func defaultLoginLink(data RegisterPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		link := data.Link
		if link == nil {
			link = helpers.Link
		}
		route := data.LoginRoute
		if route == "" {
			route = "/login"
		}
		p := helpers.NewPrinter(w)
		p.Raw(`<div class="mt-6 flex justify-end text-xs" data-login-link><span>`)
		p.Text(helpers.T(ctx, "pages.login.buttons.haveAccount", "Have an account?"))
		p.Raw(`</span>`)
		p.Component(ctx, link(route, templ.Attributes{"class": "ml-1 font-bold text-blue-600"}, helpers.TextComponent(helpers.T(ctx, "pages.login.signin", "Sign in"))))
		p.Raw(`</div>`)
		return p.Err()
	})
}

type fieldSpec struct {
	name         string
	inputType    string
	label        string
	placeholder  string
	value        string
	err          string
	autocomplete string
}

func field(f fieldSpec) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<div class="mt-6"`)
		p.Attr("data-field", f.name)
		p.Raw(`><label class="block text-sm font-medium text-slate-700"`)
		p.Attr("for", f.name)
		p.Raw(`>`)
		p.Text(f.label)
		p.Raw(`</label><input class="mt-1 w-full rounded-md border px-3 py-2 text-sm"`)
		p.Attr("id", f.name)
		p.Attr("name", f.name)
		p.Attr("type", f.inputType)
		p.Attr("placeholder", f.placeholder)
		if f.autocomplete != "" {
			p.Attr("autocomplete", f.autocomplete)
		}
		if f.value != "" {
			p.Attr("value", f.value)
		}
		if f.err != "" {
			p.Attr("aria-invalid", "true")
			p.Attr("aria-describedby", f.name+"-error")
		}
		p.Raw(`>`)
		if f.err != "" {
			p.Raw(`<p class="mt-1 text-xs text-rose-600"`)
			p.Attr("id", f.name+"-error")
			p.Attr("data-field-error", f.name)
			p.Raw(`>`)
			p.Text(f.err)
			p.Raw(`</p>`)
		}
		p.Raw(`</div>`)
		return p.Err()
	})
}
