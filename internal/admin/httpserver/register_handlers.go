package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	custommw "finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/blog-admin/internal/admin/metrics"
	"finitefield.org/blog-admin/internal/admin/registration"
	"finitefield.org/blog-admin/internal/admin/templates/auth"
	"finitefield.org/blog-admin/internal/admin/templates/helpers"
)

type registerDeps struct {
	auth      *authHandlers
	delegate  registration.Delegate
	onSubmit  registration.SubmitFunc
	providers []registration.Provider
	metrics   *metrics.Registry
}

type registerHandlers struct {
	auth      *authHandlers
	delegate  registration.Delegate
	onSubmit  registration.SubmitFunc
	providers []registration.Provider
	metrics   *metrics.Registry
	guard     *registration.Guard
}

func newRegisterHandlers(deps registerDeps) *registerHandlers {
	if deps.auth == nil {
		panic("register: auth handlers are required")
	}
	if deps.delegate == nil {
		panic("register: delegate is required")
	}
	return &registerHandlers{
		auth:      deps.auth,
		delegate:  deps.delegate,
		onSubmit:  deps.onSubmit,
		providers: append([]registration.Provider(nil), deps.providers...),
		metrics:   deps.metrics,
		guard:     registration.NewGuard(),
	}
}

// Form renders the registration page.
func (h *registerHandlers) Form(w http.ResponseWriter, r *http.Request) {
	if h.auth.isAuthenticated(r) {
		http.Redirect(w, r, h.auth.redirectTarget(""), http.StatusFound)
		return
	}
	render(w, r, auth.RegisterPage(h.pageData(r.Context(), "", nil, "")), http.StatusOK)
}

// Submit handles email/password registrations.
func (h *registerHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.metrics.ObserveRegistration(metrics.PathPassword, metrics.ResultError)
		message := helpers.T(ctx, "pages.register.errors.form", "The form could not be submitted. Please try again.")
		render(w, r, auth.RegisterPage(h.pageData(ctx, "", nil, message)), http.StatusBadRequest)
		return
	}

	input := registration.Input{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	release, ok := h.acquire(r)
	if !ok {
		h.renderBusy(w, r, metrics.PathPassword, input.Email)
		return
	}
	defer release()

	form, err := h.newForm(ctx)
	if err != nil {
		h.fail(w, r, metrics.PathPassword, input.Email, err)
		return
	}

	outcome, err := form.Submit(ctx, input)
	if err != nil {
		if errs, ok := registration.AsValidationErrors(err); ok {
			h.metrics.ObserveRegistration(metrics.PathPassword, metrics.ResultInvalid)
			render(w, r, auth.RegisterPage(h.pageData(ctx, strings.TrimSpace(input.Email), errs, "")), http.StatusUnprocessableEntity)
			return
		}
		h.fail(w, r, metrics.PathPassword, input.Email, err)
		return
	}

	h.metrics.ObserveRegistration(metrics.PathPassword, metrics.ResultSuccess)
	zap.L().Info("registration completed",
		zap.String("path", metrics.PathPassword),
		zap.String("uid", outcome.UserID),
		zap.Bool("override", form.Overridden()),
	)
	h.complete(w, r, outcome)
}

// Provider handles provider button submissions.
func (h *registerHandlers) Provider(w http.ResponseWriter, r *http.Request) {
	providerID := strings.TrimSpace(chi.URLParam(r, "provider"))
	if !h.offers(providerID) {
		h.metrics.ObserveRegistration(metrics.PathProvider, metrics.ResultInvalid)
		http.NotFound(w, r)
		return
	}

	release, ok := h.acquire(r)
	if !ok {
		h.renderBusy(w, r, metrics.PathProvider, "")
		return
	}
	defer release()

	form, err := h.newForm(r.Context())
	if err != nil {
		h.fail(w, r, metrics.PathProvider, "", err)
		return
	}

	outcome, err := form.SubmitProvider(r.Context(), providerID)
	if err != nil {
		h.fail(w, r, metrics.PathProvider, "", err)
		return
	}

	h.metrics.ObserveRegistration(metrics.PathProvider, metrics.ResultSuccess)
	zap.L().Info("provider registration dispatched", zap.String("provider", providerID))
	h.complete(w, r, outcome)
}

func (h *registerHandlers) newForm(ctx context.Context) (*registration.Form, error) {
	return registration.NewForm(h.delegate, registration.Options{
		Providers:  h.providers,
		OnSubmit:   h.onSubmit,
		Translator: helpers.Translator(ctx),
	})
}

// acquire claims the per-session submission slot. Requests without a session
// are not limited.
func (h *registerHandlers) acquire(r *http.Request) (func(), bool) {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok || sess == nil || sess.ID() == "" {
		return func() {}, true
	}
	return h.guard.Acquire(sess.ID())
}

func (h *registerHandlers) offers(id string) bool {
	if id == "" {
		return false
	}
	for _, p := range h.providers {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (h *registerHandlers) renderBusy(w http.ResponseWriter, r *http.Request, path, email string) {
	h.metrics.ObserveRegistration(path, metrics.ResultBusy)
	message := helpers.T(r.Context(), "pages.register.errors.inFlight", "A registration is already in progress.")
	render(w, r, auth.RegisterPage(h.pageData(r.Context(), strings.TrimSpace(email), nil, message)), http.StatusConflict)
}

func (h *registerHandlers) fail(w http.ResponseWriter, r *http.Request, path, email string, err error) {
	ctx := r.Context()
	if errors.Is(err, registration.ErrSubmissionInFlight) {
		h.renderBusy(w, r, path, email)
		return
	}

	h.metrics.ObserveRegistration(path, metrics.ResultError)
	status := http.StatusBadGateway
	message := helpers.T(ctx, "pages.register.errors.failed", "Registration failed. Please try again later.")
	switch {
	case errors.Is(err, registration.ErrEmailTaken):
		status = http.StatusConflict
		message = helpers.T(ctx, "pages.register.errors.emailTaken", "An account with this email already exists.")
	case errors.Is(err, registration.ErrUnknownProvider):
		status = http.StatusBadRequest
		message = helpers.T(ctx, "pages.register.errors.unknownProvider", "That sign-up provider is not available.")
	default:
		zap.L().Error("registration failed", zap.String("path", path), zap.Error(err))
	}
	render(w, r, auth.RegisterPage(h.pageData(ctx, strings.TrimSpace(email), nil, message)), status)
}

// complete signs the new account in when the outcome carries a token and
// redirects to the outcome target.
func (h *registerHandlers) complete(w http.ResponseWriter, r *http.Request, outcome registration.Outcome) {
	target := strings.TrimSpace(outcome.RedirectTo)
	if outcome.Token != "" {
		h.auth.signIn(w, r, &custommw.User{
			UID:   outcome.UserID,
			Email: outcome.Email,
			Roles: outcome.Roles,
			Token: outcome.Token,
		}, outcome.Token, false)
		if target == "" {
			target = h.auth.redirectTarget("")
		}
	}
	if target == "" {
		target = h.auth.loginURLWithParams(map[string]string{
			"status": "registered",
			"email":  outcome.Email,
		})
	}
	custommw.Redirect(w, r, target)
}

func (h *registerHandlers) pageData(ctx context.Context, email string, errs registration.ValidationErrors, message string) auth.RegisterPageData {
	return auth.RegisterPageData{
		Providers: h.providers,
		Email:     email,
		Errors:    errs,
		Error:     message,
		Action:    helpers.Route(ctx, "/register"),
		ProviderAction: func(id string) string {
			return helpers.Route(ctx, "/register/providers/"+id)
		},
		LoginRoute: "/login",
	}
}
