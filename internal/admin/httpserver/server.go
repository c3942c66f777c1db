package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	custommw "finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/blog-admin/internal/admin/httpserver/ui"
	"finitefield.org/blog-admin/internal/admin/i18n"
	"finitefield.org/blog-admin/internal/admin/metrics"
	"finitefield.org/blog-admin/internal/admin/posts"
	"finitefield.org/blog-admin/internal/admin/rbac"
	"finitefield.org/blog-admin/internal/admin/registration"
	"finitefield.org/blog-admin/public"
)

// PasswordChecker verifies email/password sign-ins and returns a token the
// Authenticator accepts. Only wired in development.
type PasswordChecker interface {
	CheckPassword(email, password string) (string, error)
}

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address       string
	BasePath      string
	LoginPath     string
	Environment   string
	Authenticator custommw.Authenticator
	Sessions      custommw.SessionStore
	Bundle        *i18n.Bundle
	Logger        *zap.Logger
	Metrics       *metrics.Registry

	// Registrar is the default registration delegate.
	Registrar registration.Delegate
	// OnRegister replaces Registrar for email/password submissions.
	OnRegister registration.SubmitFunc
	Providers  []registration.Provider
	Passwords  PasswordChecker

	PostsService posts.Service

	CSRFCookieName   string
	CSRFCookiePath   string
	CSRFCookieSecure bool
	CSRFHeaderName   string
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))

	staticContent, err := public.StaticFS()
	if err != nil {
		logger.Fatal("embed static", zap.Error(err))
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))

	basePath := normalizeBasePath(cfg.BasePath)
	loginPath := resolveLoginPath(basePath, cfg.LoginPath)

	sessions := cfg.Sessions
	if sessions == nil {
		logger.Fatal("session store is required")
	}
	bundle := cfg.Bundle
	if bundle == nil {
		bundle, err = i18n.Default("en")
		if err != nil {
			logger.Fatal("load translations", zap.Error(err))
		}
	}
	registrar := cfg.Registrar
	if registrar == nil {
		registrar = registration.NewMemoryRegistrar(0, providerIDs(cfg.Providers)...)
	}
	authenticator := cfg.Authenticator
	if authenticator == nil {
		if accounts, ok := registrar.(custommw.AccountLookup); ok {
			authenticator = custommw.DevelopmentAuthenticator(accounts)
		} else {
			authenticator = custommw.DefaultAuthenticator()
		}
	}
	postsService := cfg.PostsService
	if postsService == nil {
		postsService = posts.NewStaticService()
	}

	csrfCfg := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		CookiePath: firstNonEmpty(cfg.CSRFCookiePath, basePath),
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
		Logger:     logger,
	}

	auth := newAuthHandlers(authenticator, basePath, loginPath, cfg.Passwords)
	register := newRegisterHandlers(registerDeps{
		auth:      auth,
		delegate:  registrar,
		onSubmit:  cfg.OnRegister,
		providers: cfg.Providers,
		metrics:   cfg.Metrics,
	})
	uiHandlers := ui.NewHandlers(ui.Dependencies{
		BasePath:     basePath,
		PostsService: postsService,
	})

	mountAdminRoutes(router, basePath, routeOptions{
		Authenticator: authenticator,
		LoginPath:     loginPath,
		Environment:   cfg.Environment,
		CSRF:          csrfCfg,
		Sessions:      sessions,
		Bundle:        bundle,
		Metrics:       cfg.Metrics,
		Logger:        logger,
		Auth:          auth,
		Register:      register,
		UI:            uiHandlers,
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type routeOptions struct {
	Authenticator custommw.Authenticator
	LoginPath     string
	Environment   string
	CSRF          custommw.CSRFConfig
	Sessions      custommw.SessionStore
	Bundle        *i18n.Bundle
	Metrics       *metrics.Registry
	Logger        *zap.Logger
	Auth          *authHandlers
	Register      *registerHandlers
	UI            *ui.Handlers
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	router.Route(base, func(r chi.Router) {
		r.Use(custommw.RequestInfoMiddleware(base, opts.Environment))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.AccessLog(opts.Logger, opts.Metrics))
		r.Use(custommw.Locale(opts.Bundle))
		r.Use(withBundle(opts.Bundle))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get("/login", opts.Auth.LoginForm)
		r.Post("/login", opts.Auth.LoginSubmit)
		r.Post("/logout", opts.Auth.Logout)
		r.Get("/register", opts.Register.Form)
		r.Post("/register", opts.Register.Submit)
		r.Post("/register/providers/{provider}", opts.Register.Provider)

		r.Group(func(r chi.Router) {
			r.Use(custommw.Auth(opts.Authenticator, opts.LoginPath))

			r.Get("/", opts.UI.Index)
			r.Route("/blog-posts", func(r chi.Router) {
				r.With(custommw.RequireCapability(rbac.CapPostsList)).Get("/", opts.UI.PostsList)
				r.With(custommw.RequireCapability(rbac.CapPostsShow)).Get("/show/{id}", opts.UI.PostShow)
				r.With(custommw.RequireCapability(rbac.CapPostsCreate)).Get("/create", opts.UI.PostNew)
				r.With(custommw.RequireCapability(rbac.CapPostsCreate)).Post("/create", opts.UI.PostCreate)
				r.With(custommw.RequireCapability(rbac.CapPostsEdit)).Get("/edit/{id}", opts.UI.PostEdit)
				r.With(custommw.RequireCapability(rbac.CapPostsEdit)).Post("/edit/{id}", opts.UI.PostUpdate)
				r.With(custommw.RequireCapability(rbac.CapPostsDelete)).Post("/delete/{id}", opts.UI.PostDelete)
			})
			if opts.Metrics != nil {
				r.With(custommw.RequireCapability(rbac.CapMetricsView)).Handle("/metrics", opts.Metrics.Handler())
			}
		})
	})
}

func providerIDs(providers []registration.Provider) []string {
	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}
	return ids
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func resolveLoginPath(base string, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	if base == "/" {
		return "/login"
	}
	return base + "/login"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
