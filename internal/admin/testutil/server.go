package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"finitefield.org/blog-admin/internal/admin/httpserver"
	"finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/blog-admin/internal/admin/metrics"
	"finitefield.org/blog-admin/internal/admin/posts"
	"finitefield.org/blog-admin/internal/admin/registration"
	"finitefield.org/blog-admin/internal/admin/session"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator used by the admin server.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BasePath = path
	}
}

// WithPostsService wires a custom blog posts backend.
func WithPostsService(service posts.Service) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.PostsService = service
	}
}

// WithRegistrar replaces the default registration delegate.
func WithRegistrar(delegate registration.Delegate) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Registrar = delegate
	}
}

// WithOnRegister installs a credential submission override.
func WithOnRegister(fn registration.SubmitFunc) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.OnRegister = fn
	}
}

// WithProviders offers identity provider buttons on the registration page.
func WithProviders(providers ...registration.Provider) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Providers = providers
	}
}

// WithMetrics exposes a metrics registry at /metrics.
func WithMetrics(registry *metrics.Registry) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Metrics = registry
	}
}

// WithPasswords enables email/password sign-in.
func WithPasswords(checker httpserver.PasswordChecker) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Passwords = checker
	}
}

// NewServer constructs an httptest server running the admin HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	sessions, err := session.NewManager(session.Config{
		CookieName: "test_admin_session",
		HashKey:    []byte("0123456789abcdef0123456789abcdef"),
		BlockKey:   []byte("abcdef0123456789abcdef0123456789"),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	cfg := httpserver.Config{
		Address:        ":0",
		BasePath:       "/admin",
		LoginPath:      "",
		Environment:    "test",
		CSRFCookieName: "csrf_token",
		CSRFHeaderName: "X-CSRF-Token",
		Sessions:       sessions,
		Logger:         zaptest.NewLogger(t),
		Registrar:      registration.NewMemoryRegistrar(bcrypt.MinCost),
		PostsService:   posts.NewStaticService(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	srv := httpserver.New(cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client that keeps cookies and does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
