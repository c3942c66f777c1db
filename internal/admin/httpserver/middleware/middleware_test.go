package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/blog-admin/internal/admin/rbac"
)

type mockAuthenticator struct {
	token string
	user  *User
	err   error
}

func (m *mockAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token != m.token {
		return nil, ErrUnauthorized
	}
	return m.user, m.err
}

func TestAuthMiddleware(t *testing.T) {
	auth := &mockAuthenticator{
		token: "valid",
		user:  &User{UID: "user-1"},
	}

	handler := HTMX()(Auth(auth, "/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			t.Fatalf("expected user in context")
		}
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("missing token redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rr.Code)
		}
		if location := rr.Header().Get("Location"); location != "/login" {
			t.Fatalf("expected redirect to /login, got %s", location)
		}
	})

	t.Run("htmx unauthorized returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
		if rr.Header().Get("HX-Redirect") != "/login" {
			t.Fatalf("expected HX-Redirect header to /login")
		}
	})

	t.Run("valid token passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer valid")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("token from cookie passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: "__session", Value: "valid"})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("expired token triggers refresh header", func(t *testing.T) {
		auth.err = NewAuthError(ReasonTokenExpired, errors.New("expired"))
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer valid")
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
		if rr.Header().Get("HX-Refresh") != "true" {
			t.Fatalf("expected HX-Refresh header")
		}
		auth.err = nil
	})
}

func TestCSRFMiddleware(t *testing.T) {
	mw := CSRF(CSRFConfig{CookieName: "csrf", HeaderName: "X-CSRF-Token"})

	t.Run("issues cookie on GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rr := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := CSRFTokenFromContext(r.Context())
			if token == "" {
				t.Fatalf("expected token in context")
			}
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		found := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == "csrf" && c.Value != "" {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected csrf cookie to be set")
		}
	})

	t.Run("rejects unsafe request without header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: "csrf", Value: "token"})
		rr := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("allows unsafe form post with matching field", func(t *testing.T) {
		form := url.Values{CSRFFormField: {"token"}}
		req := httptest.NewRequest(http.MethodPost, "/admin/register", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "csrf", Value: "token"})
		rr := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("rejects mismatched form field", func(t *testing.T) {
		form := url.Values{CSRFFormField: {"other"}}
		req := httptest.NewRequest(http.MethodPost, "/admin/register", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "csrf", Value: "token"})
		rr := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("allows unsafe request with matching header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: "csrf", Value: "token"})
		req.Header.Set("X-CSRF-Token", "token")
		rr := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})
}

func TestHTMXMiddleware(t *testing.T) {
	base := HTMX()

	t.Run("detects htmx", func(t *testing.T) {
		handler := base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsHTMXRequest(r.Context()) {
				t.Fatalf("expected htmx request")
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if rr.Header().Get("Vary") != "HX-Request" {
			t.Fatalf("expected Vary: HX-Request")
		}
	})

	t.Run("redirect uses HX-Redirect for htmx", func(t *testing.T) {
		handler := base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Redirect(w, r, "/admin/posts")
		}))
		req := httptest.NewRequest(http.MethodPost, "/admin/register", nil)
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
		if rr.Header().Get("HX-Redirect") != "/admin/posts" {
			t.Fatalf("expected HX-Redirect header")
		}
	})

	t.Run("redirect falls back to 303", func(t *testing.T) {
		handler := base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Redirect(w, r, "/admin/posts")
		}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/register", nil))
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rr.Code)
		}
		if rr.Header().Get("Location") != "/admin/posts" {
			t.Fatalf("unexpected Location %q", rr.Header().Get("Location"))
		}
	})
}

func TestCSRFLogsRejections(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mw := HTMX()(CSRF(CSRFConfig{CookieName: "csrf", Logger: zap.New(core)})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for _, tc := range []struct {
		name   string
		header string
		reason string
	}{
		{name: "missing", reason: CSRFReasonMissing},
		{name: "mismatch", header: "other", reason: CSRFReasonMismatch},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/register", nil)
			req.AddCookie(&http.Cookie{Name: "csrf", Value: "token"})
			req.Header.Set("HX-Request", "true")
			if tc.header != "" {
				req.Header.Set("X-CSRF-Token", tc.header)
			}
			rr := httptest.NewRecorder()
			mw.ServeHTTP(rr, req)

			if rr.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rr.Code)
			}
			if rr.Header().Get("HX-Refresh") != "true" {
				t.Fatalf("expected HX-Refresh on htmx rejection")
			}
			entries := logs.TakeAll()
			if len(entries) != 1 {
				t.Fatalf("expected one log entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["reason"] != tc.reason {
				t.Fatalf("expected reason %q, got %v", tc.reason, fields["reason"])
			}
			if fields["htmx"] != true {
				t.Fatalf("expected htmx flag, got %v", fields["htmx"])
			}
		})
	}
}

func TestRequireCapability(t *testing.T) {
	handler := RequireCapability(rbac.CapPostsDelete)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tc := range []struct {
		name  string
		roles []string
		want  int
	}{
		{name: "editor allowed", roles: []string{"editor"}, want: http.StatusOK},
		{name: "viewer forbidden", roles: []string{"viewer"}, want: http.StatusForbidden},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/posts/1/delete", nil)
			req = req.WithContext(ContextWithUser(req.Context(), &User{UID: "u", Roles: tc.roles}))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}

	t.Run("anonymous forbidden", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/posts/1/delete", nil))
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})
}

func TestNoStoreMiddleware(t *testing.T) {
	handler := NoStore()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Cache-Control"); got != "no-store, max-age=0" {
		t.Fatalf("unexpected Cache-Control: %s", got)
	}
	if got := rr.Header().Get("Pragma"); got != "no-cache" {
		t.Fatalf("unexpected Pragma: %s", got)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

type accountTable map[string][]string

func (a accountTable) LookupAccount(token string) (string, []string, bool) {
	roles, ok := a[token]
	if !ok {
		return "", nil, false
	}
	return token + "@example.com", roles, true
}

func TestDevelopmentAuthenticatorResolvesAccounts(t *testing.T) {
	auth := DevelopmentAuthenticator(accountTable{"user-1": {"editor"}})
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)

	user, err := auth.Authenticate(req, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0] != "editor" {
		t.Fatalf("expected editor role, got %v", user.Roles)
	}
	if user.Email != "user-1@example.com" {
		t.Fatalf("unexpected email %q", user.Email)
	}

	user, err = auth.Authenticate(req, "operator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0] != "admin" {
		t.Fatalf("expected admin role for unknown token, got %v", user.Roles)
	}

	if _, err := auth.Authenticate(req, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
