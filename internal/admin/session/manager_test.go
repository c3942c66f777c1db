package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	httpOnly := true
	mgr, err := NewManager(Config{
		CookieName:       "test_session",
		HashKey:          []byte("12345678901234567890123456789012"),
		BlockKey:         []byte("abcdefghijklmnopqrstuv0123456789"),
		CookiePath:       "/",
		CookieHTTPOnly:   &httpOnly,
		IdleTimeout:      10 * time.Minute,
		Lifetime:         2 * time.Hour,
		RememberLifetime: 48 * time.Hour,
		Now:              clock.Now,
	})
	require.NoError(t, err)
	return mgr, clock
}

func TestManager_NewSessionLifecycle(t *testing.T) {
	mgr, clock := newTestManager(t)

	sess, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID())
	require.True(t, sess.CreatedAt().Equal(clock.current))

	sess.SetUser(&User{UID: "user-1", Email: "test@example.com", Roles: []string{"editor"}})
	sess.SetRememberMe(true)
	sess.SetLocale("ja")
	sess.AddFlash("success", "Blog post created.")

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))

	cookie := findCookie(rec.Result().Cookies(), "test_session")
	require.NotNil(t, cookie, "expected session cookie to be set")

	clock.current = clock.current.Add(5 * time.Minute)
	req2 := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req2.AddCookie(cookie)
	sess2, err := mgr.Load(req2)
	require.NoError(t, err)
	require.Equal(t, "test@example.com", sess2.User().Email)
	require.True(t, sess2.RememberMe())
	require.Equal(t, "ja", sess2.Locale())
	require.True(t, sess2.ExpiresAt().Equal(sess.CreatedAt().Add(48*time.Hour)))

	flash := sess2.PopFlash()
	require.NotNil(t, flash)
	require.Equal(t, "Blog post created.", flash.Message)
	require.Nil(t, sess2.PopFlash(), "flash must only be returned once")
}

func TestManager_IdleTimeout(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))
	cookie := findCookie(rec.Result().Cookies(), "test_session")

	clock.current = clock.current.Add(20 * time.Minute)
	req2 := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req2.AddCookie(cookie)
	_, err = mgr.Load(req2)
	require.True(t, errors.Is(err, ErrExpired), "expected ErrExpired, got %v", err)
}

func TestManager_TamperedCookieStartsFresh(t *testing.T) {
	mgr, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "garbage"})

	sess, err := mgr.Load(req)
	require.NoError(t, err)
	require.Nil(t, sess.User())
	require.True(t, sess.Dirty())
}

func TestManager_Destroy(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess, _ := mgr.Load(httptest.NewRequest(http.MethodGet, "/admin", nil))
	sess.Destroy()

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	require.NotNil(t, cookie)
	require.Equal(t, -1, cookie.MaxAge)
}

func TestNewManagerValidatesKeys(t *testing.T) {
	_, err := NewManager(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(Config{HashKey: []byte("hash"), BlockKey: []byte("short")})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
