package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName       = "blog_admin_session"
	defaultCookiePath       = "/"
	defaultLifetime         = 12 * time.Hour
	defaultRememberLifetime = 30 * 24 * time.Hour
	defaultIdleTimeout      = 30 * time.Minute
)

// ErrExpired indicates the stored session is no longer valid due to idle or absolute expiry.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// User captures the signed-in account persisted in the session.
type User struct {
	UID   string   `json:"uid"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Flash is a one-shot notification rendered on the next page view.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Data represents the full persisted session payload.
type Data struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActive   time.Time `json:"lastActive"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
	RememberMe   bool      `json:"rememberMe"`
	User         *User     `json:"user,omitempty"`
	Locale       string    `json:"locale,omitempty"`
	Flash        *Flash    `json:"flash,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
}

// Session holds mutable state for the current request lifecycle.
type Session struct {
	data      Data
	dirty     bool
	destroyed bool
	cfg       *Config
}

// Config controls cookie encoding and lifecycle limits for the session manager.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieHTTPOnly *bool
	CookieSameSite http.SameSite

	IdleTimeout      time.Duration
	Lifetime         time.Duration
	RememberLifetime time.Duration
	Now              func() time.Time
}

// Manager decodes and persists session state via signed (and optionally encrypted) cookies.
type Manager struct {
	cfg      Config
	codec    *securecookie.SecureCookie
	now      func() time.Time
	httpOnly bool
}

// NewManager constructs a Manager using the provided configuration.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.RememberLifetime <= 0 {
		cfg.RememberLifetime = defaultRememberLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.RememberLifetime.Seconds()))

	httpOnly := true
	if cfg.CookieHTTPOnly != nil {
		httpOnly = *cfg.CookieHTTPOnly
	}

	return &Manager{
		cfg:      cfg,
		codec:    codec,
		now:      nowFn,
		httpOnly: httpOnly,
	}, nil
}

// Load retrieves the session from the incoming request or creates a new one.
// Undecodable cookies are treated as absent.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.newSession(m.now()), nil
	}

	var stored Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &stored); err != nil {
		return m.newSession(m.now()), nil
	}

	sess := m.sessionFromData(stored)
	if m.isExpired(sess, m.now()) {
		return nil, ErrExpired
	}
	return sess, nil
}

// Save writes the session back to the response as a cookie. Destroyed sessions clear the cookie.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}

	if sess.destroyed {
		http.SetCookie(w, m.expiredCookie())
		return nil
	}

	sess.Touch(m.now())
	data := sess.data

	encoded, err := m.codec.Encode(m.cfg.CookieName, data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: m.httpOnly,
		SameSite: m.cfg.CookieSameSite,
	}

	if !data.ExpiresAt.IsZero() {
		expiry := data.ExpiresAt.UTC()
		cookie.Expires = expiry
		remaining := expiry.Sub(m.now())
		if remaining <= 0 {
			cookie.MaxAge = -1
		} else {
			cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
		}
	}

	http.SetCookie(w, cookie)
	return nil
}

// Destroy invalidates the session cookie immediately.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, m.expiredCookie())
}

// New returns a new empty session instance using the manager configuration.
func (m *Manager) New() *Session {
	return m.newSession(m.now())
}

func (m *Manager) newSession(now time.Time) *Session {
	data := Data{
		ID:         mustGenerateToken(32),
		CreatedAt:  now.UTC(),
		LastActive: now.UTC(),
	}
	data.ExpiresAt = m.cfg.computeExpiry(now, false)

	return &Session{
		data:  data,
		dirty: true,
		cfg:   &m.cfg,
	}
}

func (m *Manager) sessionFromData(d Data) *Session {
	if d.ID == "" {
		d.ID = mustGenerateToken(32)
		d.CreatedAt = m.now().UTC()
		d.LastActive = d.CreatedAt
		d.ExpiresAt = m.cfg.computeExpiry(d.CreatedAt, d.RememberMe)
	}
	return &Session{
		data: d,
		cfg:  &m.cfg,
	}
}

func (m *Manager) isExpired(sess *Session, now time.Time) bool {
	if sess == nil {
		return true
	}
	now = now.UTC()

	if !sess.data.ExpiresAt.IsZero() && now.After(sess.data.ExpiresAt.UTC()) {
		return true
	}

	last := sess.data.LastActive
	if last.IsZero() {
		last = sess.data.CreatedAt
	}
	return !last.IsZero() && now.Sub(last) > m.cfg.IdleTimeout
}

func (m *Manager) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: m.httpOnly,
		SameSite: m.cfg.CookieSameSite,
	}
}

// ID returns the stable session identifier.
func (s *Session) ID() string {
	return s.data.ID
}

// CreatedAt returns the session creation timestamp.
func (s *Session) CreatedAt() time.Time {
	return s.data.CreatedAt
}

// ExpiresAt returns the absolute expiry timestamp for the session.
func (s *Session) ExpiresAt() time.Time {
	return s.data.ExpiresAt
}

// RememberMe indicates whether the session should persist beyond the default lifetime.
func (s *Session) RememberMe() bool {
	return s.data.RememberMe
}

// SetRememberMe toggles the remember-me state and adjusts expiry accordingly.
func (s *Session) SetRememberMe(remember bool) {
	if s.data.RememberMe == remember {
		return
	}
	s.data.RememberMe = remember
	s.data.ExpiresAt = s.cfg.computeExpiry(s.data.CreatedAt, remember)
	s.dirty = true
}

// User returns the persisted user profile, if present.
func (s *Session) User() *User {
	return s.data.User
}

// SetUser updates the session user profile.
func (s *Session) SetUser(user *User) {
	if equalUsers(s.data.User, user) {
		return
	}
	if user == nil {
		s.data.User = nil
		s.dirty = true
		return
	}

	copied := *user
	copied.Roles = slices.Clone(copied.Roles)
	s.data.User = &copied
	s.dirty = true
}

// Locale returns the language chosen for this session.
func (s *Session) Locale() string {
	return s.data.Locale
}

// SetLocale records the preferred language.
func (s *Session) SetLocale(lang string) {
	if s.data.Locale == lang {
		return
	}
	s.data.Locale = lang
	s.dirty = true
}

// AddFlash stores a notification for the next rendered page, replacing any pending one.
func (s *Session) AddFlash(kind, message string) {
	if message == "" {
		return
	}
	s.data.Flash = &Flash{Kind: kind, Message: message}
	s.dirty = true
}

// PopFlash returns and clears the pending notification.
func (s *Session) PopFlash() *Flash {
	f := s.data.Flash
	if f != nil {
		s.data.Flash = nil
		s.dirty = true
	}
	return f
}

// RefreshToken returns the stored refresh token (if any).
func (s *Session) RefreshToken() string {
	return s.data.RefreshToken
}

// SetRefreshToken updates the stored refresh token for remember-me support.
func (s *Session) SetRefreshToken(token string) {
	if s.data.RefreshToken == token {
		return
	}
	s.data.RefreshToken = token
	s.dirty = true
}

// Destroy marks the session for deletion at the end of the request.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Destroyed exposes the destroy marker.
func (s *Session) Destroyed() bool {
	return s.destroyed
}

// Touch updates the last active timestamp.
func (s *Session) Touch(now time.Time) {
	now = now.UTC()
	if now.After(s.data.LastActive) {
		s.data.LastActive = now
		s.dirty = true
	}
}

// Dirty indicates whether the session contents have changed during this request.
func (s *Session) Dirty() bool {
	return s.dirty
}

func (cfg *Config) computeExpiry(from time.Time, remember bool) time.Time {
	if cfg == nil {
		return time.Time{}
	}
	lifetime := cfg.Lifetime
	if remember && cfg.RememberLifetime > 0 {
		lifetime = cfg.RememberLifetime
	}
	if lifetime <= 0 {
		return time.Time{}
	}
	return from.UTC().Add(lifetime)
}

func equalUsers(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UID == b.UID && a.Email == b.Email && slices.Equal(a.Roles, b.Roles)
}

func mustGenerateToken(length int) string {
	token, err := generateToken(length)
	if err != nil {
		panic(err)
	}
	return token
}

func generateToken(length int) (string, error) {
	if length <= 0 {
		length = 32
	}
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
