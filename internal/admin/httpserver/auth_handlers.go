package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	custommw "finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	appsession "finitefield.org/blog-admin/internal/admin/session"
	"finitefield.org/blog-admin/internal/admin/templates/auth"
	"finitefield.org/blog-admin/internal/admin/templates/helpers"
)

type authHandlers struct {
	authenticator custommw.Authenticator
	passwords     PasswordChecker
	basePath      string
	loginPath     string
}

func newAuthHandlers(authenticator custommw.Authenticator, basePath, loginPath string, passwords PasswordChecker) *authHandlers {
	if authenticator == nil {
		panic("auth: authenticator is required")
	}
	if strings.TrimSpace(basePath) == "" {
		basePath = "/"
	}
	if strings.TrimSpace(loginPath) == "" {
		if basePath == "/" {
			loginPath = "/login"
		} else {
			loginPath = strings.TrimRight(basePath, "/") + "/login"
		}
	}
	return &authHandlers{
		authenticator: authenticator,
		passwords:     passwords,
		basePath:      basePath,
		loginPath:     loginPath,
	}
}

func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.isAuthenticated(r) && !forceLogin(r) {
		target := h.redirectTarget(r.URL.Query().Get("next"))
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	data := h.buildLoginPageData(r, nil)
	render(w, r, auth.LoginPage(data), http.StatusOK)
}

func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		state := &loginFormState{Error: helpers.T(ctx, "pages.register.errors.form", "The form could not be submitted. Please try again.")}
		render(w, r, auth.LoginPage(h.buildLoginPageData(r, state)), http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	recordedNext := r.PostFormValue("next")
	remember := parseCheckbox(r.PostFormValue("remember"))
	token := strings.TrimSpace(r.PostFormValue("id_token"))
	refreshToken := strings.TrimSpace(r.PostFormValue("refresh_token"))

	state := &loginFormState{
		Email:    email,
		Remember: remember,
		Next:     recordedNext,
	}

	if token == "" && h.passwords != nil {
		password := r.PostFormValue("password")
		if email == "" || password == "" {
			state.Error = helpers.T(ctx, "pages.login.errors.missingPassword", "Enter your email and password to sign in.")
			render(w, r, auth.LoginPage(h.buildLoginPageData(r, state)), http.StatusBadRequest)
			return
		}
		uid, err := h.passwords.CheckPassword(email, password)
		if err != nil {
			zap.L().Info("admin password login failed", zap.String("email", email), zap.Error(err))
			state.Error = h.errorMessageFor(r, custommw.ErrUnauthorized)
			render(w, r, auth.LoginPage(h.buildLoginPageData(r, state)), http.StatusUnauthorized)
			return
		}
		token = uid
	}

	if token == "" {
		state.Error = helpers.T(ctx, "pages.login.errors.missingToken", "Enter an ID token to sign in.")
		render(w, r, auth.LoginPage(h.buildLoginPageData(r, state)), http.StatusBadRequest)
		return
	}

	user, err := h.authenticator.Authenticate(r, token)
	if err != nil || user == nil {
		zap.L().Info("admin login failed", zap.Error(err))
		state.Error = h.errorMessageFor(r, err)
		render(w, r, auth.LoginPage(h.buildLoginPageData(r, state)), http.StatusUnauthorized)
		return
	}
	if user.Email == "" {
		user.Email = email
	}

	h.signIn(w, r, user, token, remember)
	if sess, ok := custommw.SessionFromContext(ctx); ok && refreshToken != "" {
		sess.SetRefreshToken(refreshToken)
	}

	custommw.Redirect(w, r, h.redirectTarget(recordedNext))
}

func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess != nil {
		sess.Destroy()
	}
	h.clearAuthCookie(w)

	redirect := h.loginURLWithParams(map[string]string{
		"status": "logged_out",
	})
	custommw.Redirect(w, r, redirect)
}

// signIn records user in the session and issues the auth cookie.
func (h *authHandlers) signIn(w http.ResponseWriter, r *http.Request, user *custommw.User, token string, remember bool) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess != nil {
		sess.SetUser(&appsession.User{
			UID:   user.UID,
			Email: user.Email,
			Roles: append([]string(nil), user.Roles...),
		})
		sess.SetRememberMe(remember)
	}

	issuedToken := token
	if user.Token != "" {
		issuedToken = user.Token
	}
	h.setAuthCookie(w, r, issuedToken, remember)
}

type loginFormState struct {
	Email    string
	Remember bool
	Next     string
	Error    string
	Message  string
}

func (h *authHandlers) buildLoginPageData(r *http.Request, state *loginFormState) auth.LoginPageData {
	q := url.Values{}
	if r.URL != nil {
		q = r.URL.Query()
	}

	next := ""
	if state != nil && state.Next != "" {
		next = h.normalizeNext(state.Next)
	} else {
		next = h.normalizeNext(q.Get("next"))
	}

	message := ""
	if state != nil && strings.TrimSpace(state.Message) != "" {
		message = state.Message
	} else {
		message = h.messageForQuery(r, q)
	}

	errorText := ""
	if state != nil {
		errorText = state.Error
	}

	remember := false
	if state != nil {
		remember = state.Remember
	} else if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess != nil {
		remember = sess.RememberMe()
	}

	email := ""
	if state != nil {
		email = state.Email
	} else {
		email = strings.TrimSpace(q.Get("email"))
	}

	return auth.LoginPageData{
		Email:         email,
		Message:       message,
		Error:         errorText,
		Remember:      remember,
		Next:          next,
		LoginPath:     h.loginPath,
		PasswordLogin: h.passwords != nil,
		RegisterRoute: "/register",
	}
}

func (h *authHandlers) isAuthenticated(r *http.Request) bool {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok || sess == nil {
		return false
	}
	user := sess.User()
	return user != nil && strings.TrimSpace(user.UID) != ""
}

func (h *authHandlers) errorMessageFor(r *http.Request, err error) string {
	ctx := r.Context()
	failed := helpers.T(ctx, "pages.login.errors.failed", "Sign in failed. Check your details and try again.")
	var authErr *custommw.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Reason {
		case custommw.ReasonTokenExpired:
			return helpers.T(ctx, "pages.login.status.expired", "Your session has expired. Please sign in again.")
		case custommw.ReasonMissingToken:
			return helpers.T(ctx, "pages.login.errors.missingToken", "Enter an ID token to sign in.")
		}
	}
	return failed
}

func (h *authHandlers) messageForQuery(r *http.Request, q url.Values) string {
	if q == nil {
		return ""
	}
	ctx := r.Context()
	switch q.Get("status") {
	case "logged_out":
		return helpers.T(ctx, "pages.login.status.loggedOut", "You have been signed out.")
	case "registered":
		return helpers.T(ctx, "pages.login.status.registered", "Your account has been created. Please sign in.")
	}
	switch q.Get("reason") {
	case custommw.ReasonTokenExpired, "expired":
		return helpers.T(ctx, "pages.login.status.expired", "Your session has expired. Please sign in again.")
	case custommw.ReasonMissingToken:
		return helpers.T(ctx, "pages.login.status.required", "Please sign in to continue.")
	case custommw.ReasonTokenInvalid:
		return helpers.T(ctx, "pages.login.status.invalid", "Your sign-in details are no longer valid. Please try again.")
	default:
		return ""
	}
}

func (h *authHandlers) redirectTarget(raw string) string {
	next := h.normalizeNext(raw)
	if next != "" {
		return next
	}
	if strings.TrimSpace(h.basePath) == "" {
		return "/"
	}
	return h.basePath
}

func (h *authHandlers) setAuthCookie(w http.ResponseWriter, r *http.Request, token string, remember bool) {
	if strings.TrimSpace(token) == "" {
		h.clearAuthCookie(w)
		return
	}
	value := token
	if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
		value = "Bearer " + token
	}
	cookie := &http.Cookie{
		Name:     custommw.AuthCookieName,
		Value:    value,
		Path:     h.cookiePath(),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess != nil {
			if expiry := sess.ExpiresAt(); !expiry.IsZero() {
				expiry = expiry.UTC()
				cookie.Expires = expiry
				if remaining := time.Until(expiry); remaining > 0 {
					cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
				}
			}
		}
	}
	http.SetCookie(w, cookie)
}

func (h *authHandlers) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     custommw.AuthCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *authHandlers) cookiePath() string {
	if strings.TrimSpace(h.basePath) == "" {
		return "/"
	}
	return h.basePath
}

func (h *authHandlers) loginURLWithParams(params map[string]string) string {
	parsed, err := url.Parse(h.loginPath)
	if err != nil {
		return h.loginPath
	}
	q := parsed.Query()
	for key, val := range params {
		if strings.TrimSpace(val) == "" {
			continue
		}
		q.Set(key, val)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func parseCheckbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

func forceLogin(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("force"))) {
	case "1", "true", "yes", "force":
		return true
	default:
		return false
	}
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	trim := func(p string) string {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		for len(p) > 1 && strings.HasSuffix(p, "/") {
			p = strings.TrimSuffix(p, "/")
		}
		return p
	}
	return trim(a) == trim(b)
}

func (h *authHandlers) normalizeNext(raw string) string {
	sanitized := sanitizeNextTarget(h.basePath, raw)
	if sanitized == "" {
		return ""
	}

	if h.loginPath != "" {
		if samePath(pathOnly(sanitized), h.loginPath) {
			return ""
		}
	}
	return sanitized
}

func sanitizeNextTarget(basePath, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}

	pathValue := parsed.Path
	if pathValue == "" {
		pathValue = "/"
	}

	unescaped, err := url.PathUnescape(pathValue)
	if err != nil {
		return ""
	}
	if strings.Contains(unescaped, "\\") {
		return ""
	}

	cleaned := path.Clean(unescaped)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	if strings.HasPrefix(cleaned, "//") {
		return ""
	}

	normalisedBase := normalizeBase(basePath)
	if normalisedBase != "/" && !hasSafePrefix(cleaned, normalisedBase) {
		return ""
	}

	target := cleaned
	if parsed.RawQuery != "" {
		target += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		target += "#" + parsed.Fragment
	}
	return target
}

func normalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return "/"
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if len(base) > 1 && strings.HasSuffix(base, "/") {
		base = strings.TrimRight(base, "/")
	}
	return base
}

func hasSafePrefix(pathValue, base string) bool {
	if base == "/" {
		return strings.HasPrefix(pathValue, "/")
	}
	if !strings.HasPrefix(pathValue, base) {
		return false
	}
	if len(pathValue) == len(base) {
		return true
	}
	return pathValue[len(base)] == '/'
}

func pathOnly(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Path
}
