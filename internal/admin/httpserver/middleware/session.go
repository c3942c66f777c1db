package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	appsession "finitefield.org/blog-admin/internal/admin/session"
)

type sessionContextKey string

const requestSessionKey sessionContextKey = "admin.session"

// SessionStore abstracts the session manager for middleware integration.
type SessionStore interface {
	Load(*http.Request) (*appsession.Session, error)
	New() *appsession.Session
	Save(http.ResponseWriter, *appsession.Session) error
	Destroy(http.ResponseWriter)
}

// Session attaches the decoded session to the request context. The cookie is
// written before the first response byte so handlers may mutate the session
// right up to the point they render.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := store.Load(r)
			if errors.Is(err, appsession.ErrExpired) {
				zap.L().Debug("session expired; resetting")
				store.Destroy(w)
				sess = store.New()
			} else if err != nil || sess == nil {
				if err != nil {
					zap.L().Warn("session load failed", zap.Error(err))
				}
				sess = store.New()
			}

			sw := &sessionWriter{ResponseWriter: w, store: store, sess: sess}
			ctx := context.WithValue(r.Context(), requestSessionKey, sess)
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.persist()
		})
	}
}

// SessionFromContext retrieves the session attached to this request.
func SessionFromContext(ctx context.Context) (*appsession.Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(requestSessionKey).(*appsession.Session)
	return sess, ok && sess != nil
}

// sessionWriter defers Set-Cookie until headers are about to be flushed.
type sessionWriter struct {
	http.ResponseWriter
	store SessionStore
	sess  *appsession.Session
	saved bool
}

func (w *sessionWriter) persist() {
	if w.saved {
		return
	}
	w.saved = true
	if err := w.store.Save(w.ResponseWriter, w.sess); err != nil {
		zap.L().Error("session save failed", zap.Error(err))
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.persist()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.persist()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
