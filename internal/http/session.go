package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type sessionKey struct{}

// SessionManager issues an anonymous session cookie. The cookie value is a
// random UUID; each session owns a private history.
type SessionManager struct {
	cookieName string
	secure     bool
	maxAge     time.Duration
}

func NewSessionManager(cookieName string, secure bool, maxAge time.Duration) *SessionManager {
	if cookieName == "" {
		cookieName = "savetrack_session"
	}
	return &SessionManager{cookieName: cookieName, secure: secure, maxAge: maxAge}
}

// Middleware reuses a valid session cookie or starts a new session.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.fromCookie(r)
		if !ok {
			id = uuid.NewString()
			http.SetCookie(w, m.cookie(id))
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func (m *SessionManager) fromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func (m *SessionManager) cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionID returns the session stored by SessionManager.Middleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
