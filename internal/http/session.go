package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	applog "spendwise/internal/log"
	"spendwise/internal/session"
)

const (
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "spendwise_session"
	// SessionHeader carries the session token for API clients.
	SessionHeader = "X-Session-Token"
)

type sessionKey struct{}

// sessionToken reads the token from the header first, then the cookie.
func sessionToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(SessionHeader)); t != "" {
		return t
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireSession rejects requests without a live session and stores the session
// in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Lookup(sessionToken(r))
		if !ok {
			ErrorResponse(http.StatusUnauthorized, MsgSessionRequired).Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUsername, sess.Username))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session stored by requireSession.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

func (s *Server) sessionCookie(r *http.Request, token string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	} else {
		c.MaxAge = -1
	}
	return c
}
