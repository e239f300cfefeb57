package http

import (
	"errors"
	"net/http"

	"spendwise/internal/auth"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister creates an account. A taken username is 409.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var p auth.Profile
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	if _, err := s.auth.Register(r.Context(), p); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.metrics.registrations.Inc()

	NewJSONResponse().Body(MessageBody{Message: MsgRegistered, Redirect: "/login"}).Write(w)
}

// handleLogin checks credentials and opens a session. The token is returned both
// as a cookie and in the X-Session-Token header.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, "login", err)
		return
	}

	u, err := s.auth.Login(r.Context(), c.Username, c.Password)
	if err != nil {
		if errors.Is(err, core.ErrAuth) {
			s.metrics.failedLogins.Inc()
		}
		writeError(w, r, "login", err)
		return
	}
	s.metrics.logins.Inc()

	sess := s.sessions.Create(u.Username)
	NewJSONResponse().
		Header(SessionHeader, sess.Token).
		Cookie(s.sessionCookie(r, sess.Token, s.opts.SessionTTL)).
		Message(MsgLoggedIn).
		Write(w)
}

// handleLogout drops the caller's session if there is one. It always succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" && s.sessions.Drop(token) {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Session dropped")
	}
	NewJSONResponse().
		Cookie(s.sessionCookie(r, "", 0)).
		Message(MsgLoggedOut).
		Write(w)
}
