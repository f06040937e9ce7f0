package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/churchdesk/internal/auth"
)

type loginForm struct {
	Email string
}

// handleLoginPage renders the login form.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.Validate(r); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", view{Title: "Sign in", Form: loginForm{}})
}

// handleLoginSubmit checks an email and password and starts a session.
func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")
	form := loginForm{Email: email}

	if email == "" || password == "" {
		s.render(w, r, http.StatusUnprocessableEntity, "login.html",
			view{Title: "Sign in", Form: form, Error: "Email and password are required"})
		return
	}

	u, err := s.users.Authenticate(r.Context(), email, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		// Same message for unknown email and wrong password.
		slog.Warn("login failed", "email", email, "ip", r.RemoteAddr)
		s.render(w, r, http.StatusUnauthorized, "login.html",
			view{Title: "Sign in", Form: form, Error: "Invalid email or password"})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.sessions.Create(r.Context(), w, u.ID); err != nil {
		s.fail(w, r, err)
		return
	}

	slog.Info("login success", "user", u.Email, "method", "password")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout destroys the session and redirects to login.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(w, r); err != nil {
		slog.Error("destroying session", "err", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
