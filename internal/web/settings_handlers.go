package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/churchdesk/internal/auth"
)

type settingsData struct {
	Passkeys []auth.StoredCredential
	APIKeys  []auth.APIKey
	NewKey   string
}

type apiKeyCreated struct {
	Key    string       `json:"key"` // raw key, shown once
	APIKey *auth.APIKey `json:"api_key"`
}

// authNotFound turns the auth stores' sentinel errors into a 404.
func authNotFound(err error) error {
	switch {
	case errors.Is(err, auth.ErrKeyNotFound),
		errors.Is(err, auth.ErrCredentialNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return errNotFound
	}
	return err
}

func (s *Server) renderSettings(w http.ResponseWriter, r *http.Request, status int, newKey string) {
	u := auth.UserFrom(r.Context())

	passkeys, err := s.passkeys.ListByUser(r.Context(), u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	keys, err := s.apiKeys.List(r.Context(), u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	v := view{Title: "Settings", Data: settingsData{Passkeys: passkeys, APIKeys: keys, NewKey: newKey}}
	if newKey != "" {
		v.Flash = "API key created. Copy it now, it will not be shown again."
	}
	s.render(w, r, status, "settings.html", v)
}

// handleSettings shows the signed-in user's passkeys and API keys.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	s.renderSettings(w, r, http.StatusOK, "")
}

// handleAPIKeyCreate issues an API key acting as the signed-in user.
func (s *Server) handleAPIKeyCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `form:"name"`
	}
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "API Key"
	}

	u := auth.UserFrom(r.Context())
	raw, key, err := s.apiKeys.Create(r.Context(), name, u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		apiJSON(w, apiKeyCreated{Key: raw, APIKey: key}, http.StatusCreated)
		return
	}
	s.renderSettings(w, r, http.StatusCreated, raw)
}

// handleAPIKeyDelete revokes one of the signed-in user's API keys.
func (s *Server) handleAPIKeyDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	u := auth.UserFrom(r.Context())
	if err := s.apiKeys.Delete(r.Context(), id, u.ID); err != nil {
		s.fail(w, r, authNotFound(err))
		return
	}
	done(w, r, nil, http.StatusNoContent, "/settings")
}

// handlePasskeyDelete removes one of the signed-in user's passkeys.
func (s *Server) handlePasskeyDelete(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())
	if err := s.passkeys.Delete(r.Context(), chi.URLParam(r, "id"), u.ID); err != nil {
		s.fail(w, r, authNotFound(err))
		return
	}
	done(w, r, nil, http.StatusNoContent, "/settings")
}
