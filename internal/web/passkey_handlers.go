package web

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/evcraddock/churchdesk/internal/auth"
)

const (
	loginCeremonyCookie = "desk_passkey"
	ceremonyTTL         = 5 * time.Minute
)

// passkeyHandlers holds WebAuthn-related HTTP handlers.
type passkeyHandlers struct {
	wan      *webauthn.WebAuthn
	passkeys *auth.PasskeyStore
	sessions *auth.SessionStore
	users    *auth.UserStore

	// In-flight ceremonies. Registrations are keyed by user id,
	// logins by challenge, which the browser carries in a cookie.
	mu          sync.Mutex
	regSessions map[int64]*webauthn.SessionData
	loginSess   map[string]*webauthn.SessionData
}

func newPasskeyHandlers(baseURL string, passkeys *auth.PasskeyStore, sessions *auth.SessionStore, users *auth.UserStore) (*passkeyHandlers, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	wan, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Church Desk",
		RPID:          parsed.Hostname(),
		RPOrigins:     []string{strings.TrimSuffix(baseURL, "/")},
	})
	if err != nil {
		return nil, err
	}

	return &passkeyHandlers{
		wan:         wan,
		passkeys:    passkeys,
		sessions:    sessions,
		users:       users,
		regSessions: make(map[int64]*webauthn.SessionData),
		loginSess:   make(map[string]*webauthn.SessionData),
	}, nil
}

// pruneLocked drops ceremonies that were never finished. Callers hold mu.
func (h *passkeyHandlers) pruneLocked(now time.Time) {
	for k, sd := range h.loginSess {
		if now.After(sd.Expires) {
			delete(h.loginSess, k)
		}
	}
	for k, sd := range h.regSessions {
		if now.After(sd.Expires) {
			delete(h.regSessions, k)
		}
	}
}

// handleBeginRegistration starts passkey registration for the signed-in user.
func (h *passkeyHandlers) handleBeginRegistration(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())

	creds, err := h.passkeys.WebAuthnCredentials(r.Context(), u.ID)
	if err != nil {
		slog.Error("loading credentials", "err", err)
		apiError(w, "INTERNAL_ERROR", "internal error", http.StatusInternalServerError)
		return
	}

	// Exclude existing credentials so the same authenticator is not registered twice.
	exclude := make([]protocol.CredentialDescriptor, len(creds))
	for i, c := range creds {
		exclude[i] = c.Descriptor()
	}

	creation, session, err := h.wan.BeginRegistration(auth.NewPasskeyUser(u, creds),
		webauthn.WithExclusions(exclude),
	)
	if err != nil {
		slog.Error("beginning registration", "err", err)
		apiError(w, "INTERNAL_ERROR", "internal error", http.StatusInternalServerError)
		return
	}
	if session.Expires.IsZero() {
		session.Expires = time.Now().Add(ceremonyTTL)
	}

	h.mu.Lock()
	h.pruneLocked(time.Now())
	h.regSessions[u.ID] = session
	h.mu.Unlock()

	apiJSON(w, creation, http.StatusOK)
}

// handleFinishRegistration completes passkey registration.
func (h *passkeyHandlers) handleFinishRegistration(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())

	h.mu.Lock()
	session, ok := h.regSessions[u.ID]
	delete(h.regSessions, u.ID)
	h.mu.Unlock()

	if !ok {
		apiError(w, "BAD_REQUEST", "no registration in progress", http.StatusBadRequest)
		return
	}

	creds, err := h.passkeys.WebAuthnCredentials(r.Context(), u.ID)
	if err != nil {
		slog.Error("loading credentials", "err", err)
		apiError(w, "INTERNAL_ERROR", "internal error", http.StatusInternalServerError)
		return
	}

	credential, err := h.wan.FinishRegistration(auth.NewPasskeyUser(u, creds), *session, r)
	if err != nil {
		slog.Warn("finishing registration", "user", u.Email, "err", err)
		apiError(w, "BAD_REQUEST", "registration failed", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "Passkey"
	}

	if err := h.passkeys.Save(r.Context(), u.ID, name, credential); err != nil {
		slog.Error("saving credential", "err", err)
		apiError(w, "INTERNAL_ERROR", "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("passkey registered", "user", u.Email, "name", name)
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleBeginLogin starts a discoverable passkey login.
func (h *passkeyHandlers) handleBeginLogin(w http.ResponseWriter, r *http.Request) {
	assertion, session, err := h.wan.BeginDiscoverableLogin()
	if err != nil {
		slog.Error("beginning passkey login", "err", err)
		apiError(w, "INTERNAL_ERROR", "internal error", http.StatusInternalServerError)
		return
	}
	if session.Expires.IsZero() {
		session.Expires = time.Now().Add(ceremonyTTL)
	}

	h.mu.Lock()
	h.pruneLocked(time.Now())
	h.loginSess[session.Challenge] = session
	h.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     loginCeremonyCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(session.Challenge)),
		Path:     "/passkey/login",
		MaxAge:   int(ceremonyTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	apiJSON(w, assertion, http.StatusOK)
}

// takeLoginSession removes and returns the ceremony named by the request cookie.
func (h *passkeyHandlers) takeLoginSession(r *http.Request) *webauthn.SessionData {
	c, err := r.Cookie(loginCeremonyCookie)
	if err != nil {
		return nil
	}
	challenge, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	session := h.loginSess[string(challenge)]
	delete(h.loginSess, string(challenge))
	return session
}

// handleFinishLogin completes passkey login and creates a session.
func (h *passkeyHandlers) handleFinishLogin(w http.ResponseWriter, r *http.Request) {
	session := h.takeLoginSession(r)
	if session == nil {
		apiError(w, "BAD_REQUEST", "no login in progress", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: loginCeremonyCookie, Path: "/passkey/login", MaxAge: -1})

	var loggedIn *auth.User
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		id, err := auth.UserIDFromHandle(userHandle)
		if err != nil {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		u, err := h.users.GetByID(r.Context(), id)
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		if err != nil {
			return nil, err
		}
		creds, err := h.passkeys.WebAuthnCredentials(r.Context(), id)
		if err != nil {
			return nil, err
		}
		loggedIn = u
		return auth.NewPasskeyUser(u, creds), nil
	}

	if _, _, err := h.wan.FinishPasskeyLogin(handler, *session, r); err != nil {
		slog.Warn("finishing passkey login", "err", err)
		apiError(w, "UNAUTHORIZED", "login failed", http.StatusUnauthorized)
		return
	}

	if err := h.sessions.Create(r.Context(), w, loggedIn.ID); err != nil {
		slog.Error("creating session", "err", err)
		apiError(w, "INTERNAL_ERROR", "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("login success", "user", loggedIn.Email, "method", "passkey")
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
