package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/evcraddock/churchdesk/internal/activity"
)

// signIn attaches u to the request context for handlers and the activity log.
func signIn(r *http.Request, u *User) *http.Request {
	ctx := WithUser(r.Context(), u)
	ctx = activity.WithActor(ctx, u.ID)
	return r.WithContext(ctx)
}

// sessionUser resolves the session cookie to a user.
func sessionUser(r *http.Request, users *UserStore, sessions *SessionStore) (*User, error) {
	id, err := sessions.Validate(r)
	if err != nil {
		return nil, err
	}
	u, err := users.GetByID(r.Context(), id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrNoSession
	}
	return u, err
}

// RequireAuth is middleware that redirects requests without a valid session to the login page.
// AJAX requests get 401 instead of a redirect.
func RequireAuth(users *UserStore, sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := sessionUser(r, users, sessions)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					slog.Error("validating session", "err", err)
				}
				if isAJAX(r) {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, signIn(r, u))
		})
	}
}

// RequirePermission is middleware that answers 403 unless the signed-in user's role grants perm.
// It must run after RequireAuth or RequireAPIKey.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFrom(r.Context())
			if u == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !u.Can(perm) {
				slog.Warn("permission denied", "user", u.Email, "role", u.Role, "perm", perm, "path", r.URL.Path)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter tracks failed API key attempts per IP.
type rateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

var apiKeyLimiter = newRateLimiter()

func newRateLimiter() *rateLimiter {
	return &rateLimiter{attempts: make(map[string][]time.Time)}
}

const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 10
)

// prune drops attempts older than the window. Callers hold mu.
func (rl *rateLimiter) prune(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-rateLimitWindow)
	valid := rl.attempts[ip][:0]
	for _, t := range rl.attempts[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, ip)
		return nil
	}
	rl.attempts[ip] = valid
	return valid
}

// blocked reports whether ip has too many recent failures.
func (rl *rateLimiter) blocked(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.prune(ip, time.Now())) >= rateLimitMaxFail
}

// recordFailure records a failed attempt.
func (rl *rateLimiter) recordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	rl.attempts[ip] = append(rl.prune(ip, now), now)
}

// RequireAPIKey is middleware for /api/ routes. It accepts a Bearer API key,
// or a browser session so the web UI can call the same endpoints.
// Returns 401 for missing/invalid keys, 429 for rate-limited IPs.
func RequireAPIKey(users *UserStore, apiKeys *APIKeyStore, sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				u, err := sessionUser(r, users, sessions)
				if err != nil {
					http.Error(w, "Authorization required", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, signIn(r, u))
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}
			key := strings.TrimPrefix(authHeader, "Bearer ")

			ip := r.RemoteAddr
			if apiKeyLimiter.blocked(ip) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			u, err := keyUser(r.Context(), users, apiKeys, key)
			if err != nil {
				slog.Error("validating api key", "err", err)
				http.Error(w, "Internal error", http.StatusInternalServerError)
				return
			}
			if u == nil {
				apiKeyLimiter.recordFailure(ip)
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, signIn(r, u))
		})
	}
}

func keyUser(ctx context.Context, users *UserStore, apiKeys *APIKeyStore, key string) (*User, error) {
	userID, ok, err := apiKeys.Validate(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	u, err := users.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return u, err
}

// isAJAX reports whether the client asked for a JSON answer.
func isAJAX(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
