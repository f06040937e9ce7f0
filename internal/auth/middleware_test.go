package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evcraddock/churchdesk/internal/activity"
)

// whoami echoes the signed-in user's email.
var whoami = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	if u == nil {
		http.Error(w, "no user", http.StatusInternalServerError)
		return
	}
	if id, ok := activity.ActorFrom(r.Context()); !ok || id != u.ID {
		http.Error(w, "actor not set", http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, u.Email)
})

func TestRequireAuthRedirectsUnauthenticated(t *testing.T) {
	f := newFixture(t)
	handler := RequireAuth(f.users, f.sessions)(whoami)

	r := httptest.NewRequest("GET", "/equipment", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if w.Header().Get("Location") != "/login" {
		t.Errorf("location = %q, want /login", w.Header().Get("Location"))
	}
}

func TestRequireAuthAJAXGets401(t *testing.T) {
	f := newFixture(t)
	handler := RequireAuth(f.users, f.sessions)(whoami)

	r := httptest.NewRequest("POST", "/equipment/1/maintenance", nil)
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthAllowsAuthenticated(t *testing.T) {
	f := newFixture(t)
	u := addUser(t, f.users, "ann@example.org", Staff)
	handler := RequireAuth(f.users, f.sessions)(whoami)

	r := httptest.NewRequest("GET", "/equipment", nil)
	r.AddCookie(sessionCookie(t, f.sessions, u))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "ann@example.org" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want int
	}{
		{"no user", nil, http.StatusUnauthorized},
		{"volunteer denied", &User{ID: 1, Role: Volunteer}, http.StatusForbidden},
		{"staff allowed", &User{ID: 2, Role: Staff}, http.StatusOK},
	}

	handler := RequirePermission(PermEquipmentManage)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/equipment", nil)
			if tt.user != nil {
				r = r.WithContext(WithUser(r.Context(), tt.user))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	f := newFixture(t)
	u := addUser(t, f.users, "reports@example.org", Staff)
	raw, _, err := f.apiKeys.Create(context.Background(), "reports", u.ID)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	cookie := sessionCookie(t, f.sessions, u)

	// A fresh limiter keeps failures from other tests out of this one.
	apiKeyLimiter = newRateLimiter()
	handler := RequireAPIKey(f.users, f.apiKeys, f.sessions)(whoami)

	tests := []struct {
		name   string
		header string
		cookie bool
		want   int
	}{
		{"missing", "", false, http.StatusUnauthorized},
		{"not bearer", "Basic abc", false, http.StatusUnauthorized},
		{"invalid key", "Bearer dk_wrong", false, http.StatusUnauthorized},
		{"valid key", "Bearer " + raw, false, http.StatusOK},
		{"session cookie", "", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/reports/due", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie {
				r.AddCookie(cookie)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRequireAPIKeyRateLimit(t *testing.T) {
	f := newFixture(t)
	apiKeyLimiter = newRateLimiter()
	handler := RequireAPIKey(f.users, f.apiKeys, f.sessions)(whoami)

	var last int
	for i := 0; i <= rateLimitMaxFail; i++ {
		r := httptest.NewRequest("GET", "/api/equipment", nil)
		r.RemoteAddr = "10.0.0.9:5555"
		r.Header.Set("Authorization", "Bearer dk_wrong")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after %d failures = %d, want 429", rateLimitMaxFail, last)
	}
}
