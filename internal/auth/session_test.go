package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionCreateAndValidate(t *testing.T) {
	f := newFixture(t)
	u := addUser(t, f.users, "ann@example.org", Staff)

	cookie := sessionCookie(t, f.sessions, u)
	if cookie.Name != cookieName {
		t.Errorf("cookie name = %q", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Error("cookie should be HttpOnly")
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(cookie)

	id, err := f.sessions.Validate(r)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id != u.ID {
		t.Errorf("user id = %d, want %d", id, u.ID)
	}
}

func TestSessionValidateRejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"unknown id", &http.Cookie{Name: cookieName, Value: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			if _, err := f.sessions.Validate(r); !errors.Is(err, ErrNoSession) {
				t.Errorf("err = %v, want ErrNoSession", err)
			}
		})
	}
}

func TestSessionExpired(t *testing.T) {
	f := newFixture(t)
	u := addUser(t, f.users, "ann@example.org", Staff)

	past := time.Now().Add(-time.Hour).UTC()
	if _, err := f.db.Exec("INSERT INTO sessions (id, user_id, expires_at) VALUES ('old', ?, ?)", u.ID, past); err != nil {
		t.Fatalf("insert: %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: "old"})
	if _, err := f.sessions.Validate(r); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}

	var count int
	if err := f.db.Get(&count, "SELECT COUNT(*) FROM sessions"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expired session not removed, count = %d", count)
	}
}

func TestSessionDestroy(t *testing.T) {
	f := newFixture(t)
	u := addUser(t, f.users, "ann@example.org", Staff)
	cookie := sessionCookie(t, f.sessions, u)

	r := httptest.NewRequest("POST", "/logout", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	if err := f.sessions.Destroy(w, r); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	cleared := w.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("expected cookie to be cleared, got %+v", cleared)
	}

	if _, err := f.sessions.Validate(r); !errors.Is(err, ErrNoSession) {
		t.Errorf("session still valid after destroy: %v", err)
	}
}

func TestSessionDeletedWithUser(t *testing.T) {
	f := newFixture(t)
	u := addUser(t, f.users, "ann@example.org", Staff)
	cookie := sessionCookie(t, f.sessions, u)

	if err := f.users.Delete(context.Background(), u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(cookie)
	if _, err := f.sessions.Validate(r); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

func TestSessionCleanup(t *testing.T) {
	f := newFixture(t)
	u := addUser(t, f.users, "ann@example.org", Staff)
	sessionCookie(t, f.sessions, u)

	past := time.Now().Add(-time.Hour).UTC()
	if _, err := f.db.Exec("INSERT INTO sessions (id, user_id, expires_at) VALUES ('old', ?, ?)", u.ID, past); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := f.sessions.Cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	var count int
	if err := f.db.Get(&count, "SELECT COUNT(*) FROM sessions"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
