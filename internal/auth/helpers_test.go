package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/churchdesk/internal/db"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})
	return d
}

func addUser(t *testing.T, users *UserStore, email string, role Role) *User {
	t.Helper()
	u, err := users.Add(context.Background(), email, "", role, "")
	if err != nil {
		t.Fatalf("add user %s: %v", email, err)
	}
	return u
}

// sessionCookie starts a session for u and returns its cookie.
func sessionCookie(t *testing.T, sessions *SessionStore, u *User) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	if err := sessions.Create(context.Background(), w, u.ID); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	return cookies[0]
}

type fixture struct {
	db       *sqlx.DB
	users    *UserStore
	sessions *SessionStore
	apiKeys  *APIKeyStore
	passkeys *PasskeyStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	d := openTestDB(t)
	return fixture{
		db:       d,
		users:    NewUserStore(d),
		sessions: NewSessionStore(d, time.Hour, false),
		apiKeys:  NewAPIKeyStore(d),
		passkeys: NewPasskeyStore(d),
	}
}
