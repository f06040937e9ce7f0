package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/churchdesk/internal/auth"
	"github.com/evcraddock/churchdesk/internal/config"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
)

// testToday is the fixed "today" every web test runs on.
var testToday = time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC)

func testServer(t *testing.T) (*Server, *sqlx.DB) {
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

	cfg := config.Default()
	cfg.DevMode = true
	if err := cfg.SetTimezone("UTC"); err != nil {
		t.Fatalf("set timezone: %v", err)
	}
	cfg.BaseURL = "http://localhost:8080"

	srv, err := NewServer(d, cfg, WithClock(duedate.FixedClock(testToday)))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, d
}

// addUser creates a user with a password and returns it.
func addUser(t *testing.T, srv *Server, email string, role auth.Role) *auth.User {
	t.Helper()
	u, err := srv.users.Add(context.Background(), email, strings.Split(email, "@")[0], role, "correct horse")
	if err != nil {
		t.Fatalf("add user %s: %v", email, err)
	}
	return u
}

// loginAs creates a user with role and returns a session cookie for it.
func loginAs(t *testing.T, srv *Server, role auth.Role) *http.Cookie {
	t.Helper()
	return loginAsEmail(t, srv, string(role)+"@example.org", role)
}

// apiKeyFor creates an API key acting as a new user with role.
func apiKeyFor(t *testing.T, srv *Server, role auth.Role) string {
	t.Helper()
	u := addUser(t, srv, "key-"+string(role)+"@example.org", role)
	raw, _, err := srv.apiKeys.Create(context.Background(), "test", u.ID)
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	return raw
}

// formRequest posts a urlencoded form as a browser would.
func formRequest(t *testing.T, srv *Server, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

// pageRequest GETs an HTML page.
func pageRequest(t *testing.T, srv *Server, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

// jsonRequest sends an AJAX request with an optional JSON body.
func jsonRequest(t *testing.T, srv *Server, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}
	r := httptest.NewRequest(method, path, reqBody)
	r.Header.Set("Accept", "application/json")
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

// apiRequest calls an /api route with a bearer key.
func apiRequest(t *testing.T, srv *Server, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, w.Body.String())
	}
}

type errorResponse struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		Dependents int    `json:"dependents"`
		Fields     []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"fields"`
	} `json:"error"`
}

func (e errorResponse) hasField(name string) bool {
	for _, f := range e.Error.Fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

type idResponse struct {
	ID int64 `json:"id"`
}

// createCategory adds a category over AJAX and returns its id.
func createCategory(t *testing.T, srv *Server, cookie *http.Cookie, name string) int64 {
	t.Helper()
	w := jsonRequest(t, srv, http.MethodPost, "/categories", cookie, map[string]string{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create category: status %d: %s", w.Code, w.Body.String())
	}
	var c idResponse
	decode(t, w, &c)
	return c.ID
}

// loginAsEmail is loginAs for tests that need more than one user per role.
func loginAsEmail(t *testing.T, srv *Server, email string, role auth.Role) *http.Cookie {
	t.Helper()
	u := addUser(t, srv, email, role)
	w := httptest.NewRecorder()
	if err := srv.sessions.Create(context.Background(), w, u.ID); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	return cookies[0]
}
