package web

import (
	"net/http"
	"strings"
	"testing"

	"github.com/evcraddock/churchdesk/internal/auth"
)

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	w := pageRequest(t, srv, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	pageRequest(t, srv, "/health", nil)

	w := pageRequest(t, srv, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "churchdesk_http_requests_total") {
		t.Error("expected http request counter in metrics output")
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		if w := pageRequest(t, srv, path, nil); w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, w.Code)
		}
	}
}

func TestNotFoundPage(t *testing.T) {
	srv, _ := testServer(t)
	cookie := loginAs(t, srv, auth.Staff)

	w := pageRequest(t, srv, "/nowhere", cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "page not found") {
		t.Error("expected not found message")
	}

	j := jsonRequest(t, srv, http.MethodGet, "/equipment/abc", cookie, nil)
	if j.Code != http.StatusNotFound {
		t.Fatalf("bad id: status = %d, want 404", j.Code)
	}
	var e errorResponse
	decode(t, j, &e)
	if e.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", e.Error.Code)
	}
}

func TestParsePages(t *testing.T) {
	pages, err := parsePages()
	if err != nil {
		t.Fatalf("parse pages: %v", err)
	}
	for _, name := range []string{
		"activity.html", "categories.html", "dashboard.html", "due.html",
		"equipment_detail.html", "equipment_form.html", "equipment_list.html",
		"error.html", "followup_form.html", "login.html", "maintenance_form.html",
		"member_form.html", "member_list.html", "settings.html", "users.html",
		"visitor_detail.html", "visitor_form.html", "visitor_list.html",
	} {
		if pages[name] == nil {
			t.Errorf("missing page %s", name)
		}
	}
	if _, ok := pages["layout.html"]; ok {
		t.Error("layout should not be a page of its own")
	}
}

func TestStaffPagesRender(t *testing.T) {
	srv, _ := testServer(t)
	admin := loginAs(t, srv, auth.Admin)

	for _, path := range []string{"/", "/reports/due", "/reports/due?days=7", "/activity", "/settings", "/users"} {
		t.Run(path, func(t *testing.T) {
			if w := pageRequest(t, srv, path, admin); w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestTmplDays(t *testing.T) {
	n := func(i int) *int { return &i }
	tests := []struct {
		in   *int
		want string
	}{
		{nil, "-"},
		{n(0), "today"},
		{n(1), "in 1 day"},
		{n(12), "in 12 days"},
		{n(-1), "1 day ago"},
		{n(-81), "81 days ago"},
	}
	for _, tt := range tests {
		if got := tmplDays(tt.in); got != tt.want {
			t.Errorf("tmplDays(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTmplPageURLKeepsFilters(t *testing.T) {
	q := map[string][]string{"due": {"OVERDUE"}, "page": {"1"}}
	got := tmplPageURL(q, 3)
	if got != "?due=OVERDUE&page=3" {
		t.Errorf("got %q", got)
	}
	if q["page"][0] != "1" {
		t.Error("pageURL must not modify the query it was given")
	}
}
