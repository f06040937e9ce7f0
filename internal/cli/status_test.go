package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStatusNoAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DESK_API_KEY", "")
	t.Setenv("DESK_SERVER_URL", "http://localhost:9999")

	var out bytes.Buffer
	if err := runStatus(context.Background(), &out); err != nil {
		t.Fatalf("status with no key: %v", err)
	}
	if !strings.Contains(out.String(), "not configured") {
		t.Errorf("output = %q", out.String())
	}
}

func TestStatusShortAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DESK_API_KEY", "dk_ab")
	t.Setenv("DESK_SERVER_URL", "http://127.0.0.1:1")

	var out bytes.Buffer
	if err := runStatus(context.Background(), &out); err != nil {
		t.Fatalf("status with short key: %v", err)
	}
	if !strings.Contains(out.String(), "✗") {
		t.Errorf("expected unreachable server, got %q", out.String())
	}
}

func TestStatusWithServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports/dashboard" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer dk_validkey1234567890abc" {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"equipment_overdue":2,"equipment_due_soon":1,"followups_overdue":0,"followups_due_soon":4}`)); err != nil {
			t.Errorf("write: %v", err)
		}
	}))
	defer srv.Close()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("DESK_API_KEY", "dk_validkey1234567890abc")
	t.Setenv("DESK_SERVER_URL", srv.URL)

	var out bytes.Buffer
	if err := runStatus(context.Background(), &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "✓ connected") {
		t.Errorf("output = %q", got)
	}
	if !strings.Contains(got, "2 equipment overdue") || !strings.Contains(got, "4 due soon") {
		t.Errorf("missing alert counts: %q", got)
	}
	if strings.Contains(got, "dk_validkey1234567890abc") {
		t.Error("full key must not be printed")
	}
}

func TestStatusWithInvalidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid API key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("DESK_API_KEY", "dk_badkey1234567890abcde")
	t.Setenv("DESK_SERVER_URL", srv.URL)

	var out bytes.Buffer
	if err := runStatus(context.Background(), &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "Invalid API key") {
		t.Errorf("output = %q", out.String())
	}
}
