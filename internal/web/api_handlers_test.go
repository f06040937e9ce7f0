package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/evcraddock/churchdesk/internal/auth"
)

func TestAPIRequiresKey(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/api/equipment", "/api/visitors", "/api/reports/due", "/api/reports/dashboard"} {
		t.Run(path, func(t *testing.T) {
			if w := apiRequest(t, srv, path, ""); w.Code != http.StatusUnauthorized {
				t.Errorf("no key: status = %d, want 401", w.Code)
			}
			if w := apiRequest(t, srv, path, "desk_not-a-real-key"); w.Code != http.StatusUnauthorized {
				t.Errorf("bad key: status = %d, want 401", w.Code)
			}
		})
	}
}

func TestAPIDueReport(t *testing.T) {
	srv, _ := testServer(t)
	cookie := loginAs(t, srv, auth.Staff)
	key := apiKeyFor(t, srv, auth.Volunteer)
	cat := createCategory(t, srv, cookie, "Audio")
	createAsset(t, srv, cookie, cat, "A-1", "2024-01-01", "90") // overdue
	createAsset(t, srv, cookie, cat, "A-2", "2024-06-01", "30") // due 2024-07-01
	createAsset(t, srv, cookie, cat, "A-3", "2024-06-01", "365")
	createVisitor(t, srv, cookie, map[string]any{"first_name": "Ruth", "last_name": "Moab", "visit_date": "2024-06-16"})

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"A-1", "A-2"}},
		{"?days=5", []string{"A-1"}},
		{"?days=0", []string{"A-1"}},
		{"?days=oops", []string{"A-1", "A-2"}},
	}
	for _, tt := range tests {
		t.Run("days"+tt.query, func(t *testing.T) {
			w := apiRequest(t, srv, "/api/reports/due"+tt.query, key)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
			}
			var due struct {
				Today     string           `json:"today"`
				Equipment []assetResponse  `json:"equipment"`
				Followups []map[string]any `json:"followups"`
			}
			decode(t, w, &due)
			if due.Today != "2024-06-20" {
				t.Errorf("today = %q, want 2024-06-20", due.Today)
			}
			if len(due.Equipment) != len(tt.want) {
				t.Fatalf("got %d assets, want %d", len(due.Equipment), len(tt.want))
			}
			for i, code := range tt.want {
				if due.Equipment[i].Code != code {
					t.Errorf("equipment[%d] = %s, want %s", i, due.Equipment[i].Code, code)
				}
			}
			if len(due.Followups) != 0 {
				t.Errorf("got %d follow-ups, want 0", len(due.Followups))
			}
		})
	}
}

func TestAPIDueReportWindowTooLong(t *testing.T) {
	srv, _ := testServer(t)
	key := apiKeyFor(t, srv, auth.Staff)

	w := apiRequest(t, srv, "/api/reports/due?days=3000000", key)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}
	var e errorResponse
	decode(t, w, &e)
	if !e.hasField("days") {
		t.Errorf("expected field error on days, got %+v", e.Error.Fields)
	}
}

func TestAPIDashboard(t *testing.T) {
	srv, _ := testServer(t)
	cookie := loginAs(t, srv, auth.Staff)
	key := apiKeyFor(t, srv, auth.Staff)
	cat := createCategory(t, srv, cookie, "Audio")
	createAsset(t, srv, cookie, cat, "A-1", "2024-01-01", "90")
	createAsset(t, srv, cookie, cat, "A-2", "2024-06-01", "30")
	v := createVisitor(t, srv, cookie, map[string]any{"first_name": "Ruth", "last_name": "Moab", "visit_date": "2024-06-16"})
	jsonRequest(t, srv, http.MethodPost, fmt.Sprintf("/visitors/%d/followups", v.ID), cookie, map[string]any{
		"followup_date": "2024-06-10", "followup_type": "visit", "next_followup_date": "2024-06-15",
	})

	w := apiRequest(t, srv, "/api/reports/dashboard", key)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var d struct {
		EquipmentOverdue int `json:"equipment_overdue"`
		EquipmentDueSoon int `json:"equipment_due_soon"`
		FollowupsOverdue int `json:"followups_overdue"`
		EquipmentTotal   int `json:"equipment_total"`
		VisitorsTotal    int `json:"visitors_total"`
	}
	decode(t, w, &d)
	if d.EquipmentOverdue != 1 || d.EquipmentDueSoon != 1 || d.EquipmentTotal != 2 {
		t.Errorf("equipment counts = %+v", d)
	}
	if d.FollowupsOverdue != 1 || d.VisitorsTotal != 1 {
		t.Errorf("visitor counts = %+v", d)
	}
}

func TestAPIEquipment(t *testing.T) {
	srv, _ := testServer(t)
	cookie := loginAs(t, srv, auth.Staff)
	key := apiKeyFor(t, srv, auth.Volunteer)
	cat := createCategory(t, srv, cookie, "Audio")
	a := createAsset(t, srv, cookie, cat, "A-1", "2024-01-01", "90")

	list := apiRequest(t, srv, "/api/equipment?due=overdue", key)
	if list.Code != http.StatusOK {
		t.Fatalf("list: status = %d", list.Code)
	}
	var page struct {
		Items []assetResponse `json:"items"`
		Total int             `json:"total"`
	}
	decode(t, list, &page)
	if page.Total != 1 || page.Items[0].ID != a.ID {
		t.Errorf("list = %+v", page)
	}

	one := apiRequest(t, srv, fmt.Sprintf("/api/equipment/%d", a.ID), key)
	if one.Code != http.StatusOK {
		t.Fatalf("get: status = %d", one.Code)
	}
	if missing := apiRequest(t, srv, "/api/equipment/999", key); missing.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", missing.Code)
	}
}

func TestAPIKeySessionFallback(t *testing.T) {
	srv, _ := testServer(t)
	cookie := loginAs(t, srv, auth.Volunteer)

	r := jsonRequest(t, srv, http.MethodGet, "/api/reports/dashboard", cookie, nil)
	if r.Code != http.StatusOK {
		t.Errorf("session on api route: status = %d, want 200", r.Code)
	}
}

func TestExportCSV(t *testing.T) {
	srv, _ := testServer(t)
	cookie := loginAs(t, srv, auth.Staff)
	cat := createCategory(t, srv, cookie, "Audio")
	createAsset(t, srv, cookie, cat, "A-1", "2024-01-01", "90")

	w := pageRequest(t, srv, "/reports/export/equipment", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "equipment.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if rows[0][0] != "code" || rows[1][0] != "A-1" {
		t.Errorf("rows = %v", rows)
	}
	last := len(rows[1]) - 1
	if rows[1][last-1] != "OVERDUE" || rows[1][last] != "-81" {
		t.Errorf("due columns = %v", rows[1][last-1:])
	}

	if got := pageRequest(t, srv, "/reports/export/payroll", cookie); got.Code != http.StatusNotFound {
		t.Errorf("unknown export: status = %d, want 404", got.Code)
	}
}

func TestExportRequiresPermission(t *testing.T) {
	srv, _ := testServer(t)
	cookie := loginAs(t, srv, auth.Volunteer)

	if w := pageRequest(t, srv, "/reports/export/visitors", cookie); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
