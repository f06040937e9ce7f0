package email

import (
	"strings"
	"testing"

	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/equipment"
	"github.com/evcraddock/churchdesk/internal/report"
	"github.com/evcraddock/churchdesk/internal/visitor"
)

func ptr[T any](v T) *T { return &v }

func mustDate(t *testing.T, s string) duedate.Date {
	t.Helper()
	d, err := duedate.Parse(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

func TestFormatDigest(t *testing.T) {
	due := &report.Due{
		Today:   mustDate(t, "2024-06-20"),
		Through: mustDate(t, "2024-07-20"),
		Equipment: []*equipment.Asset{
			{
				ID:                  7,
				Code:                "PROJ-001",
				Name:                "Sanctuary projector",
				Location:            "Sanctuary",
				NextMaintenanceDate: duedate.Some(mustDate(t, "2024-03-31")),
				DaysUntilDue:        ptr(-81),
			},
		},
		Followups: []*visitor.Visitor{
			{
				ID:                12,
				FirstName:         "Ruth",
				LastName:          "Moab",
				Phone:             "555-0100",
				AssignedName:      "Naomi Bethlehem",
				NextFollowupDate:  duedate.Some(mustDate(t, "2024-06-20")),
				DaysUntilFollowup: ptr(0),
			},
		},
	}

	body := FormatDigest(due, "http://desk.example.org/")

	for _, want := range []string{
		"through 2024-07-20",
		"EQUIPMENT MAINTENANCE (1)",
		"1. PROJ-001 Sanctuary projector",
		"due 2024-03-31 | 81 days overdue | Sanctuary",
		"http://desk.example.org/equipment/7",
		"VISITOR FOLLOW-UPS (1)",
		"1. Ruth Moab",
		"today | 555-0100 | assigned to Naomi Bethlehem",
		"http://desk.example.org/visitors/12",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("digest missing %q\n%s", want, body)
		}
	}
}

func TestFormatDigestEmpty(t *testing.T) {
	body := FormatDigest(&report.Due{}, "")
	if strings.Count(body, "Nothing due.") != 2 {
		t.Errorf("expected both sections empty:\n%s", body)
	}
	if strings.Contains(body, "http") {
		t.Error("no links without a base URL")
	}
}

func TestSubject(t *testing.T) {
	due := &report.Due{
		Through:   mustDate(t, "2024-07-20"),
		Equipment: []*equipment.Asset{{}, {}},
		Followups: []*visitor.Visitor{{}},
	}
	want := "Church desk: 2 maintenance, 1 follow-ups due by 2024-07-20"
	if got := Subject(due); got != want {
		t.Errorf("Subject = %q, want %q", got, want)
	}
}

func TestSMTPConfigIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  SMTPConfig
		want bool
	}{
		{"fully configured", SMTPConfig{Host: "smtp.example.com", Port: "587", From: "office@example.org"}, true},
		{"missing host", SMTPConfig{From: "office@example.org"}, false},
		{"missing from", SMTPConfig{Host: "smtp.example.com"}, false},
		{"empty", SMTPConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSendRequiresConfig(t *testing.T) {
	if err := Send(SMTPConfig{}, []string{"a@example.org"}, "s", "b"); err == nil {
		t.Error("expected error without SMTP settings")
	}
	cfg := SMTPConfig{Host: "smtp.example.com", From: "office@example.org"}
	if err := Send(cfg, nil, "s", "b"); err == nil {
		t.Error("expected error without recipients")
	}
}
