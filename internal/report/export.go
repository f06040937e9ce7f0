package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/evcraddock/churchdesk/internal/apperr"
)

// Export names a CSV export.
type Export string

const (
	ExportEquipment   Export = "equipment"
	ExportVisitors    Export = "visitors"
	ExportMaintenance Export = "maintenance"
)

// Exports lists every export kind.
var Exports = []Export{ExportEquipment, ExportVisitors, ExportMaintenance}

// ParseExport validates an export name.
func ParseExport(s string) (Export, error) {
	for _, e := range Exports {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown export %q (want equipment, visitors or maintenance)", s)
}

// Filename is the suggested download name.
func (e Export) Filename() string {
	return string(e) + ".csv"
}

// WriteCSV writes export e to w.
func (s *Service) WriteCSV(ctx context.Context, e Export, w io.Writer) error {
	switch e {
	case ExportEquipment:
		return s.ExportEquipmentCSV(ctx, w)
	case ExportVisitors:
		return s.ExportVisitorsCSV(ctx, w)
	case ExportMaintenance:
		return s.ExportMaintenanceCSV(ctx, w)
	default:
		return fmt.Errorf("unknown export %q", e)
	}
}

func optionalInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv rows: %w", err)
	}
	return nil
}

// ExportEquipmentCSV writes every asset with its due status as of today.
func (s *Service) ExportEquipmentCSV(ctx context.Context, w io.Writer) error {
	assets, err := s.equipment.All(ctx)
	if err != nil {
		return apperr.FromStorage("exporting equipment", err, "")
	}
	today := s.cal.Today()

	header := []string{
		"code", "name", "category", "location", "status", "purchase_date", "purchase_price",
		"maintenance_interval_days", "last_maintenance_date", "next_maintenance_date",
		"maintenance_status", "days_until_due",
	}
	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		a.Derive(today)
		rows = append(rows, []string{
			a.Code, a.Name, a.CategoryName, a.Location, string(a.Status),
			a.PurchaseDate.String(), a.PurchasePrice(),
			strconv.Itoa(a.MaintenanceIntervalDays),
			a.LastMaintenanceDate.String(), a.NextMaintenanceDate.String(),
			string(a.MaintenanceStatus), optionalInt(a.DaysUntilDue),
		})
	}
	return writeAll(w, header, rows)
}

// ExportVisitorsCSV writes every visitor with its follow-up status as of today.
func (s *Service) ExportVisitorsCSV(ctx context.Context, w io.Writer) error {
	visitors, err := s.visitors.All(ctx)
	if err != nil {
		return apperr.FromStorage("exporting visitors", err, "")
	}
	today := s.cal.Today()

	header := []string{
		"first_name", "last_name", "phone", "email", "visit_date", "how_heard", "status",
		"assigned_to", "followup_count", "next_followup_date", "followup_status", "days_until_followup",
	}
	rows := make([][]string, 0, len(visitors))
	for _, v := range visitors {
		v.Derive(today)
		rows = append(rows, []string{
			v.FirstName, v.LastName, v.Phone, v.Email, v.VisitDate.String(), v.HowHeard,
			string(v.Status), v.AssignedName, strconv.Itoa(v.FollowupCount),
			v.NextFollowupDate.String(), string(v.FollowupStatus), optionalInt(v.DaysUntilFollowup),
		})
	}
	return writeAll(w, header, rows)
}

// ExportMaintenanceCSV writes the full maintenance history, newest first.
func (s *Service) ExportMaintenanceCSV(ctx context.Context, w io.Writer) error {
	events, err := s.equipment.ListMaintenance(ctx, 0)
	if err != nil {
		return apperr.FromStorage("exporting maintenance", err, "")
	}

	header := []string{
		"equipment_code", "equipment_name", "maintenance_date", "maintenance_type", "status",
		"performed_by", "cost", "next_maintenance_date", "description",
	}
	rows := make([][]string, 0, len(events))
	for _, m := range events {
		rows = append(rows, []string{
			m.EquipmentCode, m.EquipmentName, m.MaintenanceDate.String(), string(m.MaintenanceType),
			string(m.Status), m.PerformedBy, m.Cost(), m.NextMaintenanceDate.String(), m.Description,
		})
	}
	return writeAll(w, header, rows)
}
