// Package report builds the dashboard counts, the due lists and the CSV exports.
package report

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/equipment"
	"github.com/evcraddock/churchdesk/internal/metrics"
	"github.com/evcraddock/churchdesk/internal/visitor"
)

// NewVisitorWindow is how far back, in days, a visit counts as recent.
const NewVisitorWindow = 30

// Service reads across equipment and visitors. It never writes.
type Service struct {
	equipment *equipment.Repository
	visitors  *visitor.Repository
	cal       duedate.Calendar
}

// NewService creates a report service over d.
func NewService(d *sqlx.DB, cal duedate.Calendar) *Service {
	return &Service{
		equipment: equipment.NewRepository(d),
		visitors:  visitor.NewRepository(d),
		cal:       cal,
	}
}

// Dashboard holds the home page alert counts.
type Dashboard struct {
	Today             duedate.Date `json:"today"`
	EquipmentOverdue  int          `json:"equipment_overdue"`
	EquipmentDueSoon  int          `json:"equipment_due_soon"`
	FollowupsOverdue  int          `json:"followups_overdue"`
	FollowupsDueSoon  int          `json:"followups_due_soon"`
	NewVisitors       int          `json:"new_visitors"`
	EquipmentTotal    int          `json:"equipment_total"`
	VisitorsTotal     int          `json:"visitors_total"`
	NewVisitorsWindow int          `json:"new_visitors_window_days"`
}

// Alerts is the number of items needing attention.
func (d Dashboard) Alerts() int {
	return d.EquipmentOverdue + d.EquipmentDueSoon + d.FollowupsOverdue + d.FollowupsDueSoon
}

// one is the smallest page; only the totals of these queries are used.
var one = db.Page{Number: 1, Size: 1}

func (s *Service) countAssets(ctx context.Context, due duedate.Status, today duedate.Date) (int, error) {
	_, total, err := s.equipment.ListAssets(ctx, equipment.Filter{Due: due}, today, one)
	return total, err
}

func (s *Service) countVisitors(ctx context.Context, due duedate.Status, today duedate.Date) (int, error) {
	_, total, err := s.visitors.List(ctx, visitor.Filter{Due: due}, today, one)
	return total, err
}

// Dashboard counts due equipment, due follow-ups and recent visitors as of
// today, and publishes the due counts as gauges.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	today := s.cal.Today()
	d := &Dashboard{Today: today, NewVisitorsWindow: NewVisitorWindow}

	counts := []struct {
		dst   *int
		count func(context.Context, duedate.Status, duedate.Date) (int, error)
		due   duedate.Status
	}{
		{&d.EquipmentOverdue, s.countAssets, duedate.Overdue},
		{&d.EquipmentDueSoon, s.countAssets, duedate.DueSoon},
		{&d.EquipmentTotal, s.countAssets, ""},
		{&d.FollowupsOverdue, s.countVisitors, duedate.Overdue},
		{&d.FollowupsDueSoon, s.countVisitors, duedate.DueSoon},
		{&d.VisitorsTotal, s.countVisitors, ""},
	}
	for _, c := range counts {
		n, err := c.count(ctx, c.due, today)
		if err != nil {
			return nil, apperr.FromStorage("building dashboard", err, "")
		}
		*c.dst = n
	}

	n, err := s.visitors.CountVisitedSince(ctx, today.AddDays(-NewVisitorWindow))
	if err != nil {
		return nil, apperr.FromStorage("building dashboard", err, "")
	}
	d.NewVisitors = n

	metrics.DueItems.WithLabelValues("equipment", string(duedate.Overdue)).Set(float64(d.EquipmentOverdue))
	metrics.DueItems.WithLabelValues("equipment", string(duedate.DueSoon)).Set(float64(d.EquipmentDueSoon))
	metrics.DueItems.WithLabelValues("followup", string(duedate.Overdue)).Set(float64(d.FollowupsOverdue))
	metrics.DueItems.WithLabelValues("followup", string(duedate.DueSoon)).Set(float64(d.FollowupsDueSoon))
	return d, nil
}

// Due lists everything overdue or falling due within a number of days.
type Due struct {
	Today     duedate.Date       `json:"today"`
	Through   duedate.Date       `json:"through"`
	Equipment []*equipment.Asset `json:"equipment"`
	Followups []*visitor.Visitor `json:"followups"`
}

// checkWindow rejects lookaheads beyond duedate.MaxDays.
func checkWindow(days int) error {
	if days > duedate.MaxDays {
		return apperr.Validation(apperr.FieldError{
			Field:   "days",
			Message: fmt.Sprintf("days must be at most %d", duedate.MaxDays),
		})
	}
	return nil
}

// DueEquipment returns assets overdue or due within days, soonest first.
func (s *Service) DueEquipment(ctx context.Context, days int) ([]*equipment.Asset, error) {
	if err := checkWindow(days); err != nil {
		return nil, err
	}
	today := s.cal.Today()
	assets, err := s.equipment.ListDue(ctx, today.AddDays(days))
	if err != nil {
		return nil, apperr.FromStorage("listing due equipment", err, "")
	}
	for _, a := range assets {
		a.Derive(today)
	}
	if assets == nil {
		assets = []*equipment.Asset{}
	}
	return assets, nil
}

// DueFollowups returns visitors whose next follow-up is overdue or due
// within days, soonest first.
func (s *Service) DueFollowups(ctx context.Context, days int) ([]*visitor.Visitor, error) {
	if err := checkWindow(days); err != nil {
		return nil, err
	}
	today := s.cal.Today()
	visitors, err := s.visitors.ListDue(ctx, today.AddDays(days))
	if err != nil {
		return nil, apperr.FromStorage("listing due follow-ups", err, "")
	}
	for _, v := range visitors {
		v.Derive(today)
	}
	if visitors == nil {
		visitors = []*visitor.Visitor{}
	}
	return visitors, nil
}

// Due returns both due lists. A negative days uses the due-soon window.
func (s *Service) Due(ctx context.Context, days int) (*Due, error) {
	if days < 0 {
		days = duedate.DueSoonWindow
	}
	assets, err := s.DueEquipment(ctx, days)
	if err != nil {
		return nil, err
	}
	visitors, err := s.DueFollowups(ctx, days)
	if err != nil {
		return nil, err
	}
	today := s.cal.Today()
	return &Due{Today: today, Through: today.AddDays(days), Equipment: assets, Followups: visitors}, nil
}
