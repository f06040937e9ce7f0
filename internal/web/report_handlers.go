package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/churchdesk/internal/activity"
	"github.com/evcraddock/churchdesk/internal/report"
)

type dashboardData struct {
	Dashboard *report.Dashboard
	Due       *report.Due
}

// handleDashboard shows alert counts and the items due within the due-soon window.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.reports.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	due, err := s.reports.Due(r.Context(), -1)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", view{
		Title: "Dashboard",
		Data:  dashboardData{Dashboard: d, Due: due},
	})
}

func (s *Server) handleDueReport(w http.ResponseWriter, r *http.Request) {
	due, err := s.reports.Due(r.Context(), daysFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		apiJSON(w, due, http.StatusOK)
		return
	}
	s.render(w, r, http.StatusOK, "due.html", view{Title: "Due report", Data: due})
}

// handleExport streams a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	e, err := report.ParseExport(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, errNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+e.Filename()+`"`)
	if err := s.reports.WriteCSV(r.Context(), e, w); err != nil {
		// Headers are gone once rows are written; log and cut the stream short.
		slog.Error("exporting csv", "export", string(e), "err", err)
	}
}

type activityData struct {
	Entries    []activity.Entry
	EntityType string
}

// handleActivity shows the most recent changes, optionally for one entity type.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	f := activity.Filter{
		EntityType: strings.TrimSpace(r.URL.Query().Get("entity")),
		EntityID:   queryID(r, "id"),
		Limit:      200,
	}
	entries, err := activity.List(r.Context(), s.db, f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		apiJSON(w, entries, http.StatusOK)
		return
	}
	s.render(w, r, http.StatusOK, "activity.html", view{
		Title: "Activity",
		Data:  activityData{Entries: entries, EntityType: f.EntityType},
	})
}
