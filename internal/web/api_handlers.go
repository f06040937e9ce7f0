package web

import "net/http"

// The /api routes serve report consumers holding an API key. They answer
// JSON only and share the handlers' filtering with the HTML pages.

func (s *Server) apiListEquipment(w http.ResponseWriter, r *http.Request) {
	list, err := s.equipment.ListAssets(r.Context(), equipmentFilter(r), pageFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list, http.StatusOK)
}

func (s *Server) apiGetEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.equipment.GetAsset(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.equipment.ListMaintenance(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, equipmentDetailJSON{Asset: a, Maintenance: events}, http.StatusOK)
}

func (s *Server) apiListVisitors(w http.ResponseWriter, r *http.Request) {
	list, err := s.visitors.List(r.Context(), visitorFilter(r), pageFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list, http.StatusOK)
}

func (s *Server) apiDue(w http.ResponseWriter, r *http.Request) {
	due, err := s.reports.Due(r.Context(), daysFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, due, http.StatusOK)
}

func (s *Server) apiDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.reports.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, d, http.StatusOK)
}
