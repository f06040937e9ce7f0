package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/evcraddock/churchdesk/internal/activity"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/member"
	"github.com/evcraddock/churchdesk/internal/visitor"
)

type visitorListData struct {
	List     db.List[*visitor.Visitor]
	Statuses []visitor.Status
	Members  []*member.Member
	Due      []duedate.Status
}

type visitorFormData struct {
	Visitor  *visitor.Visitor
	Statuses []visitor.Status
	Members  []*member.Member
}

type visitorDetailData struct {
	Visitor   *visitor.Visitor
	Followups []*visitor.Followup
	Activity  []activity.Entry
}

type followupFormData struct {
	Visitor  *visitor.Visitor
	Types    []visitor.FollowupType
	Statuses []visitor.FollowupStatus
	Visitors []visitor.Status
}

type visitorDetailJSON struct {
	*visitor.Visitor
	Followups []*visitor.Followup `json:"followups"`
}

type suggestion struct {
	FollowupType     visitor.FollowupType `json:"followup_type"`
	From             duedate.Date         `json:"from"`
	NextFollowupDate duedate.NullDate     `json:"next_followup_date"`
}

func visitorFilter(r *http.Request) visitor.Filter {
	q := r.URL.Query()
	f := visitor.Filter{
		Search:     strings.TrimSpace(q.Get("q")),
		AssignedTo: queryID(r, "assigned"),
		Due:        dueFrom(r),
	}
	if st := visitor.Status(q.Get("status")); st.IsValid() {
		f.Status = st
	}
	return f
}

func visitorURL(id int64) string { return "/visitors/" + strconv.FormatInt(id, 10) }

// handleVisitorList lists visitors newest visit first.
func (s *Server) handleVisitorList(w http.ResponseWriter, r *http.Request) {
	list, err := s.visitors.List(r.Context(), visitorFilter(r), pageFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		apiJSON(w, list, http.StatusOK)
		return
	}

	members, err := s.members.Options(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "visitor_list.html", view{
		Title: "Visitors",
		Data: visitorListData{
			List:     list,
			Statuses: visitor.ValidStatuses,
			Members:  members,
			Due:      duedate.Statuses,
		},
	})
}

func (s *Server) renderVisitorForm(w http.ResponseWriter, r *http.Request, v *visitor.Visitor, in visitor.Input, err error) {
	members, listErr := s.members.Options(r.Context())
	if listErr != nil {
		s.fail(w, r, listErr)
		return
	}
	title := "New visitor"
	if v != nil {
		title = "Edit " + v.FullName()
	}
	page := view{
		Title: title,
		Form:  in,
		Data:  visitorFormData{Visitor: v, Statuses: visitor.ValidStatuses, Members: members},
	}
	if err != nil {
		s.failForm(w, r, err, "visitor_form.html", page)
		return
	}
	s.render(w, r, http.StatusOK, "visitor_form.html", page)
}

func (s *Server) handleVisitorNew(w http.ResponseWriter, r *http.Request) {
	in := visitor.Input{
		VisitDate: s.visitors.Today().String(),
		Status:    string(visitor.NewVisitor),
	}
	s.renderVisitorForm(w, r, nil, in, nil)
}

func (s *Server) handleVisitorCreate(w http.ResponseWriter, r *http.Request) {
	var in visitor.Input
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.visitors.Create(r.Context(), in)
	if err != nil {
		s.renderVisitorForm(w, r, nil, in, err)
		return
	}
	done(w, r, v, http.StatusCreated, visitorURL(v.ID))
}

// handleVisitorDetail shows a visitor with follow-up history and activity.
func (s *Server) handleVisitorDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.visitors.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	followups, err := s.visitors.ListFollowups(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		apiJSON(w, visitorDetailJSON{Visitor: v, Followups: followups}, http.StatusOK)
		return
	}

	entries, err := activity.List(r.Context(), s.db, activity.Filter{EntityType: "visitor", EntityID: id, Limit: 20})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "visitor_detail.html", view{
		Title: v.FullName(),
		Data:  visitorDetailData{Visitor: v, Followups: followups, Activity: entries},
	})
}

func (s *Server) handleVisitorEdit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.visitors.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderVisitorForm(w, r, v, visitor.InputFrom(v), nil)
}

func (s *Server) handleVisitorUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in visitor.Input
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.visitors.Update(r.Context(), id, in)
	if err != nil {
		current, getErr := s.visitors.Get(r.Context(), id)
		if getErr != nil {
			s.fail(w, r, getErr)
			return
		}
		s.renderVisitorForm(w, r, current, in, err)
		return
	}
	done(w, r, v, http.StatusOK, visitorURL(v.ID))
}

func (s *Server) handleVisitorDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.visitors.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	done(w, r, nil, http.StatusNoContent, "/visitors")
}

// Follow-ups

func (s *Server) renderFollowupForm(w http.ResponseWriter, r *http.Request, v *visitor.Visitor, in visitor.FollowupInput, err error) {
	page := view{
		Title: "Record follow-up",
		Form:  in,
		Data: followupFormData{
			Visitor:  v,
			Types:    visitor.ValidFollowupTypes,
			Statuses: visitor.ValidFollowupStatuses,
			Visitors: visitor.ValidStatuses,
		},
	}
	if err != nil {
		s.failForm(w, r, err, "followup_form.html", page)
		return
	}
	s.render(w, r, http.StatusOK, "followup_form.html", page)
}

func (s *Server) handleFollowupNew(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.visitors.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in := s.visitors.NewFollowupInput()
	in.NewStatus = string(v.Status)
	s.renderFollowupForm(w, r, v, in, nil)
}

// handleFollowupCreate records a follow-up and, when asked, moves the visitor's status with it.
func (s *Server) handleFollowupCreate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in visitor.FollowupInput
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	f, err := s.visitors.RecordFollowup(r.Context(), id, in)
	if err != nil {
		v, getErr := s.visitors.Get(r.Context(), id)
		if getErr != nil {
			s.fail(w, r, getErr)
			return
		}
		s.renderFollowupForm(w, r, v, in, err)
		return
	}
	done(w, r, f, http.StatusCreated, visitorURL(id))
}

// handleFollowupSuggest returns the suggested next follow-up date for a type and date.
// The follow-up form calls it when either field changes.
func (s *Server) handleFollowupSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t := visitor.FollowupType(q.Get("type"))
	if !t.IsValid() {
		s.fail(w, r, badQuery("type", "unknown follow-up type"))
		return
	}
	from := s.visitors.Today()
	if raw := q.Get("from"); raw != "" {
		d, err := duedate.Parse(raw)
		if err != nil {
			s.fail(w, r, badQuery("from", "must be a date in YYYY-MM-DD format"))
			return
		}
		from = d
	}
	apiJSON(w, suggestion{FollowupType: t, From: from, NextFollowupDate: visitor.SuggestNextFollowup(t, from)}, http.StatusOK)
}
