package web

import (
	"net/http"
	"strings"

	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/member"
)

type memberListData struct {
	List     db.List[*member.Member]
	Statuses []member.Status
}

type memberFormData struct {
	Member   *member.Member
	Statuses []member.Status
}

func (s *Server) handleMemberList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := member.Filter{Search: strings.TrimSpace(q.Get("q"))}
	if st := member.Status(q.Get("status")); st.IsValid() {
		f.Status = st
	}

	list, err := s.members.List(r.Context(), f, pageFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		apiJSON(w, list, http.StatusOK)
		return
	}
	s.render(w, r, http.StatusOK, "member_list.html", view{
		Title: "Members",
		Data:  memberListData{List: list, Statuses: member.ValidStatuses},
	})
}

func (s *Server) renderMemberForm(w http.ResponseWriter, r *http.Request, m *member.Member, in member.Input, err error) {
	title := "New member"
	if m != nil {
		title = "Edit " + m.FullName()
	}
	v := view{Title: title, Form: in, Data: memberFormData{Member: m, Statuses: member.ValidStatuses}}
	if err != nil {
		s.failForm(w, r, err, "member_form.html", v)
		return
	}
	s.render(w, r, http.StatusOK, "member_form.html", v)
}

func (s *Server) handleMemberNew(w http.ResponseWriter, r *http.Request) {
	s.renderMemberForm(w, r, nil, member.Input{MembershipStatus: string(member.Active)}, nil)
}

func (s *Server) handleMemberCreate(w http.ResponseWriter, r *http.Request) {
	var in member.Input
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.members.Create(r.Context(), in)
	if err != nil {
		s.renderMemberForm(w, r, nil, in, err)
		return
	}
	done(w, r, m, http.StatusCreated, "/members")
}

func (s *Server) handleMemberEdit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.members.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderMemberForm(w, r, m, member.InputFrom(m), nil)
}

func (s *Server) handleMemberUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in member.Input
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.members.Update(r.Context(), id, in)
	if err != nil {
		current, getErr := s.members.Get(r.Context(), id)
		if getErr != nil {
			s.fail(w, r, getErr)
			return
		}
		s.renderMemberForm(w, r, current, in, err)
		return
	}
	done(w, r, m, http.StatusOK, "/members")
}

func (s *Server) handleMemberDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.members.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	done(w, r, nil, http.StatusNoContent, "/members")
}
