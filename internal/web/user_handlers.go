package web

import (
	"net/http"

	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/auth"
	"github.com/evcraddock/churchdesk/internal/validate"
)

// userInput is the admin form for adding a staff account.
type userInput struct {
	Email    string `form:"email" validate:"required,email,max=255"`
	Name     string `form:"name" validate:"max=100"`
	Role     string `form:"role" validate:"required,oneof=admin staff volunteer"`
	Password string `form:"password" validate:"omitempty,min=8,max=72"`
}

type usersData struct {
	Users []*auth.User
	Roles []auth.Role
}

func (s *Server) renderUsers(w http.ResponseWriter, r *http.Request, status int, in userInput, err error) {
	users, listErr := s.users.List(r.Context())
	if listErr != nil {
		s.fail(w, r, listErr)
		return
	}
	v := view{Title: "Users", Form: in, Data: usersData{Users: users, Roles: auth.ValidRoles}}
	if err != nil {
		s.failForm(w, r, err, "users.html", v)
		return
	}
	s.render(w, r, status, "users.html", v)
}

// handleUsers lists staff accounts.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		users, err := s.users.List(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		apiJSON(w, users, http.StatusOK)
		return
	}
	s.renderUsers(w, r, http.StatusOK, userInput{Role: string(auth.Volunteer)}, nil)
}

// handleUserCreate adds a staff account. An empty password makes it passkey-only.
func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var in userInput
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := validate.Struct(in).Err(); err != nil {
		s.renderUsers(w, r, http.StatusUnprocessableEntity, in, err)
		return
	}

	if _, err := s.users.GetByEmail(r.Context(), in.Email); err == nil {
		s.renderUsers(w, r, http.StatusUnprocessableEntity, in,
			apperr.Validation(apperr.FieldError{Field: "email", Message: "email is already in use"}))
		return
	}

	u, err := s.users.Add(r.Context(), in.Email, in.Name, auth.Role(in.Role), in.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	done(w, r, u, http.StatusCreated, "/users")
}

// handleUserDelete removes a staff account. Admins cannot remove themselves.
func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if me := auth.UserFrom(r.Context()); me.ID == id {
		s.fail(w, r, apperr.Conflict("cannot remove your own account", 0))
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.fail(w, r, authNotFound(err))
		return
	}
	done(w, r, nil, http.StatusNoContent, "/users")
}
