package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/auth"
)

var errNotFound = &apperr.Error{Kind: apperr.KindNotFound, Message: "page not found"}

// view is the data every page template receives.
type view struct {
	Title  string
	User   *auth.User
	Flash  string
	Error  string
	Errors map[string]string
	Form   any
	Data   any
	Query  url.Values
}

// Can reports whether the signed-in user holds perm. Templates use it to hide actions.
func (v view) Can(perm string) bool { return v.User.Can(perm) }

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, code, msg string, status int) {
	apiJSON(w, errorBody{Error: errorDetail{Code: code, Message: msg}}, status)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "err", err)
	}
}

type errorDetail struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Fields     []apperr.FieldError `json:"fields,omitempty"`
	Dependents int                 `json:"dependents,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// wantsJSON reports whether the caller expects a JSON answer instead of a page.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// describe returns the code and caller-safe message for err.
func describe(err error) (string, string) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return "INTERNAL_ERROR", "internal error"
	}
	if ae.Kind == apperr.KindStorage {
		return string(ae.Kind), "the database is busy, try again"
	}
	return string(ae.Kind), ae.Message
}

// fail answers with err as JSON or as an error page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}

	code, msg := describe(err)
	if wantsJSON(r) {
		apiJSON(w, errorBody{Error: errorDetail{
			Code:       code,
			Message:    msg,
			Fields:     apperr.Fields(err),
			Dependents: apperr.Dependents(err),
		}}, status)
		return
	}

	if n := apperr.Dependents(err); n > 0 {
		msg += " (" + strconv.Itoa(n) + " dependent records)"
	}
	s.render(w, r, status, "error.html", view{Title: http.StatusText(status), Error: msg})
}

// failForm re-renders a form page with field messages for validation errors,
// and falls back to fail for everything else.
func (s *Server) failForm(w http.ResponseWriter, r *http.Request, err error, name string, v view) {
	if !apperr.Is(err, apperr.KindValidation) || wantsJSON(r) {
		s.fail(w, r, err)
		return
	}
	v.Errors = fieldMap(err)
	v.Error = "Please correct the highlighted fields."
	s.render(w, r, http.StatusUnprocessableEntity, name, v)
}

func fieldMap(err error) map[string]string {
	m := make(map[string]string)
	for _, f := range apperr.Fields(err) {
		if _, ok := m[f.Field]; !ok {
			m[f.Field] = f.Message
		}
	}
	return m
}

// render executes a page template into a buffer so a template error never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, v view) {
	tmpl, ok := s.pages[name]
	if !ok {
		slog.Error("unknown template", "name", name)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if v.User == nil {
		v.User = auth.UserFrom(r.Context())
	}
	if v.Query == nil {
		v.Query = r.URL.Query()
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", v); err != nil {
		slog.Error("rendering template", "name", name, "err", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("writing response", "err", err)
	}
}

// done finishes a successful write: JSON callers get data, browsers are redirected.
func done(w http.ResponseWriter, r *http.Request, data any, status int, redirect string) {
	if wantsJSON(r) {
		if data == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		apiJSON(w, data, status)
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// idParam parses the {id} path parameter.
func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errNotFound
	}
	return id, nil
}
