// Package web provides the HTTP server, HTML pages and JSON API for churchdesk.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/churchdesk/internal/auth"
	"github.com/evcraddock/churchdesk/internal/config"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/equipment"
	"github.com/evcraddock/churchdesk/internal/logging"
	"github.com/evcraddock/churchdesk/internal/member"
	"github.com/evcraddock/churchdesk/internal/metrics"
	"github.com/evcraddock/churchdesk/internal/report"
	"github.com/evcraddock/churchdesk/internal/visitor"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server is the web UI and API HTTP server.
type Server struct {
	db        *sqlx.DB
	cfg       config.Config
	equipment *equipment.Service
	visitors  *visitor.Service
	members   *member.Service
	reports   *report.Service
	users     *auth.UserStore
	sessions  *auth.SessionStore
	apiKeys   *auth.APIKeyStore
	passkeys  *auth.PasskeyStore
	pages     map[string]*template.Template
	router    chi.Router
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	clock duedate.Clock
}

// WithClock fixes what "today" is, for tests.
func WithClock(c duedate.Clock) Option {
	return func(o *options) { o.clock = c }
}

// NewServer creates a web server over d.
func NewServer(d *sqlx.DB, cfg config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	cal := duedate.Calendar{Clock: o.clock, Location: cfg.Location()}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	secure := !cfg.DevMode
	s := &Server{
		db:        d,
		cfg:       cfg,
		equipment: equipment.NewService(d, cal, cfg.PageSize),
		visitors:  visitor.NewService(d, cal, cfg.PageSize),
		members:   member.NewService(d, cfg.PageSize),
		reports:   report.NewService(d, cal),
		users:     auth.NewUserStore(d),
		sessions:  auth.NewSessionStore(d, cfg.SessionTTL, secure),
		apiKeys:   auth.NewAPIKeyStore(d),
		passkeys:  auth.NewPasskeyStore(d),
		pages:     pages,
	}

	pk, err := newPasskeyHandlers(cfg.BaseURL, s.passkeys, s.sessions, s.users)
	if err != nil {
		return nil, fmt.Errorf("configuring passkeys: %w", err)
	}

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static sub-fs: %w", err)
	}

	s.router = s.routes(pk, staticContent)
	return s, nil
}

func (s *Server) routes(pk *passkeyHandlers, static fs.FS) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(metrics.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)
	r.Post("/passkey/login/begin", pk.handleBeginLogin)
	r.Post("/passkey/login/finish", pk.handleFinishLogin)

	perm := auth.RequirePermission

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.users, s.sessions))

		r.With(perm(auth.PermReportsView)).Get("/", s.handleDashboard)
		r.With(perm(auth.PermReportsView)).Get("/reports/due", s.handleDueReport)
		r.With(perm(auth.PermReportsExport)).Get("/reports/export/{kind}", s.handleExport)
		r.With(perm(auth.PermUsersManage)).Get("/activity", s.handleActivity)

		r.Route("/equipment", func(r chi.Router) {
			r.With(perm(auth.PermEquipmentView)).Get("/", s.handleEquipmentList)
			r.With(perm(auth.PermEquipmentManage)).Get("/new", s.handleEquipmentNew)
			r.With(perm(auth.PermEquipmentManage)).Post("/", s.handleEquipmentCreate)
			r.With(perm(auth.PermEquipmentView)).Get("/{id}", s.handleEquipmentDetail)
			r.With(perm(auth.PermEquipmentManage)).Get("/{id}/edit", s.handleEquipmentEdit)
			r.With(perm(auth.PermEquipmentManage)).Post("/{id}", s.handleEquipmentUpdate)
			r.With(perm(auth.PermEquipmentManage)).Post("/{id}/delete", s.handleEquipmentDelete)
			r.With(perm(auth.PermMaintenanceRecord)).Get("/{id}/maintenance/new", s.handleMaintenanceNew)
			r.With(perm(auth.PermMaintenanceRecord)).Post("/{id}/maintenance", s.handleMaintenanceCreate)
		})
		r.Route("/maintenance/{id}", func(r chi.Router) {
			r.Use(perm(auth.PermMaintenanceRecord))
			r.Get("/edit", s.handleMaintenanceEdit)
			r.Post("/", s.handleMaintenanceUpdate)
			r.Post("/delete", s.handleMaintenanceDelete)
		})
		r.Route("/categories", func(r chi.Router) {
			r.With(perm(auth.PermEquipmentView)).Get("/", s.handleCategories)
			r.With(perm(auth.PermEquipmentManage)).Post("/", s.handleCategoryCreate)
			r.With(perm(auth.PermEquipmentManage)).Post("/{id}", s.handleCategoryUpdate)
			r.With(perm(auth.PermEquipmentManage)).Post("/{id}/delete", s.handleCategoryDelete)
		})

		r.Route("/visitors", func(r chi.Router) {
			r.With(perm(auth.PermVisitorsView)).Get("/", s.handleVisitorList)
			r.With(perm(auth.PermVisitorsManage)).Get("/new", s.handleVisitorNew)
			r.With(perm(auth.PermVisitorsManage)).Post("/", s.handleVisitorCreate)
			r.With(perm(auth.PermVisitorsView)).Get("/{id}", s.handleVisitorDetail)
			r.With(perm(auth.PermVisitorsManage)).Get("/{id}/edit", s.handleVisitorEdit)
			r.With(perm(auth.PermVisitorsManage)).Post("/{id}", s.handleVisitorUpdate)
			r.With(perm(auth.PermVisitorsManage)).Post("/{id}/delete", s.handleVisitorDelete)
			r.With(perm(auth.PermFollowupsRecord)).Get("/{id}/followups/new", s.handleFollowupNew)
			r.With(perm(auth.PermFollowupsRecord)).Post("/{id}/followups", s.handleFollowupCreate)
		})
		r.With(perm(auth.PermFollowupsRecord)).Get("/followups/suggest", s.handleFollowupSuggest)

		r.Route("/members", func(r chi.Router) {
			r.Use(perm(auth.PermMembersManage))
			r.Get("/", s.handleMemberList)
			r.Get("/new", s.handleMemberNew)
			r.Post("/", s.handleMemberCreate)
			r.Get("/{id}/edit", s.handleMemberEdit)
			r.Post("/{id}", s.handleMemberUpdate)
			r.Post("/{id}/delete", s.handleMemberDelete)
		})

		r.Get("/settings", s.handleSettings)
		r.Post("/settings/passkeys/{id}/delete", s.handlePasskeyDelete)
		r.Post("/settings/apikeys", s.handleAPIKeyCreate)
		r.Post("/settings/apikeys/{id}/delete", s.handleAPIKeyDelete)
		r.Post("/passkey/register/begin", pk.handleBeginRegistration)
		r.Post("/passkey/register/finish", pk.handleFinishRegistration)

		r.Route("/users", func(r chi.Router) {
			r.Use(perm(auth.PermUsersManage))
			r.Get("/", s.handleUsers)
			r.Post("/", s.handleUserCreate)
			r.Post("/{id}/delete", s.handleUserDelete)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAPIKey(s.users, s.apiKeys, s.sessions))
		r.With(perm(auth.PermEquipmentView)).Get("/equipment", s.apiListEquipment)
		r.With(perm(auth.PermEquipmentView)).Get("/equipment/{id}", s.apiGetEquipment)
		r.With(perm(auth.PermVisitorsView)).Get("/visitors", s.apiListVisitors)
		r.With(perm(auth.PermReportsView)).Get("/reports/due", s.apiDue)
		r.With(perm(auth.PermReportsView)).Get("/reports/dashboard", s.apiDashboard)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, errNotFound)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		apiJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// parsePages builds one template set per page, each with the shared layout.
func parsePages() (map[string]*template.Template, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" || base == "partials.html" {
			continue
		}
		tmpl, err := template.New(base).Funcs(funcMap).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", base, err)
		}
		pages[base] = tmpl
	}
	return pages, nil
}

// Template helper functions

var funcMap = template.FuncMap{
	"date":        tmplDate,
	"nulldate":    tmplNullDate,
	"days":        tmplDays,
	"statusClass": tmplStatusClass,
	"pageURL":     tmplPageURL,
	"timestamp":   tmplTimestamp,
	"invalid":     tmplInvalid,
	"same":        tmplSame,
	"dict":        tmplDict,
}

func tmplDate(d duedate.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("Jan 2, 2006")
}

func tmplNullDate(d duedate.NullDate) string {
	if !d.Valid {
		return "-"
	}
	return tmplDate(d.Date)
}

func tmplDays(n *int) string {
	switch {
	case n == nil:
		return "-"
	case *n == 0:
		return "today"
	case *n == 1:
		return "in 1 day"
	case *n > 1:
		return "in " + strconv.Itoa(*n) + " days"
	case *n == -1:
		return "1 day ago"
	default:
		return strconv.Itoa(-*n) + " days ago"
	}
}

func tmplStatusClass(s duedate.Status) string {
	switch s {
	case duedate.Overdue:
		return "danger"
	case duedate.DueSoon:
		return "warning"
	case duedate.OK:
		return "success"
	default:
		return "secondary"
	}
}

func tmplTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006 15:04")
}

// tmplInvalid returns the Bootstrap class for a field with an error.
func tmplInvalid(errs map[string]string, field string) string {
	if _, ok := errs[field]; ok {
		return "is-invalid"
	}
	return ""
}

// tmplSame compares a form value with an option value of any type.
func tmplSame(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// tmplDict builds a map from key/value pairs so partials can take several arguments.
func tmplDict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict needs key/value pairs, got %d args", len(kv))
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// tmplPageURL returns the current query with page replaced.
func tmplPageURL(q url.Values, page int) string {
	v := url.Values{}
	for k, vals := range q {
		v[k] = vals
	}
	v.Set("page", strconv.Itoa(page))
	return "?" + v.Encode()
}
