package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
)

// pageFrom reads page and per_page from the query string.
// Missing or bad values are left at zero for the services to default.
func pageFrom(r *http.Request) db.Page {
	q := r.URL.Query()
	n, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("per_page"))
	return db.Page{Number: n, Size: size}
}

// queryID reads an optional positive id from the query string.
func queryID(r *http.Request, key string) int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// dueFrom reads a due-status filter. Unknown values mean no filter.
func dueFrom(r *http.Request) duedate.Status {
	want := duedate.Status(strings.ToUpper(r.URL.Query().Get("due")))
	for _, s := range duedate.Statuses {
		if s == want {
			return s
		}
	}
	return ""
}

// daysFrom reads the due report lookahead; -1 lets the report use its default.
func daysFrom(r *http.Request) int {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days < 0 {
		return -1
	}
	return days
}

func badQuery(field, msg string) error {
	return apperr.Validation(apperr.FieldError{Field: field, Message: msg})
}
