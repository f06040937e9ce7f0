// Package duedate holds the calendar-date arithmetic and due-status rules shared by
// equipment maintenance and visitor follow-up scheduling.
package duedate

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Layout is the storage and form format for calendar dates.
const Layout = "2006-01-02"

// MaxYear is the last year Layout can hold.
const MaxYear = 9999

// MaxDays bounds maintenance intervals and report windows: 100 years.
const MaxDays = 36500

// Date is a calendar date with no time or zone component.
type Date struct {
	d civil.Date
}

// New returns the date year-month-day.
func New(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

// Of returns the calendar date of t in t's location.
func Of(t time.Time) Date {
	return Date{civil.DateOf(t)}
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{d}, nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// AddDays returns date + n calendar days.
func AddDays(date Date, n int) Date {
	return Date{date.d.AddDays(n)}
}

// DaysBetween returns b - a in whole days. Negative when b precedes a.
func DaysBetween(a, b Date) int {
	return b.d.DaysSince(a.d)
}

// AddDays returns d + n calendar days.
func (d Date) AddDays(n int) Date { return AddDays(d, n) }

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool { return d.d.Before(o.d) }

// After reports whether d is later than o.
func (d Date) After(o Date) bool { return d.d.After(o.d) }

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool { return d.d == o.d }

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool { return d.d == civil.Date{} }

// Storable reports whether d fits the four-digit year of Layout.
func (d Date) Storable() bool { return d.d.Year >= 1 && d.d.Year <= MaxYear }

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.d.String()
}

// Format renders d with a time layout, for display.
func (d Date) Format(layout string) string {
	if d.IsZero() {
		return ""
	}
	return d.d.In(time.UTC).Format(layout)
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.d = civil.DateOf(v)
		return nil
	case string:
		return d.parseInto(v)
	case []byte:
		return d.parseInto(string(v))
	default:
		return fmt.Errorf("cannot scan %T into duedate.Date", src)
	}
}

// parseInto accepts a bare date or the date part of a timestamp.
func (d *Date) parseInto(s string) error {
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer. Dates past MaxYear are refused.
func (d Date) Value() (driver.Value, error) {
	if !d.IsZero() && !d.Storable() {
		return nil, fmt.Errorf("date year %d is outside 1-%d", d.d.Year, MaxYear)
	}
	return d.String(), nil
}

// MarshalJSON encodes d as "YYYY-MM-DD", or "" when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parseInto(s)
}

// NullDate is a Date that may be unset.
type NullDate struct {
	Date  Date
	Valid bool
}

// Some wraps a set date.
func Some(d Date) NullDate {
	return NullDate{Date: d, Valid: true}
}

// ParseNull parses s, treating the empty string as unset.
func ParseNull(s string) (NullDate, error) {
	if s == "" {
		return NullDate{}, nil
	}
	d, err := Parse(s)
	if err != nil {
		return NullDate{}, err
	}
	return Some(d), nil
}

// String formats the date, or "" when unset.
func (n NullDate) String() string {
	if !n.Valid {
		return ""
	}
	return n.Date.String()
}

// Scan implements sql.Scanner.
func (n *NullDate) Scan(src any) error {
	if src == nil {
		*n = NullDate{}
		return nil
	}
	if s, ok := src.(string); ok && s == "" {
		*n = NullDate{}
		return nil
	}
	if err := n.Date.Scan(src); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// Value implements driver.Valuer.
func (n NullDate) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Date.Value()
}

// MarshalJSON encodes an unset date as null.
func (n NullDate) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return n.Date.MarshalJSON()
}

// UnmarshalJSON accepts null or a "YYYY-MM-DD" string.
func (n *NullDate) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullDate{}
		return nil
	}
	if err := n.Date.UnmarshalJSON(b); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
