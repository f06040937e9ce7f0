package duedate

import "time"

// DueSoonWindow is the lookahead, in calendar days, that flags a due date as upcoming.
const DueSoonWindow = 30

// Status is the due-state of a scheduled date relative to today.
type Status string

const (
	Overdue      Status = "OVERDUE"
	DueSoon      Status = "DUE_SOON"
	OK           Status = "OK"
	NotScheduled Status = "NOT_SCHEDULED"
)

// Statuses lists every status in dashboard order.
var Statuses = []Status{Overdue, DueSoon, OK, NotScheduled}

// Classify derives the due status of due as of today.
// Overdue is strictly before today; due == today is DueSoon.
func Classify(due NullDate, today Date) Status {
	if !due.Valid {
		return NotScheduled
	}
	switch {
	case due.Date.Before(today):
		return Overdue
	case !due.Date.After(AddDays(today, DueSoonWindow)):
		return DueSoon
	default:
		return OK
	}
}

// DaysUntil returns due - today in days. ok is false when due is unset.
func DaysUntil(due NullDate, today Date) (days int, ok bool) {
	if !due.Valid {
		return 0, false
	}
	return DaysBetween(today, due.Date), true
}

// Label returns a human-readable label.
func (s Status) Label() string {
	switch s {
	case Overdue:
		return "Overdue"
	case DueSoon:
		return "Due soon"
	case OK:
		return "OK"
	case NotScheduled:
		return "Not scheduled"
	default:
		return string(s)
	}
}

// Clock returns the current instant. Services take one so "today" is injectable.
type Clock func() time.Time

// Today returns the calendar date of c() in loc.
func (c Clock) Today(loc *time.Location) Date {
	now := time.Now
	if c != nil {
		now = c
	}
	if loc == nil {
		loc = time.Local
	}
	return Of(now().In(loc))
}

// Calendar decides what "today" is for a service.
type Calendar struct {
	Clock    Clock
	Location *time.Location
}

// Today returns the current calendar date in the calendar's zone.
func (c Calendar) Today() Date {
	return c.Clock.Today(c.Location)
}

// FixedClock returns a Clock stuck at t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
