package equipment

import (
	"strconv"

	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/duedate"
)

// DefaultIntervalDays applies when an asset has no interval, and to completed
// events on assets whose interval is zero.
const DefaultIntervalDays = 365

// NextOnCreate returns the first due date of a new asset.
// Only a positive interval with a known purchase date schedules anything.
func NextOnCreate(purchase duedate.NullDate, intervalDays int) duedate.NullDate {
	if intervalDays <= 0 || !purchase.Valid {
		return duedate.NullDate{}
	}
	return duedate.Some(purchase.Date.AddDays(intervalDays))
}

// NextOnCompletion returns the due date after a completed maintenance event.
// An explicit date wins as-is.
func NextOnCompletion(performed duedate.Date, explicit duedate.NullDate, intervalDays int) duedate.NullDate {
	if explicit.Valid {
		return explicit
	}
	if intervalDays <= 0 {
		intervalDays = DefaultIntervalDays
	}
	return duedate.Some(performed.AddDays(intervalDays))
}

// NextOnIntervalChange returns the asset's due date after its interval is edited.
// changed is false when the interval did not change, in which case next is left alone.
// The base is the last maintenance, then the purchase date, then today.
// A zero interval unschedules the asset.
func NextOnIntervalChange(a *Asset, newInterval int, today duedate.Date) (next duedate.NullDate, changed bool) {
	if newInterval == a.MaintenanceIntervalDays {
		return a.NextMaintenanceDate, false
	}
	if newInterval <= 0 {
		return duedate.NullDate{}, true
	}
	base := today
	switch {
	case a.LastMaintenanceDate.Valid:
		base = a.LastMaintenanceDate.Date
	case a.PurchaseDate.Valid:
		base = a.PurchaseDate.Date
	}
	return duedate.Some(base.AddDays(newInterval)), true
}

// checkNext rejects a computed due date past the last storable year,
// blaming field.
func checkNext(next duedate.NullDate, field string) error {
	if next.Valid && !next.Date.Storable() {
		return apperr.Validation(apperr.FieldError{
			Field:   field,
			Message: field + " puts the next maintenance past the year 9999",
		})
	}
	return nil
}

// checkCompletedDate rejects completed work dated after today.
func checkCompletedDate(status MaintenanceStatus, performed, today duedate.Date) bool {
	return status != Completed || !performed.After(today)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
