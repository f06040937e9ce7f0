package visitor

import (
	"strconv"

	"github.com/evcraddock/churchdesk/internal/duedate"
)

// suggestedOffsets are the default gaps, in days, before the next contact.
var suggestedOffsets = map[FollowupType]int{
	PhoneCall: 7,
	Visit:     14,
	SMS:       3,
	Email:     5,
	Letter:    30,
}

// SuggestedOffset returns the default days until the next contact after a
// follow-up of type t. ok is false for unknown types.
func (t FollowupType) SuggestedOffset() (days int, ok bool) {
	days, ok = suggestedOffsets[t]
	return days, ok
}

// SuggestNextFollowup pre-fills the next follow-up date for a form.
// It never writes anything; the caller decides whether to keep it.
func SuggestNextFollowup(t FollowupType, from duedate.Date) duedate.NullDate {
	days, ok := t.SuggestedOffset()
	if !ok || from.IsZero() {
		return duedate.NullDate{}
	}
	return duedate.Some(from.AddDays(days))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
