// Package visitor tracks first-time visitors and the follow-up contacts made with them.
package visitor

import (
	"time"

	"github.com/evcraddock/churchdesk/internal/duedate"
)

// Status is where a visitor stands in the follow-up process.
type Status string

const (
	NewVisitor      Status = "new_visitor"
	FollowUp        Status = "follow_up"
	RegularAttender Status = "regular_attender"
	ConvertedMember Status = "converted_member"
)

// ValidStatuses is the set of allowed visitor statuses.
var ValidStatuses = []Status{NewVisitor, FollowUp, RegularAttender, ConvertedMember}

// IsValid checks if a visitor status is recognized.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case NewVisitor:
		return "New Visitor"
	case FollowUp:
		return "Follow Up"
	case RegularAttender:
		return "Regular Attender"
	case ConvertedMember:
		return "Converted Member"
	default:
		return string(s)
	}
}

// FollowupType is how a visitor was contacted.
type FollowupType string

const (
	PhoneCall FollowupType = "phone_call"
	Visit     FollowupType = "visit"
	SMS       FollowupType = "sms"
	Email     FollowupType = "email"
	Letter    FollowupType = "letter"
)

// ValidFollowupTypes is the set of allowed follow-up types.
var ValidFollowupTypes = []FollowupType{PhoneCall, Visit, SMS, Email, Letter}

// IsValid checks if a follow-up type is recognized.
func (t FollowupType) IsValid() bool {
	for _, v := range ValidFollowupTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the type.
func (t FollowupType) Label() string {
	switch t {
	case PhoneCall:
		return "Phone Call"
	case Visit:
		return "Visit"
	case SMS:
		return "SMS"
	case Email:
		return "Email"
	case Letter:
		return "Letter"
	default:
		return string(t)
	}
}

// FollowupStatus is the outcome state of a follow-up contact.
type FollowupStatus string

const (
	FollowupCompleted FollowupStatus = "completed"
	FollowupScheduled FollowupStatus = "scheduled"
	FollowupMissed    FollowupStatus = "missed"
)

// ValidFollowupStatuses is the set of allowed follow-up statuses.
var ValidFollowupStatuses = []FollowupStatus{FollowupCompleted, FollowupScheduled, FollowupMissed}

// IsValid checks if a follow-up status is recognized.
func (s FollowupStatus) IsValid() bool {
	for _, v := range ValidFollowupStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status.
func (s FollowupStatus) Label() string {
	switch s {
	case FollowupCompleted:
		return "Completed"
	case FollowupScheduled:
		return "Scheduled"
	case FollowupMissed:
		return "Missed"
	default:
		return string(s)
	}
}

// Visitor is a person who attended and may be followed up with.
type Visitor struct {
	ID                       int64            `db:"id" json:"id"`
	FirstName                string           `db:"first_name" json:"first_name"`
	LastName                 string           `db:"last_name" json:"last_name"`
	Phone                    string           `db:"phone" json:"phone"`
	Email                    string           `db:"email" json:"email"`
	Address                  string           `db:"address" json:"address"`
	VisitDate                duedate.Date     `db:"visit_date" json:"visit_date"`
	HowHeard                 string           `db:"how_heard" json:"how_heard"`
	Status                   Status           `db:"status" json:"status"`
	AssignedFollowupPersonID *int64           `db:"assigned_followup_person_id" json:"assigned_followup_person_id"`
	AssignedName             string           `db:"assigned_name" json:"assigned_name"`
	Notes                    string           `db:"notes" json:"notes"`
	CreatedBy                *int64           `db:"created_by" json:"created_by,omitempty"`
	CreatedAt                time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time        `db:"updated_at" json:"updated_at"`
	NextFollowupDate         duedate.NullDate `db:"next_followup_date" json:"next_followup_date"`
	FollowupCount            int              `db:"followup_count" json:"followup_count"`

	// Derived from NextFollowupDate by Derive.
	FollowupStatus    duedate.Status `db:"-" json:"followup_status"`
	DaysUntilFollowup *int           `db:"-" json:"days_until_followup"`
}

// FullName returns "First Last".
func (v *Visitor) FullName() string {
	return v.FirstName + " " + v.LastName
}

// Derive fills the follow-up due fields as of today.
func (v *Visitor) Derive(today duedate.Date) {
	v.FollowupStatus = duedate.Classify(v.NextFollowupDate, today)
	v.DaysUntilFollowup = nil
	if days, ok := duedate.DaysUntil(v.NextFollowupDate, today); ok {
		v.DaysUntilFollowup = &days
	}
}

// Followup is one contact made with a visitor.
type Followup struct {
	ID               int64            `db:"id" json:"id"`
	VisitorID        int64            `db:"visitor_id" json:"visitor_id"`
	FollowupDate     duedate.Date     `db:"followup_date" json:"followup_date"`
	FollowupType     FollowupType     `db:"followup_type" json:"followup_type"`
	Outcome          string           `db:"outcome" json:"outcome"`
	Notes            string           `db:"notes" json:"notes"`
	NextFollowupDate duedate.NullDate `db:"next_followup_date" json:"next_followup_date"`
	Status           FollowupStatus   `db:"status" json:"status"`
	PerformedBy      *int64           `db:"performed_by" json:"performed_by,omitempty"`
	PerformedByName  string           `db:"performed_by_name" json:"performed_by_name"`
	CreatedBy        *int64           `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// Input is the visitor create/edit form.
type Input struct {
	FirstName                string `form:"first_name" validate:"required,max=100"`
	LastName                 string `form:"last_name" validate:"required,max=100"`
	Phone                    string `form:"phone" validate:"omitempty,phone"`
	Email                    string `form:"email" validate:"omitempty,email,max=200"`
	Address                  string `form:"address" validate:"max=500"`
	VisitDate                string `form:"visit_date" validate:"required,date"`
	HowHeard                 string `form:"how_heard" validate:"max=200"`
	Status                   string `form:"status" validate:"omitempty,oneof=new_visitor follow_up regular_attender converted_member"`
	AssignedFollowupPersonID string `form:"assigned_followup_person_id" validate:"omitempty,id"`
	Notes                    string `form:"notes" validate:"max=2000"`
}

// InputFrom fills a form from an existing visitor, for edit pages.
func InputFrom(v *Visitor) Input {
	in := Input{
		FirstName: v.FirstName,
		LastName:  v.LastName,
		Phone:     v.Phone,
		Email:     v.Email,
		Address:   v.Address,
		VisitDate: v.VisitDate.String(),
		HowHeard:  v.HowHeard,
		Status:    string(v.Status),
		Notes:     v.Notes,
	}
	if v.AssignedFollowupPersonID != nil {
		in.AssignedFollowupPersonID = itoa(*v.AssignedFollowupPersonID)
	}
	return in
}

// FollowupInput is the follow-up form. When UpdateVisitorStatus is set the
// visitor moves to NewStatus together with the insert.
type FollowupInput struct {
	FollowupDate        string `form:"followup_date" validate:"required,date"`
	FollowupType        string `form:"followup_type" validate:"required,oneof=phone_call visit sms email letter"`
	Outcome             string `form:"outcome" validate:"max=500"`
	Notes               string `form:"notes" validate:"max=2000"`
	NextFollowupDate    string `form:"next_followup_date" validate:"omitempty,date"`
	Status              string `form:"status" validate:"omitempty,oneof=completed scheduled missed"`
	UpdateVisitorStatus bool   `form:"update_visitor_status"`
	NewStatus           string `form:"new_status" validate:"omitempty,oneof=new_visitor follow_up regular_attender converted_member"`
}

// Filter narrows List.
type Filter struct {
	Search     string
	Status     Status
	AssignedTo int64
	Due        duedate.Status
}
