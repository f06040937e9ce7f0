// Package member provides church members, the people visitor follow-ups are assigned to.
package member

import (
	"time"

	"github.com/evcraddock/churchdesk/internal/duedate"
)

// Status is a member's standing with the church.
type Status string

const (
	Active      Status = "active"
	Inactive    Status = "inactive"
	Transferred Status = "transferred"
	Deceased    Status = "deceased"
)

// ValidStatuses is the set of allowed membership statuses.
var ValidStatuses = []Status{Active, Inactive, Transferred, Deceased}

// IsValid checks if a membership status is recognized.
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
	case Active:
		return "Active"
	case Inactive:
		return "Inactive"
	case Transferred:
		return "Transferred"
	case Deceased:
		return "Deceased"
	default:
		return string(s)
	}
}

// Member is a church member.
type Member struct {
	ID               int64            `db:"id" json:"id"`
	FirstName        string           `db:"first_name" json:"first_name"`
	LastName         string           `db:"last_name" json:"last_name"`
	Phone            string           `db:"phone" json:"phone"`
	Email            string           `db:"email" json:"email"`
	MembershipStatus Status           `db:"membership_status" json:"membership_status"`
	JoinedDate       duedate.NullDate `db:"joined_date" json:"joined_date"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// FullName returns "First Last".
func (m Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// Input is the member form.
type Input struct {
	FirstName        string `form:"first_name" validate:"required,max=100"`
	LastName         string `form:"last_name" validate:"required,max=100"`
	Phone            string `form:"phone" validate:"omitempty,phone"`
	Email            string `form:"email" validate:"omitempty,email,max=255"`
	MembershipStatus string `form:"membership_status" validate:"omitempty,oneof=active inactive transferred deceased"`
	JoinedDate       string `form:"joined_date" validate:"omitempty,date"`
}

// InputFrom fills a form from an existing member, for edit pages.
func InputFrom(m *Member) Input {
	return Input{
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		Phone:            m.Phone,
		Email:            m.Email,
		MembershipStatus: string(m.MembershipStatus),
		JoinedDate:       m.JoinedDate.String(),
	}
}

// Filter narrows List.
type Filter struct {
	Search string
	Status Status
}
