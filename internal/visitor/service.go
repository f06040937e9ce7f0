package visitor

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/churchdesk/internal/activity"
	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/validate"
)

const (
	entity         = "visitor"
	entityFollowup = "followup"
)

// Service provides visitor and follow-up business logic.
type Service struct {
	db       *sqlx.DB
	repo     *Repository
	cal      duedate.Calendar
	pageSize int
}

// NewService creates a visitor service. cal decides what "today" is.
func NewService(d *sqlx.DB, cal duedate.Calendar, pageSize int) *Service {
	return &Service{db: d, repo: NewRepository(d), cal: cal, pageSize: pageSize}
}

// Repository exposes read access for reports.
func (s *Service) Repository() *Repository { return s.repo }

// Today returns the service's current date.
func (s *Service) Today() duedate.Date { return s.cal.Today() }

func parse(in Input) (*Visitor, error) {
	errs := validate.Struct(in)

	visited, err := duedate.Parse(in.VisitDate)
	if err != nil {
		errs.Add("visit_date", "visit_date must be a date in YYYY-MM-DD format")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	status := Status(in.Status)
	if status == "" {
		status = NewVisitor
	}
	return &Visitor{
		FirstName:                strings.TrimSpace(in.FirstName),
		LastName:                 strings.TrimSpace(in.LastName),
		Phone:                    strings.TrimSpace(in.Phone),
		Email:                    strings.ToLower(strings.TrimSpace(in.Email)),
		Address:                  strings.TrimSpace(in.Address),
		VisitDate:                visited,
		HowHeard:                 strings.TrimSpace(in.HowHeard),
		Status:                   status,
		AssignedFollowupPersonID: validate.ID(in.AssignedFollowupPersonID),
		Notes:                    strings.TrimSpace(in.Notes),
	}, nil
}

// checkRefs reports duplicate contact details and a missing assignee
// together, as field errors.
func checkRefs(ctx context.Context, repo *Repository, v *Visitor) error {
	var errs validate.Errors

	for _, c := range []struct{ column, value string }{{"phone", v.Phone}, {"email", v.Email}} {
		taken, err := repo.ContactTaken(ctx, c.column, c.value, v.ID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add(c.column, "another visitor already uses this "+c.column)
		}
	}
	if v.AssignedFollowupPersonID != nil {
		ok, err := repo.MemberExists(ctx, *v.AssignedFollowupPersonID)
		if err != nil {
			return err
		}
		if !ok {
			errs.Add("assigned_followup_person_id", "assigned member does not exist")
		}
	}
	return errs.Err()
}

// Create adds a visitor. Phone and email, when given, must be unique.
func (s *Service) Create(ctx context.Context, in Input) (*Visitor, error) {
	v, err := parse(in)
	if err != nil {
		return nil, apperr.Track(entity, "create", err)
	}
	if id, ok := activity.ActorFrom(ctx); ok {
		v.CreatedBy = &id
	}

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		if err := checkRefs(ctx, repo, v); err != nil {
			return err
		}
		id, err := repo.Insert(ctx, v)
		if err != nil {
			return err
		}
		created, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		*v = *created
		return activity.Record(ctx, tx, activity.ActionCreate, entity, id, nil, v)
	})
	if err != nil {
		return nil, apperr.Track(entity, "create", apperr.FromStorage("creating visitor", err, "phone", "email"))
	}
	v.Derive(s.cal.Today())
	return v, nil
}

// Update replaces a visitor's editable fields, status included.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Visitor, error) {
	v, err := parse(in)
	if err != nil {
		return nil, apperr.Track(entity, "update", err)
	}
	v.ID = id

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkRefs(ctx, repo, v); err != nil {
			return err
		}
		if err := repo.Update(ctx, v); err != nil {
			return err
		}
		after, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		*v = *after
		return activity.Record(ctx, tx, activity.ActionUpdate, entity, id, before, after)
	})
	if err != nil {
		return nil, apperr.Track(entity, "update", apperr.FromStorage("updating visitor", err, "phone", "email"))
	}
	v.Derive(s.cal.Today())
	return v, nil
}

// Get returns a visitor with its follow-up status as of today.
func (s *Service) Get(ctx context.Context, id int64) (*Visitor, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStorage("loading visitor", err, "")
	}
	v.Derive(s.cal.Today())
	return v, nil
}

// List returns one page of visitors matching f.
func (s *Service) List(ctx context.Context, f Filter, p db.Page) (db.List[*Visitor], error) {
	p = p.Normalize(s.pageSize)
	today := s.cal.Today()
	visitors, total, err := s.repo.List(ctx, f, today, p)
	if err != nil {
		return db.List[*Visitor]{}, apperr.FromStorage("listing visitors", err, "")
	}
	for _, v := range visitors {
		v.Derive(today)
	}
	return db.NewList(visitors, total, p), nil
}

// Delete removes a visitor and its follow-ups together.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := repo.DeleteFollowupsFor(ctx, id); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.ActionDelete, entity, id, before, nil)
	})
	return apperr.Track(entity, "delete", apperr.FromStorage("deleting visitor", err, ""))
}

// followupRecord is the activity snapshot of a recorded follow-up.
type followupRecord struct {
	Followup      *Followup `json:"followup"`
	VisitorStatus Status    `json:"visitor_status"`
}

func parseFollowup(in FollowupInput) (*Followup, Status, error) {
	errs := validate.Struct(in)

	date, err := duedate.Parse(in.FollowupDate)
	if err != nil {
		errs.Add("followup_date", "followup_date must be a date in YYYY-MM-DD format")
	}
	next, err := duedate.ParseNull(in.NextFollowupDate)
	if err != nil {
		errs.Add("next_followup_date", "next_followup_date must be a date in YYYY-MM-DD format")
	}
	var newStatus Status
	if in.UpdateVisitorStatus {
		newStatus = Status(in.NewStatus)
		if newStatus == "" {
			errs.Add("new_status", "new_status is required")
		}
	}
	if err := errs.Err(); err != nil {
		return nil, "", err
	}

	status := FollowupStatus(in.Status)
	if status == "" {
		status = FollowupCompleted
	}
	return &Followup{
		FollowupDate:     date,
		FollowupType:     FollowupType(in.FollowupType),
		Outcome:          strings.TrimSpace(in.Outcome),
		Notes:            strings.TrimSpace(in.Notes),
		NextFollowupDate: next,
		Status:           status,
	}, newStatus, nil
}

// RecordFollowup logs a contact with a visitor. The visitor's status only
// changes when the input asks for it, and then in the same transaction as
// the insert: if the insert fails the visitor is left as it was.
func (s *Service) RecordFollowup(ctx context.Context, visitorID int64, in FollowupInput) (*Followup, error) {
	f, newStatus, err := parseFollowup(in)
	if err != nil {
		return nil, apperr.Track(entityFollowup, "record", err)
	}
	f.VisitorID = visitorID
	if id, ok := activity.ActorFrom(ctx); ok {
		f.PerformedBy = &id
		f.CreatedBy = &id
	}

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetBase(ctx, visitorID)
		if err != nil {
			return err
		}
		status := before.Status
		if newStatus != "" {
			if err := repo.SetStatus(ctx, visitorID, newStatus); err != nil {
				return err
			}
			status = newStatus
		}
		id, err := repo.InsertFollowup(ctx, f)
		if err != nil {
			return err
		}
		created, err := repo.GetFollowup(ctx, id)
		if err != nil {
			return err
		}
		*f = *created
		return activity.Record(ctx, tx, activity.ActionRecordFollowup, entity, visitorID,
			before, followupRecord{Followup: f, VisitorStatus: status})
	})
	if err != nil {
		return nil, apperr.Track(entityFollowup, "record", apperr.FromStorage("recording follow-up", err, ""))
	}
	return f, nil
}

// ListFollowups returns a visitor's follow-ups, newest first.
func (s *Service) ListFollowups(ctx context.Context, visitorID int64) ([]*Followup, error) {
	if _, err := s.repo.GetBase(ctx, visitorID); err != nil {
		return nil, apperr.FromStorage("loading visitor", err, "")
	}
	followups, err := s.repo.ListFollowups(ctx, visitorID)
	if err != nil {
		return nil, apperr.FromStorage("listing follow-ups", err, "")
	}
	return followups, nil
}

// NewFollowupInput pre-fills a follow-up form dated today with a phone call
// and its suggested next date.
func (s *Service) NewFollowupInput() FollowupInput {
	today := s.cal.Today()
	return FollowupInput{
		FollowupDate:     today.String(),
		FollowupType:     string(PhoneCall),
		Status:           string(FollowupCompleted),
		NextFollowupDate: SuggestNextFollowup(PhoneCall, today).String(),
	}
}
