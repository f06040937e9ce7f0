package member

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

const entity = "member"

// Service provides member business logic.
type Service struct {
	db       *sqlx.DB
	repo     *Repository
	pageSize int
}

// NewService creates a member service.
func NewService(d *sqlx.DB, pageSize int) *Service {
	return &Service{db: d, repo: NewRepository(d), pageSize: pageSize}
}

// Repository exposes read access for other packages.
func (s *Service) Repository() *Repository { return s.repo }

// parse validates in and builds the member it describes.
func parse(in Input) (*Member, error) {
	errs := validate.Struct(in)

	joined, err := duedate.ParseNull(in.JoinedDate)
	if err != nil {
		errs.Add("joined_date", "joined_date must be a date in YYYY-MM-DD format")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	status := Status(in.MembershipStatus)
	if status == "" {
		status = Active
	}
	return &Member{
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Phone:            strings.TrimSpace(in.Phone),
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		MembershipStatus: status,
		JoinedDate:       joined,
	}, nil
}

// Create adds a member.
func (s *Service) Create(ctx context.Context, in Input) (*Member, error) {
	m, err := parse(in)
	if err != nil {
		return nil, apperr.Track(entity, "create", err)
	}

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		id, err := repo.Insert(ctx, m)
		if err != nil {
			return err
		}
		created, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		*m = *created
		return activity.Record(ctx, tx, activity.ActionCreate, entity, id, nil, m)
	})
	if err != nil {
		return nil, apperr.Track(entity, "create", apperr.FromStorage("creating member", err, ""))
	}
	return m, nil
}

// Update replaces a member's editable fields.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Member, error) {
	m, err := parse(in)
	if err != nil {
		return nil, apperr.Track(entity, "update", err)
	}
	m.ID = id

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, m); err != nil {
			return err
		}
		after, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		*m = *after
		return activity.Record(ctx, tx, activity.ActionUpdate, entity, id, before, after)
	})
	if err != nil {
		return nil, apperr.Track(entity, "update", apperr.FromStorage("updating member", err, ""))
	}
	return m, nil
}

// Get returns a member by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStorage("loading member", err, "")
	}
	return m, nil
}

// List returns one page of members.
func (s *Service) List(ctx context.Context, f Filter, p db.Page) (db.List[*Member], error) {
	p = p.Normalize(s.pageSize)
	members, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return db.List[*Member]{}, apperr.FromStorage("listing members", err, "")
	}
	return db.NewList(members, total, p), nil
}

// Options returns active members for assignee pickers.
func (s *Service) Options(ctx context.Context) ([]*Member, error) {
	members, err := s.repo.Options(ctx)
	if err != nil {
		return nil, apperr.FromStorage("listing members", err, "")
	}
	return members, nil
}

// Delete removes a member. Visitors assigned to them become unassigned.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.ActionDelete, entity, id, before, nil)
	})
	return apperr.Track(entity, "delete", apperr.FromStorage("deleting member", err, ""))
}
