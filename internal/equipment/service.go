package equipment

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/churchdesk/internal/activity"
	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/validate"
)

const (
	entityCategory    = "category"
	entityAsset       = "equipment"
	entityMaintenance = "maintenance"
)

// Service provides equipment business logic and owns the maintenance schedule.
type Service struct {
	db       *sqlx.DB
	repo     *Repository
	cal      duedate.Calendar
	pageSize int
}

// NewService creates an equipment service. cal decides what "today" is.
func NewService(d *sqlx.DB, cal duedate.Calendar, pageSize int) *Service {
	return &Service{db: d, repo: NewRepository(d), cal: cal, pageSize: pageSize}
}

// Repository exposes read access for reports.
func (s *Service) Repository() *Repository { return s.repo }

// Today returns the service's current date.
func (s *Service) Today() duedate.Date { return s.cal.Today() }

func actor(ctx context.Context) *int64 {
	if id, ok := activity.ActorFrom(ctx); ok {
		return &id
	}
	return nil
}

// --- categories ---

func parseCategory(in CategoryInput) (*Category, error) {
	if err := validate.Struct(in).Err(); err != nil {
		return nil, err
	}
	return &Category{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}, nil
}

// CreateCategory adds a category. Names are unique.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	c, err := parseCategory(in)
	if err != nil {
		return nil, apperr.Track(entityCategory, "create", err)
	}

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		id, err := repo.InsertCategory(ctx, c)
		if err != nil {
			return err
		}
		created, err := repo.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		*c = *created
		return activity.Record(ctx, tx, activity.ActionCreate, entityCategory, id, nil, c)
	})
	if err != nil {
		return nil, apperr.Track(entityCategory, "create", apperr.FromStorage("creating category", err, "name"))
	}
	return c, nil
}

// UpdateCategory renames or redescribes a category.
func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*Category, error) {
	c, err := parseCategory(in)
	if err != nil {
		return nil, apperr.Track(entityCategory, "update", err)
	}
	c.ID = id

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.UpdateCategory(ctx, c); err != nil {
			return err
		}
		after, err := repo.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		*c = *after
		return activity.Record(ctx, tx, activity.ActionUpdate, entityCategory, id, before, after)
	})
	if err != nil {
		return nil, apperr.Track(entityCategory, "update", apperr.FromStorage("updating category", err, "name"))
	}
	return c, nil
}

// GetCategory returns a category with its asset count.
func (s *Service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, apperr.FromStorage("loading category", err, "")
	}
	return c, nil
}

// ListCategories returns every category with its asset count.
func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, apperr.FromStorage("listing categories", err, "")
	}
	return cats, nil
}

// DeleteCategory removes an unused category. A category still holding
// assets is a CONFLICT carrying the asset count.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		n, err := repo.CountInCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict(fmt.Sprintf("category %q still has %d equipment items", before.Name, n), n)
		}
		if err := repo.DeleteCategory(ctx, id); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.ActionDelete, entityCategory, id, before, nil)
	})
	return apperr.Track(entityCategory, "delete", apperr.FromStorage("deleting category", err, ""))
}

// --- assets ---

// parseAsset validates in and builds the asset it describes. Dates and
// derived fields are left for the caller. Edits must restate the interval
// so that leaving it out never reschedules the asset.
func parseAsset(in AssetInput, editing bool) (*Asset, error) {
	errs := validate.Struct(in)
	if editing && strings.TrimSpace(in.MaintenanceIntervalDays) == "" {
		errs.Add("maintenance_interval_days", "maintenance_interval_days is required")
	}

	purchase, err := duedate.ParseNull(in.PurchaseDate)
	if err != nil {
		errs.Add("purchase_date", "purchase_date must be a date in YYYY-MM-DD format")
	}
	price, err := validate.Cents(in.PurchasePrice)
	if err != nil {
		errs.Add("purchase_price", "purchase_price must be an amount with at most two decimals")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	status := Status(in.Status)
	if status == "" {
		status = Good
	}
	return &Asset{
		Code:                    strings.TrimSpace(in.Code),
		Name:                    strings.TrimSpace(in.Name),
		CategoryID:              int64(validate.Int(in.CategoryID, 0)),
		Description:             strings.TrimSpace(in.Description),
		Location:                strings.TrimSpace(in.Location),
		PurchaseDate:            purchase,
		PurchasePriceCents:      price,
		Status:                  status,
		MaintenanceIntervalDays: validate.Int(in.MaintenanceIntervalDays, DefaultIntervalDays),
		Notes:                   strings.TrimSpace(in.Notes),
	}, nil
}

func checkCategory(ctx context.Context, repo *Repository, id int64) error {
	ok, err := repo.CategoryExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation(apperr.FieldError{Field: "category_id", Message: "category does not exist"})
	}
	return nil
}

// CreateAsset adds an asset and schedules its first maintenance.
func (s *Service) CreateAsset(ctx context.Context, in AssetInput) (*Asset, error) {
	a, err := parseAsset(in, false)
	if err != nil {
		return nil, apperr.Track(entityAsset, "create", err)
	}
	a.NextMaintenanceDate = NextOnCreate(a.PurchaseDate, a.MaintenanceIntervalDays)
	if err := checkNext(a.NextMaintenanceDate, "purchase_date"); err != nil {
		return nil, apperr.Track(entityAsset, "create", err)
	}
	a.CreatedBy = actor(ctx)

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		if err := checkCategory(ctx, repo, a.CategoryID); err != nil {
			return err
		}
		id, err := repo.InsertAsset(ctx, a)
		if err != nil {
			return err
		}
		created, err := repo.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		*a = *created
		return activity.Record(ctx, tx, activity.ActionCreate, entityAsset, id, nil, a)
	})
	if err != nil {
		return nil, apperr.Track(entityAsset, "create", apperr.FromStorage("creating equipment", err, "code"))
	}
	a.Derive(s.cal.Today())
	return a, nil
}

// UpdateAsset replaces an asset's editable fields. Maintenance dates are
// kept, except that a changed interval reschedules the next maintenance.
func (s *Service) UpdateAsset(ctx context.Context, id int64, in AssetInput) (*Asset, error) {
	a, err := parseAsset(in, true)
	if err != nil {
		return nil, apperr.Track(entityAsset, "update", err)
	}
	a.ID = id
	today := s.cal.Today()

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		if err := checkCategory(ctx, repo, a.CategoryID); err != nil {
			return err
		}
		a.NextMaintenanceDate, _ = NextOnIntervalChange(before, a.MaintenanceIntervalDays, today)
		if err := checkNext(a.NextMaintenanceDate, "maintenance_interval_days"); err != nil {
			return err
		}
		if err := repo.UpdateAsset(ctx, a); err != nil {
			return err
		}
		after, err := repo.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		*a = *after
		return activity.Record(ctx, tx, activity.ActionUpdate, entityAsset, id, before, after)
	})
	if err != nil {
		return nil, apperr.Track(entityAsset, "update", apperr.FromStorage("updating equipment", err, "code"))
	}
	a.Derive(today)
	return a, nil
}

// GetAsset returns an asset with its due status as of today.
func (s *Service) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	a, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return nil, apperr.FromStorage("loading equipment", err, "")
	}
	a.Derive(s.cal.Today())
	return a, nil
}

// ListAssets returns one page of assets matching f.
func (s *Service) ListAssets(ctx context.Context, f Filter, p db.Page) (db.List[*Asset], error) {
	p = p.Normalize(s.pageSize)
	today := s.cal.Today()
	assets, total, err := s.repo.ListAssets(ctx, f, today, p)
	if err != nil {
		return db.List[*Asset]{}, apperr.FromStorage("listing equipment", err, "")
	}
	for _, a := range assets {
		a.Derive(today)
	}
	return db.NewList(assets, total, p), nil
}

// DeleteAsset removes an asset and its maintenance history together.
func (s *Service) DeleteAsset(ctx context.Context, id int64) error {
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		if _, err := repo.DeleteMaintenanceFor(ctx, id); err != nil {
			return err
		}
		if err := repo.DeleteAsset(ctx, id); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.ActionDelete, entityAsset, id, before, nil)
	})
	return apperr.Track(entityAsset, "delete", apperr.FromStorage("deleting equipment", err, ""))
}

// --- maintenance ---

// maintenanceRecord is the activity snapshot of a recorded event.
type maintenanceRecord struct {
	Maintenance *Maintenance `json:"maintenance"`
	Equipment   *Asset       `json:"equipment"`
}

// parseMaintenance validates in as of today. A completed event may not be
// dated in the future; scheduled and in-progress ones may.
func parseMaintenance(in MaintenanceInput, today duedate.Date) (*Maintenance, error) {
	errs := validate.Struct(in)

	performed, dateErr := duedate.Parse(in.MaintenanceDate)
	if dateErr != nil {
		errs.Add("maintenance_date", "maintenance_date must be a date in YYYY-MM-DD format")
	}
	next, err := duedate.ParseNull(in.NextMaintenanceDate)
	if err != nil {
		errs.Add("next_maintenance_date", "next_maintenance_date must be a date in YYYY-MM-DD format")
	}
	cost, err := validate.Cents(in.Cost)
	if err != nil {
		errs.Add("cost", "cost must be an amount with at most two decimals")
	}

	status := MaintenanceStatus(in.Status)
	if status == "" {
		status = Completed
	}
	if dateErr == nil && !checkCompletedDate(status, performed, today) {
		errs.Add("maintenance_date", "completed maintenance cannot be dated in the future")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	return &Maintenance{
		MaintenanceDate:     performed,
		MaintenanceType:     MaintenanceType(in.MaintenanceType),
		Description:         strings.TrimSpace(in.Description),
		PerformedBy:         strings.TrimSpace(in.PerformedBy),
		CostCents:           cost,
		Status:              status,
		NextMaintenanceDate: next,
		Notes:               strings.TrimSpace(in.Notes),
	}, nil
}

// RecordMaintenance logs a maintenance event against an asset. A completed
// event moves the asset's last and next maintenance dates in the same
// transaction as the insert.
func (s *Service) RecordMaintenance(ctx context.Context, equipmentID int64, in MaintenanceInput) (*Maintenance, error) {
	m, err := parseMaintenance(in, s.cal.Today())
	if err != nil {
		return nil, apperr.Track(entityMaintenance, "record", err)
	}
	m.EquipmentID = equipmentID
	m.CreatedBy = actor(ctx)

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetAsset(ctx, equipmentID)
		if err != nil {
			return err
		}
		id, err := repo.InsertMaintenance(ctx, m)
		if err != nil {
			return err
		}
		if m.Status == Completed {
			next := NextOnCompletion(m.MaintenanceDate, m.NextMaintenanceDate, before.MaintenanceIntervalDays)
			if err := checkNext(next, "maintenance_date"); err != nil {
				return err
			}
			if err := repo.SetMaintenanceDates(ctx, equipmentID, m.MaintenanceDate, next); err != nil {
				return err
			}
		}
		created, err := repo.GetMaintenance(ctx, id)
		if err != nil {
			return err
		}
		*m = *created
		after, err := repo.GetAsset(ctx, equipmentID)
		if err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.ActionRecordMaintenance, entityAsset, equipmentID,
			before, maintenanceRecord{Maintenance: m, Equipment: after})
	})
	if err != nil {
		return nil, apperr.Track(entityMaintenance, "record", apperr.FromStorage("recording maintenance", err, ""))
	}
	return m, nil
}

// UpdateMaintenance edits an event's fields. The asset's dates are not
// recalculated.
func (s *Service) UpdateMaintenance(ctx context.Context, id int64, in MaintenanceInput) (*Maintenance, error) {
	m, err := parseMaintenance(in, s.cal.Today())
	if err != nil {
		return nil, apperr.Track(entityMaintenance, "update", err)
	}
	m.ID = id

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetMaintenance(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.UpdateMaintenance(ctx, m); err != nil {
			return err
		}
		after, err := repo.GetMaintenance(ctx, id)
		if err != nil {
			return err
		}
		*m = *after
		return activity.Record(ctx, tx, activity.ActionUpdate, entityMaintenance, id, before, after)
	})
	if err != nil {
		return nil, apperr.Track(entityMaintenance, "update", apperr.FromStorage("updating maintenance", err, ""))
	}
	return m, nil
}

// GetMaintenance returns one event.
func (s *Service) GetMaintenance(ctx context.Context, id int64) (*Maintenance, error) {
	m, err := s.repo.GetMaintenance(ctx, id)
	if err != nil {
		return nil, apperr.FromStorage("loading maintenance", err, "")
	}
	return m, nil
}

// ListMaintenance returns an asset's history, newest first.
func (s *Service) ListMaintenance(ctx context.Context, equipmentID int64) ([]*Maintenance, error) {
	if _, err := s.repo.GetAsset(ctx, equipmentID); err != nil {
		return nil, apperr.FromStorage("loading equipment", err, "")
	}
	events, err := s.repo.ListMaintenance(ctx, equipmentID)
	if err != nil {
		return nil, apperr.FromStorage("listing maintenance", err, "")
	}
	return events, nil
}

// DeleteMaintenance removes one event. The asset's dates are not recalculated.
func (s *Service) DeleteMaintenance(ctx context.Context, id int64) error {
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		before, err := repo.GetMaintenance(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteMaintenance(ctx, id); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.ActionDelete, entityMaintenance, id, before, nil)
	})
	return apperr.Track(entityMaintenance, "delete", apperr.FromStorage("deleting maintenance", err, ""))
}
