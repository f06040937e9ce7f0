package equipment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
)

// Repository provides data access for categories, assets and maintenance
// events. It runs against either the database handle or a transaction.
type Repository struct {
	q sqlx.ExtContext
}

// NewRepository creates an equipment repository over q.
func NewRepository(q sqlx.ExtContext) *Repository {
	return &Repository{q: q}
}

// --- categories ---

// InsertCategory adds a category and returns its ID.
func (r *Repository) InsertCategory(ctx context.Context, c *Category) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		"INSERT INTO equipment_categories (name, description) VALUES (?, ?)", c.Name, c.Description)
	if err != nil {
		return 0, fmt.Errorf("inserting category: %w", err)
	}
	return result.LastInsertId()
}

// UpdateCategory overwrites a category's name and description.
func (r *Repository) UpdateCategory(ctx context.Context, c *Category) error {
	result, err := r.q.ExecContext(ctx,
		"UPDATE equipment_categories SET name = ?, description = ? WHERE id = ?", c.Name, c.Description, c.ID)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	return affectedOne(result, "category", c.ID)
}

const categoryColumns = `c.id, c.name, c.description, c.created_at,
	(SELECT COUNT(*) FROM equipment e WHERE e.category_id = c.id) AS asset_count`

// GetCategory returns a category with its asset count.
func (r *Repository) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := sqlx.GetContext(ctx, r.q, &c, "SELECT "+categoryColumns+" FROM equipment_categories c WHERE c.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("category", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying category %d: %w", id, err)
	}
	return &c, nil
}

// ListCategories returns every category by name.
func (r *Repository) ListCategories(ctx context.Context) ([]*Category, error) {
	var cats []*Category
	if err := sqlx.SelectContext(ctx, r.q, &cats,
		"SELECT "+categoryColumns+" FROM equipment_categories c ORDER BY c.name"); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// DeleteCategory removes a category row. Callers check for assets first.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM equipment_categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return affectedOne(result, "category", id)
}

// --- assets ---

const assetColumns = `e.id, e.code, e.name, e.category_id, COALESCE(c.name, '') AS category_name,
	e.description, e.location, e.purchase_date, e.purchase_price_cents, e.status,
	e.maintenance_interval_days, e.last_maintenance_date, e.next_maintenance_date,
	e.notes, e.created_by, e.created_at, e.updated_at`

const assetFrom = ` FROM equipment e LEFT JOIN equipment_categories c ON c.id = e.category_id`

// InsertAsset adds an asset and returns its ID.
func (r *Repository) InsertAsset(ctx context.Context, a *Asset) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO equipment (code, name, category_id, description, location, purchase_date,
		 purchase_price_cents, status, maintenance_interval_days, last_maintenance_date,
		 next_maintenance_date, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Code, a.Name, a.CategoryID, a.Description, a.Location, a.PurchaseDate,
		a.PurchasePriceCents, a.Status, a.MaintenanceIntervalDays, a.LastMaintenanceDate,
		a.NextMaintenanceDate, a.Notes, a.CreatedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting equipment: %w", err)
	}
	return result.LastInsertId()
}

// UpdateAsset overwrites an asset's editable fields and its next due date.
func (r *Repository) UpdateAsset(ctx context.Context, a *Asset) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE equipment SET code = ?, name = ?, category_id = ?, description = ?, location = ?,
		 purchase_date = ?, purchase_price_cents = ?, status = ?, maintenance_interval_days = ?,
		 next_maintenance_date = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		a.Code, a.Name, a.CategoryID, a.Description, a.Location, a.PurchaseDate,
		a.PurchasePriceCents, a.Status, a.MaintenanceIntervalDays, a.NextMaintenanceDate,
		a.Notes, a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating equipment: %w", err)
	}
	return affectedOne(result, "equipment", a.ID)
}

// SetMaintenanceDates records a completed maintenance on the asset.
func (r *Repository) SetMaintenanceDates(ctx context.Context, id int64, last duedate.Date, next duedate.NullDate) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE equipment SET last_maintenance_date = ?, next_maintenance_date = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		last, next, id,
	)
	if err != nil {
		return fmt.Errorf("updating maintenance dates: %w", err)
	}
	return affectedOne(result, "equipment", id)
}

// GetAsset returns an asset or a NOT_FOUND error. Derived fields are not set.
func (r *Repository) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	var a Asset
	err := sqlx.GetContext(ctx, r.q, &a, "SELECT "+assetColumns+assetFrom+" WHERE e.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("equipment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying equipment %d: %w", id, err)
	}
	return &a, nil
}

// CountInCategory returns how many assets reference a category.
func (r *Repository) CountInCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM equipment WHERE category_id = ?", categoryID); err != nil {
		return 0, fmt.Errorf("counting equipment in category %d: %w", categoryID, err)
	}
	return n, nil
}

// CategoryExists reports whether a category with id exists.
func (r *Repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM equipment_categories WHERE id = ?", id); err != nil {
		return false, fmt.Errorf("checking category %d: %w", id, err)
	}
	return n > 0, nil
}

// where builds the filter clause. Due-status filters compare the stored
// YYYY-MM-DD strings, which sort the same as the dates they hold.
func (f Filter) where(today duedate.Date) (string, []any) {
	var conditions []string
	var args []any

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		conditions = append(conditions, "(e.code LIKE ? OR e.name LIKE ? OR e.location LIKE ? OR e.description LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if f.CategoryID > 0 {
		conditions = append(conditions, "e.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Status != "" {
		conditions = append(conditions, "e.status = ?")
		args = append(args, f.Status)
	}

	horizon := today.AddDays(duedate.DueSoonWindow)
	switch f.Due {
	case duedate.Overdue:
		conditions = append(conditions, "e.next_maintenance_date IS NOT NULL AND e.next_maintenance_date < ?")
		args = append(args, today)
	case duedate.DueSoon:
		conditions = append(conditions, "e.next_maintenance_date >= ? AND e.next_maintenance_date <= ?")
		args = append(args, today, horizon)
	case duedate.OK:
		conditions = append(conditions, "e.next_maintenance_date > ?")
		args = append(args, horizon)
	case duedate.NotScheduled:
		conditions = append(conditions, "(e.next_maintenance_date IS NULL OR e.next_maintenance_date = '')")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListAssets returns one page of assets matching f plus the total match count.
func (r *Repository) ListAssets(ctx context.Context, f Filter, today duedate.Date, p db.Page) ([]*Asset, int, error) {
	where, args := f.where(today)

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, "SELECT COUNT(*)"+assetFrom+where, args...); err != nil {
		return nil, 0, fmt.Errorf("counting equipment: %w", err)
	}

	query := "SELECT " + assetColumns + assetFrom + where + " ORDER BY e.name, e.id LIMIT ? OFFSET ?"
	var assets []*Asset
	if err := sqlx.SelectContext(ctx, r.q, &assets, query, append(args, p.Size, p.Offset())...); err != nil {
		return nil, 0, fmt.Errorf("listing equipment: %w", err)
	}
	return assets, total, nil
}

// ListDue returns scheduled assets due on or before until, soonest first.
func (r *Repository) ListDue(ctx context.Context, until duedate.Date) ([]*Asset, error) {
	var assets []*Asset
	err := sqlx.SelectContext(ctx, r.q, &assets,
		"SELECT "+assetColumns+assetFrom+
			" WHERE e.next_maintenance_date IS NOT NULL AND e.next_maintenance_date <> '' AND e.next_maintenance_date <= ?"+
			" ORDER BY e.next_maintenance_date, e.name",
		until,
	)
	if err != nil {
		return nil, fmt.Errorf("listing due equipment: %w", err)
	}
	return assets, nil
}

// All returns every asset ordered by code, for exports.
func (r *Repository) All(ctx context.Context) ([]*Asset, error) {
	var assets []*Asset
	if err := sqlx.SelectContext(ctx, r.q, &assets, "SELECT "+assetColumns+assetFrom+" ORDER BY e.code"); err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	return assets, nil
}

// DeleteAsset removes an asset row. Maintenance rows must already be gone.
func (r *Repository) DeleteAsset(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM equipment WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting equipment: %w", err)
	}
	return affectedOne(result, "equipment", id)
}

// --- maintenance ---

const maintenanceColumns = `m.id, m.equipment_id, e.code AS equipment_code, e.name AS equipment_name,
	m.maintenance_date, m.maintenance_type, m.description, m.performed_by, m.cost_cents,
	m.status, m.next_maintenance_date, m.notes, m.created_by, m.created_at, m.updated_at`

const maintenanceFrom = ` FROM equipment_maintenance m JOIN equipment e ON e.id = m.equipment_id`

// InsertMaintenance adds a maintenance event and returns its ID.
func (r *Repository) InsertMaintenance(ctx context.Context, m *Maintenance) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO equipment_maintenance (equipment_id, maintenance_date, maintenance_type, description,
		 performed_by, cost_cents, status, next_maintenance_date, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.EquipmentID, m.MaintenanceDate, m.MaintenanceType, m.Description, m.PerformedBy,
		m.CostCents, m.Status, m.NextMaintenanceDate, m.Notes, m.CreatedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting maintenance: %w", err)
	}
	return result.LastInsertId()
}

// UpdateMaintenance overwrites an event's fields.
func (r *Repository) UpdateMaintenance(ctx context.Context, m *Maintenance) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE equipment_maintenance SET maintenance_date = ?, maintenance_type = ?, description = ?,
		 performed_by = ?, cost_cents = ?, status = ?, next_maintenance_date = ?, notes = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		m.MaintenanceDate, m.MaintenanceType, m.Description, m.PerformedBy, m.CostCents,
		m.Status, m.NextMaintenanceDate, m.Notes, m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating maintenance: %w", err)
	}
	return affectedOne(result, "maintenance", m.ID)
}

// GetMaintenance returns an event or a NOT_FOUND error.
func (r *Repository) GetMaintenance(ctx context.Context, id int64) (*Maintenance, error) {
	var m Maintenance
	err := sqlx.GetContext(ctx, r.q, &m, "SELECT "+maintenanceColumns+maintenanceFrom+" WHERE m.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("maintenance", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying maintenance %d: %w", id, err)
	}
	return &m, nil
}

// ListMaintenance returns an asset's history, newest first. equipmentID 0 lists every asset.
func (r *Repository) ListMaintenance(ctx context.Context, equipmentID int64) ([]*Maintenance, error) {
	query := "SELECT " + maintenanceColumns + maintenanceFrom
	var args []any
	if equipmentID > 0 {
		query += " WHERE m.equipment_id = ?"
		args = append(args, equipmentID)
	}
	query += " ORDER BY m.maintenance_date DESC, m.id DESC"

	var events []*Maintenance
	if err := sqlx.SelectContext(ctx, r.q, &events, query, args...); err != nil {
		return nil, fmt.Errorf("listing maintenance: %w", err)
	}
	return events, nil
}

// DeleteMaintenance removes one event.
func (r *Repository) DeleteMaintenance(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM equipment_maintenance WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting maintenance: %w", err)
	}
	return affectedOne(result, "maintenance", id)
}

// DeleteMaintenanceFor removes an asset's whole history and returns how many rows went.
func (r *Repository) DeleteMaintenanceFor(ctx context.Context, equipmentID int64) (int64, error) {
	result, err := r.q.ExecContext(ctx, "DELETE FROM equipment_maintenance WHERE equipment_id = ?", equipmentID)
	if err != nil {
		return 0, fmt.Errorf("deleting maintenance history: %w", err)
	}
	return result.RowsAffected()
}

func affectedOne(result sql.Result, entity string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}
