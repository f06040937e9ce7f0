package visitor

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

// Repository provides data access for visitors and follow-ups. It runs
// against either the database handle or a transaction.
type Repository struct {
	q sqlx.ExtContext
}

// NewRepository creates a visitor repository over q.
func NewRepository(q sqlx.ExtContext) *Repository {
	return &Repository{q: q}
}

const baseColumns = `v.id, v.first_name, v.last_name, v.phone, v.email, v.address, v.visit_date,
	v.how_heard, v.status, v.assigned_followup_person_id,
	COALESCE(m.first_name || ' ' || m.last_name, '') AS assigned_name,
	v.notes, v.created_by, v.created_at, v.updated_at`

// visitorView adds the latest follow-up's next date and the follow-up count.
// "Latest" is by follow-up date, then insertion order.
const visitorView = `(SELECT ` + baseColumns + `,
	(SELECT f.next_followup_date FROM visitor_followups f WHERE f.visitor_id = v.id
	 ORDER BY f.followup_date DESC, f.id DESC LIMIT 1) AS next_followup_date,
	(SELECT COUNT(*) FROM visitor_followups f WHERE f.visitor_id = v.id) AS followup_count
	FROM visitors v LEFT JOIN members m ON m.id = v.assigned_followup_person_id) vv`

const viewColumns = `vv.id, vv.first_name, vv.last_name, vv.phone, vv.email, vv.address, vv.visit_date,
	vv.how_heard, vv.status, vv.assigned_followup_person_id, vv.assigned_name, vv.notes,
	vv.created_by, vv.created_at, vv.updated_at, vv.next_followup_date, vv.followup_count`

// Insert adds a visitor and returns its ID.
func (r *Repository) Insert(ctx context.Context, v *Visitor) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO visitors (first_name, last_name, phone, email, address, visit_date, how_heard,
		 status, assigned_followup_person_id, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.FirstName, v.LastName, v.Phone, v.Email, v.Address, v.VisitDate, v.HowHeard,
		v.Status, v.AssignedFollowupPersonID, v.Notes, v.CreatedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting visitor: %w", err)
	}
	return result.LastInsertId()
}

// Update overwrites a visitor's editable fields.
func (r *Repository) Update(ctx context.Context, v *Visitor) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE visitors SET first_name = ?, last_name = ?, phone = ?, email = ?, address = ?,
		 visit_date = ?, how_heard = ?, status = ?, assigned_followup_person_id = ?, notes = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		v.FirstName, v.LastName, v.Phone, v.Email, v.Address, v.VisitDate, v.HowHeard,
		v.Status, v.AssignedFollowupPersonID, v.Notes, v.ID,
	)
	if err != nil {
		return fmt.Errorf("updating visitor: %w", err)
	}
	return affectedOne(result, "visitor", v.ID)
}

// SetStatus moves a visitor to status and bumps updated_at.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) error {
	result, err := r.q.ExecContext(ctx,
		"UPDATE visitors SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("updating visitor status: %w", err)
	}
	return affectedOne(result, "visitor", id)
}

// GetByID returns a visitor with follow-up summary fields, or NOT_FOUND.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Visitor, error) {
	var v Visitor
	err := sqlx.GetContext(ctx, r.q, &v, "SELECT "+viewColumns+" FROM "+visitorView+" WHERE vv.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("visitor", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying visitor %d: %w", id, err)
	}
	return &v, nil
}

// GetBase returns a visitor without touching the follow-up table.
func (r *Repository) GetBase(ctx context.Context, id int64) (*Visitor, error) {
	var v Visitor
	err := sqlx.GetContext(ctx, r.q, &v,
		"SELECT "+baseColumns+" FROM visitors v LEFT JOIN members m ON m.id = v.assigned_followup_person_id WHERE v.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("visitor", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying visitor %d: %w", id, err)
	}
	return &v, nil
}

// ContactTaken reports whether another visitor already uses value in
// column, which must be "phone" or "email".
func (r *Repository) ContactTaken(ctx context.Context, column, value string, exceptID int64) (bool, error) {
	if value == "" {
		return false, nil
	}
	if column != "phone" && column != "email" {
		return false, fmt.Errorf("unknown contact column %q", column)
	}
	var n int
	query := "SELECT COUNT(*) FROM visitors WHERE " + column + " = ? AND id <> ?"
	if err := sqlx.GetContext(ctx, r.q, &n, query, value, exceptID); err != nil {
		return false, fmt.Errorf("checking visitor %s: %w", column, err)
	}
	return n > 0, nil
}

// MemberExists reports whether a member with id exists.
func (r *Repository) MemberExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM members WHERE id = ?", id); err != nil {
		return false, fmt.Errorf("checking member %d: %w", id, err)
	}
	return n > 0, nil
}

func (f Filter) where(today duedate.Date) (string, []any) {
	var conditions []string
	var args []any

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		conditions = append(conditions, "(vv.first_name LIKE ? OR vv.last_name LIKE ? OR vv.email LIKE ? OR vv.phone LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if f.Status != "" {
		conditions = append(conditions, "vv.status = ?")
		args = append(args, f.Status)
	}
	if f.AssignedTo > 0 {
		conditions = append(conditions, "vv.assigned_followup_person_id = ?")
		args = append(args, f.AssignedTo)
	}

	horizon := today.AddDays(duedate.DueSoonWindow)
	switch f.Due {
	case duedate.Overdue:
		conditions = append(conditions, "vv.next_followup_date IS NOT NULL AND vv.next_followup_date < ?")
		args = append(args, today)
	case duedate.DueSoon:
		conditions = append(conditions, "vv.next_followup_date >= ? AND vv.next_followup_date <= ?")
		args = append(args, today, horizon)
	case duedate.OK:
		conditions = append(conditions, "vv.next_followup_date > ?")
		args = append(args, horizon)
	case duedate.NotScheduled:
		conditions = append(conditions, "(vv.next_followup_date IS NULL OR vv.next_followup_date = '')")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of visitors matching f, most recent visit first,
// plus the total match count.
func (r *Repository) List(ctx context.Context, f Filter, today duedate.Date, p db.Page) ([]*Visitor, int, error) {
	where, args := f.where(today)

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, "SELECT COUNT(*) FROM "+visitorView+where, args...); err != nil {
		return nil, 0, fmt.Errorf("counting visitors: %w", err)
	}

	query := "SELECT " + viewColumns + " FROM " + visitorView + where + " ORDER BY vv.visit_date DESC, vv.id DESC LIMIT ? OFFSET ?"
	var visitors []*Visitor
	if err := sqlx.SelectContext(ctx, r.q, &visitors, query, append(args, p.Size, p.Offset())...); err != nil {
		return nil, 0, fmt.Errorf("listing visitors: %w", err)
	}
	return visitors, total, nil
}

// ListDue returns visitors whose next follow-up falls on or before until, soonest first.
func (r *Repository) ListDue(ctx context.Context, until duedate.Date) ([]*Visitor, error) {
	var visitors []*Visitor
	err := sqlx.SelectContext(ctx, r.q, &visitors,
		"SELECT "+viewColumns+" FROM "+visitorView+
			" WHERE vv.next_followup_date IS NOT NULL AND vv.next_followup_date <> '' AND vv.next_followup_date <= ?"+
			" ORDER BY vv.next_followup_date, vv.last_name",
		until,
	)
	if err != nil {
		return nil, fmt.Errorf("listing due follow-ups: %w", err)
	}
	return visitors, nil
}

// All returns every visitor by name, for exports.
func (r *Repository) All(ctx context.Context) ([]*Visitor, error) {
	var visitors []*Visitor
	if err := sqlx.SelectContext(ctx, r.q, &visitors,
		"SELECT "+viewColumns+" FROM "+visitorView+" ORDER BY vv.last_name, vv.first_name, vv.id"); err != nil {
		return nil, fmt.Errorf("listing visitors: %w", err)
	}
	return visitors, nil
}

// CountVisitedSince counts visitors whose visit date is on or after since.
func (r *Repository) CountVisitedSince(ctx context.Context, since duedate.Date) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM visitors WHERE visit_date >= ?", since); err != nil {
		return 0, fmt.Errorf("counting recent visitors: %w", err)
	}
	return n, nil
}

// Delete removes a visitor row. Follow-ups must already be gone.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM visitors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting visitor: %w", err)
	}
	return affectedOne(result, "visitor", id)
}

const followupColumns = `f.id, f.visitor_id, f.followup_date, f.followup_type, f.outcome, f.notes,
	f.next_followup_date, f.status, f.performed_by, COALESCE(u.name, '') AS performed_by_name,
	f.created_by, f.created_at`

// InsertFollowup adds a follow-up and returns its ID.
func (r *Repository) InsertFollowup(ctx context.Context, f *Followup) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO visitor_followups (visitor_id, followup_date, followup_type, outcome, notes,
		 next_followup_date, status, performed_by, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.VisitorID, f.FollowupDate, f.FollowupType, f.Outcome, f.Notes,
		f.NextFollowupDate, f.Status, f.PerformedBy, f.CreatedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting follow-up: %w", err)
	}
	return result.LastInsertId()
}

// GetFollowup returns one follow-up or NOT_FOUND.
func (r *Repository) GetFollowup(ctx context.Context, id int64) (*Followup, error) {
	var f Followup
	err := sqlx.GetContext(ctx, r.q, &f,
		"SELECT "+followupColumns+" FROM visitor_followups f LEFT JOIN users u ON u.id = f.performed_by WHERE f.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("follow-up", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying follow-up %d: %w", id, err)
	}
	return &f, nil
}

// ListFollowups returns a visitor's follow-ups, newest first.
func (r *Repository) ListFollowups(ctx context.Context, visitorID int64) ([]*Followup, error) {
	var followups []*Followup
	err := sqlx.SelectContext(ctx, r.q, &followups,
		"SELECT "+followupColumns+" FROM visitor_followups f LEFT JOIN users u ON u.id = f.performed_by"+
			" WHERE f.visitor_id = ? ORDER BY f.followup_date DESC, f.id DESC",
		visitorID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing follow-ups: %w", err)
	}
	return followups, nil
}

// DeleteFollowupsFor removes a visitor's follow-ups.
func (r *Repository) DeleteFollowupsFor(ctx context.Context, visitorID int64) (int64, error) {
	result, err := r.q.ExecContext(ctx, "DELETE FROM visitor_followups WHERE visitor_id = ?", visitorID)
	if err != nil {
		return 0, fmt.Errorf("deleting follow-ups: %w", err)
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
