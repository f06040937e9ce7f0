package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/db"
)

// Repository provides data access for members. It runs against
// either the database handle or a transaction.
type Repository struct {
	q sqlx.ExtContext
}

// NewRepository creates a member repository over q.
func NewRepository(q sqlx.ExtContext) *Repository {
	return &Repository{q: q}
}

const selectColumns = `id, first_name, last_name, phone, email, membership_status, joined_date, created_at, updated_at`

// Insert adds a member and returns its ID.
func (r *Repository) Insert(ctx context.Context, m *Member) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO members (first_name, last_name, phone, email, membership_status, joined_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.FirstName, m.LastName, m.Phone, m.Email, m.MembershipStatus, m.JoinedDate,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting insert id: %w", err)
	}
	return id, nil
}

// Update overwrites a member's editable fields.
func (r *Repository) Update(ctx context.Context, m *Member) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE members SET first_name = ?, last_name = ?, phone = ?, email = ?,
		 membership_status = ?, joined_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		m.FirstName, m.LastName, m.Phone, m.Email, m.MembershipStatus, m.JoinedDate, m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating member: %w", err)
	}
	return affectedOne(result, m.ID)
}

// GetByID returns a member or a NOT_FOUND error.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Member, error) {
	var m Member
	err := sqlx.GetContext(ctx, r.q, &m, "SELECT "+selectColumns+" FROM members WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("member", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying member %d: %w", id, err)
	}
	return &m, nil
}

// Exists reports whether a member with id exists.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM members WHERE id = ?", id); err != nil {
		return false, fmt.Errorf("checking member %d: %w", id, err)
	}
	return n > 0, nil
}

func (f Filter) where() (string, []any) {
	var conditions []string
	var args []any

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		conditions = append(conditions, "(first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR phone LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if f.Status != "" {
		conditions = append(conditions, "membership_status = ?")
		args = append(args, f.Status)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of members matching f, ordered by name, plus the total match count.
func (r *Repository) List(ctx context.Context, f Filter, p db.Page) ([]*Member, int, error) {
	where, args := f.where()

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, "SELECT COUNT(*) FROM members"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("counting members: %w", err)
	}

	query := "SELECT " + selectColumns + " FROM members" + where + " ORDER BY last_name, first_name, id LIMIT ? OFFSET ?"
	var members []*Member
	if err := sqlx.SelectContext(ctx, r.q, &members, query, append(args, p.Size, p.Offset())...); err != nil {
		return nil, 0, fmt.Errorf("listing members: %w", err)
	}
	return members, total, nil
}

// Options returns active members for assignee pickers.
func (r *Repository) Options(ctx context.Context) ([]*Member, error) {
	var members []*Member
	err := sqlx.SelectContext(ctx, r.q, &members,
		"SELECT "+selectColumns+" FROM members WHERE membership_status = ? ORDER BY last_name, first_name",
		Active,
	)
	if err != nil {
		return nil, fmt.Errorf("listing member options: %w", err)
	}
	return members, nil
}

// Delete removes a member and clears any follow-up assignments pointing at it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx,
		"UPDATE visitors SET assigned_followup_person_id = NULL WHERE assigned_followup_person_id = ?", id,
	); err != nil {
		return fmt.Errorf("clearing visitor assignments: %w", err)
	}
	result, err := r.q.ExecContext(ctx, "DELETE FROM members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	return affectedOne(result, id)
}

func affectedOne(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("member", id)
	}
	return nil
}
