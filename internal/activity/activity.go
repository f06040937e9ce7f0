// Package activity records who changed what, with before and after snapshots.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/churchdesk/internal/metrics"
)

// Actions recorded by the services.
const (
	ActionCreate            = "create"
	ActionUpdate            = "update"
	ActionDelete            = "delete"
	ActionRecordMaintenance = "record_maintenance"
	ActionRecordFollowup    = "record_followup"
)

// Entry is one row of the activity log.
type Entry struct {
	ID         string         `db:"id" json:"id"`
	UserID     sql.NullInt64  `db:"user_id" json:"-"`
	UserName   sql.NullString `db:"user_name" json:"-"`
	Action     string         `db:"action" json:"action"`
	EntityType string         `db:"entity_type" json:"entity_type"`
	EntityID   int64          `db:"entity_id" json:"entity_id"`
	Before     sql.NullString `db:"before_json" json:"-"`
	After      sql.NullString `db:"after_json" json:"-"`
	RequestID  string         `db:"request_id" json:"request_id,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// Actor returns the display name of whoever made the change.
func (e Entry) Actor() string {
	switch {
	case e.UserName.Valid && e.UserName.String != "":
		return e.UserName.String
	case e.UserID.Valid:
		return fmt.Sprintf("user %d", e.UserID.Int64)
	default:
		return "system"
	}
}

type actorKey struct{}

// WithActor attaches the acting user id to ctx.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the acting user id from ctx.
func ActorFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey{}).(int64)
	return id, ok
}

// Record writes one entry using ext, which is normally the transaction
// carrying the change so the entry commits or rolls back with it.
// before and after are marshaled to JSON; nil means no snapshot.
func Record(ctx context.Context, ext sqlx.ExtContext, action, entityType string, entityID int64, before, after any) error {
	beforeJSON, err := snapshot(before)
	if err != nil {
		return fmt.Errorf("encoding before snapshot: %w", err)
	}
	afterJSON, err := snapshot(after)
	if err != nil {
		return fmt.Errorf("encoding after snapshot: %w", err)
	}

	var userID sql.NullInt64
	if id, ok := ActorFrom(ctx); ok {
		userID = sql.NullInt64{Int64: id, Valid: true}
	}

	_, err = ext.ExecContext(ctx,
		`INSERT INTO activity_log (id, user_id, action, entity_type, entity_id, before_json, after_json, request_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, action, entityType, entityID, beforeJSON, afterJSON, chimw.GetReqID(ctx),
	)
	if err != nil {
		return fmt.Errorf("recording %s %s %d: %w", action, entityType, entityID, err)
	}

	metrics.Writes.WithLabelValues(entityType, action).Inc()
	return nil
}

func snapshot(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// Filter narrows List.
type Filter struct {
	EntityType string
	EntityID   int64
	Limit      int
}

// List returns entries newest first.
func List(ctx context.Context, q sqlx.QueryerContext, f Filter) ([]Entry, error) {
	query := `SELECT a.id, a.user_id, u.name AS user_name, a.action, a.entity_type, a.entity_id,
		a.before_json, a.after_json, a.request_id, a.created_at
		FROM activity_log a LEFT JOIN users u ON u.id = a.user_id WHERE 1=1`
	var args []any

	if f.EntityType != "" {
		query += " AND a.entity_type = ?"
		args = append(args, f.EntityType)
	}
	if f.EntityID != 0 {
		query += " AND a.entity_id = ?"
		args = append(args, f.EntityID)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY a.created_at DESC, a.rowid DESC LIMIT ?"
	args = append(args, limit)

	var entries []Entry
	if err := sqlx.SelectContext(ctx, q, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}
