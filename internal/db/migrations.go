package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migrations is an ordered list of SQL statements to run.
// Every statement is idempotent so Open can run the whole list on each start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT    NOT NULL UNIQUE,
		name          TEXT    NOT NULL DEFAULT '',
		role          TEXT    NOT NULL CHECK (role IN ('admin', 'staff', 'volunteer')),
		password_hash TEXT    NOT NULL DEFAULT '',
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT     PRIMARY KEY,
		user_id    INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS passkey_credentials (
		id              TEXT    PRIMARY KEY,
		user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name            TEXT    NOT NULL DEFAULT '',
		credential_json TEXT    NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		name         TEXT     NOT NULL,
		key_prefix   TEXT     NOT NULL,
		key_hash     TEXT     NOT NULL UNIQUE,
		user_id      INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name        TEXT    NOT NULL,
		last_name         TEXT    NOT NULL,
		phone             TEXT    NOT NULL DEFAULT '',
		email             TEXT    NOT NULL DEFAULT '',
		membership_status TEXT    NOT NULL DEFAULT 'active',
		joined_date       TEXT,
		created_at        DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at        DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS equipment_categories (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT    NOT NULL UNIQUE,
		description TEXT    NOT NULL DEFAULT '',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id                        INTEGER PRIMARY KEY AUTOINCREMENT,
		code                      TEXT    NOT NULL UNIQUE,
		name                      TEXT    NOT NULL,
		category_id               INTEGER NOT NULL REFERENCES equipment_categories(id),
		description               TEXT    NOT NULL DEFAULT '',
		location                  TEXT    NOT NULL DEFAULT '',
		purchase_date             TEXT,
		purchase_price_cents      INTEGER,
		status                    TEXT    NOT NULL DEFAULT 'good',
		maintenance_interval_days INTEGER NOT NULL DEFAULT 365 CHECK (maintenance_interval_days >= 0),
		last_maintenance_date     TEXT,
		next_maintenance_date     TEXT,
		notes                     TEXT    NOT NULL DEFAULT '',
		created_by                INTEGER,
		created_at                DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at                DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_equipment_next_maintenance ON equipment(next_maintenance_date)`,
	`CREATE TABLE IF NOT EXISTS equipment_maintenance (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		equipment_id          INTEGER NOT NULL REFERENCES equipment(id),
		maintenance_date      TEXT    NOT NULL,
		maintenance_type      TEXT    NOT NULL,
		description           TEXT    NOT NULL DEFAULT '',
		performed_by          TEXT    NOT NULL DEFAULT '',
		cost_cents            INTEGER,
		status                TEXT    NOT NULL,
		next_maintenance_date TEXT,
		notes                 TEXT    NOT NULL DEFAULT '',
		created_by            INTEGER,
		created_at            DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at            DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_maintenance_equipment ON equipment_maintenance(equipment_id)`,
	`CREATE TABLE IF NOT EXISTS visitors (
		id                          INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name                  TEXT    NOT NULL,
		last_name                   TEXT    NOT NULL,
		phone                       TEXT    NOT NULL DEFAULT '',
		email                       TEXT    NOT NULL DEFAULT '',
		address                     TEXT    NOT NULL DEFAULT '',
		visit_date                  TEXT    NOT NULL,
		how_heard                   TEXT    NOT NULL DEFAULT '',
		status                      TEXT    NOT NULL DEFAULT 'new_visitor',
		assigned_followup_person_id INTEGER,
		notes                       TEXT    NOT NULL DEFAULT '',
		created_by                  INTEGER,
		created_at                  DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at                  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visitors_phone ON visitors(phone) WHERE phone <> ''`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visitors_email ON visitors(email) WHERE email <> ''`,
	`CREATE TABLE IF NOT EXISTS visitor_followups (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		visitor_id         INTEGER NOT NULL REFERENCES visitors(id),
		followup_date      TEXT    NOT NULL,
		followup_type      TEXT    NOT NULL,
		outcome            TEXT    NOT NULL DEFAULT '',
		notes              TEXT    NOT NULL DEFAULT '',
		next_followup_date TEXT,
		status             TEXT    NOT NULL,
		performed_by       INTEGER,
		created_by         INTEGER,
		created_at         DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_followups_visitor ON visitor_followups(visitor_id)`,
	`CREATE TABLE IF NOT EXISTS activity_log (
		id          TEXT    PRIMARY KEY,
		user_id     INTEGER,
		action      TEXT    NOT NULL,
		entity_type TEXT    NOT NULL,
		entity_id   INTEGER NOT NULL,
		before_json TEXT,
		after_json  TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_entity ON activity_log(entity_type, entity_id)`,
}

// migrate runs all migrations in order.
func migrate(db *sqlx.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions, skipped when the column already exists
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"activity_log", "request_id", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sqlx.DB, table, column, definition string) error {
	var names []string
	if err := db.Select(&names, "SELECT name FROM pragma_table_info(?)", table); err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}

	for _, name := range names {
		if name == column {
			return nil
		}
	}

	_, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
