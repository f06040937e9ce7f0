package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	apiKeyBytes  = 32 // 256-bit keys
	apiKeyPrefix = "dk_"
)

// ErrKeyNotFound is returned when no API key matches.
var ErrKeyNotFound = errors.New("key not found")

// APIKey is the stored representation of an API key (no raw key).
type APIKey struct {
	ID         int64      `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	KeyPrefix  string     `db:"key_prefix" json:"key_prefix"` // first 8 chars for identification
	UserID     int64      `db:"user_id" json:"user_id"`
	UserEmail  string     `db:"user_email" json:"user_email"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}

// APIKeyStore manages API keys in SQLite.
type APIKeyStore struct {
	db *sqlx.DB
}

// NewAPIKeyStore creates an API key store.
func NewAPIKeyStore(db *sqlx.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// Create generates a new API key acting as userID.
// Returns the raw key (shown once to user) and the stored record.
func (s *APIKeyStore) Create(ctx context.Context, name string, userID int64) (string, *APIKey, error) {
	raw, err := generateAPIKey()
	if err != nil {
		return "", nil, fmt.Errorf("generating key: %w", err)
	}

	prefix := raw[:8]
	hash := hashAPIKey(raw)

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO api_keys (name, key_prefix, key_hash, user_id) VALUES (?, ?, ?, ?)",
		name, prefix, hash, userID,
	)
	if err != nil {
		return "", nil, fmt.Errorf("storing key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("getting key id: %w", err)
	}

	key := &APIKey{
		ID:        id,
		Name:      name,
		KeyPrefix: prefix,
		UserID:    userID,
	}

	return raw, key, nil
}

// List returns API keys (without the raw key). userID 0 lists every user's keys.
func (s *APIKeyStore) List(ctx context.Context, userID int64) ([]APIKey, error) {
	query := `SELECT k.id, k.name, k.key_prefix, k.user_id, u.email AS user_email, k.created_at, k.last_used_at
		FROM api_keys k JOIN users u ON u.id = k.user_id`
	var args []any
	if userID != 0 {
		query += " WHERE k.user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY k.created_at DESC, k.id DESC"

	var keys []APIKey
	if err := s.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	return keys, nil
}

// Delete removes an API key by ID. userID 0 allows deleting any user's key.
func (s *APIKeyStore) Delete(ctx context.Context, id, userID int64) error {
	query := "DELETE FROM api_keys WHERE id = ?"
	args := []any{id}
	if userID != 0 {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}
	return requireOneRow(result, ErrKeyNotFound)
}

// Validate checks a raw API key against stored hashes and returns the owning user id.
// ok is false for unknown keys. A successful check updates last_used_at.
func (s *APIKeyStore) Validate(ctx context.Context, rawKey string) (userID int64, ok bool, err error) {
	hash := hashAPIKey(rawKey)

	err = s.db.GetContext(ctx, &userID, "SELECT user_id FROM api_keys WHERE key_hash = ?", hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("validating key: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET last_used_at = ? WHERE key_hash = ?",
		time.Now().UTC(), hash,
	); err != nil {
		return 0, false, fmt.Errorf("touching key: %w", err)
	}

	return userID, true, nil
}

// LooksLikeAPIKey reports whether s has the shape of a key this server
// issues: the prefix followed by hex of the right length.
func LooksLikeAPIKey(s string) bool {
	body, ok := strings.CutPrefix(s, apiKeyPrefix)
	if !ok || len(body) != apiKeyBytes*2 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
