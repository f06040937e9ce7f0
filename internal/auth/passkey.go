package auth

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/jmoiron/sqlx"
)

// ErrCredentialNotFound is returned when no passkey matches.
var ErrCredentialNotFound = errors.New("credential not found")

// PasskeyUser implements webauthn.User for a staff user.
type PasskeyUser struct {
	user        *User
	credentials []webauthn.Credential
}

// NewPasskeyUser creates a PasskeyUser for u.
func NewPasskeyUser(u *User, credentials []webauthn.Credential) *PasskeyUser {
	return &PasskeyUser{user: u, credentials: credentials}
}

// User returns the wrapped staff user.
func (u *PasskeyUser) User() *User { return u.user }

// WebAuthnID returns the user handle: the user id as 8 big-endian bytes.
func (u *PasskeyUser) WebAuthnID() []byte {
	return UserHandle(u.user.ID)
}

// WebAuthnName returns the email.
func (u *PasskeyUser) WebAuthnName() string { return u.user.Email }

// WebAuthnDisplayName returns the display name.
func (u *PasskeyUser) WebAuthnDisplayName() string { return u.user.DisplayName() }

// WebAuthnCredentials returns the stored credentials.
func (u *PasskeyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

// UserHandle encodes a user id as a WebAuthn user handle.
func UserHandle(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// UserIDFromHandle decodes a handle produced by UserHandle.
func UserIDFromHandle(handle []byte) (int64, error) {
	if len(handle) != 8 {
		return 0, fmt.Errorf("user handle has %d bytes, want 8", len(handle))
	}
	return int64(binary.BigEndian.Uint64(handle)), nil
}

// PasskeyStore manages passkey credentials in SQLite.
type PasskeyStore struct {
	db *sqlx.DB
}

// NewPasskeyStore creates a passkey store.
func NewPasskeyStore(db *sqlx.DB) *PasskeyStore {
	return &PasskeyStore{db: db}
}

// StoredCredential is a passkey credential with metadata.
type StoredCredential struct {
	ID         string
	UserID     int64
	Name       string
	Credential webauthn.Credential
}

// Save stores a new passkey credential.
func (s *PasskeyStore) Save(ctx context.Context, userID int64, name string, cred *webauthn.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}

	id := fmt.Sprintf("%x", cred.ID)
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO passkey_credentials (id, user_id, name, credential_json) VALUES (?, ?, ?, ?)",
		id, userID, name, string(data),
	); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}

	return nil
}

// ListByUser returns all credentials for userID.
func (s *PasskeyStore) ListByUser(ctx context.Context, userID int64) ([]StoredCredential, error) {
	var rows []struct {
		ID     string `db:"id"`
		UserID int64  `db:"user_id"`
		Name   string `db:"name"`
		Data   string `db:"credential_json"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, user_id, name, credential_json FROM passkey_credentials WHERE user_id = ? ORDER BY created_at",
		userID,
	); err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}

	result := make([]StoredCredential, 0, len(rows))
	for _, row := range rows {
		sc := StoredCredential{ID: row.ID, UserID: row.UserID, Name: row.Name}
		if err := json.Unmarshal([]byte(row.Data), &sc.Credential); err != nil {
			return nil, fmt.Errorf("unmarshaling credential: %w", err)
		}
		result = append(result, sc)
	}

	return result, nil
}

// WebAuthnCredentials returns just the webauthn.Credential slice for userID.
func (s *PasskeyStore) WebAuthnCredentials(ctx context.Context, userID int64) ([]webauthn.Credential, error) {
	stored, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	creds := make([]webauthn.Credential, len(stored))
	for i, sc := range stored {
		creds[i] = sc.Credential
	}

	return creds, nil
}

// Delete removes one of userID's credentials.
func (s *PasskeyStore) Delete(ctx context.Context, id string, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM passkey_credentials WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return requireOneRow(result, ErrCredentialNotFound)
}
