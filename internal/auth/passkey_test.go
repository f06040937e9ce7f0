package auth

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-webauthn/webauthn/webauthn"
)

func TestPasskeySaveAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := addUser(t, f.users, "ann@example.org", Staff)

	cred1 := &webauthn.Credential{ID: []byte("cred-1"), PublicKey: []byte("key-1")}
	cred2 := &webauthn.Credential{ID: []byte("cred-2"), PublicKey: []byte("key-2")}

	if err := f.passkeys.Save(ctx, u.ID, "Laptop", cred1); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if err := f.passkeys.Save(ctx, u.ID, "Phone", cred2); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	stored, err := f.passkeys.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("got %d credentials, want 2", len(stored))
	}
	if stored[0].Name != "Laptop" || stored[0].UserID != u.ID {
		t.Errorf("unexpected credential: %+v", stored[0])
	}
	if !bytes.Equal(stored[0].Credential.ID, cred1.ID) {
		t.Error("credential ID mismatch")
	}

	creds, err := f.passkeys.WebAuthnCredentials(ctx, u.ID)
	if err != nil {
		t.Fatalf("webauthn credentials: %v", err)
	}
	if len(creds) != 2 {
		t.Errorf("got %d credentials, want 2", len(creds))
	}
}

func TestPasskeyDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := addUser(t, f.users, "ann@example.org", Staff)
	bob := addUser(t, f.users, "bob@example.org", Staff)

	cred := &webauthn.Credential{ID: []byte("cred-1"), PublicKey: []byte("key-1")}
	if err := f.passkeys.Save(ctx, ann.ID, "Laptop", cred); err != nil {
		t.Fatalf("save: %v", err)
	}
	stored, err := f.passkeys.ListByUser(ctx, ann.ID)
	if err != nil || len(stored) != 1 {
		t.Fatalf("list: %v (%d)", err, len(stored))
	}

	if err := f.passkeys.Delete(ctx, stored[0].ID, bob.ID); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("wrong owner err = %v, want ErrCredentialNotFound", err)
	}
	if err := f.passkeys.Delete(ctx, stored[0].ID, ann.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	remaining, err := f.passkeys.ListByUser(ctx, ann.ID)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("got %d credentials after delete", len(remaining))
	}
}

func TestPasskeyUser(t *testing.T) {
	u := &User{ID: 42, Email: "ann@example.org", Name: "Ann"}
	creds := []webauthn.Credential{{ID: []byte("c")}}
	pu := NewPasskeyUser(u, creds)

	if pu.WebAuthnName() != "ann@example.org" {
		t.Errorf("name = %q", pu.WebAuthnName())
	}
	if pu.WebAuthnDisplayName() != "Ann" {
		t.Errorf("display name = %q", pu.WebAuthnDisplayName())
	}
	if len(pu.WebAuthnCredentials()) != 1 {
		t.Error("credentials not returned")
	}

	id, err := UserIDFromHandle(pu.WebAuthnID())
	if err != nil {
		t.Fatalf("decode handle: %v", err)
	}
	if id != 42 {
		t.Errorf("handle decodes to %d, want 42", id)
	}

	if _, err := UserIDFromHandle([]byte("short")); err == nil {
		t.Error("expected error for malformed handle")
	}
}
