package users

import (
	"context"
	"errors"
	"testing"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	return string(hash)
}

func newTestService(t *testing.T) (*Service, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	substrate, err := kvstore.NewSubstrate(store, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected substrate error: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Substrate: substrate,
		Accounts: []Account{
			{Email: "Admin@Example.com", PasswordHash: mustHash(t, "lab-secret"), Role: RoleAdmin},
			{Email: "viewer@example.com", PasswordHash: mustHash(t, "read-only"), Role: RoleViewer},
		},
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return service, store
}

func TestLoginPersistsIdentity(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	identity, err := service.Login(ctx, " admin@example.com ", "lab-secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if identity.Email != "admin@example.com" || identity.Role != RoleAdmin {
		t.Fatalf("unexpected identity %#v", identity)
	}

	current, found, err := service.Current(ctx)
	if err != nil || !found || current != identity {
		t.Fatalf("expected persisted identity, got %#v found=%v err=%v", current, found, err)
	}
	canEdit, err := service.CanEdit(ctx)
	if err != nil || !canEdit {
		t.Fatalf("admin must be able to edit, got %v %v", canEdit, err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "unknown account", email: "nobody@example.com", password: "lab-secret"},
		{name: "wrong password", email: "admin@example.com", password: "guess"},
		{name: "empty password", email: "admin@example.com", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.Login(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
	if store.Writes() != 0 {
		t.Fatalf("rejected logins must not write a session")
	}
}

func TestViewerCannotEditAndLogoutClearsSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, err := service.Login(ctx, "viewer@example.com", "read-only"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if canEdit, _ := service.CanEdit(ctx); canEdit {
		t.Fatalf("viewer must not edit")
	}

	if err := service.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, found, _ := service.Current(ctx); found {
		t.Fatalf("expected no session after logout")
	}
	if canEdit, _ := service.CanEdit(ctx); canEdit {
		t.Fatalf("signed-out user must not edit")
	}
}

func TestCurrentTreatsCorruptSessionAsSignedOut(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t)

	for _, raw := range []string{"{not json", `{"email":"a@b.c","role":"owner"}`, `{"email":" ","role":"admin"}`} {
		if err := store.Save(ctx, kvstore.NamespaceSession.String(), raw); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		if _, found, err := service.Current(ctx); err != nil || found {
			t.Fatalf("expected signed out for %q, found=%v err=%v", raw, found, err)
		}
	}
}

func TestNewServiceValidatesAccounts(t *testing.T) {
	substrate, _ := kvstore.NewSubstrate(kvstore.NewMemoryStore(), nil)
	invalid := [][]Account{
		{{Email: "", PasswordHash: mustHash(t, "x"), Role: RoleAdmin}},
		{{Email: "a@example.com", PasswordHash: "", Role: RoleAdmin}},
		{{Email: "a@example.com", PasswordHash: mustHash(t, "x"), Role: "owner"}},
		{{Email: "a@example.com", PasswordHash: "plaintext", Role: RoleAdmin}},
	}
	for index, accounts := range invalid {
		if _, err := NewService(ServiceConfig{Substrate: substrate, Accounts: accounts}); !errors.Is(err, ErrInvalidAccount) {
			t.Fatalf("case %d: expected ErrInvalidAccount, got %v", index, err)
		}
	}
	if _, err := NewService(ServiceConfig{}); err == nil {
		t.Fatalf("expected error without substrate")
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("lab-secret")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("lab-secret")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}
