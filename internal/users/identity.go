package users

import (
	"strings"
)

// Role grants capabilities to an authenticated identity.
type Role string

const (
	// RoleAdmin may create, edit and delete records.
	RoleAdmin Role = "admin"
	// RoleViewer may only read and export.
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// Identity is the persisted session of the signed-in user.
type Identity struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// CanEdit reports whether the identity may mutate records.
func (i Identity) CanEdit() bool {
	return i.Role == RoleAdmin
}

// Account is a configured credential.
type Account struct {
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         Role   `mapstructure:"role"`
}

// normalizeEmail makes email comparisons case-insensitive.
func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
