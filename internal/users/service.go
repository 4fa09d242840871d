// Package users checks static credentials and keeps the signed-in identity
// in the session namespace.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates the email and password did not match an account.
	ErrInvalidCredentials = errors.New("users: invalid email or password")
	// ErrInvalidAccount indicates a configured account is unusable.
	ErrInvalidAccount = errors.New("users: invalid account")

	errMissingSubstrate = errors.New("users: substrate is required")
)

// ServiceConfig describes the dependencies required for sign-in.
type ServiceConfig struct {
	Substrate *kvstore.Substrate
	Accounts  []Account
	Logger    *zap.Logger
}

// Service signs users in against the configured accounts.
type Service struct {
	substrate *kvstore.Substrate
	accounts  map[string]Account
	logger    *zap.Logger
}

// NewService validates the configured accounts and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Substrate == nil {
		return nil, errMissingSubstrate
	}
	accounts := make(map[string]Account, len(cfg.Accounts))
	for index, account := range cfg.Accounts {
		email := normalizeEmail(account.Email)
		if email == "" || account.PasswordHash == "" || !account.Role.Valid() {
			return nil, fmt.Errorf("%w: entry %d", ErrInvalidAccount, index)
		}
		if _, err := bcrypt.Cost([]byte(account.PasswordHash)); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidAccount, index, err)
		}
		account.Email = email
		accounts[email] = account
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{substrate: cfg.Substrate, accounts: accounts, logger: logger}, nil
}

// HashPassword returns the bcrypt hash to configure for an account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks the credentials and persists the resulting identity.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, error) {
	account, ok := s.accounts[normalizeEmail(email)]
	if !ok {
		s.logger.Warn("login rejected", zap.String("email", normalizeEmail(email)), zap.String("reason", "unknown_account"))
		return Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("login rejected", zap.String("email", account.Email), zap.String("reason", "password_mismatch"))
		return Identity{}, ErrInvalidCredentials
	}

	identity := Identity{Email: account.Email, Role: account.Role}
	if err := kvstore.SetRecord(ctx, s.substrate, kvstore.NamespaceSession, identity); err != nil {
		return Identity{}, err
	}
	s.logger.Info("login accepted", zap.String("email", identity.Email), zap.String("role", string(identity.Role)))
	return identity, nil
}

// Logout forgets the signed-in identity.
func (s *Service) Logout(ctx context.Context) error {
	return kvstore.Remove(ctx, s.substrate, kvstore.NamespaceSession)
}

// Current returns the signed-in identity. A corrupt or unrecognised session
// reads as signed out.
func (s *Service) Current(ctx context.Context) (Identity, bool, error) {
	identity, found, err := kvstore.GetRecord[Identity](ctx, s.substrate, kvstore.NamespaceSession)
	if err != nil || !found {
		return Identity{}, false, err
	}
	if normalizeEmail(identity.Email) == "" || !identity.Role.Valid() {
		return Identity{}, false, nil
	}
	return identity, true, nil
}

// CanEdit reports whether the signed-in identity may mutate records.
func (s *Service) CanEdit(ctx context.Context) (bool, error) {
	identity, found, err := s.Current(ctx)
	if err != nil || !found {
		return false, err
	}
	return identity.CanEdit(), nil
}
