// Package preferences persists the colour theme preference.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"go.uber.org/zap"
)

// Theme is the colour theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

var (
	// ErrInvalidTheme indicates a value outside light, dark and system.
	ErrInvalidTheme = errors.New("preferences: invalid theme")

	errMissingSubstrate = errors.New("preferences: substrate is required")
)

// ParseTheme validates value.
func ParseTheme(value string) (Theme, error) {
	theme := Theme(strings.ToLower(strings.TrimSpace(value)))
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
		return theme, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, value)
	}
}

// Resolve maps ThemeSystem onto light or dark using the platform preference.
func (t Theme) Resolve(systemDark bool) Theme {
	switch t {
	case ThemeLight, ThemeDark:
		return t
	default:
		if systemDark {
			return ThemeDark
		}
		return ThemeLight
	}
}

// Service reads and writes the theme preference.
type Service struct {
	substrate *kvstore.Substrate
	logger    *zap.Logger
}

// NewService constructs a Service.
func NewService(substrate *kvstore.Substrate, logger *zap.Logger) (*Service, error) {
	if substrate == nil {
		return nil, errMissingSubstrate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{substrate: substrate, logger: logger}, nil
}

// Theme returns the stored preference; missing or invalid values read as ThemeSystem.
func (s *Service) Theme(ctx context.Context) (Theme, error) {
	stored, found, err := kvstore.GetRecord[string](ctx, s.substrate, kvstore.NamespaceTheme)
	if err != nil {
		return "", err
	}
	if !found {
		return ThemeSystem, nil
	}
	theme, err := ParseTheme(stored)
	if err != nil {
		s.logger.Warn("stored theme ignored", zap.String("theme", stored))
		return ThemeSystem, nil
	}
	return theme, nil
}

// SetTheme stores theme.
func (s *Service) SetTheme(ctx context.Context, theme Theme) error {
	parsed, err := ParseTheme(string(theme))
	if err != nil {
		return err
	}
	return kvstore.SetRecord(ctx, s.substrate, kvstore.NamespaceTheme, string(parsed))
}

// Toggle stores the opposite of the currently resolved theme and returns it.
func (s *Service) Toggle(ctx context.Context, resolved Theme) (Theme, error) {
	next := ThemeDark
	if resolved == ThemeDark {
		next = ThemeLight
	}
	if err := s.SetTheme(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}
