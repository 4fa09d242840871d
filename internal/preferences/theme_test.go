package preferences

import (
	"context"
	"errors"
	"testing"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	substrate, err := kvstore.NewSubstrate(store, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected substrate error: %v", err)
	}
	service, err := NewService(substrate, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return service, store
}

func TestThemeDefaultsToSystem(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	for _, raw := range []string{"", `"sepia"`, "dark"} {
		if raw != "" {
			if err := store.Save(ctx, kvstore.NamespaceTheme.String(), raw); err != nil {
				t.Fatalf("seed failed: %v", err)
			}
		}
		theme, err := service.Theme(ctx)
		if err != nil {
			t.Fatalf("theme failed: %v", err)
		}
		if theme != ThemeSystem {
			t.Fatalf("stored %q: expected system, got %q", raw, theme)
		}
	}
}

func TestSetThemePersists(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if err := service.SetTheme(ctx, ThemeDark); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	theme, err := service.Theme(ctx)
	if err != nil || theme != ThemeDark {
		t.Fatalf("expected dark, got %q %v", theme, err)
	}

	if err := service.SetTheme(ctx, Theme("sepia")); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
	if theme, _ := service.Theme(ctx); theme != ThemeDark {
		t.Fatalf("rejected value must not overwrite, got %q", theme)
	}
}

func TestToggleFlipsResolvedTheme(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	next, err := service.Toggle(ctx, ThemeSystem.Resolve(false))
	if err != nil || next != ThemeDark {
		t.Fatalf("expected dark, got %q %v", next, err)
	}
	next, err = service.Toggle(ctx, next)
	if err != nil || next != ThemeLight {
		t.Fatalf("expected light, got %q %v", next, err)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		theme      Theme
		systemDark bool
		want       Theme
	}{
		{theme: ThemeLight, systemDark: true, want: ThemeLight},
		{theme: ThemeDark, systemDark: false, want: ThemeDark},
		{theme: ThemeSystem, systemDark: true, want: ThemeDark},
		{theme: ThemeSystem, systemDark: false, want: ThemeLight},
	}
	for _, tt := range tests {
		if got := tt.theme.Resolve(tt.systemDark); got != tt.want {
			t.Fatalf("%q.Resolve(%v) = %q, want %q", tt.theme, tt.systemDark, got, tt.want)
		}
	}
}
