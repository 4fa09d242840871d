package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/export"
	"github.com/MarcoPoloResearchLab/labcraft/internal/users"
	"github.com/spf13/viper"
)

const (
	envPrefix                = "LABCRAFT"
	defaultDatabasePath      = "labcraft.db"
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"
	defaultDraftDebounce     = time.Second
	defaultAssetMaxWidth     = 1200
	defaultAssetQuality      = 0.8
	defaultExportDir         = "."
	defaultExportScale       = 2.0
	defaultExportSettleDelay = 500 * time.Millisecond
	defaultExportMarginMM    = 10.0
	defaultExportFit         = "page"
	defaultChromeTimeout     = 30 * time.Second
	defaultSessionOwner      = "current_user"
)

// AppConfig captures runtime configuration for the labcraft CLI.
type AppConfig struct {
	DatabasePath      string
	LogLevel          string
	LogFormat         string
	DraftDebounce     time.Duration
	AssetMaxWidth     int
	AssetQuality      float64
	ExportDir         string
	ExportScale       float64
	ExportSettleDelay time.Duration
	ExportMarginMM    float64
	ExportFit         export.Fit
	ChromePath        string
	ChromeTimeout     time.Duration
	DefaultOwner      string
	Accounts          []users.Account
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("draft.debounce", defaultDraftDebounce)
	configViper.SetDefault("assets.max_width", defaultAssetMaxWidth)
	configViper.SetDefault("assets.quality", defaultAssetQuality)
	configViper.SetDefault("export.dir", defaultExportDir)
	configViper.SetDefault("export.scale", defaultExportScale)
	configViper.SetDefault("export.settle_delay", defaultExportSettleDelay)
	configViper.SetDefault("export.margin_mm", defaultExportMarginMM)
	configViper.SetDefault("export.fit", defaultExportFit)
	configViper.SetDefault("chrome.path", "")
	configViper.SetDefault("chrome.timeout", defaultChromeTimeout)
	configViper.SetDefault("session.default_owner", defaultSessionOwner)
	configViper.SetDefault("auth.accounts", []map[string]any{})
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	fit, err := export.ParseFit(strings.TrimSpace(configViper.GetString("export.fit")))
	if err != nil {
		return AppConfig{}, fmt.Errorf("export.fit: %w", err)
	}

	var accounts []users.Account
	if err := configViper.UnmarshalKey("auth.accounts", &accounts); err != nil {
		return AppConfig{}, fmt.Errorf("auth.accounts: %w", err)
	}

	cfg := AppConfig{
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		LogFormat:         configViper.GetString("log.format"),
		DraftDebounce:     configViper.GetDuration("draft.debounce"),
		AssetMaxWidth:     configViper.GetInt("assets.max_width"),
		AssetQuality:      configViper.GetFloat64("assets.quality"),
		ExportDir:         configViper.GetString("export.dir"),
		ExportScale:       configViper.GetFloat64("export.scale"),
		ExportSettleDelay: configViper.GetDuration("export.settle_delay"),
		ExportMarginMM:    configViper.GetFloat64("export.margin_mm"),
		ExportFit:         fit,
		ChromePath:        configViper.GetString("chrome.path"),
		ChromeTimeout:     configViper.GetDuration("chrome.timeout"),
		DefaultOwner:      strings.TrimSpace(configViper.GetString("session.default_owner")),
		Accounts:          accounts,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// PageGeometry returns the A4 page with the configured margin.
func (c AppConfig) PageGeometry() export.PageGeometry {
	page := export.A4()
	page.MarginTop = c.ExportMarginMM
	return page
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.DraftDebounce <= 0 {
		return fmt.Errorf("draft.debounce must be positive")
	}
	if c.AssetMaxWidth <= 0 {
		return fmt.Errorf("assets.max_width must be positive")
	}
	if c.AssetQuality <= 0 || c.AssetQuality > 1 {
		return fmt.Errorf("assets.quality must be within (0, 1]")
	}
	if strings.TrimSpace(c.ExportDir) == "" {
		return fmt.Errorf("export.dir is required")
	}
	if c.ExportScale <= 0 {
		return fmt.Errorf("export.scale must be positive")
	}
	if c.ExportSettleDelay < 0 {
		return fmt.Errorf("export.settle_delay must not be negative")
	}
	if c.ExportMarginMM < 0 || c.PageGeometry().ContentHeight() <= 0 {
		return fmt.Errorf("export.margin_mm leaves no room for content")
	}
	if c.ChromeTimeout <= 0 {
		return fmt.Errorf("chrome.timeout must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console")
	}
	return nil
}
