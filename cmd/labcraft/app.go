package main

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/assets"
	"github.com/MarcoPoloResearchLab/labcraft/internal/config"
	"github.com/MarcoPoloResearchLab/labcraft/internal/database"
	"github.com/MarcoPoloResearchLab/labcraft/internal/drafts"
	"github.com/MarcoPoloResearchLab/labcraft/internal/export"
	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"github.com/MarcoPoloResearchLab/labcraft/internal/logging"
	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
	"github.com/MarcoPoloResearchLab/labcraft/internal/preferences"
	"github.com/MarcoPoloResearchLab/labcraft/internal/render"
	"github.com/MarcoPoloResearchLab/labcraft/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var errEditorRequired = errors.New("sign in with an admin account to make changes")

type application struct {
	config      config.AppConfig
	logger      *zap.Logger
	closers     []func() error
	notebook    *notebook.Service
	assets      *assets.Service
	drafts      *drafts.Autosaver
	savedDraft  drafts.Draft
	users       *users.Service
	preferences *preferences.Service
	renderer    *render.Renderer
	exporter    *export.Exporter
}

func openApplication() (*application, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return nil, err
	}

	app := &application{config: appConfig, logger: logger}
	app.closers = append(app.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return nil, app.abort(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, app.abort(err)
	}
	app.closers = append(app.closers, sqlDB.Close)

	store, err := kvstore.NewSQLiteStore(db, time.Now)
	if err != nil {
		return nil, app.abort(err)
	}
	substrate, err := kvstore.NewSubstrate(store, logger)
	if err != nil {
		return nil, app.abort(err)
	}

	if app.users, err = users.NewService(users.ServiceConfig{
		Substrate: substrate,
		Accounts:  appConfig.Accounts,
		Logger:    logger,
	}); err != nil {
		return nil, app.abort(err)
	}

	if app.notebook, err = notebook.NewService(notebook.ServiceConfig{
		Substrate:    substrate,
		Clock:        time.Now,
		IDProvider:   notebook.NewUUIDProvider(),
		Logger:       logger,
		DefaultOwner: appConfig.DefaultOwner,
	}); err != nil {
		return nil, app.abort(err)
	}

	if app.assets, err = assets.NewService(assets.ServiceConfig{
		Substrate: substrate,
		Clock:     time.Now,
		Logger:    logger,
		MaxWidth:  appConfig.AssetMaxWidth,
		Quality:   appConfig.AssetQuality,
	}); err != nil {
		return nil, app.abort(err)
	}

	if app.drafts, err = drafts.NewAutosaver(drafts.Config{
		Substrate: substrate,
		Delay:     appConfig.DraftDebounce,
		Logger:    logger,
		OnSaved: func(draft drafts.Draft) {
			app.savedDraft = draft
		},
	}); err != nil {
		return nil, app.abort(err)
	}
	app.closers = append(app.closers, func() error {
		app.drafts.Close()
		return nil
	})

	if app.preferences, err = preferences.NewService(substrate, logger); err != nil {
		return nil, app.abort(err)
	}

	if app.renderer, err = render.NewRenderer(render.Config{
		Assets: app.assets,
		Logger: logger,
	}); err != nil {
		return nil, app.abort(err)
	}

	chrome := export.ChromeConfig{
		ExecPath:    appConfig.ChromePath,
		Timeout:     appConfig.ChromeTimeout,
		SettleDelay: appConfig.ExportSettleDelay,
		Logger:      logger,
	}
	app.exporter = export.NewExporter(export.Config{
		Rasterizer:  export.NewChromeRasterizer(chrome),
		Writer:      export.NewPDFWriter(),
		Printer:     export.NewChromePrinter(chrome),
		Page:        appConfig.PageGeometry(),
		Fit:         appConfig.ExportFit,
		Scale:       appConfig.ExportScale,
		SettleDelay: appConfig.ExportSettleDelay,
		OutputDir:   appConfig.ExportDir,
		Logger:      logger,
	})

	return app, nil
}

// abort releases whatever was opened before err and returns err.
func (a *application) abort(err error) error {
	_ = a.Close()
	return err
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() error {
	var errs []error
	for index := len(a.closers) - 1; index >= 0; index-- {
		if err := a.closers[index](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// owner is the signed-in email, or the configured default owner.
func (a *application) owner(ctx context.Context) string {
	identity, found, err := a.users.Current(ctx)
	if err != nil || !found {
		return a.config.DefaultOwner
	}
	return identity.Email
}

// requireEditor allows mutations when no accounts are configured or the
// signed-in identity is an admin.
func (a *application) requireEditor(ctx context.Context) error {
	if len(a.config.Accounts) == 0 {
		return nil
	}
	canEdit, err := a.users.CanEdit(ctx)
	if err != nil {
		return err
	}
	if !canEdit {
		return errEditorRequired
	}
	return nil
}

// withApplication opens the application around run.
func withApplication(run func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := openApplication()
		if err != nil {
			return err
		}
		runErr := run(cmd.Context(), cmd, app, args)
		closeErr := app.Close()
		if runErr != nil {
			return runErr
		}
		return closeErr
	}
}

// editing is withApplication for commands that mutate records.
func editing(run func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error) func(*cobra.Command, []string) error {
	return withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
		if err := app.requireEditor(ctx); err != nil {
			return err
		}
		return run(ctx, cmd, app, args)
	})
}
