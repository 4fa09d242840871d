package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/MarcoPoloResearchLab/labcraft/internal/export"
	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
	"github.com/spf13/cobra"
)

var (
	errExportFailed = errors.New("export failed, see log for details")
	errPrintFailed  = errors.New("print failed, see log for details")
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entries or whole collections as PDF",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "entry <entry-id>",
			Short: "Export a single entry",
			Args:  cobra.ExactArgs(1),
			RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
				collection, entry, err := loadEntryWithCollection(ctx, app, args[0])
				if err != nil {
					return err
				}
				if !app.exporter.ExportEntry(ctx, app.renderer, collection, entry) {
					return errExportFailed
				}
				return printExported(cmd, app, export.EntryFilename(collection, entry))
			}),
		},
		&cobra.Command{
			Use:   "collection <collection-id>",
			Short: "Export a collection with all of its entries",
			Args:  cobra.ExactArgs(1),
			RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
				collection, entries, err := loadCollectionWithEntries(ctx, app, args[0])
				if err != nil {
					return err
				}
				if !app.exporter.ExportCollection(ctx, app.renderer, collection, entries) {
					return errExportFailed
				}
				return printExported(cmd, app, export.CollectionFilename(collection))
			}),
		},
	)
	return cmd
}

func newPrintCommand() *cobra.Command {
	var wholeCollection bool
	cmd := &cobra.Command{
		Use:   "print <entry-id>",
		Short: "Print an entry, or a collection with --collection, to a PDF print file",
		Args:  cobra.ExactArgs(1),
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			var (
				region export.Region
				err    error
			)
			if wholeCollection {
				collection, entries, loadErr := loadCollectionWithEntries(ctx, app, args[0])
				if loadErr != nil {
					return loadErr
				}
				region, err = app.renderer.RenderCollection(ctx, collection, entries)
			} else {
				collection, entry, loadErr := loadEntryWithCollection(ctx, app, args[0])
				if loadErr != nil {
					return loadErr
				}
				region, err = app.renderer.RenderEntry(ctx, collection, entry)
			}
			if err != nil {
				return err
			}
			if !app.exporter.PrintElement(ctx, region) {
				return errPrintFailed
			}
			path := filepath.Join(app.config.ExportDir, export.SanitizeName(region.ElementID)+"_print.pdf")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "printed %s\n", path)
			return err
		}),
	}
	cmd.Flags().BoolVar(&wholeCollection, "collection", false, "Treat the argument as a collection id")
	return cmd
}

func loadEntryWithCollection(ctx context.Context, app *application, entryID string) (notebook.Collection, notebook.Entry, error) {
	entry, found, err := app.notebook.GetEntry(ctx, entryID)
	if err != nil {
		return notebook.Collection{}, notebook.Entry{}, err
	}
	if !found {
		return notebook.Collection{}, notebook.Entry{}, notebook.ErrEntryNotFound
	}
	collection, found, err := app.notebook.GetCollection(ctx, entry.CollectionID)
	if err != nil {
		return notebook.Collection{}, notebook.Entry{}, err
	}
	if !found {
		return notebook.Collection{}, notebook.Entry{}, notebook.ErrCollectionNotFound
	}
	return collection, entry, nil
}

func loadCollectionWithEntries(ctx context.Context, app *application, collectionID string) (notebook.Collection, []notebook.Entry, error) {
	collection, found, err := app.notebook.GetCollection(ctx, collectionID)
	if err != nil {
		return notebook.Collection{}, nil, err
	}
	if !found {
		return notebook.Collection{}, nil, notebook.ErrCollectionNotFound
	}
	entries, err := app.notebook.ListEntriesByCollection(ctx, collectionID)
	if err != nil {
		return notebook.Collection{}, nil, err
	}
	return collection, entries, nil
}

func printExported(cmd *cobra.Command, app *application, filename string) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", filepath.Join(app.config.ExportDir, filename+".pdf"))
	return err
}
