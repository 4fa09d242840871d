package main

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
	"github.com/spf13/cobra"
)

func newCollectionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"collections"},
		Short:   "Manage collections",
	}
	cmd.AddCommand(
		newCollectionListCommand(),
		newCollectionCreateCommand(),
		newCollectionUpdateCommand(),
		newCollectionDeleteCommand(),
		newCollectionSearchCommand(),
	)
	return cmd
}

func newCollectionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
			collections, err := app.notebook.ListCollections(ctx)
			if err != nil {
				return err
			}
			return printCollections(cmd.OutOrStdout(), collections)
		}),
	}
}

func newCollectionCreateCommand() *cobra.Command {
	var input notebook.CollectionInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a collection",
		Args:  cobra.NoArgs,
		RunE: editing(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
			collection, err := app.notebook.CreateCollection(ctx, app.owner(ctx), input)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created collection %s\n", collection.ID)
			return err
		}),
	}
	cmd.Flags().StringVar(&input.Title, "title", "", "Collection title")
	cmd.Flags().StringVar(&input.Subject, "subject", "", "Subject the collection belongs to")
	cmd.Flags().StringVar(&input.Description, "description", "", "Optional description")
	return cmd
}

func newCollectionUpdateCommand() *cobra.Command {
	var title, subject, description string
	cmd := &cobra.Command{
		Use:   "update <collection-id>",
		Short: "Update a collection",
		Args:  cobra.ExactArgs(1),
		RunE: editing(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			var patch notebook.CollectionPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("subject") {
				patch.Subject = &subject
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			collection, err := app.notebook.UpdateCollection(ctx, args[0], patch)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated collection %s\n", collection.ID)
			return err
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&subject, "subject", "", "New subject")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	return cmd
}

func newCollectionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection-id>",
		Short: "Delete a collection and every entry in it",
		Args:  cobra.ExactArgs(1),
		RunE: editing(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			if err := app.notebook.DeleteCollection(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted collection %s\n", args[0])
			return err
		}),
	}
}

func newCollectionSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find collections by title, subject or description",
		Args:  cobra.ExactArgs(1),
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			collections, err := app.notebook.SearchCollections(ctx, args[0])
			if err != nil {
				return err
			}
			return printCollections(cmd.OutOrStdout(), collections)
		}),
	}
}
