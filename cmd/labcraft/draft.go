package main

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/labcraft/internal/drafts"
	"github.com/spf13/cobra"
)

func newDraftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Save, inspect or discard the unsaved entry draft",
	}
	cmd.AddCommand(
		newDraftSaveCommand(),
		newDraftShowCommand(),
		newDraftClearCommand(),
	)
	return cmd
}

func newDraftSaveCommand() *cobra.Command {
	var fields entryFields
	var collectionID string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Store the draft of an entry in progress",
		Args:  cobra.NoArgs,
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
			code, err := fields.resolveCode()
			if err != nil {
				return err
			}
			app.drafts.SaveDraft(drafts.Content{
				CollectionID: collectionID,
				Title:        fields.title,
				Aim:          fields.aim,
				Theory:       fields.theory,
				Steps:        fields.steps,
				Code:         code,
				Language:     fields.language,
				Attachments:  fields.attachments,
				Conclusion:   fields.conclusion,
			})
			if err := app.drafts.Flush(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "draft for %q saved at %s\n", app.savedDraft.CollectionID, formatTime(app.savedDraft.SavedAt))
			return err
		}),
	}
	fields.bind(cmd.Flags())
	cmd.Flags().StringVar(&collectionID, "collection", "", "Collection the draft belongs to")
	return cmd
}

func newDraftShowCommand() *cobra.Command {
	var collectionID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the saved draft",
		Args:  cobra.NoArgs,
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
			draft, found, err := app.drafts.Restore(ctx, collectionID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !found {
				_, err := fmt.Fprintln(out, "no draft")
				return err
			}
			fmt.Fprintf(out, "collection: %s\n", draft.CollectionID)
			fmt.Fprintf(out, "saved:      %s\n", formatTime(draft.SavedAt))
			fmt.Fprintf(out, "title:      %s\n", draft.Title)
			fmt.Fprintf(out, "language:   %s\n", draft.Language)
			fmt.Fprintf(out, "aim:        %s\n", draft.Aim)
			fmt.Fprintf(out, "theory:     %s\n", draft.Theory)
			fmt.Fprintf(out, "steps:      %s\n", draft.Steps)
			fmt.Fprintf(out, "conclusion: %s\n", draft.Conclusion)
			fmt.Fprintf(out, "attachments: %d\n", len(draft.Attachments))
			_, err = fmt.Fprintf(out, "code:\n%s\n", draft.Code)
			return err
		}),
	}
	cmd.Flags().StringVar(&collectionID, "collection", "", "Only show a draft belonging to this collection")
	return cmd
}

func newDraftClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard the saved draft",
		Args:  cobra.NoArgs,
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
			if err := app.drafts.ClearDraft(ctx); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "draft cleared")
			return err
		}),
	}
}
