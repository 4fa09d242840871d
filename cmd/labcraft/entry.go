package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MarcoPoloResearchLab/labcraft/internal/assets"
	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// entryFields are the content flags shared by entry and draft commands.
type entryFields struct {
	title       string
	aim         string
	theory      string
	steps       string
	code        string
	codeFile    string
	language    string
	conclusion  string
	attachments []string
	images      []string
}

func (f *entryFields) bind(flags *pflag.FlagSet) {
	flags.StringVar(&f.title, "title", "", "Entry title")
	flags.StringVar(&f.aim, "aim", "", "Aim of the entry")
	flags.StringVar(&f.theory, "theory", "", "Theory section")
	flags.StringVar(&f.steps, "steps", "", "Procedure steps")
	flags.StringVar(&f.code, "code", "", "Program source")
	flags.StringVar(&f.codeFile, "code-file", "", "Read the program source from a file")
	flags.StringVar(&f.language, "language", "", "Code language tag")
	flags.StringVar(&f.conclusion, "conclusion", "", "Conclusion section")
	flags.StringSliceVar(&f.attachments, "attach", nil, "Existing asset ids to attach")
	flags.StringSliceVar(&f.images, "image", nil, "Image files to upload and attach")
}

// resolveCode prefers --code-file over --code.
func (f *entryFields) resolveCode() (string, error) {
	if f.codeFile == "" {
		return f.code, nil
	}
	data, err := os.ReadFile(f.codeFile)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// resolveAttachments uploads --image files for collectionID and appends the
// stored asset ids to --attach.
func (f *entryFields) resolveAttachments(ctx context.Context, cmd *cobra.Command, app *application, collectionID string) ([]string, error) {
	attachments := append([]string{}, f.attachments...)
	if len(f.images) == 0 {
		return attachments, nil
	}
	files, err := readImageFiles(f.images)
	if err != nil {
		return nil, err
	}
	uploaded := app.assets.UploadMany(ctx, collectionID, files)
	if len(uploaded) < len(files) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d images could not be stored\n", len(files)-len(uploaded), len(files))
	}
	for _, asset := range uploaded {
		attachments = append(attachments, asset.ID)
	}
	return attachments, nil
}

func readImageFiles(paths []string) ([]assets.File, error) {
	files := make([]assets.File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, assets.File{Name: filepath.Base(path), Data: data})
	}
	return files, nil
}

func newEntryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entry",
		Aliases: []string{"entries"},
		Short:   "Manage the numbered entries of a collection",
	}
	cmd.AddCommand(
		newEntryListCommand(),
		newEntryAddCommand(),
		newEntryUpdateCommand(),
		newEntryDeleteCommand(),
		newEntryReorderCommand(),
		newEntrySearchCommand(),
	)
	return cmd
}

func newEntryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [collection-id]",
		Short: "List entries, optionally restricted to one collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			var (
				entries []notebook.Entry
				err     error
			)
			if len(args) == 0 {
				entries, err = app.notebook.ListEntries(ctx)
			} else {
				entries, err = app.notebook.ListEntriesByCollection(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		}),
	}
}

func newEntryAddCommand() *cobra.Command {
	var fields entryFields
	var keepDraft bool
	cmd := &cobra.Command{
		Use:   "add <collection-id>",
		Short: "Add an entry with the next ordinal",
		Args:  cobra.ExactArgs(1),
		RunE: editing(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			code, err := fields.resolveCode()
			if err != nil {
				return err
			}
			attachments, err := fields.resolveAttachments(ctx, cmd, app, args[0])
			if err != nil {
				return err
			}
			entry, err := app.notebook.CreateEntry(ctx, app.owner(ctx), notebook.EntryInput{
				CollectionID: args[0],
				Title:        fields.title,
				Aim:          fields.aim,
				Theory:       fields.theory,
				Steps:        fields.steps,
				Code:         code,
				Language:     fields.language,
				Attachments:  attachments,
				Conclusion:   fields.conclusion,
			})
			if err != nil {
				return err
			}
			if !keepDraft {
				if err := app.drafts.ClearDraft(ctx); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created entry %s (#%d)\n", entry.ID, entry.Ordinal)
			return err
		}),
	}
	fields.bind(cmd.Flags())
	cmd.Flags().BoolVar(&keepDraft, "keep-draft", false, "Keep the saved draft after the entry is created")
	return cmd
}

func newEntryUpdateCommand() *cobra.Command {
	var fields entryFields
	cmd := &cobra.Command{
		Use:   "update <entry-id>",
		Short: "Update an entry",
		Args:  cobra.ExactArgs(1),
		RunE: editing(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			existing, found, err := app.notebook.GetEntry(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return notebook.ErrEntryNotFound
			}

			flags := cmd.Flags()
			var patch notebook.EntryPatch
			if flags.Changed("title") {
				patch.Title = &fields.title
			}
			if flags.Changed("aim") {
				patch.Aim = &fields.aim
			}
			if flags.Changed("theory") {
				patch.Theory = &fields.theory
			}
			if flags.Changed("steps") {
				patch.Steps = &fields.steps
			}
			if flags.Changed("code") || flags.Changed("code-file") {
				code, err := fields.resolveCode()
				if err != nil {
					return err
				}
				patch.Code = &code
			}
			if flags.Changed("language") {
				patch.Language = &fields.language
			}
			if flags.Changed("conclusion") {
				patch.Conclusion = &fields.conclusion
			}
			if flags.Changed("attach") || flags.Changed("image") {
				attachments, err := fields.resolveAttachments(ctx, cmd, app, existing.CollectionID)
				if err != nil {
					return err
				}
				patch.Attachments = &attachments
			}

			entry, err := app.notebook.UpdateEntry(ctx, existing.ID, patch)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated entry %s (#%d)\n", entry.ID, entry.Ordinal)
			return err
		}),
	}
	fields.bind(cmd.Flags())
	return cmd
}

func newEntryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: editing(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			if err := app.notebook.DeleteEntry(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted entry %s\n", args[0])
			return err
		}),
	}
}

func newEntryReorderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <collection-id> <entry-id>...",
		Short: "Renumber entries in the given order",
		Args:  cobra.MinimumNArgs(2),
		RunE: editing(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			entries, err := app.notebook.ReorderEntries(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		}),
	}
}

func newEntrySearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <collection-id> <query>",
		Short: "Find entries of a collection by title, aim or theory",
		Args:  cobra.ExactArgs(2),
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			entries, err := app.notebook.SearchEntries(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		}),
	}
}
