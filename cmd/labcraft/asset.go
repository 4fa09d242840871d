package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAssetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "asset",
		Aliases: []string{"assets"},
		Short:   "Manage stored images",
	}
	cmd.AddCommand(
		newAssetUploadCommand(),
		newAssetListCommand(),
		newAssetDeleteCommand(),
	)
	return cmd
}

func newAssetUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <collection-id> <file>...",
		Short: "Compress and store images for a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: editing(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			files, err := readImageFiles(args[1:])
			if err != nil {
				return err
			}
			uploaded := app.assets.UploadMany(ctx, args[0], files)
			out := cmd.OutOrStdout()
			for _, asset := range uploaded {
				fmt.Fprintln(out, asset.ID)
			}
			if len(uploaded) < len(files) {
				return fmt.Errorf("%d of %d files were not stored", len(files)-len(uploaded), len(files))
			}
			return nil
		}),
	}
}

func newAssetListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection-id>",
		Short: "List the images stored for a collection",
		Args:  cobra.ExactArgs(1),
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			stored, err := app.assets.ListByCollection(ctx, args[0])
			if err != nil {
				return err
			}
			return printAssets(cmd.OutOrStdout(), stored)
		}),
	}
}

func newAssetDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <asset-id>",
		Short: "Delete a stored image",
		Args:  cobra.ExactArgs(1),
		RunE: editing(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
			if !app.assets.Delete(ctx, args[0]) {
				return fmt.Errorf("asset %s could not be deleted", args[0])
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted asset %s\n", args[0])
			return err
		}),
	}
}
