package main

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/labcraft/internal/preferences"
	"github.com/spf13/cobra"
)

func newThemeCommand() *cobra.Command {
	var systemDark bool
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the colour theme preference",
	}
	cmd.PersistentFlags().BoolVar(&systemDark, "system-dark", false, "Whether the platform prefers a dark theme")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the stored and resolved theme",
			Args:  cobra.NoArgs,
			RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
				theme, err := app.preferences.Theme(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", theme, theme.Resolve(systemDark))
				return err
			}),
		},
		&cobra.Command{
			Use:       "set <light|dark|system>",
			Short:     "Store the theme preference",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{string(preferences.ThemeLight), string(preferences.ThemeDark), string(preferences.ThemeSystem)},
			RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, args []string) error {
				theme, err := preferences.ParseTheme(args[0])
				if err != nil {
					return err
				}
				if err := app.preferences.SetTheme(ctx, theme); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "theme set to %s\n", theme)
				return err
			}),
		},
		&cobra.Command{
			Use:   "toggle",
			Short: "Switch between light and dark",
			Args:  cobra.NoArgs,
			RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
				current, err := app.preferences.Theme(ctx)
				if err != nil {
					return err
				}
				next, err := app.preferences.Toggle(ctx, current.Resolve(systemDark))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "theme set to %s\n", next)
				return err
			}),
		},
	)
	return cmd
}
