package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/MarcoPoloResearchLab/labcraft/internal/users"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is replaced in tests.
var readPassword = term.ReadPassword

func promptPassword(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return "", err
	}
	password, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func newLoginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a configured account",
		Args:  cobra.NoArgs,
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
			if !cmd.Flags().Changed("password") {
				prompted, err := promptPassword(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				password = prompted
			}
			identity, err := app.users.Login(ctx, email, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", identity.Email, identity.Role)
			return err
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password; prompted when omitted")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
			if err := app.users.Logout(ctx); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return err
		}),
	}
}

func newWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: withApplication(func(ctx context.Context, cmd *cobra.Command, app *application, _ []string) error {
			identity, found, err := app.users.Current(ctx)
			if err != nil {
				return err
			}
			if !found {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "not signed in; records are owned by %s\n", app.config.DefaultOwner)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", identity.Email, identity.Role)
			return err
		}),
	}
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash to configure for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := promptPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			hash, err := users.HashPassword(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
