package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Alternate login flows",
	}

	cmd.AddCommand(newLoginBrowserCmd(app))

	return cmd
}

// The browser flow authenticates through the hosted signer service instead
// of the local agent, but drives the very same session lifecycle.
func newLoginBrowserCmd(app *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "browser",
		Short: "Log in via the signer service's browser flow",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return errors.New("--account is required")
			}

			sessions := app.signerSessions(cmd.OutOrStdout())
			if err := sessions.Connect(cmd.Context(), name); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Connected as @%s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "account", "", "Account name to log in as")

	return cmd
}
