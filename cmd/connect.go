package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConnectCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect [account]",
		Short: "Establish a wallet session through the key-custody agent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}

			if err := app.sessions.Connect(cmd.Context(), name); err != nil {
				return err
			}

			state := app.sessions.State()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Connected as @%s\n", state.Identity.Name)
			return nil
		},
	}
}

func newDisconnectCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "End the wallet session and forget the saved identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sessions.Disconnect(cmd.Context()); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Disconnected")
			return nil
		},
	}
}
