package cmd

import (
	"github.com/spf13/cobra"
)

func newRefreshCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reconnect the saved session and refresh account data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sessions.ReconnectLast(cmd.Context()); err != nil {
				return err
			}

			account, err := app.sessions.Refresh(cmd.Context())
			if err != nil {
				return err
			}

			writeAccount(cmd, app, account)
			return nil
		},
	}
}
