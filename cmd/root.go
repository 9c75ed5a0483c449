package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	app, err := wireApp()
	if err != nil {
		rootCmd := newBareRootCmd()
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	return newRootCmdWith(app)
}

func newBareRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "hw",
		Short:         "hw: wallet sessions and transaction signing for Hive-style ledgers",
		Long:          "hw manages a wallet session against a local key-custody signer, verifies identities on the ledger, and signs and broadcasts operations. Keys never leave the signer.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
}

func newRootCmdWith(app *app) *cobra.Command {
	rootCmd := newBareRootCmd()
	rootCmd.AddCommand(
		newVersionCmd(),
		newConnectCmd(app),
		newDisconnectCmd(app),
		newStatusCmd(app),
		newRefreshCmd(app),
		newTransferCmd(app),
		newVoteCmd(app),
		newLoginCmd(app),
	)

	return rootCmd
}
