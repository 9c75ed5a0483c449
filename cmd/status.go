package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgist/hivewallet/internal/domain"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved identity and its ledger account data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, err := app.store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load session pointer: %w", err)
			}
			if name == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No saved session. Run `hw connect <account>` first.")
				return nil
			}

			account, err := app.resolver.Resolve(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("resolve account %q: %w", name, err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(account)
			}

			writeAccount(cmd, app, account)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the account record as JSON")

	return cmd
}

func writeAccount(cmd *cobra.Command, app *app, account domain.Account) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "@%s\n", account.Name)
	_, _ = fmt.Fprintf(out, "  balance:        %s\n", account.Balance)
	_, _ = fmt.Fprintf(out, "  stable balance: %s\n", account.StableBalance)
	_, _ = fmt.Fprintf(out, "  staked:         %s\n", account.Staked.Vests)
	_, _ = fmt.Fprintf(out, "  reputation:     %d\n", account.Reputation)
	if !account.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(out, "  created:        %s\n", account.CreatedAt.Format("2006-01-02"))
	}
}
