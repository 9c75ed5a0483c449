package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgist/hivewallet/internal/domain"
)

func newTransferCmd(app *app) *cobra.Command {
	var (
		to     string
		amount string
		symbol string
		memo   string
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Sign and broadcast a transfer (active authority)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to == "" {
				return errors.New("--to is required")
			}
			if amount == "" {
				return errors.New("--amount is required")
			}

			if err := app.sessions.ReconnectLast(cmd.Context()); err != nil {
				return err
			}

			state := app.sessions.State()
			if state.Identity == nil {
				return domain.ErrNotConnected
			}

			op := domain.TransferOperation{
				From:   state.Identity.Name,
				To:     to,
				Amount: domain.Asset{Amount: amount, Symbol: symbol},
				Memo:   memo,
			}

			receipt, err := app.broadcaster.SignAndBroadcast(cmd.Context(), []domain.Operation{op}, domain.AuthorityActive)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Broadcast transaction %s\n", receipt.TransactionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient account name")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to transfer, e.g. 1.000")
	cmd.Flags().StringVar(&symbol, "symbol", "HIVE", "Currency symbol")
	cmd.Flags().StringVar(&memo, "memo", "", "Optional public memo")

	return cmd
}

func newVoteCmd(app *app) *cobra.Command {
	var (
		author   string
		permlink string
		weight   int16
	)

	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Sign and broadcast a vote (posting authority)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if author == "" || permlink == "" {
				return errors.New("--author and --permlink are required")
			}

			if err := app.sessions.ReconnectLast(cmd.Context()); err != nil {
				return err
			}

			state := app.sessions.State()
			if state.Identity == nil {
				return domain.ErrNotConnected
			}

			op := domain.VoteOperation{
				Voter:    state.Identity.Name,
				Author:   author,
				Permlink: permlink,
				Weight:   weight,
			}

			receipt, err := app.broadcaster.SignAndBroadcast(cmd.Context(), []domain.Operation{op}, domain.AuthorityPosting)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Broadcast transaction %s\n", receipt.TransactionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "Author of the post to vote on")
	cmd.Flags().StringVar(&permlink, "permlink", "", "Permlink of the post to vote on")
	cmd.Flags().Int16Var(&weight, "weight", 10000, "Vote weight in basis points (-10000..10000)")

	return cmd
}
