package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// NewVoteCmd creates the vote command
func NewVoteCmd() *cobra.Command {
	var from, reason string

	cmd := &cobra.Command{
		Use:   "vote <proposal> <for|against|abstain>",
		Short: "Cast a vote on an active proposal",
		Long: `Cast a vote weighted by the voter's power at the proposal snapshot.
Each account votes once per proposal.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			id, err := resolveProposalID(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			support, err := models.ParseVoteType(args[1])
			if err != nil {
				return err
			}
			voter, err := resolveAccount(a, from)
			if err != nil {
				return err
			}

			receipt, err := a.Engine.CastVote(cmd.Context(), usecase.VoteRequest{
				ProposalID: id,
				Voter:      voter,
				Support:    support,
				Reason:     reason,
			})
			if err != nil {
				return fmt.Errorf("failed to vote: %w", err)
			}
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), receipt)
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("%s voted %s with %s",
				accountNamer(a)(voter), support, render.FormatUnits(receipt.Weight, tokenDecimals))))
			return commit(cmd, a)
		},
	}

	addFromFlag(cmd, &from, "")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the vote")
	return cmd
}
