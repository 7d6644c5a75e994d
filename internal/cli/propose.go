package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// NewProposeCmd creates the propose command
func NewProposeCmd() *cobra.Command {
	var batch batchFlags
	var from string

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Submit a proposal",
		Long: `Submit a batch of calls for a vote. The snapshot is taken at the current
point and voting opens after the voting delay.

Examples:
  govlock propose -f grant.yaml --from alice
  govlock propose --target treasury --sig "transfer(address,uint256)" \
    --arg bob --arg 1_000_000e18 -d "Proposal #1: Give grant to signer 2" --from alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			b, description, err := batch.load(a)
			if err != nil {
				return err
			}
			proposer, err := resolveAccount(a, from)
			if err != nil {
				return err
			}

			proposal, err := a.Engine.Propose(cmd.Context(), usecase.ProposeRequest{
				Batch:       b,
				Description: description,
				Proposer:    proposer,
			})
			if err != nil {
				return fmt.Errorf("failed to propose: %w", err)
			}
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), proposal)
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Proposal %s created", proposal.ID.Hex())))
			fmt.Fprintf(cmd.OutOrStdout(), "   snapshot %d, voting %d..%d\n",
				proposal.SnapshotPoint, proposal.VoteStartPoint, proposal.DeadlinePoint)
			return commit(cmd, a)
		},
	}

	batch.register(cmd)
	addFromFlag(cmd, &from, "")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

// NewHashCmd creates the hash command
func NewHashCmd() *cobra.Command {
	var batch batchFlags

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute the proposal and timelock operation ids of a batch",
		Long: `Compute ids without submitting anything. The proposal id depends only on
the calls and the description, so it can be shared before proposing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			b, description, err := batch.load(a)
			if err != nil {
				return err
			}
			proposalID, err := a.Engine.HashProposal(b, description)
			if err != nil {
				return err
			}
			operationID, err := a.Engine.TimelockOperationID(b, description)
			if err != nil {
				return err
			}

			if a.Config.JSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"proposalId":  proposalID,
					"operationId": operationID,
					"batch":       b,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Proposal:  %s\n", proposalID.Hex())
			fmt.Fprintf(cmd.OutOrStdout(), "Operation: %s\n", operationID.Hex())
			return nil
		},
	}

	batch.register(cmd)
	return cmd
}
