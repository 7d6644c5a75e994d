package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/cli/render"
)

// NewCancelCmd creates the cancel command
func NewCancelCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "cancel [proposal]",
		Short: "Cancel a proposal",
		Long: `Cancel a proposal. The proposer may cancel while the proposal is pending.
The guardian may cancel any proposal that is not final yet, including a
queued one, whose timelock operation is canceled with it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			id, err := resolveProposalID(cmd.Context(), a, argAt(args, 0))
			if err != nil {
				return err
			}
			caller, err := resolveAccount(a, from)
			if err != nil {
				return err
			}

			proposal, err := a.Engine.Cancel(cmd.Context(), id, caller)
			if err != nil {
				return fmt.Errorf("failed to cancel: %w", err)
			}
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), proposal)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Proposal %s canceled", proposal.ID.Hex())))
			return commit(cmd, a)
		},
	}

	addFromFlag(cmd, &from, "")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
