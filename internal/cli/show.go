package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// NewStateCmd creates the state command
func NewStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state [proposal]",
		Short: "Print the current state of a proposal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			id, err := resolveProposalID(cmd.Context(), a, argAt(args, 0))
			if err != nil {
				return err
			}
			state, err := a.Engine.State(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.Config.JSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"id": id, "state": state, "code": uint8(state)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatState(state))
			return nil
		},
	}
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [proposal]",
		Short: "Show a proposal with its votes, timeline and calls",
		Long: `Show detailed information about a proposal. The id may be abbreviated
to any unique prefix.

Examples:
  govlock show 0x3b1f
  govlock show 0x3b1f0c...e2 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			id, err := resolveProposalID(ctx, a, argAt(args, 0))
			if err != nil {
				return err
			}
			view, err := a.Engine.GetProposal(ctx, id)
			if err != nil {
				return err
			}

			details := &render.ProposalDetails{View: *view, Now: a.Engine.CurrentPoint()}
			details.Quorum, err = a.Engine.Quorum(ctx, view.Proposal.SnapshotPoint)
			if err != nil {
				details.Quorum = nil
			}
			if view.Proposal.IsQueued() {
				op, err := a.Timelock.GetOperation(ctx, view.Proposal.TimelockID)
				if err != nil && !errors.Is(err, domain.ErrNotFound) {
					return err
				}
				details.Operation = op
			}

			if a.Config.JSON {
				return writeJSON(cmd.OutOrStdout(), proposalJSON(details))
			}
			return render.NewProposalRenderer(cmd.OutOrStdout(), accountNamer(a), tokenDecimals).Render(details)
		},
	}
}

func proposalJSON(d *render.ProposalDetails) map[string]any {
	out := map[string]any{
		"proposal": d.View.Proposal,
		"state":    d.View.State,
		"now":      d.Now,
	}
	if d.Quorum != nil {
		out["quorum"] = d.Quorum
	}
	if d.Operation != nil {
		out["operation"] = d.Operation
		out["operationState"] = d.Operation.StateAt(d.Now)
	}
	return out
}

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var states []string
	var proposer string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List proposals",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}

			var filter domain.ProposalFilter
			for _, s := range states {
				var state models.ProposalState
				if err := state.UnmarshalText([]byte(s)); err != nil {
					return err
				}
				filter.States = append(filter.States, state)
			}
			if proposer != "" {
				if filter.Proposer, err = resolveAccount(a, proposer); err != nil {
					return err
				}
			}

			views, err := a.Engine.ListProposals(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if a.Config.JSON {
				type item struct {
					*models.Proposal
					State models.ProposalState `json:"state"`
				}
				items := make([]item, len(views))
				for i, v := range views {
					items[i] = item{Proposal: v.Proposal, State: v.State}
				}
				return writeJSON(cmd.OutOrStdout(), items)
			}
			return render.NewProposalRenderer(cmd.OutOrStdout(), accountNamer(a), tokenDecimals).RenderList(views)
		},
	}

	cmd.Flags().StringSliceVar(&states, "state", nil, "Only list proposals in these states (e.g. active,queued)")
	cmd.Flags().StringVar(&proposer, "proposer", "", "Only list proposals by this account")
	return cmd
}

