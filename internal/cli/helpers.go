package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/adapters/devnet"
	"github.com/trebuchet-org/govlock/internal/adapters/interactive"
	"github.com/trebuchet-org/govlock/internal/app"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// tokenDecimals is used to format every token amount
const tokenDecimals = 18

// resolveAccount accepts the names known to the config plus "token" for the
// devnet governance token
func resolveAccount(a *app.App, s string) (common.Address, error) {
	if strings.EqualFold(strings.TrimSpace(s), "token") {
		return devnet.VotesAddress, nil
	}
	return a.Config.ResolveAccount(s)
}

// accountNamer names addresses for renderers
func accountNamer(a *app.App) render.AccountNamer {
	return func(addr common.Address) string {
		if addr == devnet.VotesAddress {
			return "token"
		}
		return a.Config.AccountName(addr)
	}
}

// addFromFlag registers the --from flag every state changing command takes
func addFromFlag(cmd *cobra.Command, from *string, def string) {
	cmd.Flags().StringVar(from, "from", def, "Account sending the call (name or address)")
}

// argAt returns args[i], or "" when the argument was left out
func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// resolveProposalID accepts a full proposal id or a unique prefix of one. An
// empty or ambiguous reference is offered as a choice on a terminal.
func resolveProposalID(ctx context.Context, a *app.App, ref string) (common.Hash, error) {
	if isFullHash(ref) {
		return common.HexToHash(ref), nil
	}
	views, err := a.Engine.ListProposals(ctx, domain.ProposalFilter{})
	if err != nil {
		return common.Hash{}, err
	}
	labels := make(map[common.Hash]string, len(views))
	for _, v := range views {
		labels[v.Proposal.ID] = fmt.Sprintf("%s  %s (%s)", render.ShortHash(v.Proposal.ID),
			render.FirstLine(v.Proposal.Description, 48), v.State)
	}
	ids := lo.Map(views, func(v usecase.ProposalView, _ int) common.Hash { return v.Proposal.ID })
	return pickID(a, ids, labels, ref, "proposal")
}

// resolveOperationID accepts a full operation id or a unique prefix of one
func resolveOperationID(ctx context.Context, a *app.App, ref string) (common.Hash, error) {
	if isFullHash(ref) {
		return common.HexToHash(ref), nil
	}
	ops, err := a.Timelock.ListOperations(ctx, domain.OperationFilter{})
	if err != nil {
		return common.Hash{}, err
	}
	now := a.Engine.CurrentPoint()
	labels := make(map[common.Hash]string, len(ops))
	for _, op := range ops {
		labels[op.ID] = fmt.Sprintf("%s  %d call(s), ready at %d (%s)", render.ShortHash(op.ID),
			op.Batch.Len(), op.ReadyPoint, op.StateAt(now))
	}
	ids := lo.Map(ops, func(op *models.TimelockOperation, _ int) common.Hash { return op.ID })
	return pickID(a, ids, labels, ref, "operation")
}

func isFullHash(ref string) bool {
	return len(ref) == 66 && strings.HasPrefix(strings.ToLower(ref), "0x")
}

func pickID(a *app.App, ids []common.Hash, labels map[common.Hash]string, ref, kind string) (common.Hash, error) {
	matches := filterPrefix(ids, ref)
	switch len(matches) {
	case 0:
		if ref == "" {
			return common.Hash{}, fmt.Errorf("%w: there is no %s yet", domain.ErrNotFound, kind)
		}
		return common.Hash{}, fmt.Errorf("%w: no %s matches %q", domain.ErrNotFound, kind, ref)
	case 1:
		if ref != "" {
			return matches[0], nil
		}
	}

	selector := interactive.NewSelector(!a.Config.JSON && !a.Config.NonInteractive)
	if !selector.Enabled() {
		if ref == "" {
			return common.Hash{}, fmt.Errorf("a %s id is required", kind)
		}
		return common.Hash{}, fmt.Errorf("%s id %q is ambiguous: %d matches", kind, ref, len(matches))
	}
	options := lo.Map(matches, func(id common.Hash, _ int) string { return labels[id] })
	i, err := selector.Select(fmt.Sprintf("Select a %s", kind), options)
	if err != nil {
		return common.Hash{}, err
	}
	return matches[i], nil
}

// filterPrefix returns the ids starting with ref; an empty ref matches all
func filterPrefix(ids []common.Hash, ref string) []common.Hash {
	prefix := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ref)), "0x")
	return lo.Filter(ids, func(id common.Hash, _ int) bool {
		return strings.HasPrefix(id.Hex()[2:], prefix)
	})
}

// commit saves the devnet and prints the events the command emitted
func commit(cmd *cobra.Command, a *app.App) error {
	if err := a.Commit(cmd.Context()); err != nil {
		return err
	}
	if a.Config.JSON {
		return nil
	}
	return render.NewEventsRenderer(cmd.OutOrStdout()).Render(a.Events.Events())
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
