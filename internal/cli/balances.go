package cli

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/cli/render"
)

// NewBalancesCmd creates the balances command
func NewBalancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show token balances, delegation and voting power",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			book := a.Devnet.Votes()
			treasury := a.Devnet.Treasury()

			accounts := lo.Uniq(append(book.Holders(), treasury.Holders()...))
			holdings := lo.Map(accounts, func(acc common.Address, _ int) render.Holding {
				return render.Holding{
					Account:     acc,
					Balance:     book.BalanceOf(acc),
					Delegate:    book.Delegates(acc),
					VotingPower: book.GetVotes(acc),
					Treasury:    treasury.BalanceOf(acc),
				}
			})

			if a.Config.JSON {
				return writeJSON(cmd.OutOrStdout(), holdings)
			}
			return render.NewBalancesRenderer(cmd.OutOrStdout(), accountNamer(a), tokenDecimals).Render(holdings)
		},
	}
}
