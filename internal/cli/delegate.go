package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/cli/render"
)

// NewDelegateCmd creates the delegate command
func NewDelegateCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "delegate <delegatee>",
		Short: "Delegate the voting power of --from",
		Long: `Point the governance token votes of --from at delegatee. Balances only
count as votes once delegated; use "self" to delegate to yourself, or
"none" to withdraw the delegation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			account, err := resolveAccount(a, from)
			if err != nil {
				return err
			}

			delegatee := account
			switch args[0] {
			case "self":
			case "none":
				delegatee = common.Address{}
			default:
				if delegatee, err = resolveAccount(a, args[0]); err != nil {
					return err
				}
			}

			book := a.Devnet.Votes()
			book.Delegate(account, delegatee)

			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"account":   account,
					"delegatee": delegatee,
					"votes":     book.GetVotes(delegatee),
				})
			}
			names := accountNamer(a)
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("%s delegated to %s (%s %s votes)",
				names(account), names(delegatee), render.FormatUnits(book.GetVotes(delegatee), tokenDecimals), book.Symbol())))
			return commit(cmd, a)
		},
	}

	addFromFlag(cmd, &from, "")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
