package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/cli/render"
)

// NewMineCmd creates the mine command
func NewMineCmd() *cobra.Command {
	var to uint64

	cmd := &cobra.Command{
		Use:   "mine [blocks]",
		Short: "Advance the devnet clock",
		Long: `Mine blocks on a block number devnet. Without arguments a single block is
mined; --to advances to an absolute point. A timestamp devnet follows the
wall clock and cannot be mined.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}

			if to > 0 {
				if len(args) > 0 {
					return fmt.Errorf("use either a block count or --to, not both")
				}
				if err := a.Devnet.AdvanceTo(to); err != nil {
					return err
				}
			} else {
				n := uint64(1)
				if len(args) > 0 {
					if n, err = strconv.ParseUint(args[0], 10, 64); err != nil {
						return fmt.Errorf("invalid block count %q: %w", args[0], err)
					}
				}
				if _, err := a.Devnet.Mine(n); err != nil {
					return err
				}
			}

			now := a.Engine.CurrentPoint()
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]uint64{"point": now})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Now at block %d", now)))
			return commit(cmd, a)
		},
	}

	cmd.Flags().Uint64Var(&to, "to", 0, "Advance to this point instead of mining a count")
	return cmd
}
