package cli

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/app"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/config"
	domainconfig "github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

var (
	signer1 = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	signer2 = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

const grantDescription = "Proposal #1: Give grant to signer 2"

// NewSimulateCmd creates the simulate command
func NewSimulateCmd() *cobra.Command {
	var grant string
	var support string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the treasury grant scenario on a throwaway devnet",
		Long: `Run a complete governance round in memory: signer1 holds and self-delegates
the governance token, proposes a treasury transfer to signer2, votes on it,
then queues and executes it through the timelock. Nothing is written to disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := config.ParseAmount(grant)
			if err != nil {
				return fmt.Errorf("invalid --grant: %w", err)
			}
			vote, err := models.ParseVoteType(support)
			if err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg := config.Defaults(cwd)
			cfg.Storage.Backend = domainconfig.StorageBackendMemory
			cfg.Debug, _ = cmd.Flags().GetBool("debug")
			cfg.JSON, _ = cmd.Flags().GetBool("json")
			cfg.Accounts["signer1"] = signer1
			cfg.Accounts["signer2"] = signer2
			cfg.Genesis = []domainconfig.GenesisAllocation{{
				Account:  signer1,
				Votes:    new(uint256.Int).Set(amount),
				Delegate: signer1,
			}}

			a, cleanup, err := app.InitAppWithConfig(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize devnet: %w", err)
			}
			defer cleanup()

			data, err := abi.ERC20.Pack("transfer", signer2, amount.ToBig())
			if err != nil {
				return err
			}
			batch := models.NewBatch(models.Call{Target: cfg.Treasury.Address, Value: new(big.Int), Data: data})

			treasury := a.Devnet.Treasury()
			report := &render.SimulationReport{
				GranteeBefore:   treasury.BalanceOf(signer2),
				ProposerVotes:   a.Devnet.Votes().GetVotes(signer1),
				TreasuryBalance: treasury.BalanceOf(cfg.Timelock.Address),
			}

			report.Result, err = a.Simulate.Run(cmd.Context(), usecase.SimulateProposalParams{
				Batch:       batch,
				Description: grantDescription,
				Proposer:    signer1,
				Ballots:     []usecase.Ballot{{Voter: signer1, Support: vote}},
			})
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}
			report.GranteeAfter = treasury.BalanceOf(signer2)

			if cfg.JSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return render.NewSimulationRenderer(cmd.OutOrStdout(), accountNamer(a), tokenDecimals).Render(report)
		},
	}

	cmd.Flags().StringVar(&grant, "grant", "1_000_000e18", "Amount signer1 holds and proposes to grant")
	cmd.Flags().StringVar(&support, "support", "for", "How signer1 votes (for, against, abstain)")
	return cmd
}
