package devnet

import (
	"context"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/adapters/repository/memory"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

var (
	alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func testConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{
		Governor: config.DefaultGovernorSettings(),
		Timelock: config.DefaultTimelockSettings(),
		Clock:    config.ClockSettings{Mode: config.ClockModeBlockNumber, Genesis: 1},
		Treasury: config.TreasurySettings{
			Symbol:  "SRC",
			Address: common.HexToAddress("0x5352"),
			Supply:  uint256.NewInt(1_000),
		},
		Genesis: []config.GenesisAllocation{
			{Account: alice, Votes: uint256.NewInt(100), Delegate: alice},
			{Account: bob, Votes: uint256.NewInt(30)},
		},
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := memory.NewStore()

	d, err := Open(ctx, cfg, repo, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), d.Clock().CurrentPoint())
	assert.Equal(t, uint64(100), d.Votes().GetVotes(alice).Uint64())
	assert.True(t, d.Votes().GetVotes(bob).IsZero(), "bob never delegated")
	assert.Equal(t, uint64(1_000), d.Treasury().BalanceOf(cfg.Timelock.Address).Uint64())

	point, err := d.Mine(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), point)
	d.Votes().Delegate(bob, bob)
	require.NoError(t, d.Save(ctx))

	reopened, err := Open(ctx, cfg, repo, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), reopened.Clock().CurrentPoint())
	assert.Equal(t, uint64(30), reopened.Votes().GetVotes(bob).Uint64())
	assert.Equal(t, uint64(1_000), reopened.Treasury().BalanceOf(cfg.Timelock.Address).Uint64())

	weight, err := reopened.Votes().WeightOf(ctx, bob, 4)
	require.NoError(t, err)
	assert.True(t, weight.IsZero())
}

func TestWallClockCannotMine(t *testing.T) {
	cfg := testConfig()
	cfg.Clock = config.ClockSettings{Mode: config.ClockModeTimestamp}

	d, err := Open(context.Background(), cfg, memory.NewStore(), slog.Default())
	require.NoError(t, err)
	assert.Equal(t, config.ClockModeTimestamp, d.Clock().Mode())
	_, err = d.Mine(1)
	assert.ErrorIs(t, err, ErrWallClock)
	assert.ErrorIs(t, d.AdvanceTo(10), ErrWallClock)
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	d, err := Open(ctx, cfg, memory.NewStore(), slog.Default())
	require.NoError(t, err)

	router := d.Router(cfg.Timelock.Address, slog.Default())
	assert.ElementsMatch(t, []common.Address{cfg.Treasury.Address, VotesAddress}, router.Targets())

	data, err := abi.ERC20.Pack("transfer", bob, big.NewInt(250))
	require.NoError(t, err)
	_, err = router.Run(ctx, models.NewBatch(models.Call{Target: cfg.Treasury.Address, Data: data}))
	require.NoError(t, err)
	assert.Equal(t, uint64(250), d.Treasury().BalanceOf(bob).Uint64())
}
