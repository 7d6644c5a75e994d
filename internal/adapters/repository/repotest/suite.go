// Package repotest holds the behaviour every storage backend has to share.
package repotest

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// Store is the full set of repositories a backend provides
type Store interface {
	usecase.ProposalRepository
	usecase.OperationRepository
	usecase.RoleRepository
	usecase.DevnetRepository
}

var (
	alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func proposal(id byte, proposer common.Address, snapshot uint64) *models.Proposal {
	tally := models.NewTally()
	tally.For.SetUint64(uint64(id) * 100)
	return &models.Proposal{
		ID:            common.BytesToHash([]byte{id}),
		Proposer:      proposer,
		Batch:         models.NewBatch(models.Call{Target: bob, Value: big.NewInt(1), Data: []byte{0xa9, 0x05, 0x9c, 0xbb}}),
		Description:   "proposal",
		SnapshotPoint: snapshot,
		DeadlinePoint: snapshot + 10,
		Tally:         tally,
		Receipts: map[common.Address]*models.VoteReceipt{
			alice: {Voter: alice, Support: models.VoteFor, Weight: uint256.NewInt(7), Point: snapshot + 2},
		},
	}
}

func operation(id byte, scheduled uint64) *models.TimelockOperation {
	return &models.TimelockOperation{
		ID:             common.BytesToHash([]byte{id}),
		Batch:          models.NewBatch(models.Call{Target: bob}),
		Proposer:       alice,
		ScheduledPoint: scheduled,
		Delay:          5,
		ReadyPoint:     scheduled + 5,
	}
}

// Run exercises the repositories returned by open. The second call to open
// must observe what the first one wrote when the backend is durable.
func Run(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("proposals", func(t *testing.T) {
		store := open(t)

		_, err := store.GetProposal(ctx, common.HexToHash("0xff"))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, store.SaveProposal(ctx, proposal(2, alice, 20)))
		require.NoError(t, store.SaveProposal(ctx, proposal(1, bob, 10)))
		require.NoError(t, store.SaveProposal(ctx, proposal(3, alice, 10)))

		got, err := store.GetProposal(ctx, common.BytesToHash([]byte{2}))
		require.NoError(t, err)
		assert.Equal(t, alice, got.Proposer)
		assert.Equal(t, uint64(200), got.Tally.For.Uint64())
		assert.True(t, got.HasVoted(alice))
		assert.Equal(t, uint64(7), got.Receipts[alice].Weight.Uint64())
		assert.Equal(t, 1, got.Batch.Len())

		got.Tally.For.SetUint64(0)
		again, err := store.GetProposal(ctx, got.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), again.Tally.For.Uint64(), "returned proposals must be copies")

		all, err := store.ListProposals(ctx, domain.ProposalFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, common.BytesToHash([]byte{1}), all[0].ID)
		assert.Equal(t, common.BytesToHash([]byte{3}), all[1].ID)
		assert.Equal(t, common.BytesToHash([]byte{2}), all[2].ID)

		mine, err := store.ListProposals(ctx, domain.ProposalFilter{Proposer: alice})
		require.NoError(t, err)
		assert.Len(t, mine, 2)
	})

	t.Run("operations and delay", func(t *testing.T) {
		store := open(t)

		_, ok, err := store.GetMinDelay(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, store.SaveMinDelay(ctx, 3600))
		delay, ok, err := store.GetMinDelay(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(3600), delay)

		_, err = store.GetOperation(ctx, common.HexToHash("0xff"))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		done := operation(1, 4)
		done.Executed = true
		require.NoError(t, store.SaveOperation(ctx, done))
		require.NoError(t, store.SaveOperation(ctx, operation(2, 2)))

		got, err := store.GetOperation(ctx, done.ID)
		require.NoError(t, err)
		assert.True(t, got.Executed)
		assert.Equal(t, uint64(9), got.ReadyPoint)

		all, err := store.ListOperations(ctx, domain.OperationFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, common.BytesToHash([]byte{2}), all[0].ID)

		pending, err := store.ListOperations(ctx, domain.OperationFilter{PendingOnly: true})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.False(t, pending[0].Executed)
	})

	t.Run("roles", func(t *testing.T) {
		store := open(t)

		added, err := store.GrantRole(ctx, models.RoleProposer, bob)
		require.NoError(t, err)
		assert.True(t, added)
		added, err = store.GrantRole(ctx, models.RoleProposer, bob)
		require.NoError(t, err)
		assert.False(t, added)
		_, err = store.GrantRole(ctx, models.RoleProposer, alice)
		require.NoError(t, err)

		has, err := store.HasRole(ctx, models.RoleProposer, bob)
		require.NoError(t, err)
		assert.True(t, has)
		has, err = store.HasRole(ctx, models.RoleExecutor, bob)
		require.NoError(t, err)
		assert.False(t, has)

		members, err := store.ListRoleMembers(ctx, models.RoleProposer)
		require.NoError(t, err)
		assert.Equal(t, []common.Address{bob, alice}, members)

		removed, err := store.RevokeRole(ctx, models.RoleProposer, bob)
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = store.RevokeRole(ctx, models.RoleProposer, bob)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("devnet", func(t *testing.T) {
		store := open(t)

		_, err := store.LoadDevnet(ctx)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		state := &models.DevnetState{
			Point: 42,
			Votes: models.VoteBookState{
				Symbol:    "GOV",
				Balances:  map[common.Address]*uint256.Int{alice: uint256.NewInt(10)},
				Delegates: map[common.Address]common.Address{alice: alice},
				Checkpoints: map[common.Address][]models.Checkpoint{
					alice: {{Point: 1, Votes: uint256.NewInt(10)}},
				},
				SupplyCheckpoints: []models.Checkpoint{{Point: 1, Votes: uint256.NewInt(10)}},
			},
			Treasury: models.LedgerState{Symbol: "SRC", Address: bob},
		}
		require.NoError(t, store.SaveDevnet(ctx, state))

		got, err := store.LoadDevnet(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), got.Point)
		assert.Equal(t, "GOV", got.Votes.Symbol)
		assert.Equal(t, uint64(10), got.Votes.Balances[alice].Uint64())
		assert.Equal(t, alice, got.Votes.Delegates[alice])
		assert.Equal(t, uint64(1), got.Votes.Checkpoints[alice][0].Point)
		assert.Equal(t, bob, got.Treasury.Address)
	})
}
