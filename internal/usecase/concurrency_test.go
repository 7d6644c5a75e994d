package usecase_test

import (
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

func TestConcurrentVotes(t *testing.T) {
	f := newFixture(t)

	const voters = 64
	accounts := make([]common.Address, voters)
	var want uint64
	for i := range accounts {
		accounts[i] = common.BigToAddress(big.NewInt(int64(0x1000 + i)))
		require.NoError(t, f.book.Mint(accounts[i], uint256.NewInt(uint64(i+1))))
		f.book.Delegate(accounts[i], accounts[i])
		want += uint64(i + 1)
	}

	p := f.propose(t, grantBatch(t, 1), "crowded vote")
	f.mineTo(t, p.VoteStartPoint)

	var wg sync.WaitGroup
	var failures atomic.Int32
	for _, account := range accounts {
		wg.Add(1)
		go func(voter common.Address) {
			defer wg.Done()
			// every voter tries twice; only one ballot each may land
			for range 2 {
				_, err := f.engine.CastVote(f.ctx, usecase.VoteRequest{ProposalID: p.ID, Voter: voter, Support: models.VoteFor})
				if err != nil {
					assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
					failures.Add(1)
				}
			}
		}(account)
	}
	wg.Wait()

	assert.Equal(t, int32(voters), failures.Load())
	tally, err := f.engine.ProposalVotes(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, want, tally.For.Uint64())
	assert.True(t, tally.Against.IsZero())

	view, err := f.engine.GetProposal(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, view.Proposal.Receipts, voters)
}

func TestConcurrentExecute(t *testing.T) {
	const callers = 16

	t.Run("exactly one execution lands", func(t *testing.T) {
		f := newFixture(t)
		op := f.schedule(t, grantBatch(t, 300), common.Hash{}, common.Hash{})
		f.mineTo(t, op.ReadyPoint)

		var wg sync.WaitGroup
		var succeeded atomic.Int32
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.execute(op.ID, alice)
				if err == nil {
					succeeded.Add(1)
					return
				}
				assert.ErrorIs(t, err, domain.ErrAlreadyExecuted)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), succeeded.Load())
		assert.Equal(t, uint64(300), f.treasury.BalanceOf(grantee).Uint64())
		assert.Equal(t, uint64(700), f.treasury.BalanceOf(f.tl.Address).Uint64())
	})

	t.Run("cancel and execute race for one winner", func(t *testing.T) {
		f := newFixture(t)
		op := f.schedule(t, grantBatch(t, 300), common.Hash{}, common.Hash{})
		f.mineTo(t, op.ReadyPoint)

		var wg sync.WaitGroup
		var executed, canceled atomic.Int32
		for i := range callers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					if _, err := f.execute(op.ID, alice); err == nil {
						executed.Add(1)
					}
					return
				}
				if _, err := f.timelock.Cancel(f.ctx, op.ID, guardian); err == nil {
					canceled.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), executed.Load()+canceled.Load())
		state, err := f.timelock.OperationState(f.ctx, op.ID)
		require.NoError(t, err)
		if executed.Load() == 1 {
			assert.Equal(t, models.OperationStateDone, state)
			assert.Equal(t, uint64(300), f.treasury.BalanceOf(grantee).Uint64())
		} else {
			assert.Equal(t, models.OperationStateCanceled, state)
			assert.True(t, f.treasury.BalanceOf(grantee).IsZero())
		}
	})
}
