package usecase_test

import (
	"errors"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

func TestProposalLifecycle_VotingWindow(t *testing.T) {
	f := newFixture(t)
	p := f.propose(t, grantBatch(t, 1), "window")

	stateAt := func(point uint64) models.ProposalState {
		f.mineTo(t, point)
		state, err := f.engine.State(f.ctx, p.ID)
		require.NoError(t, err)
		return state
	}

	t.Run("pending until vote start", func(t *testing.T) {
		assert.Equal(t, models.ProposalStatePending, stateAt(p.SnapshotPoint))
		_, err := f.engine.CastVote(f.ctx, usecase.VoteRequest{ProposalID: p.ID, Voter: alice, Support: models.VoteFor})
		assert.ErrorIs(t, err, domain.ErrVotingClosed)
		var tpErr *domain.TimepointError
		require.True(t, errors.As(err, &tpErr))
		assert.Equal(t, p.VoteStartPoint, tpErr.Want)
	})

	t.Run("active from vote start", func(t *testing.T) {
		assert.Equal(t, models.ProposalStateActive, stateAt(p.VoteStartPoint))
		f.vote(t, p.ID, bob, models.VoteFor)
	})

	t.Run("a vote at the deadline counts", func(t *testing.T) {
		assert.Equal(t, models.ProposalStateActive, stateAt(p.DeadlinePoint))
		f.vote(t, p.ID, carol, models.VoteAgainst)
		tally, err := f.engine.ProposalVotes(f.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(40), tally.Against.Uint64())
	})

	t.Run("closed after the deadline", func(t *testing.T) {
		assert.Equal(t, models.ProposalStateDefeated, stateAt(p.DeadlinePoint+1))
		_, err := f.engine.CastVote(f.ctx, usecase.VoteRequest{ProposalID: p.ID, Voter: dave, Support: models.VoteFor})
		assert.ErrorIs(t, err, domain.ErrVotingClosed)
	})
}

func TestProposalLifecycle_Votes(t *testing.T) {
	t.Run("second vote is rejected and leaves the tally alone", func(t *testing.T) {
		f := newFixture(t)
		p := f.propose(t, grantBatch(t, 1), "double vote")
		f.mineTo(t, p.VoteStartPoint)
		f.vote(t, p.ID, alice, models.VoteFor)

		_, err := f.engine.CastVote(f.ctx, usecase.VoteRequest{ProposalID: p.ID, Voter: alice, Support: models.VoteAgainst})
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
		assert.ErrorIs(t, err, domain.ErrConflict)

		tally, err := f.engine.ProposalVotes(f.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), tally.For.Uint64())
		assert.True(t, tally.Against.IsZero())
	})

	t.Run("weight is read at the snapshot", func(t *testing.T) {
		f := newFixture(t)
		p := f.propose(t, grantBatch(t, 1), "snapshot")
		f.mineTo(t, p.VoteStartPoint)

		// alice moves everything to bob after the snapshot
		require.NoError(t, f.book.Transfer(alice, bob, uint256.NewInt(100)))
		assert.Equal(t, uint64(130), f.book.GetVotes(bob).Uint64())

		f.vote(t, p.ID, alice, models.VoteFor)
		f.vote(t, p.ID, bob, models.VoteAgainst)

		tally, err := f.engine.ProposalVotes(f.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), tally.For.Uint64())
		assert.Equal(t, uint64(30), tally.Against.Uint64())
	})

	t.Run("invalid support", func(t *testing.T) {
		f := newFixture(t)
		p := f.propose(t, grantBatch(t, 1), "support")
		f.mineTo(t, p.VoteStartPoint)
		_, err := f.engine.CastVote(f.ctx, usecase.VoteRequest{ProposalID: p.ID, Voter: alice, Support: models.VoteType(7)})
		assert.ErrorIs(t, err, domain.ErrInvalidSupport)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("tie is defeated", func(t *testing.T) {
		eve := common.HexToAddress("0xa0Ee7A142d267C1f36714E4a8F75612F20a79720")
		f := newFixture(t)
		require.NoError(t, f.book.Mint(eve, uint256.NewInt(40)))
		f.book.Delegate(eve, eve)

		p := f.propose(t, grantBatch(t, 1), "tie")
		f.mineTo(t, p.VoteStartPoint)
		f.vote(t, p.ID, carol, models.VoteFor)
		f.vote(t, p.ID, eve, models.VoteAgainst)
		f.mineTo(t, p.DeadlinePoint+1)

		state, err := f.engine.State(f.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStateDefeated, state)
	})
}

func TestProposalLifecycle_Quorum(t *testing.T) {
	halfQuorum := func(counting config.QuorumCounting) option {
		return func(g *config.GovernorSettings, _ *config.TimelockSettings) {
			g.QuorumBps = 5_000
			g.QuorumCounting = counting
		}
	}

	tests := []struct {
		name     string
		counting config.QuorumCounting
		want     models.ProposalState
	}{
		{name: "for and abstain only", counting: config.QuorumCountingForAbstain, want: models.ProposalStateDefeated},
		{name: "all buckets", counting: config.QuorumCountingAll, want: models.ProposalStateSucceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// supply 220, quorum 110: for 100 alone misses it, for 100 + against 30 reaches it
			f := newFixture(t, halfQuorum(tt.counting))
			p := f.propose(t, grantBatch(t, 1), "quorum")
			f.mineTo(t, p.VoteStartPoint)
			f.vote(t, p.ID, alice, models.VoteFor)
			f.vote(t, p.ID, bob, models.VoteAgainst)
			f.mineTo(t, p.DeadlinePoint+1)

			state, err := f.engine.State(f.ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}

func TestProposalLifecycle_Propose(t *testing.T) {
	t.Run("threshold", func(t *testing.T) {
		f := newFixture(t, func(g *config.GovernorSettings, _ *config.TimelockSettings) {
			g.ProposalThreshold = uint256.NewInt(60)
		})
		_, err := f.engine.Propose(f.ctx, usecase.ProposeRequest{Batch: grantBatch(t, 1), Description: "low", Proposer: bob})
		assert.ErrorIs(t, err, domain.ErrInsufficientProposerPower)
		assert.ErrorIs(t, err, domain.ErrAuthorization)
		var thErr *domain.ThresholdError
		require.True(t, errors.As(err, &thErr))
		assert.Equal(t, "30", thErr.Votes)
		assert.Equal(t, "60", thErr.Threshold)

		f.propose(t, grantBatch(t, 1), "high")
	})

	t.Run("voting window past the last point", func(t *testing.T) {
		f := newFixture(t, func(g *config.GovernorSettings, _ *config.TimelockSettings) {
			g.VotingPeriod = math.MaxUint64
		})
		_, err := f.engine.Propose(f.ctx, usecase.ProposeRequest{Batch: grantBatch(t, 1), Description: "forever", Proposer: alice})
		assert.ErrorIs(t, err, domain.ErrPointOverflow)

		ids, err := f.engine.ListProposals(f.ctx, domain.ProposalFilter{})
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("invalid batch", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Propose(f.ctx, usecase.ProposeRequest{Batch: models.Batch{}, Description: "empty", Proposer: alice})
		assert.ErrorIs(t, err, domain.ErrInvalidBatch)

		bad := grantBatch(t, 1)
		bad.Values = nil
		_, err = f.engine.Propose(f.ctx, usecase.ProposeRequest{Batch: bad, Description: "mismatch", Proposer: alice})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newFixture(t)
		f.propose(t, grantBatch(t, 1), "same")
		_, err := f.engine.Propose(f.ctx, usecase.ProposeRequest{Batch: grantBatch(t, 1), Description: "same", Proposer: bob})
		assert.ErrorIs(t, err, domain.ErrDuplicateProposal)

		f.propose(t, grantBatch(t, 1), "same but different")
	})
}

func TestProposalLifecycle_Cancel(t *testing.T) {
	withGuardian := func(g *config.GovernorSettings, _ *config.TimelockSettings) {
		g.Guardian = guardian
	}

	t.Run("proposer cancels while pending and it dominates", func(t *testing.T) {
		f := newFixture(t)
		p := f.propose(t, grantBatch(t, 1), "cancel me")
		_, err := f.engine.Cancel(f.ctx, p.ID, alice)
		require.NoError(t, err)

		for _, point := range []uint64{p.VoteStartPoint, p.DeadlinePoint, p.DeadlinePoint + 100} {
			f.mineTo(t, point)
			state, err := f.engine.State(f.ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ProposalStateCanceled, state, "at %d", point)
		}

		_, err = f.engine.CastVote(f.ctx, usecase.VoteRequest{ProposalID: p.ID, Voter: bob, Support: models.VoteFor})
		assert.ErrorIs(t, err, domain.ErrVotingClosed)
		_, err = f.engine.Cancel(f.ctx, p.ID, alice)
		assert.ErrorIs(t, err, domain.ErrUnexpectedState)
	})

	t.Run("proposer cannot cancel once active", func(t *testing.T) {
		f := newFixture(t)
		p := f.propose(t, grantBatch(t, 1), "too late")
		f.mineTo(t, p.VoteStartPoint)
		_, err := f.engine.Cancel(f.ctx, p.ID, alice)
		var stateErr *domain.ProposalStateError
		require.True(t, errors.As(err, &stateErr))
		assert.Equal(t, models.ProposalStateActive, stateErr.Current)
	})

	t.Run("strangers are rejected", func(t *testing.T) {
		f := newFixture(t, withGuardian)
		p := f.propose(t, grantBatch(t, 1), "stranger")
		_, err := f.engine.Cancel(f.ctx, p.ID, dave)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("guardian cancels an active proposal with votes", func(t *testing.T) {
		f := newFixture(t, withGuardian)
		p := f.propose(t, grantBatch(t, 1), "guardian")
		f.mineTo(t, p.VoteStartPoint)
		f.vote(t, p.ID, alice, models.VoteFor)
		_, err := f.engine.Cancel(f.ctx, p.ID, guardian)
		require.NoError(t, err)

		f.mineTo(t, p.DeadlinePoint+1)
		state, err := f.engine.State(f.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStateCanceled, state)
	})
}

func TestProposalLifecycle_Expiry(t *testing.T) {
	f := newFixture(t, func(g *config.GovernorSettings, _ *config.TimelockSettings) {
		g.GracePeriod = 3
	})
	p := f.propose(t, grantBatch(t, 1), "expiring")
	f.mineTo(t, p.VoteStartPoint)
	f.vote(t, p.ID, alice, models.VoteFor)
	f.mineTo(t, p.DeadlinePoint+1)
	queued, err := f.engine.Queue(f.ctx, p.ID)
	require.NoError(t, err)
	ready := queued.Operation.ReadyPoint

	f.mineTo(t, ready+2)
	state, err := f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateQueued, state)

	f.mineTo(t, ready+3)
	state, err = f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateExpired, state)

	_, err = f.engine.Execute(f.ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrUnexpectedState)

	// an expired proposal can be submitted again
	f.propose(t, grantBatch(t, 1), "expiring")
}
