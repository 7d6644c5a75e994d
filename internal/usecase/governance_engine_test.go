package usecase_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

func TestGovernanceEngine_GrantExecuted(t *testing.T) {
	f := newFixture(t)
	batch := grantBatch(t, 400)

	p := f.propose(t, batch, "Proposal #1: Give grant to team")
	assert.Equal(t, uint64(1), p.SnapshotPoint)
	assert.Equal(t, uint64(2), p.VoteStartPoint)
	assert.Equal(t, uint64(7), p.DeadlinePoint)

	state, err := f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatePending, state)

	f.mineTo(t, p.SnapshotPoint+1)
	receipt, err := f.engine.CastVote(f.ctx, usecase.VoteRequest{ProposalID: p.ID, Voter: alice, Support: models.VoteFor, Reason: "ship it"})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), receipt.Weight.Uint64())

	state, err = f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateActive, state)

	f.mineTo(t, p.SnapshotPoint+7)
	state, err = f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateSucceeded, state)

	queued, err := f.engine.Queue(f.ctx, p.ID)
	require.NoError(t, err)
	now := f.engine.CurrentPoint()
	assert.Equal(t, now+f.tl.MinDelay, queued.Operation.ReadyPoint)
	expectedOp, err := f.engine.TimelockOperationID(batch, p.Description)
	require.NoError(t, err)
	assert.Equal(t, expectedOp, queued.Operation.ID)
	assert.Equal(t, expectedOp, queued.Proposal.TimelockID)

	eta, err := f.engine.ProposalEta(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, queued.Operation.ReadyPoint, eta)

	state, err = f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateQueued, state)

	f.mineTo(t, eta-1)
	_, err = f.engine.Execute(f.ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotReady)
	var tpErr *domain.TimepointError
	require.True(t, errors.As(err, &tpErr))
	assert.Equal(t, eta, tpErr.Want)
	assert.Equal(t, eta-1, tpErr.Now)
	assert.True(t, f.treasury.BalanceOf(grantee).IsZero())

	f.mineTo(t, eta)
	executed, err := f.engine.Execute(f.ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, executed.Operation.Executed)
	assert.Len(t, executed.Result.ReturnData, 1)
	assert.Equal(t, uint64(400), f.treasury.BalanceOf(grantee).Uint64())
	assert.Equal(t, uint64(600), f.treasury.BalanceOf(f.tl.Address).Uint64())

	state, err = f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateExecuted, state)

	_, err = f.engine.Execute(f.ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrUnexpectedState)

	assert.Equal(t, []string{
		"ProposalCreated",
		"VoteCast",
		"CallScheduled",
		"ProposalQueued",
		"CallExecuted",
		"ProposalExecuted",
	}, f.events.Names())
}

func TestGovernanceEngine_Defeated(t *testing.T) {
	f := newFixture(t)
	p := f.propose(t, grantBatch(t, 400), "Proposal #2: Give grant to team")

	f.mineTo(t, p.VoteStartPoint)
	f.vote(t, p.ID, dave, models.VoteFor)
	f.vote(t, p.ID, bob, models.VoteAgainst)
	f.vote(t, p.ID, carol, models.VoteAgainst)

	tally, err := f.engine.ProposalVotes(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), tally.For.Uint64())
	assert.Equal(t, uint64(70), tally.Against.Uint64())

	f.mineTo(t, p.DeadlinePoint+1)
	state, err := f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateDefeated, state)

	_, err = f.engine.Queue(f.ctx, p.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrState)
	var stateErr *domain.ProposalStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, models.ProposalStateDefeated, stateErr.Current)
	assert.Equal(t, []models.ProposalState{models.ProposalStateSucceeded}, stateErr.Expected)

	ops, err := f.timelock.ListOperations(f.ctx, domain.OperationFilter{})
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestGovernanceEngine_Views(t *testing.T) {
	f := newFixture(t)
	batch := grantBatch(t, 1)
	p := f.propose(t, batch, "views")

	id, err := f.engine.HashProposal(batch, "views")
	require.NoError(t, err)
	assert.Equal(t, p.ID, id)

	snapshot, err := f.engine.ProposalSnapshot(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.SnapshotPoint, snapshot)
	deadline, err := f.engine.ProposalDeadline(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.DeadlinePoint, deadline)
	proposer, err := f.engine.ProposalProposer(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, proposer)

	eta, err := f.engine.ProposalEta(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, eta)

	quorum, err := f.engine.Quorum(f.ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), quorum.Uint64())

	f.mineTo(t, p.VoteStartPoint)
	f.vote(t, p.ID, carol, models.VoteAbstain)
	voted, err := f.engine.HasVoted(f.ctx, p.ID, carol)
	require.NoError(t, err)
	assert.True(t, voted)
	receipt, err := f.engine.GetReceipt(f.ctx, p.ID, carol)
	require.NoError(t, err)
	assert.Equal(t, models.VoteAbstain, receipt.Support)
	missing, err := f.engine.GetReceipt(f.ctx, p.ID, dave)
	require.NoError(t, err)
	assert.Nil(t, missing)

	view, err := f.engine.GetProposal(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateActive, view.State)

	listed, err := f.engine.ListProposals(f.ctx, domain.ProposalFilter{States: []models.ProposalState{models.ProposalStateActive}})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
	listed, err = f.engine.ListProposals(f.ctx, domain.ProposalFilter{States: []models.ProposalState{models.ProposalStatePending}})
	require.NoError(t, err)
	assert.Empty(t, listed)

	votes, err := f.engine.GetVotes(f.ctx, alice, snapshot)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), votes.Uint64())

	_, err = f.engine.State(f.ctx, common.HexToHash("0xdead"))
	assert.ErrorIs(t, err, domain.ErrUnknownProposal)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGovernanceEngine_GuardianCancelsQueued(t *testing.T) {
	f := newFixture(t, func(g *config.GovernorSettings, _ *config.TimelockSettings) {
		g.Guardian = guardian
	})
	p := f.propose(t, grantBatch(t, 10), "to be vetoed")
	f.mineTo(t, p.VoteStartPoint)
	f.vote(t, p.ID, alice, models.VoteFor)
	f.mineTo(t, p.DeadlinePoint+1)
	queued, err := f.engine.Queue(f.ctx, p.ID)
	require.NoError(t, err)

	_, err = f.engine.Cancel(f.ctx, p.ID, alice)
	assert.ErrorIs(t, err, domain.ErrUnexpectedState)

	_, err = f.engine.Cancel(f.ctx, p.ID, guardian)
	require.NoError(t, err)

	state, err := f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateCanceled, state)

	opState, err := f.timelock.OperationState(f.ctx, queued.Operation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OperationStateCanceled, opState)

	f.mineTo(t, queued.Operation.ReadyPoint)
	_, err = f.engine.Execute(f.ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrUnexpectedState)
	assert.True(t, f.treasury.BalanceOf(grantee).IsZero())
	assert.Contains(t, f.events.Names(), "Cancelled")
	assert.Contains(t, f.events.Names(), "ProposalCanceled")
}

func TestGovernanceEngine_ReproposeAfterExecution(t *testing.T) {
	f := newFixture(t)
	batch := grantBatch(t, 100)

	run := func() *models.Proposal {
		p := f.propose(t, batch, "recurring grant")
		f.mineTo(t, p.VoteStartPoint)
		f.vote(t, p.ID, alice, models.VoteFor)
		f.mineTo(t, p.DeadlinePoint+1)
		queued, err := f.engine.Queue(f.ctx, p.ID)
		require.NoError(t, err)
		f.mineTo(t, queued.Operation.ReadyPoint)
		_, err = f.engine.Execute(f.ctx, p.ID)
		require.NoError(t, err)
		return p
	}

	first := run()
	_, err := f.engine.Propose(f.ctx, usecase.ProposeRequest{Batch: batch, Description: "recurring grant", Proposer: alice})
	require.NoError(t, err, "an executed proposal may be proposed again")

	// the second round reuses the id and voting starts over
	voted, err := f.engine.HasVoted(f.ctx, first.ID, alice)
	require.NoError(t, err)
	assert.False(t, voted)
	_, err = f.engine.Propose(f.ctx, usecase.ProposeRequest{Batch: batch, Description: "recurring grant", Proposer: alice})
	assert.ErrorIs(t, err, domain.ErrDuplicateProposal)
	assert.Equal(t, uint64(100), f.treasury.BalanceOf(grantee).Uint64())
}

func TestGovernanceEngine_ReproposeAfterExpiry(t *testing.T) {
	f := newFixture(t, func(g *config.GovernorSettings, _ *config.TimelockSettings) {
		g.GracePeriod = 3
	})
	batch := grantBatch(t, 100)

	pass := func() (*models.Proposal, *models.TimelockOperation) {
		p := f.propose(t, batch, "late grant")
		f.mineTo(t, p.VoteStartPoint)
		f.vote(t, p.ID, alice, models.VoteFor)
		f.mineTo(t, p.DeadlinePoint+1)
		queued, err := f.engine.Queue(f.ctx, p.ID)
		require.NoError(t, err)
		return p, queued.Operation
	}

	p, op := pass()
	f.mineTo(t, op.ExpiryPoint)
	state, err := f.engine.State(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateExpired, state)

	// the expired operation is dead for direct execution as well
	_, err = f.timelock.Execute(f.ctx, usecase.ExecuteOperationParams{OperationID: op.ID, Caller: alice})
	assert.ErrorIs(t, err, domain.ErrOperationExpired)

	again, requeued := pass()
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, op.ID, requeued.ID)
	f.mineTo(t, requeued.ReadyPoint)
	_, err = f.engine.Execute(f.ctx, again.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), f.treasury.BalanceOf(grantee).Uint64())
}

func TestGovernanceEngine_SelfAdministration(t *testing.T) {
	f := newFixture(t)

	batch := models.NewBatch(models.Call{Target: f.tl.Address, Data: timelockCall(t, "updateDelay", big.NewInt(20))})

	p := f.propose(t, batch, "raise delay")
	f.mineTo(t, p.VoteStartPoint)
	f.vote(t, p.ID, alice, models.VoteFor)
	f.mineTo(t, p.DeadlinePoint+1)
	queued, err := f.engine.Queue(f.ctx, p.ID)
	require.NoError(t, err)
	f.mineTo(t, queued.Operation.ReadyPoint)
	_, err = f.engine.Execute(f.ctx, p.ID)
	require.NoError(t, err)

	delay, err := f.timelock.MinDelay(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), delay)
	assert.Contains(t, f.events.Names(), "MinDelayChange")
}
