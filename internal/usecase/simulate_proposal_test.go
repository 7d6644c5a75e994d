package usecase_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/adapters/clock"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

type manualMiner struct {
	clock *clock.Manual
}

func (m manualMiner) Mine(n uint64) (uint64, error) {
	return m.clock.Mine(n)
}

func TestSimulateProposal(t *testing.T) {
	t.Run("grant is executed", func(t *testing.T) {
		f := newFixture(t)
		sim := usecase.NewSimulateProposal(f.engine, f.clock, manualMiner{f.clock}, slog.Default())

		result, err := sim.Run(f.ctx, usecase.SimulateProposalParams{
			Batch:       grantBatch(t, 250),
			Description: "Proposal #1: Give grant to signer 2",
			Proposer:    alice,
			Ballots:     []usecase.Ballot{{Voter: alice, Support: models.VoteFor}},
		})
		require.NoError(t, err)

		assert.Equal(t, uint64(1), result.Snapshot)
		assert.Equal(t, uint64(7), result.Deadline)
		assert.Equal(t, uint64(5), result.MinDelay)
		assert.Equal(t, models.ProposalStateSucceeded, result.Outcome)
		assert.Equal(t, uint64(100), result.Tally.For.Uint64())
		require.NotNil(t, result.Executed)
		assert.True(t, result.Executed.Operation.Executed)
		assert.Equal(t, uint64(250), f.treasury.BalanceOf(grantee).Uint64())

		actions := make([]string, len(result.Steps))
		for i, s := range result.Steps {
			actions[i] = s.Action
		}
		assert.Equal(t, []string{"propose", "castVote", "queue", "execute"}, actions)
		assert.Equal(t, uint64(2), result.Steps[1].Point)
		assert.Equal(t, uint64(8), result.Steps[2].Point)
		assert.Equal(t, uint64(13), result.Steps[3].Point)
	})

	t.Run("defeated proposal stops after voting", func(t *testing.T) {
		f := newFixture(t)
		sim := usecase.NewSimulateProposal(f.engine, f.clock, manualMiner{f.clock}, slog.Default())

		result, err := sim.Run(f.ctx, usecase.SimulateProposalParams{
			Batch:       grantBatch(t, 250),
			Description: "rejected grant",
			Proposer:    alice,
			Ballots: []usecase.Ballot{
				{Voter: dave, Support: models.VoteFor},
				{Voter: alice, Support: models.VoteAgainst},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStateDefeated, result.Outcome)
		assert.Nil(t, result.Queued)
		assert.Nil(t, result.Executed)
		assert.True(t, f.treasury.BalanceOf(grantee).IsZero())
	})

	t.Run("vote failure is reported", func(t *testing.T) {
		f := newFixture(t)
		sim := usecase.NewSimulateProposal(f.engine, f.clock, manualMiner{f.clock}, slog.Default())

		_, err := sim.Run(f.ctx, usecase.SimulateProposalParams{
			Batch:       grantBatch(t, 1),
			Description: "double vote",
			Proposer:    alice,
			Ballots: []usecase.Ballot{
				{Voter: bob, Support: models.VoteFor},
				{Voter: bob, Support: models.VoteFor},
			},
		})
		assert.ErrorContains(t, err, bob.Hex())
	})
}
