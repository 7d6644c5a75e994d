package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// SimulateProposal drives one proposal from submission to execution on a
// mineable clock, mining past each boundary as soon as it is reached
type SimulateProposal struct {
	engine *GovernanceEngine
	clock  Clock
	miner  Miner
	log    *slog.Logger
}

// NewSimulateProposal creates a new simulation use case
func NewSimulateProposal(engine *GovernanceEngine, clock Clock, miner Miner, log *slog.Logger) *SimulateProposal {
	return &SimulateProposal{
		engine: engine,
		clock:  clock,
		miner:  miner,
		log:    log.With("component", "SimulateProposal"),
	}
}

// Ballot is one vote cast during a simulation
type Ballot struct {
	Voter   common.Address
	Support models.VoteType
}

// SimulateProposalParams contains parameters for a simulation
type SimulateProposalParams struct {
	Batch       models.Batch
	Description string
	Proposer    common.Address
	Ballots     []Ballot
}

// SimulationStep records an action and the point it ran at
type SimulationStep struct {
	Action string
	Point  uint64
}

// SimulateProposalResult contains everything observed along the way
type SimulateProposalResult struct {
	Proposal  *models.Proposal
	Snapshot  uint64
	Deadline  uint64
	Threshold *uint256.Int
	MinDelay  uint64
	Tally     models.Tally
	// Outcome is the state once voting closed
	Outcome  models.ProposalState
	Queued   *QueueResult
	Executed *ExecuteProposalResult
	Steps    []SimulationStep
}

// Run executes the simulation. A proposal that does not succeed stops the
// run without error; the result then has no Queued or Executed part.
func (s *SimulateProposal) Run(ctx context.Context, params SimulateProposalParams) (*SimulateProposalResult, error) {
	result := &SimulateProposalResult{
		Threshold: new(uint256.Int).Set(s.engine.Settings().ProposalThreshold),
	}
	step := func(action string) {
		result.Steps = append(result.Steps, SimulationStep{Action: action, Point: s.clock.CurrentPoint()})
		s.log.Debug("simulation step", "action", action, "point", s.clock.CurrentPoint())
	}

	minDelay, err := s.engine.Timelock().MinDelay(ctx)
	if err != nil {
		return nil, err
	}
	result.MinDelay = minDelay

	proposal, err := s.engine.Propose(ctx, ProposeRequest{
		Batch:       params.Batch,
		Description: params.Description,
		Proposer:    params.Proposer,
	})
	if err != nil {
		return nil, err
	}
	result.Proposal = proposal
	result.Snapshot = proposal.SnapshotPoint
	result.Deadline = proposal.DeadlinePoint
	step("propose")

	if err := s.mineTo(proposal.VoteStartPoint); err != nil {
		return nil, err
	}
	for _, b := range params.Ballots {
		if _, err := s.engine.CastVote(ctx, VoteRequest{ProposalID: proposal.ID, Voter: b.Voter, Support: b.Support}); err != nil {
			return nil, fmt.Errorf("vote by %s: %w", b.Voter.Hex(), err)
		}
		step("castVote")
	}

	if err := s.mineTo(proposal.DeadlinePoint + 1); err != nil {
		return nil, err
	}
	if result.Tally, err = s.engine.ProposalVotes(ctx, proposal.ID); err != nil {
		return nil, err
	}
	if result.Outcome, err = s.engine.State(ctx, proposal.ID); err != nil {
		return nil, err
	}
	if result.Outcome != models.ProposalStateSucceeded {
		return result, nil
	}

	if result.Queued, err = s.engine.Queue(ctx, proposal.ID); err != nil {
		return nil, err
	}
	step("queue")

	if err := s.mineTo(result.Queued.Operation.ReadyPoint); err != nil {
		return nil, err
	}
	if result.Executed, err = s.engine.Execute(ctx, proposal.ID); err != nil {
		return nil, err
	}
	step("execute")
	return result, nil
}

func (s *SimulateProposal) mineTo(point uint64) error {
	now := s.clock.CurrentPoint()
	if point <= now {
		return nil
	}
	_, err := s.miner.Mine(point - now)
	return err
}
