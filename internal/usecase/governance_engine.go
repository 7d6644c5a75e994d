package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// GovernanceEngine is the governor facade. It sequences the proposal
// lifecycle and the timelock queue and reads voting power on behalf of callers.
type GovernanceEngine struct {
	settings  config.GovernorSettings
	clock     Clock
	votes     VotingPowerProvider
	lifecycle *ProposalLifecycle
	timelock  *TimelockQueue
	events    EventSink
	log       *slog.Logger
}

// NewGovernanceEngine creates a new governance engine
func NewGovernanceEngine(
	settings config.GovernorSettings,
	clock Clock,
	votes VotingPowerProvider,
	lifecycle *ProposalLifecycle,
	timelock *TimelockQueue,
	events EventSink,
	log *slog.Logger,
) *GovernanceEngine {
	if events == nil {
		events = NopEvents{}
	}
	return &GovernanceEngine{
		settings:  settings,
		clock:     clock,
		votes:     votes,
		lifecycle: lifecycle,
		timelock:  timelock,
		events:    events,
		log:       log.With("component", "GovernanceEngine"),
	}
}

// Address is the identity the governor uses towards the timelock
func (e *GovernanceEngine) Address() common.Address {
	return e.settings.Address
}

// Settings returns the governor configuration
func (e *GovernanceEngine) Settings() config.GovernorSettings {
	return e.settings
}

// Timelock returns the queue the governor schedules into
func (e *GovernanceEngine) Timelock() *TimelockQueue {
	return e.timelock
}

// Setup bootstraps the timelock on first use
func (e *GovernanceEngine) Setup(ctx context.Context) error {
	return e.timelock.Setup(ctx)
}

// ProposeRequest contains parameters for submitting a proposal
type ProposeRequest struct {
	Batch       models.Batch
	Description string
	Proposer    common.Address
}

// Propose submits a proposal. The proposer's power is read at the current point.
func (e *GovernanceEngine) Propose(ctx context.Context, req ProposeRequest) (*models.Proposal, error) {
	weight, err := e.votes.WeightOf(ctx, req.Proposer, e.clock.CurrentPoint())
	if err != nil {
		return nil, fmt.Errorf("failed to read proposer votes: %w", err)
	}

	proposal, err := e.lifecycle.Propose(ctx, ProposeParams{
		Batch:          req.Batch,
		Description:    req.Description,
		Proposer:       req.Proposer,
		ProposerWeight: weight,
	})
	if err != nil {
		return nil, err
	}

	e.events.OnEvent(ctx, &domain.ProposalCreatedEvent{
		ProposalID:  proposal.ID,
		Proposer:    proposal.Proposer,
		Batch:       proposal.Batch,
		VoteStart:   proposal.VoteStartPoint,
		VoteEnd:     proposal.DeadlinePoint,
		Description: proposal.Description,
	})
	return proposal, nil
}

// VoteRequest contains parameters for casting a vote
type VoteRequest struct {
	ProposalID common.Hash
	Voter      common.Address
	Support    models.VoteType
	Reason     string
}

// CastVote casts a vote weighted by the voter's power at the proposal snapshot
func (e *GovernanceEngine) CastVote(ctx context.Context, req VoteRequest) (*models.VoteReceipt, error) {
	proposal, err := e.lifecycle.Get(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}

	// Before the window opens the snapshot may still be the current point;
	// the lifecycle rejects the vote without needing a weight.
	weight := new(uint256.Int)
	if e.clock.CurrentPoint() > proposal.SnapshotPoint {
		weight, err = e.votes.WeightOf(ctx, req.Voter, proposal.SnapshotPoint)
		if err != nil {
			return nil, fmt.Errorf("failed to read votes at snapshot %d: %w", proposal.SnapshotPoint, err)
		}
	}

	receipt, err := e.lifecycle.CastVote(ctx, CastVoteParams{
		ProposalID: req.ProposalID,
		Voter:      req.Voter,
		Support:    req.Support,
		Weight:     weight,
		Reason:     req.Reason,
	})
	if err != nil {
		return nil, err
	}

	e.events.OnEvent(ctx, &domain.VoteCastEvent{
		Voter:      req.Voter,
		ProposalID: req.ProposalID,
		Support:    req.Support,
		Weight:     receipt.Weight,
		Reason:     req.Reason,
	})
	return receipt, nil
}

// QueueResult contains the result of queueing a proposal
type QueueResult struct {
	Proposal  *models.Proposal
	Operation *models.TimelockOperation
}

// Queue hands a Succeeded proposal to the timelock. The salt is derived from
// the description hash so the operation id follows from proposal content. The
// operation expires with the proposal, after the grace period.
func (e *GovernanceEngine) Queue(ctx context.Context, id common.Hash) (*QueueResult, error) {
	var op *models.TimelockOperation
	proposal, err := e.lifecycle.Queue(ctx, id, func(ctx context.Context, p *models.Proposal) (common.Hash, error) {
		scheduled, err := e.timelock.Schedule(ctx, ScheduleParams{
			Batch:       p.Batch,
			Salt:        domain.GovernorSalt(e.settings.Address, p.DescriptionHash),
			Caller:      e.settings.Address,
			GracePeriod: e.settings.GracePeriod,
		})
		if err != nil {
			return common.Hash{}, err
		}
		op = scheduled
		return scheduled.ID, nil
	})
	if err != nil {
		return nil, err
	}

	e.events.OnEvent(ctx, &domain.ProposalQueuedEvent{
		ProposalID:  proposal.ID,
		OperationID: op.ID,
		ETA:         op.ReadyPoint,
	})
	e.log.Debug("queued proposal", "id", id.Hex(), "eta", op.ReadyPoint)
	return &QueueResult{Proposal: proposal, Operation: op}, nil
}

// ExecuteProposalResult contains the result of executing a proposal
type ExecuteProposalResult struct {
	Proposal  *models.Proposal
	Operation *models.TimelockOperation
	Result    *models.ExecutionResult
}

// Execute runs a Queued proposal through the timelock as the governor
func (e *GovernanceEngine) Execute(ctx context.Context, id common.Hash) (*ExecuteProposalResult, error) {
	var executed *ExecuteOperationResult
	proposal, err := e.lifecycle.Execute(ctx, id, func(ctx context.Context, p *models.Proposal) error {
		res, err := e.timelock.Execute(ctx, ExecuteOperationParams{
			OperationID: p.TimelockID,
			Caller:      e.settings.Address,
		})
		if err != nil {
			return err
		}
		executed = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.events.OnEvent(ctx, &domain.ProposalExecutedEvent{ProposalID: proposal.ID})
	return &ExecuteProposalResult{
		Proposal:  proposal,
		Operation: executed.Operation,
		Result:    executed.Result,
	}, nil
}

// Cancel cancels a proposal, and its timelock operation when already queued
func (e *GovernanceEngine) Cancel(ctx context.Context, id common.Hash, caller common.Address) (*models.Proposal, error) {
	proposal, err := e.lifecycle.Cancel(ctx, CancelProposalParams{ProposalID: id, Caller: caller},
		func(ctx context.Context, p *models.Proposal) error {
			_, err := e.timelock.Cancel(ctx, p.TimelockID, e.settings.Address)
			return err
		})
	if err != nil {
		return nil, err
	}
	e.events.OnEvent(ctx, &domain.ProposalCanceledEvent{ProposalID: id, By: caller})
	return proposal, nil
}

// State derives the current state of a proposal
func (e *GovernanceEngine) State(ctx context.Context, id common.Hash) (models.ProposalState, error) {
	return e.lifecycle.State(ctx, id)
}

// GetProposal returns a proposal together with its derived state
func (e *GovernanceEngine) GetProposal(ctx context.Context, id common.Hash) (*ProposalView, error) {
	p, err := e.lifecycle.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := e.lifecycle.StateOf(ctx, p)
	if err != nil {
		return nil, err
	}
	return &ProposalView{Proposal: p, State: state}, nil
}

// ListProposals returns proposals with their derived state
func (e *GovernanceEngine) ListProposals(ctx context.Context, filter domain.ProposalFilter) ([]ProposalView, error) {
	return e.lifecycle.List(ctx, filter)
}

// ProposalSnapshot returns the point at which voting power is read
func (e *GovernanceEngine) ProposalSnapshot(ctx context.Context, id common.Hash) (uint64, error) {
	return e.lifecycle.ProposalSnapshot(ctx, id)
}

// ProposalDeadline returns the last point at which votes are accepted
func (e *GovernanceEngine) ProposalDeadline(ctx context.Context, id common.Hash) (uint64, error) {
	return e.lifecycle.ProposalDeadline(ctx, id)
}

// ProposalVotes returns a read-only view of the tally
func (e *GovernanceEngine) ProposalVotes(ctx context.Context, id common.Hash) (models.Tally, error) {
	return e.lifecycle.ProposalVotes(ctx, id)
}

// ProposalProposer returns the account that submitted the proposal
func (e *GovernanceEngine) ProposalProposer(ctx context.Context, id common.Hash) (common.Address, error) {
	return e.lifecycle.ProposalProposer(ctx, id)
}

// HasVoted reports whether account voted on the proposal
func (e *GovernanceEngine) HasVoted(ctx context.Context, id common.Hash, account common.Address) (bool, error) {
	return e.lifecycle.HasVoted(ctx, id, account)
}

// GetReceipt returns the ballot of account, or nil if it did not vote
func (e *GovernanceEngine) GetReceipt(ctx context.Context, id common.Hash, account common.Address) (*models.VoteReceipt, error) {
	return e.lifecycle.GetReceipt(ctx, id, account)
}

// ProposalEta returns the point at which a queued proposal becomes executable,
// or zero when it was never queued
func (e *GovernanceEngine) ProposalEta(ctx context.Context, id common.Hash) (uint64, error) {
	p, err := e.lifecycle.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if !p.IsQueued() {
		return 0, nil
	}
	op, err := e.timelock.GetOperation(ctx, p.TimelockID)
	if err != nil {
		return 0, err
	}
	return op.ReadyPoint, nil
}

// Quorum returns the votes required at point
func (e *GovernanceEngine) Quorum(ctx context.Context, point uint64) (*uint256.Int, error) {
	supply, err := e.votes.TotalSupplyAt(ctx, point)
	if err != nil {
		return nil, fmt.Errorf("failed to read total supply at %d: %w", point, err)
	}
	return QuorumRequired(supply, e.settings.QuorumBps), nil
}

// GetVotes returns the voting power of account at point
func (e *GovernanceEngine) GetVotes(ctx context.Context, account common.Address, point uint64) (*uint256.Int, error) {
	return e.votes.WeightOf(ctx, account, point)
}

// HashProposal computes the id a proposal would get, without storing anything
func (e *GovernanceEngine) HashProposal(batch models.Batch, description string) (common.Hash, error) {
	return domain.HashProposal(batch, domain.HashDescription(description))
}

// TimelockOperationID computes the operation id a proposal is queued under
func (e *GovernanceEngine) TimelockOperationID(batch models.Batch, description string) (common.Hash, error) {
	salt := domain.GovernorSalt(e.settings.Address, domain.HashDescription(description))
	return domain.HashOperationBatch(batch, common.Hash{}, salt)
}

// CurrentPoint returns the clock position
func (e *GovernanceEngine) CurrentPoint() uint64 {
	return e.clock.CurrentPoint()
}
