package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/samber/lo"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// ProposalLifecycle is the proposal state machine. State is derived on every
// read; only the canceled flag and the timelock link are stored.
type ProposalLifecycle struct {
	settings   config.GovernorSettings
	clock      Clock
	tally      *VoteTally
	votes      VotingPowerProvider
	proposals  ProposalRepository
	operations OperationReader
	locks      *keyedMutex
	log        *slog.Logger
}

// NewProposalLifecycle creates a new proposal lifecycle
func NewProposalLifecycle(
	settings config.GovernorSettings,
	clock Clock,
	tally *VoteTally,
	votes VotingPowerProvider,
	proposals ProposalRepository,
	operations OperationReader,
	log *slog.Logger,
) *ProposalLifecycle {
	return &ProposalLifecycle{
		settings:   settings,
		clock:      clock,
		tally:      tally,
		votes:      votes,
		proposals:  proposals,
		operations: operations,
		locks:      newKeyedMutex(),
		log:        log.With("component", "ProposalLifecycle"),
	}
}

// ProposeParams contains parameters for creating a proposal
type ProposeParams struct {
	Batch       models.Batch
	Description string
	Proposer    common.Address
	// ProposerWeight is the proposer's voting power at the current point
	ProposerWeight *uint256.Int
}

// Propose stores a new proposal and fixes its snapshot at the current point
func (l *ProposalLifecycle) Propose(ctx context.Context, params ProposeParams) (*models.Proposal, error) {
	descriptionHash := domain.HashDescription(params.Description)
	id, err := domain.HashProposal(params.Batch, descriptionHash)
	if err != nil {
		return nil, err
	}

	weight := params.ProposerWeight
	if weight == nil {
		weight = new(uint256.Int)
	}
	if weight.Lt(l.settings.ProposalThreshold) {
		return nil, &domain.ThresholdError{
			Proposer:  params.Proposer,
			Votes:     weight.Dec(),
			Threshold: l.settings.ProposalThreshold.Dec(),
		}
	}

	unlock := l.locks.Lock(id)
	defer unlock()

	existing, err := l.proposals.GetProposal(ctx, id)
	switch {
	case err == nil:
		state, err := l.stateOf(ctx, existing)
		if err != nil {
			return nil, err
		}
		if state != models.ProposalStateExpired && state != models.ProposalStateExecuted {
			return nil, &domain.ProposalStateError{
				ProposalID: id,
				Current:    state,
				Expected:   []models.ProposalState{models.ProposalStateExpired, models.ProposalStateExecuted},
				Err:        domain.ErrDuplicateProposal,
			}
		}
		l.log.Debug("replacing finished proposal", "id", id.Hex(), "state", state)
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load proposal: %w", err)
	}

	snapshot := l.clock.CurrentPoint()
	voteStart, err := domain.AddPoints(snapshot, l.settings.VotingDelay)
	if err != nil {
		return nil, &domain.ProposalError{ProposalID: id, Err: err}
	}
	deadline, err := domain.AddPoints(voteStart, l.settings.VotingPeriod)
	if err != nil {
		return nil, &domain.ProposalError{ProposalID: id, Err: err}
	}
	proposal := &models.Proposal{
		ID:              id,
		Proposer:        params.Proposer,
		Batch:           params.Batch.Clone(),
		Description:     params.Description,
		DescriptionHash: descriptionHash,
		SnapshotPoint:   snapshot,
		VoteStartPoint:  voteStart,
		DeadlinePoint:   deadline,
		Tally:           models.NewTally(),
		Receipts:        make(map[common.Address]*models.VoteReceipt),
		CreatedAt:       time.Now().UTC(),
	}
	if err := l.proposals.SaveProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("failed to save proposal: %w", err)
	}

	l.log.Debug("proposal created",
		"id", id.Hex(),
		"proposer", params.Proposer.Hex(),
		"snapshot", proposal.SnapshotPoint,
		"deadline", proposal.DeadlinePoint,
	)
	return proposal.Clone(), nil
}

// CastVoteParams contains parameters for casting a vote
type CastVoteParams struct {
	ProposalID common.Hash
	Voter      common.Address
	Support    models.VoteType
	// Weight is the voter's power at the proposal snapshot
	Weight *uint256.Int
	Reason string
}

// CastVote records a ballot. It is the only mutator of a proposal tally.
func (l *ProposalLifecycle) CastVote(ctx context.Context, params CastVoteParams) (*models.VoteReceipt, error) {
	if !params.Support.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidSupport, uint8(params.Support))
	}

	unlock := l.locks.Lock(params.ProposalID)
	defer unlock()

	proposal, err := l.load(ctx, params.ProposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Canceled {
		return nil, &domain.ProposalStateError{
			ProposalID: proposal.ID,
			Current:    models.ProposalStateCanceled,
			Expected:   []models.ProposalState{models.ProposalStateActive},
			Err:        domain.ErrVotingClosed,
		}
	}

	now := l.clock.CurrentPoint()
	if now < proposal.VoteStartPoint {
		return nil, &domain.TimepointError{ID: proposal.ID, Now: now, Want: proposal.VoteStartPoint, Err: domain.ErrVotingClosed}
	}
	if now > proposal.DeadlinePoint {
		return nil, &domain.TimepointError{ID: proposal.ID, Now: now, Want: proposal.DeadlinePoint, Err: domain.ErrVotingClosed}
	}
	if proposal.HasVoted(params.Voter) {
		return nil, &domain.ProposalError{ProposalID: proposal.ID, Err: domain.ErrAlreadyVoted}
	}

	weight := params.Weight
	if weight == nil {
		weight = new(uint256.Int)
	}
	tally, err := l.tally.AddVote(proposal.Tally, params.Support, weight)
	if err != nil {
		return nil, &domain.ProposalError{ProposalID: proposal.ID, Err: err}
	}

	receipt := &models.VoteReceipt{
		Voter:   params.Voter,
		Support: params.Support,
		Weight:  new(uint256.Int).Set(weight),
		Reason:  params.Reason,
		Point:   now,
	}
	proposal.Tally = tally
	proposal.Receipts[params.Voter] = receipt
	if err := l.proposals.SaveProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("failed to save vote: %w", err)
	}

	l.log.Debug("vote cast",
		"id", proposal.ID.Hex(),
		"voter", params.Voter.Hex(),
		"support", params.Support,
		"weight", weight.Dec(),
	)
	rc := *receipt
	rc.Weight = new(uint256.Int).Set(weight)
	return &rc, nil
}

// State derives the current state of a proposal
func (l *ProposalLifecycle) State(ctx context.Context, id common.Hash) (models.ProposalState, error) {
	proposal, err := l.load(ctx, id)
	if err != nil {
		return 0, err
	}
	return l.stateOf(ctx, proposal)
}

// StateOf derives the state of an already loaded proposal
func (l *ProposalLifecycle) StateOf(ctx context.Context, proposal *models.Proposal) (models.ProposalState, error) {
	return l.stateOf(ctx, proposal)
}

func (l *ProposalLifecycle) stateOf(ctx context.Context, p *models.Proposal) (models.ProposalState, error) {
	if p.Canceled {
		return models.ProposalStateCanceled, nil
	}

	now := l.clock.CurrentPoint()

	if p.IsQueued() {
		op, err := l.operations.GetOperation(ctx, p.TimelockID)
		if err != nil {
			return 0, fmt.Errorf("failed to load timelock operation %s: %w", p.TimelockID.Hex(), err)
		}
		switch op.StateAt(now) {
		case models.OperationStateDone:
			return models.ProposalStateExecuted, nil
		case models.OperationStateCanceled:
			return models.ProposalStateCanceled, nil
		case models.OperationStateExpired:
			return models.ProposalStateExpired, nil
		default:
			return models.ProposalStateQueued, nil
		}
	}

	if now < p.VoteStartPoint {
		return models.ProposalStatePending, nil
	}
	if now <= p.DeadlinePoint {
		return models.ProposalStateActive, nil
	}

	supply, err := l.votes.TotalSupplyAt(ctx, p.SnapshotPoint)
	if err != nil {
		return 0, fmt.Errorf("failed to read total supply at %d: %w", p.SnapshotPoint, err)
	}
	if l.tally.QuorumReached(p.Tally, supply) && VoteSucceeded(p.Tally) {
		return models.ProposalStateSucceeded, nil
	}
	return models.ProposalStateDefeated, nil
}

// CancelProposalParams contains parameters for canceling a proposal
type CancelProposalParams struct {
	ProposalID common.Hash
	Caller     common.Address
}

// Cancel marks a proposal canceled. The proposer may cancel while Pending; the
// guardian may cancel anything not yet final. unschedule is called under the
// proposal lock when the proposal has a pending timelock operation.
func (l *ProposalLifecycle) Cancel(
	ctx context.Context,
	params CancelProposalParams,
	unschedule func(ctx context.Context, proposal *models.Proposal) error,
) (*models.Proposal, error) {
	unlock := l.locks.Lock(params.ProposalID)
	defer unlock()

	proposal, err := l.load(ctx, params.ProposalID)
	if err != nil {
		return nil, err
	}
	state, err := l.stateOf(ctx, proposal)
	if err != nil {
		return nil, err
	}

	isGuardian := l.settings.Guardian != (common.Address{}) && params.Caller == l.settings.Guardian
	isProposer := params.Caller == proposal.Proposer

	var allowed []models.ProposalState
	switch {
	case isGuardian:
		allowed = []models.ProposalState{
			models.ProposalStatePending,
			models.ProposalStateActive,
			models.ProposalStateSucceeded,
			models.ProposalStateDefeated,
			models.ProposalStateQueued,
		}
	case isProposer:
		allowed = []models.ProposalState{models.ProposalStatePending}
	default:
		return nil, &domain.ProposalError{
			ProposalID: proposal.ID,
			Err:        fmt.Errorf("%w: %s is neither proposer nor guardian", domain.ErrUnauthorized, params.Caller.Hex()),
		}
	}
	if !lo.Contains(allowed, state) {
		return nil, &domain.ProposalStateError{
			ProposalID: proposal.ID,
			Current:    state,
			Expected:   allowed,
			Err:        domain.ErrUnexpectedState,
		}
	}

	if state == models.ProposalStateQueued && unschedule != nil {
		if err := unschedule(ctx, proposal.Clone()); err != nil {
			return nil, err
		}
	}

	proposal.Canceled = true
	if err := l.proposals.SaveProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("failed to save proposal: %w", err)
	}
	l.log.Debug("proposal canceled", "id", proposal.ID.Hex(), "by", params.Caller.Hex(), "was", state)
	return proposal.Clone(), nil
}

// Queue links a Succeeded proposal to the timelock operation returned by
// schedule. schedule runs under the proposal lock.
func (l *ProposalLifecycle) Queue(
	ctx context.Context,
	id common.Hash,
	schedule func(ctx context.Context, proposal *models.Proposal) (common.Hash, error),
) (*models.Proposal, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	proposal, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.requireState(ctx, proposal, models.ProposalStateSucceeded); err != nil {
		return nil, err
	}

	opID, err := schedule(ctx, proposal.Clone())
	if err != nil {
		return nil, err
	}
	proposal.TimelockID = opID
	if err := l.proposals.SaveProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("failed to save proposal: %w", err)
	}
	l.log.Debug("proposal queued", "id", id.Hex(), "operation", opID.Hex())
	return proposal.Clone(), nil
}

// Execute runs execute for a Queued proposal under the proposal lock
func (l *ProposalLifecycle) Execute(
	ctx context.Context,
	id common.Hash,
	execute func(ctx context.Context, proposal *models.Proposal) error,
) (*models.Proposal, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	proposal, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.requireState(ctx, proposal, models.ProposalStateQueued); err != nil {
		return nil, err
	}
	if err := execute(ctx, proposal.Clone()); err != nil {
		return nil, err
	}
	l.log.Debug("proposal executed", "id", id.Hex())
	return proposal.Clone(), nil
}

// Get returns a copy of the stored proposal
func (l *ProposalLifecycle) Get(ctx context.Context, id common.Hash) (*models.Proposal, error) {
	return l.load(ctx, id)
}

// ProposalSnapshot returns the point at which voting power is read
func (l *ProposalLifecycle) ProposalSnapshot(ctx context.Context, id common.Hash) (uint64, error) {
	p, err := l.load(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.SnapshotPoint, nil
}

// ProposalDeadline returns the last point at which votes are accepted
func (l *ProposalLifecycle) ProposalDeadline(ctx context.Context, id common.Hash) (uint64, error) {
	p, err := l.load(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.DeadlinePoint, nil
}

// ProposalVotes returns a read-only copy of the tally
func (l *ProposalLifecycle) ProposalVotes(ctx context.Context, id common.Hash) (models.Tally, error) {
	p, err := l.load(ctx, id)
	if err != nil {
		return models.Tally{}, err
	}
	return p.Tally.Clone(), nil
}

// ProposalProposer returns the account that submitted the proposal
func (l *ProposalLifecycle) ProposalProposer(ctx context.Context, id common.Hash) (common.Address, error) {
	p, err := l.load(ctx, id)
	if err != nil {
		return common.Address{}, err
	}
	return p.Proposer, nil
}

// HasVoted reports whether account voted on the proposal
func (l *ProposalLifecycle) HasVoted(ctx context.Context, id common.Hash, account common.Address) (bool, error) {
	p, err := l.load(ctx, id)
	if err != nil {
		return false, err
	}
	return p.HasVoted(account), nil
}

// GetReceipt returns the ballot of account, or nil if it did not vote
func (l *ProposalLifecycle) GetReceipt(ctx context.Context, id common.Hash, account common.Address) (*models.VoteReceipt, error) {
	p, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Receipts[account], nil
}

// ProposalView pairs a proposal with its derived state
type ProposalView struct {
	Proposal *models.Proposal
	State    models.ProposalState
}

// List returns the proposals matching filter, oldest first
func (l *ProposalLifecycle) List(ctx context.Context, filter domain.ProposalFilter) ([]ProposalView, error) {
	proposals, err := l.proposals.ListProposals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	views := make([]ProposalView, 0, len(proposals))
	for _, p := range proposals {
		state, err := l.stateOf(ctx, p)
		if err != nil {
			return nil, err
		}
		if len(filter.States) > 0 && !lo.Contains(filter.States, state) {
			continue
		}
		views = append(views, ProposalView{Proposal: p, State: state})
	}
	return views, nil
}

func (l *ProposalLifecycle) requireState(ctx context.Context, p *models.Proposal, want models.ProposalState) error {
	state, err := l.stateOf(ctx, p)
	if err != nil {
		return err
	}
	if state != want {
		return &domain.ProposalStateError{
			ProposalID: p.ID,
			Current:    state,
			Expected:   []models.ProposalState{want},
			Err:        domain.ErrUnexpectedState,
		}
	}
	return nil
}

func (l *ProposalLifecycle) load(ctx context.Context, id common.Hash) (*models.Proposal, error) {
	p, err := l.proposals.GetProposal(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ProposalError{ProposalID: id, Err: domain.ErrUnknownProposal}
		}
		return nil, fmt.Errorf("failed to load proposal: %w", err)
	}
	if p.Receipts == nil {
		p.Receipts = make(map[common.Address]*models.VoteReceipt)
	}
	return p, nil
}
