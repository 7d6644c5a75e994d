package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// TimelockQueue is the delayed, role-gated execution queue. Operations are
// keyed by the hash of their content and only one writer per id runs at a time.
type TimelockQueue struct {
	settings   config.TimelockSettings
	clock      Clock
	operations OperationRepository
	roles      RoleRepository
	executor   OperationExecutor
	events     EventSink
	locks      *keyedMutex
	delayMu    sync.RWMutex
	log        *slog.Logger
}

// NewTimelockQueue creates a new timelock queue
func NewTimelockQueue(
	settings config.TimelockSettings,
	clock Clock,
	operations OperationRepository,
	roles RoleRepository,
	executor OperationExecutor,
	events EventSink,
	log *slog.Logger,
) *TimelockQueue {
	if events == nil {
		events = NopEvents{}
	}
	return &TimelockQueue{
		settings:   settings,
		clock:      clock,
		operations: operations,
		roles:      roles,
		executor:   executor,
		events:     events,
		locks:      newKeyedMutex(),
		log:        log.With("component", "TimelockQueue"),
	}
}

// Address is the identity the timelock acts as
func (q *TimelockQueue) Address() common.Address {
	return q.settings.Address
}

// Setup bootstraps the delay and role grants on first use. Later calls are
// no-ops so renounced or revoked roles stay that way.
func (q *TimelockQueue) Setup(ctx context.Context) error {
	q.delayMu.Lock()
	defer q.delayMu.Unlock()

	_, ok, err := q.operations.GetMinDelay(ctx)
	if err != nil {
		return fmt.Errorf("failed to read min delay: %w", err)
	}
	if ok {
		return nil
	}

	grants := []models.RoleGrant{{Role: models.RoleAdmin, Account: q.settings.Address}}
	if q.settings.Admin != (common.Address{}) {
		grants = append(grants, models.RoleGrant{Role: models.RoleAdmin, Account: q.settings.Admin})
	}
	for _, p := range q.settings.Proposers {
		grants = append(grants,
			models.RoleGrant{Role: models.RoleProposer, Account: p},
			models.RoleGrant{Role: models.RoleCanceller, Account: p},
		)
	}
	for _, e := range q.settings.Executors {
		grants = append(grants, models.RoleGrant{Role: models.RoleExecutor, Account: e})
	}
	for _, c := range q.settings.Cancellers {
		grants = append(grants, models.RoleGrant{Role: models.RoleCanceller, Account: c})
	}
	for _, g := range grants {
		if err := q.grant(ctx, g.Role, g.Account, q.settings.Address); err != nil {
			return err
		}
	}

	if err := q.operations.SaveMinDelay(ctx, q.settings.MinDelay); err != nil {
		return fmt.Errorf("failed to save min delay: %w", err)
	}
	q.emit(ctx, &domain.MinDelayChangeEvent{OldDuration: 0, NewDuration: q.settings.MinDelay})
	q.log.Debug("timelock bootstrapped", "address", q.settings.Address.Hex(), "minDelay", q.settings.MinDelay, "grants", len(grants))
	return nil
}

// ScheduleParams contains parameters for scheduling a batch
type ScheduleParams struct {
	Batch       models.Batch
	Predecessor common.Hash
	Salt        common.Hash
	// Delay defaults to the min delay and may not be lower
	Delay  uint64
	Caller common.Address
	// GracePeriod, when set, expires the operation that long after it is ready
	GracePeriod uint64
}

// Schedule queues a batch for execution after the delay.
// A canceled, executed or expired operation with the same id is replaced.
func (q *TimelockQueue) Schedule(ctx context.Context, params ScheduleParams) (*models.TimelockOperation, error) {
	if err := q.requireRole(ctx, models.RoleProposer, params.Caller); err != nil {
		return nil, err
	}
	id, err := domain.HashOperationBatch(params.Batch, params.Predecessor, params.Salt)
	if err != nil {
		return nil, err
	}

	minDelay, err := q.MinDelay(ctx)
	if err != nil {
		return nil, err
	}
	delay := params.Delay
	if delay == 0 {
		delay = minDelay
	}
	if delay < minDelay {
		return nil, fmt.Errorf("%w: %d below min delay %d", domain.ErrInsufficientDelay, delay, minDelay)
	}

	unlock := q.locks.Lock(id)
	defer unlock()

	now := q.clock.CurrentPoint()
	existing, err := q.operations.GetOperation(ctx, id)
	switch {
	case err == nil:
		if existing.IsLive(now) {
			return nil, &domain.OperationError{OperationID: id, Err: domain.ErrAlreadyQueued}
		}
		q.log.Debug("replacing finished operation", "id", id.Hex(), "state", existing.StateAt(now))
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load operation: %w", err)
	}

	ready, err := domain.AddPoints(now, delay)
	if err != nil {
		return nil, &domain.OperationError{OperationID: id, Err: err}
	}
	var expiry uint64
	if params.GracePeriod > 0 {
		// an expiry beyond the last point means the operation never expires
		expiry, _ = domain.AddPoints(ready, params.GracePeriod)
	}

	op := &models.TimelockOperation{
		ID:             id,
		Batch:          params.Batch.Clone(),
		Predecessor:    params.Predecessor,
		Salt:           params.Salt,
		Proposer:       params.Caller,
		ScheduledPoint: now,
		Delay:          delay,
		ReadyPoint:     ready,
		ExpiryPoint:    expiry,
		CreatedAt:      time.Now().UTC(),
	}
	if err := q.operations.SaveOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to save operation: %w", err)
	}

	q.emit(ctx, &domain.CallScheduledEvent{
		OperationID: id,
		Predecessor: params.Predecessor,
		Delay:       delay,
		Calls:       params.Batch.Len(),
	})
	q.log.Debug("operation scheduled", "id", id.Hex(), "ready", op.ReadyPoint, "caller", params.Caller.Hex())
	return op.Clone(), nil
}

// ExecuteOperationParams contains parameters for executing an operation
type ExecuteOperationParams struct {
	OperationID common.Hash
	Caller      common.Address
}

// ExecuteOperationResult contains the result of executing an operation
type ExecuteOperationResult struct {
	Operation *models.TimelockOperation
	Result    *models.ExecutionResult
}

// Execute runs a ready operation through the executor. The operation is marked
// executed only after the executor succeeded. Events raised by calls back into
// the timelock are held until then and dropped when the batch reverts.
func (q *TimelockQueue) Execute(ctx context.Context, params ExecuteOperationParams) (*ExecuteOperationResult, error) {
	if err := q.requireExecutor(ctx, params.Caller); err != nil {
		return nil, err
	}

	unlock := q.locks.Lock(params.OperationID)
	defer unlock()

	op, err := q.load(ctx, params.OperationID)
	if err != nil {
		return nil, err
	}
	if op.Canceled {
		return nil, &domain.OperationError{OperationID: op.ID, Err: domain.ErrOperationCanceled}
	}
	if op.Executed {
		return nil, &domain.OperationError{OperationID: op.ID, Err: domain.ErrAlreadyExecuted}
	}
	now := q.clock.CurrentPoint()
	if now < op.ReadyPoint {
		return nil, &domain.TimepointError{ID: op.ID, Now: now, Want: op.ReadyPoint, Err: domain.ErrNotReady}
	}
	if op.StateAt(now) == models.OperationStateExpired {
		return nil, &domain.TimepointError{ID: op.ID, Now: now, Want: op.ExpiryPoint, Err: domain.ErrOperationExpired}
	}
	if op.HasPredecessor() {
		done, err := q.IsOperationDone(ctx, op.Predecessor)
		if err != nil {
			return nil, err
		}
		if !done {
			return nil, &domain.OperationError{
				OperationID: op.ID,
				Err:         fmt.Errorf("%w: predecessor %s", domain.ErrPredecessorNotSatisfied, op.Predecessor.Hex()),
			}
		}
	}

	held := &eventBuffer{}
	result, err := q.executor.Run(withEventBuffer(ctx, held), op.Batch.Clone())
	if err != nil {
		q.log.Debug("operation reverted", "id", op.ID.Hex(), "error", err)
		return nil, &domain.OperationError{
			OperationID: op.ID,
			Err:         fmt.Errorf("%w: %w", domain.ErrExecutionFailed, err),
		}
	}

	op.Executed = true
	op.ExecutedPoint = q.clock.CurrentPoint()
	if err := q.operations.SaveOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to save operation: %w", err)
	}

	for _, ev := range held.drain() {
		q.events.OnEvent(ctx, ev)
	}
	q.emit(ctx, &domain.CallExecutedEvent{OperationID: op.ID, Executor: params.Caller})
	q.log.Debug("operation executed", "id", op.ID.Hex(), "caller", params.Caller.Hex())
	return &ExecuteOperationResult{Operation: op.Clone(), Result: result}, nil
}

// Cancel marks a pending operation canceled
func (q *TimelockQueue) Cancel(ctx context.Context, id common.Hash, caller common.Address) (*models.TimelockOperation, error) {
	if err := q.requireRole(ctx, models.RoleCanceller, caller); err != nil {
		return nil, err
	}

	unlock := q.locks.Lock(id)
	defer unlock()

	op, err := q.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if op.Executed {
		return nil, &domain.OperationError{OperationID: id, Err: domain.ErrAlreadyExecuted}
	}
	if op.Canceled {
		return nil, &domain.OperationError{OperationID: id, Err: domain.ErrOperationCanceled}
	}

	op.Canceled = true
	if err := q.operations.SaveOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to save operation: %w", err)
	}

	q.emit(ctx, &domain.CancelledEvent{OperationID: id, By: caller})
	q.log.Debug("operation canceled", "id", id.Hex(), "caller", caller.Hex())
	return op.Clone(), nil
}

// UpdateDelay changes the min delay for future operations.
// Only the timelock itself may call it, i.e. through an executed operation.
func (q *TimelockQueue) UpdateDelay(ctx context.Context, newDelay uint64, caller common.Address) error {
	if caller != q.settings.Address {
		return fmt.Errorf("%w: caller %s must be the timelock", domain.ErrUnauthorized, caller.Hex())
	}

	q.delayMu.Lock()
	defer q.delayMu.Unlock()

	old, err := q.minDelayLocked(ctx)
	if err != nil {
		return err
	}
	if err := q.operations.SaveMinDelay(ctx, newDelay); err != nil {
		return fmt.Errorf("failed to save min delay: %w", err)
	}
	q.emit(ctx, &domain.MinDelayChangeEvent{OldDuration: old, NewDuration: newDelay})
	q.log.Debug("min delay updated", "old", old, "new", newDelay)
	return nil
}

// GrantRole grants role to account. The caller must hold the admin role.
func (q *TimelockQueue) GrantRole(ctx context.Context, role models.Role, account, caller common.Address) error {
	if err := q.requireRole(ctx, models.RoleAdmin, caller); err != nil {
		return err
	}
	return q.grant(ctx, role, account, caller)
}

// RevokeRole revokes role from account. The caller must hold the admin role.
func (q *TimelockQueue) RevokeRole(ctx context.Context, role models.Role, account, caller common.Address) error {
	if err := q.requireRole(ctx, models.RoleAdmin, caller); err != nil {
		return err
	}
	return q.revoke(ctx, role, account, caller)
}

// RenounceRole lets an account give up one of its own roles
func (q *TimelockQueue) RenounceRole(ctx context.Context, role models.Role, account, caller common.Address) error {
	if account != caller {
		return fmt.Errorf("%w: can only renounce roles for self", domain.ErrUnauthorized)
	}
	return q.revoke(ctx, role, account, caller)
}

// Snapshot captures the min delay and every role grant. The returned func
// puts them back, for rolling back a batch that reverted after administering
// the timelock.
func (q *TimelockQueue) Snapshot(ctx context.Context) (func(ctx context.Context) error, error) {
	delay, err := q.MinDelay(ctx)
	if err != nil {
		return nil, err
	}
	members := make(map[models.Role][]common.Address, len(models.AllRoles))
	for _, role := range models.AllRoles {
		if members[role], err = q.RoleMembers(ctx, role); err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context) error {
		q.delayMu.Lock()
		err := q.operations.SaveMinDelay(ctx, delay)
		q.delayMu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to restore min delay: %w", err)
		}
		for role, want := range members {
			have, err := q.RoleMembers(ctx, role)
			if err != nil {
				return err
			}
			for _, account := range lo.Without(have, want...) {
				if _, err := q.roles.RevokeRole(ctx, role, account); err != nil {
					return fmt.Errorf("failed to restore %s: %w", role, err)
				}
			}
			for _, account := range lo.Without(want, have...) {
				if _, err := q.roles.GrantRole(ctx, role, account); err != nil {
					return fmt.Errorf("failed to restore %s: %w", role, err)
				}
			}
		}
		q.log.Debug("timelock settings restored", "minDelay", delay)
		return nil
	}, nil
}

// HasRole reports whether account holds role
func (q *TimelockQueue) HasRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	ok, err := q.roles.HasRole(ctx, role, account)
	if err != nil {
		return false, fmt.Errorf("failed to read role %s: %w", role, err)
	}
	return ok, nil
}

// RoleMembers lists the accounts holding role
func (q *TimelockQueue) RoleMembers(ctx context.Context, role models.Role) ([]common.Address, error) {
	members, err := q.roles.ListRoleMembers(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list role %s: %w", role, err)
	}
	return members, nil
}

// MinDelay returns the current minimum delay
func (q *TimelockQueue) MinDelay(ctx context.Context) (uint64, error) {
	q.delayMu.RLock()
	defer q.delayMu.RUnlock()
	return q.minDelayLocked(ctx)
}

// GetOperation returns a copy of a stored operation
func (q *TimelockQueue) GetOperation(ctx context.Context, id common.Hash) (*models.TimelockOperation, error) {
	return q.load(ctx, id)
}

// OperationState returns the state of id at the current point. Unknown ids are Unset.
func (q *TimelockQueue) OperationState(ctx context.Context, id common.Hash) (models.OperationState, error) {
	op, err := q.operations.GetOperation(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return models.OperationStateUnset, nil
		}
		return 0, fmt.Errorf("failed to load operation: %w", err)
	}
	return op.StateAt(q.clock.CurrentPoint()), nil
}

// IsOperationPending reports whether id is scheduled and neither executed nor canceled
func (q *TimelockQueue) IsOperationPending(ctx context.Context, id common.Hash) (bool, error) {
	state, err := q.OperationState(ctx, id)
	return state == models.OperationStateWaiting || state == models.OperationStateReady, err
}

// IsOperationReady reports whether id may be executed now
func (q *TimelockQueue) IsOperationReady(ctx context.Context, id common.Hash) (bool, error) {
	state, err := q.OperationState(ctx, id)
	return state == models.OperationStateReady, err
}

// IsOperationDone reports whether id was executed
func (q *TimelockQueue) IsOperationDone(ctx context.Context, id common.Hash) (bool, error) {
	state, err := q.OperationState(ctx, id)
	return state == models.OperationStateDone, err
}

// ListOperations returns the operations matching filter
func (q *TimelockQueue) ListOperations(ctx context.Context, filter domain.OperationFilter) ([]*models.TimelockOperation, error) {
	ops, err := q.operations.ListOperations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	return ops, nil
}

func (q *TimelockQueue) minDelayLocked(ctx context.Context) (uint64, error) {
	delay, ok, err := q.operations.GetMinDelay(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read min delay: %w", err)
	}
	if !ok {
		return q.settings.MinDelay, nil
	}
	return delay, nil
}

func (q *TimelockQueue) requireRole(ctx context.Context, role models.Role, account common.Address) error {
	ok, err := q.HasRole(ctx, role, account)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.MissingRoleError{Account: account, Role: role}
	}
	return nil
}

// requireExecutor also accepts callers when the role is open to everyone
func (q *TimelockQueue) requireExecutor(ctx context.Context, account common.Address) error {
	open, err := q.HasRole(ctx, models.RoleExecutor, models.AnyAccount)
	if err != nil {
		return err
	}
	if open {
		return nil
	}
	return q.requireRole(ctx, models.RoleExecutor, account)
}

func (q *TimelockQueue) grant(ctx context.Context, role models.Role, account, sender common.Address) error {
	added, err := q.roles.GrantRole(ctx, role, account)
	if err != nil {
		return fmt.Errorf("failed to grant %s: %w", role, err)
	}
	if added {
		q.emit(ctx, &domain.RoleGrantedEvent{Role: role, Account: account, Sender: sender})
		q.log.Debug("role granted", "role", role, "account", account.Hex(), "sender", sender.Hex())
	}
	return nil
}

func (q *TimelockQueue) revoke(ctx context.Context, role models.Role, account, sender common.Address) error {
	removed, err := q.roles.RevokeRole(ctx, role, account)
	if err != nil {
		return fmt.Errorf("failed to revoke %s: %w", role, err)
	}
	if removed {
		q.emit(ctx, &domain.RoleRevokedEvent{Role: role, Account: account, Sender: sender})
		q.log.Debug("role revoked", "role", role, "account", account.Hex(), "sender", sender.Hex())
	}
	return nil
}

func (q *TimelockQueue) emit(ctx context.Context, event domain.GovernanceEvent) {
	if held, ok := ctx.Value(eventBufferKey{}).(*eventBuffer); ok {
		held.add(event)
		return
	}
	q.events.OnEvent(ctx, event)
}

func (q *TimelockQueue) load(ctx context.Context, id common.Hash) (*models.TimelockOperation, error) {
	op, err := q.operations.GetOperation(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.OperationError{OperationID: id, Err: domain.ErrUnknownOperation}
		}
		return nil, fmt.Errorf("failed to load operation: %w", err)
	}
	return op, nil
}

type eventBufferKey struct{}

// eventBuffer holds events raised while a batch runs
type eventBuffer struct {
	mu     sync.Mutex
	events []domain.GovernanceEvent
}

func withEventBuffer(ctx context.Context, b *eventBuffer) context.Context {
	return context.WithValue(ctx, eventBufferKey{}, b)
}

func (b *eventBuffer) add(event domain.GovernanceEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *eventBuffer) drain() []domain.GovernanceEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events
	b.events = nil
	return events
}
