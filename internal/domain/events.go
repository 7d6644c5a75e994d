package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

type EventType string

const (
	EventTypeProposalCreated  EventType = "ProposalCreated"
	EventTypeVoteCast         EventType = "VoteCast"
	EventTypeProposalCanceled EventType = "ProposalCanceled"
	EventTypeProposalQueued   EventType = "ProposalQueued"
	EventTypeProposalExecuted EventType = "ProposalExecuted"
	EventTypeCallScheduled    EventType = "CallScheduled"
	EventTypeCallExecuted     EventType = "CallExecuted"
	EventTypeCancelled        EventType = "Cancelled"
	EventTypeMinDelayChange   EventType = "MinDelayChange"
	EventTypeRoleGranted      EventType = "RoleGranted"
	EventTypeRoleRevoked      EventType = "RoleRevoked"
)

// GovernanceEvent is the interface for all events the engine emits
type GovernanceEvent interface {
	ContractEventName() string
	String() string
}

// ProposalCreatedEvent is emitted when a proposal is stored
type ProposalCreatedEvent struct {
	ProposalID  common.Hash
	Proposer    common.Address
	Batch       models.Batch
	VoteStart   uint64
	VoteEnd     uint64
	Description string
}

func (ProposalCreatedEvent) ContractEventName() string {
	return string(EventTypeProposalCreated)
}

func (e *ProposalCreatedEvent) String() string {
	return fmt.Sprintf("%s: id=%s, proposer=%s, calls=%d, window=[%d,%d]",
		e.ContractEventName(),
		shortHash(e.ProposalID),
		shortAddr(e.Proposer),
		e.Batch.Len(),
		e.VoteStart,
		e.VoteEnd,
	)
}

// VoteCastEvent is emitted for every accepted ballot
type VoteCastEvent struct {
	Voter      common.Address
	ProposalID common.Hash
	Support    models.VoteType
	Weight     *uint256.Int
	Reason     string
}

func (VoteCastEvent) ContractEventName() string {
	return string(EventTypeVoteCast)
}

func (e *VoteCastEvent) String() string {
	return fmt.Sprintf("%s: id=%s, voter=%s, support=%s, weight=%s",
		e.ContractEventName(),
		shortHash(e.ProposalID),
		shortAddr(e.Voter),
		e.Support,
		e.Weight.Dec(),
	)
}

// ProposalCanceledEvent is emitted when a proposal is canceled
type ProposalCanceledEvent struct {
	ProposalID common.Hash
	By         common.Address
}

func (ProposalCanceledEvent) ContractEventName() string {
	return string(EventTypeProposalCanceled)
}

func (e *ProposalCanceledEvent) String() string {
	return fmt.Sprintf("%s: id=%s, by=%s", e.ContractEventName(), shortHash(e.ProposalID), shortAddr(e.By))
}

// ProposalQueuedEvent is emitted when a succeeded proposal enters the timelock
type ProposalQueuedEvent struct {
	ProposalID  common.Hash
	OperationID common.Hash
	ETA         uint64
}

func (ProposalQueuedEvent) ContractEventName() string {
	return string(EventTypeProposalQueued)
}

func (e *ProposalQueuedEvent) String() string {
	return fmt.Sprintf("%s: id=%s, op=%s, eta=%d",
		e.ContractEventName(), shortHash(e.ProposalID), shortHash(e.OperationID), e.ETA)
}

// ProposalExecutedEvent is emitted once the linked operation ran
type ProposalExecutedEvent struct {
	ProposalID common.Hash
}

func (ProposalExecutedEvent) ContractEventName() string {
	return string(EventTypeProposalExecuted)
}

func (e *ProposalExecutedEvent) String() string {
	return fmt.Sprintf("%s: id=%s", e.ContractEventName(), shortHash(e.ProposalID))
}

// CallScheduledEvent is emitted when the timelock stores an operation
type CallScheduledEvent struct {
	OperationID common.Hash
	Predecessor common.Hash
	Delay       uint64
	Calls       int
}

func (CallScheduledEvent) ContractEventName() string {
	return string(EventTypeCallScheduled)
}

func (e *CallScheduledEvent) String() string {
	return fmt.Sprintf("%s: op=%s, calls=%d, delay=%d",
		e.ContractEventName(), shortHash(e.OperationID), e.Calls, e.Delay)
}

// CallExecutedEvent is emitted after the executor ran an operation
type CallExecutedEvent struct {
	OperationID common.Hash
	Executor    common.Address
}

func (CallExecutedEvent) ContractEventName() string {
	return string(EventTypeCallExecuted)
}

func (e *CallExecutedEvent) String() string {
	return fmt.Sprintf("%s: op=%s, by=%s", e.ContractEventName(), shortHash(e.OperationID), shortAddr(e.Executor))
}

// CancelledEvent is emitted when a timelock operation is canceled
type CancelledEvent struct {
	OperationID common.Hash
	By          common.Address
}

func (CancelledEvent) ContractEventName() string {
	return string(EventTypeCancelled)
}

func (e *CancelledEvent) String() string {
	return fmt.Sprintf("%s: op=%s, by=%s", e.ContractEventName(), shortHash(e.OperationID), shortAddr(e.By))
}

// MinDelayChangeEvent is emitted when the timelock updates its delay
type MinDelayChangeEvent struct {
	OldDuration uint64
	NewDuration uint64
}

func (MinDelayChangeEvent) ContractEventName() string {
	return string(EventTypeMinDelayChange)
}

func (e *MinDelayChangeEvent) String() string {
	return fmt.Sprintf("%s: %d -> %d", e.ContractEventName(), e.OldDuration, e.NewDuration)
}

// RoleGrantedEvent is emitted when an account receives a role
type RoleGrantedEvent struct {
	Role    models.Role
	Account common.Address
	Sender  common.Address
}

func (RoleGrantedEvent) ContractEventName() string {
	return string(EventTypeRoleGranted)
}

func (e *RoleGrantedEvent) String() string {
	return fmt.Sprintf("%s: %s to %s", e.ContractEventName(), e.Role, shortAddr(e.Account))
}

// RoleRevokedEvent is emitted when an account loses a role
type RoleRevokedEvent struct {
	Role    models.Role
	Account common.Address
	Sender  common.Address
}

func (RoleRevokedEvent) ContractEventName() string {
	return string(EventTypeRoleRevoked)
}

func (e *RoleRevokedEvent) String() string {
	return fmt.Sprintf("%s: %s from %s", e.ContractEventName(), e.Role, shortAddr(e.Account))
}

func shortHash(h common.Hash) string {
	return h.Hex()[:10] + "..."
}

func shortAddr(a common.Address) string {
	return a.Hex()[:10] + "..."
}
