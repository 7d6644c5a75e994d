package models

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// OperationState represents the state of a timelock operation at a point
type OperationState uint8

const (
	OperationStateUnset OperationState = iota
	OperationStateWaiting
	OperationStateReady
	OperationStateDone
	OperationStateCanceled
	OperationStateExpired
)

func (s OperationState) String() string {
	switch s {
	case OperationStateUnset:
		return "Unset"
	case OperationStateWaiting:
		return "Waiting"
	case OperationStateReady:
		return "Ready"
	case OperationStateDone:
		return "Done"
	case OperationStateCanceled:
		return "Canceled"
	case OperationStateExpired:
		return "Expired"
	}
	return fmt.Sprintf("OperationState(%d)", uint8(s))
}

// MarshalText renders the state name
func (s OperationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TimelockOperation is a scheduled batch waiting in the timelock
type TimelockOperation struct {
	ID          common.Hash    `json:"id"`
	Batch       Batch          `json:"batch"`
	Predecessor common.Hash    `json:"predecessor"`
	Salt        common.Hash    `json:"salt"`
	Proposer    common.Address `json:"proposer"`

	ScheduledPoint uint64 `json:"scheduledAt"`
	Delay          uint64 `json:"delay"`
	ReadyPoint     uint64 `json:"readyAt"`
	// ExpiryPoint is the first point the operation can no longer run; zero never expires
	ExpiryPoint uint64 `json:"expiresAt,omitempty"`

	Executed      bool   `json:"executed"`
	ExecutedPoint uint64 `json:"executedAt,omitempty"`
	Canceled      bool   `json:"canceled"`

	CreatedAt time.Time `json:"createdAt"`
}

// IsPending reports whether the operation is neither executed nor canceled
func (o *TimelockOperation) IsPending() bool {
	return !o.Executed && !o.Canceled
}

// IsLive reports whether the operation may still run at point
func (o *TimelockOperation) IsLive(point uint64) bool {
	state := o.StateAt(point)
	return state == OperationStateWaiting || state == OperationStateReady
}

// HasPredecessor reports whether the operation depends on another one
func (o *TimelockOperation) HasPredecessor() bool {
	return o.Predecessor != (common.Hash{})
}

// StateAt derives the operation state at the given point
func (o *TimelockOperation) StateAt(point uint64) OperationState {
	switch {
	case o == nil:
		return OperationStateUnset
	case o.Executed:
		return OperationStateDone
	case o.Canceled:
		return OperationStateCanceled
	case point < o.ReadyPoint:
		return OperationStateWaiting
	case o.ExpiryPoint > 0 && point >= o.ExpiryPoint:
		return OperationStateExpired
	default:
		return OperationStateReady
	}
}

// Clone returns a deep copy of the operation
func (o *TimelockOperation) Clone() *TimelockOperation {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Batch = o.Batch.Clone()
	return &cp
}
