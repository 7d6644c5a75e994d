package domain

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// Error kinds. Every engine failure unwraps to exactly one of these.
var (
	// ErrValidation is returned for malformed input such as a bad batch
	ErrValidation = errors.New("validation error")

	// ErrAuthorization is returned when the caller lacks a role or power
	ErrAuthorization = errors.New("authorization error")

	// ErrState is returned when an operation is invalid for the current lifecycle state
	ErrState = errors.New("state error")

	// ErrConflict is returned when an identifier is already taken
	ErrConflict = errors.New("conflict")

	// ErrArithmetic is returned when weight or timepoint math would overflow
	ErrArithmetic = errors.New("arithmetic error")

	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")
)

// Specific failures
var (
	ErrInvalidBatch      = newKindError(ErrValidation, "invalid batch")
	ErrInvalidSupport    = newKindError(ErrValidation, "invalid vote type")
	ErrInsufficientDelay = newKindError(ErrValidation, "insufficient delay")

	ErrInsufficientProposerPower = newKindError(ErrAuthorization, "proposer votes below threshold")
	ErrUnauthorized              = newKindError(ErrAuthorization, "unauthorized")

	ErrVotingClosed            = newKindError(ErrState, "voting is closed")
	ErrUnexpectedState         = newKindError(ErrState, "unexpected proposal state")
	ErrNotReady                = newKindError(ErrState, "operation is not ready")
	ErrOperationCanceled       = newKindError(ErrState, "operation is canceled")
	ErrAlreadyExecuted         = newKindError(ErrState, "operation already executed")
	ErrPredecessorNotSatisfied = newKindError(ErrState, "missing dependency")
	ErrExecutionFailed         = newKindError(ErrState, "underlying transaction reverted")
	ErrOperationExpired        = newKindError(ErrState, "operation expired")

	ErrDuplicateProposal = newKindError(ErrConflict, "proposal already exists")
	ErrAlreadyVoted      = newKindError(ErrConflict, "vote already cast")
	ErrAlreadyQueued     = newKindError(ErrConflict, "operation already scheduled")

	ErrArithmeticOverflow = newKindError(ErrArithmetic, "weight overflow")
	ErrPointOverflow      = newKindError(ErrArithmetic, "timepoint overflow")

	ErrUnknownProposal  = newKindError(ErrNotFound, "unknown proposal")
	ErrUnknownOperation = newKindError(ErrNotFound, "unknown operation")
)

// AddPoints adds a duration to a timepoint, failing with ErrPointOverflow
// instead of wrapping around
func AddPoints(point, duration uint64) (uint64, error) {
	sum, carry := bits.Add64(point, duration, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrPointOverflow, point, duration)
	}
	return sum, nil
}

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// KindOf returns the error kind of err, or nil if err is not an engine error
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrAuthorization, ErrState, ErrConflict, ErrArithmetic, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// ProposalStateError carries the current and allowed states of a proposal
type ProposalStateError struct {
	ProposalID common.Hash
	Current    models.ProposalState
	Expected   []models.ProposalState
	Err        error
}

func (e *ProposalStateError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("%v: proposal %s is %s", e.Err, e.ProposalID.Hex(), e.Current)
	}
	return fmt.Sprintf("%v: proposal %s is %s, expected %v", e.Err, e.ProposalID.Hex(), e.Current, e.Expected)
}

func (e *ProposalStateError) Unwrap() error { return e.Err }

// TimepointError reports a point-gated failure with the current and required points
type TimepointError struct {
	ID   common.Hash
	Now  uint64
	Want uint64
	Err  error
}

func (e *TimepointError) Error() string {
	return fmt.Sprintf("%v: %s at point %d, needs %d", e.Err, e.ID.Hex(), e.Now, e.Want)
}

func (e *TimepointError) Unwrap() error { return e.Err }

// OperationError ties a failure to a timelock operation
type OperationError struct {
	OperationID common.Hash
	Err         error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%v: operation %s", e.Err, e.OperationID.Hex())
}

func (e *OperationError) Unwrap() error { return e.Err }

// ProposalError ties a failure to a proposal
type ProposalError struct {
	ProposalID common.Hash
	Err        error
}

func (e *ProposalError) Error() string {
	return fmt.Sprintf("%v: proposal %s", e.Err, e.ProposalID.Hex())
}

func (e *ProposalError) Unwrap() error { return e.Err }

// MissingRoleError is returned when an account lacks a role
type MissingRoleError struct {
	Account common.Address
	Role    models.Role
}

func (e *MissingRoleError) Error() string {
	return fmt.Sprintf("account %s is missing role %s", e.Account.Hex(), e.Role)
}

func (e *MissingRoleError) Unwrap() error { return ErrUnauthorized }

// ThresholdError reports proposer power below the configured threshold
type ThresholdError struct {
	Proposer  common.Address
	Votes     string
	Threshold string
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%v: %s has %s, needs %s", ErrInsufficientProposerPower, e.Proposer.Hex(), e.Votes, e.Threshold)
}

func (e *ThresholdError) Unwrap() error { return ErrInsufficientProposerPower }
