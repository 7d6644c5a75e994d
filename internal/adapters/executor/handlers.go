package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

var (
	// ErrUnknownMethod is returned for a selector the handler does not implement
	ErrUnknownMethod = errors.New("function selector was not recognized")
	// ErrNotPayable is returned when value is sent to a handler that cannot take it
	ErrNotPayable = errors.New("non-payable function")
)

// Token is the state an ERC20 handler operates on
type Token interface {
	Transfer(from, to common.Address, amount *uint256.Int) error
	BalanceOf(account common.Address) *uint256.Int
}

// Delegator is implemented by tokens carrying voting power
type Delegator interface {
	Delegate(account, delegatee common.Address)
}

// TokenHandler decodes ERC20 calldata and applies it to a token
type TokenHandler struct {
	token Token
}

// NewTokenHandler creates a handler for token
func NewTokenHandler(token Token) *TokenHandler {
	return &TokenHandler{token: token}
}

// Call implements Handler
func (h *TokenHandler) Call(ctx context.Context, from common.Address, value *big.Int, data []byte) ([]byte, error) {
	if value != nil && value.Sign() != 0 {
		return nil, ErrNotPayable
	}
	if len(data) < 4 {
		return nil, ErrUnknownMethod
	}
	method, err := abi.ERC20.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", ErrUnknownMethod, data[:4])
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method.Name, err)
	}

	switch method.Name {
	case "transfer":
		amount, overflow := uint256.FromBig(args[1].(*big.Int))
		if overflow {
			return nil, fmt.Errorf("transfer amount overflows uint256")
		}
		if err := h.token.Transfer(from, args[0].(common.Address), amount); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	case "balanceOf":
		return method.Outputs.Pack(h.token.BalanceOf(args[0].(common.Address)).ToBig())
	case "delegate":
		d, ok := h.token.(Delegator)
		if !ok {
			return nil, fmt.Errorf("%w: delegate", ErrUnknownMethod)
		}
		d.Delegate(from, args[0].(common.Address))
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
}

// Checkpoint implements Checkpointer when the token supports it
func (h *TokenHandler) Checkpoint(context.Context) (func() error, error) {
	cp, ok := h.token.(interface{ Checkpoint() func() })
	if !ok {
		return func() error { return nil }, nil
	}
	restore := cp.Checkpoint()
	return func() error {
		restore()
		return nil
	}, nil
}

// TimelockAdmin is the part of the timelock a self-call may reach
type TimelockAdmin interface {
	UpdateDelay(ctx context.Context, newDelay uint64, caller common.Address) error
	GrantRole(ctx context.Context, role models.Role, account, caller common.Address) error
	RevokeRole(ctx context.Context, role models.Role, account, caller common.Address) error
	RenounceRole(ctx context.Context, role models.Role, account, caller common.Address) error
}

// Snapshotter is implemented by a TimelockAdmin that can undo administration
type Snapshotter interface {
	Snapshot(ctx context.Context) (func(ctx context.Context) error, error)
}

// TimelockHandler routes calls addressed to the timelock back into the queue,
// with the sender as caller. The queue's own checks decide whether the call
// is allowed, so only an executed operation can administer the timelock.
type TimelockHandler struct {
	admin TimelockAdmin
}

// NewTimelockHandler creates a handler for the timelock's own address
func NewTimelockHandler(admin TimelockAdmin) *TimelockHandler {
	return &TimelockHandler{admin: admin}
}

// Checkpoint implements Checkpointer when the admin supports snapshots
func (h *TimelockHandler) Checkpoint(ctx context.Context) (func() error, error) {
	s, ok := h.admin.(Snapshotter)
	if !ok {
		return func() error { return nil }, nil
	}
	restore, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return func() error { return restore(context.WithoutCancel(ctx)) }, nil
}

// Call implements Handler
func (h *TimelockHandler) Call(ctx context.Context, from common.Address, value *big.Int, data []byte) ([]byte, error) {
	if value != nil && value.Sign() != 0 {
		return nil, ErrNotPayable
	}
	if len(data) < 4 {
		return nil, ErrUnknownMethod
	}
	method, err := abi.Timelock.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", ErrUnknownMethod, data[:4])
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method.Name, err)
	}

	if method.Name == "updateDelay" {
		delay := args[0].(*big.Int)
		if !delay.IsUint64() {
			return nil, fmt.Errorf("delay %s out of range", delay)
		}
		return nil, h.admin.UpdateDelay(ctx, delay.Uint64(), from)
	}

	role, err := models.RoleFromID(common.Hash(args[0].([32]byte)))
	if err != nil {
		return nil, err
	}
	account := args[1].(common.Address)
	switch method.Name {
	case "grantRole":
		return nil, h.admin.GrantRole(ctx, role, account, from)
	case "revokeRole":
		return nil, h.admin.RevokeRole(ctx, role, account, from)
	case "renounceRole":
		return nil, h.admin.RenounceRole(ctx, role, account, from)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
}
