package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// Handler executes one call against the state behind a target address
type Handler interface {
	Call(ctx context.Context, from common.Address, value *big.Int, data []byte) ([]byte, error)
}

// Checkpointer is implemented by handlers whose state can be rolled back.
// The returned func restores the state captured by Checkpoint.
type Checkpointer interface {
	Checkpoint(ctx context.Context) (func() error, error)
}

// Router runs a batch by dispatching each call on its target address. All
// calls are sent by the timelock account. A failing call rolls back every
// handler that supports checkpoints, so a batch applies all or nothing.
type Router struct {
	mu       sync.RWMutex
	sender   common.Address
	handlers map[common.Address]Handler
	log      *slog.Logger
}

// NewRouter creates a router sending as sender
func NewRouter(sender common.Address, log *slog.Logger) *Router {
	return &Router{
		sender:   sender,
		handlers: make(map[common.Address]Handler),
		log:      log.With("component", "ExecutorRouter"),
	}
}

// Register installs the handler for target, replacing any previous one
func (r *Router) Register(target common.Address, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[target] = h
}

// Targets returns the registered target addresses
func (r *Router) Targets() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	targets := make([]common.Address, 0, len(r.handlers))
	for t := range r.handlers {
		targets = append(targets, t)
	}
	return targets
}

// Run executes the batch in order
func (r *Router) Run(ctx context.Context, batch models.Batch) (*models.ExecutionResult, error) {
	r.mu.RLock()
	handlers := make(map[common.Address]Handler, len(r.handlers))
	for t, h := range r.handlers {
		handlers[t] = h
	}
	r.mu.RUnlock()

	var rollbacks []func() error
	revert := func() {
		for i := len(rollbacks) - 1; i >= 0; i-- {
			if err := rollbacks[i](); err != nil {
				r.log.Error("rollback failed", "error", err)
			}
		}
	}
	for target, h := range handlers {
		cp, ok := h.(Checkpointer)
		if !ok {
			continue
		}
		rollback, err := cp.Checkpoint(ctx)
		if err != nil {
			revert()
			return nil, fmt.Errorf("failed to checkpoint %s: %w", target.Hex(), err)
		}
		rollbacks = append(rollbacks, rollback)
	}

	result := &models.ExecutionResult{ReturnData: make([]hexutil.Bytes, 0, batch.Len())}
	for i, call := range batch.Calls() {
		if err := ctx.Err(); err != nil {
			revert()
			return nil, err
		}
		h, ok := handlers[call.Target]
		if !ok {
			revert()
			return nil, fmt.Errorf("call %d: no handler for target %s", i, call.Target.Hex())
		}
		ret, err := h.Call(ctx, r.sender, call.Value, call.Data)
		if err != nil {
			revert()
			return nil, fmt.Errorf("call %d to %s: %w", i, call.Target.Hex(), err)
		}
		r.log.Debug("call executed", "index", i, "target", call.Target.Hex(), "bytes", len(call.Data))
		result.ReturnData = append(result.ReturnData, ret)
	}
	return result, nil
}
